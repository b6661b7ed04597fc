package logic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riveredge/riveredge/internal/core/config"
	"github.com/riveredge/riveredge/internal/core/model"
	"github.com/riveredge/riveredge/pkg/ctx"
)

func approvalHarness(t *testing.T) (*ApprovalLogic, *fakeApprovalRepo) {
	t.Helper()
	users := &fakeUserRepo{}
	for i, name := range []string{"alice", "bob", "carol", "dave"} {
		require.NoError(t, users.AddUser(&model.User{
			TenantModel: model.TenantModel{
				BaseModel: model.BaseModel{ID: uint64(i + 1), ExternalId: name},
				TenantId:  1,
			},
			Username: name,
		}))
	}
	repo := newFakeApprovalRepo()
	al := NewApprovalLogic(repo, users, newFakeRoleRepo(), config.ApprovalConfig{
		WebhookTimeoutSec: 1,
		WebhookMaxRetries: 1,
	})
	return al, repo
}

func acFor(userId string) *ctx.AuthContext {
	return &ctx.AuthContext{PrincipalClass: ctx.PrincipalUser, UserId: userId, TenantId: 1}
}

func makeFlow(t *testing.T, al *ApprovalLogic, steps ...model.FlowStepReq) {
	t.Helper()
	_, err := al.CreateFlow(acFor("alice"), &model.CreateFlowReq{
		FlowCode:   "expense",
		Name:       "Expense approval",
		EntityType: "expense",
		Steps:      steps,
	})
	require.NoError(t, err)
}

func pendingTaskIdFor(t *testing.T, repo *fakeApprovalRepo, approver string) string {
	t.Helper()
	for _, task := range repo.tasks {
		if task.ApproverId == approver && task.Status == model.TaskPending {
			return task.ExternalId
		}
	}
	t.Fatalf("no pending task for %s", approver)
	return ""
}

func taskStatusFor(t *testing.T, repo *fakeApprovalRepo, approver string) string {
	t.Helper()
	for _, task := range repo.tasks {
		if task.ApproverId == approver {
			return task.Status
		}
	}
	t.Fatalf("no task for %s", approver)
	return ""
}

func countRecords(repo *fakeApprovalRepo, result string) int {
	n := 0
	for _, r := range repo.records {
		if r.Result == result {
			n++
		}
	}
	return n
}

func TestSubmitThenApproveEachStepFinishesInstance(t *testing.T) {
	al, repo := approvalHarness(t)
	makeFlow(t, al,
		model.FlowStepReq{Mode: model.StepModeAll, ApproverUsers: []string{"bob"}},
		model.FlowStepReq{Mode: model.StepModeAll, ApproverUsers: []string{"carol"}},
	)

	resp, err := al.Submit(acFor("alice"), &model.SubmitApprovalReq{
		EntityType: "expense", EntityId: "exp-1",
		Payload: map[string]any{"amount": 120},
	})
	require.NoError(t, err)
	assert.Equal(t, model.InstanceInProgress, resp.Status)
	assert.Equal(t, 1, resp.CurrentStepOrder)

	resp, err = al.Decide(acFor("bob"), pendingTaskIdFor(t, repo, "bob"),
		&model.DecideTaskReq{Result: "approve"})
	require.NoError(t, err)
	assert.Equal(t, model.InstanceInProgress, resp.Status)
	assert.Equal(t, 2, resp.CurrentStepOrder)

	resp, err = al.Decide(acFor("carol"), pendingTaskIdFor(t, repo, "carol"),
		&model.DecideTaskReq{Result: model.TaskApproved})
	require.NoError(t, err)
	assert.Equal(t, model.InstanceApproved, resp.Status)
	require.NotNil(t, resp.CompletedAt)

	assert.Equal(t, 1, countRecords(repo, model.RecordSubmitted))
	assert.Equal(t, 2, countRecords(repo, model.RecordApproved))
}

func TestRejectionFinishesInstanceRejected(t *testing.T) {
	al, repo := approvalHarness(t)
	makeFlow(t, al,
		model.FlowStepReq{Mode: model.StepModeAll, ApproverUsers: []string{"bob"}},
		model.FlowStepReq{Mode: model.StepModeAll, ApproverUsers: []string{"carol"}},
	)

	_, err := al.Submit(acFor("alice"), &model.SubmitApprovalReq{
		EntityType: "expense", EntityId: "exp-1",
	})
	require.NoError(t, err)

	resp, err := al.Decide(acFor("bob"), pendingTaskIdFor(t, repo, "bob"),
		&model.DecideTaskReq{Result: "reject", Comment: "over budget"})
	require.NoError(t, err)
	assert.Equal(t, model.InstanceRejected, resp.Status)
	assert.Equal(t, 1, countRecords(repo, model.RecordRejected))
}

func TestAnyModeFirstApprovalCancelsSiblings(t *testing.T) {
	al, repo := approvalHarness(t)
	makeFlow(t, al,
		model.FlowStepReq{Mode: model.StepModeAny, ApproverUsers: []string{"bob", "carol"}},
		model.FlowStepReq{Mode: model.StepModeAll, ApproverUsers: []string{"dave"}},
	)

	_, err := al.Submit(acFor("alice"), &model.SubmitApprovalReq{
		EntityType: "expense", EntityId: "exp-1",
	})
	require.NoError(t, err)

	carolTask := pendingTaskIdFor(t, repo, "carol")
	resp, err := al.Decide(acFor("bob"), pendingTaskIdFor(t, repo, "bob"),
		&model.DecideTaskReq{Result: "approve"})
	require.NoError(t, err)
	assert.Equal(t, model.InstanceInProgress, resp.Status)
	assert.Equal(t, 2, resp.CurrentStepOrder)

	// The step resolved on bob's approval; carol's task must close with it.
	assert.Equal(t, model.TaskCancelled, taskStatusFor(t, repo, "carol"))
	assert.Equal(t, model.TaskPending, taskStatusFor(t, repo, "dave"))

	_, err = al.Decide(acFor("carol"), carolTask, &model.DecideTaskReq{Result: "approve"})
	assert.Error(t, err)
}

func TestSequentialStepEnforcesTurnOrder(t *testing.T) {
	al, repo := approvalHarness(t)
	makeFlow(t, al,
		model.FlowStepReq{Mode: model.StepModeSequential, ApproverUsers: []string{"bob", "carol"}},
	)

	_, err := al.Submit(acFor("alice"), &model.SubmitApprovalReq{
		EntityType: "expense", EntityId: "exp-1",
	})
	require.NoError(t, err)

	_, err = al.Decide(acFor("carol"), pendingTaskIdFor(t, repo, "carol"),
		&model.DecideTaskReq{Result: "approve"})
	require.Error(t, err)

	_, err = al.Decide(acFor("bob"), pendingTaskIdFor(t, repo, "bob"),
		&model.DecideTaskReq{Result: "approve"})
	require.NoError(t, err)

	resp, err := al.Decide(acFor("carol"), pendingTaskIdFor(t, repo, "carol"),
		&model.DecideTaskReq{Result: "approve"})
	require.NoError(t, err)
	assert.Equal(t, model.InstanceApproved, resp.Status)
}

func TestSubmitReplaysWithIdempotencyKey(t *testing.T) {
	al, repo := approvalHarness(t)
	makeFlow(t, al,
		model.FlowStepReq{Mode: model.StepModeAll, ApproverUsers: []string{"bob"}},
	)
	req := &model.SubmitApprovalReq{
		EntityType: "expense", EntityId: "exp-1",
		Payload:        map[string]any{"amount": 120},
		IdempotencyKey: "sub-1",
	}

	first, err := al.Submit(acFor("alice"), req)
	require.NoError(t, err)

	replay, err := al.Submit(acFor("alice"), req)
	require.NoError(t, err)
	assert.Equal(t, first.InstanceId, replay.InstanceId)
	assert.Len(t, repo.instances, 1)

	_, err = al.Submit(acFor("alice"), &model.SubmitApprovalReq{
		EntityType: "expense", EntityId: "exp-1",
		Payload:        map[string]any{"amount": 999},
		IdempotencyKey: "sub-1",
	})
	require.Error(t, err)
}

func TestDecideReplaysWithIdempotencyKey(t *testing.T) {
	al, repo := approvalHarness(t)
	makeFlow(t, al,
		model.FlowStepReq{Mode: model.StepModeAll, ApproverUsers: []string{"bob"}},
	)
	_, err := al.Submit(acFor("alice"), &model.SubmitApprovalReq{
		EntityType: "expense", EntityId: "exp-1",
	})
	require.NoError(t, err)

	taskId := pendingTaskIdFor(t, repo, "bob")
	req := &model.DecideTaskReq{Result: "approve", Comment: "ok", IdempotencyKey: "dec-1"}

	first, err := al.Decide(acFor("bob"), taskId, req)
	require.NoError(t, err)
	assert.Equal(t, model.InstanceApproved, first.Status)

	replay, err := al.Decide(acFor("bob"), taskId, req)
	require.NoError(t, err)
	assert.Equal(t, model.InstanceApproved, replay.Status)
	assert.Equal(t, 1, countRecords(repo, model.RecordApproved))

	// The canonical and past-tense verbs hash the same, so this still
	// replays rather than conflicting.
	_, err = al.Decide(acFor("bob"), taskId,
		&model.DecideTaskReq{Result: model.TaskApproved, Comment: "ok", IdempotencyKey: "dec-1"})
	require.NoError(t, err)

	_, err = al.Decide(acFor("bob"), taskId,
		&model.DecideTaskReq{Result: "approve", Comment: "changed my mind", IdempotencyKey: "dec-1"})
	require.Error(t, err)
}

func TestNormalizeDecisionVerbs(t *testing.T) {
	for _, verb := range []string{"approve", model.TaskApproved} {
		got, err := normalizeDecision(verb)
		require.NoError(t, err)
		assert.Equal(t, model.TaskApproved, got)
	}
	for _, verb := range []string{"reject", model.TaskRejected} {
		got, err := normalizeDecision(verb)
		require.NoError(t, err)
		assert.Equal(t, model.TaskRejected, got)
	}
	_, err := normalizeDecision("maybe")
	assert.Error(t, err)
}
