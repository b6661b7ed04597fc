package logic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riveredge/riveredge/internal/core/model"
)

func tasks(statuses ...string) []model.ApprovalTask {
	out := make([]model.ApprovalTask, len(statuses))
	for i, s := range statuses {
		out[i] = model.ApprovalTask{
			TenantModel: model.TenantModel{BaseModel: model.BaseModel{ID: uint64(i + 1)}},
			Status:      s,
		}
	}
	return out
}

func TestStepOutcomeAllMode(t *testing.T) {
	assert.Equal(t, stepPending, stepOutcome(model.StepModeAll,
		tasks(model.TaskApproved, model.TaskPending)))
	assert.Equal(t, stepApproved, stepOutcome(model.StepModeAll,
		tasks(model.TaskApproved, model.TaskApproved)))
	assert.Equal(t, stepRejected, stepOutcome(model.StepModeAll,
		tasks(model.TaskApproved, model.TaskRejected, model.TaskPending)))
	assert.Equal(t, stepRejected, stepOutcome(model.StepModeAll,
		tasks(model.TaskApproved, model.TaskExpired)))
}

func TestStepOutcomeAnyMode(t *testing.T) {
	assert.Equal(t, stepApproved, stepOutcome(model.StepModeAny,
		tasks(model.TaskRejected, model.TaskApproved, model.TaskPending)))
	assert.Equal(t, stepPending, stepOutcome(model.StepModeAny,
		tasks(model.TaskRejected, model.TaskPending)))
	assert.Equal(t, stepRejected, stepOutcome(model.StepModeAny,
		tasks(model.TaskRejected, model.TaskExpired)))
}

func TestStepOutcomeSequentialMode(t *testing.T) {
	assert.Equal(t, stepPending, stepOutcome(model.StepModeSequential,
		tasks(model.TaskApproved, model.TaskPending, model.TaskPending)))
	assert.Equal(t, stepApproved, stepOutcome(model.StepModeSequential,
		tasks(model.TaskApproved, model.TaskApproved)))
	assert.Equal(t, stepRejected, stepOutcome(model.StepModeSequential,
		tasks(model.TaskApproved, model.TaskRejected, model.TaskPending)))
}

func TestPriorApprovedGatesSequentialTurn(t *testing.T) {
	ts := tasks(model.TaskApproved, model.TaskPending, model.TaskPending)

	// Task 2 is next in line; task 3 must wait for it.
	assert.True(t, priorApproved(ts, ts[1].ID))
	assert.False(t, priorApproved(ts, ts[2].ID))
}

func TestStepAppliesPrecondition(t *testing.T) {
	step := &model.ApprovalFlowStep{Precondition: `amount > 10000`}

	ok, err := stepApplies(step, map[string]any{"amount": 50000})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = stepApplies(step, map[string]any{"amount": 500})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStepAppliesEmptyPrecondition(t *testing.T) {
	ok, err := stepApplies(&model.ApprovalFlowStep{}, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStepAppliesMissingVariable(t *testing.T) {
	step := &model.ApprovalFlowStep{Precondition: `amount > 10000`}
	_, err := stepApplies(step, map[string]any{})
	assert.Error(t, err)
}

func TestHashPayloadStable(t *testing.T) {
	a := hashPayload([]byte(`{"amount":1}`))
	b := hashPayload([]byte(`{"amount":1}`))
	c := hashPayload([]byte(`{"amount":2}`))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
