package logic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/riveredge/riveredge/internal/core/model"
	"github.com/riveredge/riveredge/pkg/ctx"
)

func mkPolicy(id uint64, effect string, priority int, resource, action, condition string) model.AccessPolicy {
	p := model.AccessPolicy{
		TenantModel: model.TenantModel{
			BaseModel: model.BaseModel{ID: id, ExternalId: "pol"},
			TenantId:  1,
		},
		Effect:         effect,
		Priority:       priority,
		TargetResource: resource,
		TargetAction:   action,
		Enabled:        model.FlagEnabled,
	}
	if condition != "" {
		p.Condition = datatypes.JSON(condition)
	}
	return p
}

func TestEvaluatePoliciesFirstPriorityWins(t *testing.T) {
	policies := []model.AccessPolicy{
		mkPolicy(1, model.PolicyEffectDeny, 10, "invoice", "delete", ""),
		mkPolicy(2, model.PolicyEffectAllow, 20, "invoice", "delete", ""),
	}
	bound := map[uint64]bool{1: true, 2: true}

	effect, matched := evaluatePolicies(policies, bound, "invoice", "delete", map[string]any{})
	require.True(t, matched)
	assert.Equal(t, model.PolicyEffectDeny, effect)
}

func TestEvaluatePoliciesDenyWinsTiedPriority(t *testing.T) {
	policies := []model.AccessPolicy{
		mkPolicy(1, model.PolicyEffectAllow, 10, "invoice", "delete", ""),
		mkPolicy(2, model.PolicyEffectDeny, 10, "invoice", "delete", ""),
	}
	bound := map[uint64]bool{1: true, 2: true}

	effect, matched := evaluatePolicies(policies, bound, "invoice", "delete", map[string]any{})
	require.True(t, matched)
	assert.Equal(t, model.PolicyEffectDeny, effect)
}

func TestEvaluatePoliciesSkipsUnboundAndMismatched(t *testing.T) {
	policies := []model.AccessPolicy{
		mkPolicy(1, model.PolicyEffectDeny, 10, "invoice", "delete", ""),
		mkPolicy(2, model.PolicyEffectDeny, 10, "report", "read", ""),
		mkPolicy(3, model.PolicyEffectAllow, 20, "invoice", "read", ""),
	}
	// Policy 1 not bound to the subject, policy 2 targets another resource.
	bound := map[uint64]bool{2: true, 3: true}

	effect, matched := evaluatePolicies(policies, bound, "invoice", "read", map[string]any{})
	require.True(t, matched)
	assert.Equal(t, model.PolicyEffectAllow, effect)
}

func TestEvaluatePoliciesWildcardTarget(t *testing.T) {
	policies := []model.AccessPolicy{
		mkPolicy(1, model.PolicyEffectDeny, 10, "*", "delete", ""),
	}
	bound := map[uint64]bool{1: true}

	effect, matched := evaluatePolicies(policies, bound, "anything", "delete", map[string]any{})
	require.True(t, matched)
	assert.Equal(t, model.PolicyEffectDeny, effect)

	_, matched = evaluatePolicies(policies, bound, "anything", "read", map[string]any{})
	assert.False(t, matched)
}

func TestEvaluatePoliciesConditionGates(t *testing.T) {
	cond := `{"gte": ["env.hour", 9]}`
	policies := []model.AccessPolicy{
		mkPolicy(1, model.PolicyEffectAllow, 10, "invoice", "approve", cond),
	}
	bound := map[uint64]bool{1: true}

	_, matched := evaluatePolicies(policies, bound, "invoice", "approve", map[string]any{"env.hour": 7})
	assert.False(t, matched)

	effect, matched := evaluatePolicies(policies, bound, "invoice", "approve", map[string]any{"env.hour": 10})
	require.True(t, matched)
	assert.Equal(t, model.PolicyEffectAllow, effect)
}

func TestBoundPolicySetSubjectResolution(t *testing.T) {
	bindings := []model.PolicyBinding{
		{PolicyId: 1, SubjectType: model.SubjectUser, SubjectId: 42},
		{PolicyId: 2, SubjectType: model.SubjectRole, SubjectId: 7},
		{PolicyId: 3, SubjectType: model.SubjectTenant},
		{PolicyId: 4, SubjectType: model.SubjectGroup, SubjectId: 9},
		{PolicyId: 5, SubjectType: model.SubjectUser, SubjectId: 99},
	}
	bound := boundPolicySet(bindings, 42, map[uint64]bool{7: true}, map[uint64]bool{9: true})

	assert.True(t, bound[1])
	assert.True(t, bound[2])
	assert.True(t, bound[3])
	assert.True(t, bound[4])
	assert.False(t, bound[5])
}

func TestDecisionEnvCarriesSubjectAndRequest(t *testing.T) {
	ac := &ctx.AuthContext{
		PrincipalClass: ctx.PrincipalUser,
		UserId:         "u-ext",
		TenantId:       3,
		IsTenantAdmin:  false,
	}
	user := &model.User{TenantModel: model.TenantModel{BaseModel: model.BaseModel{ExternalId: "u-ext"}}}
	roles := []model.Role{{Code: "auditor"}, {Code: "viewer"}}
	groups := []model.Group{{Code: "finance"}}
	now := time.Date(2026, 8, 31, 14, 30, 0, 0, time.UTC)

	env := decisionEnv(ac, user, roles, groups, "invoice", "read",
		map[string]any{"department": "eng"}, now)

	assert.Equal(t, "u-ext", env["subject.user_id"])
	assert.Equal(t, []string{"auditor", "viewer"}, env["subject.roles"])
	assert.Equal(t, []string{"finance"}, env["subject.groups"])
	assert.Equal(t, "invoice", env["request.resource"])
	assert.Equal(t, 14, env["env.hour"])
	assert.Equal(t, "eng", env["request.attrs.department"])
}

func decisionHarness() (*DecisionLogic, *fakeUserRepo, *fakePolicyRepo, *fakePermissionRepo) {
	users := &fakeUserRepo{}
	policies := newFakePolicyRepo()
	perms := newFakePermissionRepo()
	dl := NewDecisionLogic(users, newFakeRoleRepo(), policies, NewPermissionLogic(perms, nil), nil)
	return dl, users, policies, perms
}

func TestDecideDenyPolicyBeatsTenantAdmin(t *testing.T) {
	dl, users, policies, _ := decisionHarness()
	require.NoError(t, users.AddUser(&model.User{
		TenantModel: model.TenantModel{BaseModel: model.BaseModel{ID: 1, ExternalId: "u-admin"}, TenantId: 7},
		Username:    "admin",
	}))
	policies.policies = append(policies.policies, model.AccessPolicy{
		TenantModel:    model.TenantModel{BaseModel: model.BaseModel{ID: 1, ExternalId: "pol-freeze"}, TenantId: 7},
		Name:           "freeze customer deletes",
		Effect:         model.PolicyEffectDeny,
		Priority:       10,
		TargetResource: "crm.customer",
		TargetAction:   "delete",
		Enabled:        model.FlagEnabled,
	})
	policies.bindings = append(policies.bindings, model.PolicyBinding{
		TenantModel: model.TenantModel{TenantId: 7},
		PolicyId:    1,
		SubjectType: model.SubjectTenant,
	})

	ac := &ctx.AuthContext{PrincipalClass: ctx.PrincipalUser, UserId: "u-admin", TenantId: 7, IsTenantAdmin: true}

	d, err := dl.Decide(ac, "crm.customer", "delete", nil)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonPolicyDeny, d.Reason)
}

func TestDecideTenantAdminAllowsWhenNoPolicyMatches(t *testing.T) {
	dl, users, _, _ := decisionHarness()
	require.NoError(t, users.AddUser(&model.User{
		TenantModel: model.TenantModel{BaseModel: model.BaseModel{ID: 1, ExternalId: "u-admin"}, TenantId: 7},
		Username:    "admin",
	}))

	ac := &ctx.AuthContext{PrincipalClass: ctx.PrincipalUser, UserId: "u-admin", TenantId: 7, IsTenantAdmin: true}

	d, err := dl.Decide(ac, "crm.customer", "read", nil)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, ReasonTenantAdmin, d.Reason)
}
