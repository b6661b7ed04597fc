package logic

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/riveredge/riveredge/internal/core/consts"
	"github.com/riveredge/riveredge/internal/core/model"
	"github.com/riveredge/riveredge/internal/core/policy"
	"github.com/riveredge/riveredge/internal/core/repo"
	"github.com/riveredge/riveredge/pkg/cache"
	"github.com/riveredge/riveredge/pkg/ctx"
	"github.com/riveredge/riveredge/pkg/log"
)

// Decision reasons, surfaced in responses and logs.
const (
	ReasonSuperAdmin  = "superadmin"
	ReasonTenantAdmin = "tenant_admin"
	ReasonPolicyAllow = "policy_allow"
	ReasonPolicyDeny  = "policy_deny"
	ReasonRbacAllow   = "rbac_allow"
	ReasonNoGrant     = "no_grant"
)

// decisionTTL bounds in-process decision cache staleness. The key embeds the
// authorization version, so grant changes rotate the key immediately.
const decisionTTL = 60 * time.Second

var decisionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "riveredge",
	Subsystem: "decision",
	Name:      "total",
	Help:      "Access decisions by reason.",
}, []string{"reason"})

// Decision is the outcome of one access check. Required names the grant
// that would have satisfied the check when nothing did.
type Decision struct {
	Allowed  bool     `json:"allowed"`
	Reason   string   `json:"reason"`
	Required []string `json:"required,omitempty"`
}

type DecisionLogic struct {
	userRepo   repo.IUserRepository
	roleRepo   repo.IRoleRepository
	policyRepo repo.IPolicyRepository
	permLogic  *PermissionLogic
	local      *cache.LocalCache
}

func NewDecisionLogic(userRepo repo.IUserRepository, roleRepo repo.IRoleRepository,
	policyRepo repo.IPolicyRepository, permLogic *PermissionLogic, local *cache.LocalCache) *DecisionLogic {
	return &DecisionLogic{
		userRepo:   userRepo,
		roleRepo:   roleRepo,
		policyRepo: policyRepo,
		permLogic:  permLogic,
		local:      local,
	}
}

// Decide runs the access check: superadmin short-circuit, then subject-bound
// policies in priority order, then the tenant-admin allow, then the RBAC
// grant set. A matching deny policy beats the tenant-admin allow; absence of
// any grant denies.
func (dl *DecisionLogic) Decide(ac *ctx.AuthContext, resource, action string, attrs map[string]any) (Decision, error) {
	if ac.IsSuperAdmin() {
		return counted(Decision{Allowed: true, Reason: ReasonSuperAdmin}), nil
	}

	user, err := dl.userRepo.GetUserByExternalId(ac.TenantId, ac.UserId)
	if err != nil {
		return Decision{Allowed: false, Reason: ReasonNoGrant}, err
	}

	version, err := dl.permLogic.Version(ac.TenantId, user.ID)
	if err != nil {
		return Decision{}, err
	}

	// Request attributes vary per call and would poison a keyed cache, so
	// only attribute-free checks are cached.
	cacheable := len(attrs) == 0 && dl.local != nil
	// ClientIp participates in the key because env.ip is visible to policy
	// conditions.
	cacheKey := fmt.Sprintf("%s%d:%d:%s:%s:%s:%d", consts.CacheKeyDecision, ac.TenantId, user.ID, resource, action, ac.ClientIp, version)
	if cacheable {
		if buf, ok := dl.local.Get(cacheKey); ok && len(buf) > 1 {
			return counted(withRequired(Decision{Allowed: buf[0] == 1, Reason: string(buf[1:])}, resource, action)), nil
		}
	}

	decision, err := dl.decide(ac, user, resource, action, attrs)
	if err != nil {
		return Decision{}, err
	}

	if cacheable {
		buf := make([]byte, 1+len(decision.Reason))
		if decision.Allowed {
			buf[0] = 1
		}
		copy(buf[1:], decision.Reason)
		dl.local.Set(cacheKey, buf, decisionTTL)
	}
	return counted(withRequired(decision, resource, action)), nil
}

func counted(d Decision) Decision {
	decisionTotal.WithLabelValues(d.Reason).Inc()
	return d
}

func withRequired(d Decision, resource, action string) Decision {
	if !d.Allowed && d.Reason == ReasonNoGrant {
		d.Required = []string{resource + ":" + action}
	}
	return d
}

func (dl *DecisionLogic) decide(ac *ctx.AuthContext, user *model.User, resource, action string, attrs map[string]any) (Decision, error) {
	roles, err := dl.roleRepo.RolesOfUser(ac.TenantId, user.ID)
	if err != nil {
		return Decision{}, err
	}
	groups, err := dl.policyRepo.GroupsOfUser(ac.TenantId, user.ID)
	if err != nil {
		return Decision{}, err
	}

	policies, err := dl.policyRepo.ListEnabledPolicies(ac.TenantId)
	if err != nil {
		return Decision{}, err
	}

	if len(policies) > 0 {
		policyIds := make([]uint64, len(policies))
		for i, p := range policies {
			policyIds[i] = p.ID
		}
		bindings, err := dl.policyRepo.BindingsOfPolicies(ac.TenantId, policyIds)
		if err != nil {
			return Decision{}, err
		}

		roleIdSet := make(map[uint64]bool, len(roles))
		for _, r := range roles {
			roleIdSet[r.ID] = true
		}
		groupIdSet := make(map[uint64]bool, len(groups))
		for _, g := range groups {
			groupIdSet[g.ID] = true
		}
		bound := boundPolicySet(bindings, user.ID, roleIdSet, groupIdSet)

		env := decisionEnv(ac, user, roles, groups, resource, action, attrs, time.Now())
		if effect, matched := evaluatePolicies(policies, bound, resource, action, env); matched {
			if effect == model.PolicyEffectDeny {
				log.Debugw("access denied by policy", "tenantId", ac.TenantId, "userId", ac.UserId,
					"resource", resource, "action", action)
				return Decision{Allowed: false, Reason: ReasonPolicyDeny}, nil
			}
			return Decision{Allowed: true, Reason: ReasonPolicyAllow}, nil
		}
	}

	// The tenant-admin allow sits below policy evaluation so an explicit
	// deny policy can override it.
	if ac.IsTenantAdmin {
		return Decision{Allowed: true, Reason: ReasonTenantAdmin}, nil
	}

	permSet, _, err := dl.permLogic.EffectivePermissions(ac.TenantId, user.ID)
	if err != nil {
		return Decision{}, err
	}
	if permSet[resource+":"+action] || permSet[resource+":*"] || permSet["*:*"] {
		return Decision{Allowed: true, Reason: ReasonRbacAllow}, nil
	}
	return Decision{Allowed: false, Reason: ReasonNoGrant}, nil
}

// boundPolicySet resolves which policies apply to the subject: bound to the
// user directly, to one of its roles or groups, or tenant-wide.
func boundPolicySet(bindings []model.PolicyBinding, userId uint64,
	roleIds, groupIds map[uint64]bool) map[uint64]bool {
	bound := make(map[uint64]bool)
	for _, b := range bindings {
		switch b.SubjectType {
		case model.SubjectTenant:
			bound[b.PolicyId] = true
		case model.SubjectUser:
			if b.SubjectId == userId {
				bound[b.PolicyId] = true
			}
		case model.SubjectRole:
			if roleIds[b.SubjectId] {
				bound[b.PolicyId] = true
			}
		case model.SubjectGroup:
			if groupIds[b.SubjectId] {
				bound[b.PolicyId] = true
			}
		}
	}
	return bound
}

// evaluatePolicies walks policies in priority order and returns the
// deciding effect. All matches at the winning (lowest) priority are
// considered together and deny wins a tie.
func evaluatePolicies(policies []model.AccessPolicy, bound map[uint64]bool,
	resource, action string, env map[string]any) (string, bool) {

	winning := -1
	effect := ""
	for _, p := range policies {
		if winning >= 0 && p.Priority > winning {
			break
		}
		if !bound[p.ID] {
			continue
		}
		if !targetMatches(p.TargetResource, resource) || !targetMatches(p.TargetAction, action) {
			continue
		}
		cond, err := policy.Parse(p.Condition)
		if err != nil {
			// Validated at write time; a parse failure here means corrupt
			// storage. Skip rather than fail open or closed on it.
			log.Errorw("stored policy condition failed to parse", "policyId", p.ExternalId, "error", err)
			continue
		}
		if !cond.Eval(env) {
			continue
		}
		if winning < 0 {
			winning = p.Priority
			effect = p.Effect
		}
		if p.Effect == model.PolicyEffectDeny {
			effect = model.PolicyEffectDeny
		}
	}
	return effect, winning >= 0
}

func targetMatches(target, value string) bool {
	return target == model.TargetWildcard || target == value
}

// decisionEnv assembles the attribute map the condition grammar evaluates
// against.
func decisionEnv(ac *ctx.AuthContext, user *model.User, roles []model.Role, groups []model.Group,
	resource, action string, attrs map[string]any, now time.Time) map[string]any {

	roleCodes := make([]string, len(roles))
	for i, r := range roles {
		roleCodes[i] = r.Code
	}
	groupCodes := make([]string, len(groups))
	for i, g := range groups {
		groupCodes[i] = g.Code
	}
	env := map[string]any{
		"subject.user_id":         user.ExternalId,
		"subject.tenant_id":       ac.TenantId,
		"subject.is_tenant_admin": ac.IsTenantAdmin,
		"subject.roles":           roleCodes,
		"subject.groups":          groupCodes,
		"request.resource":        resource,
		"request.action":          action,
		"env.hour":                now.Hour(),
		"env.weekday":             int(now.Weekday()),
		"env.ip":                  ac.ClientIp,
	}
	for k, v := range attrs {
		env["request.attrs."+k] = v
	}
	return env
}
