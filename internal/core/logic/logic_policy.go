package logic

import (
	"github.com/bytedance/sonic"
	"gorm.io/datatypes"

	"github.com/riveredge/riveredge/internal/core/model"
	"github.com/riveredge/riveredge/internal/core/policy"
	"github.com/riveredge/riveredge/internal/core/repo"
	"github.com/riveredge/riveredge/pkg/ctx"
	"github.com/riveredge/riveredge/pkg/errs"
	"github.com/riveredge/riveredge/pkg/id"
)

type PolicyLogic struct {
	policyRepo repo.IPolicyRepository
	userRepo   repo.IUserRepository
	roleRepo   repo.IRoleRepository
}

func NewPolicyLogic(policyRepo repo.IPolicyRepository, userRepo repo.IUserRepository,
	roleRepo repo.IRoleRepository) *PolicyLogic {
	return &PolicyLogic{
		policyRepo: policyRepo,
		userRepo:   userRepo,
		roleRepo:   roleRepo,
	}
}

// CreatePolicy validates the condition against the grammar before anything
// is written. An unparsable condition never reaches storage.
func (pl *PolicyLogic) CreatePolicy(ac *ctx.AuthContext, req *model.CreatePolicyReq) (*model.AccessPolicy, error) {
	if req.Name == "" {
		return nil, errs.Validationf("name is required")
	}
	if req.Effect != model.PolicyEffectAllow && req.Effect != model.PolicyEffectDeny {
		return nil, errs.Validationf("effect must be allow or deny")
	}
	if req.TargetResource == "" || req.TargetAction == "" {
		return nil, errs.Validationf("targetResource and targetAction are required")
	}

	var condition datatypes.JSON
	if req.Condition != nil {
		raw, err := sonic.Marshal(req.Condition)
		if err != nil {
			return nil, errs.Validationf("condition is not valid JSON: %v", err)
		}
		if _, err := policy.Parse(raw); err != nil {
			return nil, err
		}
		condition = raw
	}

	bindings, err := pl.resolveBindings(ac, req.Bindings)
	if err != nil {
		return nil, err
	}

	enabled := model.FlagEnabled
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	priority := req.Priority
	if priority == 0 {
		priority = 100
	}
	p := &model.AccessPolicy{
		TenantModel: model.TenantModel{
			BaseModel: model.BaseModel{ExternalId: id.ExternalId()},
			TenantId:  ac.TenantId,
		},
		Name:           req.Name,
		Effect:         req.Effect,
		Priority:       priority,
		TargetResource: req.TargetResource,
		TargetAction:   req.TargetAction,
		Condition:      condition,
		Enabled:        enabled,
	}
	if err := pl.policyRepo.CreatePolicy(p, bindings); err != nil {
		return nil, err
	}
	return p, nil
}

func (pl *PolicyLogic) resolveBindings(ac *ctx.AuthContext, reqs []model.BindSubjectTo) ([]model.PolicyBinding, error) {
	bindings := make([]model.PolicyBinding, 0, len(reqs))
	for _, b := range reqs {
		binding := model.PolicyBinding{
			TenantModel: model.TenantModel{
				BaseModel: model.BaseModel{ExternalId: id.ExternalId()},
				TenantId:  ac.TenantId,
			},
			SubjectType: b.SubjectType,
		}
		switch b.SubjectType {
		case model.SubjectTenant:
		case model.SubjectUser:
			u, err := pl.userRepo.GetUserByExternalId(ac.TenantId, b.SubjectId)
			if err != nil {
				return nil, err
			}
			binding.SubjectId = u.ID
		case model.SubjectRole:
			r, err := pl.roleRepo.GetRoleByExternalId(ac.TenantId, b.SubjectId)
			if err != nil {
				return nil, err
			}
			binding.SubjectId = r.ID
		case model.SubjectGroup:
			g, err := pl.policyRepo.GetGroupByCode(ac.TenantId, b.SubjectId)
			if err != nil {
				return nil, err
			}
			binding.SubjectId = g.ID
		default:
			return nil, errs.Validationf("unknown subject type %q", b.SubjectType)
		}
		bindings = append(bindings, binding)
	}
	return bindings, nil
}

// CreateGroup registers a user group. Groups exist to be bound to policies;
// they carry no permissions of their own.
func (pl *PolicyLogic) CreateGroup(ac *ctx.AuthContext, req *model.CreateGroupReq) (*model.Group, error) {
	if req.Code == "" || req.Name == "" {
		return nil, errs.Validationf("code and name are required")
	}
	g := &model.Group{
		TenantModel: model.TenantModel{
			BaseModel: model.BaseModel{ExternalId: id.ExternalId()},
			TenantId:  ac.TenantId,
		},
		Code: req.Code,
		Name: req.Name,
	}
	if err := pl.policyRepo.CreateGroup(g); err != nil {
		return nil, err
	}
	return g, nil
}

// AddGroupMember puts a user into a group. Membership changes which
// policies bind to the user; the repo bumps the member's version with the
// membership row.
func (pl *PolicyLogic) AddGroupMember(ac *ctx.AuthContext, groupCode, userId string) error {
	g, err := pl.policyRepo.GetGroupByCode(ac.TenantId, groupCode)
	if err != nil {
		return err
	}
	u, err := pl.userRepo.GetUserByExternalId(ac.TenantId, userId)
	if err != nil {
		return err
	}
	return pl.policyRepo.AddGroupMember(ac.TenantId, g.ID, u.ID)
}

func (pl *PolicyLogic) GetPolicy(ac *ctx.AuthContext, externalId string) (*model.PolicyResp, error) {
	p, err := pl.policyRepo.GetPolicyByExternalId(ac.TenantId, externalId)
	if err != nil {
		return nil, err
	}
	return toPolicyResp(p)
}

func (pl *PolicyLogic) ListPolicies(ac *ctx.AuthContext, offset, pageSize int) ([]model.PolicyResp, int64, error) {
	policies, count, err := pl.policyRepo.ListPolicies(ac.TenantId, offset, pageSize)
	if err != nil {
		return nil, 0, err
	}
	resp := make([]model.PolicyResp, 0, len(policies))
	for i := range policies {
		pr, err := toPolicyResp(&policies[i])
		if err != nil {
			return nil, 0, err
		}
		resp = append(resp, *pr)
	}
	return resp, count, nil
}

// SetPolicyEnabled flips a policy on or off. The repo write carries the
// tenant version bump.
func (pl *PolicyLogic) SetPolicyEnabled(ac *ctx.AuthContext, externalId string, enabled int) error {
	p, err := pl.policyRepo.GetPolicyByExternalId(ac.TenantId, externalId)
	if err != nil {
		return err
	}
	return pl.policyRepo.UpdatePolicy(ac.TenantId, p.ID, map[string]any{"enabled": enabled})
}

func (pl *PolicyLogic) DeletePolicy(ac *ctx.AuthContext, externalId string) error {
	p, err := pl.policyRepo.GetPolicyByExternalId(ac.TenantId, externalId)
	if err != nil {
		return err
	}
	return pl.policyRepo.DeletePolicy(ac.TenantId, p.ID)
}

func toPolicyResp(p *model.AccessPolicy) (*model.PolicyResp, error) {
	resp := &model.PolicyResp{
		PolicyId:       p.ExternalId,
		Name:           p.Name,
		Effect:         p.Effect,
		Priority:       p.Priority,
		TargetResource: p.TargetResource,
		TargetAction:   p.TargetAction,
		Enabled:        p.Enabled,
	}
	if len(p.Condition) > 0 {
		var cond map[string]any
		if err := sonic.Unmarshal(p.Condition, &cond); err != nil {
			return nil, errs.Wrap(err, errs.Internal, "stored condition is corrupt")
		}
		resp.Condition = cond
	}
	return resp, nil
}
