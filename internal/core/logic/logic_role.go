package logic

import (
	"github.com/riveredge/riveredge/internal/core/model"
	"github.com/riveredge/riveredge/internal/core/repo"
	"github.com/riveredge/riveredge/pkg/ctx"
	"github.com/riveredge/riveredge/pkg/errs"
	"github.com/riveredge/riveredge/pkg/id"
	"github.com/riveredge/riveredge/pkg/log"
)

type RoleLogic struct {
	roleRepo repo.IRoleRepository
	permRepo repo.IPermissionRepository
}

func NewRoleLogic(roleRepo repo.IRoleRepository, permRepo repo.IPermissionRepository) *RoleLogic {
	return &RoleLogic{
		roleRepo: roleRepo,
		permRepo: permRepo,
	}
}

func (rl *RoleLogic) CreateRole(ac *ctx.AuthContext, req *model.CreateRoleReq) (*model.Role, error) {
	if req.Code == "" || req.Name == "" {
		return nil, errs.Validationf("code and name are required")
	}
	r := &model.Role{
		TenantModel: model.TenantModel{
			BaseModel: model.BaseModel{ExternalId: id.ExternalId()},
			TenantId:  ac.TenantId,
		},
		Code: req.Code,
		Name: req.Name,
	}
	if err := rl.roleRepo.CreateRole(r); err != nil {
		return nil, err
	}
	return r, nil
}

func (rl *RoleLogic) GetRole(ac *ctx.AuthContext, roleExternalId string) (*model.RoleResp, error) {
	r, err := rl.roleRepo.GetRoleByExternalId(ac.TenantId, roleExternalId)
	if err != nil {
		return nil, err
	}
	return &model.RoleResp{RoleId: r.ExternalId, Code: r.Code, Name: r.Name}, nil
}

func (rl *RoleLogic) ListRoles(ac *ctx.AuthContext, offset, pageSize int) ([]model.RoleResp, int64, error) {
	roles, count, err := rl.roleRepo.ListRoles(ac.TenantId, offset, pageSize)
	if err != nil {
		return nil, 0, err
	}
	resp := make([]model.RoleResp, len(roles))
	for i, r := range roles {
		resp[i] = model.RoleResp{RoleId: r.ExternalId, Code: r.Code, Name: r.Name}
	}
	return resp, count, nil
}

func (rl *RoleLogic) UpdateRole(ac *ctx.AuthContext, roleExternalId string, req *model.UpdateRoleReq) error {
	r, err := rl.roleRepo.GetRoleByExternalId(ac.TenantId, roleExternalId)
	if err != nil {
		return err
	}
	if req.Name == nil {
		return nil
	}
	return rl.roleRepo.UpdateRole(ac.TenantId, r.ID, map[string]any{"name": *req.Name})
}

// DeleteRole removes the role. The repo bumps the tenant version in the
// delete transaction, so every holder's cached decisions go stale with it.
func (rl *RoleLogic) DeleteRole(ac *ctx.AuthContext, roleExternalId string) error {
	r, err := rl.roleRepo.GetRoleByExternalId(ac.TenantId, roleExternalId)
	if err != nil {
		return err
	}
	return rl.roleRepo.DeleteRole(ac.TenantId, r.ID)
}

// SetRolePermissions replaces the role's grant set with the named
// permission codes. The swap and the tenant-wide version bump share one
// transaction.
func (rl *RoleLogic) SetRolePermissions(ac *ctx.AuthContext, roleExternalId string, permissionCodes []string) error {
	r, err := rl.roleRepo.GetRoleByExternalId(ac.TenantId, roleExternalId)
	if err != nil {
		return err
	}
	perms, err := rl.permRepo.GetPermissionsByCodes(ac.TenantId, permissionCodes)
	if err != nil {
		return err
	}
	if len(perms) != len(permissionCodes) {
		known := make(map[string]bool, len(perms))
		for _, p := range perms {
			known[p.Code] = true
		}
		for _, code := range permissionCodes {
			if !known[code] {
				return errs.NotFoundf("permission %s not found", code)
			}
		}
	}
	ids := make([]uint64, len(perms))
	for i, p := range perms {
		ids[i] = p.ID
	}
	if err := rl.roleRepo.ReplaceRolePermissions(ac.TenantId, r.ID, ids); err != nil {
		return err
	}
	log.Infow("role permissions replaced", "tenantId", ac.TenantId, "roleId", r.ExternalId, "count", len(ids))
	return nil
}

func (rl *RoleLogic) RolePermissions(ac *ctx.AuthContext, roleExternalId string) ([]model.PermissionResp, error) {
	r, err := rl.roleRepo.GetRoleByExternalId(ac.TenantId, roleExternalId)
	if err != nil {
		return nil, err
	}
	perms, err := rl.permRepo.PermissionsOfRole(ac.TenantId, r.ID)
	if err != nil {
		return nil, err
	}
	resp := make([]model.PermissionResp, len(perms))
	for i, p := range perms {
		resp[i] = model.PermissionResp{
			PermissionId: p.ExternalId,
			Code:         p.Code,
			Resource:     p.Resource,
			Action:       p.Action,
		}
	}
	return resp, nil
}
