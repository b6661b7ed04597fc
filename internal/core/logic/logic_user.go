package logic

import (
	"github.com/riveredge/riveredge/internal/core/model"
	"github.com/riveredge/riveredge/internal/core/repo"
	"github.com/riveredge/riveredge/pkg/ctx"
	"github.com/riveredge/riveredge/pkg/errs"
	"github.com/riveredge/riveredge/pkg/http"
	"github.com/riveredge/riveredge/pkg/id"
	"github.com/riveredge/riveredge/pkg/log"
)

type UserLogic struct {
	userRepo   repo.IUserRepository
	roleRepo   repo.IRoleRepository
	tenantRepo repo.ITenantRepository
	permLogic  *PermissionLogic
	auth       http.Auth
}

func NewUserLogic(userRepo repo.IUserRepository, roleRepo repo.IRoleRepository,
	tenantRepo repo.ITenantRepository, permLogic *PermissionLogic, auth http.Auth) *UserLogic {
	return &UserLogic{
		userRepo:   userRepo,
		roleRepo:   roleRepo,
		tenantRepo: tenantRepo,
		permLogic:  permLogic,
		auth:       auth,
	}
}

// AddUser creates a user within the caller's tenant, honoring the tenant's
// seat cap.
func (ul *UserLogic) AddUser(ac *ctx.AuthContext, req *model.AddUserReq) (*model.User, error) {
	if req.Username == "" {
		return nil, errs.Validationf("username is required")
	}
	if err := ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	tenant, err := ul.tenantRepo.GetTenantById(ac.TenantId)
	if err != nil {
		return nil, err
	}
	if tenant.MaxUsers > 0 {
		n, err := ul.tenantRepo.CountActiveUsers(ac.TenantId)
		if err != nil {
			return nil, err
		}
		if n >= int64(tenant.MaxUsers) {
			return nil, errs.BusinessRulef("tenant user limit (%d) reached", tenant.MaxUsers).
				WithReason("user_limit_reached")
		}
	}

	if _, err := ul.userRepo.GetUserByUsername(ac.TenantId, req.Username); err == nil {
		return nil, errs.Conflictf("username %s already exists", req.Username)
	}

	hash, err := HashPassword(req.Password, ul.auth.BcryptCost)
	if err != nil {
		return nil, errs.Wrap(err, errs.Internal, "password hash failed")
	}

	isAdmin := 0
	if req.IsTenantAdmin != nil {
		isAdmin = *req.IsTenantAdmin
	}
	u := &model.User{
		TenantModel: model.TenantModel{
			BaseModel: model.BaseModel{ExternalId: id.ExternalId()},
			TenantId:  ac.TenantId,
		},
		Username:      req.Username,
		Email:         req.Email,
		Password:      hash,
		IsTenantAdmin: isAdmin,
	}
	if err := ul.userRepo.AddUser(u); err != nil {
		return nil, err
	}
	log.Infow("user created", "tenantId", ac.TenantId, "userId", u.ExternalId)
	return u, nil
}

func (ul *UserLogic) GetUser(ac *ctx.AuthContext, userExternalId string) (*model.UserInfo, error) {
	u, err := ul.userRepo.GetUserByExternalId(ac.TenantId, userExternalId)
	if err != nil {
		return nil, err
	}
	return toUserInfo(u), nil
}

func (ul *UserLogic) ListUsers(ac *ctx.AuthContext, offset, pageSize int) ([]model.UserInfo, int64, error) {
	users, count, err := ul.userRepo.ListUsers(ac.TenantId, offset, pageSize)
	if err != nil {
		return nil, 0, err
	}
	infos := make([]model.UserInfo, len(users))
	for i := range users {
		infos[i] = *toUserInfo(&users[i])
	}
	return infos, count, nil
}

func (ul *UserLogic) UpdateUser(ac *ctx.AuthContext, userExternalId string, req *model.UpdateUserReq) error {
	u, err := ul.userRepo.GetUserByExternalId(ac.TenantId, userExternalId)
	if err != nil {
		return err
	}
	fields := map[string]any{}
	if req.Email != nil {
		fields["email"] = *req.Email
	}
	if req.IsTenantAdmin != nil {
		fields["is_tenant_admin"] = *req.IsTenantAdmin
	}
	if len(fields) == 0 {
		return nil
	}
	if err := ul.userRepo.UpdateUser(ac.TenantId, u.ID, fields); err != nil {
		return err
	}
	if req.IsTenantAdmin != nil {
		ul.permLogic.InvalidateUser(ac.TenantId, u.ID)
	}
	return nil
}

func (ul *UserLogic) DeleteUser(ac *ctx.AuthContext, userExternalId string) error {
	u, err := ul.userRepo.GetUserByExternalId(ac.TenantId, userExternalId)
	if err != nil {
		return err
	}
	if u.ExternalId == ac.UserId {
		return errs.BusinessRulef("cannot delete the current account")
	}
	return ul.userRepo.DeleteUser(ac.TenantId, u.ID)
}

// AssignRoles attaches roles (by external id) to a user. Each assignment
// bumps the user's authorization version inside the repo write.
func (ul *UserLogic) AssignRoles(ac *ctx.AuthContext, userExternalId string, roleExternalIds []string) error {
	u, err := ul.userRepo.GetUserByExternalId(ac.TenantId, userExternalId)
	if err != nil {
		return err
	}
	for _, rid := range roleExternalIds {
		role, err := ul.roleRepo.GetRoleByExternalId(ac.TenantId, rid)
		if err != nil {
			return err
		}
		if err := ul.roleRepo.AssignRoleToUser(ac.TenantId, u.ID, role.ID); err != nil {
			return err
		}
	}
	return nil
}

func (ul *UserLogic) RemoveRole(ac *ctx.AuthContext, userExternalId, roleExternalId string) error {
	u, err := ul.userRepo.GetUserByExternalId(ac.TenantId, userExternalId)
	if err != nil {
		return err
	}
	role, err := ul.roleRepo.GetRoleByExternalId(ac.TenantId, roleExternalId)
	if err != nil {
		return err
	}
	return ul.roleRepo.RemoveRoleFromUser(ac.TenantId, u.ID, role.ID)
}

func toUserInfo(u *model.User) *model.UserInfo {
	return &model.UserInfo{
		UserId:        u.ExternalId,
		Username:      u.Username,
		Email:         u.Email,
		IsTenantAdmin: u.IsTenantAdmin == model.FlagEnabled,
		LastLogin:     u.LastLogin,
	}
}
