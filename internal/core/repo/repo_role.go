package repo

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/riveredge/riveredge/internal/core/model"
	"github.com/riveredge/riveredge/pkg/database"
	"github.com/riveredge/riveredge/pkg/errs"
)

type IRoleRepository interface {
	CreateRole(r *model.Role) error
	GetRoleByExternalId(tenantId uint64, externalId string) (*model.Role, error)
	GetRoleByCode(tenantId uint64, code string) (*model.Role, error)
	GetRolesByCodes(tenantId uint64, codes []string) ([]model.Role, error)
	ListRoles(tenantId uint64, offset, pageSize int) ([]model.Role, int64, error)
	UpdateRole(tenantId, id uint64, fields map[string]any) error
	DeleteRole(tenantId, id uint64) error
	ReplaceRolePermissions(tenantId, roleId uint64, permissionIds []uint64) error
	RolesOfUser(tenantId, userId uint64) ([]model.Role, error)
	AssignRoleToUser(tenantId, userId, roleId uint64) error
	RemoveRoleFromUser(tenantId, userId, roleId uint64) error
	UserIdsWithRole(tenantId, roleId uint64) ([]uint64, error)
}

type RoleRepo struct {
	db        database.IDatabase
	roleModel *model.Role
}

func NewRoleRepo(db database.IDatabase) IRoleRepository {
	return &RoleRepo{
		db:        db,
		roleModel: &model.Role{},
	}
}

func (rr *RoleRepo) CreateRole(r *model.Role) error {
	var existing model.Role
	err := rr.db.Database().Scopes(tenantScope(r.TenantId)).
		Where("code = ?", r.Code).
		First(&existing).Error
	if err == nil {
		return errs.Conflictf("role code %s already exists", r.Code)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return rr.db.Database().Create(r).Error
}

func (rr *RoleRepo) GetRoleByExternalId(tenantId uint64, externalId string) (*model.Role, error) {
	var r model.Role
	err := rr.db.Database().Scopes(tenantScope(tenantId)).
		Where("external_id = ?", externalId).
		First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFoundf("role %s not found", externalId)
	}
	return &r, err
}

func (rr *RoleRepo) GetRoleByCode(tenantId uint64, code string) (*model.Role, error) {
	var r model.Role
	err := rr.db.Database().Scopes(tenantScope(tenantId)).
		Where("code = ?", code).
		First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFoundf("role %s not found", code)
	}
	return &r, err
}

func (rr *RoleRepo) GetRolesByCodes(tenantId uint64, codes []string) ([]model.Role, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	var roles []model.Role
	err := rr.db.Database().Scopes(tenantScope(tenantId)).
		Where("code IN ?", codes).
		Find(&roles).Error
	return roles, err
}

func (rr *RoleRepo) ListRoles(tenantId uint64, offset, pageSize int) ([]model.Role, int64, error) {
	var roles []model.Role
	tx := rr.db.Database().Model(rr.roleModel).Scopes(tenantScope(tenantId))
	count, err := Count(tx.Session(&gorm.Session{}))
	if err != nil {
		return nil, 0, err
	}
	err = tx.Offset(offset).Limit(pageSize).
		Order("created_at DESC").
		Find(&roles).Error
	return roles, count, err
}

func (rr *RoleRepo) UpdateRole(tenantId, id uint64, fields map[string]any) error {
	return rr.db.Database().Model(rr.roleModel).
		Scopes(tenantScope(tenantId)).
		Where("id = ?", id).
		Updates(fields).Error
}

// DeleteRole soft-deletes the role, drops its grant rows and bumps the
// tenant version in one transaction.
func (rr *RoleRepo) DeleteRole(tenantId, id uint64) error {
	now := time.Now()
	return rr.db.Database().Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(rr.roleModel).
			Scopes(tenantScope(tenantId)).
			Where("id = ?", id).
			Update("deleted_at", now).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.RolePermission{}).
			Scopes(tenantScope(tenantId)).
			Where("role_id = ?", id).
			Update("deleted_at", now).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.UserRole{}).
			Scopes(tenantScope(tenantId)).
			Where("role_id = ?", id).
			Update("deleted_at", now).Error; err != nil {
			return err
		}
		return bumpVersion(tx, tenantId, model.TenantWideVersion)
	})
}

// ReplaceRolePermissions swaps the role's grant set and bumps the tenant
// version atomically.
func (rr *RoleRepo) ReplaceRolePermissions(tenantId, roleId uint64, permissionIds []uint64) error {
	now := time.Now()
	return rr.db.Database().Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.RolePermission{}).
			Scopes(tenantScope(tenantId)).
			Where("role_id = ?", roleId).
			Update("deleted_at", now).Error; err != nil {
			return err
		}
		for _, pid := range permissionIds {
			grant := model.RolePermission{
				TenantModel:  model.TenantModel{TenantId: tenantId},
				RoleId:       roleId,
				PermissionId: pid,
			}
			if err := tx.Create(&grant).Error; err != nil {
				return err
			}
		}
		return bumpVersion(tx, tenantId, model.TenantWideVersion)
	})
}

func (rr *RoleRepo) RolesOfUser(tenantId, userId uint64) ([]model.Role, error) {
	var roles []model.Role
	err := rr.db.Database().Table(rr.roleModel.TableName()+" AS r").
		Select("r.*").
		Joins("INNER JOIN core_user_roles AS ur ON ur.role_id = r.id AND ur.deleted_at IS NULL").
		Where("r.tenant_id = ? AND r.deleted_at IS NULL AND ur.user_id = ?", tenantId, userId).
		Find(&roles).Error
	return roles, err
}

// AssignRoleToUser attaches the role, bumping the user's version with the
// grant row so neither lands without the other.
func (rr *RoleRepo) AssignRoleToUser(tenantId, userId, roleId uint64) error {
	var existing model.UserRole
	err := rr.db.Database().Scopes(tenantScope(tenantId)).
		Where("user_id = ? AND role_id = ?", userId, roleId).
		First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	binding := model.UserRole{
		TenantModel: model.TenantModel{TenantId: tenantId},
		UserId:      userId,
		RoleId:      roleId,
	}
	return rr.db.Database().Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&binding).Error; err != nil {
			return err
		}
		return bumpVersion(tx, tenantId, userId)
	})
}

func (rr *RoleRepo) RemoveRoleFromUser(tenantId, userId, roleId uint64) error {
	now := time.Now()
	return rr.db.Database().Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.UserRole{}).
			Scopes(tenantScope(tenantId)).
			Where("user_id = ? AND role_id = ?", userId, roleId).
			Update("deleted_at", now).Error; err != nil {
			return err
		}
		return bumpVersion(tx, tenantId, userId)
	})
}

func (rr *RoleRepo) UserIdsWithRole(tenantId, roleId uint64) ([]uint64, error) {
	var ids []uint64
	err := rr.db.Database().Model(&model.UserRole{}).
		Scopes(tenantScope(tenantId)).
		Where("role_id = ?", roleId).
		Pluck("user_id", &ids).Error
	return ids, err
}
