package repo

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/riveredge/riveredge/internal/core/model"
	"github.com/riveredge/riveredge/pkg/database"
	"github.com/riveredge/riveredge/pkg/errs"
)

type IPermissionRepository interface {
	CreatePermission(p *model.Permission) error
	GetPermissionByCode(tenantId uint64, code string) (*model.Permission, error)
	GetPermissionsByCodes(tenantId uint64, codes []string) ([]model.Permission, error)
	ListPermissions(tenantId uint64, offset, pageSize int) ([]model.Permission, int64, error)
	DeletePermission(tenantId, id uint64) error
	PermissionCodesOfUser(tenantId, userId uint64) ([]string, error)
	PermissionsOfRole(tenantId, roleId uint64) ([]model.Permission, error)
	GetVersion(tenantId, userId uint64) (uint64, error)
	BumpVersion(tenantId, userId uint64) error
	UpsertPermissions(tenantId uint64, perms []model.Permission) error
}

type PermissionRepo struct {
	db        database.IDatabase
	permModel *model.Permission
}

func NewPermissionRepo(db database.IDatabase) IPermissionRepository {
	return &PermissionRepo{
		db:        db,
		permModel: &model.Permission{},
	}
}

func (pr *PermissionRepo) CreatePermission(p *model.Permission) error {
	var existing model.Permission
	err := pr.db.Database().Scopes(tenantScope(p.TenantId)).
		Where("code = ?", p.Code).
		First(&existing).Error
	if err == nil {
		return errs.Conflictf("permission %s already exists", p.Code)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return pr.db.Database().Create(p).Error
}

func (pr *PermissionRepo) GetPermissionByCode(tenantId uint64, code string) (*model.Permission, error) {
	var p model.Permission
	err := pr.db.Database().Scopes(tenantScope(tenantId)).
		Where("code = ?", code).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFoundf("permission %s not found", code)
	}
	return &p, err
}

func (pr *PermissionRepo) GetPermissionsByCodes(tenantId uint64, codes []string) ([]model.Permission, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	var perms []model.Permission
	err := pr.db.Database().Scopes(tenantScope(tenantId)).
		Where("code IN ?", codes).
		Find(&perms).Error
	return perms, err
}

func (pr *PermissionRepo) ListPermissions(tenantId uint64, offset, pageSize int) ([]model.Permission, int64, error) {
	var perms []model.Permission
	tx := pr.db.Database().Model(pr.permModel).Scopes(tenantScope(tenantId))
	count, err := Count(tx.Session(&gorm.Session{}))
	if err != nil {
		return nil, 0, err
	}
	err = tx.Offset(offset).Limit(pageSize).
		Order("code ASC").
		Find(&perms).Error
	return perms, count, err
}

// DeletePermission drops the definition and its grant rows, bumping the
// tenant version in the same transaction.
func (pr *PermissionRepo) DeletePermission(tenantId, id uint64) error {
	now := time.Now()
	return pr.db.Database().Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(pr.permModel).
			Scopes(tenantScope(tenantId)).
			Where("id = ?", id).
			Update("deleted_at", now).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.RolePermission{}).
			Scopes(tenantScope(tenantId)).
			Where("permission_id = ?", id).
			Update("deleted_at", now).Error; err != nil {
			return err
		}
		return bumpVersion(tx, tenantId, model.TenantWideVersion)
	})
}

// PermissionCodesOfUser resolves the effective permission set: the union of
// all permissions granted through the user's roles.
func (pr *PermissionRepo) PermissionCodesOfUser(tenantId, userId uint64) ([]string, error) {
	var codes []string
	err := pr.db.Database().Table(pr.permModel.TableName()+" AS p").
		Distinct("p.code").
		Joins("INNER JOIN core_role_permissions AS rp ON rp.permission_id = p.id AND rp.deleted_at IS NULL").
		Joins("INNER JOIN core_user_roles AS ur ON ur.role_id = rp.role_id AND ur.deleted_at IS NULL").
		Where("p.tenant_id = ? AND p.deleted_at IS NULL AND ur.user_id = ?", tenantId, userId).
		Pluck("p.code", &codes).Error
	return codes, err
}

func (pr *PermissionRepo) PermissionsOfRole(tenantId, roleId uint64) ([]model.Permission, error) {
	var perms []model.Permission
	err := pr.db.Database().Table(pr.permModel.TableName()+" AS p").
		Select("p.*").
		Joins("INNER JOIN core_role_permissions AS rp ON rp.permission_id = p.id AND rp.deleted_at IS NULL").
		Where("p.tenant_id = ? AND p.deleted_at IS NULL AND rp.role_id = ?", tenantId, roleId).
		Find(&perms).Error
	return perms, err
}

// GetVersion reads the authorization version counter. A missing row is
// version 0; the first bump creates it.
func (pr *PermissionRepo) GetVersion(tenantId, userId uint64) (uint64, error) {
	var pv model.PermissionVersion
	err := pr.db.Database().
		Where("tenant_id = ? AND user_id = ?", tenantId, userId).
		First(&pv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	return pv.Version, err
}

// bumpVersion increments the counter via upsert. Grant-affecting repo
// writes call it on their own transaction handle so the grant change and
// the bump commit or roll back together.
func bumpVersion(tx *gorm.DB, tenantId, userId uint64) error {
	pv := model.PermissionVersion{
		TenantId: tenantId,
		UserId:   userId,
		Version:  1,
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"version": gorm.Expr("version + 1")}),
	}).Create(&pv).Error
}

// BumpVersion increments the counter outside any grant write. Used for
// invalidations that have no surrounding transaction of their own.
func (pr *PermissionRepo) BumpVersion(tenantId, userId uint64) error {
	return bumpVersion(pr.db.Database(), tenantId, userId)
}

// UpsertPermissions creates any missing permission definitions, leaving
// existing ones untouched. Used when application manifests declare
// permissions at install time.
func (pr *PermissionRepo) UpsertPermissions(tenantId uint64, perms []model.Permission) error {
	return pr.db.Database().Transaction(func(tx *gorm.DB) error {
		for i := range perms {
			var existing model.Permission
			err := tx.Scopes(tenantScope(tenantId)).
				Where("code = ?", perms[i].Code).
				First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			perms[i].TenantId = tenantId
			if err := tx.Create(&perms[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
