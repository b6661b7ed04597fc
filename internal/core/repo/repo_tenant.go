package repo

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/riveredge/riveredge/internal/core/model"
	"github.com/riveredge/riveredge/pkg/database"
	"github.com/riveredge/riveredge/pkg/errs"
)

type ITenantRepository interface {
	CreateTenant(t *model.Tenant) error
	GetTenantByExternalId(externalId string) (*model.Tenant, error)
	GetTenantByDomain(domain string) (*model.Tenant, error)
	GetTenantById(id uint64) (*model.Tenant, error)
	ListTenants(offset, pageSize int) ([]model.Tenant, int64, error)
	UpdateTenant(id uint64, fields map[string]any) error
	DeleteTenant(id uint64) error
	CountActiveUsers(tenantId uint64) (int64, error)
	MarkExpiredTenants(now time.Time) (int64, error)
}

type TenantRepo struct {
	db          database.IDatabase
	tenantModel *model.Tenant
}

func NewTenantRepo(db database.IDatabase) ITenantRepository {
	return &TenantRepo{
		db:          db,
		tenantModel: &model.Tenant{},
	}
}

func (tr *TenantRepo) CreateTenant(t *model.Tenant) error {
	return tr.db.Database().Create(t).Error
}

func (tr *TenantRepo) GetTenantByExternalId(externalId string) (*model.Tenant, error) {
	var t model.Tenant
	err := tr.db.Database().Scopes(liveScope).
		Where("external_id = ?", externalId).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFoundf("tenant %s not found", externalId)
	}
	return &t, err
}

func (tr *TenantRepo) GetTenantByDomain(domain string) (*model.Tenant, error) {
	var t model.Tenant
	err := tr.db.Database().Scopes(liveScope).
		Where("domain = ?", domain).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFoundf("tenant domain %s not found", domain)
	}
	return &t, err
}

func (tr *TenantRepo) GetTenantById(id uint64) (*model.Tenant, error) {
	var t model.Tenant
	err := tr.db.Database().Scopes(liveScope).
		Where("id = ?", id).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFoundf("tenant not found")
	}
	return &t, err
}

func (tr *TenantRepo) ListTenants(offset, pageSize int) ([]model.Tenant, int64, error) {
	var tenants []model.Tenant
	tx := tr.db.Database().Model(tr.tenantModel).Scopes(liveScope)
	count, err := Count(tx.Session(&gorm.Session{}))
	if err != nil {
		return nil, 0, err
	}
	err = tx.Offset(offset).Limit(pageSize).
		Order("created_at DESC").
		Find(&tenants).Error
	return tenants, count, err
}

func (tr *TenantRepo) UpdateTenant(id uint64, fields map[string]any) error {
	return tr.db.Database().Model(tr.tenantModel).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(fields).Error
}

// DeleteTenant soft-deletes the tenant row. Tenant-scoped data stays in
// place but becomes unreachable since every request resolves the tenant
// first.
func (tr *TenantRepo) DeleteTenant(id uint64) error {
	now := time.Now()
	return tr.db.Database().Model(tr.tenantModel).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", now).Error
}

func (tr *TenantRepo) CountActiveUsers(tenantId uint64) (int64, error) {
	return Count(tr.db.Database().Model(&model.User{}).Scopes(tenantScope(tenantId)))
}

// MarkExpiredTenants flips past-due active tenants to expired. Driven by the
// cron sweep.
func (tr *TenantRepo) MarkExpiredTenants(now time.Time) (int64, error) {
	result := tr.db.Database().Model(tr.tenantModel).
		Where("deleted_at IS NULL AND status = ? AND expires_at IS NOT NULL AND expires_at < ?",
			model.TenantStatusActive, now).
		Update("status", model.TenantStatusExpired)
	return result.RowsAffected, result.Error
}
