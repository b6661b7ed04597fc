package repo

import (
	"gorm.io/gorm"

	"github.com/riveredge/riveredge/pkg/cache"
	"github.com/riveredge/riveredge/pkg/database"
)

// Repositories aggregates all repositories.
type Repositories struct {
	Tenant      ITenantRepository
	SuperAdmin  ISuperAdminRepository
	User        IUserRepository
	Role        IRoleRepository
	Permission  IPermissionRepository
	Policy      IPolicyRepository
	Application IApplicationRepository
	Menu        IMenuRepository
	Approval    IApprovalRepository
}

// NewRepositories wires all repositories.
func NewRepositories(db database.IDatabase, cache cache.ICache) *Repositories {
	return &Repositories{
		Tenant:      NewTenantRepo(db),
		SuperAdmin:  NewSuperAdminRepo(db),
		User:        NewUserRepo(db, cache),
		Role:        NewRoleRepo(db),
		Permission:  NewPermissionRepo(db),
		Policy:      NewPolicyRepo(db),
		Application: NewApplicationRepo(db),
		Menu:        NewMenuRepo(db),
		Approval:    NewApprovalRepo(db),
	}
}

// tenantScope restricts a query to one tenant's live rows. Every
// tenant-owned table carries an explicit deleted_at column; soft-deleted
// rows are filtered here rather than by ORM hooks.
func tenantScope(tenantId uint64) func(tx *gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where("tenant_id = ? AND deleted_at IS NULL", tenantId)
	}
}

// liveScope filters soft-deleted rows on platform-scoped tables.
func liveScope(tx *gorm.DB) *gorm.DB {
	return tx.Where("deleted_at IS NULL")
}

func Count(tx *gorm.DB) (int64, error) {
	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func Exist(tx *gorm.DB, where interface{}) bool {
	var one interface{}
	if err := tx.Where(where).First(&one).Error; err != nil {
		return false
	}
	return true
}
