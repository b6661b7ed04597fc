package repo

import (
	"github.com/riveredge/riveredge/internal/core/model"
	"github.com/riveredge/riveredge/pkg/database"
)

type IMenuRepository interface {
	ListActiveMenus(tenantId uint64) ([]model.Menu, error)
	ListMenusByApplication(tenantId uint64, appCode string) ([]model.Menu, error)
}

type MenuRepo struct {
	db        database.IDatabase
	menuModel *model.Menu
}

func NewMenuRepo(db database.IDatabase) IMenuRepository {
	return &MenuRepo{
		db:        db,
		menuModel: &model.Menu{},
	}
}

// ListActiveMenus returns every live, active menu row for the tenant.
// Permission filtering and tree assembly happen in the logic layer.
func (mr *MenuRepo) ListActiveMenus(tenantId uint64) ([]model.Menu, error) {
	var menus []model.Menu
	err := mr.db.Database().Scopes(tenantScope(tenantId)).
		Where("is_active = ?", model.FlagEnabled).
		Order("sort_order ASC, id ASC").
		Find(&menus).Error
	return menus, err
}

func (mr *MenuRepo) ListMenusByApplication(tenantId uint64, appCode string) ([]model.Menu, error) {
	var menus []model.Menu
	err := mr.db.Database().Scopes(tenantScope(tenantId)).
		Where("application_code = ?", appCode).
		Order("sort_order ASC, id ASC").
		Find(&menus).Error
	return menus, err
}
