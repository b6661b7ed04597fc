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

type IApplicationRepository interface {
	UpsertDefinition(def *model.ApplicationDefinition) error
	GetDefinitionByCode(code string) (*model.ApplicationDefinition, error)
	ListDefinitions() ([]model.ApplicationDefinition, error)
	GetInstallation(tenantId uint64, appCode string) (*model.ApplicationInstallation, error)
	ListInstallations(tenantId uint64) ([]model.ApplicationInstallation, error)
	Install(inst *model.ApplicationInstallation, menus []model.Menu) error
	SetInstallationActive(tenantId uint64, appCode string, active int) error
	Uninstall(tenantId uint64, appCode string) error
}

type ApplicationRepo struct {
	db       database.IDatabase
	defModel *model.ApplicationDefinition
}

func NewApplicationRepo(db database.IDatabase) IApplicationRepository {
	return &ApplicationRepo{
		db:       db,
		defModel: &model.ApplicationDefinition{},
	}
}

// UpsertDefinition writes a catalog entry keyed by code. Manifest rescans
// update name, version and projection fields in place.
func (ar *ApplicationRepo) UpsertDefinition(def *model.ApplicationDefinition) error {
	return ar.db.Database().Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "version", "icon", "route_path", "entry_point",
			"menu_tree", "declared_permissions", "updated_at",
		}),
	}).Create(def).Error
}

func (ar *ApplicationRepo) GetDefinitionByCode(code string) (*model.ApplicationDefinition, error) {
	var def model.ApplicationDefinition
	err := ar.db.Database().Scopes(liveScope).
		Where("code = ?", code).
		First(&def).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFoundf("application %s not found", code)
	}
	return &def, err
}

func (ar *ApplicationRepo) ListDefinitions() ([]model.ApplicationDefinition, error) {
	var defs []model.ApplicationDefinition
	err := ar.db.Database().Scopes(liveScope).
		Order("code ASC").
		Find(&defs).Error
	return defs, err
}

func (ar *ApplicationRepo) GetInstallation(tenantId uint64, appCode string) (*model.ApplicationInstallation, error) {
	var inst model.ApplicationInstallation
	err := ar.db.Database().Scopes(tenantScope(tenantId)).
		Where("application_code = ?", appCode).
		First(&inst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFoundf("application %s is not installed", appCode)
	}
	return &inst, err
}

func (ar *ApplicationRepo) ListInstallations(tenantId uint64) ([]model.ApplicationInstallation, error) {
	var insts []model.ApplicationInstallation
	err := ar.db.Database().Scopes(tenantScope(tenantId)).
		Find(&insts).Error
	return insts, err
}

// Install writes the installation row and the projected menu rows in one
// transaction. A failure anywhere rolls back the whole install.
func (ar *ApplicationRepo) Install(inst *model.ApplicationInstallation, menus []model.Menu) error {
	return ar.db.Database().Transaction(func(tx *gorm.DB) error {
		var existing model.ApplicationInstallation
		err := tx.Scopes(tenantScope(inst.TenantId)).
			Where("application_code = ?", inst.ApplicationCode).
			First(&existing).Error
		if err == nil {
			return errs.Conflictf("application %s already installed", inst.ApplicationCode)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := tx.Create(inst).Error; err != nil {
			return err
		}
		for i := range menus {
			menus[i].TenantId = inst.TenantId
			if err := tx.Create(&menus[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SetInstallationActive flips the installation flag and cascades it to the
// application's menus in the same transaction.
func (ar *ApplicationRepo) SetInstallationActive(tenantId uint64, appCode string, active int) error {
	return ar.db.Database().Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.ApplicationInstallation{}).
			Scopes(tenantScope(tenantId)).
			Where("application_code = ?", appCode).
			Update("is_active", active)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errs.NotFoundf("application %s is not installed", appCode)
		}
		return tx.Model(&model.Menu{}).
			Scopes(tenantScope(tenantId)).
			Where("application_code = ?", appCode).
			Update("is_active", active).Error
	})
}

// Uninstall soft-deletes the installation and its menus together.
func (ar *ApplicationRepo) Uninstall(tenantId uint64, appCode string) error {
	now := time.Now()
	return ar.db.Database().Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.ApplicationInstallation{}).
			Scopes(tenantScope(tenantId)).
			Where("application_code = ?", appCode).
			Update("deleted_at", now)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errs.NotFoundf("application %s is not installed", appCode)
		}
		return tx.Model(&model.Menu{}).
			Scopes(tenantScope(tenantId)).
			Where("application_code = ?", appCode).
			Update("deleted_at", now).Error
	})
}
