package repo

import (
	"errors"

	"gorm.io/gorm"

	"github.com/riveredge/riveredge/internal/core/model"
	"github.com/riveredge/riveredge/pkg/database"
	"github.com/riveredge/riveredge/pkg/errs"
)

type ISuperAdminRepository interface {
	GetSuperAdmin() (*model.PlatformSuperAdmin, error)
	GetSuperAdminByUsername(username string) (*model.PlatformSuperAdmin, error)
	CreateSuperAdmin(sa *model.PlatformSuperAdmin) error
	ResetPassword(id uint64, passwordHash string) error
}

type SuperAdminRepo struct {
	db database.IDatabase
}

func NewSuperAdminRepo(db database.IDatabase) ISuperAdminRepository {
	return &SuperAdminRepo{db: db}
}

func (sr *SuperAdminRepo) GetSuperAdmin() (*model.PlatformSuperAdmin, error) {
	var sa model.PlatformSuperAdmin
	err := sr.db.Database().Scopes(liveScope).First(&sa).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFoundf("superadmin not provisioned")
	}
	return &sa, err
}

func (sr *SuperAdminRepo) GetSuperAdminByUsername(username string) (*model.PlatformSuperAdmin, error) {
	var sa model.PlatformSuperAdmin
	err := sr.db.Database().Scopes(liveScope).
		Where("username = ?", username).
		First(&sa).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFoundf("superadmin not found")
	}
	return &sa, err
}

// CreateSuperAdmin provisions the singleton account. The unique index on the
// singleton column turns a second create into a conflict.
func (sr *SuperAdminRepo) CreateSuperAdmin(sa *model.PlatformSuperAdmin) error {
	sa.Singleton = 1
	err := sr.db.Database().Create(sa).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return errs.Conflictf("superadmin already provisioned")
	}
	return err
}

func (sr *SuperAdminRepo) ResetPassword(id uint64, passwordHash string) error {
	return sr.db.Database().Model(&model.PlatformSuperAdmin{}).
		Where("id = ?", id).
		Update("password", passwordHash).Error
}
