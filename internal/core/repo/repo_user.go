package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/riveredge/riveredge/internal/core/model"
	"github.com/riveredge/riveredge/pkg/cache"
	"github.com/riveredge/riveredge/pkg/database"
	"github.com/riveredge/riveredge/pkg/errs"
	"github.com/riveredge/riveredge/pkg/http"
)

type IUserRepository interface {
	AddUser(u *model.User) error
	GetUserByUsername(tenantId uint64, username string) (*model.User, error)
	GetUserByExternalId(tenantId uint64, externalId string) (*model.User, error)
	GetUserById(tenantId, id uint64) (*model.User, error)
	GetUsersByExternalIds(tenantId uint64, externalIds []string) ([]model.User, error)
	ListUsers(tenantId uint64, offset, pageSize int) ([]model.User, int64, error)
	UpdateUser(tenantId, id uint64, fields map[string]any) error
	DeleteUser(tenantId, id uint64) error
	UpdateLastLogin(tenantId, id uint64, at time.Time) error
	SetToken(ctx context.Context, userId string, token string, auth http.Auth) error
	GetToken(ctx context.Context, userId string, auth http.Auth) (string, error)
	DelToken(ctx context.Context, userId string, auth http.Auth) error
}

type UserRepo struct {
	db        database.IDatabase
	cache     cache.ICache
	userModel *model.User
}

func NewUserRepo(db database.IDatabase, cache cache.ICache) IUserRepository {
	return &UserRepo{
		db:        db,
		cache:     cache,
		userModel: &model.User{},
	}
}

func (ur *UserRepo) AddUser(u *model.User) error {
	return ur.db.Database().Create(u).Error
}

func (ur *UserRepo) GetUserByUsername(tenantId uint64, username string) (*model.User, error) {
	var u model.User
	err := ur.db.Database().Scopes(tenantScope(tenantId)).
		Where("username = ?", username).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFoundf("user not found")
	}
	return &u, err
}

func (ur *UserRepo) GetUserByExternalId(tenantId uint64, externalId string) (*model.User, error) {
	var u model.User
	err := ur.db.Database().Scopes(tenantScope(tenantId)).
		Where("external_id = ?", externalId).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFoundf("user %s not found", externalId)
	}
	return &u, err
}

func (ur *UserRepo) GetUserById(tenantId, id uint64) (*model.User, error) {
	var u model.User
	err := ur.db.Database().Scopes(tenantScope(tenantId)).
		Where("id = ?", id).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFoundf("user not found")
	}
	return &u, err
}

func (ur *UserRepo) GetUsersByExternalIds(tenantId uint64, externalIds []string) ([]model.User, error) {
	if len(externalIds) == 0 {
		return nil, nil
	}
	var users []model.User
	err := ur.db.Database().Scopes(tenantScope(tenantId)).
		Where("external_id IN ?", externalIds).
		Find(&users).Error
	return users, err
}

func (ur *UserRepo) ListUsers(tenantId uint64, offset, pageSize int) ([]model.User, int64, error) {
	var users []model.User
	tx := ur.db.Database().Model(ur.userModel).Scopes(tenantScope(tenantId))
	count, err := Count(tx.Session(&gorm.Session{}))
	if err != nil {
		return nil, 0, err
	}
	err = tx.Offset(offset).Limit(pageSize).
		Order("created_at DESC").
		Find(&users).Error
	return users, count, err
}

// UpdateUser updates mutable fields (username, password, created_at are
// managed elsewhere).
func (ur *UserRepo) UpdateUser(tenantId, id uint64, fields map[string]any) error {
	return ur.db.Database().Model(ur.userModel).
		Scopes(tenantScope(tenantId)).
		Where("id = ?", id).
		Updates(fields).Error
}

func (ur *UserRepo) DeleteUser(tenantId, id uint64) error {
	now := time.Now()
	return ur.db.Database().Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(ur.userModel).
			Scopes(tenantScope(tenantId)).
			Where("id = ?", id).
			Update("deleted_at", now).Error; err != nil {
			return err
		}
		return bumpVersion(tx, tenantId, id)
	})
}

func (ur *UserRepo) UpdateLastLogin(tenantId, id uint64, at time.Time) error {
	return ur.db.Database().Model(ur.userModel).
		Scopes(tenantScope(tenantId)).
		Where("id = ?", id).
		Update("last_login", at).Error
}

// SetToken records the live access token so the auth middleware can check
// token presence, and logout can revoke before expiry.
func (ur *UserRepo) SetToken(ctx context.Context, userId string, token string, auth http.Auth) error {
	if ur.cache == nil {
		return errs.Transientf("cache not available")
	}
	key := auth.RedisKeyPrefix + userId
	return ur.cache.Set(ctx, key, token, auth.AccessExpire*time.Minute).Err()
}

func (ur *UserRepo) GetToken(ctx context.Context, userId string, auth http.Auth) (string, error) {
	if ur.cache == nil {
		return "", errs.Transientf("cache not available")
	}
	return ur.cache.Get(ctx, auth.RedisKeyPrefix+userId).Result()
}

func (ur *UserRepo) DelToken(ctx context.Context, userId string, auth http.Auth) error {
	if ur.cache == nil {
		return nil
	}
	return ur.cache.Del(ctx, auth.RedisKeyPrefix+userId).Err()
}
