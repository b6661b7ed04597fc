package logic

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/riveredge/riveredge/internal/core/model"
	"github.com/riveredge/riveredge/internal/core/repo"
	"github.com/riveredge/riveredge/pkg/errs"
	"github.com/riveredge/riveredge/pkg/http"
	"github.com/riveredge/riveredge/pkg/http/jwt"
	"github.com/riveredge/riveredge/pkg/log"
)

// dummyHash keeps the bcrypt cost constant on the unknown-user path so login
// timing does not reveal whether a username exists.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

const (
	passwordMinLen = 8
	passwordMaxLen = 1024
)

type AuthLogic struct {
	tenantRepo     repo.ITenantRepository
	superAdminRepo repo.ISuperAdminRepository
	userRepo       repo.IUserRepository
}

func NewAuthLogic(tenantRepo repo.ITenantRepository, superAdminRepo repo.ISuperAdminRepository,
	userRepo repo.IUserRepository) *AuthLogic {
	return &AuthLogic{
		tenantRepo:     tenantRepo,
		superAdminRepo: superAdminRepo,
		userRepo:       userRepo,
	}
}

// Login authenticates a tenant user. The tenant is resolved by domain first;
// suspended and expired tenants refuse logins outright.
func (al *AuthLogic) Login(ctx context.Context, login *model.LoginReq, auth http.Auth) (*model.LoginResp, error) {
	if err := ValidatePassword(login.Password); err != nil {
		return nil, errs.Unauthorizedf("incorrect username or password")
	}

	tenant, err := al.tenantRepo.GetTenantByDomain(login.TenantDomain)
	if err != nil {
		bcryptDummy(login.Password)
		return nil, errs.Unauthorizedf("incorrect username or password")
	}
	if tenant.Status != model.TenantStatusActive {
		return nil, errs.Forbiddenf("tenant is %s", tenant.Status)
	}

	user, err := al.userRepo.GetUserByUsername(tenant.ID, login.Username)
	if err != nil {
		bcryptDummy(login.Password)
		return nil, errs.Unauthorizedf("incorrect username or password")
	}
	if !comparePassword(user.Password, login.Password) {
		return nil, errs.Unauthorizedf("incorrect username or password")
	}

	aToken, rToken, err := jwt.GenToken(jwt.ClassUser, user.ExternalId, tenant.ID,
		user.IsTenantAdmin == model.FlagEnabled, []byte(auth.SecretKey), auth.AccessExpire, auth.RefreshExpire)
	if err != nil {
		log.Errorf("failed to generate tokens: %v", err)
		return nil, errs.Wrap(err, errs.Internal, "token mint failed")
	}

	if err := al.userRepo.SetToken(ctx, user.ExternalId, aToken, auth); err != nil {
		log.Errorw("failed to set token in Redis", "userId", user.ExternalId, "error", err)
		return nil, errs.Wrap(err, errs.Transient, "session store unavailable")
	}

	now := time.Now()
	if err := al.userRepo.UpdateLastLogin(tenant.ID, user.ID, now); err != nil {
		log.Warnw("failed to update last login", "userId", user.ExternalId, "error", err)
	}

	return &model.LoginResp{
		UserInfo: model.UserInfo{
			UserId:        user.ExternalId,
			Username:      user.Username,
			Email:         user.Email,
			IsTenantAdmin: user.IsTenantAdmin == model.FlagEnabled,
			LastLogin:     &now,
		},
		Token: map[string]string{
			"accessToken":  aToken,
			"refreshToken": rToken,
		},
	}, nil
}

// SuperAdminLogin authenticates the platform superadmin. The minted token
// carries tenant id 0.
func (al *AuthLogic) SuperAdminLogin(ctx context.Context, login *model.SuperAdminLoginReq, auth http.Auth) (map[string]string, error) {
	if err := ValidatePassword(login.Password); err != nil {
		return nil, errs.Unauthorizedf("incorrect username or password")
	}

	sa, err := al.superAdminRepo.GetSuperAdminByUsername(login.Username)
	if err != nil {
		bcryptDummy(login.Password)
		return nil, errs.Unauthorizedf("incorrect username or password")
	}
	if sa.IsActive != model.FlagEnabled {
		return nil, errs.Forbiddenf("account disabled")
	}
	if !comparePassword(sa.Password, login.Password) {
		return nil, errs.Unauthorizedf("incorrect username or password")
	}

	aToken, rToken, err := jwt.GenToken(jwt.ClassSuperAdmin, sa.ExternalId, 0, false,
		[]byte(auth.SecretKey), auth.AccessExpire, auth.RefreshExpire)
	if err != nil {
		log.Errorf("failed to generate tokens: %v", err)
		return nil, errs.Wrap(err, errs.Internal, "token mint failed")
	}

	if err := al.userRepo.SetToken(ctx, sa.ExternalId, aToken, auth); err != nil {
		return nil, errs.Wrap(err, errs.Transient, "session store unavailable")
	}

	return map[string]string{
		"accessToken":  aToken,
		"refreshToken": rToken,
	}, nil
}

// Refresh rotates a token pair off a valid refresh token.
func (al *AuthLogic) Refresh(ctx context.Context, rToken string, auth http.Auth) (map[string]string, error) {
	token, err := jwt.RefreshToken(rToken, []byte(auth.SecretKey), auth.AccessExpire, auth.RefreshExpire)
	if err != nil {
		return nil, errs.Unauthorizedf("invalid refresh token")
	}

	claims, err := jwt.ParseToken(token["accessToken"], auth.SecretKey)
	if err != nil {
		return nil, errs.Wrap(err, errs.Internal, "minted token did not parse")
	}
	if err := al.userRepo.SetToken(ctx, claims.UserId, token["accessToken"], auth); err != nil {
		return nil, errs.Wrap(err, errs.Transient, "session store unavailable")
	}
	return token, nil
}

// Logout revokes the live session.
func (al *AuthLogic) Logout(ctx context.Context, userId string, auth http.Auth) error {
	if err := al.userRepo.DelToken(ctx, userId, auth); err != nil {
		log.Errorw("failed to delete token", "userId", userId, "error", err)
		return errs.Wrap(err, errs.Transient, "session store unavailable")
	}
	return nil
}

// ValidatePassword enforces the length window. The upper bound stops
// oversized payloads from burning hash CPU.
func ValidatePassword(password string) error {
	if len(password) < passwordMinLen {
		return errs.Validationf("password must be at least %d characters", passwordMinLen)
	}
	if len(password) > passwordMaxLen {
		return errs.Validationf("password must be at most %d characters", passwordMaxLen)
	}
	return nil
}

// prehash maps the password to 64 hex bytes before bcrypt, which truncates
// input at 72 bytes. Without it, long passwords would either error or
// silently share hashes past the cutoff.
func prehash(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return []byte(hex.EncodeToString(sum[:]))
}

// HashPassword derives the stored credential hash. Cost 0 falls back to the
// bcrypt default.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword(prehash(password), cost)
	return string(hash), err
}

func comparePassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), prehash(password)) == nil
}

func bcryptDummy(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, prehash(password))
}
