package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "riveredge"

	// clock skew tolerance for token validation
	leeway = 30 * time.Second

	ClassUser       = "user"
	ClassSuperAdmin = "platform_superadmin"
)

// AuthClaims is the token payload shared by both principal classes.
// TenantId is 0 for the platform superadmin.
type AuthClaims struct {
	PrincipalClass string `json:"principalClass"`
	UserId         string `json:"userId"`
	TenantId       uint64 `json:"tenantId"`
	IsTenantAdmin  bool   `json:"isTenantAdmin,omitempty"`
	TokenType      string `json:"tokenType"` // access | refresh
	jwt.RegisteredClaims
}

// GenToken generates an access_token and refresh_token pair.
func GenToken(principalClass, userId string, tenantId uint64, isTenantAdmin bool,
	secretKey []byte, accessExpire, refreshExpire time.Duration) (aToken, rToken string, err error) {

	now := time.Now()

	aClaims := &AuthClaims{
		PrincipalClass: principalClass,
		UserId:         userId,
		TenantId:       tenantId,
		IsTenantAdmin:  isTenantAdmin,
		TokenType:      "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(accessExpire * time.Minute)),
		},
	}
	aToken, err = jwt.NewWithClaims(jwt.SigningMethodHS256, aClaims).SignedString(secretKey)
	if err != nil {
		return "", "", err
	}

	rClaims := &AuthClaims{
		PrincipalClass: principalClass,
		UserId:         userId,
		TenantId:       tenantId,
		IsTenantAdmin:  isTenantAdmin,
		TokenType:      "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(refreshExpire * time.Minute)),
		},
	}
	rToken, err = jwt.NewWithClaims(jwt.SigningMethodHS256, rClaims).SignedString(secretKey)
	if err != nil {
		return "", "", err
	}

	return aToken, rToken, nil
}

// ParseToken validates a token and returns its claims.
func ParseToken(token, secretKey string) (*AuthClaims, error) {
	claims := new(AuthClaims)
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secretKey), nil
	}, jwt.WithLeeway(leeway), jwt.WithIssuer(issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, jwt.ErrTokenExpired
		}
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// ParseAccessToken validates a token and rejects non-access token types.
func ParseAccessToken(token, secretKey string) (*AuthClaims, error) {
	claims, err := ParseToken(token, secretKey)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != "access" {
		return nil, errors.New("not an access token")
	}
	return claims, nil
}

// RefreshToken validates a refresh token and mints a fresh pair.
func RefreshToken(rToken string, secretKey []byte, accessExpire, refreshExpire time.Duration) (map[string]string, error) {
	claims, err := ParseToken(rToken, string(secretKey))
	if err != nil {
		return nil, err
	}
	if claims.TokenType != "refresh" {
		return nil, errors.New("not a refresh token")
	}

	newAToken, newRToken, err := GenToken(claims.PrincipalClass, claims.UserId, claims.TenantId,
		claims.IsTenantAdmin, secretKey, accessExpire, refreshExpire)
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"accessToken":  newAToken,
		"refreshToken": newRToken,
	}, nil
}
