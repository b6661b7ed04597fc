package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("0123456789abcdef")

	aToken, rToken, err := GenToken(ClassUser, "c8g4h2j0k1l5m3n7p9q2", 42, true, secret, 30, 7*24*60)
	require.NoError(t, err)
	require.NotEmpty(t, aToken)
	require.NotEmpty(t, rToken)

	claims, err := ParseAccessToken(aToken, string(secret))
	require.NoError(t, err)
	assert.Equal(t, ClassUser, claims.PrincipalClass)
	assert.Equal(t, "c8g4h2j0k1l5m3n7p9q2", claims.UserId)
	assert.Equal(t, uint64(42), claims.TenantId)
	assert.True(t, claims.IsTenantAdmin)
}

func TestRefreshTokenRejectedAsAccess(t *testing.T) {
	secret := []byte("0123456789abcdef")

	_, rToken, err := GenToken(ClassUser, "u1", 1, false, secret, 30, 60)
	require.NoError(t, err)

	_, err = ParseAccessToken(rToken, string(secret))
	assert.Error(t, err)
}

func TestParseWrongSecret(t *testing.T) {
	aToken, _, err := GenToken(ClassSuperAdmin, "admin1", 0, false, []byte("secret-a"), 30, 60)
	require.NoError(t, err)

	_, err = ParseToken(aToken, "secret-b")
	assert.Error(t, err)
}

func TestExpiredTokenBeyondLeeway(t *testing.T) {
	secret := []byte("0123456789abcdef")

	// negative expiry beyond the 30s leeway
	aToken, _, err := GenToken(ClassUser, "u1", 1, false, secret, -2, 60)
	require.NoError(t, err)

	_, err = ParseToken(aToken, string(secret))
	assert.Error(t, err)
}

func TestRefreshMintsEquivalentClaims(t *testing.T) {
	secret := []byte("0123456789abcdef")

	_, rToken, err := GenToken(ClassUser, "u1", 7, true, secret, 30, 60)
	require.NoError(t, err)

	pair, err := RefreshToken(rToken, secret, 30, 60)
	require.NoError(t, err)

	claims, err := ParseAccessToken(pair["accessToken"], string(secret))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserId)
	assert.Equal(t, uint64(7), claims.TenantId)
	assert.True(t, claims.IsTenantAdmin)
	assert.True(t, claims.ExpiresAt.After(time.Now()))
}
