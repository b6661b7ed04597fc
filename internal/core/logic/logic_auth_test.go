package logic

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestValidatePasswordBounds(t *testing.T) {
	assert.Error(t, ValidatePassword("short"))
	assert.NoError(t, ValidatePassword("longenough"))
	assert.Error(t, ValidatePassword(strings.Repeat("a", 1025)))
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, comparePassword(hash, "correct horse battery"))
	assert.False(t, comparePassword(hash, "wrong horse"))
}

func TestPasswordHashLongInput(t *testing.T) {
	// bcrypt alone rejects input past 72 bytes; the prehash keeps long
	// passphrases working and distinguishable.
	long := strings.Repeat("a", 100)
	hash, err := HashPassword(long, bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, comparePassword(hash, long))
	assert.False(t, comparePassword(hash, long+"b"))
}

func TestPasswordHashZeroCostUsesDefault(t *testing.T) {
	hash, err := HashPassword("correct horse battery", 0)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
