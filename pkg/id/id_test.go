package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetUUID(t *testing.T) {
	uuid := GetUUID()
	assert.Len(t, uuid, 36)
}

func TestGetUUIDWithoutDashes(t *testing.T) {
	uuid := GetUUIDWithoutDashes()
	assert.Len(t, uuid, 32)
}

func TestExternalId(t *testing.T) {
	a := ExternalId()
	b := ExternalId()
	assert.Len(t, a, 20)
	assert.NotEqual(t, a, b)
}

func TestGetULID(t *testing.T) {
	assert.Len(t, GetULID(), 26)
}
