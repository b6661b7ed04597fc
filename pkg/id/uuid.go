package id

import (
	"strings"

	"github.com/google/uuid"
)

// GetUUID generates a new UUID
func GetUUID() string {
	return uuid.NewString()
}

// GetUUIDWithoutDashes generates a new UUID without dashes
func GetUUIDWithoutDashes() string {
	return strings.Replace(uuid.NewString(), "-", "", -1)
}
