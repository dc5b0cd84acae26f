package utils

import (
	"github.com/google/uuid"
)

// IsValidUUID reports whether u is a UUID in its canonical 36-character form.
// Braced and urn: spellings are rejected so an ID has a single representation.
func IsValidUUID(u string) bool {
	if len(u) != 36 {
		return false
	}
	_, err := uuid.Parse(u)
	return err == nil
}

// GenerateUUID returns a new random UUID string
func GenerateUUID() string {
	return uuid.New().String()
}
