package util

import "github.com/google/uuid"

// NewID returns a fresh v4 UUID string, used as the id for every entity.
func NewID() string {
	return uuid.NewString()
}
