// Package uid generates string identifiers.
package uid

import "github.com/google/uuid"

// StringID generates unique string identifiers.
type StringID interface {
	Generate() string
}

// UUID generates time-ordered UUID strings (v7, falling back to v4).
type UUID struct{}

// NewUUID returns a UUID generator.
func NewUUID() *UUID {
	return &UUID{}
}

// Generate returns a new UUID string.
func (*UUID) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
