package otp

import (
	"errors"
	"fmt"

	"github.com/shandysiswandi/gorelay/internal/pkg/hash"
)

// ErrInvalidInput is returned when an identity or salt is empty.
var ErrInvalidInput = errors.New("otp: identity and salt are required")

// DeriveSecret returns hex(SHA-256(identity ++ salt)).
func DeriveSecret(identity, salt string) (string, error) {
	sum, err := hash.NewSaltedSHA256(salt).Hash(identity)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	return string(sum), nil
}
