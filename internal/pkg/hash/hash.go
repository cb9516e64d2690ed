package hash

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

// ErrEmptyInput is returned when a hasher receives an empty value or key.
var ErrEmptyInput = errors.New("hash: empty input")

// Hash hashes a plaintext and verifies a plaintext against a stored digest.
type Hash interface {
	// Hash returns the hex-encoded digest of str.
	Hash(str string) ([]byte, error)
	// Verify reports whether str hashes to hashed.
	Verify(hashed, str string) bool
}

func hexDigest(sum []byte) []byte {
	out := make([]byte, hex.EncodedLen(len(sum)))
	hex.Encode(out, sum)
	return out
}

// verify recomputes the digest of str with h and compares in constant time.
func verify(h Hash, hashed, str string) bool {
	expected, err := h.Hash(str)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(hashed), expected) == 1
}
