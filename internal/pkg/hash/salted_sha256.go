package hash

import "crypto/sha256"

// SaltedSHA256 hashes hex(SHA-256(value ++ salt)).
//
// The value and salt are concatenated with no separator and no length prefix.
// Every digest ever produced depends on that exact layout.
type SaltedSHA256 struct {
	salt string
}

// NewSaltedSHA256 returns a hasher that appends salt to every input.
func NewSaltedSHA256(salt string) *SaltedSHA256 {
	return &SaltedSHA256{salt: salt}
}

// Hash returns the lowercase hex digest of str ++ salt.
func (s *SaltedSHA256) Hash(str string) ([]byte, error) {
	if str == "" || s.salt == "" {
		return nil, ErrEmptyInput
	}

	sum := sha256.Sum256([]byte(str + s.salt))
	return hexDigest(sum[:]), nil
}

// Verify checks whether str ++ salt hashes to hashed.
func (s *SaltedSHA256) Verify(hashed, str string) bool {
	return verify(s, hashed, str)
}
