package hash

import (
	"crypto/hmac"
	"crypto/sha256"
)

// HMACSHA256 keys digests with a server secret, so values such as phone
// numbers can be used as storage keys without being recoverable.
type HMACSHA256 struct {
	secret []byte
}

func NewHMACSHA256(secret string) *HMACSHA256 {
	return &HMACSHA256{secret: []byte(secret)}
}

// Hash returns hex(HMAC-SHA256(secret, str)).
func (s *HMACSHA256) Hash(str string) ([]byte, error) {
	if len(s.secret) == 0 || str == "" {
		return nil, ErrEmptyInput
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(str))
	return hexDigest(mac.Sum(nil)), nil
}

func (s *HMACSHA256) Verify(hashed, str string) bool {
	return verify(s, hashed, str)
}
