package entity

import (
	"strings"

	"github.com/shandysiswandi/gorelay/internal/pkg/validator"
)

// PhoneNumber is a normalized 10 digit phone number. It is the identity that
// secrets and rate limits are keyed by.
type PhoneNumber string

// NormalizePhoneNumber strips every non-digit, drops a single leading 1 and
// requires exactly 10 digits to remain.
func NormalizePhoneNumber(raw string) (PhoneNumber, error) {
	if raw == "" {
		return "", ViolationPhoneRequired
	}

	digits, ok := validator.NormalizePhone10(raw)
	if !ok {
		return "", ViolationPhoneInvalid
	}

	return PhoneNumber(digits), nil
}

func (p PhoneNumber) String() string {
	return string(p)
}

// Masked hides all but the last four digits, for logs.
func (p PhoneNumber) Masked() string {
	if len(p) <= 4 {
		return strings.Repeat("*", len(p))
	}
	return strings.Repeat("*", len(p)-4) + string(p[len(p)-4:])
}
