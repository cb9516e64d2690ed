package entity

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"
	"github.com/shandysiswandi/gorelay/internal/pkg/validator"
)

const (
	// MaxMessageLength is the longest accepted message in characters.
	MaxMessageLength = 140
	// MinMessageLength is the shortest accepted message after trimming.
	MinMessageLength = 10
	// MinTimeSpent is the minimum time a person spends filling in the form.
	MinTimeSpent = 3 * time.Second
	// DefaultMessageSource names where relayed messages come from.
	DefaultMessageSource = "your portfolio"

	maxRepeatedLetters = 4
	maxUppercaseRatio  = 0.7
)

var spamKeywords = []string{
	"viagra",
	"casino",
	"lottery",
	"winner",
	"click here",
	"free money",
	"urgent",
	"limited time",
}

// Interaction is what the browser observed while the form was filled in.
// A nil field was not reported and never fails a check.
type Interaction struct {
	TimeSpent        *time.Duration
	MouseActivity    *int
	KeyboardActivity *int
}

// CheckHoneypot rejects submissions that filled the hidden website field.
func CheckHoneypot(website string) error {
	if website != "" {
		return ViolationSpam
	}
	return nil
}

// CheckInteraction rejects submissions that look automated. A nil interaction passes.
func CheckInteraction(in *Interaction) error {
	if in == nil {
		return nil
	}

	if in.TimeSpent != nil && *in.TimeSpent < MinTimeSpent {
		return ViolationTooFast
	}

	if isZero(in.MouseActivity) && isZero(in.KeyboardActivity) {
		return ViolationNoInteraction
	}

	return nil
}

func isZero(n *int) bool {
	return n != nil && *n == 0
}

// CheckSenderName requires 2-50 letters, spaces, apostrophes or hyphens.
func CheckSenderName(name string) error {
	if !validator.IsPersonName(name) {
		return ViolationName
	}
	return nil
}

// CheckMessage applies the content rules in order and returns the first violation.
func CheckMessage(msg string) error {
	if utf8.RuneCountInString(msg) > MaxMessageLength {
		return ViolationMessageTooLong
	}

	if !validator.IsPrintASCII(msg) {
		return ViolationMessageNonASCII
	}

	if len(strings.TrimSpace(msg)) < MinMessageLength {
		return ViolationMessageTooShort
	}

	lower := strings.ToLower(msg)
	if lo.ContainsBy(spamKeywords, func(kw string) bool { return strings.Contains(lower, kw) }) {
		return ViolationInappropriate
	}

	if hasRepeatedLetters(msg, maxRepeatedLetters+1) {
		return ViolationRepeatedChars
	}

	upper := lo.CountBy([]byte(msg), func(c byte) bool { return c >= 'A' && c <= 'Z' })
	if len(msg) > MinMessageLength && float64(upper)/float64(len(msg)) > maxUppercaseRatio {
		return ViolationUppercase
	}

	return nil
}

// FormatRelayBody builds the text delivered to the owner.
func FormatRelayBody(source, name string, phone PhoneNumber, msg string) string {
	if source == "" {
		source = DefaultMessageSource
	}
	return fmt.Sprintf("New message from %s ( %s ) via %s:\n\n\"%s\"", name, phone, source, msg)
}

// FormatCodeBody builds the text carrying a verification code.
func FormatCodeBody(code string, validity time.Duration) string {
	secs := int(validity / time.Second)
	return fmt.Sprintf("%s is your verification code. This code is valid for %dm%ds.", code, secs/60, secs%60)
}

// hasRepeatedLetters reports whether an ASCII letter occurs n times in a row.
func hasRepeatedLetters(s string, n int) bool {
	run := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		isLetter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		switch {
		case !isLetter:
			run = 0
		case i > 0 && s[i-1] == c:
			run++
		default:
			run = 1
		}
		if run >= n {
			return true
		}
	}
	return false
}
