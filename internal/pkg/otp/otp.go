package otp

import (
	"crypto/subtle"
	"encoding/base32"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/shandysiswandi/gorelay/internal/pkg/clock"
)

const (
	// DefaultPeriod is the step length in seconds.
	DefaultPeriod uint = 60
	// DefaultPastSteps is how many steps behind the current one are accepted.
	DefaultPastSteps uint = 5
	// DefaultFutureSteps is how many steps ahead of the current one are accepted.
	DefaultFutureSteps uint = 1
)

var keyEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// OTP defines the contract for identity-bound TOTP operations.
type OTP interface {
	// GenerateCode returns the current code for identity under salt.
	GenerateCode(identity, salt string) (string, error)
	// VerifyCode reports whether code is valid for identity under salt right now.
	VerifyCode(identity, salt, code string) (bool, error)
	// StepSeconds returns the step length in seconds.
	StepSeconds() int
}

// Config configures a TOTP instance.
type Config struct {
	// Clock supplies the current time. Defaults to the system clock.
	Clock clock.Clocker
	// Period is the step length in seconds.
	Period uint
	// PastSteps is the number of earlier steps accepted on verify.
	PastSteps uint
	// FutureSteps is the number of later steps accepted on verify.
	FutureSteps uint
	// Digits is the code length.
	Digits otp.Digits
}

// TOTP implements OTP using the Time-based One-Time Password algorithm with
// HMAC-SHA1. The HMAC key is the ASCII form of the derived hex secret.
//
// The verification window is asymmetric: [counter-PastSteps, counter+FutureSteps].
// Codes are not invalidated after use and stay valid for the whole window.
type TOTP struct {
	clock  clock.Clocker
	period uint
	past   uint
	future uint
	digits otp.Digits
}

// NewTOTP constructs a TOTP instance.
//
// If digits is not 6 or 8, it falls back to 6 digits. A zero period uses
// DefaultPeriod. Zero past/future steps are kept as zero, use NewDefault for
// the stock window.
func NewTOTP(cfg Config) *TOTP {
	if cfg.Digits != otp.DigitsSix && cfg.Digits != otp.DigitsEight {
		cfg.Digits = otp.DigitsSix
	}

	if cfg.Period == 0 {
		cfg.Period = DefaultPeriod
	}

	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	return &TOTP{
		clock:  cfg.Clock,
		period: cfg.Period,
		past:   cfg.PastSteps,
		future: cfg.FutureSteps,
		digits: cfg.Digits,
	}
}

// NewDefault returns a TOTP with a 60s step, a [5 past, 1 future] window and 6 digits.
func NewDefault(clk clock.Clocker) *TOTP {
	return NewTOTP(Config{
		Clock:       clk,
		Period:      DefaultPeriod,
		PastSteps:   DefaultPastSteps,
		FutureSteps: DefaultFutureSteps,
		Digits:      otp.DigitsSix,
	})
}

// GenerateCode returns the code for the current step.
func (o *TOTP) GenerateCode(identity, salt string) (string, error) {
	secret, err := DeriveSecret(identity, salt)
	if err != nil {
		return "", err
	}

	return o.GenerateCodeAt(secret, o.clock.Now())
}

// VerifyCode checks code against every step in the window around now.
//
// A malformed code is reported as false, never as an error.
func (o *TOTP) VerifyCode(identity, salt, code string) (bool, error) {
	secret, err := DeriveSecret(identity, salt)
	if err != nil {
		return false, err
	}

	return o.ValidateAt(code, secret, o.clock.Now()), nil
}

// StepSeconds returns the step length in seconds.
func (o *TOTP) StepSeconds() int {
	return int(o.period)
}

// GenerateCodeAt creates the code of the step containing at.
func (o *TOTP) GenerateCodeAt(secret string, at time.Time) (string, error) {
	return totp.GenerateCodeCustom(keyEncoding.EncodeToString([]byte(secret)), at, o.opts())
}

// ValidateAt checks whether code matches any step in the window around at.
func (o *TOTP) ValidateAt(code, secret string, at time.Time) bool {
	if len(code) != o.digits.Length() {
		return false
	}

	step := time.Duration(o.period) * time.Second
	key := keyEncoding.EncodeToString([]byte(secret))
	opts := o.opts()

	valid := 0
	for i := -int(o.past); i <= int(o.future); i++ {
		expected, err := totp.GenerateCodeCustom(key, at.Add(time.Duration(i)*step), opts)
		if err != nil {
			return false
		}
		// keep scanning so the comparison cost does not depend on the match position
		valid |= subtle.ConstantTimeCompare([]byte(expected), []byte(code))
	}

	return valid == 1
}

func (o *TOTP) opts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    o.period,
		Digits:    o.digits,
		Algorithm: otp.AlgorithmSHA1,
	}
}
