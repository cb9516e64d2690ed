package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/gorelay/internal/pkg/clock"
)

const (
	// DefaultSubmissionWindow is the message submission window.
	DefaultSubmissionWindow = 7 * 24 * time.Hour
	// DefaultSubmissionMax is the number of messages allowed per submission window.
	DefaultSubmissionMax = 3
	// DefaultOTPWindow is the verification code request window.
	DefaultOTPWindow = time.Hour
	// DefaultOTPMax is the number of code requests allowed per OTP window.
	DefaultOTPMax = 3
)

// Limit names used in stats and logs.
const (
	LimitSubmission = "submission"
	LimitOTP        = "otp"
)

// Config holds the windows and thresholds of a Limiter.
// Zero values fall back to the defaults.
type Config struct {
	SubmissionWindow time.Duration
	SubmissionMax    int
	OTPWindow        time.Duration
	OTPMax           int
}

// Limiter tracks message submissions and verification code requests per identity.
type Limiter struct {
	submission *Window
	otp        *Window
}

// New creates a Limiter reading time from clk.
func New(cfg Config, clk clock.Clocker) *Limiter {
	if cfg.SubmissionWindow <= 0 {
		cfg.SubmissionWindow = DefaultSubmissionWindow
	}
	if cfg.SubmissionMax <= 0 {
		cfg.SubmissionMax = DefaultSubmissionMax
	}
	if cfg.OTPWindow <= 0 {
		cfg.OTPWindow = DefaultOTPWindow
	}
	if cfg.OTPMax <= 0 {
		cfg.OTPMax = DefaultOTPMax
	}

	return &Limiter{
		submission: NewWindow(cfg.SubmissionWindow, cfg.SubmissionMax, clk),
		otp:        NewWindow(cfg.OTPWindow, cfg.OTPMax, clk),
	}
}

// IsSubmissionRateLimited reports whether identity has used up its message submissions.
func (l *Limiter) IsSubmissionRateLimited(identity string) bool {
	return !l.submission.Allow(identity)
}

// RecordSubmission stores a successful message submission for identity.
func (l *Limiter) RecordSubmission(identity string) {
	l.submission.Record(identity)
}

// IsOTPRateLimited reports whether identity has used up its verification code requests.
func (l *Limiter) IsOTPRateLimited(identity string) bool {
	return !l.otp.Allow(identity)
}

// RecordOTPRequest stores a successful verification code request for identity.
func (l *Limiter) RecordOTPRequest(identity string) {
	l.otp.Record(identity)
}

// SubmissionRetryAfter returns the wait until identity may submit again.
func (l *Limiter) SubmissionRetryAfter(identity string) time.Duration {
	return l.submission.RetryAfter(identity)
}

// OTPRetryAfter returns the wait until identity may request a code again.
func (l *Limiter) OTPRetryAfter(identity string) time.Duration {
	return l.otp.RetryAfter(identity)
}

// SubmissionMax returns the submission threshold.
func (l *Limiter) SubmissionMax() int { return l.submission.max }

// OTPMax returns the code request threshold.
func (l *Limiter) OTPMax() int { return l.otp.max }

// SubmissionWindow returns the submission window length.
func (l *Limiter) SubmissionWindow() time.Duration { return l.submission.Length() }

// OTPWindow returns the code request window length.
func (l *Limiter) OTPWindow() time.Duration { return l.otp.Length() }

// Stats returns a snapshot per limit name.
func (l *Limiter) Stats() map[string]Stats {
	return map[string]Stats{
		LimitSubmission: l.submission.Stats(),
		LimitOTP:        l.otp.Stats(),
	}
}

// Sweep evicts identities with no events left in either window.
func (l *Limiter) Sweep() int {
	return l.submission.Sweep() + l.otp.Sweep()
}

// Run sweeps every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "rate limit sweeper stopped")
			return nil
		case <-ticker.C:
			if n := l.Sweep(); n > 0 {
				slog.DebugContext(ctx, "rate limit sweep", "evicted", n)
			}
		}
	}
}
