package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shandysiswandi/gorelay/internal/pkg/goerror"
	"github.com/shandysiswandi/gorelay/internal/pkg/ratelimit"
	"github.com/shandysiswandi/gorelay/internal/relay/entity"
	"go.opentelemetry.io/otel/attribute"
)

func (s *Usecase) checkOTPLimit(ctx context.Context, phone entity.PhoneNumber) error {
	if !s.limiter.IsOTPRateLimited(phone.String()) {
		return nil
	}

	add(ctx, s.telemetry.rejected, attribute.String("limit", ratelimit.LimitOTP))
	slog.WarnContext(ctx, "verification code request rate limited", "phone", phone.Masked())

	return goerror.NewTooManyRequest(
		fmt.Sprintf("You have reached the maximum of %d verification code requests %s. Please try again later.",
			s.limiter.OTPMax(), windowPhrase(s.limiter.OTPWindow())),
		s.limiter.OTPRetryAfter(phone.String()),
	)
}

func (s *Usecase) checkSubmissionLimit(ctx context.Context, phone entity.PhoneNumber, msg string) error {
	if !s.limiter.IsSubmissionRateLimited(phone.String()) {
		return nil
	}

	add(ctx, s.telemetry.rejected, attribute.String("limit", ratelimit.LimitSubmission))
	slog.WarnContext(ctx, "message submission rate limited", "phone", phone.Masked())

	if msg == "" {
		msg = fmt.Sprintf("You have reached the maximum of %d messages %s. Please try again later.",
			s.limiter.SubmissionMax(), windowPhrase(s.limiter.SubmissionWindow()))
	}

	return goerror.NewTooManyRequest(msg, s.limiter.SubmissionRetryAfter(phone.String()))
}

var windowUnits = []struct {
	name string
	size time.Duration
}{
	{"week", 7 * 24 * time.Hour},
	{"day", 24 * time.Hour},
	{"hour", time.Hour},
	{"minute", time.Minute},
}

// windowPhrase words a limiter window for users: "per hour", "per week",
// "every 2 hours". The largest unit that divides d evenly is used.
func windowPhrase(d time.Duration) string {
	for _, u := range windowUnits {
		if d < u.size || d%u.size != 0 {
			continue
		}
		n := int64(d / u.size)
		if n == 1 {
			return "per " + u.name
		}
		return fmt.Sprintf("every %d %ss", n, u.name)
	}
	return "every " + d.String()
}

// violation maps entity rule failures to a 400 with the rule's own text.
func violation(err error) error {
	var v entity.Violation
	if errors.As(err, &v) {
		return goerror.NewInvalidFormat(v.Error())
	}
	return goerror.NewServer(err)
}
