package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/shandysiswandi/gorelay/internal/pkg/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestCode_Success(t *testing.T) {
	f := newFixture(t)

	out, err := f.uc.RequestCode(context.Background(), RequestCodeInput{PhoneNumber: "+1 (206) 555-1234"})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", out.MessageID)

	require.Equal(t, 1, f.gateway.count())
	assert.Equal(t, []string{testPhone}, f.gateway.sent[0].PhoneNumbers)
	assert.Equal(t, testCode+" is your verification code. This code is valid for 1m0s.", f.gateway.sent[0].Text)
	assert.Equal(t, 1, f.limiter.Stats()["otp"].Events)
}

func TestRequestCode_OTPLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for range 3 {
		_, err := f.uc.RequestCode(ctx, RequestCodeInput{PhoneNumber: testPhone})
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}

	_, err := f.uc.RequestCode(ctx, RequestCodeInput{PhoneNumber: testPhone})
	gerr := requireStatus(t, err, http.StatusTooManyRequests,
		"You have reached the maximum of 3 verification code requests per hour. Please try again later.")
	assert.Equal(t, 57*time.Minute+time.Millisecond, gerr.RetryAfter())
	assert.Equal(t, 3, f.gateway.count())

	// another number is unaffected
	_, err = f.uc.RequestCode(ctx, RequestCodeInput{PhoneNumber: "2065559999"})
	require.NoError(t, err)

	f.clock.Set(testNow.Add(time.Hour + time.Millisecond))
	_, err = f.uc.RequestCode(ctx, RequestCodeInput{PhoneNumber: testPhone})
	require.NoError(t, err)
}

func TestRequestCode_SubmissionLimit(t *testing.T) {
	f := newFixture(t)
	for range 3 {
		f.limiter.RecordSubmission(testPhone)
	}

	_, err := f.uc.RequestCode(context.Background(), RequestCodeInput{PhoneNumber: testPhone})
	requireStatus(t, err, http.StatusTooManyRequests,
		"You have reached the maximum of 3 messages per week. Please try again later.")
	assert.Zero(t, f.gateway.count())
}

func TestRequestCode_FailureRecordsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gateway.sendErr = errors.New("device offline")

	for range 5 {
		_, err := f.uc.RequestCode(ctx, RequestCodeInput{PhoneNumber: testPhone})
		requireStatus(t, err, http.StatusInternalServerError,
			"An error occurred while trying to send the verification code.")
	}
	assert.Zero(t, f.limiter.Stats()["otp"].Events)

	f.gateway.sendErr = nil
	for range 3 {
		_, err := f.uc.RequestCode(ctx, RequestCodeInput{PhoneNumber: testPhone})
		require.NoError(t, err)
	}
}

func TestRequestCode_InvalidPhone(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.RequestCode(context.Background(), RequestCodeInput{})
	requireStatus(t, err, http.StatusBadRequest, "Phone number is required.")

	_, err = f.uc.RequestCode(context.Background(), RequestCodeInput{PhoneNumber: "555-1234"})
	requireStatus(t, err, http.StatusBadRequest, "Please provide a valid 10-digit phone number.")
	assert.Zero(t, f.gateway.count())
}

func TestRequestCode_LimitMessageFollowsWindow(t *testing.T) {
	f := newFixture(t, func(d *Dependency) {
		d.Limiter = ratelimit.New(ratelimit.Config{OTPWindow: 2 * time.Hour, OTPMax: 2}, d.Clock)
	})
	ctx := context.Background()

	for range 2 {
		_, err := f.uc.RequestCode(ctx, RequestCodeInput{PhoneNumber: testPhone})
		require.NoError(t, err)
	}

	_, err := f.uc.RequestCode(ctx, RequestCodeInput{PhoneNumber: testPhone})
	requireStatus(t, err, http.StatusTooManyRequests,
		"You have reached the maximum of 2 verification code requests every 2 hours. Please try again later.")
}

func TestWindowPhrase(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{in: time.Hour, want: "per hour"},
		{in: 7 * 24 * time.Hour, want: "per week"},
		{in: 24 * time.Hour, want: "per day"},
		{in: 14 * 24 * time.Hour, want: "every 2 weeks"},
		{in: 3 * 24 * time.Hour, want: "every 3 days"},
		{in: 90 * time.Minute, want: "every 90 minutes"},
		{in: time.Minute, want: "per minute"},
		{in: 30 * time.Second, want: "every 30s"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, windowPhrase(tt.in), tt.in.String())
	}
}
