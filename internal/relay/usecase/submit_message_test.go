package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"github.com/shandysiswandi/gorelay/internal/pkg/hash"
	"github.com/shandysiswandi/gorelay/internal/pkg/idempotency"
	"github.com/shandysiswandi/gorelay/internal/pkg/smsgateway"
	"github.com/shandysiswandi/gorelay/internal/relay/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSubmission() SubmitMessageInput {
	return SubmitMessageInput{
		PhoneNumber: testPhone,
		Name:        "Ada Lovelace",
		Message:     "Hello there, loved the project write-up!",
		Code:        testCode,
		Interaction: &entity.Interaction{TimeSpent: lo.ToPtr(12 * time.Second), KeyboardActivity: lo.ToPtr(40)},
	}
}

func TestSubmitMessage_Success(t *testing.T) {
	f := newFixture(t, func(d *Dependency) { d.Settings.MessageSource = "gorelay.dev" })

	out, err := f.uc.SubmitMessage(context.Background(), validSubmission())
	require.NoError(t, err)
	assert.Equal(t, "msg-1", out.MessageID)
	assert.False(t, out.Replayed)

	require.Equal(t, 1, f.gateway.count())
	sent := f.gateway.sent[0]
	assert.Equal(t, []string{testOwner}, sent.PhoneNumbers)
	assert.Equal(t,
		"New message from Ada Lovelace ( 2065551234 ) via gorelay.dev:\n\n\"Hello there, loved the project write-up!\"",
		sent.Text)
	assert.Equal(t, 1, f.limiter.Stats()["submission"].Events)
}

func TestSubmitMessage_BodyUsesTrimmedName(t *testing.T) {
	f := newFixture(t, func(d *Dependency) { d.Settings.MessageSource = "gorelay.dev" })

	in := validSubmission()
	in.Name = "  Ada Lovelace \t"

	_, err := f.uc.SubmitMessage(context.Background(), in)
	require.NoError(t, err)

	require.Equal(t, 1, f.gateway.count())
	assert.True(t, strings.HasPrefix(f.gateway.sent[0].Text, "New message from Ada Lovelace ( 2065551234 )"))
}

func TestSubmitMessage_WeeklyLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for range 3 {
		_, err := f.uc.SubmitMessage(ctx, validSubmission())
		require.NoError(t, err)
	}

	_, err := f.uc.SubmitMessage(ctx, validSubmission())
	gerr := requireStatus(t, err, http.StatusTooManyRequests,
		"You have reached the maximum of 3 messages per week. Please try again later.")
	assert.Equal(t, 7*24*time.Hour+time.Millisecond, gerr.RetryAfter())
	assert.Equal(t, 3, f.gateway.count())

	// the code request path is closed too
	_, err = f.uc.RequestCode(ctx, RequestCodeInput{PhoneNumber: testPhone})
	requireStatus(t, err, http.StatusTooManyRequests, "")
}

func TestSubmitMessage_InvalidCode(t *testing.T) {
	f := newFixture(t)

	in := validSubmission()
	in.Code = "000000"
	_, err := f.uc.SubmitMessage(context.Background(), in)
	requireStatus(t, err, http.StatusUnauthorized,
		"Your verification code is invalid or has expired. Please try again.")
	assert.Zero(t, f.gateway.count())
	assert.Zero(t, f.limiter.Stats()["submission"].Events)
}

func TestSubmitMessage_ExpiredCode(t *testing.T) {
	f := newFixture(t)
	f.clock.Advance(6 * time.Minute)

	_, err := f.uc.SubmitMessage(context.Background(), validSubmission())
	requireStatus(t, err, http.StatusUnauthorized, "")
}

func TestSubmitMessage_GatewayFailure(t *testing.T) {
	f := newFixture(t)
	f.gateway.sendErr = errors.New("gateway down")

	_, err := f.uc.SubmitMessage(context.Background(), validSubmission())
	requireStatus(t, err, http.StatusInternalServerError, "Failed to send message.")
	assert.Zero(t, f.limiter.Stats()["submission"].Events)
}

func TestSubmitMessage_Bypass(t *testing.T) {
	f := newFixture(t, func(d *Dependency) { d.Settings.GatewayBypass = true })

	out, err := f.uc.SubmitMessage(context.Background(), validSubmission())
	require.NoError(t, err)
	assert.Equal(t, smsgateway.BypassID, out.MessageID)
	assert.Zero(t, f.gateway.count())
	assert.Equal(t, 1, f.limiter.Stats()["submission"].Events)
}

func TestSubmitMessage_CheckOrder(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SubmitMessageInput)
		msg    string
	}{
		{
			name:   "phone before everything",
			mutate: func(in *SubmitMessageInput) { in.PhoneNumber = "12"; in.Website = "http://spam"; in.Name = "" },
			msg:    "Please provide a valid 10-digit phone number.",
		},
		{
			name:   "honeypot before required fields",
			mutate: func(in *SubmitMessageInput) { in.Website = "http://spam"; in.Name = "" },
			msg:    "Spam detected.",
		},
		{
			name:   "too fast",
			mutate: func(in *SubmitMessageInput) {
				in.Interaction = &entity.Interaction{TimeSpent: lo.ToPtr(time.Second), MouseActivity: lo.ToPtr(3)}
			},
			msg: "Submission too fast.",
		},
		{
			name:   "no interaction",
			mutate: func(in *SubmitMessageInput) {
				in.Interaction = &entity.Interaction{
					TimeSpent:        lo.ToPtr(10 * time.Second),
					MouseActivity:    lo.ToPtr(0),
					KeyboardActivity: lo.ToPtr(0),
				}
			},
			msg: "No user interaction detected.",
		},
		{
			name:   "missing code",
			mutate: func(in *SubmitMessageInput) { in.Code = "" },
			msg:    "All fields are required.",
		},
		{
			name:   "bad name",
			mutate: func(in *SubmitMessageInput) { in.Name = "R2D2" },
			msg:    "Name contains invalid characters or format.",
		},
		{
			name:   "content before verification",
			mutate: func(in *SubmitMessageInput) { in.Message = "BUY CHEAP VIAGRA NOW"; in.Code = "000000" },
			msg:    "Message contains inappropriate content.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			in := validSubmission()
			tt.mutate(&in)

			_, err := f.uc.SubmitMessage(context.Background(), in)
			requireStatus(t, err, http.StatusBadRequest, tt.msg)
			assert.Zero(t, f.gateway.count())
		})
	}
}

func TestSubmitMessage_LimitBeforeContent(t *testing.T) {
	f := newFixture(t)
	for range 3 {
		f.limiter.RecordSubmission(testPhone)
	}

	in := validSubmission()
	in.Message = "short"
	_, err := f.uc.SubmitMessage(context.Background(), in)
	requireStatus(t, err, http.StatusTooManyRequests, "")
}

func TestSubmitMessage_Idempotent(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := newFixture(t, func(d *Dependency) {
		d.Idempotency = idempotency.New(client, "test")
		d.Settings.IdempotencyTTL = time.Hour
	})
	ctx := context.Background()

	in := validSubmission()
	in.IdempotencyKey = "form-1"

	first, err := f.uc.SubmitMessage(ctx, in)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := f.uc.SubmitMessage(ctx, in)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.MessageID, second.MessageID)

	assert.Equal(t, 1, f.gateway.count())
	assert.Equal(t, 1, f.limiter.Stats()["submission"].Events)
}

func TestSubmitMessage_IdempotentFailureCanRetry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := newFixture(t, func(d *Dependency) { d.Idempotency = idempotency.New(client, "test") })
	ctx := context.Background()

	in := validSubmission()
	in.IdempotencyKey = "form-2"

	f.gateway.sendErr = errors.New("gateway down")
	_, err := f.uc.SubmitMessage(ctx, in)
	requireStatus(t, err, http.StatusInternalServerError, "Failed to send message.")

	f.gateway.sendErr = nil
	out, err := f.uc.SubmitMessage(ctx, in)
	require.NoError(t, err)
	assert.False(t, out.Replayed)
	assert.Equal(t, 1, f.gateway.count())
}

func TestSubmitMessage_IdempotentStoreFailureStillSucceeds(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	f := newFixture(t, func(d *Dependency) { d.Idempotency = idempotency.New(client, "test") })
	f.gateway.afterSend = mr.Close

	in := validSubmission()
	in.IdempotencyKey = "form-4"

	out, err := f.uc.SubmitMessage(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "msg-1", out.MessageID)
	assert.False(t, out.Replayed)
	assert.Equal(t, 1, f.gateway.count())
	assert.Equal(t, 1, f.limiter.Stats()["submission"].Events)
}

func TestSubmitMessage_IdempotencyKeyHashed(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := newFixture(t, func(d *Dependency) {
		d.Idempotency = idempotency.New(client, "test:")
		d.KeyHash = hash.NewHMACSHA256("idem-secret")
	})

	in := validSubmission()
	in.IdempotencyKey = "form-3"
	_, err := f.uc.SubmitMessage(context.Background(), in)
	require.NoError(t, err)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.NotContains(t, keys[0], testPhone)
	assert.Contains(t, keys[0], "relay:message:")
}
