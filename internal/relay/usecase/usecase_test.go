package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/gorelay/internal/pkg/clock"
	"github.com/shandysiswandi/gorelay/internal/pkg/goerror"
	"github.com/shandysiswandi/gorelay/internal/pkg/otp"
	"github.com/shandysiswandi/gorelay/internal/pkg/ratelimit"
	"github.com/shandysiswandi/gorelay/internal/pkg/smsgateway"
	"github.com/stretchr/testify/require"
)

const (
	testPhone = "2065551234"
	testOwner = "2065550000"
	testSalt  = "s3cr3t"
	// code of testPhone under testSalt at testNow
	testCode = "992876"
)

var testNow = time.Unix(1_700_000_000, 0)

type fakeGateway struct {
	mu       sync.Mutex
	sent     []smsgateway.Message
	sendErr  error
	state    *smsgateway.Receipt
	stateErr error
	// afterSend runs once a message has been accepted.
	afterSend func()
}

func (f *fakeGateway) Send(_ context.Context, msg smsgateway.Message) (*smsgateway.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, msg)
	if f.afterSend != nil {
		f.afterSend()
	}
	return &smsgateway.Receipt{ID: fmt.Sprintf("msg-%d", len(f.sent)), State: smsgateway.StatePending}, nil
}

func (f *fakeGateway) GetState(_ context.Context, _ string) (*smsgateway.Receipt, error) {
	return f.state, f.stateErr
}

func (f *fakeGateway) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fixture struct {
	uc      *Usecase
	clock   *clock.Manual
	limiter *ratelimit.Limiter
	gateway *fakeGateway
}

func newFixture(t *testing.T, mutate ...func(*Dependency)) *fixture {
	t.Helper()

	clk := clock.NewManual(testNow)
	lim := ratelimit.New(ratelimit.Config{}, clk)
	gw := &fakeGateway{}

	dep := Dependency{
		Settings: Settings{
			Salt:       testSalt,
			OwnerPhone: testOwner,
		},
		Totp:    otp.NewDefault(clk),
		Limiter: lim,
		Gateway: gw,
		Clock:   clk,
	}
	for _, m := range mutate {
		m(&dep)
	}

	return &fixture{uc: New(dep), clock: clk, limiter: lim, gateway: gw}
}

func requireStatus(t *testing.T, err error, status int, msg string) *goerror.Error {
	t.Helper()

	var gerr *goerror.Error
	require.True(t, errors.As(err, &gerr), "expected goerror, got %v", err)
	require.Equal(t, status, gerr.StatusCode())
	if msg != "" {
		require.Equal(t, msg, gerr.Msg())
	}
	return gerr
}
