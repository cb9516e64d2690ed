package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/shandysiswandi/gorelay/internal/pkg/instrument"
	"github.com/shandysiswandi/gorelay/internal/pkg/smsgateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failing struct{ err error }

func (f failing) Send(context.Context, smsgateway.Message) (*smsgateway.Receipt, error) {
	return nil, f.err
}

func (f failing) GetState(context.Context, string) (*smsgateway.Receipt, error) {
	return nil, f.err
}

func TestGateway(t *testing.T) {
	g := New(smsgateway.NewBypass(), instrument.NewNoop())

	rc, err := g.Send(context.Background(), smsgateway.Message{PhoneNumbers: []string{"2065551234"}, Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, smsgateway.BypassID, rc.ID)

	rc, err = g.GetState(context.Background(), smsgateway.BypassID)
	require.NoError(t, err)
	assert.Equal(t, smsgateway.StatePending, rc.State)
}

func TestGateway_Error(t *testing.T) {
	boom := errors.New("boom")
	g := New(failing{err: boom}, instrument.NewNoop())

	_, err := g.Send(context.Background(), smsgateway.Message{})
	assert.ErrorIs(t, err, boom)

	_, err = g.GetState(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
}
