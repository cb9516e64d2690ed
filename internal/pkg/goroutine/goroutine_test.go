package goroutine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManager_Wait(t *testing.T) {
	m := NewManager(4)
	boom := errors.New("boom")

	var ran atomic.Int32
	assert.True(t, m.Go(context.Background(), func(context.Context) error {
		ran.Add(1)
		return nil
	}))
	assert.True(t, m.Go(context.Background(), func(context.Context) error {
		ran.Add(1)
		return boom
	}))
	assert.True(t, m.Go(context.Background(), func(context.Context) error {
		panic("sweeper crashed")
	}))

	err := m.Wait()
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "sweeper crashed")
	assert.Equal(t, int32(2), ran.Load())

	// closed after Wait
	assert.False(t, m.Go(context.Background(), func(context.Context) error { return nil }))
}

func TestManager_Limit(t *testing.T) {
	m := NewManager(1)
	release := make(chan struct{})

	assert.True(t, m.Go(context.Background(), func(context.Context) error {
		<-release
		return nil
	}))
	assert.False(t, m.Go(context.Background(), func(context.Context) error { return nil }))

	close(release)
	assert.NoError(t, m.Wait())
}

func TestManager_Nil(t *testing.T) {
	var m *Manager
	assert.False(t, m.Go(context.Background(), func(context.Context) error { return nil }))
	assert.NoError(t, m.Wait())
}

func TestManager_CanceledContextSkipsJob(t *testing.T) {
	m := NewManager(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Bool
	assert.True(t, m.Go(ctx, func(context.Context) error {
		ran.Store(true)
		return errors.New("should not run")
	}))

	assert.NoError(t, m.Wait())
	assert.False(t, ran.Load())
}
