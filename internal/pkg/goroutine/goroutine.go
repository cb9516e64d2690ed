package goroutine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/shandysiswandi/gorelay/internal/pkg/stacktrace"
)

// DefaultMaxGoroutine is multiplied by NumCPU when NewManager gets a
// non-positive limit.
const DefaultMaxGoroutine int = 100

// Manager runs background jobs such as the rate limiter sweep under a
// concurrency cap. Job errors and recovered panics are collected and returned
// by Wait, which also closes the manager.
type Manager struct {
	state  sync.RWMutex
	closed bool

	errMu sync.Mutex
	errs  []error

	wg    sync.WaitGroup
	slots chan struct{}
}

func NewManager(maxGoroutine int) *Manager {
	if maxGoroutine < 1 {
		maxGoroutine = runtime.NumCPU() * DefaultMaxGoroutine
	}
	return &Manager{slots: make(chan struct{}, maxGoroutine)}
}

// Go starts f unless the manager is closed or full, and reports whether it
// did. f is skipped when ctx is already done by the time it is scheduled.
func (g *Manager) Go(ctx context.Context, f func(ctx context.Context) error) bool {
	if g == nil {
		return false
	}

	// The read lock is held until the job is registered with wg so Wait
	// cannot slip in between.
	g.state.RLock()
	defer g.state.RUnlock()

	if g.closed {
		slog.WarnContext(ctx, "goroutine manager is closed, skipping new goroutine")
		return false
	}

	select {
	case g.slots <- struct{}{}:
	default:
		slog.WarnContext(ctx, "maximum goroutine limit reached, failed to start new goroutine")
		return false
	}

	g.wg.Add(1)
	go g.run(ctx, f)
	return true
}

func (g *Manager) run(ctx context.Context, f func(ctx context.Context) error) {
	defer g.wg.Done()
	defer func() { <-g.slots }()
	defer func() {
		rvr := recover()
		if rvr == nil {
			return
		}
		g.record(fmt.Errorf("goroutine panic: %v", rvr))

		stack := debug.Stack()
		if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
			slog.ErrorContext(ctx, "panic occurred in goroutine", "because", rvr, "stack", paths)
			return
		}
		slog.ErrorContext(ctx, "panic occurred in goroutine", "because", rvr, "stack", string(stack))
	}()

	if err := ctx.Err(); err != nil {
		slog.WarnContext(ctx, "goroutine canceled", "because", err)
		return
	}

	g.record(f(ctx))
}

func (g *Manager) record(err error) {
	if err == nil {
		return
	}
	g.errMu.Lock()
	g.errs = append(g.errs, err)
	g.errMu.Unlock()
}

// Wait closes the manager, blocks until every started job returns and joins
// their errors.
func (g *Manager) Wait() error {
	if g == nil {
		return nil
	}

	g.state.Lock()
	g.closed = true
	g.state.Unlock()

	g.wg.Wait()

	g.errMu.Lock()
	defer g.errMu.Unlock()
	return errors.Join(g.errs...)
}
