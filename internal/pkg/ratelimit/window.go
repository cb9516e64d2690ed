package ratelimit

import (
	"slices"
	"sync"
	"time"

	"github.com/shandysiswandi/gorelay/internal/pkg/clock"
	"go.uber.org/atomic"
)

// Stats is a point-in-time snapshot of a Window.
type Stats struct {
	Window     time.Duration `json:"window"`
	Max        int           `json:"max"`
	Keys       int           `json:"keys"`
	Events     int           `json:"events"`
	Rejections int64         `json:"rejections"`
}

// Window is a sliding-window counter keyed by an arbitrary string.
//
// Allow and Record are individually serialized. Calling Allow then Record is
// not atomic, so concurrent callers may overshoot max.
type Window struct {
	clock  clock.Clocker
	window int64 // ms
	max    int

	mu     sync.Mutex
	events map[string][]int64

	rejections *atomic.Int64
}

// NewWindow creates a Window admitting max events per window.
func NewWindow(window time.Duration, max int, clk clock.Clocker) *Window {
	if clk == nil {
		clk = clock.New()
	}

	return &Window{
		clock:      clk,
		window:     window.Milliseconds(),
		max:        max,
		events:     make(map[string][]int64),
		rejections: atomic.NewInt64(0),
	}
}

// Length returns the window duration.
func (w *Window) Length() time.Duration {
	return time.Duration(w.window) * time.Millisecond
}

// Allow reports whether key may perform another event now.
func (w *Window) Allow(key string) bool {
	now := w.now()

	w.mu.Lock()
	n := len(w.prune(key, now))
	w.mu.Unlock()

	if n < w.max {
		return true
	}

	w.rejections.Inc()
	return false
}

// Record stores an event for key at the current time.
func (w *Window) Record(key string) {
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.events[key] = append(w.prune(key, now), now)
}

// Count returns how many events of key are inside the window.
func (w *Window) Count(key string) int {
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	return len(w.prune(key, now))
}

// RetryAfter returns how long key has to wait until Allow admits it again.
// It is zero when key is already admitted.
func (w *Window) RetryAfter(key string) time.Duration {
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	list := w.prune(key, now)
	if len(list) < w.max {
		return 0
	}
	if w.max <= 0 {
		return time.Duration(w.window) * time.Millisecond
	}

	sorted := slices.Clone(list)
	slices.Sort(sorted)

	// the event that has to expire for the count to drop below max
	oldest := sorted[len(sorted)-w.max]
	return time.Duration(oldest+w.window-now+1) * time.Millisecond
}

// Sweep prunes every key and drops keys with no events left.
// It returns the number of evicted keys.
func (w *Window) Sweep() int {
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	evicted := 0
	for key := range w.events {
		if len(w.prune(key, now)) == 0 {
			delete(w.events, key)
			evicted++
		}
	}

	return evicted
}

// Stats returns a snapshot of the window.
func (w *Window) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	events := 0
	for _, list := range w.events {
		events += len(list)
	}

	return Stats{
		Window:     time.Duration(w.window) * time.Millisecond,
		Max:        w.max,
		Keys:       len(w.events),
		Events:     events,
		Rejections: w.rejections.Load(),
	}
}

// prune must be called with mu held. It keeps only timestamps strictly newer
// than now-window and stores the result back.
func (w *Window) prune(key string, now int64) []int64 {
	list, ok := w.events[key]
	if !ok {
		return nil
	}

	cutoff := now - w.window
	kept := list[:0]
	for _, ts := range list {
		if ts > cutoff {
			kept = append(kept, ts)
		}
	}

	w.events[key] = kept
	return kept
}

func (w *Window) now() int64 {
	return w.clock.Now().UnixMilli()
}
