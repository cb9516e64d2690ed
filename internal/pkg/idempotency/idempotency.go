// Package idempotency deduplicates client retries of a single operation using
// redis as the shared state store.
//
// A key moves from absent to in_progress when an execution starts. A
// successful execution stores its result under the key until the state TTL
// expires, so a retry with the same key gets the stored result back instead
// of running again. A failed execution releases the key so the client can
// try again. Once an execution succeeds its result is returned even if it
// could not be stored.
package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrAlreadyInProgress is returned while another execution holds the key.
	ErrAlreadyInProgress = errors.New("operation already in progress")
	// ErrInvalidState is returned when the stored value is not a known state.
	ErrInvalidState = errors.New("invalid state")
	// ErrEmptyKey is returned for an empty key.
	ErrEmptyKey = errors.New("idempotency key is required")
)

// State is the lifecycle state of a key.
type State string

const (
	StateNone       State = "none"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateError      State = "error"
)

func (s State) String() string {
	return string(s)
}

const completedSep = "|"

// Idempotency runs fn at most once per key within the state TTL.
type Idempotency interface {
	// Exec returns the result of fn, or the stored result of an earlier
	// successful execution with replayed set to true.
	Exec(ctx context.Context, key string, fn func(context.Context) (string, error), opts ...Option) (result string, replayed bool, err error)
}

// StateTracker implements Idempotency on redis.
type StateTracker struct {
	client redis.UniversalClient
	prefix string
}

// New returns a StateTracker storing keys under prefix.
func New(client redis.UniversalClient, prefix string) *StateTracker {
	if prefix == "" {
		prefix = "idempotency:"
	}

	return &StateTracker{client: client, prefix: prefix}
}

const (
	defaultLockDuration = time.Minute
	defaultStateTTL     = 24 * time.Hour
)

// Option customizes a single Exec call.
type Option func(*execOptions)

type execOptions struct {
	lockDuration time.Duration
	stateTTL     time.Duration
}

// WithLockDuration bounds how long an in-progress key blocks other executions.
func WithLockDuration(lockDuration time.Duration) Option {
	return func(o *execOptions) {
		o.lockDuration = lockDuration
	}
}

// WithStateTTL sets how long a completed result is kept.
func WithStateTTL(stateTTL time.Duration) Option {
	return func(o *execOptions) {
		o.stateTTL = stateTTL
	}
}

// Acquire tries to start an operation. On StateCompleted the stored result is returned.
func (s *StateTracker) Acquire(ctx context.Context, key string, lockDuration time.Duration) (State, string, error) {
	fk := s.prefix + key

	acquired, err := s.client.SetNX(ctx, fk, StateInProgress.String(), lockDuration).Result()
	if err != nil {
		return StateError, "", err
	}
	if acquired {
		return StateNone, "", nil
	}

	value, err := s.client.Get(ctx, fk).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SetNX and Get
		acquired, err = s.client.SetNX(ctx, fk, StateInProgress.String(), lockDuration).Result()
		if err != nil {
			return StateError, "", err
		}
		if acquired {
			return StateNone, "", nil
		}
		return StateError, "", ErrInvalidState
	}
	if err != nil {
		return StateError, "", err
	}

	if value == StateInProgress.String() {
		return StateInProgress, "", nil
	}

	if state, result, ok := strings.Cut(value, completedSep); ok && state == StateCompleted.String() {
		return StateCompleted, result, nil
	}

	return StateError, "", ErrInvalidState
}

// MarkCompleted stores result for key.
func (s *StateTracker) MarkCompleted(ctx context.Context, key, result string, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, StateCompleted.String()+completedSep+result, ttl).Err()
}

// Release forgets key so it can be executed again.
func (s *StateTracker) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

// Exec implements Idempotency.
func (s *StateTracker) Exec(
	ctx context.Context,
	key string,
	fn func(context.Context) (string, error),
	opts ...Option,
) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}

	execOpt := &execOptions{
		lockDuration: defaultLockDuration,
		stateTTL:     defaultStateTTL,
	}
	for _, opt := range opts {
		opt(execOpt)
	}
	if execOpt.lockDuration <= 0 {
		execOpt.lockDuration = defaultLockDuration
	}
	if execOpt.stateTTL <= 0 {
		execOpt.stateTTL = defaultStateTTL
	}

	state, stored, err := s.Acquire(ctx, key, execOpt.lockDuration)
	if err != nil {
		return "", false, err
	}

	switch state {
	case StateInProgress:
		return "", false, ErrAlreadyInProgress
	case StateCompleted:
		return stored, true, nil
	}

	result, err := fn(ctx)
	if err != nil {
		if relErr := s.Release(context.WithoutCancel(ctx), key); relErr != nil {
			return "", false, errors.Join(err, relErr)
		}
		return "", false, err
	}

	// fn already took effect. Reporting the store failure would make the
	// client retry and repeat it once the lock expires.
	if err := s.MarkCompleted(context.WithoutCancel(ctx), key, result, execOpt.stateTTL); err != nil {
		slog.WarnContext(ctx, "failed to store idempotent result", "key", key, "error", err)
	}

	return result, false, nil
}
