// Package idempotency guards operations that must run at most once per key,
// keeping the outcome of each key in Redis.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

var (
	ErrAlreadyInProgress = errors.New("operation already in progress")
	ErrAlreadyCompleted  = errors.New("operation already completed")
	ErrAlreadyFailed     = errors.New("operation already failed")
	ErrInvalidState      = errors.New("invalid state")

	// ErrOutcomeNotRecorded means fn ran but its outcome could not be stored.
	ErrOutcomeNotRecorded = errors.New("operation outcome not recorded")
)

type State string

const (
	StateNone       State = "none"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateError      State = "error"
)

func (s State) String() string {
	return string(s)
}

func parseState(raw string) (State, error) {
	switch State(raw) {
	case StateInProgress, StateCompleted, StateFailed:
		return State(raw), nil
	default:
		return StateError, ErrInvalidState
	}
}

type Idempotency interface {
	Acquire(ctx context.Context, key string, lockDuration time.Duration) (State, error)
	MarkCompleted(ctx context.Context, key string, ttl time.Duration) error
	MarkFailed(ctx context.Context, key string, ttl time.Duration) error
	Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error
}

// StateTracker stores one state string per key. Requires Redis 7 for SET NX GET.
type StateTracker struct {
	client      redis.UniversalClient
	prefix      string
	markBackoff func() retry.Backoff
}

type TrackerOption func(*StateTracker)

// WithPrefix namespaces every key; the default is "idempotency:".
func WithPrefix(prefix string) TrackerOption {
	return func(s *StateTracker) { s.prefix = prefix }
}

func New(client redis.UniversalClient, opts ...TrackerOption) *StateTracker {
	s := &StateTracker{client: client, prefix: "idempotency:", markBackoff: defaultMarkBackoff}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func defaultMarkBackoff() retry.Backoff {
	return retry.WithMaxRetries(4, retry.NewExponential(100*time.Millisecond))
}

const (
	defaultLockDuration = time.Minute
	defaultStateTTL     = 24 * time.Hour
)

type Option func(*execOptions)

type execOptions struct {
	lockDuration time.Duration
	stateTTL     time.Duration
}

// WithLockDuration bounds how long an in-progress key blocks other callers.
func WithLockDuration(d time.Duration) Option {
	return func(o *execOptions) { o.lockDuration = d }
}

// WithStateTTL sets how long a completed or failed outcome is remembered.
func WithStateTTL(d time.Duration) Option {
	return func(o *execOptions) { o.stateTTL = d }
}

// Acquire marks key in progress and returns StateNone when the caller owns it.
// Otherwise it returns the state another caller left behind.
func (s *StateTracker) Acquire(ctx context.Context, key string, lockDuration time.Duration) (State, error) {
	prev, err := s.client.SetArgs(ctx, s.prefix+key, StateInProgress.String(), redis.SetArgs{
		Mode: "NX",
		TTL:  lockDuration,
		Get:  true,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return StateNone, nil
	}
	if err != nil {
		return StateError, err
	}

	return parseState(prev)
}

func (s *StateTracker) MarkCompleted(ctx context.Context, key string, ttl time.Duration) error {
	return s.mark(ctx, key, StateCompleted, ttl)
}

func (s *StateTracker) MarkFailed(ctx context.Context, key string, ttl time.Duration) error {
	return s.mark(ctx, key, StateFailed, ttl)
}

// Exec runs fn once per key. The outcome is recorded even when ctx was
// cancelled while fn ran, so a retry sees the real state.
func (s *StateTracker) Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error {
	o := &execOptions{lockDuration: defaultLockDuration, stateTTL: defaultStateTTL}
	for _, opt := range opts {
		opt(o)
	}
	if o.lockDuration <= 0 {
		o.lockDuration = defaultLockDuration
	}
	if o.stateTTL <= 0 {
		o.stateTTL = defaultStateTTL
	}

	state, err := s.Acquire(ctx, key, o.lockDuration)
	if err != nil {
		return err
	}

	switch state {
	case StateInProgress:
		return ErrAlreadyInProgress
	case StateCompleted:
		return ErrAlreadyCompleted
	case StateFailed:
		return ErrAlreadyFailed
	}

	markCtx := context.WithoutCancel(ctx)
	if errFn := fn(ctx); errFn != nil {
		if err := s.mark(markCtx, key, StateFailed, o.stateTTL); err != nil {
			return errors.Join(errFn, err)
		}
		return errFn
	}

	return s.mark(markCtx, key, StateCompleted, o.stateTTL)
}

// mark retries the final write; a lost outcome would let the key be claimed
// again once the lock expires.
func (s *StateTracker) mark(ctx context.Context, key string, state State, ttl time.Duration) error {
	err := retry.Do(ctx, s.markBackoff(), func(ctx context.Context) error {
		return retry.RetryableError(s.client.Set(ctx, s.prefix+key, state.String(), ttl).Err())
	})
	if err != nil {
		return fmt.Errorf("%w as %s: %w", ErrOutcomeNotRecorded, state, err)
	}
	return nil
}
