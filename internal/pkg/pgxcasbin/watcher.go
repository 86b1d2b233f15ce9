package pgxcasbin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/casbin/casbin/v3/persist"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
)

var _ persist.Watcher = (*Watcher)(nil)

type WatcherOptions struct {
	// Channel is the postgres NOTIFY channel; replicas sharing it share policy.
	Channel string
	// LocalID tags this replica's notifications so it does not reload its own change.
	LocalID string
}

// Watcher broadcasts "policy changed" over LISTEN/NOTIFY. Every change makes
// the other replicas reload the full policy, which is small.
type Watcher struct {
	pool    *pgxpool.Pool
	channel string
	localID string

	mu       sync.RWMutex
	callback func(string)

	cancel context.CancelFunc
	done   chan struct{}
}

func NewWatcherWithPool(ctx context.Context, pool *pgxpool.Pool, opt WatcherOptions) (*Watcher, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("pgxcasbin: ping: %w", err)
	}
	if opt.Channel == "" {
		opt.Channel = "casbin_policy"
	}
	if opt.LocalID == "" {
		opt.LocalID = uuid.NewString()
	}

	listenCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w := &Watcher{
		pool:    pool,
		channel: opt.Channel,
		localID: opt.LocalID,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go w.run(listenCtx)
	return w, nil
}

func (w *Watcher) SetUpdateCallback(fn func(string)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callback = fn
	return nil
}

// Update tells the other replicas to reload.
func (w *Watcher) Update() error {
	if _, err := w.pool.Exec(context.Background(), "SELECT pg_notify($1, $2)", w.channel, w.localID); err != nil {
		return fmt.Errorf("pgxcasbin: notify %s: %w", w.channel, err)
	}
	return nil
}

// Close stops listening and waits for the listener to exit. The pool stays open.
func (w *Watcher) Close() {
	w.cancel()
	<-w.done
}

// run keeps a LISTEN connection open, reconnecting with backoff until ctx ends.
func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)

	b := retry.WithCappedDuration(5*time.Second, retry.NewFibonacci(200*time.Millisecond))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		err := w.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		slog.WarnContext(ctx, "casbin watcher lost its connection", "channel", w.channel, "error", err)
		return retry.RetryableError(err)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("casbin watcher stopped", "channel", w.channel, "error", err)
	}
}

func (w *Watcher) listen(ctx context.Context) error {
	conn, err := w.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{w.channel}.Sanitize()); err != nil {
		return err
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		if n.Payload == w.localID {
			continue
		}

		w.mu.RLock()
		fn := w.callback
		w.mu.RUnlock()
		if fn != nil {
			fn(n.Payload)
		}
	}
}
