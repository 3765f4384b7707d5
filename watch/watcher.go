package watch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"

	"github.com/quizdeck/quizAuth/account"
)

// Config tunes the resubscribe behavior after a lost pub/sub connection.
type Config struct {
	ResubscribeMin time.Duration
	ResubscribeMax time.Duration
}

// DefaultConfig returns the resubscribe timings used when a zero Config is
// supplied.
func DefaultConfig() Config {
	return Config{
		ResubscribeMin: 250 * time.Millisecond,
		ResubscribeMax: 10 * time.Second,
	}
}

// Watcher fans account record changes out to per-account subscriptions.
type Watcher struct {
	rdb   redis.UniversalClient
	store *account.Store
	cfg   Config
}

// NewWatcher creates a [Watcher] reading snapshots from store and change
// signals from the store's pub/sub channels.
func NewWatcher(rdb redis.UniversalClient, store *account.Store, cfg Config) *Watcher {
	if cfg.ResubscribeMin <= 0 {
		cfg.ResubscribeMin = DefaultConfig().ResubscribeMin
	}
	if cfg.ResubscribeMax <= 0 {
		cfg.ResubscribeMax = DefaultConfig().ResubscribeMax
	}
	return &Watcher{rdb: rdb, store: store, cfg: cfg}
}

// Subscribe opens a watch on the account record and returns its unsubscribe
// function.
//
// onChange receives the current record once shortly after subscription, then
// once per observed mutation, always from a single goroutine. An absent
// event means the account is gone server-side. The returned function is safe
// to call from any goroutine and from multiple exit paths; it blocks until
// the delivery goroutine has stopped, so no delivery follows its return.
func (w *Watcher) Subscribe(parent context.Context, accountID string, onChange func(account.Event)) func() {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go w.run(ctx, accountID, onChange, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}

func (w *Watcher) run(ctx context.Context, accountID string, onChange func(account.Event), done chan<- struct{}) {
	defer close(done)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = w.cfg.ResubscribeMin
	bo.MaxInterval = w.cfg.ResubscribeMax
	bo.MaxElapsedTime = 0

	for {
		err := w.stream(ctx, accountID, onChange)
		if err == nil || ctx.Err() != nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(bo.NextBackOff()):
		}
	}
}

// stream runs one subscription until the context is canceled (returns nil)
// or the connection breaks (returns the cause for the backoff loop).
func (w *Watcher) stream(ctx context.Context, accountID string, onChange func(account.Event)) error {
	ps := w.rdb.Subscribe(ctx, w.store.Channel(accountID))
	defer func() { _ = ps.Close() }()

	// Confirm the subscription before reading the snapshot so mutations
	// between the two are not lost.
	if _, err := ps.Receive(ctx); err != nil {
		return err
	}

	if err := w.deliverSnapshot(ctx, accountID, onChange); err != nil {
		return err
	}

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return account.ErrRedisUnavailable
			}
			ev, err := account.DecodeEvent([]byte(msg.Payload))
			if err != nil {
				continue
			}
			onChange(ev)
		}
	}
}

func (w *Watcher) deliverSnapshot(ctx context.Context, accountID string, onChange func(account.Event)) error {
	rec, err := w.store.Get(ctx, accountID)
	switch {
	case err == nil:
		onChange(account.Event{Record: rec})
		return nil
	case errors.Is(err, account.ErrRecordAbsent), errors.Is(err, account.ErrRecordCorrupt):
		onChange(account.Event{Absent: true})
		return nil
	default:
		// Transient read failure: resubscribe rather than fabricating an
		// absence that would force a spurious logout.
		return err
	}
}
