package tablock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	// DefaultHeartbeat is the renewal interval; it must stay well below the
	// takeover timeout.
	DefaultHeartbeat = 5 * time.Second
	// DefaultTimeout is how stale a lock row may grow before another tab may
	// take it over, under the default heartbeat. A zero Timeout is derived
	// as three heartbeats.
	DefaultTimeout = 3 * DefaultHeartbeat
)

// Config tunes the lock.
type Config struct {
	Heartbeat time.Duration
	Timeout   time.Duration
	// Disabled turns the lock into a no-op that always reports ownership.
	Disabled bool
}

// Lock is a heartbeat-renewed local lock record shared by the tabs of one
// device profile.
type Lock struct {
	db    *sql.DB
	tabID string
	cfg   Config

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// Open opens (or creates) the lock database at path for the given tab id.
func Open(path, tabID string, cfg Config) (*Lock, error) {
	if tabID == "" {
		return nil, errors.New("tablock: empty tab id")
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = DefaultHeartbeat
	}
	if cfg.Timeout <= cfg.Heartbeat {
		// Scale with the heartbeat: a fixed fallback would sit below a long
		// heartbeat and mark every live owner stale.
		cfg.Timeout = 3 * cfg.Heartbeat
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("tablock: open db: %w", err)
	}

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("tablock: set WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("tablock: set busy_timeout: %w", err)
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS tab_lock (
		id           INTEGER PRIMARY KEY CHECK(id = 1),
		owner_tab_id TEXT    NOT NULL,
		updated_at   INTEGER NOT NULL
	);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("tablock: migrate: %w", err)
	}

	return &Lock{db: db, tabID: tabID, cfg: cfg}, nil
}

// Start begins the heartbeat loop. onContended is invoked (from the
// heartbeat goroutine) with the owning tab id each time the lock is found
// held by another live tab; it may be nil.
func (l *Lock) Start(onContended func(ownerTabID string)) {
	if l.cfg.Disabled {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return
	}
	l.started = true

	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.done = make(chan struct{})

	go l.run(ctx, onContended)
}

func (l *Lock) run(ctx context.Context, onContended func(string)) {
	defer close(l.done)

	ticker := time.NewTicker(l.cfg.Heartbeat)
	defer ticker.Stop()

	l.beat(ctx, onContended)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.beat(ctx, onContended)
		}
	}
}

// beat renews ownership if this tab holds the lock or the holder has gone
// stale; otherwise it reports the contention and leaves the row alone.
func (l *Lock) beat(ctx context.Context, onContended func(string)) {
	owner, updatedAt, err := l.read(ctx)
	if err != nil {
		// Local I/O hiccup: skip this cycle, the next heartbeat retries.
		return
	}

	now := time.Now()
	stale := now.Sub(updatedAt) > l.cfg.Timeout

	if owner == "" || owner == l.tabID || stale {
		_ = l.write(ctx, now)
		return
	}
	if onContended != nil {
		onContended(owner)
	}
}

func (l *Lock) read(ctx context.Context) (owner string, updatedAt time.Time, err error) {
	var ts int64
	err = l.db.QueryRowContext(ctx,
		`SELECT owner_tab_id, updated_at FROM tab_lock WHERE id = 1`).Scan(&owner, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return "", time.Time{}, nil
	}
	if err != nil {
		return "", time.Time{}, err
	}
	return owner, time.UnixMilli(ts), nil
}

func (l *Lock) write(ctx context.Context, now time.Time) error {
	const stmt = `
	INSERT INTO tab_lock (id, owner_tab_id, updated_at) VALUES (1, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		owner_tab_id = excluded.owner_tab_id,
		updated_at   = excluded.updated_at`
	_, err := l.db.ExecContext(ctx, stmt, l.tabID, now.UnixMilli())
	return err
}

// OwnedByThisTab reports whether the lock row currently names this tab.
func (l *Lock) OwnedByThisTab(ctx context.Context) (bool, error) {
	if l.cfg.Disabled {
		return true, nil
	}
	owner, _, err := l.read(ctx)
	if err != nil {
		return false, err
	}
	return owner == l.tabID, nil
}

// stopHeartbeat halts the renewal loop without touching the row, leaving it
// to go stale the way a crashed tab's would.
func (l *Lock) stopHeartbeat() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		l.cancel()
		<-l.done
		l.started = false
	}
}

// Release stops the heartbeat and clears the row if this tab owns it. It is
// the visibility-change/unload analog and is safe to call more than once.
func (l *Lock) Release() {
	l.stopHeartbeat()

	if l.cfg.Disabled {
		return
	}
	ctx := context.Background()
	_, _ = l.db.ExecContext(ctx,
		`DELETE FROM tab_lock WHERE id = 1 AND owner_tab_id = ?`, l.tabID)
}

// Close releases the lock and closes the database.
func (l *Lock) Close() error {
	l.Release()
	return l.db.Close()
}
