package clientcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/quizdeck/quizAuth/account"
)

// DefaultTTL is the client-side expiry window. It is intentionally more
// permissive than the server-side session horizon.
const DefaultTTL = 30 * 24 * time.Hour

// CachedSession is the record a device keeps between reloads.
type CachedSession struct {
	Account     account.Identity
	Token       string
	SessionID   string
	TabID       string
	PersistedAt time.Time
}

// Config tunes the cache.
type Config struct {
	// TTL is the expiry window; zero means [DefaultTTL].
	TTL time.Duration
}

// Cache is a SQLite-backed single-row session cache.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
}

// Open opens (or creates) the cache database at path and runs migrations.
func Open(path string, cfg Config) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("clientcache: open db: %w", err)
	}

	ctx := context.Background()

	// WAL plus a busy timeout so a second tab process sharing the profile
	// does not hit "database is locked".
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clientcache: set WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clientcache: set busy_timeout: %w", err)
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS session_cache (
		id           INTEGER PRIMARY KEY CHECK(id = 1),
		account_json TEXT    NOT NULL,
		token        TEXT    NOT NULL,
		session_id   TEXT    NOT NULL,
		tab_id       TEXT    NOT NULL DEFAULT '',
		persisted_at INTEGER NOT NULL
	);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clientcache: migrate: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{db: db, ttl: ttl}, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Persist stores the session record, replacing any previous one.
func (c *Cache) Persist(ctx context.Context, now time.Time, s CachedSession) error {
	accountJSON, err := json.Marshal(s.Account)
	if err != nil {
		return fmt.Errorf("clientcache: encode account: %w", err)
	}

	const stmt = `
	INSERT INTO session_cache (id, account_json, token, session_id, tab_id, persisted_at)
	VALUES (1, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		account_json = excluded.account_json,
		token        = excluded.token,
		session_id   = excluded.session_id,
		tab_id       = excluded.tab_id,
		persisted_at = excluded.persisted_at`
	if _, err := c.db.ExecContext(ctx, stmt, string(accountJSON), s.Token, s.SessionID, s.TabID, now.Unix()); err != nil {
		return fmt.Errorf("clientcache: persist: %w", err)
	}
	return nil
}

// Load returns the cached session, or nil when none exists or the record is
// older than the expiry window (in which case it self-clears). A successful
// load refreshes persisted-at, sliding the window forward.
func (c *Cache) Load(ctx context.Context, now time.Time) (*CachedSession, error) {
	const query = `
	SELECT account_json, token, session_id, tab_id, persisted_at
	FROM session_cache WHERE id = 1`

	var (
		accountJSON string
		s           CachedSession
		persistedAt int64
	)
	err := c.db.QueryRowContext(ctx, query).Scan(&accountJSON, &s.Token, &s.SessionID, &s.TabID, &persistedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("clientcache: load: %w", err)
	}

	s.PersistedAt = time.Unix(persistedAt, 0)
	if now.Sub(s.PersistedAt) > c.ttl {
		if err := c.Clear(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if err := json.Unmarshal([]byte(accountJSON), &s.Account); err != nil {
		// Unreadable snapshot: drop the cache instead of handing the caller
		// a half-record.
		if clearErr := c.Clear(ctx); clearErr != nil {
			return nil, clearErr
		}
		return nil, nil
	}

	if _, err := c.db.ExecContext(ctx,
		`UPDATE session_cache SET persisted_at = ? WHERE id = 1`, now.Unix()); err != nil {
		return nil, fmt.Errorf("clientcache: refresh window: %w", err)
	}
	s.PersistedAt = now
	return &s, nil
}

// Clear removes the cached session; idempotent.
func (c *Cache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM session_cache WHERE id = 1`); err != nil {
		return fmt.Errorf("clientcache: clear: %w", err)
	}
	return nil
}
