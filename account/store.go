package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRecordAbsent is returned when no record exists for the account id. All
// registry operations treat an absent record as "no session" rather than a
// fault.
var ErrRecordAbsent = errors.New("account record absent")

// ErrRecordCorrupt is returned when a stored record blob fails to decode.
var ErrRecordCorrupt = errors.New("account record corrupt")

// ErrRedisUnavailable is returned for transient store failures. Callers must
// not translate it into a cleared session.
var ErrRedisUnavailable = errors.New("redis unavailable")

const lockStripes = 64

// Store owns the account records, the session/tab pointers on them, and the
// bearer-token reverse index.
type Store struct {
	rdb        redis.UniversalClient
	prefix     string
	sessionTTL time.Duration

	locks [lockStripes]sync.Mutex
}

// NewStore creates a [Store] backed by the given Redis client. sessionTTL is
// the server-side expiry horizon applied by ValidateSession and the token
// index.
func NewStore(rdb redis.UniversalClient, prefix string, sessionTTL time.Duration) *Store {
	if prefix == "" {
		prefix = "qa"
	}
	return &Store{rdb: rdb, prefix: prefix, sessionTTL: sessionTTL}
}

func (s *Store) recordKey(accountID string) string {
	return s.prefix + ":acct:" + accountID
}

func (s *Store) tokenKey(token string) string {
	return s.prefix + ":tok:" + token
}

// Channel returns the pub/sub channel name carrying [Event] payloads for the
// account.
func (s *Store) Channel(accountID string) string {
	return s.prefix + ":watch:" + accountID
}

func (s *Store) lockFor(accountID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(accountID))
	return &s.locks[h.Sum32()%lockStripes]
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
}

// Get reads the current record. Absent accounts return [ErrRecordAbsent].
func (s *Store) Get(ctx context.Context, accountID string) (*Record, error) {
	raw, err := s.rdb.Get(ctx, s.recordKey(accountID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRecordAbsent
		}
		return nil, storeErr(err)
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, ErrRecordCorrupt
	}
	return &rec, nil
}

func (s *Store) save(ctx context.Context, rec *Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.recordKey(rec.AccountID), raw, 0).Err(); err != nil {
		return storeErr(err)
	}
	s.publish(ctx, rec.AccountID, Event{Record: rec})
	return nil
}

// publish is best-effort: delivery loss is acceptable because a later
// delivery carries the latest state, so publish errors are swallowed.
func (s *Store) publish(ctx context.Context, accountID string, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_ = s.rdb.Publish(ctx, s.Channel(accountID), payload).Err()
}

// DecodeEvent parses a watch channel payload.
func DecodeEvent(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrRecordCorrupt, err)
	}
	return ev, nil
}

// CreateSession writes a fresh session onto the account record, replacing
// any prior session fields unconditionally and re-pointing the token index.
//
// Mutations for the same account id are serialized within this process. The
// store performs no cross-process compare-and-swap: when two logins race
// from different processes both succeed and only the last write's session
// id remains valid, which the superseded client observes on its next
// validate or watch delivery.
func (s *Store) CreateSession(ctx context.Context, now time.Time, id Identity, sessionID, token string, dev DeviceSnapshot) error {
	mu := s.lockFor(id.AccountID)
	mu.Lock()
	defer mu.Unlock()

	rec, err := s.Get(ctx, id.AccountID)
	switch {
	case errors.Is(err, ErrRecordAbsent), errors.Is(err, ErrRecordCorrupt):
		rec = &Record{}
	case err != nil:
		return err
	}

	if rec.Token != "" && rec.Token != token {
		if err := s.rdb.Del(ctx, s.tokenKey(rec.Token)).Err(); err != nil {
			return storeErr(err)
		}
	}

	rec.Identity = id
	rec.SessionID = sessionID
	rec.Token = token
	rec.SessionCreatedAt = now.Unix()
	rec.Device = dev
	rec.LastActivityAt = now.Unix()

	if err := s.save(ctx, rec); err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.tokenKey(token), id.AccountID, s.sessionTTL).Err(); err != nil {
		return storeErr(err)
	}
	return nil
}

// ValidateSession reports whether sessionID is the account's current session
// and still inside the expiry horizon. A valid session has its last-activity
// timestamp refreshed as a side effect.
//
// Absent and corrupt records fail closed (false, nil). Only transient store
// failures surface as errors.
func (s *Store) ValidateSession(ctx context.Context, now time.Time, accountID, sessionID string) (bool, error) {
	mu := s.lockFor(accountID)
	mu.Lock()
	defer mu.Unlock()

	rec, err := s.Get(ctx, accountID)
	switch {
	case errors.Is(err, ErrRecordAbsent), errors.Is(err, ErrRecordCorrupt):
		return false, nil
	case err != nil:
		return false, err
	}

	if sessionID == "" || rec.SessionID != sessionID {
		return false, nil
	}
	if rec.SessionAge(now) > s.sessionTTL {
		return false, nil
	}

	rec.LastActivityAt = now.Unix()
	if err := s.save(ctx, rec); err != nil {
		return false, err
	}
	return true, nil
}

// ClearSession nulls the session fields and device snapshot. It is
// idempotent: clearing an absent record or an already-cleared session is a
// no-op.
func (s *Store) ClearSession(ctx context.Context, accountID string) error {
	mu := s.lockFor(accountID)
	mu.Lock()
	defer mu.Unlock()

	rec, err := s.Get(ctx, accountID)
	switch {
	case errors.Is(err, ErrRecordAbsent), errors.Is(err, ErrRecordCorrupt):
		return nil
	case err != nil:
		return err
	}

	return s.clearSessionLocked(ctx, rec)
}

// ClearSessionIf clears the session only while sessionID is still current.
// It exists for beacon-style unload cleanup, which otherwise could null out
// a newer session established by a login elsewhere.
func (s *Store) ClearSessionIf(ctx context.Context, accountID, sessionID string) (bool, error) {
	mu := s.lockFor(accountID)
	mu.Lock()
	defer mu.Unlock()

	rec, err := s.Get(ctx, accountID)
	switch {
	case errors.Is(err, ErrRecordAbsent), errors.Is(err, ErrRecordCorrupt):
		return false, nil
	case err != nil:
		return false, err
	}

	if sessionID == "" || rec.SessionID != sessionID {
		return false, nil
	}
	if err := s.clearSessionLocked(ctx, rec); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) clearSessionLocked(ctx context.Context, rec *Record) error {
	if !rec.HasSession() && rec.Token == "" {
		return nil
	}

	if rec.Token != "" {
		if err := s.rdb.Del(ctx, s.tokenKey(rec.Token)).Err(); err != nil {
			return storeErr(err)
		}
	}

	rec.SessionID = ""
	rec.Token = ""
	rec.SessionCreatedAt = 0
	rec.Device = DeviceSnapshot{}

	return s.save(ctx, rec)
}

// RegisterTab overwrites the account's current-tab pointer. It never touches
// the session dimension: the tab layer is observational only.
func (s *Store) RegisterTab(ctx context.Context, now time.Time, accountID, tabID string) error {
	mu := s.lockFor(accountID)
	mu.Lock()
	defer mu.Unlock()

	rec, err := s.Get(ctx, accountID)
	if err != nil {
		return err
	}

	rec.TabID = tabID
	rec.TabRegisteredAt = now.Unix()

	return s.save(ctx, rec)
}

// IsCurrentTab reports whether tabID is the most recently registered tab for
// the account. Absent records fail closed.
func (s *Store) IsCurrentTab(ctx context.Context, accountID, tabID string) (bool, error) {
	rec, err := s.Get(ctx, accountID)
	switch {
	case errors.Is(err, ErrRecordAbsent), errors.Is(err, ErrRecordCorrupt):
		return false, nil
	case err != nil:
		return false, err
	}
	return tabID != "" && rec.TabID == tabID, nil
}

// ClearTab nulls the tab pointer; idempotent.
func (s *Store) ClearTab(ctx context.Context, accountID string) error {
	mu := s.lockFor(accountID)
	mu.Lock()
	defer mu.Unlock()

	rec, err := s.Get(ctx, accountID)
	switch {
	case errors.Is(err, ErrRecordAbsent), errors.Is(err, ErrRecordCorrupt):
		return nil
	case err != nil:
		return err
	}

	if rec.TabID == "" {
		return nil
	}
	rec.TabID = ""
	rec.TabRegisteredAt = 0

	return s.save(ctx, rec)
}

// LookupByToken resolves a persisted bearer token back to the account record
// it belongs to. A token that no longer matches the record's current token
// (a stale index entry) resolves to [ErrRecordAbsent].
func (s *Store) LookupByToken(ctx context.Context, token string) (*Record, error) {
	if token == "" {
		return nil, ErrRecordAbsent
	}

	accountID, err := s.rdb.Get(ctx, s.tokenKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRecordAbsent
		}
		return nil, storeErr(err)
	}

	rec, err := s.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if rec.Token != token {
		return nil, ErrRecordAbsent
	}
	return rec, nil
}

// Delete removes the account record entirely and announces the absence on
// the watch channel. Deletion is an external admin operation; the engine
// itself never calls it.
func (s *Store) Delete(ctx context.Context, accountID string) error {
	mu := s.lockFor(accountID)
	mu.Lock()
	defer mu.Unlock()

	rec, err := s.Get(ctx, accountID)
	switch {
	case errors.Is(err, ErrRecordAbsent):
		return nil
	case errors.Is(err, ErrRecordCorrupt):
		rec = nil
	case err != nil:
		return err
	}

	if rec != nil && rec.Token != "" {
		if err := s.rdb.Del(ctx, s.tokenKey(rec.Token)).Err(); err != nil {
			return storeErr(err)
		}
	}
	if err := s.rdb.Del(ctx, s.recordKey(accountID)).Err(); err != nil {
		return storeErr(err)
	}

	s.publish(ctx, accountID, Event{Absent: true})
	return nil
}
