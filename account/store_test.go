package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testTTL = 7 * 24 * time.Hour

func newStoreTest(t *testing.T) (*Store, *redis.Client, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(rdb, "qa", testTTL)
	return store, rdb, func() {
		rdb.Close()
		mr.Close()
	}
}

func testIdentity(accountID string) Identity {
	return Identity{
		AccountID:   accountID,
		DisplayName: "Dana Vu",
		Roles:       []string{"student"},
	}
}

func TestCreateSessionOverwritesPriorSession(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()
	ctx := context.Background()
	now := time.Now()

	if err := store.CreateSession(ctx, now, testIdentity("s-100"), "sid-1", "tok-1", DeviceSnapshot{}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if err := store.CreateSession(ctx, now, testIdentity("s-100"), "sid-2", "tok-2", DeviceSnapshot{}); err != nil {
		t.Fatalf("second create: %v", err)
	}

	ok, err := store.ValidateSession(ctx, now, "s-100", "sid-1")
	if err != nil {
		t.Fatalf("validate old: %v", err)
	}
	if ok {
		t.Fatal("superseded session still validates")
	}

	ok, err = store.ValidateSession(ctx, now, "s-100", "sid-2")
	if err != nil {
		t.Fatalf("validate new: %v", err)
	}
	if !ok {
		t.Fatal("current session does not validate")
	}
}

func TestCreateSessionRetiresOldTokenIndex(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()
	ctx := context.Background()
	now := time.Now()

	if err := store.CreateSession(ctx, now, testIdentity("s-100"), "sid-1", "tok-1", DeviceSnapshot{}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if err := store.CreateSession(ctx, now, testIdentity("s-100"), "sid-2", "tok-2", DeviceSnapshot{}); err != nil {
		t.Fatalf("second create: %v", err)
	}

	if _, err := store.LookupByToken(ctx, "tok-1"); !errors.Is(err, ErrRecordAbsent) {
		t.Fatalf("old token should be gone, got %v", err)
	}

	rec, err := store.LookupByToken(ctx, "tok-2")
	if err != nil {
		t.Fatalf("lookup new token: %v", err)
	}
	if rec.SessionID != "sid-2" {
		t.Fatalf("lookup resolved session %q, want sid-2", rec.SessionID)
	}
}

func TestValidateSessionExpiryHorizon(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()
	ctx := context.Background()
	created := time.Now()

	if err := store.CreateSession(ctx, created, testIdentity("s-100"), "sid-1", "tok-1", DeviceSnapshot{}); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Exact id match, but past the horizon.
	later := created.Add(testTTL + time.Hour)
	ok, err := store.ValidateSession(ctx, later, "s-100", "sid-1")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if ok {
		t.Fatal("expired session validates")
	}
}

func TestValidateSessionRefreshesLastActivity(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()
	ctx := context.Background()
	created := time.Now()

	if err := store.CreateSession(ctx, created, testIdentity("s-100"), "sid-1", "tok-1", DeviceSnapshot{}); err != nil {
		t.Fatalf("create: %v", err)
	}

	later := created.Add(time.Hour)
	if ok, err := store.ValidateSession(ctx, later, "s-100", "sid-1"); err != nil || !ok {
		t.Fatalf("validate: ok=%v err=%v", ok, err)
	}

	rec, err := store.Get(ctx, "s-100")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.LastActivityAt != later.Unix() {
		t.Fatalf("last activity %d, want %d", rec.LastActivityAt, later.Unix())
	}
}

func TestValidateSessionFailsClosedOnAbsentRecord(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	ok, err := store.ValidateSession(ctx, time.Now(), "never-seen", "sid-1")
	if err != nil {
		t.Fatalf("validate absent: %v", err)
	}
	if ok {
		t.Fatal("absent record validates")
	}
}

func TestClearSessionIdempotent(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()
	ctx := context.Background()
	now := time.Now()

	if err := store.CreateSession(ctx, now, testIdentity("s-100"), "sid-1", "tok-1", DeviceSnapshot{}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := store.ClearSession(ctx, "s-100"); err != nil {
		t.Fatalf("first clear: %v", err)
	}
	if err := store.ClearSession(ctx, "s-100"); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	if err := store.ClearSession(ctx, "never-seen"); err != nil {
		t.Fatalf("clear absent: %v", err)
	}

	rec, err := store.Get(ctx, "s-100")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.HasSession() || rec.Token != "" || rec.Device.Platform != "" {
		t.Fatalf("session fields survive clear: %+v", rec)
	}
	if _, err := store.LookupByToken(ctx, "tok-1"); !errors.Is(err, ErrRecordAbsent) {
		t.Fatalf("token index survives clear, got %v", err)
	}
}

func TestClearSessionIfOnlyClearsMatchingSession(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()
	ctx := context.Background()
	now := time.Now()

	if err := store.CreateSession(ctx, now, testIdentity("s-100"), "sid-2", "tok-2", DeviceSnapshot{}); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Late unload beacon from the session that was already replaced.
	cleared, err := store.ClearSessionIf(ctx, "s-100", "sid-1")
	if err != nil {
		t.Fatalf("conditional clear stale: %v", err)
	}
	if cleared {
		t.Fatal("stale conditional clear removed a newer session")
	}
	if ok, _ := store.ValidateSession(ctx, now, "s-100", "sid-2"); !ok {
		t.Fatal("newer session lost")
	}

	cleared, err = store.ClearSessionIf(ctx, "s-100", "sid-2")
	if err != nil {
		t.Fatalf("conditional clear current: %v", err)
	}
	if !cleared {
		t.Fatal("matching conditional clear did nothing")
	}
}

func TestTabRegistrationLeavesSessionValid(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()
	ctx := context.Background()
	now := time.Now()

	if err := store.CreateSession(ctx, now, testIdentity("s-100"), "sid-1", "tok-1", DeviceSnapshot{}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.RegisterTab(ctx, now, "s-100", "tab-1"); err != nil {
		t.Fatalf("register tab-1: %v", err)
	}
	if err := store.RegisterTab(ctx, now, "s-100", "tab-2"); err != nil {
		t.Fatalf("register tab-2: %v", err)
	}

	if ok, _ := store.IsCurrentTab(ctx, "s-100", "tab-1"); ok {
		t.Fatal("superseded tab still current")
	}
	if ok, _ := store.IsCurrentTab(ctx, "s-100", "tab-2"); !ok {
		t.Fatal("latest tab not current")
	}

	// The session created under tab-1 must be untouched.
	if ok, _ := store.ValidateSession(ctx, now, "s-100", "sid-1"); !ok {
		t.Fatal("tab registration invalidated the session")
	}
}

func TestClearTabIdempotent(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()
	ctx := context.Background()
	now := time.Now()

	if err := store.CreateSession(ctx, now, testIdentity("s-100"), "sid-1", "tok-1", DeviceSnapshot{}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.RegisterTab(ctx, now, "s-100", "tab-1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := store.ClearTab(ctx, "s-100"); err != nil {
		t.Fatalf("first clear: %v", err)
	}
	if err := store.ClearTab(ctx, "s-100"); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	if err := store.ClearTab(ctx, "never-seen"); err != nil {
		t.Fatalf("clear absent: %v", err)
	}
}

func TestLookupByTokenRejectsStaleIndexEntry(t *testing.T) {
	store, rdb, done := newStoreTest(t)
	defer done()
	ctx := context.Background()
	now := time.Now()

	if err := store.CreateSession(ctx, now, testIdentity("s-100"), "sid-1", "tok-1", DeviceSnapshot{}); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Simulate a stale reverse-index entry pointing at the record.
	if err := rdb.Set(ctx, "qa:tok:tok-stale", "s-100", 0).Err(); err != nil {
		t.Fatalf("seed stale index: %v", err)
	}

	if _, err := store.LookupByToken(ctx, "tok-stale"); !errors.Is(err, ErrRecordAbsent) {
		t.Fatalf("stale token resolved, got %v", err)
	}
}

func TestDeleteRemovesRecordAndToken(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()
	ctx := context.Background()
	now := time.Now()

	if err := store.CreateSession(ctx, now, testIdentity("s-100"), "sid-1", "tok-1", DeviceSnapshot{}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Delete(ctx, "s-100"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := store.Get(ctx, "s-100"); !errors.Is(err, ErrRecordAbsent) {
		t.Fatalf("record survives delete, got %v", err)
	}
	if _, err := store.LookupByToken(ctx, "tok-1"); !errors.Is(err, ErrRecordAbsent) {
		t.Fatalf("token survives delete, got %v", err)
	}
	if err := store.Delete(ctx, "s-100"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}
