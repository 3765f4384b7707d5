package quizAuth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/quizdeck/quizAuth/password"
)

// fakeProvider is an in-memory credential store for engine tests.
type fakeProvider struct {
	mu      sync.Mutex
	records map[string]CredentialRecord
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{records: map[string]CredentialRecord{}}
}

func (p *fakeProvider) add(rec CredentialRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records[rec.AccountID] = rec
}

func (p *fakeProvider) passwordField(accountID string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.records[accountID].PasswordField
}

func (p *fakeProvider) GetAccount(_ context.Context, accountID string) (CredentialRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.records[accountID]
	if !ok {
		return CredentialRecord{}, ErrAccountNotFound
	}
	return rec, nil
}

func (p *fakeProvider) UpdatePasswordField(_ context.Context, accountID, newValue string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.records[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	rec.PasswordField = newValue
	p.records[accountID] = rec
	return nil
}

func (p *fakeProvider) CreateAccount(_ context.Context, record CredentialRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.records[record.AccountID]; ok {
		return ErrAccountExists
	}
	p.records[record.AccountID] = record
	return nil
}

// testClock is a movable time source wired in through WithClock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now()}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	engine   *Engine
	provider *fakeProvider
	clock    *testClock
	redis    *miniredis.Miniredis
}

func newTestEnv(t *testing.T, mutate func(*Builder)) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	provider := newFakeProvider()
	clock := newTestClock()

	b := New().
		WithRedis(rdb).
		WithCredentialProvider(provider).
		WithClock(clock.Now)
	if mutate != nil {
		mutate(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}

	t.Cleanup(func() {
		engine.Close()
		rdb.Close()
		mr.Close()
	})

	return &testEnv{engine: engine, provider: provider, clock: clock, redis: mr}
}

func sha256Field(t *testing.T, plaintext string) string {
	t.Helper()
	digest, err := password.NewSHA256().Hash(plaintext)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return digest
}

func seedAccount(t *testing.T, env *testEnv, accountID, plaintext string) {
	t.Helper()
	env.provider.add(CredentialRecord{
		AccountID:     accountID,
		DisplayName:   "Test Student",
		Roles:         []string{"student"},
		PasswordField: sha256Field(t, plaintext),
	})
}
