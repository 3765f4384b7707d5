package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	quizAuth "github.com/quizdeck/quizAuth"
	"github.com/quizdeck/quizAuth/password"
)

type accountState struct {
	id        string
	sessionID string
	mu        sync.Mutex
}

func main() {
	var (
		accounts    = flag.Int("accounts", 10000, "number of accounts to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase (login + validate)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "qa", "record key prefix")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  *redis.Client
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewClient(&redis.Options{Addr: addr})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewClient(&redis.Options{Addr: addr})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	provider := newMemProvider()
	digest, err := password.NewSHA256().Hash("load-test-password")
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash failed: %v\n", err)
		os.Exit(1)
	}

	states := make([]accountState, *accounts)
	fmt.Printf("seeding %d accounts...\n", *accounts)
	startSeed := time.Now()
	for i := 0; i < *accounts; i++ {
		id := fmt.Sprintf("acct-%d", i)
		states[i] = accountState{id: id}
		provider.put(quizAuth.CredentialRecord{
			AccountID:     id,
			DisplayName:   id,
			PasswordField: digest,
		})
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	cfg := quizAuth.DefaultConfig()
	cfg.Session.RedisPrefix = *prefix
	// Churn, not abuse: the limiter and audit stream would only distort the
	// measurement.
	cfg.RateLimit.Enabled = false
	cfg.Audit.Enabled = false

	engine, err := quizAuth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithCredentialProvider(provider).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	loginStats := runLoginPhase(ctx, engine, states, *ops, *concurrency)
	validateStats := runValidatePhase(ctx, engine, states, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("validate", validateStats)
}

// runLoginPhase hammers Login over random accounts. Repeat logins against
// the same account exercise the supersede path.
func runLoginPhase(ctx context.Context, engine *quizAuth.Engine, states []accountState, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				state := &states[r.Intn(len(states))]

				t0 := time.Now()
				res, err := engine.Login(ctx, state.id, "load-test-password")
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				} else {
					state.mu.Lock()
					state.sessionID = res.SessionID
					state.mu.Unlock()
				}

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

// runValidatePhase validates whatever session each account last established.
// A session overwritten between read and validate counts as a failure; under
// churn that is expected, not a bug.
func runValidatePhase(ctx context.Context, engine *quizAuth.Engine, states []accountState, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				state := &states[r.Intn(len(states))]

				state.mu.Lock()
				sid := state.sessionID
				state.mu.Unlock()
				if sid == "" {
					continue
				}

				t0 := time.Now()
				ok, err := engine.Validate(ctx, state.id, sid)
				d := time.Since(t0)
				if err != nil || !ok {
					atomic.AddInt64(&failures, 1)
				}

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

// memProvider is a lock-protected map; the real portal plugs its database in
// here.
type memProvider struct {
	mu      sync.RWMutex
	records map[string]quizAuth.CredentialRecord
}

func newMemProvider() *memProvider {
	return &memProvider{records: make(map[string]quizAuth.CredentialRecord)}
}

func (p *memProvider) put(rec quizAuth.CredentialRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records[rec.AccountID] = rec
}

func (p *memProvider) GetAccount(_ context.Context, accountID string) (quizAuth.CredentialRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rec, ok := p.records[accountID]
	if !ok {
		return quizAuth.CredentialRecord{}, quizAuth.ErrAccountNotFound
	}
	return rec, nil
}

func (p *memProvider) UpdatePasswordField(_ context.Context, accountID, newValue string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.records[accountID]
	if !ok {
		return quizAuth.ErrAccountNotFound
	}
	rec.PasswordField = newValue
	p.records[accountID] = rec
	return nil
}

func (p *memProvider) CreateAccount(_ context.Context, record quizAuth.CredentialRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.records[record.AccountID]; ok {
		return quizAuth.ErrAccountExists
	}
	p.records[record.AccountID] = record
	return nil
}
