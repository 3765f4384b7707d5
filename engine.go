package quizAuth

import (
	"errors"
	"time"

	"github.com/quizdeck/quizAuth/account"
	"github.com/quizdeck/quizAuth/internal/rate"
	"github.com/quizdeck/quizAuth/password"
	"github.com/quizdeck/quizAuth/watch"
)

// Engine defines a public type used by quizAuth APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config      Config
	store       *account.Store
	watcher     *watch.Watcher
	rateLimiter *rate.Limiter
	audit       *auditDispatcher
	metrics     *Metrics
	shaHasher   *password.SHA256
	argonHasher *password.Argon2
	provider    CredentialProvider
	now         func() time.Time
}

// Close releases background resources (the audit dispatcher drain).
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// Store exposes the account record store for collaborators that need raw
// record access, such as the watch gateway in examples.
func (e *Engine) Store() *account.Store {
	if e == nil {
		return nil
	}
	return e.store
}

// AuditDropped returns how many audit events were discarded under
// backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the engine's counters and histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// activeHasher returns the digest writer selected by config.
func (e *Engine) activeHasher() password.Hasher {
	if e.config.Password.Scheme == SchemeArgon2id {
		return e.argonHasher
	}
	return e.shaHasher
}

// verifyStored checks plaintext against whatever the credential store holds:
// an argon2id PHC string, a hex digest, or (when neither) legacy plaintext.
func (e *Engine) verifyStored(plaintext, stored string) (ok, legacy bool, err error) {
	if !password.LooksHashed(stored) {
		return constantTimeEqual(plaintext, stored), true, nil
	}
	if stored != "" && stored[0] == '$' {
		ok, err = e.argonHasher.Verify(plaintext, stored)
		return ok, false, err
	}
	ok, err = e.shaHasher.Verify(plaintext, stored)
	return ok, false, err
}

func mapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, account.ErrRedisUnavailable), errors.Is(err, rate.ErrRedisUnavailable):
		return errors.Join(ErrStoreUnavailable, err)
	default:
		return err
	}
}
