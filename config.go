package quizAuth

import (
	"errors"
	"time"

	"github.com/quizdeck/quizAuth/password"
)

// Config defines a public type used by quizAuth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Session   SessionConfig
	Tab       TabConfig
	Password  PasswordConfig
	Watch     WatchConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by quizAuth APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	RedisPrefix string

	// TTL is the server-side expiry horizon. A session older than this
	// fails validation even when the id still matches. Note the client
	// cache runs its own, longer window (see package clientcache).
	TTL time.Duration
}

/*
====================================
TAB CONFIG
====================================
*/

// TabConfig defines a public type used by quizAuth APIs.
//
// TabConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TabConfig struct {
	// AuditStaleObservations emits an audit event when a tab observes that
	// it is no longer the account's current tab. Observation is all that
	// happens; the tab layer never forces a logout.
	AuditStaleObservations bool
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordScheme selects the digest written for new and upgraded
// credentials.
type PasswordScheme int

const (
	// SchemeSHA256Hex is the deterministic hex digest compatible with the
	// portal's existing records.
	SchemeSHA256Hex PasswordScheme = iota
	// SchemeArgon2id writes salted argon2id PHC digests.
	SchemeArgon2id
)

// PasswordConfig defines a public type used by quizAuth APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Scheme PasswordScheme
	Argon2 password.Argon2Config

	// UpgradeOnLogin rewrites legacy plaintext credential values as digests
	// on the first successful login that finds one.
	UpgradeOnLogin bool
}

/*
====================================
WATCH CONFIG
====================================
*/

// WatchConfig defines a public type used by quizAuth APIs.
//
// WatchConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type WatchConfig struct {
	ResubscribeMin time.Duration
	ResubscribeMax time.Duration
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig defines a public type used by quizAuth APIs.
//
// RateLimitConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RateLimitConfig struct {
	Enabled          bool
	EnableIPThrottle bool
	MaxLoginAttempts int
	LoginCooldown    time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig defines a public type used by quizAuth APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by quizAuth APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the configuration the portal ships with: 7-day
// server sessions, legacy-compatible password digests with upgrade-on-login,
// audit and metrics enabled.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			RedisPrefix: "qa",
			TTL:         7 * 24 * time.Hour,
		},
		Tab: TabConfig{
			AuditStaleObservations: true,
		},
		Password: PasswordConfig{
			Scheme:         SchemeSHA256Hex,
			Argon2:         password.DefaultArgon2Config(),
			UpgradeOnLogin: true,
		},
		Watch: WatchConfig{
			ResubscribeMin: 250 * time.Millisecond,
			ResubscribeMax: 10 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:          true,
			EnableIPThrottle: true,
			MaxLoginAttempts: 10,
			LoginCooldown:    5 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func defaultConfig() Config {
	return DefaultConfig()
}

func validateConfig(cfg Config) error {
	if cfg.Session.TTL <= 0 {
		return errors.New("session TTL must be positive")
	}
	if cfg.Session.RedisPrefix == "" {
		return errors.New("session redis prefix must not be empty")
	}
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.MaxLoginAttempts <= 0 {
			return errors.New("rate limit max login attempts must be positive")
		}
		if cfg.RateLimit.LoginCooldown <= 0 {
			return errors.New("rate limit login cooldown must be positive")
		}
	}
	if cfg.Watch.ResubscribeMin < 0 || cfg.Watch.ResubscribeMax < 0 {
		return errors.New("watch resubscribe intervals must not be negative")
	}
	if cfg.Watch.ResubscribeMax > 0 && cfg.Watch.ResubscribeMin > cfg.Watch.ResubscribeMax {
		return errors.New("watch resubscribe min must not exceed max")
	}
	return nil
}
