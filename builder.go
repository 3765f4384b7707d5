package quizAuth

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quizdeck/quizAuth/account"
	"github.com/quizdeck/quizAuth/internal/rate"
	"github.com/quizdeck/quizAuth/password"
	"github.com/quizdeck/quizAuth/watch"
)

// Builder defines a public type used by quizAuth APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  *redis.Client

	provider  CredentialProvider
	auditSink AuditSink
	clock     func() time.Time

	built bool
}

// New starts a [Builder] with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder's configuration wholesale.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the Redis client backing the record store, watch channel,
// and rate limiter.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithCredentialProvider sets the external credential source.
func (b *Builder) WithCredentialProvider(p CredentialProvider) *Builder {
	b.provider = p
	return b
}

// WithAuditSink sets the destination for audit events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles metric collection.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithClock overrides the engine's time source; tests use it to age
// sessions past the expiry horizon.
func (b *Builder) WithClock(clock func() time.Time) *Builder {
	b.clock = clock
	return b
}

// Build validates the configuration and assembles the [Engine]. A Builder
// builds at most once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client is required")
	}
	if b.provider == nil {
		return nil, errors.New("credential provider is required")
	}
	if err := validateConfig(b.config); err != nil {
		return nil, err
	}

	argonHasher, err := password.NewArgon2(b.config.Password.Argon2)
	if err != nil {
		return nil, err
	}

	store := account.NewStore(b.redis, b.config.Session.RedisPrefix, b.config.Session.TTL)
	watcher := watch.NewWatcher(b.redis, store, watch.Config{
		ResubscribeMin: b.config.Watch.ResubscribeMin,
		ResubscribeMax: b.config.Watch.ResubscribeMax,
	})

	var limiter *rate.Limiter
	if b.config.RateLimit.Enabled {
		limiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle:      b.config.RateLimit.EnableIPThrottle,
			MaxLoginAttempts:      b.config.RateLimit.MaxLoginAttempts,
			LoginCooldownDuration: b.config.RateLimit.LoginCooldown,
		})
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	b.built = true
	return &Engine{
		config:      b.config,
		store:       store,
		watcher:     watcher,
		rateLimiter: limiter,
		audit:       newAuditDispatcher(b.config.Audit, b.auditSink),
		metrics:     NewMetrics(b.config.Metrics),
		shaHasher:   password.NewSHA256(),
		argonHasher: argonHasher,
		provider:    b.provider,
		now:         clock,
	}, nil
}
