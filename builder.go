package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/MrEthical07/authcore/internal"
	"github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/metrics"
	"github.com/MrEthical07/authcore/keyring"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/ratelimit"
	"github.com/MrEthical07/authcore/token"
)

// Builder defines a public type used by authcore APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	credentials   CredentialStore
	sessions      SessionStore
	refreshTokens RefreshTokenStore

	keys      keyring.Provider
	auditSink AuditSink
	logger    *zerolog.Logger
	now       func() time.Time

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis wires a Redis client used for distributed rate limiting.
// Without it, limits are enforced per process in memory.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCredentialStore describes the withcredentialstore operation and its observable behavior.
//
// WithCredentialStore may return an error when input validation, dependency calls, or security checks fail.
// WithCredentialStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.credentials = store
	return b
}

// WithSessionStore describes the withsessionstore operation and its observable behavior.
//
// WithSessionStore may return an error when input validation, dependency calls, or security checks fail.
// WithSessionStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithSessionStore(store SessionStore) *Builder {
	b.sessions = store
	return b
}

// WithRefreshTokenStore describes the withrefreshtokenstore operation and its observable behavior.
//
// WithRefreshTokenStore may return an error when input validation, dependency calls, or security checks fail.
// WithRefreshTokenStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRefreshTokenStore(store RefreshTokenStore) *Builder {
	b.refreshTokens = store
	return b
}

// WithKeys overrides the default file-based RSA key provider.
func (b *Builder) WithKeys(provider keyring.Provider) *Builder {
	b.keys = provider
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger describes the withlogger operation and its observable behavior.
//
// WithLogger may return an error when input validation, dependency calls, or security checks fail.
// WithLogger does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = &logger
	return b
}

// WithClock overrides the engine clock. Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.credentials == nil {
		return nil, errors.New("credential store required")
	}
	if b.sessions == nil {
		return nil, errors.New("session store required")
	}
	if b.refreshTokens == nil {
		return nil, errors.New("refresh token store required")
	}

	engine := &Engine{
		config:        cfg,
		credentials:   b.credentials,
		sessions:      b.sessions,
		refreshTokens: b.refreshTokens,
		now:           time.Now,
	}
	if b.now != nil {
		engine.now = b.now
	}
	if b.logger != nil {
		engine.logger = *b.logger
	} else {
		engine.logger = zerolog.Nop()
	}

	// -------- KEYS AND TOKENS --------
	keys := b.keys
	if keys == nil {
		fileKeys, err := keyring.NewFile(keyring.Config{
			Dir:  cfg.Keys.Dir,
			Bits: cfg.Keys.Bits,
		})
		if err != nil {
			return nil, err
		}
		keys = fileKeys
	}
	engine.keys = keys

	tm, err := token.NewManager(token.Config{
		Issuer:          cfg.Token.Issuer,
		Audience:        cfg.Token.Audience,
		Leeway:          cfg.Token.Leeway,
		AccessTTL:       cfg.Token.AccessTTL,
		RefreshTTL:      cfg.Token.RefreshTTL,
		VerificationTTL: cfg.Token.VerificationTTL,
		ResetTTL:        cfg.Token.ResetTTL,
		MFATTL:          cfg.Token.MFATTL,
	}, keys)
	if err != nil {
		return nil, err
	}
	engine.tokens = tm

	// -------- PASSWORD HASHER --------
	hasher, err := password.NewHasher(password.Params{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	engine.hasher = hasher

	// The dummy hash keeps unknown-identifier logins as slow as real
	// password mismatches.
	decoy, err := internal.NewOpaqueToken(internal.MinOpaqueSize)
	if err != nil {
		return nil, err
	}
	engine.dummyHash, err = hasher.Hash(decoy)
	if err != nil {
		return nil, err
	}

	// -------- RATE LIMITER --------
	if cfg.RateLimit.Enabled {
		limits := map[string]ratelimit.Limit{
			"login":    cfg.RateLimit.Login,
			"register": cfg.RateLimit.Register,
			"refresh":  cfg.RateLimit.Refresh,
		}
		var primary ratelimit.Backend
		if b.redis != nil {
			primary = ratelimit.NewRedisBackend(b.redis, cfg.RateLimit.RedisPrefix)
		}
		limiter, err := ratelimit.NewLimiter(limits, primary, nil, engine.logger)
		if err != nil {
			return nil, err
		}
		limiter.FailOpen = func(class, identifier string, cause error) {
			engine.metricInc(metrics.MetricRateLimitFailOpen)
			engine.emitAudit(context.Background(), auditEventRateLimitFailOpen, false, "", "", cause, func() map[string]string {
				return map[string]string{
					"class": class,
				}
			})
		}
		engine.limiter = limiter
	}

	// -------- AUDIT AND METRICS --------
	engine.audit = audit.NewDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = metrics.New(cfg.Metrics)

	engine.deps = engine.buildFlowDeps()

	b.built = true

	return engine, nil
}
