package authcore

import (
	"errors"
	"time"

	"github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/metrics"
	"github.com/MrEthical07/authcore/ratelimit"
)

// Config defines a public type used by authcore APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Password  PasswordConfig
	Keys      KeyConfig
	Token     TokenConfig
	Session   SessionConfig
	Lockout   LockoutConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by authcore APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
}

/*
====================================
KEY CONFIG
====================================
*/

// KeyConfig defines a public type used by authcore APIs.
//
// KeyConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type KeyConfig struct {
	Dir  string
	Bits int
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig defines a public type used by authcore APIs.
//
// TokenConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenConfig struct {
	Issuer   string
	Audience string
	Leeway   time.Duration

	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	VerificationTTL time.Duration
	ResetTTL        time.Duration
	MFATTL          time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by authcore APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	MaxPerUser        int
	TTL               time.Duration
	RememberMeTTL     time.Duration
	UserAgentMaxBytes int
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig defines a public type used by authcore APIs.
//
// LockoutConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LockoutConfig struct {
	Enabled   bool
	Threshold int
	Duration  time.Duration
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig defines a public type used by authcore APIs.
//
// RateLimitConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RateLimitConfig struct {
	Enabled     bool
	RedisPrefix string
	Login       ratelimit.Limit
	Register    ratelimit.Limit
	Refresh     ratelimit.Limit
}

// AuditConfig defines a public type used by authcore APIs.
type AuditConfig = audit.Config

// MetricsConfig defines a public type used by authcore APIs.
type MetricsConfig = metrics.Config

func defaultConfig() Config {
	return Config{
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 1,
			SaltLength:  16,
			KeyLength:   32,
			MinLength:   8,
		},
		Keys: KeyConfig{
			Dir:  "keys",
			Bits: 2048,
		},
		Token: TokenConfig{
			Issuer:          "authcore",
			Leeway:          30 * time.Second,
			AccessTTL:       15 * time.Minute,
			RefreshTTL:      30 * 24 * time.Hour,
			VerificationTTL: 24 * time.Hour,
			ResetTTL:        time.Hour,
			MFATTL:          5 * time.Minute,
		},
		Session: SessionConfig{
			MaxPerUser:        5,
			TTL:               7 * 24 * time.Hour,
			RememberMeTTL:     30 * 24 * time.Hour,
			UserAgentMaxBytes: 500,
		},
		Lockout: LockoutConfig{
			Enabled:   true,
			Threshold: 5,
			Duration:  15 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:     true,
			RedisPrefix: "authcore:rl",
			Login: ratelimit.Limit{
				Requests: 5,
				Window:   5 * time.Minute,
				Strategy: ratelimit.SlidingWindow,
			},
			Register: ratelimit.Limit{
				Requests: 3,
				Window:   time.Hour,
				Strategy: ratelimit.FixedWindow,
			},
			Refresh: ratelimit.Limit{
				Requests: 10,
				Window:   5 * time.Minute,
				Strategy: ratelimit.TokenBucket,
			},
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

// DefaultConfig returns the production baseline configuration.
func DefaultConfig() Config {
	return defaultConfig()
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c Config) Validate() error {
	if c.Password.Memory < 8192 {
		return errors.New("Password.Memory below safe minimum (8192 KB)")
	}
	if c.Password.Time == 0 || c.Password.Parallelism == 0 {
		return errors.New("Password.Time and Password.Parallelism must be positive")
	}
	if c.Password.SaltLength < 16 || c.Password.KeyLength < 16 {
		return errors.New("Password.SaltLength and Password.KeyLength must be at least 16")
	}
	if c.Keys.Bits < 2048 {
		return errors.New("Keys.Bits below RSA minimum (2048)")
	}
	if c.Token.Issuer == "" {
		return errors.New("Token.Issuer required")
	}
	for _, ttl := range []time.Duration{
		c.Token.AccessTTL,
		c.Token.RefreshTTL,
		c.Token.VerificationTTL,
		c.Token.ResetTTL,
		c.Token.MFATTL,
	} {
		if ttl <= 0 {
			return errors.New("all Token TTLs must be positive")
		}
	}
	if c.Session.TTL <= 0 || c.Session.RememberMeTTL <= 0 {
		return errors.New("Session TTLs must be positive")
	}
	if c.Session.MaxPerUser < 0 {
		return errors.New("Session.MaxPerUser must not be negative")
	}
	if c.Lockout.Enabled && (c.Lockout.Threshold <= 0 || c.Lockout.Duration <= 0) {
		return errors.New("Lockout.Threshold and Lockout.Duration must be positive when lockout is enabled")
	}
	if c.RateLimit.Enabled {
		for _, limit := range []ratelimit.Limit{c.RateLimit.Login, c.RateLimit.Register, c.RateLimit.Refresh} {
			if err := limit.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	// All fields are value types; a copy is a deep copy.
	return cfg
}
