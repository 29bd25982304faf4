package authcore

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/MrEthical07/authcore/ratelimit"
)

// fileConfig mirrors Config with cleanenv tags so deployments can feed the
// engine from a YAML file, the environment, or both.
type fileConfig struct {
	Password struct {
		Memory      uint32 `yaml:"memory_kb" env:"AUTHCORE_PASSWORD_MEMORY_KB" env-default:"65536"`
		Time        uint32 `yaml:"time" env:"AUTHCORE_PASSWORD_TIME" env-default:"3"`
		Parallelism uint8  `yaml:"parallelism" env:"AUTHCORE_PASSWORD_PARALLELISM" env-default:"1"`
		SaltLength  uint32 `yaml:"salt_length" env:"AUTHCORE_PASSWORD_SALT_LENGTH" env-default:"16"`
		KeyLength   uint32 `yaml:"key_length" env:"AUTHCORE_PASSWORD_KEY_LENGTH" env-default:"32"`
		MinLength   int    `yaml:"min_length" env:"AUTHCORE_PASSWORD_MIN_LENGTH" env-default:"8"`
	} `yaml:"password"`
	Keys struct {
		Dir  string `yaml:"dir" env:"AUTHCORE_KEYS_DIR" env-default:"keys"`
		Bits int    `yaml:"bits" env:"AUTHCORE_KEYS_BITS" env-default:"2048"`
	} `yaml:"keys"`
	Token struct {
		Issuer          string        `yaml:"issuer" env:"AUTHCORE_TOKEN_ISSUER" env-default:"authcore"`
		Audience        string        `yaml:"audience" env:"AUTHCORE_TOKEN_AUDIENCE"`
		Leeway          time.Duration `yaml:"leeway" env:"AUTHCORE_TOKEN_LEEWAY" env-default:"30s"`
		AccessTTL       time.Duration `yaml:"access_ttl" env:"AUTHCORE_TOKEN_ACCESS_TTL" env-default:"15m"`
		RefreshTTL      time.Duration `yaml:"refresh_ttl" env:"AUTHCORE_TOKEN_REFRESH_TTL" env-default:"720h"`
		VerificationTTL time.Duration `yaml:"verification_ttl" env:"AUTHCORE_TOKEN_VERIFICATION_TTL" env-default:"24h"`
		ResetTTL        time.Duration `yaml:"reset_ttl" env:"AUTHCORE_TOKEN_RESET_TTL" env-default:"1h"`
		MFATTL          time.Duration `yaml:"mfa_ttl" env:"AUTHCORE_TOKEN_MFA_TTL" env-default:"5m"`
	} `yaml:"token"`
	Session struct {
		MaxPerUser        int           `yaml:"max_per_user" env:"AUTHCORE_SESSION_MAX_PER_USER" env-default:"5"`
		TTL               time.Duration `yaml:"ttl" env:"AUTHCORE_SESSION_TTL" env-default:"168h"`
		RememberMeTTL     time.Duration `yaml:"remember_me_ttl" env:"AUTHCORE_SESSION_REMEMBER_ME_TTL" env-default:"720h"`
		UserAgentMaxBytes int           `yaml:"user_agent_max_bytes" env:"AUTHCORE_SESSION_USER_AGENT_MAX_BYTES" env-default:"500"`
	} `yaml:"session"`
	Lockout struct {
		Enabled   bool          `yaml:"enabled" env:"AUTHCORE_LOCKOUT_ENABLED" env-default:"true"`
		Threshold int           `yaml:"threshold" env:"AUTHCORE_LOCKOUT_THRESHOLD" env-default:"5"`
		Duration  time.Duration `yaml:"duration" env:"AUTHCORE_LOCKOUT_DURATION" env-default:"15m"`
	} `yaml:"lockout"`
	RateLimit struct {
		Enabled     bool   `yaml:"enabled" env:"AUTHCORE_RATELIMIT_ENABLED" env-default:"true"`
		RedisPrefix string `yaml:"redis_prefix" env:"AUTHCORE_RATELIMIT_REDIS_PREFIX" env-default:"authcore:rl"`
		Login       struct {
			Requests int           `yaml:"requests" env:"AUTHCORE_RATELIMIT_LOGIN_REQUESTS" env-default:"5"`
			Window   time.Duration `yaml:"window" env:"AUTHCORE_RATELIMIT_LOGIN_WINDOW" env-default:"5m"`
			Strategy string        `yaml:"strategy" env:"AUTHCORE_RATELIMIT_LOGIN_STRATEGY" env-default:"sliding_window"`
		} `yaml:"login"`
		Register struct {
			Requests int           `yaml:"requests" env:"AUTHCORE_RATELIMIT_REGISTER_REQUESTS" env-default:"3"`
			Window   time.Duration `yaml:"window" env:"AUTHCORE_RATELIMIT_REGISTER_WINDOW" env-default:"1h"`
			Strategy string        `yaml:"strategy" env:"AUTHCORE_RATELIMIT_REGISTER_STRATEGY" env-default:"fixed_window"`
		} `yaml:"register"`
		Refresh struct {
			Requests int           `yaml:"requests" env:"AUTHCORE_RATELIMIT_REFRESH_REQUESTS" env-default:"10"`
			Window   time.Duration `yaml:"window" env:"AUTHCORE_RATELIMIT_REFRESH_WINDOW" env-default:"5m"`
			Strategy string        `yaml:"strategy" env:"AUTHCORE_RATELIMIT_REFRESH_STRATEGY" env-default:"token_bucket"`
		} `yaml:"refresh"`
	} `yaml:"rate_limit"`
	Audit struct {
		Enabled    bool `yaml:"enabled" env:"AUTHCORE_AUDIT_ENABLED" env-default:"true"`
		BufferSize int  `yaml:"buffer_size" env:"AUTHCORE_AUDIT_BUFFER_SIZE" env-default:"256"`
		DropIfFull bool `yaml:"drop_if_full" env:"AUTHCORE_AUDIT_DROP_IF_FULL" env-default:"true"`
	} `yaml:"audit"`
	Metrics struct {
		Enabled bool `yaml:"enabled" env:"AUTHCORE_METRICS_ENABLED" env-default:"true"`
	} `yaml:"metrics"`
}

// LoadConfig reads a YAML configuration file, applies environment
// overrides, and validates the result.
func LoadConfig(path string) (Config, error) {
	var fc fileConfig
	if err := cleanenv.ReadConfig(path, &fc); err != nil {
		return Config{}, err
	}
	return fc.toConfig()
}

// LoadEnv builds a configuration from environment variables alone,
// falling back to defaults for anything unset.
func LoadEnv() (Config, error) {
	var fc fileConfig
	if err := cleanenv.ReadEnv(&fc); err != nil {
		return Config{}, err
	}
	return fc.toConfig()
}

func (fc fileConfig) toConfig() (Config, error) {
	cfg := Config{
		Password: PasswordConfig{
			Memory:      fc.Password.Memory,
			Time:        fc.Password.Time,
			Parallelism: fc.Password.Parallelism,
			SaltLength:  fc.Password.SaltLength,
			KeyLength:   fc.Password.KeyLength,
			MinLength:   fc.Password.MinLength,
		},
		Keys: KeyConfig{
			Dir:  fc.Keys.Dir,
			Bits: fc.Keys.Bits,
		},
		Token: TokenConfig{
			Issuer:          fc.Token.Issuer,
			Audience:        fc.Token.Audience,
			Leeway:          fc.Token.Leeway,
			AccessTTL:       fc.Token.AccessTTL,
			RefreshTTL:      fc.Token.RefreshTTL,
			VerificationTTL: fc.Token.VerificationTTL,
			ResetTTL:        fc.Token.ResetTTL,
			MFATTL:          fc.Token.MFATTL,
		},
		Session: SessionConfig{
			MaxPerUser:        fc.Session.MaxPerUser,
			TTL:               fc.Session.TTL,
			RememberMeTTL:     fc.Session.RememberMeTTL,
			UserAgentMaxBytes: fc.Session.UserAgentMaxBytes,
		},
		Lockout: LockoutConfig{
			Enabled:   fc.Lockout.Enabled,
			Threshold: fc.Lockout.Threshold,
			Duration:  fc.Lockout.Duration,
		},
		RateLimit: RateLimitConfig{
			Enabled:     fc.RateLimit.Enabled,
			RedisPrefix: fc.RateLimit.RedisPrefix,
			Login: ratelimit.Limit{
				Requests: fc.RateLimit.Login.Requests,
				Window:   fc.RateLimit.Login.Window,
				Strategy: ratelimit.Strategy(fc.RateLimit.Login.Strategy),
			},
			Register: ratelimit.Limit{
				Requests: fc.RateLimit.Register.Requests,
				Window:   fc.RateLimit.Register.Window,
				Strategy: ratelimit.Strategy(fc.RateLimit.Register.Strategy),
			},
			Refresh: ratelimit.Limit{
				Requests: fc.RateLimit.Refresh.Requests,
				Window:   fc.RateLimit.Refresh.Window,
				Strategy: ratelimit.Strategy(fc.RateLimit.Refresh.Strategy),
			},
		},
		Audit: AuditConfig{
			Enabled:    fc.Audit.Enabled,
			BufferSize: fc.Audit.BufferSize,
			DropIfFull: fc.Audit.DropIfFull,
		},
		Metrics: MetricsConfig{
			Enabled: fc.Metrics.Enabled,
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
