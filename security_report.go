package authcore

import "time"

// SecurityReport summarizes the engine's active security posture for
// startup logging and operational review.
type SecurityReport struct {
	SigningAlgorithm       string
	AccessTTL              time.Duration
	RefreshTTL             time.Duration
	Argon2                 PasswordConfigReport
	LockoutEnabled         bool
	LockoutThreshold       int
	SessionCap             int
	RefreshRotationEnabled bool
	RateLimitingActive     bool
	DistributedRateLimits  bool
	AuditEnabled           bool
}

// PasswordConfigReport mirrors the active argon2id cost parameters.
type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	return SecurityReport{
		SigningAlgorithm: "RS256",
		AccessTTL:        e.config.Token.AccessTTL,
		RefreshTTL:       e.config.Token.RefreshTTL,
		Argon2: PasswordConfigReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
		},
		LockoutEnabled:         e.config.Lockout.Enabled,
		LockoutThreshold:       e.config.Lockout.Threshold,
		SessionCap:             e.config.Session.MaxPerUser,
		RefreshRotationEnabled: true,
		RateLimitingActive:     e.config.RateLimit.Enabled && e.limiter != nil,
		DistributedRateLimits:  e.limiter != nil && e.limiter.Distributed(),
		AuditEnabled:           e.config.Audit.Enabled,
	}
}
