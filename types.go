package authcore

import (
	"context"
	"time"

	"github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/metrics"
	"github.com/MrEthical07/authcore/token"
)

// CredentialRecord defines a public type used by authcore APIs.
//
// CredentialRecord instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CredentialRecord struct {
	UserID         string
	Identifier     string
	PasswordHash   string
	FailedAttempts int
	LockedUntil    time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SessionRecord defines a public type used by authcore APIs.
//
// SessionRecord instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionRecord struct {
	SessionID  string
	UserID     string
	IP         string
	UserAgent  string
	RememberMe bool
	CreatedAt  time.Time
	LastUsedAt time.Time
	ExpiresAt  time.Time
	RevokedAt  time.Time
}

// Active reports whether the session can still authenticate requests.
func (r SessionRecord) Active(now time.Time) bool {
	return r.RevokedAt.IsZero() && r.ExpiresAt.After(now)
}

// RefreshTokenRecord defines a public type used by authcore APIs.
//
// RefreshTokenRecord instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RefreshTokenRecord struct {
	ID         string
	SessionID  string
	UserID     string
	TokenHash  string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	UsedAt     time.Time
	RevokedAt  time.Time
	ReplacedBy string
}

// Redeemable reports whether the record can still be rotated.
func (r RefreshTokenRecord) Redeemable(now time.Time) bool {
	return r.UsedAt.IsZero() && r.RevokedAt.IsZero() && r.ExpiresAt.After(now)
}

// CredentialStore persists account credentials and lockout state.
// Implementations must return ErrUserNotFound for missing records and
// ErrAccountExists on identifier collisions.
type CredentialStore interface {
	GetByIdentifier(ctx context.Context, identifier string) (CredentialRecord, error)
	GetByID(ctx context.Context, userID string) (CredentialRecord, error)
	Create(ctx context.Context, record CredentialRecord) error
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error
	// RecordFailure bumps the failed-attempt counter and, when threshold is
	// reached, sets the lock in the same store round trip.
	RecordFailure(ctx context.Context, userID string, at time.Time, threshold int, lockFor time.Duration) (locked bool, err error)
	ClearFailures(ctx context.Context, userID string) error
}

// SessionStore persists session records. Implementations must return
// ErrSessionNotFound for missing records.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (SessionRecord, error)
	ListByUser(ctx context.Context, userID string) ([]SessionRecord, error)
	Save(ctx context.Context, record SessionRecord) error
	Revoke(ctx context.Context, sessionID string, at time.Time) error
	Touch(ctx context.Context, sessionID string, at time.Time) error
}

// RefreshTokenStore persists hashed refresh tokens. GetByHash must
// return ErrRefreshInvalid for unknown hashes.
type RefreshTokenStore interface {
	GetByHash(ctx context.Context, tokenHash string) (RefreshTokenRecord, error)
	Save(ctx context.Context, record RefreshTokenRecord) error
	// Rotate marks the old record used and inserts the replacement
	// atomically. ok=false means the old record was already consumed or
	// revoked when the update ran.
	Rotate(ctx context.Context, oldID string, usedAt time.Time, replacement RefreshTokenRecord) (ok bool, err error)
	RevokeBySession(ctx context.Context, sessionID string, at time.Time) error
}

// TokenPair defines a public type used by authcore APIs.
type TokenPair struct {
	SessionID    string `json:"session_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// AuthResult defines a public type used by authcore APIs.
type AuthResult struct {
	UserID    string
	SessionID string
}

// RegistrationResult defines a public type used by authcore APIs.
type RegistrationResult struct {
	UserID            string
	VerificationToken string
}

// SessionInfo is the caller-facing view of one session.
type SessionInfo struct {
	SessionID  string    `json:"session_id"`
	IP         string    `json:"ip,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	RememberMe bool      `json:"remember_me"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// TokenPurpose defines a public type used by authcore APIs.
type TokenPurpose = token.Purpose

const (
	// PurposeAccess is an exported constant or variable used by the authentication engine.
	PurposeAccess = token.PurposeAccess
	// PurposeRefresh is an exported constant or variable used by the authentication engine.
	PurposeRefresh = token.PurposeRefresh
	// PurposeEmailVerification is an exported constant or variable used by the authentication engine.
	PurposeEmailVerification = token.PurposeEmailVerification
	// PurposePasswordReset is an exported constant or variable used by the authentication engine.
	PurposePasswordReset = token.PurposePasswordReset
	// PurposeMFAChallenge is an exported constant or variable used by the authentication engine.
	PurposeMFAChallenge = token.PurposeMFAChallenge
)

// AuditEvent defines a public type used by authcore APIs.
type AuditEvent = audit.Event

// AuditSink defines a public type used by authcore APIs.
type AuditSink = audit.Sink

// AuditSeverity defines a public type used by authcore APIs.
type AuditSeverity = audit.Severity

const (
	// SeverityInfo is an exported constant or variable used by the authentication engine.
	SeverityInfo = audit.SeverityInfo
	// SeverityWarning is an exported constant or variable used by the authentication engine.
	SeverityWarning = audit.SeverityWarning
	// SeverityCritical is an exported constant or variable used by the authentication engine.
	SeverityCritical = audit.SeverityCritical
)

// NoOpSink defines a public type used by authcore APIs.
type NoOpSink = audit.NoOpSink

// MetricID defines a public type used by authcore APIs.
type MetricID = metrics.MetricID

// MetricsSnapshot defines a public type used by authcore APIs.
type MetricsSnapshot = metrics.Snapshot
