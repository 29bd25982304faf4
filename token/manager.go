package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MrEthical07/authcore/keyring"
)

// Purpose discriminates what a token is allowed to be used for.
type Purpose string

const (
	// PurposeAccess is an exported constant or variable used by the authentication engine.
	PurposeAccess Purpose = "access"
	// PurposeRefresh is an exported constant or variable used by the authentication engine.
	PurposeRefresh Purpose = "refresh"
	// PurposeEmailVerification is an exported constant or variable used by the authentication engine.
	PurposeEmailVerification Purpose = "email_verification"
	// PurposePasswordReset is an exported constant or variable used by the authentication engine.
	PurposePasswordReset Purpose = "password_reset"
	// PurposeMFAChallenge is an exported constant or variable used by the authentication engine.
	PurposeMFAChallenge Purpose = "mfa_challenge"
)

var (
	// ErrExpired is returned when a token's signature and claims are
	// otherwise valid but its expiry has passed. Callers distinguish it
	// from ErrInvalid to attempt silent refresh.
	ErrExpired = errors.New("token expired")

	// ErrInvalid covers every other verification failure: malformed
	// input, wrong signature, wrong issuer or audience, wrong purpose.
	ErrInvalid = errors.New("invalid token")
)

// Claims is the signed claim set. Purpose is mandatory; SessionID and
// CorrelationID are present when the token is bound to a login session
// and its refresh-token record.
type Claims struct {
	Purpose       string `json:"purpose"`
	SessionID     string `json:"sid,omitempty"`
	CorrelationID string `json:"cid,omitempty"`
	jwt.RegisteredClaims
}

// Config defines a public type used by authcore APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Issuer   string
	Audience string
	Leeway   time.Duration

	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	VerificationTTL time.Duration
	ResetTTL        time.Duration
	MFATTL          time.Duration
}

// Manager signs and verifies purpose-tagged RS256 tokens. It is
// immutable after construction and safe for concurrent use.
type Manager struct {
	config Config
	keys   keyring.Provider
	now    func() time.Time
}

// NewManager validates the configuration and returns a Manager bound to
// the given key provider.
func NewManager(cfg Config, keys keyring.Provider) (*Manager, error) {
	if keys == nil {
		return nil, errors.New("token: key provider is required")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("token: issuer is required")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("token: invalid leeway")
	}
	for _, ttl := range []time.Duration{cfg.AccessTTL, cfg.RefreshTTL, cfg.VerificationTTL, cfg.ResetTTL, cfg.MFATTL} {
		if ttl <= 0 {
			return nil, errors.New("token: all purpose TTLs must be positive")
		}
	}
	return &Manager{config: cfg, keys: keys, now: time.Now}, nil
}

// Option adjusts optional claims on an issued token.
type Option func(*Claims)

// WithSession binds the token to a login session.
func WithSession(sessionID string) Option {
	return func(c *Claims) { c.SessionID = sessionID }
}

// WithCorrelation links the token to a refresh-token record.
func WithCorrelation(correlationID string) Option {
	return func(c *Claims) { c.CorrelationID = correlationID }
}

// Issue signs a token of the given purpose for subject. The expiry is
// the purpose-specific TTL from the Manager's configuration.
func (m *Manager) Issue(subject string, purpose Purpose, opts ...Option) (string, error) {
	if subject == "" {
		return "", errors.New("token: subject is required")
	}
	ttl, err := m.ttlFor(purpose)
	if err != nil {
		return "", err
	}

	now := m.now()
	claims := Claims{
		Purpose: string(purpose),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}
	for _, opt := range opts {
		opt(&claims)
	}

	key, err := m.keys.Signer()
	if err != nil {
		return "", fmt.Errorf("token: signing key: %w", err)
	}

	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
}

// Verify validates signature, issuer, audience, expiry, not-before, and
// the purpose tag. Expiry is surfaced as ErrExpired; every other
// failure, including a purpose mismatch, is ErrInvalid.
func (m *Manager) Verify(tokenStr string, expected Purpose) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return m.keys.Verifier()
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalid
	}
	if claims.Purpose != string(expected) {
		return nil, fmt.Errorf("%w: purpose mismatch", ErrInvalid)
	}

	return claims, nil
}

// TTL returns the configured lifetime for a purpose.
func (m *Manager) TTL(purpose Purpose) time.Duration {
	ttl, err := m.ttlFor(purpose)
	if err != nil {
		return 0
	}
	return ttl
}

func (m *Manager) ttlFor(purpose Purpose) (time.Duration, error) {
	switch purpose {
	case PurposeAccess:
		return m.config.AccessTTL, nil
	case PurposeRefresh:
		return m.config.RefreshTTL, nil
	case PurposeEmailVerification:
		return m.config.VerificationTTL, nil
	case PurposePasswordReset:
		return m.config.ResetTTL, nil
	case PurposeMFAChallenge:
		return m.config.MFATTL, nil
	default:
		return 0, fmt.Errorf("token: unknown purpose %q", purpose)
	}
}
