package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"

	"github.com/google/uuid"
)

// SessionID is a 128-bit random session identifier. It travels as a
// compact base64url string and never encodes any user information.
type SessionID [16]byte

const (
	// RefreshSecretSize is the raw byte length of opaque refresh tokens.
	RefreshSecretSize = 48

	// MinOpaqueSize is the smallest opaque token the helpers will mint.
	MinOpaqueSize = 16
)

// NewSessionID returns a fresh random session identifier.
func NewSessionID() (SessionID, error) {
	var sid SessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

func (s SessionID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(s[:])
}

// ParseSessionID decodes a session identifier previously produced by
// SessionID.String.
func ParseSessionID(sessionID string) (SessionID, error) {
	var sid SessionID

	raw, err := base64.RawURLEncoding.DecodeString(sessionID)
	if err != nil {
		return sid, err
	}
	if len(raw) != len(sid) {
		return sid, errors.New("invalid session id size")
	}

	copy(sid[:], raw)
	return sid, nil
}

// NewOpaqueToken mints a URL-safe crypto-random string from size raw
// bytes. Used for refresh tokens, CSRF tokens, and any other secret
// that is stored only as a digest.
func NewOpaqueToken(size int) (string, error) {
	if size < MinOpaqueSize {
		return "", errors.New("opaque token size below minimum")
	}

	raw := make([]byte, size)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// HashToken returns the hex SHA-256 digest of an opaque token. The
// digest is what goes to storage; the redeemable secret never does.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// NewCorrelationID returns the jti-style identifier that links a
// refresh-token record to the access token minted alongside it.
func NewCorrelationID() string {
	return uuid.NewString()
}
