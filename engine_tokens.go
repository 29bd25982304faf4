package authcore

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/authcore/token"
)

// IssueToken mints a session-less purpose token (email verification,
// password reset, MFA challenge) for the user. Access and refresh tokens
// are only issued through Login and Refresh because they must be bound
// to a session.
func (e *Engine) IssueToken(userID string, purpose TokenPurpose) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}

	switch purpose {
	case token.PurposeEmailVerification, token.PurposePasswordReset, token.PurposeMFAChallenge:
	default:
		return "", fmt.Errorf("%w: purpose %q requires a session", ErrTokenInvalid, purpose)
	}

	return e.tokens.Issue(userID, purpose)
}

// CheckToken verifies a purpose token and returns the subject user ID.
// A well-formed token past its expiry maps to ErrTokenExpired; every
// other failure, including a purpose mismatch, maps to ErrTokenInvalid.
func (e *Engine) CheckToken(tokenStr string, purpose TokenPurpose) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}

	claims, err := e.tokens.Verify(tokenStr, purpose)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}
