package authcore

import (
	"context"

	"github.com/MrEthical07/authcore/internal/flows"
)

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Login(ctx context.Context, identifier, password string, rememberMe bool) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	result, err := flows.RunLogin(ctx, identifier, password, rememberMe, e.deps.Login)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		SessionID:    result.Tokens.SessionID,
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    result.Tokens.ExpiresIn,
	}, nil
}
