package authcore

import (
	"context"

	"github.com/MrEthical07/authcore/internal/flows"
)

// Register describes the register operation and its observable behavior.
//
// Register may return an error when input validation, dependency calls, or security checks fail.
// Register does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Register(ctx context.Context, identifier, password string) (*RegistrationResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	result, err := flows.RunRegister(ctx, identifier, password, e.deps.Register)
	if err != nil {
		return nil, err
	}

	return &RegistrationResult{
		UserID:            result.UserID,
		VerificationToken: result.VerificationToken,
	}, nil
}
