package authcore

import (
	"context"

	"github.com/MrEthical07/authcore/internal/flows"
)

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Validate(ctx context.Context, accessToken string) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	result := flows.RunValidate(ctx, accessToken, e.deps.Validate)

	switch result.Failure {
	case flows.ValidateFailureNone:
		e.metricInc(MetricValidateSuccess)
		return &AuthResult{
			UserID:    result.UserID,
			SessionID: result.SessionID,
		}, nil
	case flows.ValidateFailureTokenExpired:
		e.metricInc(MetricValidateFailure)
		return nil, ErrTokenExpired
	case flows.ValidateFailureTokenInvalid:
		e.metricInc(MetricValidateFailure)
		return nil, ErrTokenInvalid
	case flows.ValidateFailureSessionGone:
		e.metricInc(MetricValidateFailure)
		return nil, ErrSessionNotFound
	case flows.ValidateFailureSessionRevoked:
		e.metricInc(MetricValidateFailure)
		return nil, ErrSessionRevoked
	default:
		e.metricInc(MetricValidateFailure)
		if result.Err != nil {
			return nil, result.Err
		}
		return nil, ErrTokenInvalid
	}
}

// TouchSession describes the touchsession operation and its observable behavior.
//
// TouchSession may return an error when input validation, dependency calls, or security checks fail.
// TouchSession does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) TouchSession(ctx context.Context, sessionID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.sessions.Touch(ctx, sessionID, e.now())
}
