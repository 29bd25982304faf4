package authcore

import (
	"context"

	"github.com/MrEthical07/authcore/internal/flows"
)

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh may return an error when input validation, dependency calls, or security checks fail.
// Refresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	result := flows.RunRefresh(ctx, refreshToken, e.deps.Refresh)

	switch result.Failure {
	case flows.RefreshFailureNone:
		e.metricInc(MetricRefreshSuccess)
		e.emitAudit(ctx, auditEventRefreshSuccess, true, result.UserID, result.SessionID, nil, nil)
		return &TokenPair{
			SessionID:    result.SessionID,
			AccessToken:  result.AccessToken,
			RefreshToken: result.RefreshToken,
			TokenType:    "bearer",
			ExpiresIn:    result.ExpiresIn,
		}, nil

	case flows.RefreshFailureRateLimited:
		e.metricInc(MetricRefreshRateLimited)
		e.emitAudit(ctx, auditEventRefreshRateLimited, false, result.UserID, result.SessionID, ErrRateLimited, nil)
		return nil, ErrRateLimited

	case flows.RefreshFailureReuse:
		e.metricInc(MetricRefreshReuseDetected)
		e.metricInc(MetricSessionRevoked)
		e.emitAudit(ctx, auditEventRefreshReuse, false, result.UserID, result.SessionID, ErrRefreshReuse, nil)
		// Callers get the generic invalid-token answer. The reuse signal
		// lives only in audit events and metrics; a replayed token must
		// look no different from a forged one.
		return nil, ErrRefreshInvalid

	case flows.RefreshFailureTokenExpired:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, result.UserID, result.SessionID, ErrTokenExpired, func() map[string]string {
			return map[string]string{
				"reason": "expired",
			}
		})
		return nil, ErrTokenExpired

	case flows.RefreshFailureTokenInvalid, flows.RefreshFailureUnknownToken:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, result.UserID, result.SessionID, ErrRefreshInvalid, func() map[string]string {
			return map[string]string{
				"reason": "invalid",
			}
		})
		return nil, ErrRefreshInvalid

	case flows.RefreshFailureSessionGone:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, result.UserID, result.SessionID, ErrSessionRevoked, func() map[string]string {
			return map[string]string{
				"reason": "session_inactive",
			}
		})
		return nil, ErrSessionRevoked

	default:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, result.UserID, result.SessionID, result.Err, nil)
		if result.Err != nil {
			return nil, result.Err
		}
		return nil, ErrRefreshInvalid
	}
}
