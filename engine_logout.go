package authcore

import (
	"context"
	"strconv"

	"github.com/MrEthical07/authcore/internal/flows"
)

// Logout describes the logout operation and its observable behavior.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Logout(ctx context.Context, sessionID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	found, userID, err := flows.RunLogout(ctx, sessionID, e.deps.Logout)
	if err != nil {
		e.emitAudit(ctx, auditEventLogoutSession, false, userID, sessionID, err, nil)
		return err
	}
	if !found {
		e.emitAudit(ctx, auditEventLogoutSession, false, userID, sessionID, ErrSessionNotFound, nil)
		return ErrSessionNotFound
	}

	e.metricInc(MetricSessionRevoked)
	e.emitAudit(ctx, auditEventLogoutSession, true, userID, sessionID, nil, nil)
	return nil
}

// LogoutAll describes the logoutall operation and its observable behavior.
//
// LogoutAll may return an error when input validation, dependency calls, or security checks fail.
// LogoutAll does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) LogoutAll(ctx context.Context, userID string) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}

	revoked, err := flows.RunLogoutAll(ctx, userID, e.deps.Logout)
	if err != nil {
		e.emitAudit(ctx, auditEventLogoutAll, false, userID, "", err, nil)
		return len(revoked), err
	}

	for range revoked {
		e.metricInc(MetricSessionRevoked)
	}
	e.emitAudit(ctx, auditEventLogoutAll, true, userID, "", nil, func() map[string]string {
		return map[string]string{
			"revoked": strconv.Itoa(len(revoked)),
		}
	})
	return len(revoked), nil
}

// LogoutOthers revokes every active session the user holds except
// keepSessionID, typically the caller's own. It returns how many
// sessions were revoked.
func (e *Engine) LogoutOthers(ctx context.Context, userID, keepSessionID string) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}

	revoked, err := flows.RunLogoutOthers(ctx, userID, keepSessionID, e.deps.Logout)
	if err != nil {
		e.emitAudit(ctx, auditEventLogoutAll, false, userID, keepSessionID, err, nil)
		return len(revoked), err
	}

	for range revoked {
		e.metricInc(MetricSessionRevoked)
	}
	e.emitAudit(ctx, auditEventLogoutAll, true, userID, keepSessionID, nil, func() map[string]string {
		return map[string]string{
			"revoked": strconv.Itoa(len(revoked)),
			"kept":    keepSessionID,
		}
	})
	return len(revoked), nil
}

// Sessions returns the user's active sessions, newest first.
func (e *Engine) Sessions(ctx context.Context, userID string) ([]SessionInfo, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	records, err := e.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	out := make([]SessionInfo, 0, len(records))
	for _, rec := range records {
		if !rec.Active(now) {
			continue
		}
		out = append(out, SessionInfo{
			SessionID:  rec.SessionID,
			IP:         rec.IP,
			UserAgent:  rec.UserAgent,
			RememberMe: rec.RememberMe,
			CreatedAt:  rec.CreatedAt,
			LastUsedAt: rec.LastUsedAt,
			ExpiresAt:  rec.ExpiresAt,
		})
	}

	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].CreatedAt.After(out[j-1].CreatedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}
