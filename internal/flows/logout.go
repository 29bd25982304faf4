package flows

import (
	"context"
	"time"
)

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Now func() time.Time

	GetSession    func(ctx context.Context, sessionID string) (SessionRecord, bool, error)
	ListSessions  func(ctx context.Context, userID string) ([]SessionRecord, error)
	RevokeSession func(ctx context.Context, sessionID string, at int64) error
	RevokeChain   func(ctx context.Context, sessionID string, at int64) error

	Warn func(string, ...any)
}

// RunLogout revokes one session and every refresh token chained to it.
// Revoking an already revoked or missing session reports found=false and
// changes nothing.
func RunLogout(ctx context.Context, sessionID string, deps LogoutDeps) (found bool, userID string, err error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}

	nowUnix := deps.Now().Unix()

	sess, ok, err := deps.GetSession(ctx, sessionID)
	if err != nil {
		return false, "", err
	}
	if !ok || sess.RevokedAt != 0 {
		return false, sess.UserID, nil
	}

	if err := deps.RevokeSession(ctx, sessionID, nowUnix); err != nil {
		return true, sess.UserID, err
	}
	if deps.RevokeChain != nil {
		if err := deps.RevokeChain(ctx, sessionID, nowUnix); err != nil {
			deps.Warn("authcore: chain revocation during logout failed")
		}
	}
	return true, sess.UserID, nil
}

// RunLogoutAll revokes every active session the user holds and returns the
// revoked session IDs.
func RunLogoutAll(ctx context.Context, userID string, deps LogoutDeps) ([]string, error) {
	return runLogoutSweep(ctx, userID, "", deps)
}

// RunLogoutOthers revokes every active session except keepSessionID.
// Used for "sign out everywhere else" from an authenticated session.
func RunLogoutOthers(ctx context.Context, userID, keepSessionID string, deps LogoutDeps) ([]string, error) {
	return runLogoutSweep(ctx, userID, keepSessionID, deps)
}

func runLogoutSweep(ctx context.Context, userID, keepSessionID string, deps LogoutDeps) ([]string, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}

	nowUnix := deps.Now().Unix()

	sessions, err := deps.ListSessions(ctx, userID)
	if err != nil {
		return nil, err
	}

	revoked := make([]string, 0, len(sessions))
	for _, sess := range sessions {
		if !sess.Active(nowUnix) {
			continue
		}
		if keepSessionID != "" && sess.SessionID == keepSessionID {
			continue
		}
		if err := deps.RevokeSession(ctx, sess.SessionID, nowUnix); err != nil {
			return revoked, err
		}
		if deps.RevokeChain != nil {
			if err := deps.RevokeChain(ctx, sess.SessionID, nowUnix); err != nil {
				deps.Warn("authcore: chain revocation during logout failed")
			}
		}
		revoked = append(revoked, sess.SessionID)
	}
	return revoked, nil
}
