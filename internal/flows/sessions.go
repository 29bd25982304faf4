package flows

import (
	"context"
	"time"
)

// SessionRecord is the flow-local session model.
type SessionRecord struct {
	SessionID  string
	UserID     string
	IP         string
	UserAgent  string
	RememberMe bool
	CreatedAt  int64
	LastUsedAt int64
	ExpiresAt  int64
	RevokedAt  int64
}

// Active reports whether the session can still authenticate requests.
func (r SessionRecord) Active(now int64) bool {
	return r.RevokedAt == 0 && r.ExpiresAt > now
}

// SessionTokens is the issued credential pair for one session.
type SessionTokens struct {
	SessionID    string
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// CreateSessionResult carries the issued tokens plus any sessions evicted
// to make room under the per-user cap.
type CreateSessionResult struct {
	Tokens  SessionTokens
	Evicted []string
}

// SessionErrors carries host-level sentinel errors used by the session flow.
type SessionErrors struct {
	EngineNotReady error
}

// SessionDeps captures session creation dependencies.
type SessionDeps struct {
	MaxPerUser        int
	UserAgentMaxBytes int

	Now                  func() time.Time
	ClientIPFromContext  func(context.Context) string
	UserAgentFromContext func(context.Context) string

	SessionTTL func(rememberMe bool) time.Duration

	NewSessionID   func() (string, error)
	ListSessions   func(ctx context.Context, userID string) ([]SessionRecord, error)
	SaveSession    func(ctx context.Context, record SessionRecord) error
	RevokeSession  func(ctx context.Context, sessionID string, at int64) error
	RevokeRefresh  func(ctx context.Context, sessionID string, at int64) error
	IssueAccess    func(userID, sessionID string) (string, int64, error)
	IssueRefresh   func(ctx context.Context, userID, sessionID string, expiresAt int64) (string, error)

	Warn func(string, ...any)

	Errors SessionErrors
}

// RunCreateSession registers a new session for the user, evicting the oldest
// active sessions when the per-user cap is already met, and issues the
// access/refresh pair bound to it.
func RunCreateSession(ctx context.Context, userID string, rememberMe bool, deps SessionDeps) (CreateSessionResult, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.UserAgentFromContext == nil {
		deps.UserAgentFromContext = func(context.Context) string { return "" }
	}
	if deps.NewSessionID == nil ||
		deps.SessionTTL == nil ||
		deps.ListSessions == nil ||
		deps.SaveSession == nil ||
		deps.RevokeSession == nil ||
		deps.IssueAccess == nil ||
		deps.IssueRefresh == nil {
		return CreateSessionResult{}, deps.Errors.EngineNotReady
	}

	now := deps.Now()
	nowUnix := now.Unix()

	evicted, err := sweepAndEvict(ctx, userID, nowUnix, deps)
	if err != nil {
		return CreateSessionResult{}, err
	}

	ttl := deps.SessionTTL(rememberMe)
	userAgent := deps.UserAgentFromContext(ctx)
	if deps.UserAgentMaxBytes > 0 && len(userAgent) > deps.UserAgentMaxBytes {
		userAgent = userAgent[:deps.UserAgentMaxBytes]
	}

	sessionID, err := deps.NewSessionID()
	if err != nil {
		return CreateSessionResult{}, err
	}

	record := SessionRecord{
		SessionID:  sessionID,
		UserID:     userID,
		IP:         deps.ClientIPFromContext(ctx),
		UserAgent:  userAgent,
		RememberMe: rememberMe,
		CreatedAt:  nowUnix,
		LastUsedAt: nowUnix,
		ExpiresAt:  now.Add(ttl).Unix(),
	}

	if err := deps.SaveSession(ctx, record); err != nil {
		return CreateSessionResult{}, err
	}

	access, expiresIn, err := deps.IssueAccess(userID, record.SessionID)
	if err != nil {
		return CreateSessionResult{}, err
	}
	refresh, err := deps.IssueRefresh(ctx, userID, record.SessionID, record.ExpiresAt)
	if err != nil {
		return CreateSessionResult{}, err
	}

	return CreateSessionResult{
		Tokens: SessionTokens{
			SessionID:    record.SessionID,
			AccessToken:  access,
			RefreshToken: refresh,
			ExpiresIn:    expiresIn,
		},
		Evicted: evicted,
	}, nil
}

// sweepAndEvict moves expired-but-unrevoked sessions to their terminal
// revoked state, then revokes the oldest active sessions until one slot
// is free. Inactive records never count against the cap.
func sweepAndEvict(ctx context.Context, userID string, nowUnix int64, deps SessionDeps) ([]string, error) {
	existing, err := deps.ListSessions(ctx, userID)
	if err != nil {
		return nil, err
	}

	active := make([]SessionRecord, 0, len(existing))
	for _, rec := range existing {
		if rec.Active(nowUnix) {
			active = append(active, rec)
			continue
		}
		if rec.RevokedAt != 0 {
			continue
		}
		// Expired without ever being revoked. Finalize it and sweep its
		// refresh chain so no redeemable records outlive the session.
		if err := deps.RevokeSession(ctx, rec.SessionID, nowUnix); err != nil {
			return nil, err
		}
		if deps.RevokeRefresh != nil {
			if err := deps.RevokeRefresh(ctx, rec.SessionID, nowUnix); err != nil {
				deps.Warn("authcore: refresh revocation during session sweep failed")
			}
		}
	}

	if deps.MaxPerUser <= 0 || len(active) < deps.MaxPerUser {
		return nil, nil
	}

	// Oldest first by creation time.
	for i := 1; i < len(active); i++ {
		for j := i; j > 0 && active[j].CreatedAt < active[j-1].CreatedAt; j-- {
			active[j], active[j-1] = active[j-1], active[j]
		}
	}

	toEvict := len(active) - deps.MaxPerUser + 1
	evicted := make([]string, 0, toEvict)
	for _, rec := range active[:toEvict] {
		if err := deps.RevokeSession(ctx, rec.SessionID, nowUnix); err != nil {
			return evicted, err
		}
		if deps.RevokeRefresh != nil {
			if err := deps.RevokeRefresh(ctx, rec.SessionID, nowUnix); err != nil {
				deps.Warn("authcore: refresh revocation during eviction failed")
			}
		}
		evicted = append(evicted, rec.SessionID)
	}
	return evicted, nil
}
