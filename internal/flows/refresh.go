package flows

import (
	"context"
	"time"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureRateLimited
	RefreshFailureTokenExpired
	RefreshFailureTokenInvalid
	RefreshFailureUnknownToken
	RefreshFailureReuse
	RefreshFailureSessionGone
	RefreshFailureStore
	RefreshFailureIssue
)

// RefreshRecord is the flow-local stored refresh token model.
type RefreshRecord struct {
	ID         string
	SessionID  string
	UserID     string
	TokenHash  string
	IssuedAt   int64
	ExpiresAt  int64
	UsedAt     int64
	RevokedAt  int64
	ReplacedBy string
}

// Redeemable reports whether the record can still be rotated.
func (r RefreshRecord) Redeemable(now int64) bool {
	return r.UsedAt == 0 && r.RevokedAt == 0 && r.ExpiresAt > now
}

// RefreshResult carries either the issued token pair or failure metadata.
type RefreshResult struct {
	Failure      RefreshFailureKind
	Err          error
	UserID       string
	SessionID    string
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// RefreshDeps captures refresh rotation dependencies.
type RefreshDeps struct {
	Now func() time.Time

	// VerifyRefreshToken checks signature, expiry and purpose of the
	// presented token. expired marks a well-formed token past its exp.
	VerifyRefreshToken func(token string) (userID, sessionID string, expired bool, err error)
	HashToken          func(token string) string

	CheckRefreshRate func(ctx context.Context, sessionID string) error

	GetRefreshByHash func(ctx context.Context, hash string) (RefreshRecord, bool, error)
	// Rotate marks the old record used and inserts the replacement in one
	// atomic step. ok=false means another caller already consumed the old
	// record.
	Rotate func(ctx context.Context, oldID string, usedAt int64, replacement RefreshRecord) (ok bool, err error)
	// RevokeChain revokes every refresh record belonging to the session.
	RevokeChain   func(ctx context.Context, sessionID string, at int64) error
	RevokeSession func(ctx context.Context, sessionID string, at int64) error

	GetSession   func(ctx context.Context, sessionID string) (SessionRecord, bool, error)
	TouchSession func(ctx context.Context, sessionID string, at int64) error

	IssueAccess func(userID, sessionID string) (string, int64, error)
	// IssueRefresh mints the replacement token and returns the record ID
	// embedded in it so the stored row and the token stay correlated.
	IssueRefresh func(userID, sessionID string, expiresAt int64) (token string, recordID string, err error)

	Warn func(string, ...any)
}

// RunRefresh redeems a single-use refresh token for a new pair. A token that
// was already consumed is treated as theft evidence: the whole chain and the
// session behind it are revoked before the failure is reported.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}

	now := deps.Now()
	nowUnix := now.Unix()

	userID, sessionID, expired, err := deps.VerifyRefreshToken(refreshToken)
	if err != nil {
		if expired {
			return RefreshResult{Failure: RefreshFailureTokenExpired, Err: err}
		}
		return RefreshResult{Failure: RefreshFailureTokenInvalid, Err: err}
	}

	if deps.CheckRefreshRate != nil {
		if err := deps.CheckRefreshRate(ctx, sessionID); err != nil {
			return RefreshResult{
				Failure:   RefreshFailureRateLimited,
				Err:       err,
				UserID:    userID,
				SessionID: sessionID,
			}
		}
	}

	record, found, err := deps.GetRefreshByHash(ctx, deps.HashToken(refreshToken))
	if err != nil {
		return RefreshResult{Failure: RefreshFailureStore, Err: err, UserID: userID, SessionID: sessionID}
	}
	if !found {
		return RefreshResult{Failure: RefreshFailureUnknownToken, UserID: userID, SessionID: sessionID}
	}

	if record.UsedAt != 0 || record.RevokedAt != 0 {
		return refreshBreach(ctx, record, nowUnix, deps)
	}
	if record.ExpiresAt <= nowUnix {
		return RefreshResult{
			Failure:   RefreshFailureTokenExpired,
			UserID:    record.UserID,
			SessionID: record.SessionID,
		}
	}

	sess, found, err := deps.GetSession(ctx, record.SessionID)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureStore, Err: err, UserID: record.UserID, SessionID: record.SessionID}
	}
	if !found || !sess.Active(nowUnix) {
		return RefreshResult{
			Failure:   RefreshFailureSessionGone,
			UserID:    record.UserID,
			SessionID: record.SessionID,
		}
	}

	nextToken, recordID, err := deps.IssueRefresh(record.UserID, record.SessionID, sess.ExpiresAt)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssue, Err: err, UserID: record.UserID, SessionID: record.SessionID}
	}

	replacement := RefreshRecord{
		ID:        recordID,
		SessionID: record.SessionID,
		UserID:    record.UserID,
		TokenHash: deps.HashToken(nextToken),
		IssuedAt:  nowUnix,
		ExpiresAt: sess.ExpiresAt,
	}

	ok, err := deps.Rotate(ctx, record.ID, nowUnix, replacement)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureStore, Err: err, UserID: record.UserID, SessionID: record.SessionID}
	}
	if !ok {
		// Lost the race: someone else consumed this token first.
		return refreshBreach(ctx, record, nowUnix, deps)
	}

	access, expiresIn, err := deps.IssueAccess(record.UserID, record.SessionID)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssue, Err: err, UserID: record.UserID, SessionID: record.SessionID}
	}

	if deps.TouchSession != nil {
		if err := deps.TouchSession(ctx, record.SessionID, nowUnix); err != nil {
			deps.Warn("authcore: session activity update failed")
		}
	}

	return RefreshResult{
		Failure:      RefreshFailureNone,
		UserID:       record.UserID,
		SessionID:    record.SessionID,
		AccessToken:  access,
		RefreshToken: nextToken,
		ExpiresIn:    expiresIn,
	}
}

func refreshBreach(ctx context.Context, record RefreshRecord, nowUnix int64, deps RefreshDeps) RefreshResult {
	if deps.RevokeChain != nil {
		if err := deps.RevokeChain(ctx, record.SessionID, nowUnix); err != nil {
			deps.Warn("authcore: chain revocation after reuse failed")
		}
	}
	if deps.RevokeSession != nil {
		if err := deps.RevokeSession(ctx, record.SessionID, nowUnix); err != nil {
			deps.Warn("authcore: session revocation after reuse failed")
		}
	}
	return RefreshResult{
		Failure:   RefreshFailureReuse,
		UserID:    record.UserID,
		SessionID: record.SessionID,
	}
}
