package flows

import (
	"context"
	"time"
)

// ValidateFailureKind classifies validation failures for root-level mapping.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureTokenExpired
	ValidateFailureTokenInvalid
	ValidateFailureSessionGone
	ValidateFailureSessionRevoked
	ValidateFailureStore
)

// ValidateResult carries the authenticated identity or failure metadata.
type ValidateResult struct {
	Failure   ValidateFailureKind
	Err       error
	UserID    string
	SessionID string
}

// ValidateDeps captures access token validation dependencies.
type ValidateDeps struct {
	Now func() time.Time

	VerifyAccessToken func(token string) (userID, sessionID string, expired bool, err error)
	GetSession        func(ctx context.Context, sessionID string) (SessionRecord, bool, error)
	TouchSession      func(ctx context.Context, sessionID string, at int64) error

	Warn func(string, ...any)
}

// RunValidate checks an access token's signature, purpose and expiry, then
// gates it on the backing session still being active. Session activity is
// updated best-effort; a failed touch never fails validation.
func RunValidate(ctx context.Context, accessToken string, deps ValidateDeps) ValidateResult {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}

	userID, sessionID, expired, err := deps.VerifyAccessToken(accessToken)
	if err != nil {
		if expired {
			return ValidateResult{Failure: ValidateFailureTokenExpired, Err: err}
		}
		return ValidateResult{Failure: ValidateFailureTokenInvalid, Err: err}
	}

	nowUnix := deps.Now().Unix()

	sess, found, err := deps.GetSession(ctx, sessionID)
	if err != nil {
		return ValidateResult{Failure: ValidateFailureStore, Err: err, UserID: userID, SessionID: sessionID}
	}
	if !found {
		return ValidateResult{Failure: ValidateFailureSessionGone, UserID: userID, SessionID: sessionID}
	}
	if !sess.Active(nowUnix) {
		return ValidateResult{Failure: ValidateFailureSessionRevoked, UserID: userID, SessionID: sessionID}
	}

	if deps.TouchSession != nil {
		if err := deps.TouchSession(ctx, sessionID, nowUnix); err != nil {
			deps.Warn("authcore: session activity update failed")
		}
	}

	return ValidateResult{
		Failure:   ValidateFailureNone,
		UserID:    userID,
		SessionID: sessionID,
	}
}
