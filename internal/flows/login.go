package flows

import (
	"context"
	"time"
)

// LoginUserRecord is a flow-local user model used by the login flow.
type LoginUserRecord struct {
	UserID         string
	Identifier     string
	PasswordHash   string
	FailedAttempts int
	LockedUntil    int64
}

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	UserID  string
	Tokens  SessionTokens
	Evicted []string
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess     int
	LoginFailure     int
	LoginRateLimited int
	LoginLockout     int
	SessionCreated   int
	SessionEvicted   int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess     string
	LoginFailure     string
	LoginRateLimited string
	AccountLocked    string
	SessionCreated   string
	SessionEvicted   string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady     error
	InvalidCredentials error
	AccountLocked      error
	RateLimited        error
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Now                 func() time.Time
	ClientIPFromContext func(context.Context) string

	CheckLoginRate func(ctx context.Context, identifier, ip string) error

	GetUserByIdentifier func(ctx context.Context, identifier string) (LoginUserRecord, bool, error)
	RecordFailure       func(ctx context.Context, userID string, at int64) (locked bool, err error)
	ClearFailures       func(ctx context.Context, userID string) error

	VerifyPassword func(plaintext, encoded string) bool
	// DummyVerify burns one password verification against a throwaway hash
	// so a missing account costs the same as a wrong password.
	DummyVerify func(plaintext string)

	CreateSession func(ctx context.Context, userID string, rememberMe bool) (CreateSessionResult, error)

	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, userID, sessionID string, cause error, meta func() map[string]string)
	Warn      func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin authenticates credentials and issues a session token pair.
// Every failure that could reveal whether the identifier exists collapses
// into the same InvalidCredentials sentinel.
func RunLogin(ctx context.Context, identifier, password string, rememberMe bool, deps LoginDeps) (*LoginResult, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.GetUserByIdentifier == nil ||
		deps.VerifyPassword == nil ||
		deps.CreateSession == nil {
		return nil, deps.Errors.EngineNotReady
	}

	ip := deps.ClientIPFromContext(ctx)
	now := deps.Now()

	if deps.CheckLoginRate != nil {
		if err := deps.CheckLoginRate(ctx, identifier, ip); err != nil {
			deps.MetricInc(deps.Metrics.LoginRateLimited)
			deps.EmitAudit(ctx, deps.Events.LoginRateLimited, false, "", "", deps.Errors.RateLimited, func() map[string]string {
				return map[string]string{
					"identifier": identifier,
				}
			})
			return nil, deps.Errors.RateLimited
		}
	}

	user, found, err := deps.GetUserByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if !found {
		if deps.DummyVerify != nil {
			deps.DummyVerify(password)
		}
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", "", deps.Errors.InvalidCredentials, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "user_not_found",
			}
		})
		return nil, deps.Errors.InvalidCredentials
	}

	if user.LockedUntil > now.Unix() {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, user.UserID, "", deps.Errors.AccountLocked, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "account_locked",
			}
		})
		return nil, deps.Errors.AccountLocked
	}

	if password == "" || !deps.VerifyPassword(password, user.PasswordHash) {
		locked := false
		if deps.RecordFailure != nil {
			var recErr error
			locked, recErr = deps.RecordFailure(ctx, user.UserID, now.Unix())
			if recErr != nil {
				deps.Warn("authcore: failed-attempt tracking unavailable")
			}
		}
		deps.MetricInc(deps.Metrics.LoginFailure)
		if locked {
			deps.MetricInc(deps.Metrics.LoginLockout)
			deps.EmitAudit(ctx, deps.Events.AccountLocked, false, user.UserID, "", deps.Errors.AccountLocked, func() map[string]string {
				return map[string]string{
					"identifier": identifier,
					"reason":     "failure_threshold",
				}
			})
			return nil, deps.Errors.AccountLocked
		}
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, user.UserID, "", deps.Errors.InvalidCredentials, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "password_mismatch",
			}
		})
		return nil, deps.Errors.InvalidCredentials
	}
	password = ""

	if deps.ClearFailures != nil {
		if err := deps.ClearFailures(ctx, user.UserID); err != nil {
			deps.Warn("authcore: failed-attempt counter reset failed")
		}
	}

	created, err := deps.CreateSession(ctx, user.UserID, rememberMe)
	if err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, user.UserID, "", err, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "session_create_failed",
			}
		})
		return nil, err
	}

	for _, evictedID := range created.Evicted {
		deps.MetricInc(deps.Metrics.SessionEvicted)
		deps.EmitAudit(ctx, deps.Events.SessionEvicted, true, user.UserID, evictedID, nil, nil)
	}

	deps.MetricInc(deps.Metrics.SessionCreated)
	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.SessionCreated, true, user.UserID, created.Tokens.SessionID, nil, nil)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, user.UserID, created.Tokens.SessionID, nil, func() map[string]string {
		return map[string]string{
			"identifier": identifier,
		}
	})

	return &LoginResult{
		UserID:  user.UserID,
		Tokens:  created.Tokens,
		Evicted: created.Evicted,
	}, nil
}
