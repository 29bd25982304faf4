package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/internal"
	"github.com/MrEthical07/authcore/internal/flows"
	"github.com/MrEthical07/authcore/internal/metrics"
	"github.com/MrEthical07/authcore/token"
)

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeOrZero(unix int64) time.Time {
	if unix == 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0)
}

func toFlowSession(rec SessionRecord) flows.SessionRecord {
	return flows.SessionRecord{
		SessionID:  rec.SessionID,
		UserID:     rec.UserID,
		IP:         rec.IP,
		UserAgent:  rec.UserAgent,
		RememberMe: rec.RememberMe,
		CreatedAt:  unixOrZero(rec.CreatedAt),
		LastUsedAt: unixOrZero(rec.LastUsedAt),
		ExpiresAt:  unixOrZero(rec.ExpiresAt),
		RevokedAt:  unixOrZero(rec.RevokedAt),
	}
}

func fromFlowSession(rec flows.SessionRecord) SessionRecord {
	return SessionRecord{
		SessionID:  rec.SessionID,
		UserID:     rec.UserID,
		IP:         rec.IP,
		UserAgent:  rec.UserAgent,
		RememberMe: rec.RememberMe,
		CreatedAt:  timeOrZero(rec.CreatedAt),
		LastUsedAt: timeOrZero(rec.LastUsedAt),
		ExpiresAt:  timeOrZero(rec.ExpiresAt),
		RevokedAt:  timeOrZero(rec.RevokedAt),
	}
}

func toFlowRefresh(rec RefreshTokenRecord) flows.RefreshRecord {
	return flows.RefreshRecord{
		ID:         rec.ID,
		SessionID:  rec.SessionID,
		UserID:     rec.UserID,
		TokenHash:  rec.TokenHash,
		IssuedAt:   unixOrZero(rec.IssuedAt),
		ExpiresAt:  unixOrZero(rec.ExpiresAt),
		UsedAt:     unixOrZero(rec.UsedAt),
		RevokedAt:  unixOrZero(rec.RevokedAt),
		ReplacedBy: rec.ReplacedBy,
	}
}

func fromFlowRefresh(rec flows.RefreshRecord) RefreshTokenRecord {
	return RefreshTokenRecord{
		ID:         rec.ID,
		SessionID:  rec.SessionID,
		UserID:     rec.UserID,
		TokenHash:  rec.TokenHash,
		IssuedAt:   timeOrZero(rec.IssuedAt),
		ExpiresAt:  timeOrZero(rec.ExpiresAt),
		UsedAt:     timeOrZero(rec.UsedAt),
		RevokedAt:  timeOrZero(rec.RevokedAt),
		ReplacedBy: rec.ReplacedBy,
	}
}

func (e *Engine) checkRate(ctx context.Context, class, identifier string) error {
	if e.limiter == nil || !e.config.RateLimit.Enabled {
		return nil
	}
	result := e.limiter.Check(ctx, class, identifier)
	if !result.Allowed {
		return ErrRateLimited
	}
	return nil
}

func (e *Engine) issueAccess(userID, sessionID string) (string, int64, error) {
	tok, err := e.tokens.Issue(userID, token.PurposeAccess, token.WithSession(sessionID))
	if err != nil {
		return "", 0, err
	}
	return tok, int64(e.tokens.TTL(token.PurposeAccess).Seconds()), nil
}

func (e *Engine) verifyPurposeToken(tokenStr string, purpose token.Purpose) (userID, sessionID string, expired bool, err error) {
	claims, err := e.tokens.Verify(tokenStr, purpose)
	if err != nil {
		return "", "", errors.Is(err, token.ErrExpired), err
	}
	return claims.Subject, claims.SessionID, false, nil
}

func (e *Engine) warnf(msg string, args ...any) {
	e.logger.Warn().Msgf(msg, args...)
}

// buildFlowDeps wires every flow dependency set against the engine's
// stores, token manager, limiter, audit dispatcher, and metrics bank.
// Called once from Build; the result is immutable afterwards.
func (e *Engine) buildFlowDeps() flows.Deps {
	metricInc := func(id int) { e.metricInc(MetricID(id)) }
	emitAudit := func(ctx context.Context, event string, success bool, userID, sessionID string, cause error, meta func() map[string]string) {
		e.emitAudit(ctx, event, success, userID, sessionID, cause, meta)
	}

	getSession := func(ctx context.Context, sessionID string) (flows.SessionRecord, bool, error) {
		rec, err := e.sessions.Get(ctx, sessionID)
		if errors.Is(err, ErrSessionNotFound) {
			return flows.SessionRecord{}, false, nil
		}
		if err != nil {
			return flows.SessionRecord{}, false, err
		}
		return toFlowSession(rec), true, nil
	}
	listSessions := func(ctx context.Context, userID string) ([]flows.SessionRecord, error) {
		records, err := e.sessions.ListByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		out := make([]flows.SessionRecord, len(records))
		for i, rec := range records {
			out[i] = toFlowSession(rec)
		}
		return out, nil
	}
	revokeSession := func(ctx context.Context, sessionID string, at int64) error {
		return e.sessions.Revoke(ctx, sessionID, timeOrZero(at))
	}
	touchSession := func(ctx context.Context, sessionID string, at int64) error {
		return e.sessions.Touch(ctx, sessionID, timeOrZero(at))
	}
	revokeChain := func(ctx context.Context, sessionID string, at int64) error {
		return e.refreshTokens.RevokeBySession(ctx, sessionID, timeOrZero(at))
	}

	sessionDeps := flows.SessionDeps{
		MaxPerUser:           e.config.Session.MaxPerUser,
		UserAgentMaxBytes:    e.config.Session.UserAgentMaxBytes,
		Now:                  e.now,
		ClientIPFromContext:  clientIPFromContext,
		UserAgentFromContext: userAgentFromContext,
		SessionTTL:           e.sessionTTL,
		NewSessionID: func() (string, error) {
			sid, err := internal.NewSessionID()
			if err != nil {
				return "", err
			}
			return sid.String(), nil
		},
		ListSessions: listSessions,
		SaveSession: func(ctx context.Context, record flows.SessionRecord) error {
			return e.sessions.Save(ctx, fromFlowSession(record))
		},
		RevokeSession: revokeSession,
		RevokeRefresh: revokeChain,
		IssueAccess:   e.issueAccess,
		IssueRefresh: func(ctx context.Context, userID, sessionID string, expiresAt int64) (string, error) {
			recordID := internal.NewCorrelationID()
			tok, err := e.tokens.Issue(userID, token.PurposeRefresh,
				token.WithSession(sessionID), token.WithCorrelation(recordID))
			if err != nil {
				return "", err
			}
			record := RefreshTokenRecord{
				ID:        recordID,
				SessionID: sessionID,
				UserID:    userID,
				TokenHash: internal.HashToken(tok),
				IssuedAt:  e.now(),
				ExpiresAt: timeOrZero(expiresAt),
			}
			if err := e.refreshTokens.Save(ctx, record); err != nil {
				return "", err
			}
			return tok, nil
		},
		Warn:   e.warnf,
		Errors: flows.SessionErrors{EngineNotReady: ErrEngineNotReady},
	}

	loginDeps := flows.LoginDeps{
		Now:                 e.now,
		ClientIPFromContext: clientIPFromContext,
		CheckLoginRate: func(ctx context.Context, identifier, ip string) error {
			return e.checkRate(ctx, "login", identifier+"@"+ip)
		},
		GetUserByIdentifier: func(ctx context.Context, identifier string) (flows.LoginUserRecord, bool, error) {
			rec, err := e.credentials.GetByIdentifier(ctx, identifier)
			if errors.Is(err, ErrUserNotFound) {
				return flows.LoginUserRecord{}, false, nil
			}
			if err != nil {
				return flows.LoginUserRecord{}, false, err
			}
			return flows.LoginUserRecord{
				UserID:         rec.UserID,
				Identifier:     rec.Identifier,
				PasswordHash:   rec.PasswordHash,
				FailedAttempts: rec.FailedAttempts,
				LockedUntil:    unixOrZero(rec.LockedUntil),
			}, true, nil
		},
		RecordFailure: func(ctx context.Context, userID string, at int64) (bool, error) {
			if !e.config.Lockout.Enabled {
				return false, nil
			}
			return e.credentials.RecordFailure(ctx, userID, timeOrZero(at),
				e.config.Lockout.Threshold, e.config.Lockout.Duration)
		},
		ClearFailures: func(ctx context.Context, userID string) error {
			return e.credentials.ClearFailures(ctx, userID)
		},
		VerifyPassword: e.hasher.Verify,
		DummyVerify: func(plaintext string) {
			e.hasher.Verify(plaintext, e.dummyHash)
		},
		CreateSession: func(ctx context.Context, userID string, rememberMe bool) (flows.CreateSessionResult, error) {
			return flows.RunCreateSession(ctx, userID, rememberMe, e.deps.Session)
		},
		MetricInc: metricInc,
		EmitAudit: emitAudit,
		Warn:      e.warnf,
		Metrics: flows.LoginMetrics{
			LoginSuccess:     int(metrics.MetricLoginSuccess),
			LoginFailure:     int(metrics.MetricLoginFailure),
			LoginRateLimited: int(metrics.MetricLoginRateLimited),
			LoginLockout:     int(metrics.MetricLoginLockout),
			SessionCreated:   int(metrics.MetricSessionCreated),
			SessionEvicted:   int(metrics.MetricSessionEvicted),
		},
		Events: flows.LoginEvents{
			LoginSuccess:     auditEventLoginSuccess,
			LoginFailure:     auditEventLoginFailure,
			LoginRateLimited: auditEventLoginRateLimited,
			AccountLocked:    auditEventAccountLocked,
			SessionCreated:   auditEventSessionCreated,
			SessionEvicted:   auditEventSessionEvicted,
		},
		Errors: flows.LoginErrors{
			EngineNotReady:     ErrEngineNotReady,
			InvalidCredentials: ErrInvalidCredentials,
			AccountLocked:      ErrAccountLocked,
			RateLimited:        ErrRateLimited,
		},
	}

	registerDeps := flows.RegisterDeps{
		Now:                 e.now,
		ClientIPFromContext: clientIPFromContext,
		CheckRegisterRate: func(ctx context.Context, ip string) error {
			return e.checkRate(ctx, "register", ip)
		},
		ValidatePassword: e.validatePasswordPolicy,
		HashPassword: func(plaintext string) (string, error) {
			hash, err := e.hasher.Hash(plaintext)
			if err != nil {
				return "", fmt.Errorf("%w: %v", ErrHashingFailure, err)
			}
			return hash, nil
		},
		NewUserID: internal.NewCorrelationID,
		CreateUser: func(ctx context.Context, userID, identifier, passwordHash string, createdAt int64) (bool, error) {
			err := e.credentials.Create(ctx, CredentialRecord{
				UserID:       userID,
				Identifier:   identifier,
				PasswordHash: passwordHash,
				CreatedAt:    timeOrZero(createdAt),
				UpdatedAt:    timeOrZero(createdAt),
			})
			if errors.Is(err, ErrAccountExists) {
				return true, nil
			}
			return false, err
		},
		IssueVerificationToken: func(userID string) (string, error) {
			return e.tokens.Issue(userID, token.PurposeEmailVerification)
		},
		MetricInc: metricInc,
		EmitAudit: emitAudit,
		Metrics: flows.RegisterMetrics{
			RegisterSuccess:     int(metrics.MetricRegisterSuccess),
			RegisterFailure:     int(metrics.MetricRegisterFailure),
			RegisterRateLimited: int(metrics.MetricRegisterRateLimited),
		},
		Events: flows.RegisterEvents{
			RegisterSuccess:     auditEventRegisterSuccess,
			RegisterFailure:     auditEventRegisterFailure,
			RegisterRateLimited: auditEventRegisterRateLimited,
		},
		Errors: flows.RegisterErrors{
			EngineNotReady: ErrEngineNotReady,
			AccountExists:  ErrAccountExists,
			RateLimited:    ErrRateLimited,
			PasswordPolicy: ErrPasswordPolicy,
		},
	}

	refreshDeps := flows.RefreshDeps{
		Now: e.now,
		VerifyRefreshToken: func(tokenStr string) (string, string, bool, error) {
			return e.verifyPurposeToken(tokenStr, token.PurposeRefresh)
		},
		HashToken: internal.HashToken,
		CheckRefreshRate: func(ctx context.Context, sessionID string) error {
			return e.checkRate(ctx, "refresh", sessionID)
		},
		GetRefreshByHash: func(ctx context.Context, hash string) (flows.RefreshRecord, bool, error) {
			rec, err := e.refreshTokens.GetByHash(ctx, hash)
			if errors.Is(err, ErrRefreshInvalid) {
				return flows.RefreshRecord{}, false, nil
			}
			if err != nil {
				return flows.RefreshRecord{}, false, err
			}
			return toFlowRefresh(rec), true, nil
		},
		Rotate: func(ctx context.Context, oldID string, usedAt int64, replacement flows.RefreshRecord) (bool, error) {
			return e.refreshTokens.Rotate(ctx, oldID, timeOrZero(usedAt), fromFlowRefresh(replacement))
		},
		RevokeChain:   revokeChain,
		RevokeSession: revokeSession,
		GetSession:    getSession,
		TouchSession:  touchSession,
		IssueAccess:   e.issueAccess,
		IssueRefresh: func(userID, sessionID string, expiresAt int64) (string, string, error) {
			recordID := internal.NewCorrelationID()
			tok, err := e.tokens.Issue(userID, token.PurposeRefresh,
				token.WithSession(sessionID), token.WithCorrelation(recordID))
			if err != nil {
				return "", "", err
			}
			return tok, recordID, nil
		},
		Warn: e.warnf,
	}

	validateDeps := flows.ValidateDeps{
		Now: e.now,
		VerifyAccessToken: func(tokenStr string) (string, string, bool, error) {
			return e.verifyPurposeToken(tokenStr, token.PurposeAccess)
		},
		GetSession:   getSession,
		TouchSession: touchSession,
		Warn:         e.warnf,
	}

	logoutDeps := flows.LogoutDeps{
		Now:           e.now,
		GetSession:    getSession,
		ListSessions:  listSessions,
		RevokeSession: revokeSession,
		RevokeChain:   revokeChain,
		Warn:          e.warnf,
	}

	return flows.Deps{
		Login:    loginDeps,
		Register: registerDeps,
		Session:  sessionDeps,
		Refresh:  refreshDeps,
		Validate: validateDeps,
		Logout:   logoutDeps,
	}
}

func (e *Engine) validatePasswordPolicy(plaintext string) error {
	if len(plaintext) < e.config.Password.MinLength {
		return fmt.Errorf("%w: minimum length %d", ErrPasswordPolicy, e.config.Password.MinLength)
	}
	return nil
}
