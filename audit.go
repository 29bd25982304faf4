package authcore

import (
	"context"
	"errors"
	"io"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"

	"github.com/MrEthical07/authcore/internal/audit"
)

const (
	auditEventLoginSuccess        = "login_success"
	auditEventLoginFailure        = "login_failure"
	auditEventLoginRateLimited    = "login_rate_limited"
	auditEventAccountLocked       = "account_locked"
	auditEventRegisterSuccess     = "registration_success"
	auditEventRegisterFailure     = "registration_failure"
	auditEventRegisterRateLimited = "registration_rate_limited"
	auditEventRefreshSuccess      = "token_refresh"
	auditEventRefreshInvalid      = "refresh_invalid"
	auditEventRefreshRateLimited  = "refresh_rate_limited"
	auditEventRefreshReuse        = "refresh_reuse_detected"
	auditEventSessionCreated      = "session_created"
	auditEventSessionEvicted      = "session_evicted"
	auditEventSessionRevoked      = "session_revoked"
	auditEventLogoutSession       = "logout_session"
	auditEventLogoutAll           = "logout_all"
	auditEventRateLimitFailOpen   = "rate_limiter_fail_open"
)

// NewChannelSink returns a sink that buffers events on a channel.
func NewChannelSink(buffer int) *audit.ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink that writes one JSON object per line.
func NewJSONWriterSink(w io.Writer) *audit.JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// NewZerologSink returns a sink that renders events through a zerolog
// logger at a level matching the event severity.
func NewZerologSink(logger zerolog.Logger) *audit.ZerologSink {
	return audit.NewZerologSink(logger)
}

// NewSentrySink returns a sink that forwards warning and critical events
// to Sentry. Pass nil to use the current global hub.
func NewSentrySink(hub *sentry.Hub) *audit.SentrySink {
	return audit.NewSentrySink(hub)
}

// NewMultiSink fans events out to every given sink in order.
func NewMultiSink(sinks ...AuditSink) *audit.MultiSink {
	return audit.NewMultiSink(sinks...)
}

// AuditErrorCode defines a public type used by authcore APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrAccountLocked      AuditErrorCode = "account_locked"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrHashing            AuditErrorCode = "hashing_failure"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrTokenExpired       AuditErrorCode = "token_expired"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrSessionNotFound    AuditErrorCode = "session_not_found"
	auditErrSessionRevoked     AuditErrorCode = "session_revoked"
	auditErrRefreshReuse       AuditErrorCode = "refresh_reuse"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrAccountLocked):
		return auditErrAccountLocked
	case errors.Is(err, ErrAccountExists):
		return auditErrDuplicate
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrHashingFailure):
		return auditErrHashing
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrRefreshInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrSessionRevoked):
		return auditErrSessionRevoked
	case errors.Is(err, ErrRefreshReuse):
		return auditErrRefreshReuse
	default:
		return auditErrInternal
	}
}

// auditEventSeverity assigns the review urgency for each event type.
// Reuse detection and lockouts are the signals an operator must see.
func auditEventSeverity(eventType string, success bool) audit.Severity {
	switch eventType {
	case auditEventRefreshReuse, auditEventAccountLocked:
		return audit.SeverityCritical
	case auditEventLoginRateLimited,
		auditEventRegisterRateLimited,
		auditEventRefreshRateLimited,
		auditEventRateLimitFailOpen,
		auditEventSessionEvicted:
		return audit.SeverityWarning
	}
	if !success {
		return audit.SeverityWarning
	}
	return audit.SeverityInfo
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := audit.Event{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		Severity:  auditEventSeverity(eventType, success),
		UserID:    userID,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}
