package authcore

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/flows"
	"github.com/MrEthical07/authcore/internal/metrics"
	"github.com/MrEthical07/authcore/keyring"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/ratelimit"
	"github.com/MrEthical07/authcore/token"
)

// Engine defines a public type used by authcore APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config        Config
	credentials   CredentialStore
	sessions      SessionStore
	refreshTokens RefreshTokenStore

	keys    keyring.Provider
	tokens  *token.Manager
	hasher  *password.Hasher
	limiter *ratelimit.Limiter
	audit   *audit.Dispatcher
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time

	// dummyHash is verified against when an identifier does not resolve,
	// keeping the failure path's cost independent of account existence.
	dummyHash string

	deps flows.Deps
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) sessionTTL(rememberMe bool) time.Duration {
	if rememberMe {
		return e.config.Session.RememberMeTTL
	}
	return e.config.Session.TTL
}

func (e *Engine) ready() bool {
	return e != nil &&
		e.credentials != nil &&
		e.sessions != nil &&
		e.refreshTokens != nil &&
		e.tokens != nil &&
		e.hasher != nil
}
