package audit

import (
	"context"

	"github.com/getsentry/sentry-go"
)

// SentrySink forwards warning and critical audit events to Sentry.
// Info events are recorded as breadcrumbs only, so routine traffic does
// not flood the project with noise.
type SentrySink struct {
	hub *sentry.Hub
}

// NewSentrySink wraps a Sentry hub. A nil hub uses the current global
// hub, which must have been initialized by the host application.
func NewSentrySink(hub *sentry.Hub) *SentrySink {
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	return &SentrySink{hub: hub}
}

func (s *SentrySink) Emit(_ context.Context, event Event) {
	if s == nil || s.hub == nil {
		return
	}

	s.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("event_type", event.EventType)
		scope.SetTag("severity", string(event.Severity))
		if event.UserID != "" {
			scope.SetUser(sentry.User{ID: event.UserID, IPAddress: event.IP})
		}
		if event.SessionID != "" {
			scope.SetTag("session_id", event.SessionID)
		}
		extras := map[string]interface{}{
			"success":   event.Success,
			"timestamp": event.Timestamp,
		}
		for k, v := range event.Metadata {
			extras[k] = v
		}
		scope.SetExtras(extras)

		switch event.Severity {
		case SeverityCritical:
			scope.SetLevel(sentry.LevelError)
			s.hub.CaptureMessage(event.EventType + ": " + event.Error)
		case SeverityWarning:
			scope.SetLevel(sentry.LevelWarning)
			s.hub.CaptureMessage(event.EventType)
		default:
			s.hub.AddBreadcrumb(&sentry.Breadcrumb{
				Category:  "auth",
				Message:   event.EventType,
				Level:     sentry.LevelInfo,
				Timestamp: event.Timestamp,
			}, nil)
		}
	})
}
