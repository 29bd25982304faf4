package audit

import (
	"context"

	"github.com/rs/zerolog"
)

// ZerologSink renders audit events through a zerolog logger, mapping
// event severity onto log level.
type ZerologSink struct {
	logger zerolog.Logger
}

func NewZerologSink(logger zerolog.Logger) *ZerologSink {
	return &ZerologSink{logger: logger}
}

func (s *ZerologSink) Emit(_ context.Context, event Event) {
	if s == nil {
		return
	}

	var entry *zerolog.Event
	switch event.Severity {
	case SeverityCritical:
		entry = s.logger.Error()
	case SeverityWarning:
		entry = s.logger.Warn()
	default:
		entry = s.logger.Info()
	}

	entry = entry.
		Time("event_time", event.Timestamp).
		Str("event_type", event.EventType).
		Str("severity", string(event.Severity)).
		Bool("success", event.Success)

	if event.UserID != "" {
		entry = entry.Str("user_id", event.UserID)
	}
	if event.SessionID != "" {
		entry = entry.Str("session_id", event.SessionID)
	}
	if event.IP != "" {
		entry = entry.Str("ip", event.IP)
	}
	if event.Error != "" {
		entry = entry.Str("error", event.Error)
	}
	for k, v := range event.Metadata {
		entry = entry.Str("meta_"+k, v)
	}

	entry.Msg("audit event")
}
