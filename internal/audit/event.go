// Package audit hands security events to an external sink without ever blocking or
// failing the operation that produced them.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// Event actions.
const (
	ActionTokenRevoked     = "token.revoked"
	ActionTokensRevokedAll = "tokens.revoked_all"
	ActionLoginRejected    = "login.rejected"
	ActionSecretRotated    = "application.secret_rotated"
)

// Event is a single audit record. Fields that do not apply to an action are empty.
type Event struct {
	Action     string
	Subject    string
	TokenID    string
	DeviceID   string
	Reason     string
	Count      int64
	OccurredAt time.Time
}

// Sink persists or forwards audit events.
type Sink interface {
	Write(ctx context.Context, event Event) error
}

// Recorder accepts audit events on the caller's behalf.
type Recorder interface {
	Record(event Event)
}

// LogSink writes events as structured log records.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink that logs at info level under the "audit" group.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Write implements Sink.
func (s *LogSink) Write(ctx context.Context, event Event) error {
	s.logger.InfoContext(ctx, "audit event",
		slog.Group("audit",
			slog.String("action", event.Action),
			slog.String("subject", event.Subject),
			slog.String("token_id", event.TokenID),
			slog.String("device_id", event.DeviceID),
			slog.String("reason", event.Reason),
			slog.Int64("count", event.Count),
			slog.Time("occurred_at", event.OccurredAt),
		),
	)
	return nil
}
