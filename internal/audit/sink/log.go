// Package sink provides audit event destinations outside the database.
package sink

import (
	"context"
	"log/slog"

	auditDomain "github.com/allisson/pseudonyms/internal/audit/domain"
)

// LogSink writes audit events to the structured application log.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Name identifies the sink in logs.
func (l *LogSink) Name() string { return "log" }

// Write logs event at info level.
func (l *LogSink) Write(ctx context.Context, event *auditDomain.Event) error {
	attrs := []slog.Attr{
		slog.String("event_id", event.ID.String()),
		slog.Int64("requester_principal_id", event.RequesterPrincipalID),
		slog.String("operation", string(event.Operation)),
		slog.String("outcome", string(event.Outcome)),
		slog.Time("timestamp", event.Timestamp),
	}
	if event.GroupID != nil {
		attrs = append(attrs, slog.Int64("group_id", *event.GroupID))
	}
	if event.SubjectPrincipalID != nil {
		attrs = append(attrs, slog.Int64("subject_principal_id", *event.SubjectPrincipalID))
	}
	l.logger.LogAttrs(ctx, slog.LevelInfo, "audit event", attrs...)
	return nil
}
