package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/pseudonyms/internal/audit/domain"
)

type publisher struct {
	signer Signer
	sinks  []Sink
	logger *slog.Logger
}

// NewPublisher creates a Publisher that signs each event and writes it to every sink.
// Sink failures are logged and do not stop delivery to the remaining sinks.
func NewPublisher(signer Signer, logger *slog.Logger, sinks ...Sink) Publisher {
	return &publisher{signer: signer, sinks: sinks, logger: logger}
}

func (p *publisher) Publish(ctx context.Context, event *auditDomain.Event) {
	if event.ID == uuid.Nil {
		event.ID = uuid.Must(uuid.NewV7())
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC().Truncate(time.Microsecond)
	}
	event.Signature = p.signer.Sign(event)

	for _, sink := range p.sinks {
		if err := sink.Write(ctx, event); err != nil {
			p.logger.Error("failed to write audit event",
				slog.String("sink", sink.Name()),
				slog.String("event_id", event.ID.String()),
				slog.String("operation", string(event.Operation)),
				slog.Any("error", err),
			)
		}
	}
}

// RepositorySink adapts an EventRepository to a Sink.
type RepositorySink struct {
	repo EventRepository
}

// NewRepositorySink creates a Sink writing to the database.
func NewRepositorySink(repo EventRepository) *RepositorySink {
	return &RepositorySink{repo: repo}
}

// Name identifies the sink in logs.
func (r *RepositorySink) Name() string { return "database" }

// Write stores event.
func (r *RepositorySink) Write(ctx context.Context, event *auditDomain.Event) error {
	return r.repo.Create(ctx, event)
}
