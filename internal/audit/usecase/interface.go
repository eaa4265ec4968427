// Package usecase publishes signed audit events and verifies stored ones.
package usecase

import (
	"context"
	"time"

	auditDomain "github.com/allisson/pseudonyms/internal/audit/domain"
)

// Sink receives signed audit events.
type Sink interface {
	Name() string
	Write(ctx context.Context, event *auditDomain.Event) error
}

// EventRepository persists audit events and reads them back for verification.
type EventRepository interface {
	Create(ctx context.Context, event *auditDomain.Event) error
	List(ctx context.Context, from, to time.Time, limit int) ([]*auditDomain.Event, error)
}

// Signer signs and verifies events.
type Signer interface {
	Sign(event *auditDomain.Event) []byte
	Verify(event *auditDomain.Event) error
}

// Publisher records audit events. Publishing never fails the audited operation.
type Publisher interface {
	Publish(ctx context.Context, event *auditDomain.Event)
}

// VerificationReport is the result of re-checking stored signatures.
type VerificationReport struct {
	Checked int
	Invalid []*auditDomain.Event
}
