package usecase

import (
	"context"
	"time"

	apperrors "github.com/allisson/pseudonyms/internal/errors"
)

// EventVerifier re-checks signatures of stored audit events.
type EventVerifier struct {
	repo   EventRepository
	signer Signer
}

// NewEventVerifier creates an EventVerifier.
func NewEventVerifier(repo EventRepository, signer Signer) *EventVerifier {
	return &EventVerifier{repo: repo, signer: signer}
}

// Verify checks up to limit events created in [from, to].
func (v *EventVerifier) Verify(
	ctx context.Context,
	from, to time.Time,
	limit int,
) (*VerificationReport, error) {
	events, err := v.repo.List(ctx, from, to, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit events")
	}

	report := &VerificationReport{Checked: len(events)}
	for _, event := range events {
		if err := v.signer.Verify(event); err != nil {
			report.Invalid = append(report.Invalid, event)
		}
	}
	return report, nil
}
