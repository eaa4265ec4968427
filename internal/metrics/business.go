package metrics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BusinessMetrics records pseudonym service metrics.
type BusinessMetrics interface {
	// RecordOperation counts a use case call. Status is "success" or "error".
	RecordOperation(ctx context.Context, domain, operation, status string)

	// RecordDuration records the duration of a use case call in seconds.
	RecordDuration(ctx context.Context, domain, operation string, duration time.Duration, status string)

	// RecordPseudonyms counts generation results, split by whether a new member was created.
	RecordPseudonyms(ctx context.Context, created, existing int)

	// RecordMigratedMembers counts members handled by an identity migration.
	RecordMigratedMembers(ctx context.Context, migrated, skipped int)

	// RecordAccessDecision counts owner checks by operation and outcome.
	RecordAccessDecision(ctx context.Context, operation, outcome string)
}

type businessMetrics struct {
	operationCounter metric.Int64Counter
	durationHisto    metric.Float64Histogram
	pseudonymCounter metric.Int64Counter
	migrationCounter metric.Int64Counter
	decisionCounter  metric.Int64Counter
}

// NewBusinessMetrics creates a BusinessMetrics backed by meterProvider.
// Metric names are prefixed with namespace (e.g., "pseudonyms_operations_total").
func NewBusinessMetrics(meterProvider metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	meter := meterProvider.Meter(namespace)

	operationCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_operations_total", namespace),
		metric.WithDescription("Total number of business operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_operation_duration_seconds", namespace),
		metric.WithDescription("Duration of business operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	pseudonymCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_pseudonyms_total", namespace),
		metric.WithDescription("Pseudonyms returned by generation, by whether the member was new"),
		metric.WithUnit("{pseudonym}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pseudonym counter: %w", err)
	}

	migrationCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_migrated_members_total", namespace),
		metric.WithDescription("Members handled by identity migrations"),
		metric.WithUnit("{member}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration counter: %w", err)
	}

	decisionCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_access_decisions_total", namespace),
		metric.WithDescription("Owner checks by operation and outcome"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create access decision counter: %w", err)
	}

	return &businessMetrics{
		operationCounter: operationCounter,
		durationHisto:    durationHisto,
		pseudonymCounter: pseudonymCounter,
		migrationCounter: migrationCounter,
		decisionCounter:  decisionCounter,
	}, nil
}

func (b *businessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	b.operationCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("domain", domain),
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

func (b *businessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	b.durationHisto.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("domain", domain),
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

func (b *businessMetrics) RecordPseudonyms(ctx context.Context, created, existing int) {
	for isNew, n := range map[bool]int{true: created, false: existing} {
		if n == 0 {
			continue
		}
		b.pseudonymCounter.Add(ctx, int64(n),
			metric.WithAttributes(attribute.String("created", strconv.FormatBool(isNew))),
		)
	}
}

func (b *businessMetrics) RecordMigratedMembers(ctx context.Context, migrated, skipped int) {
	for result, n := range map[string]int{"migrated": migrated, "skipped": skipped} {
		if n == 0 {
			continue
		}
		b.migrationCounter.Add(ctx, int64(n), metric.WithAttributes(attribute.String("result", result)))
	}
}

func (b *businessMetrics) RecordAccessDecision(ctx context.Context, operation, outcome string) {
	b.decisionCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("outcome", outcome),
		),
	)
}

// NoOpBusinessMetrics is used when metrics are disabled.
type NoOpBusinessMetrics struct{}

// NewNoOpBusinessMetrics creates a no-op BusinessMetrics implementation.
func NewNoOpBusinessMetrics() BusinessMetrics {
	return &NoOpBusinessMetrics{}
}

func (n *NoOpBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
}

func (n *NoOpBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
}

func (n *NoOpBusinessMetrics) RecordPseudonyms(ctx context.Context, created, existing int) {}

func (n *NoOpBusinessMetrics) RecordMigratedMembers(ctx context.Context, migrated, skipped int) {}

func (n *NoOpBusinessMetrics) RecordAccessDecision(ctx context.Context, operation, outcome string) {}
