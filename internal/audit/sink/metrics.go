package sink

import (
	"context"

	auditDomain "github.com/allisson/pseudonyms/internal/audit/domain"
	"github.com/allisson/pseudonyms/internal/metrics"
)

// MetricsSink counts audit events as access decisions.
type MetricsSink struct {
	metrics metrics.BusinessMetrics
}

// NewMetricsSink creates a MetricsSink.
func NewMetricsSink(m metrics.BusinessMetrics) *MetricsSink {
	return &MetricsSink{metrics: m}
}

func (m *MetricsSink) Name() string { return "metrics" }

func (m *MetricsSink) Write(ctx context.Context, event *auditDomain.Event) error {
	m.metrics.RecordAccessDecision(ctx, string(event.Operation), string(event.Outcome))
	return nil
}
