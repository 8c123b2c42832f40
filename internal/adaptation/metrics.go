package adaptation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/fyrsmithlabs/tutord/internal/adaptation"

// Metrics holds adaptation engine metrics.
type Metrics struct {
	meter     metric.Meter
	decisions metric.Int64Counter
}

// NewMetrics creates a new Metrics instance for the engine.
func NewMetrics() *Metrics {
	m := &Metrics{meter: otel.Meter(instrumentationName)}

	m.decisions, _ = m.meter.Int64Counter(
		"tutord.adaptation.decisions_total",
		metric.WithDescription("Total adaptation decisions by type"),
		metric.WithUnit("{decision}"),
	)

	return m
}

// RecordDecision counts one decision of the given type.
func (m *Metrics) RecordDecision(ctx context.Context, decisionType string) {
	if m.decisions != nil {
		m.decisions.Add(ctx, 1, metric.WithAttributes(attribute.String("type", decisionType)))
	}
}
