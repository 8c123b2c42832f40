package vectorindex

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/fyrsmithlabs/tutord/internal/vectorindex"

// Metrics holds vector index metrics.
type Metrics struct {
	meter    metric.Meter
	upserts  metric.Int64Counter
	searches metric.Int64Counter
}

// NewMetrics creates a new Metrics instance for the vector index.
func NewMetrics() *Metrics {
	m := &Metrics{meter: otel.Meter(instrumentationName)}

	m.upserts, _ = m.meter.Int64Counter(
		"tutord.vectorindex.upserts_total",
		metric.WithDescription("Total vector upserts by namespace"),
		metric.WithUnit("{record}"),
	)
	m.searches, _ = m.meter.Int64Counter(
		"tutord.vectorindex.searches_total",
		metric.WithDescription("Total vector searches by namespace"),
		metric.WithUnit("{search}"),
	)

	return m
}

// RecordUpsert counts a single upsert.
func (m *Metrics) RecordUpsert(ctx context.Context, ns string) {
	if m.upserts != nil {
		m.upserts.Add(ctx, 1, metric.WithAttributes(attribute.String("namespace", ns)))
	}
}

// RecordSearch counts a single search.
func (m *Metrics) RecordSearch(ctx context.Context, ns string) {
	if m.searches != nil {
		m.searches.Add(ctx, 1, metric.WithAttributes(attribute.String("namespace", ns)))
	}
}
