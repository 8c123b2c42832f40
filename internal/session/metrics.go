package session

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/fyrsmithlabs/tutord/internal/session"

// Metrics holds session lifecycle metrics.
type Metrics struct {
	meter    metric.Meter
	started  metric.Int64Counter
	advances metric.Int64Counter
}

// NewMetrics creates a new Metrics instance for the session manager.
func NewMetrics() *Metrics {
	m := &Metrics{meter: otel.Meter(instrumentationName)}

	m.started, _ = m.meter.Int64Counter(
		"tutord.sessions.started_total",
		metric.WithDescription("Total sessions started"),
		metric.WithUnit("{session}"),
	)
	m.advances, _ = m.meter.Int64Counter(
		"tutord.sessions.advances_total",
		metric.WithDescription("Total advancement attempts by decision type"),
		metric.WithUnit("{advance}"),
	)

	return m
}

// RecordStart counts a session start.
func (m *Metrics) RecordStart(ctx context.Context) {
	if m.started != nil {
		m.started.Add(ctx, 1)
	}
}

// RecordAdvance counts an advancement attempt.
func (m *Metrics) RecordAdvance(ctx context.Context, decisionType string) {
	if m.advances != nil {
		m.advances.Add(ctx, 1, metric.WithAttributes(attribute.String("decision", decisionType)))
	}
}
