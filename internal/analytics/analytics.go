// Package analytics publishes learning events and progress updates, and keeps
// an in-memory progress ledger feeding curriculum personalization.
package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ProgressUpdate reports the outcome of a learning interaction.
type ProgressUpdate struct {
	UserID           string   `json:"user_id"`
	Subject          string   `json:"subject"`
	LessonID         string   `json:"lesson_id,omitempty"`
	Concept          string   `json:"concept,omitempty"`
	Completed        bool     `json:"completed"`
	Score            float64  `json:"score"`
	TimeSpentSeconds int      `json:"time_spent_seconds,omitempty"`
	RepeatedMistakes []string `json:"repeated_mistakes,omitempty"`
	Notes            string   `json:"notes,omitempty"`
}

// EventSink records discrete learning events.
type EventSink interface {
	Record(ctx context.Context, kind string, payload interface{}) error
}

// ProgressReporter receives progress updates. Callers treat reporting as best
// effort and never propagate its errors.
type ProgressReporter interface {
	Report(ctx context.Context, update ProgressUpdate) error
}

// Publisher is the subset of *nats.Conn the sink needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes events and progress updates as JSON over NATS.
// Publishing is fire-and-forget.
type NATSSink struct {
	pub    Publisher
	prefix string
	logger *zap.Logger
}

// NewNATSSink creates a sink publishing under the given subject prefix
// (default "tutord").
func NewNATSSink(pub Publisher, subjectPrefix string, logger *zap.Logger) *NATSSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	if subjectPrefix == "" {
		subjectPrefix = "tutord"
	}
	return &NATSSink{pub: pub, prefix: subjectPrefix, logger: logger}
}

// Record publishes an event to <prefix>.events.<kind>.
func (s *NATSSink) Record(ctx context.Context, kind string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling event %q: %w", kind, err)
	}
	subject := fmt.Sprintf("%s.events.%s", s.prefix, kind)
	if err := s.pub.Publish(subject, data); err != nil {
		s.logger.Warn("event publish failed", zap.String("subject", subject), zap.Error(err))
		return fmt.Errorf("publishing event %q: %w", kind, err)
	}
	return nil
}

// Report publishes a progress update to <prefix>.progress.<user>.
func (s *NATSSink) Report(ctx context.Context, update ProgressUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshaling progress update: %w", err)
	}
	subject := fmt.Sprintf("%s.progress.%s", s.prefix, update.UserID)
	if err := s.pub.Publish(subject, data); err != nil {
		s.logger.Warn("progress publish failed", zap.String("subject", subject), zap.Error(err))
		return fmt.Errorf("publishing progress update: %w", err)
	}
	return nil
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Record(ctx context.Context, kind string, payload interface{}) error { return nil }

func (NopSink) Report(ctx context.Context, update ProgressUpdate) error { return nil }

// MultiReporter fans one update out to several reporters.
type MultiReporter []ProgressReporter

// Report delivers the update to every reporter and joins their errors.
func (m MultiReporter) Report(ctx context.Context, update ProgressUpdate) error {
	var errs []error
	for _, r := range m {
		if err := r.Report(ctx, update); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
