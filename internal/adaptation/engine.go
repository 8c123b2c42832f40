// Package adaptation decides how a learner's path adjusts to their measured
// performance: remediation, acceleration, progressive hints, and complexity
// tuning.
package adaptation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutord/internal/generator"
	"github.com/fyrsmithlabs/tutord/internal/performance"
	"github.com/fyrsmithlabs/tutord/internal/tutor"
)

// DecisionType classifies a path decision.
type DecisionType string

const (
	DecisionRemedial     DecisionType = "remedial"
	DecisionAcceleration DecisionType = "acceleration"
	DecisionNormal       DecisionType = "normal"
)

// Accuracy thresholds (as probabilities) for path decisions.
const (
	remedialThreshold   = 0.60
	accelerateThreshold = 0.85

	// maxStepsSkipped bounds how far acceleration can jump.
	maxStepsSkipped = 2
)

// DecideRequest asks for a path decision at the current position.
type DecideRequest struct {
	UserID      string
	Subject     string
	Topic       string
	CurrentStep int
	TotalSteps  int
	Persona     tutor.Persona
}

// Decision is the engine's verdict for the next step.
type Decision struct {
	Type              DecisionType `json:"type"`
	Message           string       `json:"message"`
	RecommendedAction string       `json:"recommended_action"`
	ContinuePath      bool         `json:"continue_path"`
	NextStep          int          `json:"next_step"`
	StepsSkipped      int          `json:"steps_skipped,omitempty"`
	Content           string       `json:"content,omitempty"`
	Recommendations   []string     `json:"recommendations,omitempty"`
	Degraded          bool         `json:"degraded,omitempty"`
	Timestamp         time.Time    `json:"timestamp"`
}

// Engine makes adaptation decisions from tracked performance.
type Engine struct {
	tracker *performance.Tracker
	gen     generator.Generator
	logger  *zap.Logger
	metrics *Metrics

	mu      sync.Mutex
	history map[string][]Decision
	hints   map[string][]generator.Hint
}

// NewEngine creates an engine. The generator may be nil; decisions then carry
// fallback content only.
func NewEngine(tracker *performance.Tracker, gen generator.Generator, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		tracker: tracker,
		gen:     gen,
		logger:  logger,
		metrics: NewMetrics(),
		history: make(map[string][]Decision),
		hints:   make(map[string][]generator.Hint),
	}
}

// Decide evaluates the learner's accuracy and picks remediation,
// acceleration, or normal progression. The decision is appended to the user's
// history.
func (e *Engine) Decide(ctx context.Context, req DecideRequest) Decision {
	summary := e.tracker.Summary(req.UserID)

	p := summary.AccuracyPercentage / 100
	if stats, ok := summary.PerTopic[req.Topic]; ok && stats.Total > 0 {
		p = stats.AccuracyPercentage / 100
	}

	var decision Decision
	switch {
	case p < remedialThreshold:
		decision = e.remedialDecision(ctx, req)
	case p > accelerateThreshold:
		decision = e.accelerationDecision(ctx, req)
	default:
		decision = e.normalDecision(req)
	}
	decision.Timestamp = time.Now().UTC()

	e.metrics.RecordDecision(ctx, string(decision.Type))
	e.logger.Debug("adaptation decision",
		zap.String("user_id", req.UserID),
		zap.String("type", string(decision.Type)),
		zap.Float64("accuracy", p),
		zap.Int("next_step", decision.NextStep))

	e.mu.Lock()
	e.history[req.UserID] = append(e.history[req.UserID], decision)
	e.mu.Unlock()

	return decision
}

func (e *Engine) normalDecision(req DecideRequest) Decision {
	return Decision{
		Type:              DecisionNormal,
		Message:           "You're on track. Keep going.",
		RecommendedAction: "continue",
		ContinuePath:      true,
		NextStep:          req.CurrentStep + 1,
	}
}

func (e *Engine) remedialDecision(ctx context.Context, req DecideRequest) Decision {
	decision := Decision{
		Type:              DecisionRemedial,
		Message:           fmt.Sprintf("Let's spend more time on %s before moving on.", req.Topic),
		RecommendedAction: "review",
		ContinuePath:      false,
		NextStep:          req.CurrentStep,
	}

	adjReq := generator.ComplexityRequest{
		Subject:          req.Subject,
		Topic:            req.Topic,
		Complexity:       "simple",
		PerformanceLabel: "poor",
		Persona:          req.Persona,
	}
	adj, degraded := e.complexityContent(ctx, adjReq)
	decision.Content = adj.Content
	decision.Recommendations = []string{adj.Recommendation}
	decision.Degraded = degraded
	return decision
}

func (e *Engine) accelerationDecision(ctx context.Context, req DecideRequest) Decision {
	skipped := req.TotalSteps - req.CurrentStep
	if skipped > maxStepsSkipped {
		skipped = maxStepsSkipped
	}
	if skipped < 0 {
		skipped = 0
	}

	decision := Decision{
		Type:              DecisionAcceleration,
		Message:           fmt.Sprintf("Excellent work on %s. Skipping ahead.", req.Topic),
		RecommendedAction: "accelerate",
		ContinuePath:      true,
		NextStep:          req.CurrentStep + skipped,
		StepsSkipped:      skipped,
	}

	adjReq := generator.ComplexityRequest{
		Subject:          req.Subject,
		Topic:            req.Topic,
		Complexity:       "complex",
		PerformanceLabel: "good",
		Persona:          req.Persona,
	}
	adj, degraded := e.complexityContent(ctx, adjReq)
	decision.Content = adj.Content
	decision.Recommendations = []string{adj.Recommendation}
	decision.Degraded = degraded
	return decision
}

func (e *Engine) complexityContent(ctx context.Context, req generator.ComplexityRequest) (*generator.ComplexityAdjustment, bool) {
	if e.gen != nil {
		adj, err := e.gen.GenerateComplexityAdjustment(ctx, req)
		if err == nil {
			return adj, false
		}
		e.logger.Warn("complexity content generation failed, using fallback", zap.Error(err))
	}
	return generator.FallbackComplexityAdjustment(req), true
}

// History returns a copy of the user's decision history in order.
func (e *Engine) History(userID string) []Decision {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Decision(nil), e.history[userID]...)
}
