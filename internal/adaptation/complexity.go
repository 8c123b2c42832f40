package adaptation

import (
	"context"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutord/internal/generator"
	"github.com/fyrsmithlabs/tutord/internal/tutor"
)

// Complexity bands over the blended performance score.
const (
	complexThreshold  = 80.0
	moderateThreshold = 60.0
)

// ComplexityResult is the outcome of a complexity adjustment.
type ComplexityResult struct {
	Complexity       string  `json:"complexity"`
	PerformanceLabel string  `json:"performance_label"`
	AverageScore     float64 `json:"average_score"`
	Content          string  `json:"content"`
	Recommendation   string  `json:"recommendation"`
	Degraded         bool    `json:"degraded,omitempty"`
}

// AdjustComplexity blends subject accuracy, the most recent topic score, and
// overall accuracy into a complexity band, then requests matching content.
func (e *Engine) AdjustComplexity(ctx context.Context, userID, subject, topic string, persona tutor.Persona) ComplexityResult {
	summary := e.tracker.Summary(userID)

	subjectScore := summary.PerSubject[subject].AccuracyPercentage
	recentScore, _ := e.tracker.MostRecentScore(userID, topic)
	avg := (subjectScore + recentScore + summary.AccuracyPercentage) / 3

	var complexity string
	switch {
	case avg >= complexThreshold:
		complexity = "complex"
	case avg >= moderateThreshold:
		complexity = "moderate"
	default:
		complexity = "simple"
	}

	label := performanceLabel(avg)

	adj, degraded := e.complexityContent(ctx, generator.ComplexityRequest{
		Subject:          subject,
		Topic:            topic,
		Complexity:       complexity,
		PerformanceLabel: label,
		Persona:          persona,
	})

	e.logger.Debug("complexity adjusted",
		zap.String("user_id", userID),
		zap.String("complexity", complexity),
		zap.Float64("average_score", avg))

	return ComplexityResult{
		Complexity:       complexity,
		PerformanceLabel: label,
		AverageScore:     avg,
		Content:          adj.Content,
		Recommendation:   adj.Recommendation,
		Degraded:         degraded,
	}
}

func performanceLabel(avg float64) string {
	switch {
	case avg >= 70:
		return "good"
	case avg >= 50:
		return "average"
	default:
		return "poor"
	}
}
