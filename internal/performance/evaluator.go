package performance

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutord/internal/analytics"
	"github.com/fyrsmithlabs/tutord/internal/generator"
	"github.com/fyrsmithlabs/tutord/internal/tutor"
)

// correctThreshold is the minimum score counted as a correct answer.
const correctThreshold = 90.0

// EvaluateRequest describes one submitted answer.
type EvaluateRequest struct {
	UserID        string
	UserAnswer    string
	CorrectAnswer string
	Subject       string
	Topic         string
	Concept       string
	Question      string
	LessonID      string
	Persona       tutor.Persona
}

// Evaluation is the graded result with persona feedback.
type Evaluation struct {
	Score                  float64  `json:"score"`
	IsCorrect              bool     `json:"is_correct"`
	Feedback               string   `json:"feedback"`
	Explanation            string   `json:"explanation"`
	ImprovementSuggestions []string `json:"improvement_suggestions,omitempty"`

	// Degraded is true when feedback came from the fallback path.
	Degraded bool `json:"degraded,omitempty"`
}

// Evaluator grades answers, produces feedback, and records outcomes.
type Evaluator struct {
	tracker  *Tracker
	gen      generator.Generator
	reporter analytics.ProgressReporter
	logger   *zap.Logger
}

// NewEvaluator creates an evaluator. The generator and reporter may be nil;
// grading then runs with fallback feedback and no progress reporting.
func NewEvaluator(tracker *Tracker, gen generator.Generator, reporter analytics.ProgressReporter, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{tracker: tracker, gen: gen, reporter: reporter, logger: logger}
}

// Evaluate grades the answer, generates feedback, records the outcome, and
// reports progress best-effort. It never returns an error: degraded feedback
// is marked on the result instead.
func (e *Evaluator) Evaluate(ctx context.Context, req EvaluateRequest) Evaluation {
	score := e.score(req.UserAnswer, req.CorrectAnswer)
	isCorrect := score >= correctThreshold

	result := Evaluation{Score: score, IsCorrect: isCorrect}

	feedbackReq := generator.FeedbackRequest{
		Question:      req.Question,
		UserAnswer:    req.UserAnswer,
		CorrectAnswer: req.CorrectAnswer,
		IsCorrect:     isCorrect,
		Score:         score,
		Persona:       req.Persona,
	}
	var fb *generator.Feedback
	if e.gen != nil {
		var err error
		fb, err = e.gen.GenerateFeedback(ctx, feedbackReq)
		if err != nil {
			e.logger.Warn("feedback generation failed, using fallback",
				zap.String("user_id", req.UserID), zap.Error(err))
			fb = nil
		}
	}
	if fb == nil {
		fb = generator.FallbackFeedback(feedbackReq)
		result.Degraded = true
	}
	result.Feedback = fb.Feedback
	result.Explanation = fb.Explanation
	result.ImprovementSuggestions = fb.ImprovementSuggestions

	e.tracker.Record(req.UserID, req.Subject, req.Topic, req.Concept, isCorrect, score)
	e.reportProgress(ctx, req, result)
	return result
}

// score computes the similarity score. A panic inside the similarity code
// degrades to exact-match grading rather than failing the evaluation.
func (e *Evaluator) score(userAnswer, correctAnswer string) (score float64) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("similarity scoring panicked, using exact match", zap.Any("panic", r))
			score = 0
			if strings.EqualFold(strings.TrimSpace(userAnswer), strings.TrimSpace(correctAnswer)) {
				score = 100
			}
		}
	}()
	return round2(stringSimilarity(userAnswer, correctAnswer) * 100)
}

func (e *Evaluator) reportProgress(ctx context.Context, req EvaluateRequest, result Evaluation) {
	if e.reporter == nil {
		return
	}
	update := analytics.ProgressUpdate{
		UserID:    req.UserID,
		Subject:   req.Subject,
		LessonID:  req.LessonID,
		Concept:   req.Concept,
		Completed: result.IsCorrect,
		Score:     result.Score,
	}
	if !result.IsCorrect && req.Concept != "" {
		update.RepeatedMistakes = []string{req.Concept}
	}
	if err := e.reporter.Report(ctx, update); err != nil {
		e.logger.Warn("progress report failed", zap.String("user_id", req.UserID), zap.Error(err))
	}
}
