package performance

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutord/internal/analytics"
	"github.com/fyrsmithlabs/tutord/internal/generator"
)

type fakeGenerator struct {
	generator.Generator

	feedback *generator.Feedback
	err      error
	calls    int
}

func (f *fakeGenerator) GenerateFeedback(ctx context.Context, req generator.FeedbackRequest) (*generator.Feedback, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.feedback, nil
}

func TestStringSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"Paris", "paris", 1},
		{"  Paris  ", "paris", 1},
		{"", "", 1},
		{"cat", "dog", 0},
		{"kitten", "sitting", 1 - 3.0/7.0},
		{"", "paris", 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, stringSimilarity(tt.a, tt.b), 1e-9, "%q vs %q", tt.a, tt.b)
	}
}

func TestLevenshteinDistance(t *testing.T) {
	assert.Equal(t, 0, levenshteinDistance("abc", "abc"))
	assert.Equal(t, 3, levenshteinDistance("kitten", "sitting"))
	assert.Equal(t, 5, levenshteinDistance("", "hello"))
	assert.Equal(t, 1, levenshteinDistance("cart", "cast"))
}

func TestEvaluator_CorrectAnswer(t *testing.T) {
	gen := &fakeGenerator{feedback: &generator.Feedback{Feedback: "Excellent!", Explanation: "Spot on."}}
	tracker := NewTracker()
	ledger := analytics.NewProgressLedger()
	eval := NewEvaluator(tracker, gen, ledger, zap.NewNop())

	result := eval.Evaluate(context.Background(), EvaluateRequest{
		UserID:        "alice",
		UserAnswer:    "Paris",
		CorrectAnswer: "paris",
		Subject:       "geography",
		Topic:         "capitals",
		Concept:       "france",
	})

	assert.Equal(t, 100.0, result.Score)
	assert.True(t, result.IsCorrect)
	assert.Equal(t, "Excellent!", result.Feedback)
	assert.False(t, result.Degraded)

	// The outcome is recorded and reported.
	summary := tracker.Summary("alice")
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Correct)
	snap := ledger.Snapshot("alice", "geography")
	assert.Equal(t, 1, snap.LessonsCompleted)
	assert.Contains(t, snap.Strengths, "france")
}

func TestEvaluator_IncorrectAnswer(t *testing.T) {
	gen := &fakeGenerator{feedback: &generator.Feedback{Feedback: "Not quite."}}
	tracker := NewTracker()
	ledger := analytics.NewProgressLedger()
	eval := NewEvaluator(tracker, gen, ledger, zap.NewNop())

	result := eval.Evaluate(context.Background(), EvaluateRequest{
		UserID:        "alice",
		UserAnswer:    "dog",
		CorrectAnswer: "cat",
		Subject:       "biology",
		Topic:         "animals",
		Concept:       "felines",
	})

	assert.Zero(t, result.Score)
	assert.False(t, result.IsCorrect)

	// Incorrect answers report the concept as a repeated mistake.
	snap := ledger.Snapshot("alice", "biology")
	assert.Contains(t, snap.Weaknesses, "felines")
	assert.Zero(t, snap.LessonsCompleted)
}

func TestEvaluator_NearMissBelowThreshold(t *testing.T) {
	tracker := NewTracker()
	eval := NewEvaluator(tracker, nil, nil, zap.NewNop())

	result := eval.Evaluate(context.Background(), EvaluateRequest{
		UserID:        "alice",
		UserAnswer:    "kitten",
		CorrectAnswer: "sitting",
	})

	assert.InDelta(t, 57.14, result.Score, 0.001)
	assert.False(t, result.IsCorrect)
	// Still recorded.
	assert.Equal(t, 1, tracker.Summary("alice").Total)
}

func TestEvaluator_GeneratorFailureFallsBack(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("llm down")}
	eval := NewEvaluator(NewTracker(), gen, nil, zap.NewNop())

	result := eval.Evaluate(context.Background(), EvaluateRequest{
		UserID:        "alice",
		UserAnswer:    "wrong",
		CorrectAnswer: "right",
	})

	assert.True(t, result.Degraded)
	assert.Equal(t, "Your answer was reviewed.", result.Feedback)
	assert.Equal(t, "The correct answer is: right", result.Explanation)
	assert.Equal(t, 1, gen.calls)
}

func TestEvaluator_NilGeneratorUsesFallback(t *testing.T) {
	eval := NewEvaluator(NewTracker(), nil, nil, zap.NewNop())

	result := eval.Evaluate(context.Background(), EvaluateRequest{
		UserAnswer:    "right",
		CorrectAnswer: "right",
	})

	assert.True(t, result.Degraded)
	assert.True(t, result.IsCorrect)
	assert.NotEmpty(t, result.Feedback)
}
