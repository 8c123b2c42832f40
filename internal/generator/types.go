// Package generator produces tutoring content: lesson steps, practice
// questions, answer feedback, progressive hints, and complexity-adjusted
// remediation text. The LLM-backed implementation is persona-aware; every
// payload has a deterministic fallback constructor so callers can degrade
// gracefully when generation fails.
package generator

import (
	"context"
	"errors"

	"github.com/fyrsmithlabs/tutord/internal/tutor"
)

var (
	// ErrGenerationFailed indicates the backing model call failed.
	ErrGenerationFailed = errors.New("content generation failed")

	// ErrInvalidResponse indicates the model returned unusable output.
	ErrInvalidResponse = errors.New("invalid model response")
)

// LessonStep is one step of a lesson path.
type LessonStep struct {
	StepNumber       int      `json:"step_number"`
	TotalSteps       int      `json:"total_steps"`
	Title            string   `json:"title"`
	Content          string   `json:"content"`
	Examples         []string `json:"examples"`
	KeyPoints        []string `json:"key_points"`
	EstimatedTimeMin int      `json:"estimated_time_min"`
	NextStepPreview  string   `json:"next_step_preview"`
}

// Question is a generated practice question.
type Question struct {
	QuestionType  string   `json:"question_type"`
	Question      string   `json:"question"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
	Difficulty    string   `json:"difficulty"`
}

// Feedback is persona-voiced feedback on a submitted answer.
type Feedback struct {
	Feedback               string   `json:"feedback"`
	Explanation            string   `json:"explanation"`
	ImprovementSuggestions []string `json:"improvement_suggestions,omitempty"`
}

// Hint is a single progressive hint.
type Hint struct {
	Level     string  `json:"level"`
	Hint      string  `json:"hint"`
	Relevance float64 `json:"relevance"`
}

// ComplexityAdjustment is remediation or enrichment content tailored to a
// target complexity.
type ComplexityAdjustment struct {
	Content        string `json:"content"`
	Recommendation string `json:"recommendation"`
}

// LessonStepRequest asks for one lesson step.
type LessonStepRequest struct {
	Subject    string
	Topic      string
	UserLevel  string
	StepNumber int
	TotalSteps int
	Persona    tutor.Persona
}

// QuestionRequest asks for a practice question about a concept.
type QuestionRequest struct {
	Subject      string
	Topic        string
	Concept      string
	QuestionType string
	UserLevel    string
	Persona      tutor.Persona
}

// FeedbackRequest asks for feedback on a submitted answer.
type FeedbackRequest struct {
	Question      string
	UserAnswer    string
	CorrectAnswer string
	IsCorrect     bool
	Score         float64
	Persona       tutor.Persona
}

// HintRequest asks for a hint at a given level.
type HintRequest struct {
	Question string
	Concept  string
	Level    string
	Context  string
	Persona  tutor.Persona
}

// ComplexityRequest asks for content at a target complexity.
type ComplexityRequest struct {
	Subject          string
	Topic            string
	Complexity       string
	PerformanceLabel string
	Persona          tutor.Persona
}

// Generator produces tutoring content.
type Generator interface {
	GenerateLessonStep(ctx context.Context, req LessonStepRequest) (*LessonStep, error)
	GenerateQuestion(ctx context.Context, req QuestionRequest) (*Question, error)
	GenerateFeedback(ctx context.Context, req FeedbackRequest) (*Feedback, error)
	GenerateHint(ctx context.Context, req HintRequest) (*Hint, error)
	GenerateComplexityAdjustment(ctx context.Context, req ComplexityRequest) (*ComplexityAdjustment, error)
}
