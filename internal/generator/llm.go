package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/tutord/internal/tutor"
)

// LLMConfig holds configuration for the LLM-backed generator.
type LLMConfig struct {
	// Timeout bounds a single generation call. Default: 30s.
	Timeout time.Duration

	// RequestsPerSecond caps the call rate. Default: 2.
	RequestsPerSecond float64

	// Temperature for generation. Default: 0.7.
	Temperature float64

	// MaxTokens per generation. Default: 1024.
	MaxTokens int
}

func (c *LLMConfig) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = 2
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 1024
	}
}

// LLMGenerator generates content with a langchaingo model. All prompts
// request strict JSON; unparseable responses surface as ErrInvalidResponse so
// callers can fall back.
type LLMGenerator struct {
	model   llms.Model
	config  LLMConfig
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewLLMGenerator creates a generator backed by the given model.
func NewLLMGenerator(model llms.Model, config LLMConfig, logger *zap.Logger) *LLMGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	config.applyDefaults()

	return &LLMGenerator{
		model:   model,
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1),
		logger:  logger,
	}
}

// GenerateLessonStep generates one lesson step.
func (g *LLMGenerator) GenerateLessonStep(ctx context.Context, req LessonStepRequest) (*LessonStep, error) {
	prompt := fmt.Sprintf(`You are %s, a tutor. %s
%s

Create step %d of %d of a lesson on %q (subject: %s) for a %s-level learner.

Respond with ONLY a JSON object with these keys:
"title" (string), "content" (string), "examples" (array of strings),
"key_points" (array of strings), "estimated_time_min" (integer),
"next_step_preview" (string).`,
		req.Persona.Name, personaInstruction(req.Persona), complexityInstruction(req.Persona),
		req.StepNumber, req.TotalSteps, req.Topic, req.Subject, defaultLevel(req.UserLevel))

	var step LessonStep
	if err := g.generateJSON(ctx, prompt, &step); err != nil {
		return nil, err
	}
	if step.Title == "" || step.Content == "" {
		return nil, fmt.Errorf("%w: missing title or content", ErrInvalidResponse)
	}
	step.StepNumber = req.StepNumber
	step.TotalSteps = req.TotalSteps
	if step.EstimatedTimeMin <= 0 {
		step.EstimatedTimeMin = 10
	}
	return &step, nil
}

// GenerateQuestion generates a practice question.
func (g *LLMGenerator) GenerateQuestion(ctx context.Context, req QuestionRequest) (*Question, error) {
	questionType := req.QuestionType
	if questionType == "" {
		questionType = "multiple_choice"
	}

	prompt := fmt.Sprintf(`You are %s, a tutor. %s

Create one %s question testing the concept %q (topic: %s, subject: %s) for a
%s-level learner.

Respond with ONLY a JSON object with these keys:
"question" (string), "options" (array of strings, empty unless multiple choice),
"correct_answer" (string), "explanation" (string), "difficulty" (one of
"easy", "medium", "hard").`,
		req.Persona.Name, personaInstruction(req.Persona),
		questionType, req.Concept, req.Topic, req.Subject, defaultLevel(req.UserLevel))

	var q Question
	if err := g.generateJSON(ctx, prompt, &q); err != nil {
		return nil, err
	}
	if q.Question == "" || q.CorrectAnswer == "" {
		return nil, fmt.Errorf("%w: missing question or answer", ErrInvalidResponse)
	}
	q.QuestionType = questionType
	if q.Difficulty == "" {
		q.Difficulty = "medium"
	}
	return &q, nil
}

// GenerateFeedback generates feedback on a submitted answer.
func (g *LLMGenerator) GenerateFeedback(ctx context.Context, req FeedbackRequest) (*Feedback, error) {
	verdict := "incorrect"
	if req.IsCorrect {
		verdict = "correct"
	}

	prompt := fmt.Sprintf(`You are %s, a tutor. %s

The learner answered %q to the question %q. The correct answer is %q.
The answer was scored %s (%.0f/100).

Respond with ONLY a JSON object with these keys:
"feedback" (string, in your voice), "explanation" (string explaining the
correct answer), "improvement_suggestions" (array of strings, may be empty).`,
		req.Persona.Name, personaInstruction(req.Persona),
		req.UserAnswer, req.Question, req.CorrectAnswer, verdict, req.Score)

	var fb Feedback
	if err := g.generateJSON(ctx, prompt, &fb); err != nil {
		return nil, err
	}
	if fb.Feedback == "" {
		return nil, fmt.Errorf("%w: missing feedback", ErrInvalidResponse)
	}
	return &fb, nil
}

// GenerateHint generates a hint at the requested level.
func (g *LLMGenerator) GenerateHint(ctx context.Context, req HintRequest) (*Hint, error) {
	subject := req.Question
	if subject == "" {
		subject = req.Concept
	}

	prompt := fmt.Sprintf(`You are %s, a tutor. %s

Give a %s-level hint for %q. A starter hint nudges gently, an intermediate
hint narrows the approach, an advanced hint nearly gives the method away.
Additional context: %s

Respond with ONLY a JSON object with these keys:
"hint" (string), "relevance" (number between 0 and 1).`,
		req.Persona.Name, personaInstruction(req.Persona),
		req.Level, subject, defaultContext(req.Context))

	var hint Hint
	if err := g.generateJSON(ctx, prompt, &hint); err != nil {
		return nil, err
	}
	if hint.Hint == "" {
		return nil, fmt.Errorf("%w: missing hint", ErrInvalidResponse)
	}
	hint.Level = req.Level
	if hint.Relevance <= 0 || hint.Relevance > 1 {
		hint.Relevance = 0.8
	}
	return &hint, nil
}

// GenerateComplexityAdjustment generates content at a target complexity.
func (g *LLMGenerator) GenerateComplexityAdjustment(ctx context.Context, req ComplexityRequest) (*ComplexityAdjustment, error) {
	prompt := fmt.Sprintf(`You are %s, a tutor. %s

The learner's recent performance on %q (subject: %s) is %s. Produce %s-level
content for their next study block, plus a one-sentence recommendation.

Respond with ONLY a JSON object with these keys:
"content" (string), "recommendation" (string).`,
		req.Persona.Name, personaInstruction(req.Persona),
		req.Topic, req.Subject, req.PerformanceLabel, req.Complexity)

	var adj ComplexityAdjustment
	if err := g.generateJSON(ctx, prompt, &adj); err != nil {
		return nil, err
	}
	if adj.Content == "" {
		return nil, fmt.Errorf("%w: missing content", ErrInvalidResponse)
	}
	return &adj, nil
}

// generateJSON runs one rate-limited, timeout-bounded model call and decodes
// the response into out.
func (g *LLMGenerator) generateJSON(ctx context.Context, prompt string, out interface{}) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %v", ErrGenerationFailed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	start := time.Now()
	response, err := llms.GenerateFromSinglePrompt(ctx, g.model, prompt,
		llms.WithTemperature(g.config.Temperature),
		llms.WithMaxTokens(g.config.MaxTokens),
	)
	if err != nil {
		g.logger.Warn("llm generation failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	if err := json.Unmarshal([]byte(extractJSON(response)), out); err != nil {
		g.logger.Warn("llm returned unparseable response", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// extractJSON strips markdown code fences the model may wrap around the JSON.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	return s
}

// personaInstruction maps a persona's character attributes onto prompt
// directives.
func personaInstruction(p tutor.Persona) string {
	var b strings.Builder

	switch p.CharacterStyle {
	case "friendly":
		b.WriteString("Be warm, patient, and supportive.")
	case "professional":
		b.WriteString("Be precise, formal, and academically rigorous.")
	case "funny":
		b.WriteString("Teach through jokes, wordplay, and absurd examples.")
	case "motivational":
		b.WriteString("Be high-energy and encouraging, like a sports coach.")
	default:
		b.WriteString("Be clear and helpful.")
	}

	switch p.HumorLevel {
	case "high":
		b.WriteString(" Use humor constantly.")
	case "light":
		b.WriteString(" Sprinkle in occasional light humor.")
	case "none":
		b.WriteString(" Do not use humor.")
	}

	if p.Tone != "" {
		fmt.Fprintf(&b, " Keep a %s tone.", p.Tone)
	}
	return b.String()
}

func complexityInstruction(p tutor.Persona) string {
	switch p.Complexity {
	case "simple":
		return "Use short sentences and everyday vocabulary."
	case "detailed":
		return "Include thorough explanations with proper terminology."
	case "moderate":
		return "Balance accessibility with correct terminology."
	default:
		return "Match the explanation depth to the learner's level."
	}
}

func defaultLevel(level string) string {
	if level == "" {
		return "beginner"
	}
	return level
}

func defaultContext(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
