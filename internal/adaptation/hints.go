package adaptation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutord/internal/generator"
	"github.com/fyrsmithlabs/tutord/internal/tutor"
)

// hintLevels orders hint escalation; the last level saturates.
var hintLevels = []string{"starter", "intermediate", "advanced"}

// HintRequest asks for the next progressive hint on a question.
type HintRequest struct {
	// QuestionID keys the hint history. When empty, the key is derived from
	// subject, topic, and concept.
	QuestionID string
	Subject    string
	Topic      string
	Concept    string
	Question   string
	Context    string
	Persona    tutor.Persona
}

func (r HintRequest) key() string {
	if r.QuestionID != "" {
		return r.QuestionID
	}
	return fmt.Sprintf("%s_%s_%s", r.Subject, r.Topic, r.Concept)
}

// HintResult is a hint plus the escalation position it was served at.
type HintResult struct {
	Hint       generator.Hint `json:"hint"`
	HintNumber int            `json:"hint_number"`
	Degraded   bool           `json:"degraded,omitempty"`
}

// NextHint serves the next hint for a question, escalating starter through
// advanced and saturating at advanced. Served hints are remembered per
// question.
func (e *Engine) NextHint(ctx context.Context, req HintRequest) HintResult {
	key := req.key()

	e.mu.Lock()
	served := len(e.hints[key])
	e.mu.Unlock()

	level := hintLevels[len(hintLevels)-1]
	if served < len(hintLevels) {
		level = hintLevels[served]
	}

	genReq := generator.HintRequest{
		Question: req.Question,
		Concept:  req.Concept,
		Level:    level,
		Context:  req.Context,
		Persona:  req.Persona,
	}

	var hint *generator.Hint
	degraded := false
	if e.gen != nil {
		var err error
		hint, err = e.gen.GenerateHint(ctx, genReq)
		if err != nil {
			e.logger.Warn("hint generation failed, using fallback",
				zap.String("question", key), zap.Error(err))
			hint = nil
		}
	}
	if hint == nil {
		hint = generator.FallbackHint(genReq)
		degraded = true
	}

	e.mu.Lock()
	e.hints[key] = append(e.hints[key], *hint)
	count := len(e.hints[key])
	e.mu.Unlock()

	return HintResult{Hint: *hint, HintNumber: count, Degraded: degraded}
}

// HintHistory returns the hints already served for a question.
func (e *Engine) HintHistory(req HintRequest) []generator.Hint {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]generator.Hint(nil), e.hints[req.key()]...)
}
