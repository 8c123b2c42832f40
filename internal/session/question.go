package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutord/internal/generator"
)

// QuestionResult is a generated practice question bound to a session.
type QuestionResult struct {
	SessionID string              `json:"session_id"`
	Question  *generator.Question `json:"question"`
	Degraded  bool                `json:"degraded,omitempty"`
}

// GenerateQuestion produces a practice question about a concept within the
// session's subject and topic. Generation failures degrade to a deterministic
// question.
func (m *Manager) GenerateQuestion(ctx context.Context, sessionID, concept, questionType string) (*QuestionResult, error) {
	if concept == "" {
		return nil, fmt.Errorf("%w: concept required", ErrInvalidRequest)
	}

	e, err := m.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.session

	if s.terminal() {
		return nil, fmt.Errorf("%w: session is %s", ErrInvalidState, s.State)
	}

	req := generator.QuestionRequest{
		Subject:      s.Subject,
		Topic:        s.Topic,
		Concept:      concept,
		QuestionType: questionType,
		UserLevel:    s.UserLevel,
		Persona:      s.Tutor,
	}

	result := &QuestionResult{SessionID: s.SessionID}
	if m.gen != nil {
		q, err := m.gen.GenerateQuestion(ctx, req)
		if err == nil {
			result.Question = q
		} else {
			m.logger.Warn("question generation failed, using fallback",
				zap.String("session_id", s.SessionID), zap.Error(err))
		}
	}
	if result.Question == nil {
		result.Question = generator.FallbackQuestion(req)
		result.Degraded = true
	}

	s.LastInteractionAt = time.Now().UTC()
	m.persist(ctx, s)
	return result, nil
}
