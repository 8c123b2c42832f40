// Package session implements the tutoring session lifecycle: starting,
// delivering lesson steps, adaptive advancement, pause/resume, and ending.
package session

import (
	"errors"
	"sort"
	"time"

	"github.com/fyrsmithlabs/tutord/internal/adaptation"
	"github.com/fyrsmithlabs/tutord/internal/tutor"
)

var (
	// ErrSessionNotFound indicates the session does not exist in memory or
	// in the store.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidStep indicates a step outside [1, TotalSteps].
	ErrInvalidStep = errors.New("invalid step")

	// ErrInvalidState indicates an operation not allowed in the session's
	// current state.
	ErrInvalidState = errors.New("invalid session state")

	// ErrInvalidRequest indicates missing required fields.
	ErrInvalidRequest = errors.New("invalid request")
)

// Session states.
const (
	StateActive    = "active"
	StatePaused    = "paused"
	StateCompleted = "completed"
	StateEnded     = "ended"
)

// DefaultTotalSteps applies when a start request does not set a step count.
const DefaultTotalSteps = 5

// HistoryEntry is one adaptation decision taken during the session.
type HistoryEntry struct {
	Timestamp time.Time           `json:"timestamp"`
	Decision  adaptation.Decision `json:"decision"`
}

// Session is the full state of one tutoring session. All fields round-trip
// through JSON for persistence.
type Session struct {
	SessionID         string         `json:"session_id"`
	UserID            string         `json:"user_id"`
	Subject           string         `json:"subject"`
	Topic             string         `json:"topic"`
	UserLevel         string         `json:"user_level"`
	Tutor             tutor.Persona  `json:"tutor"`
	StartedAt         time.Time      `json:"started_at"`
	CurrentStep       int            `json:"current_step"`
	TotalSteps        int            `json:"total_steps"`
	CompletedSteps    []int          `json:"completed_steps"`
	AdaptationHistory []HistoryEntry `json:"adaptation_history"`
	State             string         `json:"state"`
	LastInteractionAt time.Time      `json:"last_interaction_at"`
}

// markCompleted records a completed step, keeping the list sorted and
// deduplicated.
func (s *Session) markCompleted(step int) {
	for _, done := range s.CompletedSteps {
		if done == step {
			return
		}
	}
	s.CompletedSteps = append(s.CompletedSteps, step)
	sort.Ints(s.CompletedSteps)
}

// progressPercentage is completed steps over total, in percent.
func (s *Session) progressPercentage() float64 {
	if s.TotalSteps == 0 {
		return 0
	}
	return round2(float64(len(s.CompletedSteps)) / float64(s.TotalSteps) * 100)
}

func (s *Session) terminal() bool {
	return s.State == StateCompleted || s.State == StateEnded
}
