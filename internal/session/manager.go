package session

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutord/internal/adaptation"
	"github.com/fyrsmithlabs/tutord/internal/analytics"
	"github.com/fyrsmithlabs/tutord/internal/generator"
	"github.com/fyrsmithlabs/tutord/internal/sessionstore"
	"github.com/fyrsmithlabs/tutord/internal/tutor"
)

const storeKeyPrefix = "session/"

// Manager owns all live sessions. Each session has its own lock so operations
// on different sessions do not contend.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	store        sessionstore.Store
	catalog      *tutor.Catalog
	gen          generator.Generator
	engine       *adaptation.Engine
	events       analytics.EventSink
	reporter     analytics.ProgressReporter
	logger       *zap.Logger
	metrics      *Metrics
	defaultSteps int
}

type entry struct {
	mu      sync.Mutex
	session *Session
}

// Deps bundles the manager's collaborators. Store, catalog, and engine are
// required; the rest may be nil.
type Deps struct {
	Store    sessionstore.Store
	Catalog  *tutor.Catalog
	Gen      generator.Generator
	Engine   *adaptation.Engine
	Events   analytics.EventSink
	Reporter analytics.ProgressReporter
	Logger   *zap.Logger

	// DefaultSteps overrides DefaultTotalSteps for new sessions.
	DefaultSteps int
}

// NewManager creates a session manager.
func NewManager(deps Deps) *Manager {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	events := deps.Events
	if events == nil {
		events = analytics.NopSink{}
	}

	defaultSteps := deps.DefaultSteps
	if defaultSteps <= 0 {
		defaultSteps = DefaultTotalSteps
	}

	return &Manager{
		sessions:     make(map[string]*entry),
		store:        deps.Store,
		catalog:      deps.Catalog,
		gen:          deps.Gen,
		engine:       deps.Engine,
		events:       events,
		reporter:     deps.Reporter,
		logger:       logger,
		metrics:      NewMetrics(),
		defaultSteps: defaultSteps,
	}
}

// StartRequest describes a new session.
type StartRequest struct {
	UserID     string `json:"user_id"`
	Subject    string `json:"subject"`
	Topic      string `json:"topic"`
	UserLevel  string `json:"user_level"`
	PersonaID  string `json:"persona_id"`
	TotalSteps int    `json:"total_steps"`
}

// StartResult is a freshly created session together with the content of its
// first step.
type StartResult struct {
	Session   *Session              `json:"session"`
	FirstStep *generator.LessonStep `json:"first_step"`
	Degraded  bool                  `json:"degraded,omitempty"`
}

// Start creates a new active session at step 1 and delivers the first step's
// content.
func (m *Manager) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	if req.UserID == "" || req.Subject == "" || req.Topic == "" {
		return nil, fmt.Errorf("%w: user id, subject, and topic required", ErrInvalidRequest)
	}

	totalSteps := req.TotalSteps
	if totalSteps <= 0 {
		totalSteps = m.defaultSteps
	}

	now := time.Now().UTC()
	s := &Session{
		SessionID:         uuid.New().String(),
		UserID:            req.UserID,
		Subject:           req.Subject,
		Topic:             req.Topic,
		UserLevel:         req.UserLevel,
		Tutor:             m.catalog.Get(req.UserID, req.PersonaID),
		StartedAt:         now,
		CurrentStep:       1,
		TotalSteps:        totalSteps,
		CompletedSteps:    []int{},
		AdaptationHistory: []HistoryEntry{},
		State:             StateActive,
		LastInteractionAt: now,
	}

	m.mu.Lock()
	m.sessions[s.SessionID] = &entry{session: s}
	m.mu.Unlock()

	firstStep, degraded := m.generateStep(ctx, s, 1)

	m.persist(ctx, s)
	m.recordEvent(ctx, "session_started", s)
	m.metrics.RecordStart(ctx)
	m.logger.Info("session started",
		zap.String("session_id", s.SessionID),
		zap.String("user_id", s.UserID),
		zap.String("subject", s.Subject),
		zap.String("topic", s.Topic))

	return &StartResult{
		Session:   copySession(s),
		FirstStep: firstStep,
		Degraded:  degraded,
	}, nil
}

// generateStep produces the content for one step, falling back to the
// deterministic payload when no generator is wired or generation fails.
func (m *Manager) generateStep(ctx context.Context, s *Session, step int) (*generator.LessonStep, bool) {
	stepReq := generator.LessonStepRequest{
		Subject:    s.Subject,
		Topic:      s.Topic,
		UserLevel:  s.UserLevel,
		StepNumber: step,
		TotalSteps: s.TotalSteps,
		Persona:    s.Tutor,
	}

	if m.gen != nil {
		lesson, err := m.gen.GenerateLessonStep(ctx, stepReq)
		if err == nil {
			return lesson, false
		}
		m.logger.Warn("lesson step generation failed, using fallback",
			zap.String("session_id", s.SessionID), zap.Error(err))
	}
	return generator.FallbackLessonStep(stepReq), true
}

// StepDelivery is a delivered lesson step.
type StepDelivery struct {
	SessionID string                `json:"session_id"`
	Step      *generator.LessonStep `json:"step"`
	Degraded  bool                  `json:"degraded,omitempty"`
}

// DeliverStep generates the content for one step. Generation failures degrade
// to deterministic content rather than erroring.
func (m *Manager) DeliverStep(ctx context.Context, sessionID string, step int) (*StepDelivery, error) {
	e, err := m.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.session

	if step == 0 {
		step = s.CurrentStep
	}
	if step < 1 || step > s.TotalSteps {
		return nil, fmt.Errorf("%w: step %d of %d", ErrInvalidStep, step, s.TotalSteps)
	}
	if s.terminal() {
		return nil, fmt.Errorf("%w: session is %s", ErrInvalidState, s.State)
	}

	lesson, degraded := m.generateStep(ctx, s, step)
	delivery := &StepDelivery{
		SessionID: s.SessionID,
		Step:      lesson,
		Degraded:  degraded,
	}

	s.CurrentStep = step
	s.LastInteractionAt = time.Now().UTC()
	m.persist(ctx, s)
	return delivery, nil
}

// AdvanceResult is the outcome of one advancement attempt.
type AdvanceResult struct {
	SessionID   string              `json:"session_id"`
	Decision    adaptation.Decision `json:"decision"`
	CurrentStep int                 `json:"current_step"`
	State       string              `json:"state"`
	Completed   bool                `json:"completed"`
}

// Advance asks the adaptation engine for a path decision and applies it.
// Remedial decisions hold the session at the current step; acceleration skips
// ahead, bounded by the remaining steps. Passing the final step completes the
// session.
func (m *Manager) Advance(ctx context.Context, sessionID string) (*AdvanceResult, error) {
	e, err := m.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.session

	if s.State == StateEnded {
		return nil, fmt.Errorf("%w: session is %s", ErrInvalidState, s.State)
	}
	if s.State == StatePaused {
		return nil, fmt.Errorf("%w: session is paused", ErrInvalidState)
	}
	// Advancing a completed session is idempotent.
	if s.State == StateCompleted {
		return &AdvanceResult{
			SessionID:   s.SessionID,
			CurrentStep: s.CurrentStep,
			State:       s.State,
			Completed:   true,
		}, nil
	}

	// The final step completes the session outright; the adaptation engine is
	// only consulted while there are steps left to choose between.
	if s.CurrentStep >= s.TotalSteps {
		s.markCompleted(s.CurrentStep)
		s.State = StateCompleted
		s.LastInteractionAt = time.Now().UTC()

		m.persist(ctx, s)
		m.metrics.RecordAdvance(ctx, "completed")
		m.recordEvent(ctx, "session_completed", s)
		return &AdvanceResult{
			SessionID:   s.SessionID,
			CurrentStep: s.CurrentStep,
			State:       s.State,
			Completed:   true,
		}, nil
	}

	decision := m.engine.Decide(ctx, adaptation.DecideRequest{
		UserID:      s.UserID,
		Subject:     s.Subject,
		Topic:       s.Topic,
		CurrentStep: s.CurrentStep,
		TotalSteps:  s.TotalSteps,
		Persona:     s.Tutor,
	})
	s.AdaptationHistory = append(s.AdaptationHistory, HistoryEntry{
		Timestamp: decision.Timestamp,
		Decision:  decision,
	})

	if decision.ContinuePath {
		s.markCompleted(s.CurrentStep)
		next := decision.NextStep
		if next > s.TotalSteps {
			next = s.TotalSteps
			s.State = StateCompleted
		}
		s.CurrentStep = next
	}
	s.LastInteractionAt = time.Now().UTC()

	m.persist(ctx, s)
	m.metrics.RecordAdvance(ctx, string(decision.Type))
	m.reportStepProgress(ctx, s, decision)

	if s.State == StateCompleted {
		m.recordEvent(ctx, "session_completed", s)
	}

	return &AdvanceResult{
		SessionID:   s.SessionID,
		Decision:    decision,
		CurrentStep: s.CurrentStep,
		State:       s.State,
		Completed:   s.State == StateCompleted,
	}, nil
}

// Pause suspends an active session.
func (m *Manager) Pause(ctx context.Context, sessionID string) (*Session, error) {
	return m.transition(ctx, sessionID, StateActive, StatePaused, "session_paused")
}

// Resume reactivates a session, rehydrating from the store when the session
// is no longer in memory. Resuming an already active session just returns its
// current snapshot; any other non-ended state is forced back to active.
func (m *Manager) Resume(ctx context.Context, sessionID string) (*Session, error) {
	e, err := m.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.session

	if s.State == StateEnded {
		return nil, fmt.Errorf("%w: session is %s", ErrInvalidState, s.State)
	}
	if s.State == StateActive {
		return copySession(s), nil
	}

	s.State = StateActive
	s.LastInteractionAt = time.Now().UTC()

	m.persist(ctx, s)
	m.recordEvent(ctx, "session_resumed", s)
	return copySession(s), nil
}

func (m *Manager) transition(ctx context.Context, sessionID, from, to, event string) (*Session, error) {
	e, err := m.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.session

	if s.State != from {
		return nil, fmt.Errorf("%w: cannot go from %s to %s", ErrInvalidState, s.State, to)
	}
	s.State = to
	s.LastInteractionAt = time.Now().UTC()

	m.persist(ctx, s)
	m.recordEvent(ctx, event, s)
	return copySession(s), nil
}

// EndSummary closes out a session.
type EndSummary struct {
	SessionID          string  `json:"session_id"`
	UserID             string  `json:"user_id"`
	Subject            string  `json:"subject"`
	Topic              string  `json:"topic"`
	StepsCompleted     int     `json:"steps_completed"`
	TotalSteps         int     `json:"total_steps"`
	ProgressPercentage float64 `json:"progress_percentage"`
	DurationSeconds    int     `json:"duration_seconds"`
}

// End terminates the session and removes it from memory and the store.
// Ending is allowed from any state and is idempotent only in the sense that a
// second call reports not found.
func (m *Manager) End(ctx context.Context, sessionID string) (*EndSummary, error) {
	e, err := m.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.session

	summary := &EndSummary{
		SessionID:          s.SessionID,
		UserID:             s.UserID,
		Subject:            s.Subject,
		Topic:              s.Topic,
		StepsCompleted:     len(s.CompletedSteps),
		TotalSteps:         s.TotalSteps,
		ProgressPercentage: s.progressPercentage(),
		DurationSeconds:    int(time.Since(s.StartedAt).Seconds()),
	}
	s.State = StateEnded

	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.Delete(ctx, storeKeyPrefix+sessionID); err != nil {
			m.logger.Warn("session delete from store failed",
				zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	m.recordEvent(ctx, "session_ended", s)
	m.reportEndProgress(ctx, s, summary)
	m.logger.Info("session ended",
		zap.String("session_id", sessionID),
		zap.Float64("progress", summary.ProgressPercentage))

	return summary, nil
}

// Progress reports the session's completion state.
type Progress struct {
	SessionID          string  `json:"session_id"`
	CurrentStep        int     `json:"current_step"`
	TotalSteps         int     `json:"total_steps"`
	CompletedSteps     []int   `json:"completed_steps"`
	ProgressPercentage float64 `json:"progress_percentage"`
	State              string  `json:"state"`
}

// Progress returns the session's current position.
func (m *Manager) Progress(ctx context.Context, sessionID string) (*Progress, error) {
	e, err := m.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.session

	return &Progress{
		SessionID:          s.SessionID,
		CurrentStep:        s.CurrentStep,
		TotalSteps:         s.TotalSteps,
		CompletedSteps:     append([]int(nil), s.CompletedSteps...),
		ProgressPercentage: s.progressPercentage(),
		State:              s.State,
	}, nil
}

// Get returns a copy of the session.
func (m *Manager) Get(ctx context.Context, sessionID string) (*Session, error) {
	e, err := m.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return copySession(e.session), nil
}

// get finds the session in memory first, then falls back to the store.
func (m *Manager) get(ctx context.Context, sessionID string) (*entry, error) {
	m.mu.RLock()
	e, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if ok {
		return e, nil
	}

	if m.store == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	data, err := m.store.Load(ctx, storeKeyPrefix+sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		m.logger.Error("stored session is corrupt",
			zap.String("session_id", sessionID), zap.Error(err))
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[sessionID]; ok {
		return existing, nil
	}
	e = &entry{session: &s}
	m.sessions[sessionID] = e
	m.logger.Debug("session rehydrated from store", zap.String("session_id", sessionID))
	return e, nil
}

// persist writes the session to the store. Failures are logged; the in-memory
// operation already succeeded.
func (m *Manager) persist(ctx context.Context, s *Session) {
	if m.store == nil {
		return
	}
	data, err := json.Marshal(s)
	if err != nil {
		m.logger.Error("session marshal failed", zap.String("session_id", s.SessionID), zap.Error(err))
		return
	}
	if err := m.store.Save(ctx, storeKeyPrefix+s.SessionID, data); err != nil {
		m.logger.Warn("session persist failed", zap.String("session_id", s.SessionID), zap.Error(err))
	}
}

func (m *Manager) recordEvent(ctx context.Context, kind string, s *Session) {
	payload := map[string]string{
		"session_id": s.SessionID,
		"user_id":    s.UserID,
		"subject":    s.Subject,
		"topic":      s.Topic,
		"state":      s.State,
	}
	if err := m.events.Record(ctx, kind, payload); err != nil {
		m.logger.Debug("event record failed", zap.String("kind", kind), zap.Error(err))
	}
}

func (m *Manager) reportStepProgress(ctx context.Context, s *Session, decision adaptation.Decision) {
	if m.reporter == nil {
		return
	}
	update := analytics.ProgressUpdate{
		UserID:    s.UserID,
		Subject:   s.Subject,
		LessonID:  fmt.Sprintf("%s_step_%d", s.SessionID, s.CurrentStep),
		Completed: decision.ContinuePath,
		Score:     s.progressPercentage(),
		Notes:     string(decision.Type),
	}
	if err := m.reporter.Report(ctx, update); err != nil {
		m.logger.Debug("progress report failed", zap.String("session_id", s.SessionID), zap.Error(err))
	}
}

func (m *Manager) reportEndProgress(ctx context.Context, s *Session, summary *EndSummary) {
	if m.reporter == nil {
		return
	}
	update := analytics.ProgressUpdate{
		UserID:           s.UserID,
		Subject:          s.Subject,
		LessonID:         s.SessionID,
		Completed:        summary.ProgressPercentage >= 100,
		Score:            summary.ProgressPercentage,
		TimeSpentSeconds: summary.DurationSeconds,
		Notes:            "session_ended",
	}
	if err := m.reporter.Report(ctx, update); err != nil {
		m.logger.Debug("progress report failed", zap.String("session_id", s.SessionID), zap.Error(err))
	}
}

func copySession(s *Session) *Session {
	out := *s
	out.CompletedSteps = append([]int(nil), s.CompletedSteps...)
	out.AdaptationHistory = append([]HistoryEntry(nil), s.AdaptationHistory...)
	return &out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
