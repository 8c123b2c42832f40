package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/tutord/internal/adaptation"
	"github.com/fyrsmithlabs/tutord/internal/curriculum"
	"github.com/fyrsmithlabs/tutord/internal/performance"
	"github.com/fyrsmithlabs/tutord/internal/session"
	"github.com/fyrsmithlabs/tutord/internal/tutor"
)

// httpError maps domain errors onto HTTP status codes. Not-found errors
// become 404, invalid input 400, anything else 500.
func httpError(err error) error {
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, tutor.ErrPersonaNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrInvalidStep),
		errors.Is(err, session.ErrInvalidState),
		errors.Is(err, session.ErrInvalidRequest):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleStartSession(c echo.Context) error {
	var req session.StartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := s.deps.Manager.Start(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, result)
}

func (s *Server) handleGetSession(c echo.Context) error {
	sess, err := s.deps.Manager.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (s *Server) handleProgress(c echo.Context) error {
	progress, err := s.deps.Manager.Progress(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, progress)
}

func (s *Server) handleAdvance(c echo.Context) error {
	result, err := s.deps.Manager.Advance(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}

type deliverStepRequest struct {
	Step int `json:"step"`
}

func (s *Server) handleDeliverStep(c echo.Context) error {
	var req deliverStepRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	delivery, err := s.deps.Manager.DeliverStep(c.Request().Context(), c.Param("id"), req.Step)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, delivery)
}

type questionRequest struct {
	Concept      string `json:"concept"`
	QuestionType string `json:"question_type"`
}

func (s *Server) handleGenerateQuestion(c echo.Context) error {
	var req questionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := s.deps.Manager.GenerateQuestion(c.Request().Context(), c.Param("id"), req.Concept, req.QuestionType)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handlePause(c echo.Context) error {
	sess, err := s.deps.Manager.Pause(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (s *Server) handleResume(c echo.Context) error {
	sess, err := s.deps.Manager.Resume(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (s *Server) handleEndSession(c echo.Context) error {
	summary, err := s.deps.Manager.End(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, summary)
}

type evaluateRequest struct {
	UserID        string `json:"user_id"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer"`
	Subject       string `json:"subject"`
	Topic         string `json:"topic"`
	Concept       string `json:"concept"`
	Question      string `json:"question"`
	LessonID      string `json:"lesson_id"`
	PersonaID     string `json:"persona_id"`
}

func (s *Server) handleEvaluate(c echo.Context) error {
	var req evaluateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == "" || req.CorrectAnswer == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id and correct_answer required")
	}

	result := s.deps.Evaluator.Evaluate(c.Request().Context(), performance.EvaluateRequest{
		UserID:        req.UserID,
		UserAnswer:    req.UserAnswer,
		CorrectAnswer: req.CorrectAnswer,
		Subject:       req.Subject,
		Topic:         req.Topic,
		Concept:       req.Concept,
		Question:      req.Question,
		LessonID:      req.LessonID,
		Persona:       s.deps.Catalog.Get(req.UserID, req.PersonaID),
	})
	return c.JSON(http.StatusOK, result)
}

type hintRequest struct {
	QuestionID string `json:"question_id"`
	UserID     string `json:"user_id"`
	Subject    string `json:"subject"`
	Topic      string `json:"topic"`
	Concept    string `json:"concept"`
	Question   string `json:"question"`
	Context    string `json:"context"`
	PersonaID  string `json:"persona_id"`
}

func (s *Server) handleHint(c echo.Context) error {
	var req hintRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.QuestionID == "" && req.Concept == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question_id or concept required")
	}

	result := s.deps.Engine.NextHint(c.Request().Context(), adaptation.HintRequest{
		QuestionID: req.QuestionID,
		Subject:    req.Subject,
		Topic:      req.Topic,
		Concept:    req.Concept,
		Question:   req.Question,
		Context:    req.Context,
		Persona:    s.deps.Catalog.Get(req.UserID, req.PersonaID),
	})
	return c.JSON(http.StatusOK, result)
}

type personalizeRequest struct {
	UserID  string              `json:"user_id"`
	Subject string              `json:"subject"`
	Base    []curriculum.Module `json:"base"`
	Pace    string              `json:"pace"`
}

func (s *Server) handlePersonalize(c echo.Context) error {
	var req personalizeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == "" || req.Subject == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id and subject required")
	}

	snapshot := s.deps.Ledger.Snapshot(req.UserID, req.Subject)
	plan := s.deps.Pipeline.Personalize(c.Request().Context(), curriculum.PersonalizeRequest{
		UserID:       req.UserID,
		Subject:      req.Subject,
		Base:         req.Base,
		Weaknesses:   snapshot.Weaknesses,
		Strengths:    snapshot.Strengths,
		OverallScore: snapshot.OverallScore,
		Pace:         req.Pace,
	})
	return c.JSON(http.StatusOK, plan)
}

func (s *Server) handleListTutors(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Catalog.All())
}

type setTutorRequest struct {
	PersonaID string `json:"persona_id"`
}

func (s *Server) handleSetTutor(c echo.Context) error {
	var req setTutorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := s.deps.Catalog.SetPreference(c.Param("id"), req.PersonaID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, s.deps.Catalog.PreferenceFor(c.Param("id")))
}

func (s *Server) handlePerformance(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Tracker.Summary(c.Param("id")))
}

func (s *Server) handleAdaptationHistory(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Engine.History(c.Param("id")))
}

func (s *Server) handleUserProgress(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Ledger.Snapshot(c.Param("id"), c.Param("subject")))
}
