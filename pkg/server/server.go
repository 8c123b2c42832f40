// Package server provides the HTTP API for the tutoring engine.
//
// It wires an Echo router with the session, evaluation, hint, and curriculum
// endpoints, plus health and Prometheus metrics, and supports context-aware
// graceful shutdown.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutord/internal/adaptation"
	"github.com/fyrsmithlabs/tutord/internal/analytics"
	"github.com/fyrsmithlabs/tutord/internal/curriculum"
	"github.com/fyrsmithlabs/tutord/internal/performance"
	"github.com/fyrsmithlabs/tutord/internal/session"
	"github.com/fyrsmithlabs/tutord/internal/tutor"
)

// Config holds HTTP server settings.
type Config struct {
	Port            int
	ShutdownTimeout time.Duration
}

// Deps bundles the services the API exposes.
type Deps struct {
	Manager   *session.Manager
	Evaluator *performance.Evaluator
	Engine    *adaptation.Engine
	Catalog   *tutor.Catalog
	Tracker   *performance.Tracker
	Pipeline  *curriculum.Pipeline
	Ledger    *analytics.ProgressLedger
	Logger    *zap.Logger
}

// Server is the HTTP API server.
type Server struct {
	config Config
	deps   Deps
	echo   *echo.Echo
	logger *zap.Logger

	registry *prometheus.Registry
	requests *prometheus.CounterVec
}

// HealthResponse is the JSON response for the /health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// NewServer creates the API server with logging, recovery, and request ID
// middleware plus a per-route request counter.
func NewServer(cfg Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	registry := prometheus.NewRegistry()
	requests := promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Name: "tutord_http_requests_total",
		Help: "Total HTTP requests by method, path, and status.",
	}, []string{"method", "path", "status"})

	s := &Server{
		config:   cfg,
		deps:     deps,
		echo:     e,
		logger:   logger,
		registry: registry,
		requests: requests,
	}

	e.Use(s.countRequests)
	s.registerRoutes()
	return s
}

func (s *Server) countRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		status := c.Response().Status
		if err != nil {
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
		}
		s.requests.WithLabelValues(c.Request().Method, c.Path(), strconv.Itoa(status)).Inc()
		return err
	}
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	s.echo.POST("/sessions", s.handleStartSession)
	s.echo.GET("/sessions/:id", s.handleGetSession)
	s.echo.GET("/sessions/:id/progress", s.handleProgress)
	s.echo.POST("/sessions/:id/advance", s.handleAdvance)
	s.echo.POST("/sessions/:id/step", s.handleDeliverStep)
	s.echo.POST("/sessions/:id/question", s.handleGenerateQuestion)
	s.echo.POST("/sessions/:id/pause", s.handlePause)
	s.echo.POST("/sessions/:id/resume", s.handleResume)
	s.echo.DELETE("/sessions/:id", s.handleEndSession)

	s.echo.POST("/evaluate", s.handleEvaluate)
	s.echo.POST("/hints", s.handleHint)
	s.echo.POST("/curriculum/personalize", s.handlePersonalize)

	s.echo.GET("/tutors", s.handleListTutors)
	s.echo.PUT("/users/:id/tutor", s.handleSetTutor)
	s.echo.GET("/users/:id/performance", s.handlePerformance)
	s.echo.GET("/users/:id/adaptations", s.handleAdaptationHistory)
	s.echo.GET("/users/:id/progress/:subject", s.handleUserProgress)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Service: "tutord"})
}

// Start runs the server until the context is cancelled, then shuts down
// gracefully. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server start: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeout := s.config.ShutdownTimeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return http.ErrServerClosed
	}
}

// Echo returns the underlying Echo instance for registering extra routes.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
