package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutord/internal/adaptation"
	"github.com/fyrsmithlabs/tutord/internal/analytics"
	"github.com/fyrsmithlabs/tutord/internal/curriculum"
	"github.com/fyrsmithlabs/tutord/internal/embeddings"
	"github.com/fyrsmithlabs/tutord/internal/performance"
	"github.com/fyrsmithlabs/tutord/internal/session"
	"github.com/fyrsmithlabs/tutord/internal/sessionstore"
	"github.com/fyrsmithlabs/tutord/internal/tutor"
	"github.com/fyrsmithlabs/tutord/internal/vectorindex"
)

func newTestServer(t *testing.T) (*Server, *performance.Tracker) {
	t.Helper()

	logger := zap.NewNop()
	tracker := performance.NewTracker()
	catalog := tutor.NewCatalog()
	ledger := analytics.NewProgressLedger()
	engine := adaptation.NewEngine(tracker, nil, logger)
	index := vectorindex.NewIndex(vectorindex.Config{}, logger)
	embedder := embeddings.NewMockProvider(64)

	manager := session.NewManager(session.Deps{
		Store:    sessionstore.NewMemoryStore(),
		Catalog:  catalog,
		Engine:   engine,
		Reporter: ledger,
		Logger:   logger,
	})

	srv := NewServer(Config{Port: 0}, Deps{
		Manager:   manager,
		Evaluator: performance.NewEvaluator(tracker, nil, ledger, logger),
		Engine:    engine,
		Catalog:   catalog,
		Tracker:   tracker,
		Pipeline:  curriculum.NewPipeline(index, embedder, logger),
		Ledger:    ledger,
		Logger:    logger,
	})
	return srv, tracker
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echoContentType, "application/json")
	}
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

const echoContentType = "Content-Type"

func startTestSession(t *testing.T, srv *Server) string {
	t.Helper()
	rec := doRequest(t, srv, http.MethodPost, "/sessions",
		`{"user_id": "alice", "subject": "math", "topic": "fractions"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var result session.StartResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.NotNil(t, result.FirstStep)
	return result.Session.SessionID
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tutord"`)
}

func TestServer_Metrics(t *testing.T) {
	srv, _ := newTestServer(t)

	doRequest(t, srv, http.MethodGet, "/health", "")
	rec := doRequest(t, srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tutord_http_requests_total")
}

func TestServer_SessionLifecycle(t *testing.T) {
	srv, tracker := newTestServer(t)
	// 70% accuracy keeps the learner on the normal path through advance.
	for i := 0; i < 7; i++ {
		tracker.Record("alice", "math", "fractions", "", true, 100)
	}
	for i := 0; i < 3; i++ {
		tracker.Record("alice", "math", "fractions", "", false, 0)
	}
	id := startTestSession(t, srv)

	rec := doRequest(t, srv, http.MethodPost, "/sessions/"+id+"/step", `{"step": 1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var delivery session.StepDelivery
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &delivery))
	assert.True(t, delivery.Degraded) // no generator configured
	assert.Equal(t, 1, delivery.Step.StepNumber)

	rec = doRequest(t, srv, http.MethodPost, "/sessions/"+id+"/advance", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var advance session.AdvanceResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &advance))
	assert.Equal(t, 2, advance.CurrentStep)

	rec = doRequest(t, srv, http.MethodGet, "/sessions/"+id+"/progress", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var progress session.Progress
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &progress))
	assert.InDelta(t, 20.0, progress.ProgressPercentage, 0.001)

	rec = doRequest(t, srv, http.MethodPost, "/sessions/"+id+"/pause", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(t, srv, http.MethodPost, "/sessions/"+id+"/resume", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodDelete, "/sessions/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary session.EndSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.StepsCompleted)

	rec = doRequest(t, srv, http.MethodGet, "/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ErrorMapping(t *testing.T) {
	srv, _ := newTestServer(t)

	// Unknown session: 404.
	rec := doRequest(t, srv, http.MethodGet, "/sessions/ghost/progress", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Missing required fields: 400.
	rec = doRequest(t, srv, http.MethodPost, "/sessions", `{"user_id": "alice"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Out-of-range step: 400.
	id := startTestSession(t, srv)
	rec = doRequest(t, srv, http.MethodPost, "/sessions/"+id+"/step", `{"step": 99}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Double pause: 400.
	rec = doRequest(t, srv, http.MethodPost, "/sessions/"+id+"/pause", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(t, srv, http.MethodPost, "/sessions/"+id+"/pause", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Evaluate(t *testing.T) {
	srv, tracker := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/evaluate", `{
		"user_id": "alice",
		"user_answer": "Paris",
		"correct_answer": "paris",
		"subject": "geography",
		"topic": "capitals",
		"concept": "france"
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result performance.Evaluation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 100.0, result.Score)
	assert.True(t, result.IsCorrect)
	assert.Equal(t, 1, tracker.Summary("alice").Total)

	rec = doRequest(t, srv, http.MethodPost, "/evaluate", `{"user_answer": "x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Hints(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"question_id": "q1", "user_id": "alice", "concept": "fractions"}`
	rec := doRequest(t, srv, http.MethodPost, "/hints", body)
	require.Equal(t, http.StatusOK, rec.Code)
	var first adaptation.HintResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.Equal(t, "starter", first.Hint.Level)

	rec = doRequest(t, srv, http.MethodPost, "/hints", body)
	var second adaptation.HintResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, "intermediate", second.Hint.Level)

	rec = doRequest(t, srv, http.MethodPost, "/hints", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Tutors(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/tutors", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var personas []tutor.Persona
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &personas))
	assert.Len(t, personas, 4)

	rec = doRequest(t, srv, http.MethodPut, "/users/alice/tutor", `{"persona_id": "professor_bob"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "professor_bob")

	rec = doRequest(t, srv, http.MethodPut, "/users/alice/tutor", `{"persona_id": "ghost"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Personalize(t *testing.T) {
	srv, _ := newTestServer(t)

	// Seed weaknesses through evaluations.
	for i := 0; i < 3; i++ {
		rec := doRequest(t, srv, http.MethodPost, "/evaluate", fmt.Sprintf(`{
			"user_id": "alice",
			"user_answer": "wrong-%d",
			"correct_answer": "right",
			"subject": "math",
			"topic": "fractions",
			"concept": "fractions"
		}`, i))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doRequest(t, srv, http.MethodPost, "/curriculum/personalize", `{
		"user_id": "alice",
		"subject": "math",
		"base": [
			{"id": "m1", "title": "Fractions in Depth"},
			{"id": "m2", "title": "Geometry Basics"}
		]
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var plan curriculum.Plan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))
	require.NotEmpty(t, plan.Modules)
	assert.Equal(t, "remedial_fractions", plan.Modules[0].ID)

	rec = doRequest(t, srv, http.MethodPost, "/curriculum/personalize", `{"subject": "math"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_UserViews(t *testing.T) {
	srv, tracker := newTestServer(t)
	tracker.Record("alice", "math", "fractions", "", true, 95)

	rec := doRequest(t, srv, http.MethodGet, "/users/alice/performance", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary performance.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.Total)

	rec = doRequest(t, srv, http.MethodGet, "/users/alice/adaptations", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/users/alice/progress/math", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap analytics.SubjectProgress
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "math", snap.Subject)
}
