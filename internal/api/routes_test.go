package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leviathanch/Google-Companion/domain/entities"
	"github.com/leviathanch/Google-Companion/internal/auth"
	"github.com/leviathanch/Google-Companion/internal/monitor"
	"github.com/leviathanch/Google-Companion/internal/telemetry"
	"github.com/leviathanch/Google-Companion/usecase"
)

type stubHistory struct {
	messages []entities.TranscriptMessage
	gotLimit int64
}

func (s *stubHistory) Recent(ctx context.Context, limit int64) ([]entities.TranscriptMessage, error) {
	s.gotLimit = limit
	return s.messages, nil
}

type apiFixture struct {
	e       *echo.Echo
	issuer  *auth.Issuer
	history *stubHistory
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	logger := zap.NewNop()
	hub := monitor.NewHub(logger)
	go hub.Run()

	svc := usecase.NewCompanionService(usecase.Deps{
		Clock:   clock.NewMock(),
		Setup:   entities.SessionSetup{Persona: "test"},
		Hub:     hub,
		Ring:    telemetry.NewLogRing(16),
		Metrics: telemetry.NopMetrics(),
		Logger:  logger,
	})
	t.Cleanup(svc.Shutdown)

	f := &apiFixture{
		e:       echo.New(),
		issuer:  auth.NewIssuer("test-secret"),
		history: &stubHistory{},
	}
	InitRoutes(f.e, svc, f.history, hub, f.issuer, Credentials{
		Username: "admin",
		Password: "hunter2",
	}, logger)
	return f
}

func (f *apiFixture) request(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) login(t *testing.T) string {
	t.Helper()
	rec := f.request(t, http.MethodPost, "/api/v1/auth/login",
		`{"username":"admin","password":"hunter2"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), resp.ExpiresAt, time.Minute)
	return resp.Token
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.request(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(t, http.MethodPost, "/api/v1/auth/login",
		`{"username":"admin","password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.request(t, http.MethodPost, "/api/v1/auth/login",
		`{"username":"admin"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionEndpointsRequireToken(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(t, http.MethodGet, "/api/v1/session/state", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.request(t, http.MethodGet, "/api/v1/session/state", "", "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionState(t *testing.T) {
	f := newAPIFixture(t)
	token := f.login(t)

	rec := f.request(t, http.MethodGet, "/api/v1/session/state", "", token)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(entities.SessionDisconnected), resp.State)
	assert.Empty(t, resp.Error)
}

func TestSendTextWithoutSession(t *testing.T) {
	f := newAPIFixture(t)
	token := f.login(t)

	rec := f.request(t, http.MethodPost, "/api/v1/session/text",
		`{"text":"hello"}`, token)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_connected")

	rec = f.request(t, http.MethodPost, "/api/v1/session/text", `{}`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDisconnectIsAlwaysOK(t *testing.T) {
	f := newAPIFixture(t)
	token := f.login(t)

	rec := f.request(t, http.MethodPost, "/api/v1/session/disconnect", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), string(entities.SessionDisconnected))
}

func TestTranscriptsPassLimitThrough(t *testing.T) {
	f := newAPIFixture(t)
	token := f.login(t)
	f.history.messages = []entities.TranscriptMessage{
		{ID: "1", Role: entities.RoleUser, Text: "hi"},
	}

	rec := f.request(t, http.MethodGet, "/api/v1/transcripts?limit=5", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 5, f.history.gotLimit)

	var messages []entities.TranscriptMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &messages))
	require.Len(t, messages, 1)
	assert.Equal(t, "hi", messages[0].Text)
}

func TestLogsEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	token := f.login(t)

	rec := f.request(t, http.MethodGet, "/api/v1/logs", "", token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMonitorSocketRejectsMissingToken(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(t, http.MethodGet, "/ws", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
