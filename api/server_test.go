package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"status-service/api"
	"status-service/api/stream"
	"status-service/config"
	"status-service/core/incidents"
	"status-service/core/store"
	"status-service/core/utils"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	srv *httptest.Server
	hub *stream.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, nil)
}

func newTestEnvWith(t *testing.T, mutate func(*api.ServerDeps)) *testEnv {
	t.Helper()
	cfg := &config.AppConfig{
		DBDriver:   config.DriverSQLite,
		DBURL:      filepath.Join(t.TempDir(), "incidents.db"),
		ListenAddr: "127.0.0.1:0",
		Version:    "0.1.0",
		HTTP:       config.HTTPConfig{MaxBodyBytes: 64 * 1024},
		CORS:       config.CORSConfig{AllowedOrigins: []string{"*"}},
		Incidents:  config.IncidentsConfig{MaxRecentCount: 50},
	}
	logger := utils.NewDiscardLogger()
	db, err := store.NewDB(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.ApplyMigrations(context.Background(), db, logger))

	hub := stream.NewHub(time.Second, cfg.CORS.AllowedOrigins, logger)
	svc := incidents.NewService(cfg, store.NewIncidentsStore(db), utils.NewManualClock(time.Date(2025, 1, 9, 3, 0, 0, 0, time.UTC), time.Millisecond), logger, incidents.WithPublisher(hub))
	deps := api.ServerDeps{
		IncidentsSvc: svc,
		Generator:    incidents.NewGenerator(svc, 1),
		Stream:       hub,
	}
	if mutate != nil {
		mutate(&deps)
	}
	server := api.NewServer(cfg, deps, logger)

	srv := httptest.NewServer(server.Handler())
	t.Cleanup(func() {
		_ = hub.StopWithContext(context.Background())
		srv.Close()
	})
	return &testEnv{srv: srv, hub: hub}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	require.NoError(t, err)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func validPayload(service, state string) map[string]any {
	return map[string]any{
		"service":        service,
		"previous_state": "OK",
		"current_state":  state,
		"incident": map[string]any{
			"title":       "Test Incident",
			"description": "This is a test incident",
			"components":  []string{"Component1", "Component2"},
			"url":         "https://status.test-service.com/incident-1",
		},
	}
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

type validationBody struct {
	Detail []struct {
		Loc  []any  `json:"loc"`
		Msg  string `json:"msg"`
		Type string `json:"type"`
	} `json:"detail"`
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp, raw := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]string](t, raw)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "0.1.0", body["version"])
	_, err := time.Parse("2006-01-02 15:04:05.999999", body["timestamp"])
	assert.NoError(t, err, body["timestamp"])
}

func TestCreateIncident(t *testing.T) {
	env := newTestEnv(t)
	resp, raw := env.do(t, http.MethodPost, "/incidents", validPayload("Test Service", "MINOR"))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	body := decode[map[string]any](t, raw)
	for _, field := range []string{"id", "service", "previous_state", "current_state", "created_at", "incident", "history"} {
		assert.Contains(t, body, field)
	}
	history := body["history"].([]any)
	require.Len(t, history, 1)
	_, err := time.Parse("2006-01-02T15:04:05.999999", body["created_at"].(string))
	assert.NoError(t, err)
}

func TestCreateIncidentValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	bad := validPayload("Test Service", "MINOR")
	bad["incident"].(map[string]any)["url"] = "not-a-url"
	resp, raw := env.do(t, http.MethodPost, "/incidents", bad)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := decode[validationBody](t, raw)
	require.Len(t, body.Detail, 1)
	assert.Equal(t, []any{"body", "incident", "url"}, body.Detail[0].Loc)

	resp, _ = env.do(t, http.MethodPost, "/incidents", `{"service": "x",`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, raw = env.do(t, http.MethodPost, "/incidents", `{"service": "x", "previous_state": "a", "current_state": "b", "incident": {"title": "t", "description": "", "components": "api", "url": "https://x.example"}}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body = decode[validationBody](t, raw)
	assert.Equal(t, []any{"body", "incident", "components"}, body.Detail[0].Loc)
	assert.Equal(t, "list_type", body.Detail[0].Type)

	resp, raw = env.do(t, http.MethodGet, "/incidents/recent?count=10", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestCreateIncidentReportsTypeAndValueErrorsTogether(t *testing.T) {
	env := newTestEnv(t)
	resp, raw := env.do(t, http.MethodPost, "/incidents", `{"service": "", "previous_state": 5, "current_state": "", "incident": {"title": "", "components": "x", "url": "nope"}}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	body := decode[validationBody](t, raw)
	types := map[string]string{}
	for _, d := range body.Detail {
		types[locKey(d.Loc...)] = d.Type
	}
	assert.Equal(t, "string_type", types[locKey("body", "previous_state")])
	assert.Equal(t, "missing", types[locKey("body", "service")])
	assert.Equal(t, "missing", types[locKey("body", "current_state")])
	assert.Equal(t, "missing", types[locKey("body", "incident", "title")])
	assert.Equal(t, "missing", types[locKey("body", "incident", "description")])
	assert.Equal(t, "url_parsing", types[locKey("body", "incident", "url")])
	assert.Contains(t, types, locKey("body", "incident", "components"))
	assert.Len(t, body.Detail, len(types), "each location is reported once")

	resp, raw = env.do(t, http.MethodGet, "/incidents/recent?count=10", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(raw))
}

func locKey(parts ...any) string { return fmt.Sprint(parts) }

func TestCreateIncidentRequiresDescriptionField(t *testing.T) {
	env := newTestEnv(t)
	payload := validPayload("api", "degraded")
	delete(payload["incident"].(map[string]any), "description")
	resp, raw := env.do(t, http.MethodPost, "/incidents", payload)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := decode[validationBody](t, raw)
	require.Len(t, body.Detail, 1)
	assert.Equal(t, []any{"body", "incident", "description"}, body.Detail[0].Loc)

	payload["incident"].(map[string]any)["description"] = ""
	resp, _ = env.do(t, http.MethodPost, "/incidents", payload)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHistoryEndpoint(t *testing.T) {
	env := newTestEnv(t)
	_, raw := env.do(t, http.MethodPost, "/incidents", validPayload("api", "degraded"))
	created := decode[map[string]any](t, raw)
	id := int64(created["id"].(float64))

	resp, raw := env.do(t, http.MethodGet, fmt.Sprintf("/incidents/%d/history", id), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := decode[[]map[string]any](t, raw)
	require.Len(t, entries, 1)
	assert.Equal(t, float64(id), entries[0]["incident_id"])
	assert.Contains(t, entries[0], "recorded_at")

	resp, raw = env.do(t, http.MethodGet, "/incidents/99999/history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(raw))

	resp, raw = env.do(t, http.MethodGet, "/incidents/abc/history", nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := decode[validationBody](t, raw)
	assert.Equal(t, []any{"path", "incident_id"}, body.Detail[0].Loc)
}

func TestRecentEndpointCountBounds(t *testing.T) {
	env := newTestEnv(t)
	for _, q := range []string{"count=0", "count=51", "count=abc", "start_date=yesterday", "include_history=maybe"} {
		resp, _ := env.do(t, http.MethodGet, "/incidents/recent?"+q, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, q)
	}
	resp, _ := env.do(t, http.MethodGet, "/incidents/recent?count=50", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRecentEndpointLatestPerServiceAndStartDate(t *testing.T) {
	env := newTestEnv(t)
	for _, st := range []string{"degraded", "outage", "operational"} {
		resp, _ := env.do(t, http.MethodPost, "/incidents", validPayload("A", st))
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	_, raw := env.do(t, http.MethodPost, "/incidents", validPayload("B", "maintenance"))
	newest := decode[map[string]any](t, raw)

	resp, raw := env.do(t, http.MethodGet, "/incidents/recent", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	board := decode[[]map[string]any](t, raw)
	require.Len(t, board, 2)
	assert.Equal(t, "B", board[0]["service"])
	assert.Equal(t, "operational", board[1]["current_state"])
	assert.Empty(t, board[0]["history"])

	resp, raw = env.do(t, http.MethodGet, "/incidents/recent?start_date="+newest["created_at"].(string), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	board = decode[[]map[string]any](t, raw)
	require.Len(t, board, 1)
	assert.Equal(t, newest["id"], board[0]["id"])

	resp, raw = env.do(t, http.MethodGet, "/incidents/recent?count=2&include_history=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	board = decode[[]map[string]any](t, raw)
	require.Len(t, board, 2)
	assert.Len(t, board[0]["history"], 1)
}

func TestGetIncidentEndpoint(t *testing.T) {
	env := newTestEnv(t)
	_, raw := env.do(t, http.MethodPost, "/incidents", validPayload("api", "degraded"))
	created := decode[map[string]any](t, raw)

	resp, raw := env.do(t, http.MethodGet, fmt.Sprintf("/incidents/%v", created["id"]), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, mustJSON(t, created), string(raw))

	resp, raw = env.do(t, http.MethodGet, "/incidents/424242", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"detail": "Incident not found"}`, string(raw))
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestGenerateEndpoint(t *testing.T) {
	env := newTestEnv(t)
	resp, raw := env.do(t, http.MethodGet, "/incidents/generate?state=maintenance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	body := decode[map[string]any](t, raw)
	assert.Equal(t, "maintenance", body["current_state"])

	resp, _ = env.do(t, http.MethodGet, "/incidents/generate", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/incidents/generate?state=exploded", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestGenerateEndpointAbsentWithoutGenerator(t *testing.T) {
	env := newTestEnvWith(t, func(deps *api.ServerDeps) { deps.Generator = nil })
	resp, raw := env.do(t, http.MethodGet, "/incidents/generate?state=outage", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"detail": "Not Found"}`, string(raw))

	resp, raw = env.do(t, http.MethodGet, "/incidents/recent", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestServicesEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/incidents", validPayload("web", "degraded"))
	env.do(t, http.MethodPost, "/incidents", validPayload("api", "outage"))

	resp, raw := env.do(t, http.MethodGet, "/services/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := decode[[]map[string]any](t, raw)
	require.Len(t, status, 2)
	assert.Equal(t, "api", status[0]["service"])
	assert.Equal(t, "outage", status[0]["current_state"])

	resp, raw = env.do(t, http.MethodGet, "/services", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]map[string]any](t, raw), 2)

	resp, _ = env.do(t, http.MethodGet, "/services?since=garbage", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestRequestIDAndUnknownRoutes(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.do(t, http.MethodGet, "/health", nil)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	req, err := http.NewRequest(http.MethodGet, env.srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "abc-123")
	resp2, err := env.srv.Client().Do(req)
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, "abc-123", resp2.Header.Get("X-Request-ID"))

	resp, raw := env.do(t, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"detail": "Not Found"}`, string(raw))

	resp, _ = env.do(t, http.MethodDelete, "/incidents/1", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	req, err := http.NewRequest(http.MethodOptions, env.srv.URL+"/incidents", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://status.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	resp, err := env.srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
}

func TestStreamReceivesCreatedIncidents(t *testing.T) {
	env := newTestEnv(t)
	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/incidents/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return env.hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp, raw := env.do(t, http.MethodPost, "/incidents", validPayload("api", "outage"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	created := decode[map[string]any](t, raw)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	event := decode[map[string]any](t, msg)
	assert.Equal(t, incidents.EventIncidentCreated, event["event"])
	assert.Equal(t, created["id"], event["data"].(map[string]any)["id"])
}
