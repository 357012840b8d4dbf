package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/sfpd-cad-cot/internal/adapter/http"
	"github.com/couchcryptid/sfpd-cad-cot/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockMonitor struct {
	err    error
	status pipeline.Status
}

func (m *mockMonitor) CheckReadiness(_ context.Context) error { return m.err }

func (m *mockMonitor) Status() pipeline.Status { return m.status }

func newTestServer(monitor *mockMonitor) *httpadapter.Server {
	return httpadapter.NewServer(":0", monitor, slog.Default())
}

func get(t *testing.T, srv *httpadapter.Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(t, newTestServer(&mockMonitor{}), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(t, newTestServer(&mockMonitor{}), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(t, newTestServer(&mockMonitor{err: fmt.Errorf("feed has not been fetched yet")}), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "feed has not been fetched yet", body["error"])
}

func TestStatusReportsLastPoll(t *testing.T) {
	at := time.Date(2022, 6, 14, 15, 0, 0, 0, time.UTC)
	monitor := &mockMonitor{status: pipeline.Status{
		LastPoll:    at,
		LastSuccess: at,
		Result:      pipeline.PollResult{Fetched: 11, Eligible: 6, Submitted: 3, Skipped: 1, Failed: 2, Malformed: 1},
	}}

	rec := get(t, newTestServer(monitor), "/status")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body pipeline.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, at.Equal(body.LastPoll))
	assert.Equal(t, monitor.status.Result, body.Result)
	assert.NotContains(t, rec.Body.String(), `"error"`)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(&mockMonitor{}), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
