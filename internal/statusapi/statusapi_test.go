package statusapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KganDev/irish-rail-schedule/gtfsdb"
	"github.com/KganDev/irish-rail-schedule/internal/app"
	"github.com/KganDev/irish-rail-schedule/internal/appconf"
	"github.com/KganDev/irish-rail-schedule/internal/clock"
	"github.com/KganDev/irish-rail-schedule/internal/export"
	"github.com/KganDev/irish-rail-schedule/internal/metrics"
	"github.com/KganDev/irish-rail-schedule/internal/pruning"
)

func testApplication(t *testing.T) *app.Application {
	t.Helper()

	db, err := gtfsdb.NewClient(gtfsdb.NewConfig(":memory:", appconf.Test, false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &app.Application{
		Config:  appconf.Config{Env: appconf.Test, RateLimit: 100},
		Logger:  slog.New(slog.NewJSONHandler(io.Discard, nil)),
		Clock:   clock.NewMockClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)),
		Metrics: metrics.New(),
		DB:      db,
	}
}

func publishedState() *app.BuildState {
	return &app.BuildState{
		Version:     "2024-06",
		GeneratedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Windows: export.WindowsDocument{
			GeneratedAt: "2024-06-01T12:00:00Z",
			Scan:        export.DateRange{From: "20240601", To: "20240830"},
			Feed:        export.FeedSummary{Version: "2024-06"},
			Windows: []export.DateRange{
				{From: "20240601", To: "20240616"},
				{From: "20240617", To: "20240830"},
			},
		},
		Diagnostics: &pruning.Diagnostics{
			PivotDate:      "20240601",
			OverlapMaxDays: 45,
			Summary:        pruning.Summary{TotalGroups: 2, ServicesKept: 3},
		},
		TableCounts: map[string]int{"trips": 120},
	}
}

func serve(t *testing.T, application *app.Application, path string) *httptest.ResponseRecorder {
	t.Helper()
	api := &StatusAPI{Application: application}
	mux := http.NewServeMux()
	api.SetRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthBeforeFirstBuild(t *testing.T) {
	application := testApplication(t)

	rec := serve(t, application, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "starting", health.Status)
}

func TestHealthAfterBuild(t *testing.T) {
	application := testApplication(t)
	application.SetBuildState(publishedState())

	rec := serve(t, application, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
}

func TestHealthWithoutDB(t *testing.T) {
	application := testApplication(t)
	application.DB = nil

	rec := serve(t, application, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusEndpoint(t *testing.T) {
	application := testApplication(t)
	application.SetBuildState(publishedState())

	rec := serve(t, application, "/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var status StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.OK)
	assert.Equal(t, "2024-06", status.Latest)
	assert.Equal(t, "2024-06-01T12:00:00Z", status.GeneratedAt)
	assert.Equal(t, 120, status.TableCounts["trips"])
}

func TestStatusBeforeFirstBuild(t *testing.T) {
	application := testApplication(t)

	rec := serve(t, application, "/v1/status")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWindowsEndpoint(t *testing.T) {
	application := testApplication(t)
	application.SetBuildState(publishedState())

	rec := serve(t, application, "/v1/windows")
	require.Equal(t, http.StatusOK, rec.Code)

	var doc export.WindowsDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Len(t, doc.Windows, 2)
	assert.Equal(t, export.DateRange{From: "20240601", To: "20240616"}, doc.Windows[0])
}

func TestDiagnosticsEndpoint(t *testing.T) {
	application := testApplication(t)
	application.SetBuildState(publishedState())

	rec := serve(t, application, "/v1/diagnostics")
	require.Equal(t, http.StatusOK, rec.Code)

	var diag pruning.Diagnostics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &diag))
	assert.Equal(t, "20240601", diag.PivotDate)
	assert.Equal(t, 3, diag.Summary.ServicesKept)
}

func TestDiagnosticsWhenPruningOff(t *testing.T) {
	application := testApplication(t)
	state := publishedState()
	state.Diagnostics = nil
	application.SetBuildState(state)

	rec := serve(t, application, "/v1/diagnostics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	application := testApplication(t)

	rec := serve(t, application, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "schedule_services_kept")
}

func TestDebugHandlerHiddenInProduction(t *testing.T) {
	application := testApplication(t)
	application.Config.Env = appconf.Production

	rec := serve(t, application, "/debug?dataType=windows")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDebugHandlerRendersWindows(t *testing.T) {
	application := testApplication(t)
	application.SetBuildState(publishedState())

	rec := serve(t, application, "/debug?dataType=windows")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Schedule Windows")
	assert.Contains(t, rec.Body.String(), "20240601")
}

func TestDebugHandlerMasksAuthHeader(t *testing.T) {
	application := testApplication(t)
	application.Config.StaticAuthHeaderValue = "secret-token"

	rec := serve(t, application, "/debug?dataType=config")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret-token")
}

func TestNewServerWiresMiddleware(t *testing.T) {
	application := testApplication(t)
	application.SetBuildState(publishedState())

	server, rateLimiter := NewServer(application)
	defer rateLimiter.Stop()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "203.0.113.7:51000"
	server.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
