package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolops/internal/platform/config"
	"poolops/internal/platform/metrics"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func testConfig() config.Config {
	return config.Config{
		JWTSecret:          "test-secret",
		TokenTTL:           time.Hour,
		TimeZone:           "UTC",
		MaxBodyBytes:       1 << 20,
		RateLimitPerMinute: 1000,
		MetricsEnabled:     true,
	}
}

func serve(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndReadiness(t *testing.T) {
	router := NewRouter(testConfig(), Services{}, stubPinger{})

	rec := serve(t, router, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = serve(t, router, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)

	down := NewRouter(testConfig(), Services{}, stubPinger{err: errors.New("connection refused")})
	rec = serve(t, down, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	router := NewRouter(testConfig(), Services{}, stubPinger{})

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/clock/active"},
		{http.MethodPost, "/api/checklist/submit"},
		{http.MethodGet, "/api/locations"},
		{http.MethodGet, "/api/users"},
		{http.MethodGet, "/api/schedules"},
		{http.MethodGet, "/api/audit/events"},
		{http.MethodGet, "/Clock"},
	} {
		rec := serve(t, router, tc.method, tc.path)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	collector := metrics.New()
	collector.Count(metrics.EventClockIn)
	router := NewRouter(testConfig(), Services{Metrics: collector}, stubPinger{})

	serve(t, router, http.MethodGet, "/healthz")
	rec := serve(t, router, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.EqualValues(t, 1, body.Data["clockInsTotal"])
	assert.GreaterOrEqual(t, body.Data["requestsTotal"].(float64), float64(1))
}

func TestMetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.MetricsEnabled = false
	router := NewRouter(cfg, Services{}, stubPinger{})

	rec := serve(t, router, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
