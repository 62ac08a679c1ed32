package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/vitalsctl/internal/alert"
	"codeberg.org/mutker/vitalsctl/internal/baseline"
	"codeberg.org/mutker/vitalsctl/internal/collector"
	"codeberg.org/mutker/vitalsctl/internal/logger"
	"codeberg.org/mutker/vitalsctl/internal/metrics"
	"codeberg.org/mutker/vitalsctl/internal/regression"
	"codeberg.org/mutker/vitalsctl/internal/storage"
	"codeberg.org/mutker/vitalsctl/internal/vitals"
)

type testServer struct {
	*Server
	alerts *alert.System
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	beacons := collector.NewBeaconSource()
	alerts, err := alert.New(alert.DefaultConfig(), alert.WithLogger(logger.Nop()))
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	require.NoError(t, metrics.Register(reg))

	srv := New(Config{AllowedOrigins: []string{"https://shop.example.com"}}, Deps{
		Collector:     collector.New(beacons.Sources(), collector.WithLogger(logger.Nop())),
		Beacons:       beacons,
		Baselines:     baseline.NewManager(storage.NewMemoryStore(0), baseline.WithLogger(logger.Nop())),
		Detector:      regression.NewDetector(regression.DefaultThresholds()),
		Alerts:        alerts,
		Gatherer:      reg,
		DefaultPath:   "/checkout",
		DefaultLocale: "en",
		Logger:        logger.Nop(),
	})
	return testServer{Server: srv, alerts: alerts}
}

func (ts testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

const poorBeacon = `{
	"newPageView": true,
	"page": {"url": "https://shop.example.com/en/checkout", "title": "Checkout"},
	"userAgent": "test-agent",
	"navigation": {"requestStart": 100, "responseStart": 3000, "domContentLoadedEventEnd": 4000, "loadEventEnd": 9000},
	"paints": [{"name": "first-contentful-paint", "startTime": 6000}],
	"layoutShifts": [{"value": 0.3}, {"value": 0.2}, {"value": 0.4, "hadRecentInput": true}],
	"largestContentfulPaints": [{"startTime": 8000, "size": 1000}],
	"firstInputs": [{"startTime": 1000, "processingStart": 1600}]
}`

const goodSnapshot = `{
	"cls": 0.1, "lcp": 2500, "fid": 100, "fcp": 1800, "ttfb": 800,
	"page": {"url": "https://shop.example.com/en/checkout", "timestamp": "2024-01-01T00:00:00Z"}
}`

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestRequestIDIsPropagated(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-123")
	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(requestIDHeader))
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/beacon", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestBeaconUpdatesVitals(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/v1/beacon", poorBeacon)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/v1/vitals", "")
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode[vitals.MetricsSnapshot](t, w)
	assert.InDelta(t, 0.5, snap.CLS, 1e-9)
	assert.Equal(t, 8000.0, snap.LCP)
	assert.Equal(t, 600.0, snap.FID)
	assert.Equal(t, 6000.0, snap.FCP)
	assert.Equal(t, 3000.0, snap.TTFB)
	assert.Equal(t, "https://shop.example.com/en/checkout", snap.Page.URL)

	w = ts.do(t, http.MethodGet, "/api/v1/report", "")
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[collector.DiagnosticReport](t, w)
	assert.Less(t, report.Analysis.Score, 50.0)
	assert.NotEmpty(t, report.Analysis.Issues)
}

func TestBeaconRejectsInvalidPayload(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/v1/beacon", `{"layoutShifts": "lots"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBaselineLifecycle(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/baselines/recent", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/baselines", goodSnapshot)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	saved := decode[baseline.Baseline](t, w)
	assert.Equal(t, "baseline-1704067200000", saved.ID)

	w = ts.do(t, http.MethodGet, "/api/v1/baselines", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]baseline.Baseline](t, w), 1)

	w = ts.do(t, http.MethodGet, "/api/v1/baselines/recent", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, saved.ID, decode[baseline.Baseline](t, w).ID)

	w = ts.do(t, http.MethodGet, "/api/v1/baselines/recent?locale=de", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/baselines", `{"cls": "bad"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/v1/baselines", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/baselines", "")
	assert.Empty(t, decode[[]baseline.Baseline](t, w))
}

func TestSaveBaselineFromCurrentSnapshot(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/v1/beacon", poorBeacon)

	w := ts.do(t, http.MethodPost, "/api/v1/baselines", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	b := decode[baseline.Baseline](t, w)
	assert.Equal(t, "https://shop.example.com/en/checkout", b.URL)
	assert.Equal(t, 8000.0, b.Metrics.LCP)
}

func TestRegressionEndpoint(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/regression", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/api/v1/baselines", goodSnapshot).Code)
	require.Equal(t, http.StatusAccepted, ts.do(t, http.MethodPost, "/api/v1/beacon", poorBeacon).Code)

	w = ts.do(t, http.MethodGet, "/api/v1/regression", "")
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[regression.Result](t, w)
	assert.True(t, res.HasRegression)
	assert.Equal(t, vitals.SeverityCritical, res.Summary.OverallSeverity)
	assert.Len(t, res.Regressions, 5)

	w = ts.do(t, http.MethodGet, "/api/v1/regression?format=text", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Overall severity: CRITICAL")
}

func TestAlertEndpoints(t *testing.T) {
	ts := newTestServer(t)
	ts.alerts.CheckMetrics(context.Background(), map[vitals.Metric]float64{vitals.CLS: 0.3, vitals.LCP: 3000})

	w := ts.do(t, http.MethodGet, "/api/v1/alerts", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]alert.Alert](t, w), 2)

	w = ts.do(t, http.MethodGet, "/api/v1/alerts?severity=critical&metric=cls", "")
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[[]alert.Alert](t, w)
	require.Len(t, got, 1)
	assert.Equal(t, vitals.CLS, got[0].Metric)

	for _, q := range []string{"severity=loud", "metric=xyz", "start=yesterday"} {
		w = ts.do(t, http.MethodGet, "/api/v1/alerts?"+q, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}

	w = ts.do(t, http.MethodDelete, "/api/v1/alerts", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, ts.alerts.History())
}

func TestAlertConfigEndpoints(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/alerts/config", "")
	require.Equal(t, http.StatusOK, w.Code)
	cfg := decode[alert.Config](t, w)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 0.25, cfg.Thresholds[vitals.CLS].Critical)

	w = ts.do(t, http.MethodPut, "/api/v1/alerts/config", `{"enabled": false, "thresholds": {"cls": {"critical": "x"}}}`)
	require.Equal(t, http.StatusOK, w.Code)
	cfg = decode[alert.Config](t, w)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 0.25, cfg.Thresholds[vitals.CLS].Critical)
	assert.False(t, ts.alerts.Config().Enabled)

	w = ts.do(t, http.MethodPut, "/api/v1/alerts/config", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSnapshotsWithoutRecorder(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/snapshots", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/v1/snapshots?limit=-2", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/v1/beacon", poorBeacon)

	w := ts.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "vitalsctl_beacons_total")
}
