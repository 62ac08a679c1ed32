package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/vitalsctl/internal/alert"
	"codeberg.org/mutker/vitalsctl/internal/baseline"
	"codeberg.org/mutker/vitalsctl/internal/errors"
	"codeberg.org/mutker/vitalsctl/internal/logger"
	"codeberg.org/mutker/vitalsctl/internal/regression"
	"codeberg.org/mutker/vitalsctl/internal/storage"
	"codeberg.org/mutker/vitalsctl/internal/vitals"
)

type staticSource struct {
	mu   sync.Mutex
	snap vitals.MetricsSnapshot
	hits int
}

func (s *staticSource) GetDetailedMetrics() vitals.MetricsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits++
	return s.snap
}

func (s *staticSource) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits
}

type memoryRecorder struct {
	snaps []vitals.MetricsSnapshot
}

func (r *memoryRecorder) Record(_ context.Context, s vitals.MetricsSnapshot) error {
	r.snaps = append(r.snaps, s)
	return nil
}

type pipeline struct {
	source    *staticSource
	baselines *baseline.Manager
	alerts    *alert.System
	recorder  *memoryRecorder
	monitor   *Monitor
}

func newPipeline(t *testing.T, cfg Config, snap vitals.MetricsSnapshot) pipeline {
	t.Helper()

	store := storage.NewMemoryStore(0)
	p := pipeline{
		source:    &staticSource{snap: snap},
		baselines: baseline.NewManager(store, baseline.WithLogger(logger.Nop())),
		recorder:  &memoryRecorder{},
	}

	var err error
	p.alerts, err = alert.New(alert.DefaultConfig(), alert.WithLogger(logger.Nop()))
	require.NoError(t, err)

	p.monitor, err = New(cfg, Deps{
		Source:    p.source,
		Baselines: p.baselines,
		Detector:  regression.NewDetector(regression.DefaultThresholds()),
		Alerts:    p.alerts,
		Recorder:  p.recorder,
		Logger:    logger.Nop(),
	})
	require.NoError(t, err)
	return p
}

func snapshotAt(url string, cls, lcp, fid, fcp, ttfb float64) vitals.MetricsSnapshot {
	return vitals.MetricsSnapshot{
		CLS: cls, LCP: lcp, FID: fid, FCP: fcp, TTFB: ttfb,
		Page: vitals.PageInfo{URL: url, Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	err := Config{}.Validate()
	assert.True(t, errors.HasCode(err, ErrInvalidInterval))

	_, err = New(Config{Interval: -time.Second}, Deps{})
	assert.True(t, errors.HasCode(err, ErrInvalidInterval))
}

func TestTickWithoutPageViewIsSkipped(t *testing.T) {
	p := newPipeline(t, DefaultConfig(), vitals.MetricsSnapshot{})

	cycle := p.monitor.Tick(context.Background())
	assert.True(t, cycle.Skipped)
	assert.Empty(t, p.recorder.snaps)
	assert.Empty(t, p.alerts.History())
}

func TestTickWithoutBaselineChecksThresholdsOnly(t *testing.T) {
	snap := snapshotAt("https://example.com/en/checkout", 0.3, 1500, 50, 1200, 400)
	p := newPipeline(t, Config{Interval: time.Minute, Path: "/checkout", Locale: "en"}, snap)

	cycle := p.monitor.Tick(context.Background())
	assert.False(t, cycle.Skipped)
	assert.Nil(t, cycle.Regression)
	require.Len(t, cycle.Alerts, 1)
	assert.Equal(t, vitals.CLS, cycle.Alerts[0].Metric)
	assert.Len(t, p.recorder.snaps, 1)
}

func TestTickDetectsRegressionAgainstRecentBaseline(t *testing.T) {
	ctx := context.Background()
	cfg := Config{Interval: time.Minute, Path: "/checkout", Locale: "en"}
	p := newPipeline(t, cfg, snapshotAt("https://example.com/en/checkout", 0.5, 8000, 600, 6000, 3000))

	_, ok := p.baselines.SaveBaseline(ctx, snapshotAt("https://example.com/en/checkout", 0.1, 2500, 100, 1800, 800))
	require.True(t, ok)

	cycle := p.monitor.Tick(ctx)
	require.NotNil(t, cycle.Regression)
	assert.True(t, cycle.Regression.HasRegression)
	assert.Equal(t, vitals.SeverityCritical, cycle.Regression.Summary.OverallSeverity)
	assert.Len(t, cycle.Regression.Regressions, 5)
	assert.Len(t, cycle.Alerts, 11)
	assert.Len(t, p.baselines.GetBaselines(ctx), 1, "ticks never save baselines")
}

func TestRunStopsOnCancel(t *testing.T) {
	snap := snapshotAt("https://example.com/en/", 0.05, 1500, 50, 1200, 400)
	p := newPipeline(t, Config{Interval: 5 * time.Millisecond, Path: "/", Locale: "en"}, snap)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.monitor.Run(ctx) }()

	assert.Eventually(t, func() bool { return p.source.calls() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}
