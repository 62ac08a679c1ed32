// Package monitor runs the periodic collect, compare and alert cycle.
package monitor

import (
	"context"
	"time"

	"codeberg.org/mutker/vitalsctl/internal/alert"
	"codeberg.org/mutker/vitalsctl/internal/errors"
	"codeberg.org/mutker/vitalsctl/internal/logger"
	"codeberg.org/mutker/vitalsctl/internal/metrics"
	"codeberg.org/mutker/vitalsctl/internal/regression"
	"codeberg.org/mutker/vitalsctl/internal/vitals"
)

const (
	ErrInvalidInterval = errors.ErrInvalidInterval

	defaultInterval = time.Minute
)

type Config struct {
	Interval time.Duration
	// Path and Locale select the baseline to compare against.
	Path   string
	Locale string
}

func DefaultConfig() Config {
	return Config{
		Interval: defaultInterval,
		Path:     "/",
		Locale:   "en",
	}
}

func (c Config) Validate() error {
	if c.Interval <= 0 {
		return errors.New().WithData(ErrInvalidInterval, struct {
			Interval string
		}{
			Interval: c.Interval.String(),
		})
	}
	return nil
}

// Cycle is the outcome of one Tick.
type Cycle struct {
	Snapshot   vitals.MetricsSnapshot
	Regression *regression.Result
	Alerts     []alert.Alert
	// Skipped is set when no page view has been observed yet.
	Skipped bool
}

type Monitor struct {
	cfg       Config
	source    Source
	baselines BaselineFinder
	detector  RegressionDetector
	alerts    Alerter
	recorder  Recorder
	log       logger.Logger
}

// Deps are the pipeline stages a Monitor drives. Recorder and Logger are
// optional.
type Deps struct {
	Source    Source
	Baselines BaselineFinder
	Detector  RegressionDetector
	Alerts    Alerter
	Recorder  Recorder
	Logger    logger.Logger
}

func New(cfg Config, deps Deps) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.New().Wrap(errors.ErrInvalidConfig, err)
	}

	log := deps.Logger
	if log == nil {
		log = logger.Default()
	}

	return &Monitor{
		cfg:       cfg,
		source:    deps.Source,
		baselines: deps.Baselines,
		detector:  deps.Detector,
		alerts:    deps.Alerts,
		recorder:  deps.Recorder,
		log:       log.With("monitor"),
	}, nil
}

// Tick takes a snapshot, records it, compares it to the recent baseline and
// raises alerts. Baselines are never saved here.
func (m *Monitor) Tick(ctx context.Context) Cycle {
	snap := m.source.GetDetailedMetrics()
	if snap.Page.URL == "" {
		m.log.Debug().Msg("No page view observed yet, skipping cycle")
		return Cycle{Snapshot: snap, Skipped: true}
	}

	vals := snap.Values()
	metrics.SetVitals(vals)

	if m.recorder != nil {
		if err := m.recorder.Record(ctx, snap); err != nil {
			m.log.Warn().Err(err).Msg("Failed to record snapshot")
		}
	}

	cycle := Cycle{Snapshot: snap}
	if base, ok := m.baselines.GetRecentBaseline(ctx, m.cfg.Path, m.cfg.Locale); ok {
		res := m.detector.DetectRegression(snap, base)
		for _, r := range res.Regressions {
			metrics.ObserveRegression(r.Metric, r.Severity)
		}
		cycle.Regression = &res
	}

	cycle.Alerts = m.alerts.CheckAndAlert(ctx, vals, cycle.Regression)
	metrics.ObserveMonitorCycle()

	ev := m.log.Debug().
		Str("url", snap.Page.URL).
		Float64("score", vals[vitals.Score]).
		Int("alerts", len(cycle.Alerts))
	if cycle.Regression != nil {
		ev = ev.Str("overall_severity", cycle.Regression.Summary.OverallSeverity.String())
	}
	ev.Msg("Monitoring cycle complete")

	return cycle
}

// Run ticks on the configured interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.log.Info().
		Dur("interval", m.cfg.Interval).
		Str("path", m.cfg.Path).
		Str("locale", m.cfg.Locale).
		Msg("Monitor started")

	for {
		select {
		case <-ctx.Done():
			m.log.Info().Msg("Monitor stopped")
			return nil
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}
