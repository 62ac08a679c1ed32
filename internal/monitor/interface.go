package monitor

import (
	"context"

	"codeberg.org/mutker/vitalsctl/internal/alert"
	"codeberg.org/mutker/vitalsctl/internal/baseline"
	"codeberg.org/mutker/vitalsctl/internal/regression"
	"codeberg.org/mutker/vitalsctl/internal/vitals"
)

// Source yields the current metrics snapshot.
type Source interface {
	GetDetailedMetrics() vitals.MetricsSnapshot
}

type BaselineFinder interface {
	GetRecentBaseline(ctx context.Context, pathSuffix, locale string) (baseline.Baseline, bool)
}

type RegressionDetector interface {
	DetectRegression(current vitals.MetricsSnapshot, base baseline.Baseline) regression.Result
}

type Alerter interface {
	CheckAndAlert(ctx context.Context, vals map[vitals.Metric]float64, res *regression.Result) []alert.Alert
}

// Recorder keeps snapshot history; telemetry.Recorder satisfies it.
type Recorder interface {
	Record(ctx context.Context, snapshot vitals.MetricsSnapshot) error
}
