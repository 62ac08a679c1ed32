// Package regression compares a metrics snapshot against a stored baseline.
package regression

import (
	"math"

	"codeberg.org/mutker/vitalsctl/internal/baseline"
	"codeberg.org/mutker/vitalsctl/internal/vitals"
)

// Compared is the fixed, ordered metric set checked for regressions.
var Compared = []vitals.Metric{vitals.CLS, vitals.FID, vitals.LCP, vitals.FCP, vitals.TTFB}

type Regression struct {
	Metric        vitals.Metric   `json:"metric"`
	Current       float64         `json:"current"`
	Baseline      float64         `json:"baseline"`
	Change        float64         `json:"change"`
	// ChangePercent is 0 when Baseline is 0; the change is graded on the
	// absolute bounds alone.
	ChangePercent float64         `json:"changePercent"`
	Severity      vitals.Severity `json:"severity"`
	// Threshold is the bound that decided Severity: an absolute delta or a
	// percentage, depending on which table matched.
	Threshold float64 `json:"threshold"`
}

type Summary struct {
	TotalRegressions    int             `json:"totalRegressions"`
	CriticalRegressions int             `json:"criticalRegressions"`
	WarningRegressions  int             `json:"warningRegressions"`
	OverallSeverity     vitals.Severity `json:"overallSeverity"`
}

// Result is computed on demand and never persisted.
type Result struct {
	HasRegression bool                   `json:"hasRegression"`
	Regressions   []Regression           `json:"regressions"`
	Summary       Summary                `json:"summary"`
	Baseline      baseline.Baseline      `json:"baseline"`
	Current       vitals.MetricsSnapshot `json:"current"`
}

type Detector struct {
	thresholds Thresholds
}

// NewDetector returns a detector using t; invalid thresholds fall back to
// DefaultThresholds.
func NewDetector(t Thresholds) *Detector {
	if t.Validate() != nil {
		t = DefaultThresholds()
	}
	return &Detector{thresholds: t}
}

func (d *Detector) Thresholds() Thresholds {
	return d.thresholds
}

// DetectRegression compares current against base. Metrics missing from the
// baseline are skipped.
func (d *Detector) DetectRegression(current vitals.MetricsSnapshot, base baseline.Baseline) Result {
	res := Result{
		Regressions: []Regression{},
		Baseline:    base,
		Current:     current,
	}

	for _, m := range Compared {
		bv, ok := base.Metrics.Value(m)
		if !ok {
			continue
		}
		cv := current.Value(m)

		change := cv - bv
		if change <= 0 {
			continue
		}

		var (
			pct   float64
			sev   vitals.Severity
			bound float64
		)
		if bv == 0 {
			// No percent exists against a zero baseline; only the
			// absolute bounds can grade the change.
			var ok bool
			if sev, bound, ok = d.classifyAbsolute(m, change); !ok {
				continue
			}
		} else {
			pct = math.Abs(change/bv) * 100
			if !meets(pct, d.thresholds.MinPercent) {
				continue
			}
			sev, bound = d.classify(m, change, pct)
		}

		res.Regressions = append(res.Regressions, Regression{
			Metric:        m,
			Current:       cv,
			Baseline:      bv,
			Change:        change,
			ChangePercent: pct,
			Severity:      sev,
			Threshold:     bound,
		})
	}

	res.HasRegression = len(res.Regressions) > 0
	res.Summary = summarize(res.Regressions)
	return res
}

// classify checks the metric's absolute bounds first, then the percent
// table, and defaults to warning.
func (d *Detector) classify(m vitals.Metric, change, pct float64) (vitals.Severity, float64) {
	if sev, bound, ok := d.classifyAbsolute(m, change); ok {
		return sev, bound
	}

	switch {
	case meets(pct, d.thresholds.PercentCritical):
		return vitals.SeverityCritical, d.thresholds.PercentCritical
	case meets(pct, d.thresholds.PercentWarning):
		return vitals.SeverityWarning, d.thresholds.PercentWarning
	}
	return vitals.SeverityWarning, d.thresholds.MinPercent
}

func summarize(regs []Regression) Summary {
	s := Summary{TotalRegressions: len(regs)}
	for _, r := range regs {
		if r.Severity == vitals.SeverityCritical {
			s.CriticalRegressions++
		} else {
			s.WarningRegressions++
		}
	}

	switch {
	case s.CriticalRegressions > 0:
		s.OverallSeverity = vitals.SeverityCritical
	case s.WarningRegressions > 0:
		s.OverallSeverity = vitals.SeverityWarning
	default:
		s.OverallSeverity = vitals.SeverityNone
	}
	return s
}

// classifyAbsolute grades change on the metric's absolute bounds; ok is
// false when the metric has none or change is below the warning bound.
func (d *Detector) classifyAbsolute(m vitals.Metric, change float64) (vitals.Severity, float64, bool) {
	b, ok := d.thresholds.Absolute[m]
	if !ok {
		return vitals.SeverityNone, 0, false
	}
	switch {
	case meets(change, b.Critical):
		return vitals.SeverityCritical, b.Critical, true
	case meets(change, b.Warning):
		return vitals.SeverityWarning, b.Warning, true
	}
	return vitals.SeverityNone, 0, false
}
