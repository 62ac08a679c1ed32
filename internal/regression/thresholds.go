package regression

import (
	"fmt"
	"math"

	"codeberg.org/mutker/vitalsctl/internal/errors"
	"codeberg.org/mutker/vitalsctl/internal/vitals"
)

// epsilon absorbs float subtraction error, e.g. 0.15-0.1 against 0.05.
const epsilon = 1e-9

// Bounds is a warning/critical pair for one metric's absolute delta.
type Bounds struct {
	Warning  float64 `json:"warning"`
	Critical float64 `json:"critical"`
}

// Thresholds controls which changes are reported and how they are graded.
type Thresholds struct {
	// MinPercent is the change percentage a candidate must reach to be
	// reported at all.
	MinPercent      float64
	PercentWarning  float64
	PercentCritical float64
	// Absolute holds per-metric delta bounds, checked before the percent
	// table. Metrics without an entry fall through to the percent table.
	Absolute map[vitals.Metric]Bounds
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MinPercent:      10,
		PercentWarning:  20,
		PercentCritical: 50,
		Absolute: map[vitals.Metric]Bounds{
			vitals.CLS:  {Warning: 0.05, Critical: 0.1},
			vitals.FID:  {Warning: 50, Critical: 100},
			vitals.LCP:  {Warning: 500, Critical: 1000},
			vitals.FCP:  {Warning: 300, Critical: 600},
			vitals.TTFB: {Warning: 200, Critical: 400},
		},
	}
}

func (t Thresholds) Validate() error {
	bad := func(reason string) error {
		return errors.New().WithData(ErrInvalidThresholds, struct {
			Reason string
		}{
			Reason: reason,
		})
	}

	if invalid(t.MinPercent) || invalid(t.PercentWarning) || invalid(t.PercentCritical) {
		return bad("percent thresholds must be finite and non-negative")
	}
	if t.PercentWarning > t.PercentCritical {
		return bad("percent warning exceeds critical")
	}
	for m, b := range t.Absolute {
		if invalid(b.Warning) || invalid(b.Critical) {
			return bad(fmt.Sprintf("%s bounds must be finite and non-negative", m))
		}
		if b.Warning > b.Critical {
			return bad(fmt.Sprintf("%s warning exceeds critical", m))
		}
	}
	return nil
}

func invalid(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0) || v < 0
}

func meets(v, bound float64) bool {
	return v+epsilon >= bound
}
