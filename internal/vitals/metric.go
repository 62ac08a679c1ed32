// Package vitals holds the Web Vitals vocabulary shared by the pipeline:
// metric names, severities, ratings, the metrics snapshot and scoring.
package vitals

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Metric names a measured value. The set is closed; every lookup goes
// through an exhaustive switch.
type Metric int

const (
	MetricUnknown Metric = iota
	CLS
	FID
	INP
	LCP
	FCP
	TTFB
	Score
)

// CoreMetrics is the ordered set compared against baselines. All of them are
// lower-is-better.
var CoreMetrics = []Metric{CLS, FID, LCP, FCP, TTFB}

// AlertMetrics are the metrics the alert system has thresholds for.
var AlertMetrics = []Metric{CLS, LCP, FID, FCP, TTFB, Score}

func (m Metric) String() string {
	switch m {
	case CLS:
		return "cls"
	case FID:
		return "fid"
	case INP:
		return "inp"
	case LCP:
		return "lcp"
	case FCP:
		return "fcp"
	case TTFB:
		return "ttfb"
	case Score:
		return "score"
	case MetricUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("metric(%d)", int(m))
	}
}

// Unit returns the display unit, empty for unitless values.
func (m Metric) Unit() string {
	switch m {
	case FID, INP, LCP, FCP, TTFB:
		return "ms"
	case CLS, Score, MetricUnknown:
		return ""
	default:
		return ""
	}
}

// LowerIsBetter is false only for the diagnostic score.
func (m Metric) LowerIsBetter() bool {
	switch m {
	case Score:
		return false
	case CLS, FID, INP, LCP, FCP, TTFB, MetricUnknown:
		return true
	default:
		return true
	}
}

// Format renders a value with the metric's precision and unit.
func (m Metric) Format(v float64) string {
	switch m {
	case CLS:
		return fmt.Sprintf("%.3f", v)
	case Score:
		return fmt.Sprintf("%.0f", v)
	case FID, INP, LCP, FCP, TTFB, MetricUnknown:
		return fmt.Sprintf("%.0f%s", v, m.Unit())
	default:
		return fmt.Sprintf("%g", v)
	}
}

// ParseMetric accepts the lower-case metric names, case-insensitively.
func ParseMetric(s string) (Metric, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cls":
		return CLS, true
	case "fid":
		return FID, true
	case "inp":
		return INP, true
	case "lcp":
		return LCP, true
	case "fcp":
		return FCP, true
	case "ttfb":
		return TTFB, true
	case "score":
		return Score, true
	default:
		return MetricUnknown, false
	}
}

func (m Metric) MarshalText() ([]byte, error) {
	if m == MetricUnknown {
		return []byte(""), nil
	}
	return []byte(m.String()), nil
}

func (m *Metric) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*m = MetricUnknown
		return nil
	}
	parsed, ok := ParseMetric(string(b))
	if !ok {
		return fmt.Errorf("unknown metric %q", string(b))
	}
	*m = parsed
	return nil
}

// Severity classifies alerts and regressions.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityWarning
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	case SeverityNone:
		return "none"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// ParseSeverity accepts "none", "warning" and "critical".
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return SeverityNone, true
	case "warning", "warn":
		return SeverityWarning, true
	case "critical":
		return SeverityCritical, true
	default:
		return SeverityNone, false
	}
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	parsed, ok := ParseSeverity(str)
	if !ok {
		return fmt.Errorf("unknown severity %q", str)
	}
	*s = parsed
	return nil
}
