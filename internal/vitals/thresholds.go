package vitals

// Rating is the Web Vitals classification of a single value.
type Rating string

const (
	RatingGood             Rating = "good"
	RatingNeedsImprovement Rating = "needs-improvement"
	RatingPoor             Rating = "poor"
)

// Boundary holds the Web Vitals cut-offs for a metric: values at or below
// Good are good, values above Poor are poor.
type Boundary struct {
	Good float64
	Poor float64
}

// Boundaries returns the Web Vitals cut-offs for m; ok is false for metrics
// without a standard rating (the diagnostic score).
func Boundaries(m Metric) (Boundary, bool) {
	switch m {
	case CLS:
		return Boundary{Good: 0.1, Poor: 0.25}, true
	case LCP:
		return Boundary{Good: 2500, Poor: 4000}, true
	case FID:
		return Boundary{Good: 100, Poor: 300}, true
	case INP:
		return Boundary{Good: 200, Poor: 500}, true
	case FCP:
		return Boundary{Good: 1800, Poor: 3000}, true
	case TTFB:
		return Boundary{Good: 800, Poor: 1800}, true
	case Score, MetricUnknown:
		return Boundary{}, false
	default:
		return Boundary{}, false
	}
}

// Rate classifies value for metric m. Metrics without boundaries rate good.
func Rate(m Metric, value float64) Rating {
	b, ok := Boundaries(m)
	if !ok {
		return RatingGood
	}
	switch {
	case value <= b.Good:
		return RatingGood
	case value <= b.Poor:
		return RatingNeedsImprovement
	default:
		return RatingPoor
	}
}
