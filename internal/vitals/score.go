package vitals

import (
	"fmt"
	"math"
	"strings"
)

// weights of the metrics that make up the diagnostic score; they sum to 1.
var scoreWeights = []struct {
	metric Metric
	weight float64
}{
	{CLS, 0.25},
	{LCP, 0.25},
	{FCP, 0.15},
	{FID, 0.10},
	{INP, 0.10},
	{TTFB, 0.15},
}

const (
	// slowResourcePenalty is taken off the score per slow resource, up to
	// maxResourcePenalty.
	slowResourcePenalty = 2.0
	maxResourcePenalty  = 10.0
)

// Analysis is the diagnostic part of a report.
type Analysis struct {
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
	Score           float64  `json:"score"`
}

// Grade maps a value onto [0,100]: 100 up to the good boundary, a linear
// fall to 50 at the poor boundary, then 50*poor/value beyond it.
func Grade(m Metric, value float64) float64 {
	b, ok := Boundaries(m)
	if !ok || math.IsNaN(value) || value <= b.Good {
		return 100
	}
	if value <= b.Poor {
		return 100 - 50*(value-b.Good)/(b.Poor-b.Good)
	}
	return 50 * b.Poor / value
}

// Analyze scores a snapshot and lists what is out of range.
func Analyze(s MetricsSnapshot) Analysis {
	a := Analysis{
		Issues:          []string{},
		Recommendations: []string{},
	}

	var score float64
	for _, w := range scoreWeights {
		v := s.Value(w.metric)
		score += w.weight * Grade(w.metric, v)
		a.addFinding(w.metric, v)
	}

	if n := len(s.ResourceTiming.SlowResources); n > 0 {
		score -= math.Min(maxResourcePenalty, slowResourcePenalty*float64(n))
		a.Issues = append(a.Issues, fmt.Sprintf("%d slow resource(s) detected", n))
		a.Recommendations = append(a.Recommendations,
			"Optimize or lazy-load slow resources: "+slowResourceNames(s.ResourceTiming.SlowResources, 3))
	}

	a.Score = math.Round(math.Max(0, math.Min(100, score)))
	return a
}

func (a *Analysis) addFinding(m Metric, v float64) {
	rating := Rate(m, v)
	if rating == RatingGood {
		return
	}
	b, _ := Boundaries(m)
	label := strings.ToUpper(m.String())
	switch rating {
	case RatingPoor:
		a.Issues = append(a.Issues, fmt.Sprintf("%s is poor: %s (good is at most %s)", label, m.Format(v), m.Format(b.Good)))
	case RatingNeedsImprovement, RatingGood:
		a.Issues = append(a.Issues, fmt.Sprintf("%s needs improvement: %s (good is at most %s)", label, m.Format(v), m.Format(b.Good)))
	}
	a.Recommendations = append(a.Recommendations, recommendation(m))
}

func recommendation(m Metric) string {
	switch m {
	case CLS:
		return "Reserve space for images, ads and embeds; avoid inserting content above existing content"
	case LCP:
		return "Optimize the largest element: compress and preload hero images, reduce render-blocking resources"
	case FID:
		return "Break up long tasks and defer non-critical JavaScript"
	case INP:
		return "Reduce event handler work and yield to the main thread during interactions"
	case FCP:
		return "Inline critical CSS and eliminate render-blocking scripts"
	case TTFB:
		return "Improve server response time: cache responses, use a CDN, reduce backend latency"
	case Score, MetricUnknown:
		return ""
	default:
		return ""
	}
}

func slowResourceNames(res []SlowResource, limit int) string {
	names := make([]string, 0, limit)
	for i, r := range res {
		if i == limit {
			break
		}
		names = append(names, r.Name)
	}
	return strings.Join(names, ", ")
}
