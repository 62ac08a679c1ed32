package vitals_test

import (
	"encoding/json"
	"testing"

	"codeberg.org/mutker/vitalsctl/internal/vitals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricRoundTripsThroughJSONKeys(t *testing.T) {
	in := map[vitals.Metric]float64{vitals.CLS: 0.1, vitals.TTFB: 800}

	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"cls":0.1,"ttfb":800}`, string(b))

	var out map[vitals.Metric]float64
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)
}

func TestParseMetricRejectsUnknown(t *testing.T) {
	_, ok := vitals.ParseMetric("memory")
	assert.False(t, ok)

	m, ok := vitals.ParseMetric(" LCP ")
	assert.True(t, ok)
	assert.Equal(t, vitals.LCP, m)
}

func TestSeverityJSON(t *testing.T) {
	b, err := json.Marshal(vitals.SeverityCritical)
	require.NoError(t, err)
	assert.Equal(t, `"critical"`, string(b))

	var s vitals.Severity
	require.NoError(t, json.Unmarshal([]byte(`"warning"`), &s))
	assert.Equal(t, vitals.SeverityWarning, s)
	assert.Error(t, json.Unmarshal([]byte(`"fatal"`), &s))
}

func TestRate(t *testing.T) {
	assert.Equal(t, vitals.RatingGood, vitals.Rate(vitals.LCP, 2500))
	assert.Equal(t, vitals.RatingNeedsImprovement, vitals.Rate(vitals.LCP, 2501))
	assert.Equal(t, vitals.RatingNeedsImprovement, vitals.Rate(vitals.LCP, 4000))
	assert.Equal(t, vitals.RatingPoor, vitals.Rate(vitals.LCP, 4001))
	assert.Equal(t, vitals.RatingGood, vitals.Rate(vitals.Score, 0))
}

func TestGradeIsMonotonic(t *testing.T) {
	prev := 101.0
	for _, v := range []float64{0, 1000, 2500, 3000, 4000, 6000, 12000} {
		g := vitals.Grade(vitals.LCP, v)
		assert.LessOrEqual(t, g, prev)
		prev = g
	}
	assert.Equal(t, 100.0, vitals.Grade(vitals.LCP, 2500))
	assert.Equal(t, 50.0, vitals.Grade(vitals.LCP, 4000))
	assert.Less(t, vitals.Grade(vitals.LCP, 8000), vitals.Grade(vitals.LCP, 5000))
}

func goodSnapshot() vitals.MetricsSnapshot {
	return vitals.MetricsSnapshot{CLS: 0.05, LCP: 1500, FID: 50, FCP: 1200, TTFB: 400}
}

func TestAnalyzeGoodMetrics(t *testing.T) {
	a := vitals.Analyze(goodSnapshot())

	assert.Greater(t, a.Score, 90.0)
	assert.Empty(t, a.Issues)
	assert.Empty(t, a.Recommendations)
}

func TestAnalyzePoorMetrics(t *testing.T) {
	a := vitals.Analyze(vitals.MetricsSnapshot{CLS: 1, LCP: 10000, FID: 1000, FCP: 8000, TTFB: 5000})

	assert.Less(t, a.Score, 50.0)
	assert.Len(t, a.Issues, 5)
	assert.Len(t, a.Recommendations, 5)
	assert.Contains(t, a.Issues[0], "CLS is poor")
}

func TestAnalyzeWorseningLowersScore(t *testing.T) {
	base := goodSnapshot()
	one := base
	one.LCP = 3000
	two := one
	two.TTFB = 1200
	severe := two
	severe.LCP = 9000

	s0 := vitals.Analyze(base)
	s1 := vitals.Analyze(one)
	s2 := vitals.Analyze(two)
	s3 := vitals.Analyze(severe)

	assert.Greater(t, s0.Score, s1.Score)
	assert.Greater(t, s1.Score, s2.Score)
	assert.Greater(t, s2.Score, s3.Score)
	assert.Len(t, s1.Issues, 1)
	assert.Len(t, s2.Issues, 2)
	assert.Contains(t, s1.Issues[0], "needs improvement")
}

func TestAnalyzeReportsINPAndSlowResources(t *testing.T) {
	s := goodSnapshot()
	s.INP = 600
	s.ResourceTiming.SlowResources = []vitals.SlowResource{{Name: "https://cdn.example.com/hero.jpg", Duration: 1800}}

	a := vitals.Analyze(s)

	assert.Less(t, a.Score, vitals.Analyze(goodSnapshot()).Score)
	require.Len(t, a.Issues, 2)
	assert.Contains(t, a.Issues[0], "INP is poor")
	assert.Contains(t, a.Issues[1], "1 slow resource")
	assert.Contains(t, a.Recommendations[1], "hero.jpg")
}

func TestAnalyzePenalizesINPAndSlowResources(t *testing.T) {
	good := vitals.Analyze(goodSnapshot()).Score

	slowInput := goodSnapshot()
	slowInput.INP = 5000
	assert.Less(t, vitals.Analyze(slowInput).Score, good)

	one := goodSnapshot()
	one.ResourceTiming.SlowResources = make([]vitals.SlowResource, 1)
	three := goodSnapshot()
	three.ResourceTiming.SlowResources = make([]vitals.SlowResource, 3)
	many := goodSnapshot()
	many.ResourceTiming.SlowResources = make([]vitals.SlowResource, 40)

	assert.Less(t, vitals.Analyze(one).Score, good)
	assert.Less(t, vitals.Analyze(three).Score, vitals.Analyze(one).Score)
	assert.Equal(t, good-10, vitals.Analyze(many).Score, "resource penalty is bounded")
}

func TestSnapshotValues(t *testing.T) {
	values := goodSnapshot().Values()

	assert.Equal(t, 0.05, values[vitals.CLS])
	assert.Equal(t, 400.0, values[vitals.TTFB])
	assert.Equal(t, 100.0, values[vitals.Score])
	assert.Len(t, values, 6)
}
