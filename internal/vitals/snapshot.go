package vitals

import "time"

// MetricsSnapshot is one measurement of a page. It is never mutated after
// the collector hands it out. Missing instrumentation reads as 0.
type MetricsSnapshot struct {
	CLS              float64        `json:"cls"`
	FID              float64        `json:"fid"`
	INP              float64        `json:"inp"`
	LCP              float64        `json:"lcp"`
	FCP              float64        `json:"fcp"`
	TTFB             float64        `json:"ttfb"`
	DOMContentLoaded float64        `json:"domContentLoaded"`
	LoadComplete     float64        `json:"loadComplete"`
	FirstPaint       float64        `json:"firstPaint"`
	ResourceTiming   ResourceTiming `json:"resourceTiming"`
	Device           Device         `json:"device"`
	Connection       *Connection    `json:"connection,omitempty"`
	Page             PageInfo       `json:"page"`
}

type ResourceTiming struct {
	TotalResources int            `json:"totalResources"`
	SlowResources  []SlowResource `json:"slowResources"`
	TotalSize      int64          `json:"totalSize"`
	TotalDuration  float64        `json:"totalDuration"`
}

type SlowResource struct {
	Name     string  `json:"name"`
	Duration float64 `json:"duration"`
	Size     int64   `json:"size"`
	Type     string  `json:"type"`
}

type Device struct {
	Memory    *float64 `json:"memory,omitempty"`
	Cores     *int     `json:"cores,omitempty"`
	UserAgent string   `json:"userAgent"`
	Viewport  Viewport `json:"viewport"`
}

type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Connection struct {
	EffectiveType string  `json:"effectiveType"`
	Downlink      float64 `json:"downlink"`
	RTT           float64 `json:"rtt"`
	SaveData      bool    `json:"saveData"`
}

type PageInfo struct {
	URL       string    `json:"url"`
	Referrer  string    `json:"referrer"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
}

// Value reads metric m from the snapshot. Score is not part of a snapshot
// and reads as 0; use Analyze for it.
func (s MetricsSnapshot) Value(m Metric) float64 {
	switch m {
	case CLS:
		return s.CLS
	case FID:
		return s.FID
	case INP:
		return s.INP
	case LCP:
		return s.LCP
	case FCP:
		return s.FCP
	case TTFB:
		return s.TTFB
	case Score, MetricUnknown:
		return 0
	default:
		return 0
	}
}

// Values returns the core metrics plus the diagnostic score, keyed by
// metric, in the shape the alert system checks.
func (s MetricsSnapshot) Values() map[Metric]float64 {
	out := make(map[Metric]float64, len(AlertMetrics))
	for _, m := range CoreMetrics {
		out[m] = s.Value(m)
	}
	out[Score] = Analyze(s).Score
	return out
}
