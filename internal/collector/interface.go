package collector

import "codeberg.org/mutker/vitalsctl/internal/vitals"

// Performance is the Performance API of the monitored page.
type Performance interface {
	// Navigation returns the navigation timing entry, if one was recorded.
	Navigation() (NavigationTiming, bool)
	Paints() []PaintEntry
	Resources() []ResourceEntry
}

// Navigator exposes the device and connection information of the browser.
type Navigator interface {
	UserAgent() string
	DeviceMemory() (float64, bool)
	HardwareConcurrency() (int, bool)
	Connection() (vitals.Connection, bool)
}

// Window exposes the page location and viewport.
type Window interface {
	Location() string
	Referrer() string
	Title() string
	Viewport() (vitals.Viewport, bool)
}

// Observer receives entries from the page's performance observers.
type Observer interface {
	ObserveLayoutShift(LayoutShift)
	ObserveLargestContentfulPaint(LargestContentfulPaint)
	ObserveFirstInput(FirstInput)
	ObserveInteraction(Interaction)
	Reset()
	// BeginPageView runs apply and clears the accumulators as one step, so
	// no snapshot pairs the new page with the previous page's values.
	BeginPageView(apply func())
}

// Sources bundles the instrumentation a collector queries. Any of them may
// be nil when the API is not available.
type Sources struct {
	Performance Performance
	Navigator   Navigator
	Window      Window
}

// NavigationTiming carries the fields of a PerformanceNavigationTiming entry,
// in milliseconds relative to navigation start.
type NavigationTiming struct {
	RequestStart             float64 `json:"requestStart"`
	ResponseStart            float64 `json:"responseStart"`
	DOMContentLoadedEventEnd float64 `json:"domContentLoadedEventEnd"`
	LoadEventEnd             float64 `json:"loadEventEnd"`
}

// PaintEntry is a "paint" entry (first-paint, first-contentful-paint).
type PaintEntry struct {
	Name      string  `json:"name"`
	StartTime float64 `json:"startTime"`
}

// ResourceEntry is a "resource" entry.
type ResourceEntry struct {
	Name          string  `json:"name"`
	InitiatorType string  `json:"initiatorType"`
	Duration      float64 `json:"duration"`
	TransferSize  int64   `json:"transferSize"`
}

type LayoutShift struct {
	Value          float64 `json:"value"`
	HadRecentInput bool    `json:"hadRecentInput"`
}

type LargestContentfulPaint struct {
	StartTime float64 `json:"startTime"`
	Size      int64   `json:"size"`
}

type FirstInput struct {
	StartTime       float64 `json:"startTime"`
	ProcessingStart float64 `json:"processingStart"`
}

// Interaction is an event-timing entry with an interaction id.
type Interaction struct {
	Duration float64 `json:"duration"`
}

// DiagnosticReport pairs a snapshot with its analysis.
type DiagnosticReport struct {
	Metrics  vitals.MetricsSnapshot `json:"metrics"`
	Analysis vitals.Analysis        `json:"analysis"`
}
