// Package collector turns raw page instrumentation into metrics snapshots.
package collector

import (
	"math"
	"sync"
	"time"

	"codeberg.org/mutker/vitalsctl/internal/logger"
	"codeberg.org/mutker/vitalsctl/internal/vitals"
)

const (
	// SlowResourceThreshold is the duration in ms above which a resource is slow.
	SlowResourceThreshold = 1000.0

	// MaxSlowResources caps the slow resources kept in a snapshot.
	MaxSlowResources = 10

	defaultUserAgent      = "unknown"
	defaultViewportWidth  = 1024
	defaultViewportHeight = 768

	paintFirst        = "first-paint"
	paintFirstContent = "first-contentful-paint"
)

// Collector accumulates observer entries and merges them with actively
// queried instrumentation. It is safe for concurrent use.
type Collector struct {
	src   Sources
	log   logger.Logger
	clock func() time.Time

	// view is held shared for a whole snapshot and exclusively while a
	// page view turns over.
	view sync.RWMutex

	mu      sync.Mutex
	cls     float64
	lcp     float64
	fid     float64
	fidSeen bool
	inp     float64
}

type Option func(*Collector)

// WithLogger sets the logger used for degraded instrumentation.
func WithLogger(l logger.Logger) Option {
	return func(c *Collector) { c.log = l }
}

// WithClock overrides the clock stamping snapshots.
func WithClock(clock func() time.Time) Option {
	return func(c *Collector) { c.clock = clock }
}

// New returns a collector reading from src.
func New(src Sources, opts ...Option) *Collector {
	c := &Collector{
		src:   src,
		log:   logger.Default(),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("collector")
	return c
}

// ObserveLayoutShift adds a layout shift to the running CLS total. Shifts
// caused by recent user input do not count.
func (c *Collector) ObserveLayoutShift(e LayoutShift) {
	if e.HadRecentInput {
		return
	}
	v := nonNegative(e.Value)
	c.mu.Lock()
	c.cls += v
	c.mu.Unlock()
}

// ObserveLargestContentfulPaint records the latest LCP candidate.
func (c *Collector) ObserveLargestContentfulPaint(e LargestContentfulPaint) {
	v := nonNegative(e.StartTime)
	c.mu.Lock()
	c.lcp = v
	c.mu.Unlock()
}

// ObserveFirstInput records the delay of the first input; later entries are
// ignored until Reset.
func (c *Collector) ObserveFirstInput(e FirstInput) {
	v := nonNegative(e.ProcessingStart - e.StartTime)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fidSeen {
		return
	}
	c.fid = v
	c.fidSeen = true
}

// ObserveInteraction keeps the longest interaction as INP.
func (c *Collector) ObserveInteraction(e Interaction) {
	v := nonNegative(e.Duration)
	c.mu.Lock()
	if v > c.inp {
		c.inp = v
	}
	c.mu.Unlock()
}

// Reset clears the accumulators for a new page view.
func (c *Collector) Reset() {
	c.view.Lock()
	defer c.view.Unlock()
	c.reset()
}

// BeginPageView runs apply, which switches the sources to the new page, and
// clears the accumulators. Snapshots see either the old page or the new one.
func (c *Collector) BeginPageView(apply func()) {
	c.view.Lock()
	defer c.view.Unlock()
	if apply != nil {
		apply()
	}
	c.reset()
}

func (c *Collector) reset() {
	c.mu.Lock()
	c.cls, c.lcp, c.fid, c.inp = 0, 0, 0, 0
	c.fidSeen = false
	c.mu.Unlock()
}

// GetDetailedMetrics returns a snapshot of everything currently known. It
// never fails; unavailable instrumentation yields zero values and defaults.
func (c *Collector) GetDetailedMetrics() vitals.MetricsSnapshot {
	c.view.RLock()
	defer c.view.RUnlock()

	snap := vitals.MetricsSnapshot{
		Device: vitals.Device{
			UserAgent: defaultUserAgent,
			Viewport:  vitals.Viewport{Width: defaultViewportWidth, Height: defaultViewportHeight},
		},
		ResourceTiming: vitals.ResourceTiming{SlowResources: []vitals.SlowResource{}},
		Page:           vitals.PageInfo{Timestamp: c.clock()},
	}

	c.collectTiming(&snap)
	c.collectResources(&snap)
	c.collectDevice(&snap)
	c.collectPage(&snap)

	c.mu.Lock()
	snap.CLS = c.cls
	snap.LCP = c.lcp
	snap.FID = c.fid
	snap.INP = c.inp
	c.mu.Unlock()

	return snap
}

// GenerateDiagnosticReport scores the current snapshot.
func (c *Collector) GenerateDiagnosticReport() DiagnosticReport {
	snap := c.GetDetailedMetrics()
	return DiagnosticReport{
		Metrics:  snap,
		Analysis: vitals.Analyze(snap),
	}
}

func (c *Collector) collectTiming(snap *vitals.MetricsSnapshot) {
	if c.src.Performance == nil {
		return
	}
	c.guard("performance", func() {
		if nav, ok := c.src.Performance.Navigation(); ok {
			snap.TTFB = nonNegative(nav.ResponseStart)
			snap.DOMContentLoaded = nonNegative(nav.DOMContentLoadedEventEnd)
			snap.LoadComplete = nonNegative(nav.LoadEventEnd)
		}
		for _, p := range c.src.Performance.Paints() {
			switch p.Name {
			case paintFirst:
				snap.FirstPaint = nonNegative(p.StartTime)
			case paintFirstContent:
				snap.FCP = nonNegative(p.StartTime)
			}
		}
	})
}

func (c *Collector) collectResources(snap *vitals.MetricsSnapshot) {
	if c.src.Performance == nil {
		return
	}
	c.guard("resources", func() {
		snap.ResourceTiming = summarizeResources(c.src.Performance.Resources())
	})
}

func (c *Collector) collectDevice(snap *vitals.MetricsSnapshot) {
	if c.src.Navigator != nil {
		c.guard("navigator", func() {
			if ua := c.src.Navigator.UserAgent(); ua != "" {
				snap.Device.UserAgent = ua
			}
			if mem, ok := c.src.Navigator.DeviceMemory(); ok && mem > 0 {
				snap.Device.Memory = &mem
			}
			if cores, ok := c.src.Navigator.HardwareConcurrency(); ok && cores > 0 {
				snap.Device.Cores = &cores
			}
			if conn, ok := c.src.Navigator.Connection(); ok {
				conn.Downlink = nonNegative(conn.Downlink)
				conn.RTT = nonNegative(conn.RTT)
				snap.Connection = &conn
			}
		})
	}
	if c.src.Window != nil {
		c.guard("viewport", func() {
			if vp, ok := c.src.Window.Viewport(); ok && vp.Width > 0 && vp.Height > 0 {
				snap.Device.Viewport = vp
			}
		})
	}
}

func (c *Collector) collectPage(snap *vitals.MetricsSnapshot) {
	if c.src.Window == nil {
		return
	}
	c.guard("window", func() {
		snap.Page.URL = c.src.Window.Location()
		snap.Page.Referrer = c.src.Window.Referrer()
		snap.Page.Title = c.src.Window.Title()
	})
}

// guard runs fn and turns a panic from a misbehaving source into a log line.
func (c *Collector) guard(source string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Warn().
				Str("source", source).
				Interface("panic", r).
				Msg("Instrumentation unavailable, using defaults")
		}
	}()
	fn()
}

func summarizeResources(entries []ResourceEntry) vitals.ResourceTiming {
	rt := vitals.ResourceTiming{
		TotalResources: len(entries),
		SlowResources:  []vitals.SlowResource{},
	}
	for _, e := range entries {
		d := nonNegative(e.Duration)
		size := max(e.TransferSize, 0)
		rt.TotalDuration += d
		rt.TotalSize += size
		if d > SlowResourceThreshold && len(rt.SlowResources) < MaxSlowResources {
			rt.SlowResources = append(rt.SlowResources, vitals.SlowResource{
				Name:     e.Name,
				Duration: d,
				Size:     size,
				Type:     e.InitiatorType,
			})
		}
	}
	return rt
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

var _ Observer = (*Collector)(nil)
