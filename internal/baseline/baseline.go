// Package baseline persists metrics snapshots as named, timestamped
// baselines and finds the one to compare against.
package baseline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"codeberg.org/mutker/vitalsctl/internal/errors"
	"codeberg.org/mutker/vitalsctl/internal/logger"
	"codeberg.org/mutker/vitalsctl/internal/storage"
	"codeberg.org/mutker/vitalsctl/internal/vitals"
)

const (
	// StorageKey is where the baseline list lives in the store.
	StorageKey = "performance-baselines"
	// MaxBaselines is the retention cap.
	MaxBaselines = 100
)

// Baseline is a stored snapshot used as the comparison point.
type Baseline struct {
	ID          string             `json:"id"`
	Timestamp   time.Time          `json:"timestamp"`
	URL         string             `json:"url"`
	UserAgent   string             `json:"userAgent"`
	Metrics     Metrics            `json:"metrics"`
	Score       float64            `json:"score"`
	Environment Environment        `json:"environment"`
	Connection  *vitals.Connection `json:"connection,omitempty"`
	BuildInfo   BuildInfo          `json:"buildInfo"`
}

type Metrics struct {
	CLS              float64 `json:"cls"`
	LCP              float64 `json:"lcp"`
	FID              float64 `json:"fid"`
	FCP              float64 `json:"fcp"`
	TTFB             float64 `json:"ttfb"`
	DOMContentLoaded float64 `json:"domContentLoaded"`
	LoadComplete     float64 `json:"loadComplete"`
	FirstPaint       float64 `json:"firstPaint"`
}

type Environment struct {
	Viewport vitals.Viewport `json:"viewport"`
	Memory   *float64        `json:"memory,omitempty"`
	Cores    *int            `json:"cores,omitempty"`
}

type BuildInfo struct {
	Version   string    `json:"version"`
	Commit    string    `json:"commit"`
	Branch    string    `json:"branch"`
	Timestamp time.Time `json:"timestamp"`
}

// Value reads a core metric; ok is false when the baseline has no value
// for it. A zero timing means the instrumentation was absent. A zero CLS is
// a measured, perfectly stable page.
func (m Metrics) Value(metric vitals.Metric) (float64, bool) {
	var v float64
	switch metric {
	case vitals.CLS:
		return m.CLS, m.CLS >= 0
	case vitals.LCP:
		v = m.LCP
	case vitals.FID:
		v = m.FID
	case vitals.FCP:
		v = m.FCP
	case vitals.TTFB:
		v = m.TTFB
	case vitals.INP, vitals.Score, vitals.MetricUnknown:
		return 0, false
	default:
		return 0, false
	}
	return v, v > 0
}

// Manager stores baselines in a storage.Store. Storage failures are logged
// and degrade to empty results.
type Manager struct {
	store storage.Store
	log   logger.Logger
	build BuildInfo
	clock func() time.Time

	// serializes read-modify-write of the stored list
	mu sync.Mutex
}

type Option func(*Manager)

func WithLogger(l logger.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithBuildInfo sets the build metadata attached to new baselines.
func WithBuildInfo(b BuildInfo) Option {
	return func(m *Manager) { m.build = b }
}

func WithClock(clock func() time.Time) Option {
	return func(m *Manager) { m.clock = clock }
}

func NewManager(store storage.Store, opts ...Option) *Manager {
	m := &Manager{
		store: store,
		log:   logger.Default(),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With("baseline")
	return m
}

// FromSnapshot derives a baseline from a snapshot without storing it.
func (m *Manager) FromSnapshot(snap vitals.MetricsSnapshot) Baseline {
	ts := snap.Page.Timestamp
	if ts.IsZero() {
		ts = m.clock()
	}
	build := m.build
	if build.Timestamp.IsZero() {
		build.Timestamp = ts
	}

	var conn *vitals.Connection
	if snap.Connection != nil {
		c := *snap.Connection
		conn = &c
	}

	return Baseline{
		ID:        fmt.Sprintf("baseline-%d", ts.UnixMilli()),
		Timestamp: ts,
		URL:       snap.Page.URL,
		UserAgent: snap.Device.UserAgent,
		Metrics: Metrics{
			CLS:              snap.CLS,
			LCP:              snap.LCP,
			FID:              snap.FID,
			FCP:              snap.FCP,
			TTFB:             snap.TTFB,
			DOMContentLoaded: snap.DOMContentLoaded,
			LoadComplete:     snap.LoadComplete,
			FirstPaint:       snap.FirstPaint,
		},
		Score: vitals.Analyze(snap).Score,
		Environment: Environment{
			Viewport: snap.Device.Viewport,
			Memory:   snap.Device.Memory,
			Cores:    snap.Device.Cores,
		},
		Connection: conn,
		BuildInfo:  build,
	}
}

// SaveBaseline derives a baseline from snap and appends it to the stored
// list, keeping the MaxBaselines most recent. The bool reports whether the
// write reached the store.
func (m *Manager) SaveBaseline(ctx context.Context, snap vitals.MetricsSnapshot) (Baseline, bool) {
	b := m.FromSnapshot(snap)

	m.mu.Lock()
	defer m.mu.Unlock()

	list := append(m.load(ctx), b)
	list = trim(list, MaxBaselines)

	if err := m.persist(ctx, list); err != nil {
		m.log.Warn().Err(err).Str("id", b.ID).Msg("Failed to save baseline")
		return b, false
	}

	m.log.Debug().
		Str("id", b.ID).
		Str("url", b.URL).
		Int("stored", len(list)).
		Msg("Baseline saved")
	return b, true
}

// GetBaselines returns the stored baselines, oldest first. Missing or
// unreadable data yields an empty slice.
func (m *Manager) GetBaselines(ctx context.Context) []Baseline {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(ctx)
}

// GetRecentBaseline returns the newest baseline whose URL contains both
// pathSuffix and the "/<locale>" segment.
func (m *Manager) GetRecentBaseline(ctx context.Context, pathSuffix, locale string) (Baseline, bool) {
	var (
		best  Baseline
		found bool
	)
	segment := "/" + strings.Trim(locale, "/")
	for _, b := range m.GetBaselines(ctx) {
		if !strings.Contains(b.URL, pathSuffix) || !strings.Contains(b.URL, segment) {
			continue
		}
		if !found || b.Timestamp.After(best.Timestamp) {
			best = b
			found = true
		}
	}
	return best, found
}

// Clear removes all stored baselines.
func (m *Manager) Clear(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Delete(ctx, StorageKey); err != nil {
		m.log.Warn().Err(err).Msg("Failed to clear baselines")
		return false
	}
	return true
}

func (m *Manager) load(ctx context.Context) []Baseline {
	raw, err := m.store.Get(ctx, StorageKey)
	if err != nil {
		if !storage.IsNotFound(err) {
			m.log.Warn().Err(err).Msg("Failed to read baselines")
		}
		return []Baseline{}
	}

	var list []Baseline
	if err := json.Unmarshal(raw, &list); err != nil {
		m.log.Warn().
			Err(errors.New().Wrap(errors.ErrDecode, err)).
			Msg("Stored baselines are corrupt, ignoring")
		return []Baseline{}
	}
	if list == nil {
		return []Baseline{}
	}
	return list
}

func (m *Manager) persist(ctx context.Context, list []Baseline) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return errors.New().Wrap(errors.ErrEncode, err)
	}
	if err := m.store.Set(ctx, StorageKey, raw); err != nil {
		return errors.New().Wrap(errors.ErrPersistence, err)
	}
	return nil
}

// trim keeps the n most recent baselines by timestamp, oldest first.
func trim(list []Baseline, n int) []Baseline {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Timestamp.Before(list[j].Timestamp)
	})
	if len(list) > n {
		list = list[len(list)-n:]
	}
	return list
}
