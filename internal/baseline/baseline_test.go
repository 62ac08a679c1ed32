package baseline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/vitalsctl/internal/errors"
	"codeberg.org/mutker/vitalsctl/internal/logger"
	"codeberg.org/mutker/vitalsctl/internal/storage"
	"codeberg.org/mutker/vitalsctl/internal/vitals"
)

type failingStore struct{}

var errUnavailable = errors.New().New(storage.ErrStorageAccess)

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errUnavailable
}

func (failingStore) Set(context.Context, string, []byte) error {
	return errUnavailable
}

func (failingStore) Delete(context.Context, string) error {
	return errUnavailable
}

func (failingStore) Close() error {
	return nil
}

func steppingClock(start time.Time) func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func newTestManager(t *testing.T, store storage.Store) *Manager {
	t.Helper()
	return NewManager(store,
		WithLogger(logger.Nop()),
		WithClock(steppingClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))),
		WithBuildInfo(BuildInfo{Version: "1.2.3", Commit: "abc123", Branch: "main"}),
	)
}

func snapshot(url string) vitals.MetricsSnapshot {
	mem := 8.0
	cores := 4
	return vitals.MetricsSnapshot{
		CLS:  0.05,
		LCP:  1500,
		FID:  50,
		FCP:  1200,
		TTFB: 400,
		Device: vitals.Device{
			Memory:    &mem,
			Cores:     &cores,
			UserAgent: "test-agent",
			Viewport:  vitals.Viewport{Width: 1280, Height: 720},
		},
		Connection: &vitals.Connection{EffectiveType: "4g", Downlink: 10, RTT: 50},
		Page:       vitals.PageInfo{URL: url},
	}
}

func TestSaveBaselineDerivesFields(t *testing.T) {
	m := newTestManager(t, storage.NewMemoryStore(0))

	b, ok := m.SaveBaseline(context.Background(), snapshot("https://example.com/en/page1"))
	require.True(t, ok)

	assert.Equal(t, "baseline-1704067201000", b.ID)
	assert.Equal(t, "https://example.com/en/page1", b.URL)
	assert.Equal(t, "test-agent", b.UserAgent)
	assert.Equal(t, 1500.0, b.Metrics.LCP)
	assert.Equal(t, 1280, b.Environment.Viewport.Width)
	require.NotNil(t, b.Environment.Cores)
	assert.Equal(t, 4, *b.Environment.Cores)
	require.NotNil(t, b.Connection)
	assert.Equal(t, "4g", b.Connection.EffectiveType)
	assert.Equal(t, "1.2.3", b.BuildInfo.Version)
	assert.Equal(t, b.Timestamp, b.BuildInfo.Timestamp)
	assert.Greater(t, b.Score, 90.0)

	stored := m.GetBaselines(context.Background())
	require.Len(t, stored, 1)
	assert.Equal(t, b.ID, stored[0].ID)
}

func TestSaveBaselineKeepsMostRecent(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, storage.NewMemoryStore(0))

	var saved []Baseline
	for i := 0; i < 150; i++ {
		b, ok := m.SaveBaseline(ctx, snapshot("https://example.com/en/page1"))
		require.True(t, ok)
		saved = append(saved, b)
		assert.LessOrEqual(t, len(m.GetBaselines(ctx)), MaxBaselines)
	}

	stored := m.GetBaselines(ctx)
	require.Len(t, stored, MaxBaselines)
	assert.Equal(t, saved[50].ID, stored[0].ID)
	assert.Equal(t, saved[149].ID, stored[len(stored)-1].ID)
}

func TestGetBaselinesDegrades(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		raw  string
	}{
		{name: "corrupt", raw: "{not json"},
		{name: "object", raw: `{"id":"x"}`},
		{name: "null", raw: "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStore(0)
			require.NoError(t, store.Set(ctx, StorageKey, []byte(tt.raw)))

			m := newTestManager(t, store)
			got := m.GetBaselines(ctx)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}

	t.Run("missing", func(t *testing.T) {
		m := newTestManager(t, storage.NewMemoryStore(0))
		assert.Empty(t, m.GetBaselines(ctx))
	})

	t.Run("unavailable", func(t *testing.T) {
		m := newTestManager(t, failingStore{})
		assert.Empty(t, m.GetBaselines(ctx))

		_, ok := m.SaveBaseline(ctx, snapshot("https://example.com/en/page1"))
		assert.False(t, ok)
		assert.False(t, m.Clear(ctx))
	})
}

func TestSaveBaselineQuotaExceeded(t *testing.T) {
	m := newTestManager(t, storage.NewMemoryStore(16))
	_, ok := m.SaveBaseline(context.Background(), snapshot("https://example.com/en/page1"))
	assert.False(t, ok)
	assert.Empty(t, m.GetBaselines(context.Background()))
}

func TestGetRecentBaseline(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, storage.NewMemoryStore(0))

	_, found := m.GetRecentBaseline(ctx, "/page1", "en")
	assert.False(t, found)

	m.SaveBaseline(ctx, snapshot("https://example.com/de/page1"))
	m.SaveBaseline(ctx, snapshot("https://example.com/en/page2"))

	_, found = m.GetRecentBaseline(ctx, "/page1", "en")
	assert.False(t, found)

	first, _ := m.SaveBaseline(ctx, snapshot("https://example.com/en/page1"))
	second, _ := m.SaveBaseline(ctx, snapshot("https://example.com/en/page1?ref=a"))
	m.SaveBaseline(ctx, snapshot("https://example.com/de/page1"))

	got, found := m.GetRecentBaseline(ctx, "/page1", "en")
	require.True(t, found)
	assert.Equal(t, second.ID, got.ID)
	assert.True(t, got.Timestamp.After(first.Timestamp))
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, storage.NewMemoryStore(0))

	m.SaveBaseline(ctx, snapshot("https://example.com/en/page1"))
	require.Len(t, m.GetBaselines(ctx), 1)

	assert.True(t, m.Clear(ctx))
	assert.Empty(t, m.GetBaselines(ctx))
}

func TestMetricsValue(t *testing.T) {
	m := Metrics{CLS: 0.1, LCP: 2500}

	v, ok := m.Value(vitals.CLS)
	assert.True(t, ok)
	assert.Equal(t, 0.1, v)

	_, ok = m.Value(vitals.FID)
	assert.False(t, ok, "zero timing counts as missing")

	v, ok = Metrics{LCP: 2500}.Value(vitals.CLS)
	assert.True(t, ok, "zero CLS is a measured stable page")
	assert.Zero(t, v)

	_, ok = m.Value(vitals.Score)
	assert.False(t, ok)
}
