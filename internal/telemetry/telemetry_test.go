package telemetry

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/vitalsctl/internal/errors"
	"codeberg.org/mutker/vitalsctl/internal/logger"
	"codeberg.org/mutker/vitalsctl/internal/vitals"
)

func snap(url string, ts time.Time, lcp float64) vitals.MetricsSnapshot {
	return vitals.MetricsSnapshot{
		CLS:  0.05,
		LCP:  lcp,
		FID:  50,
		FCP:  1200,
		TTFB: 400,
		Page: vitals.PageInfo{URL: url, Timestamp: ts},
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr errors.ErrorCode
	}{
		{name: "default", cfg: DefaultConfig()},
		{name: "disabled ignores path", cfg: Config{}},
		{
			name:    "missing path",
			cfg:     Config{Enabled: true},
			wantErr: ErrInvalidDBPath,
		},
		{
			name:    "negative batch",
			cfg:     Config{Enabled: true, DBPath: "x.db", BatchSize: -1},
			wantErr: ErrInvalidBatchSize,
		},
		{
			name:    "negative timeout",
			cfg:     Config{Enabled: true, DBPath: "x.db", BatchTimeout: -time.Second},
			wantErr: ErrInvalidBatchTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.HasCode(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestDisabledServiceIsNoop(t *testing.T) {
	rec, err := NewService(Config{}, logger.Nop())
	require.NoError(t, err)

	require.NoError(t, rec.Record(context.Background(), snap("https://example.com/", time.Now(), 1500)))
	got, err := rec.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, rec.Close())
}

func TestServiceRecordsAndReadsBack(t *testing.T) {
	ctx := context.Background()
	cfg := Config{
		Enabled:      true,
		DBPath:       filepath.Join(t.TempDir(), "telemetry.db"),
		BatchSize:    5,
		BatchTimeout: time.Hour,
	}

	rec, err := NewService(cfg, logger.Nop())
	require.NoError(t, err)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		ts := start.Add(time.Duration(i) * time.Minute)
		require.NoError(t, rec.Record(ctx, snap("https://example.com/en/page1", ts, 1000+float64(i))))
	}

	got, err := rec.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 1006.0, got[0].Snapshot.LCP)
	assert.Equal(t, 1004.0, got[2].Snapshot.LCP)
	assert.True(t, got[0].Timestamp.Equal(start.Add(6*time.Minute)))
	assert.Equal(t, "https://example.com/en/page1", got[0].URL)
	assert.Equal(t, 100.0, got[0].Score)

	require.NoError(t, rec.Close())
	require.NoError(t, rec.Close())

	reopened, err := NewService(cfg, logger.Nop())
	require.NoError(t, err)
	defer reopened.Close()

	all, err := reopened.Recent(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, all, 7)
}

func TestUnbatchedRepositoryClose(t *testing.T) {
	cfg := Config{
		Enabled: true,
		DBPath:  filepath.Join(t.TempDir(), "nested", "telemetry.db"),
	}

	rec, err := NewService(cfg, logger.Nop())
	require.NoError(t, err)

	require.NoError(t, rec.Record(context.Background(), snap("https://example.com/", time.Now(), 1500)))

	got, err := rec.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.NoError(t, rec.Close())
}

func TestRecordRespectsCancelledContext(t *testing.T) {
	cfg := Config{
		Enabled: true,
		DBPath:  filepath.Join(t.TempDir(), "telemetry.db"),
	}
	rec, err := NewService(cfg, logger.Nop())
	require.NoError(t, err)
	defer rec.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = rec.Record(ctx, snap("https://example.com/", time.Now(), 1500))
	assert.True(t, errors.HasCode(err, ErrOperationTimeout))
}
