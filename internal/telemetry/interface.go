package telemetry

import (
	"context"
	"time"

	"codeberg.org/mutker/vitalsctl/internal/vitals"
)

// Recorder stores snapshots as they are taken and reads them back.
type Recorder interface {
	Record(ctx context.Context, snapshot vitals.MetricsSnapshot) error
	// Recent returns up to n records, newest first.
	Recent(ctx context.Context, n int) ([]Record, error)
	Close() error
}

// Repository defines the storage behind a Recorder.
type Repository interface {
	Record(rec Record) error
	Recent(ctx context.Context, n int) ([]Record, error)
	Close() error
}

// Record is a stored snapshot with its computed score.
type Record struct {
	Timestamp time.Time              `json:"timestamp"`
	URL       string                 `json:"url"`
	Score     float64                `json:"score"`
	Snapshot  vitals.MetricsSnapshot `json:"snapshot"`
}
