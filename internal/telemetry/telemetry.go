// Package telemetry keeps a history of every snapshot the monitor takes.
package telemetry

import (
	"context"

	"codeberg.org/mutker/vitalsctl/internal/errors"
	"codeberg.org/mutker/vitalsctl/internal/logger"
	"codeberg.org/mutker/vitalsctl/internal/vitals"
)

type service struct {
	repo Repository
	cfg  Config
}

// No-op implementation
type noopRecorder struct{}

func NewService(cfg Config, log logger.Logger) (Recorder, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	log = log.With("telemetry")

	// If telemetry is disabled, return a no-op recorder
	if !cfg.Enabled {
		log.Debug().Msg("Telemetry disabled, using no-op recorder")
		return noopRecorder{}, nil
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to create telemetry repository")
		return nil, err
	}

	return &service{
		repo: repo,
		cfg:  cfg,
	}, nil
}

func (s *service) Record(ctx context.Context, snapshot vitals.MetricsSnapshot) error {
	errFactory := errors.New()

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
	}

	rec := Record{
		Timestamp: snapshot.Page.Timestamp,
		URL:       snapshot.Page.URL,
		Score:     vitals.Analyze(snapshot).Score,
		Snapshot:  snapshot,
	}
	if err := s.repo.Record(rec); err != nil {
		return errFactory.Wrap(ErrRecordFailed, err)
	}
	return nil
}

func (s *service) Recent(ctx context.Context, n int) ([]Record, error) {
	return s.repo.Recent(ctx, n)
}

func (s *service) Close() error {
	if err := s.repo.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}
	return nil
}

func (noopRecorder) Record(context.Context, vitals.MetricsSnapshot) error {
	return nil
}

func (noopRecorder) Recent(context.Context, int) ([]Record, error) {
	return []Record{}, nil
}

func (noopRecorder) Close() error {
	return nil
}
