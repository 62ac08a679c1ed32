package telemetry

import (
	"time"

	"codeberg.org/mutker/vitalsctl/internal/errors"
)

const (
	defaultDirPerm      = 0o755
	defaultDBPath       = "/var/lib/vitalsctl/telemetry.db"
	defaultBatchSize    = 10
	defaultBatchTimeout = 30 * time.Second
)

type Config struct {
	Enabled bool
	DBPath  string
	// BatchSize is the number of buffered records that forces a flush. One
	// or less writes every record immediately.
	BatchSize    int
	BatchTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Enabled:      false, // Disabled by default
		DBPath:       defaultDBPath,
		BatchSize:    defaultBatchSize,
		BatchTimeout: defaultBatchTimeout,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate the rest if telemetry is enabled
	if !c.Enabled {
		return nil
	}
	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BatchSize < 0 {
		return errFactory.WithData(ErrInvalidBatchSize, struct {
			BatchSize int
		}{
			BatchSize: c.BatchSize,
		})
	}
	if c.BatchTimeout < 0 {
		return errFactory.WithData(ErrInvalidBatchTimeout, struct {
			BatchTimeout string
		}{
			BatchTimeout: c.BatchTimeout.String(),
		})
	}
	return nil
}

func (c Config) batching() bool {
	return c.BatchSize > 1 && c.BatchTimeout > 0
}
