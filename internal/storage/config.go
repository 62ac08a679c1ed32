package storage

import (
	"context"
	"strings"

	"codeberg.org/mutker/vitalsctl/internal/errors"
	"codeberg.org/mutker/vitalsctl/internal/logger"
)

const (
	// File system permissions and paths
	defaultDirPerm = 0o755
	defaultDBPath  = "/var/lib/vitalsctl/store.db"

	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type Config struct {
	Backend string
	// Path is the sqlite database file.
	Path string
	// DSN is the postgres connection string.
	DSN string
	// MaxValueBytes limits a single value, 0 means unlimited.
	MaxValueBytes   int
	BackupOnMigrate bool
}

func DefaultConfig() Config {
	return Config{
		Backend:         BackendSQLite,
		Path:            defaultDBPath,
		BackupOnMigrate: true,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	switch strings.ToLower(c.Backend) {
	case BackendMemory:
	case BackendSQLite:
		if c.Path == "" {
			return errFactory.New(ErrInvalidDBPath)
		}
	case BackendPostgres:
		if c.DSN == "" {
			return errFactory.New(ErrInvalidDSN)
		}
	default:
		return errFactory.WithData(ErrInvalidBackend, struct {
			Backend string
		}{
			Backend: c.Backend,
		})
	}
	return nil
}

// Open builds the Store selected by cfg.Backend.
func Open(ctx context.Context, cfg Config, log logger.Logger) (Store, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	switch strings.ToLower(cfg.Backend) {
	case BackendMemory:
		log.Debug().Msg("Using in-memory store")
		return NewMemoryStore(cfg.MaxValueBytes), nil
	case BackendPostgres:
		return NewPostgresStore(ctx, cfg, log)
	default:
		return NewSQLiteStore(cfg, log)
	}
}
