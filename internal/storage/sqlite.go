package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/vitalsctl/internal/errors"
	"codeberg.org/mutker/vitalsctl/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps values in a single kv table of a sqlite database.
type SQLiteStore struct {
	db       *sql.DB
	log      logger.Logger
	maxBytes int
	mu       sync.Mutex
}

func NewSQLiteStore(cfg Config, log logger.Logger) (*SQLiteStore, error) {
	errFactory := errors.New()

	if cfg.Path == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  cfg.Path,
			Error: err.Error(),
		})
	}

	dsn := cfg.Path + "?_journal=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	if err := ValidateAndUpdateSchema(db, cfg, log); err != nil {
		db.Close()
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "schema_version",
			Error: err.Error(),
		})
	}

	log.Info().
		Str("path", cfg.Path).
		Int("schema_version", SchemaVersion).
		Msg("SQLite store initialized")

	return &SQLiteStore{
		db:       db,
		log:      log,
		maxBytes: cfg.MaxValueBytes,
	}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, getValueSQL, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.New().WithData(ErrNotFound, struct{ Key string }{Key: key})
	}
	if err != nil {
		return nil, errors.New().Wrap(ErrStorageAccess, err)
	}
	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	if s.maxBytes > 0 && len(value) > s.maxBytes {
		return errors.New().WithData(ErrQuotaExceeded, struct {
			Key   string
			Size  int
			Limit int
		}{
			Key:   key,
			Size:  len(value),
			Limit: s.maxBytes,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, upsertValueSQL, key, value, time.Now().Unix()); err != nil {
		return errors.New().Wrap(ErrStorageAccess, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, deleteValueSQL, key); err != nil {
		return errors.New().Wrap(ErrStorageAccess, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		s.log.Debug().Err(err).Msg("Failed to checkpoint WAL")
	}
	if err := s.db.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}
	s.log.Info().Msg("SQLite store closed")
	return nil
}
