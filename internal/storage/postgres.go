package storage

import (
	"context"
	"fmt"

	"codeberg.org/mutker/vitalsctl/internal/errors"
	"codeberg.org/mutker/vitalsctl/internal/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgCreateTableSQL = `
CREATE TABLE IF NOT EXISTS vitals_kv (
    key        TEXT PRIMARY KEY,
    value      BYTEA NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

	pgGetValueSQL = `SELECT value FROM vitals_kv WHERE key = $1`

	pgUpsertValueSQL = `
INSERT INTO vitals_kv (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

	pgDeleteValueSQL = `DELETE FROM vitals_kv WHERE key = $1`
)

// PostgresStore keeps values in a vitals_kv table, for deployments where
// several daemons share one baseline set.
type PostgresStore struct {
	pool     *pgxpool.Pool
	log      logger.Logger
	maxBytes int
}

func NewPostgresStore(ctx context.Context, cfg Config, log logger.Logger) (*PostgresStore, error) {
	errFactory := errors.New()

	if cfg.DSN == "" {
		return nil, errFactory.New(ErrInvalidDSN)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errFactory.Wrap(ErrInvalidDSN, fmt.Errorf("failed to parse postgres config: %w", err))
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "create_pool",
			Error: err.Error(),
		})
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "ping",
			Error: err.Error(),
		})
	}

	if _, err := pool.Exec(ctx, pgCreateTableSQL); err != nil {
		pool.Close()
		return nil, errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	log.Info().
		Str("host", poolCfg.ConnConfig.Host).
		Str("database", poolCfg.ConnConfig.Database).
		Msg("Postgres store initialized")

	return &PostgresStore{pool: pool, log: log, maxBytes: cfg.MaxValueBytes}, nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx, pgGetValueSQL, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New().WithData(ErrNotFound, struct{ Key string }{Key: key})
	}
	if err != nil {
		return nil, errors.New().Wrap(ErrStorageAccess, err)
	}
	return value, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
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
	if _, err := s.pool.Exec(ctx, pgUpsertValueSQL, key, value); err != nil {
		return errors.New().Wrap(ErrStorageAccess, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, pgDeleteValueSQL, key); err != nil {
		return errors.New().Wrap(ErrStorageAccess, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	s.log.Info().Msg("Postgres store closed")
	return nil
}
