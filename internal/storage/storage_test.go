package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/vitalsctl/internal/errors"
	"codeberg.org/mutker/vitalsctl/internal/logger"
	"codeberg.org/mutker/vitalsctl/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s storage.Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "performance-baselines")
	require.Error(t, err)
	assert.True(t, storage.IsNotFound(err))

	require.NoError(t, s.Set(ctx, "performance-baselines", []byte(`[1]`)))
	require.NoError(t, s.Set(ctx, "performance-baselines", []byte(`[1,2]`)))

	got, err := s.Get(ctx, "performance-baselines")
	require.NoError(t, err)
	assert.Equal(t, `[1,2]`, string(got))

	require.NoError(t, s.Delete(ctx, "performance-baselines"))
	_, err = s.Get(ctx, "performance-baselines")
	assert.True(t, storage.IsNotFound(err))
}

func TestMemoryStore(t *testing.T) {
	s := storage.NewMemoryStore(0)
	exerciseStore(t, s)
	require.NoError(t, s.Close())

	err := s.Set(context.Background(), "k", []byte("v"))
	assert.True(t, errors.HasCode(err, storage.ErrClosed))
}

func TestMemoryStoreQuota(t *testing.T) {
	s := storage.NewMemoryStore(4)

	err := s.Set(context.Background(), "k", []byte("too long"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, storage.ErrQuotaExceeded))
	assert.NoError(t, s.Set(context.Background(), "k", []byte("ok")))
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := storage.NewMemoryStore(0)
	ctx := context.Background()
	in := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", in))
	in[0] = 'x'

	out, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(out))
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.db")
	cfg := storage.Config{Backend: storage.BackendSQLite, Path: path}

	s, err := storage.Open(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	exerciseStore(t, s)

	require.NoError(t, s.Set(context.Background(), "persisted", []byte("yes")))
	require.NoError(t, s.Close())

	reopened, err := storage.NewSQLiteStore(cfg, logger.Nop())
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(context.Background(), "persisted")
	require.NoError(t, err)
	assert.Equal(t, "yes", string(got))
}

func TestSQLiteStoreQuota(t *testing.T) {
	cfg := storage.Config{Backend: storage.BackendSQLite, Path: filepath.Join(t.TempDir(), "store.db"), MaxValueBytes: 2}
	s, err := storage.NewSQLiteStore(cfg, logger.Nop())
	require.NoError(t, err)
	defer s.Close()

	err = s.Set(context.Background(), "k", []byte("abc"))
	assert.True(t, errors.HasCode(err, storage.ErrQuotaExceeded))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, storage.Config{Backend: storage.BackendMemory}.Validate())
	assert.NoError(t, storage.DefaultConfig().Validate())

	err := storage.Config{Backend: storage.BackendSQLite}.Validate()
	assert.True(t, errors.HasCode(err, storage.ErrInvalidDBPath))

	err = storage.Config{Backend: storage.BackendPostgres}.Validate()
	assert.True(t, errors.HasCode(err, storage.ErrInvalidDSN))

	err = storage.Config{Backend: "redis"}.Validate()
	assert.True(t, errors.HasCode(err, storage.ErrInvalidBackend))

	_, err = storage.Open(context.Background(), storage.Config{Backend: "redis"}, logger.Nop())
	assert.True(t, errors.HasCode(err, storage.ErrInvalidConfig))
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("VITALSCTL_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("VITALSCTL_TEST_POSTGRES_DSN not set")
	}

	s, err := storage.Open(context.Background(), storage.Config{Backend: storage.BackendPostgres, DSN: dsn}, logger.Nop())
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}
