package storage

import (
	"context"
	"sync"

	"codeberg.org/mutker/vitalsctl/internal/errors"
)

// MemoryStore keeps values in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	values   map[string][]byte
	maxBytes int
	closed   bool
}

// NewMemoryStore returns an empty store; maxBytes > 0 rejects larger values
// with ErrQuotaExceeded.
func NewMemoryStore(maxBytes int) *MemoryStore {
	return &MemoryStore{
		values:   make(map[string][]byte),
		maxBytes: maxBytes,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, errors.New().New(ErrClosed)
	}
	v, ok := m.values[key]
	if !ok {
		return nil, errors.New().WithData(ErrNotFound, struct{ Key string }{Key: key})
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.New().New(ErrClosed)
	}
	if m.maxBytes > 0 && len(value) > m.maxBytes {
		return errors.New().WithData(ErrQuotaExceeded, struct {
			Key   string
			Size  int
			Limit int
		}{
			Key:   key,
			Size:  len(value),
			Limit: m.maxBytes,
		})
	}
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.New().New(ErrClosed)
	}
	delete(m.values, key)
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
