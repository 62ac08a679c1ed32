// Package storage provides the key/value blob store behind baselines and
// the alert history mirror.
package storage

import "context"

// Store is a key/value blob store. Get returns an error with code
// ErrNotFound for a missing key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
