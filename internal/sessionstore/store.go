// Package sessionstore provides a small persistent key-value store used for
// session durability and vector index snapshots.
package sessionstore

import (
	"context"
	"errors"
)

// ErrNotFound indicates the key does not exist.
var ErrNotFound = errors.New("key not found")

// Store is a byte-oriented key-value store.
type Store interface {
	// Save writes value under key, replacing any previous value.
	Save(ctx context.Context, key string, value []byte) error
	// Load returns the value for key, or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases underlying resources.
	Close() error
}
