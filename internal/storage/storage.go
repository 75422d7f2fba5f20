// Package storage provides the durable key-value store backing the session
// subsystem: the cached user record, the legacy token blob, the pending
// profile marker and the installation id all live here.
package storage

import "context"

// KV is a whole-value key-value store. Every writer writes a complete record
// under its key; there are no partial updates.
type KV interface {
	// GetItem returns the value for key, or nil when the key is absent.
	GetItem(ctx context.Context, key string) ([]byte, error)

	// SetItem creates or overwrites the value for key.
	SetItem(ctx context.Context, key string, value []byte) error

	// RemoveItem deletes key. Removing an absent key is not an error.
	RemoveItem(ctx context.Context, key string) error

	// MultiRemove deletes all given keys in one statement.
	MultiRemove(ctx context.Context, keys ...string) error
}
