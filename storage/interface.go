package storage

import "context"

// Backend is a keyed record store. Records are grouped under a prefix
// (one prefix per record kind) and addressed by key within the prefix.
// Values are opaque bytes; callers own the encoding.
type Backend interface {
	Put(ctx context.Context, prefix string, key string, value []byte) error

	// Get returns nil with no error when the record does not exist.
	Get(ctx context.Context, prefix string, key string) ([]byte, error)

	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, prefix string, key string) error
	Stop() error
}
