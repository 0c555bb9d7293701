// Package archive moves daily snapshots that age out of the cache's
// retention window into cold storage, local disk or an S3-compatible
// bucket, keyed by series and date.
package archive

import "context"

// Backend is a flat blob store for archived snapshots.
type Backend interface {
	// Put stores data under key, overwriting any existing object.
	Put(ctx context.Context, key string, data []byte) error

	// Get retrieves the object at key.
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns all keys under prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Exists reports whether an object is stored at key.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes the object at key.
	Delete(ctx context.Context, key string) error
}
