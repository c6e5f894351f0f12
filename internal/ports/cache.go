package ports

import (
	"context"
)

// Loader produces the value for a cache miss
type Loader func(ctx context.Context) (any, error)

// Cache is a read-through cache over the catalog reads
type Cache interface {
	// ReadThrough decodes the cached value for key into dst, calling load
	// and storing its result on a miss. Errors from load are returned and
	// never cached.
	ReadThrough(ctx context.Context, key string, dst any, load Loader) error

	// InvalidateAll drops every entry. Loads started before the call are not
	// stored afterwards.
	InvalidateAll(ctx context.Context) error
}
