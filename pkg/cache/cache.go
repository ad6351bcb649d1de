package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte payloads under string keys with an optional TTL.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the payload for key. A miss is (nil, false, nil), never an
	// error; expired entries are misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry owned by this cache and returns how many
	// were removed.
	Clear(ctx context.Context) (int, error)

	// Close releases any underlying connection.
	Close() error
}
