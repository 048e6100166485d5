package shared

import (
	"context"
	"time"
)

// IdempotencyStore maps client supplied idempotency keys to the ID of the
// resource created for them, so a retried request returns the same resource.
type IdempotencyStore interface {
	// Remember associates key with value if the key is not already taken.
	// Returns true if the value was stored, false if another value already holds the key.
	Remember(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Lookup returns the value stored for key, if any
	Lookup(ctx context.Context, key string) (string, bool, error)

	// Close releases resources held by the store
	Close() error
}
