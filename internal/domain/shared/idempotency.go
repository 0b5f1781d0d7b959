package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers the outcome of requests carrying an
// idempotency key so that retried requests return the original result
// instead of creating duplicates.
type IdempotencyStore interface {
	// Remember stores value under key if the key is unseen and returns
	// (value, true). If the key was already recorded it returns the
	// previously stored value and false.
	Remember(ctx context.Context, key, value string, ttl time.Duration) (string, bool, error)

	// Forget removes a recorded key so a later request with the same
	// key is treated as new. Used to release a key whose operation
	// failed after the key was recorded. Forgetting an absent key is
	// not an error.
	Forget(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a recorded key stays valid. After it expires the
	// same key is treated as a new request. Default: 24 hours.
	TTL time.Duration

	// Enabled determines whether idempotency checking is enabled
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
