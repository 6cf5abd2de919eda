package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers delivery keys that were applied successfully
// so that redelivered messages can be skipped
type IdempotencyStore interface {
	// MarkProcessed marks a delivery as processed with a TTL
	// Returns true if the key was newly marked, false if it was already processed
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a delivery has already been processed
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for delivery dedup
type IdempotencyConfig struct {
	// TTL is how long a processed delivery key is remembered
	// Default: 24 hours
	TTL time.Duration

	// Enabled determines whether dedup is enabled
	// Default: true
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
