package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers processed message ids so redelivered push
// messages are acknowledged without being handled twice
type IdempotencyStore interface {
	// MarkProcessed marks a message as processed with a TTL
	// Returns true if the message was newly marked, false if it was already processed
	MarkProcessed(ctx context.Context, messageID string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a message has already been processed
	IsProcessed(ctx context.Context, messageID string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for push message deduplication
type IdempotencyConfig struct {
	// TTL is how long a processed message id is remembered. Default: 24 hours
	TTL time.Duration

	// Enabled turns deduplication on. Default: true
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
