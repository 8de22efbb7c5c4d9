package cache

import (
	"context"
	"time"

	"github.com/salescrm/backend/internal/domain/shared"
	"github.com/salescrm/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewIdempotencyStore returns a Redis store when Redis is enabled and
// reachable, otherwise an in-memory store. The returned pinger is nil for the
// in-memory store, which has nothing to check.
func NewIdempotencyStore(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (shared.IdempotencyStore, *RedisIdempotencyStore) {
	if cfg.Enabled {
		client, err := NewRedisClient(ctx, cfg)
		if err == nil {
			logger.Info("Using Redis idempotency store", zap.String("addr", cfg.Addr()))
			store := NewRedisIdempotencyStore(client, "")
			return store, store
		}
		logger.Warn("Redis unavailable, falling back to in-memory idempotency store; "+
			"redeliveries handled by other instances are not deduplicated", zap.Error(err))
	}
	return NewInMemoryIdempotencyStore(5 * time.Minute), nil
}
