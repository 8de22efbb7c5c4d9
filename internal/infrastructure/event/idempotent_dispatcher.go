package event

import (
	"context"
	"sync/atomic"

	"github.com/salescrm/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// IdempotencyMetrics tracks deduplication statistics
type IdempotencyMetrics struct {
	EventsProcessed atomic.Int64
	EventsDuplicate atomic.Int64
	EventsFailed    atomic.Int64
}

// Stats returns a snapshot of the current metrics
func (m *IdempotencyMetrics) Stats() IdempotencyStats {
	return IdempotencyStats{
		EventsProcessed: m.EventsProcessed.Load(),
		EventsDuplicate: m.EventsDuplicate.Load(),
		EventsFailed:    m.EventsFailed.Load(),
	}
}

// IdempotencyStats is a snapshot of idempotency metrics
type IdempotencyStats struct {
	EventsProcessed int64 `json:"events_processed"`
	EventsDuplicate int64 `json:"events_duplicate"`
	EventsFailed    int64 `json:"events_failed"`
}

// IdempotentDispatcher skips messages whose id was already handled
// successfully. A message is remembered only after its handlers succeed, so a
// failed delivery can be retried by redelivery.
type IdempotentDispatcher struct {
	next    shared.EventDispatcher
	store   shared.IdempotencyStore
	config  shared.IdempotencyConfig
	logger  *zap.Logger
	metrics *IdempotencyMetrics
}

// IdempotentOption configures an IdempotentDispatcher
type IdempotentOption func(*IdempotentDispatcher)

// WithIdempotencyConfig sets the TTL and the enabled flag
func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentOption {
	return func(d *IdempotentDispatcher) {
		d.config = config
	}
}

// WithIdempotencyMetrics shares a metrics collector
func WithIdempotencyMetrics(metrics *IdempotencyMetrics) IdempotentOption {
	return func(d *IdempotentDispatcher) {
		d.metrics = metrics
	}
}

// NewIdempotentDispatcher wraps next with message id deduplication
func NewIdempotentDispatcher(
	next shared.EventDispatcher,
	store shared.IdempotencyStore,
	logger *zap.Logger,
	opts ...IdempotentOption,
) *IdempotentDispatcher {
	d := &IdempotentDispatcher{
		next:    next,
		store:   store,
		config:  shared.DefaultIdempotencyConfig(),
		logger:  logger,
		metrics: &IdempotencyMetrics{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch handles event unless its message id is already recorded.
// Store failures never drop a message; it is handled anyway.
func (d *IdempotentDispatcher) Dispatch(ctx context.Context, event *shared.Event) (bool, error) {
	if !d.config.Enabled || d.store == nil || event.MessageID == "" {
		return d.next.Dispatch(ctx, event)
	}

	fields := []zap.Field{
		zap.String("message_id", event.MessageID),
		zap.String("event", event.Name),
	}

	processed, err := d.store.IsProcessed(ctx, event.MessageID)
	if err != nil {
		d.logger.Warn("failed to check idempotency, processing anyway", append(fields, zap.Error(err))...)
	} else if processed {
		d.metrics.EventsDuplicate.Add(1)
		d.logger.Info("duplicate message skipped", fields...)
		return true, nil
	}

	handled, err := d.next.Dispatch(ctx, event)
	if err != nil {
		d.metrics.EventsFailed.Add(1)
		return handled, err
	}
	if !handled {
		return false, nil
	}

	if _, err := d.store.MarkProcessed(ctx, event.MessageID, d.config.TTL); err != nil {
		d.logger.Warn("failed to record processed message", append(fields, zap.Error(err))...)
	}
	d.metrics.EventsProcessed.Add(1)
	return true, nil
}

// Metrics returns the collector of this dispatcher
func (d *IdempotentDispatcher) Metrics() *IdempotencyMetrics {
	return d.metrics
}

var _ shared.EventDispatcher = (*IdempotentDispatcher)(nil)
