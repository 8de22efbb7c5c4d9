package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/salescrm/backend/internal/domain/shared"
	"github.com/salescrm/backend/internal/infrastructure/config"
	"github.com/salescrm/backend/internal/infrastructure/event"
	"github.com/salescrm/backend/internal/infrastructure/logger"
	"github.com/salescrm/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// PushRecorder records the outcome of push deliveries
type PushRecorder interface {
	RecordPush(ctx context.Context, event, outcome string)
}

type nopPushRecorder struct{}

func (nopPushRecorder) RecordPush(context.Context, string, string) {}

// defaultMaxRetryAge applies when the config leaves MaxRetryAge unset
const defaultMaxRetryAge = 10 * time.Minute

// PushHandler receives Pub/Sub push deliveries on POST /pubsub. Deliveries
// are acknowledged with 204 whatever their outcome, unless transient retry
// is enabled and the failure was transient, in which case 503 asks the
// broker to redeliver.
type PushHandler struct {
	BaseHandler
	dispatcher     shared.EventDispatcher
	defaultCountry string
	retryTransient bool
	maxAttempts    int
	maxRetryAge    time.Duration
	metrics        PushRecorder
	logger         *zap.Logger
	now            func() time.Time
}

// PushHandlerOption configures a PushHandler
type PushHandlerOption func(*PushHandler)

// WithPushMetrics records delivery outcomes on m
func WithPushMetrics(m PushRecorder) PushHandlerOption {
	return func(h *PushHandler) {
		if m != nil {
			h.metrics = m
		}
	}
}

// NewPushHandler creates a PushHandler dispatching through dispatcher
func NewPushHandler(
	dispatcher shared.EventDispatcher,
	defaultCountry string,
	cfg config.PubSubConfig,
	logger *zap.Logger,
	opts ...PushHandlerOption,
) *PushHandler {
	h := &PushHandler{
		dispatcher:     dispatcher,
		defaultCountry: shared.NormalizeCountry(defaultCountry),
		retryTransient: cfg.RetryTransient,
		maxAttempts:    cfg.MaxDeliveryAttempts,
		maxRetryAge:    cfg.MaxRetryAge,
		metrics:        nopPushRecorder{},
		logger:         logger,
		now:            time.Now,
	}
	if h.maxRetryAge <= 0 {
		h.maxRetryAge = defaultMaxRetryAge
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Receive handles POST /pubsub
func (h *PushHandler) Receive(c *gin.Context) {
	ctx := c.Request.Context()
	log := h.logger.With(logger.Fields(ctx)...)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Warn("Unreadable push delivery", zap.Error(err))
		h.metrics.RecordPush(ctx, "", telemetry.OutcomeInvalid)
		h.NoContent(c)
		return
	}

	ev, err := event.DecodePush(body)
	if err != nil {
		log.Warn("Discarding malformed push delivery", zap.Error(err), zap.Int("bytes", len(body)))
		h.metrics.RecordPush(ctx, "", telemetry.OutcomeInvalid)
		h.NoContent(c)
		return
	}
	if ev.Country == "" {
		ev.Country = h.defaultCountry
	}

	ctx = shared.WithCountry(ctx, ev.Country)
	log = log.With(
		zap.String("event", ev.Name),
		zap.String("message_id", ev.MessageID),
		zap.String("country", ev.Country),
		zap.Int("attempt", ev.Attempt),
	)
	if ev.TraceID != "" {
		log = log.With(zap.String("publisher_trace_id", ev.TraceID))
	}

	handled, err := h.dispatcher.Dispatch(ctx, ev)
	switch {
	case err == nil && !handled:
		log.Info("No handler for push event")
		h.metrics.RecordPush(ctx, ev.Name, telemetry.OutcomeIgnored)
	case err == nil:
		log.Info("Push event processed")
		h.metrics.RecordPush(ctx, ev.Name, telemetry.OutcomeSuccess)
	case shared.IsTransient(err) && h.shouldRetry(ev):
		log.Warn("Push event failed, requesting redelivery", zap.Error(err))
		h.metrics.RecordPush(ctx, ev.Name, telemetry.OutcomeRetry)
		c.Status(http.StatusServiceUnavailable)
		return
	case errors.Is(err, shared.ErrNotFound), errors.Is(err, shared.ErrInvalidInput):
		log.Warn("Push event rejected", zap.Error(err))
		h.metrics.RecordPush(ctx, ev.Name, outcomeOf(err))
	default:
		log.Error("Push event failed", zap.Error(err))
		h.metrics.RecordPush(ctx, ev.Name, outcomeOf(err))
	}
	h.NoContent(c)
}

// shouldRetry reports whether a transient failure of ev is worth a
// redelivery. Subscriptions without a dead-letter policy report attempt 0;
// those messages are retried only while younger than maxRetryAge, and not at
// all when the publish time is unknown.
func (h *PushHandler) shouldRetry(ev *shared.Event) bool {
	if !h.retryTransient {
		return false
	}
	if ev.Attempt > 0 {
		return h.maxAttempts <= 0 || ev.Attempt < h.maxAttempts
	}
	if ev.PublishedAt.IsZero() {
		return false
	}
	return h.now().Sub(ev.PublishedAt) < h.maxRetryAge
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return telemetry.OutcomeNotFound
	case errors.Is(err, shared.ErrInvalidInput):
		return telemetry.OutcomeInvalid
	case shared.IsTransient(err):
		return telemetry.OutcomeUpstream
	default:
		return telemetry.OutcomeError
	}
}
