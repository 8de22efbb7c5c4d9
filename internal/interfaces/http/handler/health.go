package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const readinessTimeout = 3 * time.Second

// DatabaseChecker reports the reachability of every country schema
type DatabaseChecker interface {
	Check(ctx context.Context) map[string]bool
}

// Pinger is a dependency whose reachability can be checked
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

// Ping calls f
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler serves liveness and readiness checks
type HealthHandler struct {
	service string
	db      DatabaseChecker
	redis   Pinger
	storage Pinger
	logger  *zap.Logger
}

// HealthOption configures a HealthHandler
type HealthOption func(*HealthHandler)

// WithRedisCheck adds Redis to the readiness check
func WithRedisCheck(p Pinger) HealthOption {
	return func(h *HealthHandler) { h.redis = p }
}

// WithStorageCheck adds the photo bucket to the readiness check
func WithStorageCheck(p Pinger) HealthOption {
	return func(h *HealthHandler) { h.storage = p }
}

// NewHealthHandler creates a HealthHandler. A nil db skips the database check.
func NewHealthHandler(service string, db DatabaseChecker, logger *zap.Logger, opts ...HealthOption) *HealthHandler {
	h := &HealthHandler{service: service, db: db, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": h.service})
}

// Ready handles GET /ready. Unconfigured checks are reported as null.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	ready := true
	checks := gin.H{"db": nil, "redis": nil, "storage": nil}

	if h.db != nil {
		schemas := h.db.Check(ctx)
		for country, ok := range schemas {
			if !ok {
				ready = false
				h.logger.Warn("Readiness: schema unreachable", zap.String("country", country))
			}
		}
		checks["db"] = schemas
	}
	if h.redis != nil {
		ok := h.ping(ctx, "redis", h.redis)
		ready = ready && ok
		checks["redis"] = ok
	}
	if h.storage != nil {
		ok := h.ping(ctx, "storage", h.storage)
		ready = ready && ok
		checks["storage"] = ok
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"ready": ready, "checks": checks})
}

func (h *HealthHandler) ping(ctx context.Context, name string, p Pinger) bool {
	if err := p.Ping(ctx); err != nil {
		h.logger.Warn("Readiness check failed", zap.String("check", name), zap.Error(err))
		return false
	}
	return true
}
