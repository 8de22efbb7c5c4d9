package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	salesapp "github.com/salescrm/backend/internal/application/sales"
	"github.com/salescrm/backend/internal/domain/shared"
	"github.com/salescrm/backend/internal/interfaces/http/middleware"
)

// PlanService is the application surface the plan endpoints need
type PlanService interface {
	Create(ctx context.Context, country string, req salesapp.CreatePlanRequest) (*salesapp.PlanResponse, error)
	Get(ctx context.Context, country, id string) (*salesapp.PlanResponse, error)
	List(ctx context.Context, country, salespersonID string) ([]salesapp.PlanResponse, error)
	ListProgress(ctx context.Context, country, planID string) ([]salesapp.ProgressResponse, error)
	Recalculate(ctx context.Context, country, planID string, date time.Time) (*salesapp.ProgressResponse, error)
}

// PlanHandler handles sales plan endpoints
type PlanHandler struct {
	BaseHandler
	service PlanService
	today   func() time.Time
}

// NewPlanHandler creates a new PlanHandler
func NewPlanHandler(service PlanService) *PlanHandler {
	return &PlanHandler{service: service, today: shared.Today}
}

// RegisterRoutes mounts the plan endpoints under rg
func (h *PlanHandler) RegisterRoutes(rg *gin.RouterGroup) {
	plans := rg.Group("/ventas/planes")
	plans.POST("", h.Create)
	plans.GET("", h.List)
	plans.GET("/:id", h.Get)
	plans.GET("/:id/progreso", h.ListProgress)
	plans.POST("/:id/recalcular", h.Recalculate)
}

// Create handles POST /v1/ventas/planes
func (h *PlanHandler) Create(c *gin.Context) {
	var req salesapp.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	plan, err := h.service.Create(c.Request.Context(), middleware.GetCountry(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, plan)
}

// List handles GET /v1/ventas/planes?id_vendedor=
func (h *PlanHandler) List(c *gin.Context) {
	plans, err := h.service.List(c.Request.Context(), middleware.GetCountry(c), c.Query("id_vendedor"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, plans)
}

// Get handles GET /v1/ventas/planes/:id
func (h *PlanHandler) Get(c *gin.Context) {
	plan, err := h.service.Get(c.Request.Context(), middleware.GetCountry(c), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, plan)
}

// ListProgress handles GET /v1/ventas/planes/:id/progreso
func (h *PlanHandler) ListProgress(c *gin.Context) {
	progress, err := h.service.ListProgress(c.Request.Context(), middleware.GetCountry(c), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, progress)
}

// Recalculate handles POST /v1/ventas/planes/:id/recalcular?d=YYYY-MM-DD.
// Without d the plan is recalculated for today.
func (h *PlanHandler) Recalculate(c *gin.Context) {
	date, err := shared.ParseDate(c.Query("d"), h.today())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	ctx := salesapp.WithTrigger(c.Request.Context(), salesapp.TriggerHTTP)
	snap, err := h.service.Recalculate(ctx, middleware.GetCountry(c), c.Param("id"), date)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, snap)
}
