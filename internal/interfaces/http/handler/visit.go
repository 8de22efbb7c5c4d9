package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	visitapp "github.com/salescrm/backend/internal/application/visit"
	"github.com/salescrm/backend/internal/domain/shared"
	"github.com/salescrm/backend/internal/interfaces/http/middleware"
)

// photoField is the multipart field carrying the visit photo
const photoField = "foto"

// VisitService is the application surface the visit endpoints need
type VisitService interface {
	Create(ctx context.Context, country string, req visitapp.CreateVisitRequest) (*visitapp.VisitResponse, error)
	List(ctx context.Context, country string, query visitapp.ListVisitsQuery) ([]visitapp.VisitResponse, error)
	SaveDetail(ctx context.Context, country, visitID string, req visitapp.SaveDetailRequest, photo *visitapp.Photo) (*visitapp.DetailResponse, error)
	GetWithDetail(ctx context.Context, country, visitID string, includePhoto bool) (*visitapp.VisitWithDetailResponse, error)
}

// VisitHandler handles visit endpoints
type VisitHandler struct {
	BaseHandler
	service VisitService
}

// NewVisitHandler creates a new VisitHandler
func NewVisitHandler(service VisitService) *VisitHandler {
	return &VisitHandler{service: service}
}

// RegisterRoutes mounts the visit endpoints under rg
func (h *VisitHandler) RegisterRoutes(rg *gin.RouterGroup) {
	visits := rg.Group("/visitas")
	visits.POST("", h.Create)
	visits.GET("", h.List)
	visits.GET("/:id", h.Get)
	visits.POST("/:id/detalle", h.SaveDetail)
}

// Create handles POST /v1/visitas
func (h *VisitHandler) Create(c *gin.Context) {
	var req visitapp.CreateVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	v, err := h.service.Create(c.Request.Context(), middleware.GetCountry(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, v)
}

// List handles GET /v1/visitas?id_vendedor=&d=
func (h *VisitHandler) List(c *gin.Context) {
	var query visitapp.ListVisitsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	visits, err := h.service.List(c.Request.Context(), middleware.GetCountry(c), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, visits)
}

// SaveDetail handles POST /v1/visitas/:id/detalle. The body is a multipart
// form; the photo part is optional.
func (h *VisitHandler) SaveDetail(c *gin.Context) {
	var req visitapp.SaveDetailRequest
	if err := c.ShouldBind(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	photo, err := readPhoto(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	detail, err := h.service.SaveDetail(c.Request.Context(), middleware.GetCountry(c), c.Param("id"), req, photo)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, detail)
}

// Get handles GET /v1/visitas/:id?incluir_foto_ios=true
func (h *VisitHandler) Get(c *gin.Context) {
	includePhoto := true
	if raw := c.Query("incluir_foto_ios"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.HandleError(c, shared.InvalidInput(fmt.Errorf("invalid incluir_foto_ios %q", raw)))
			return
		}
		includePhoto = v
	}

	v, err := h.service.GetWithDetail(c.Request.Context(), middleware.GetCountry(c), c.Param("id"), includePhoto)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, v)
}

func readPhoto(c *gin.Context) (*visitapp.Photo, error) {
	fh, err := c.FormFile(photoField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid photo: %w", err)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("invalid photo: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("invalid photo: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return &visitapp.Photo{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
