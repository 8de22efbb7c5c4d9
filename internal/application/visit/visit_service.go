package visit

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/salescrm/backend/internal/domain/shared"
	"github.com/salescrm/backend/internal/domain/visit"
	"go.uber.org/zap"
)

// PhotoStorage stores visit photos in the bucket of a country
type PhotoStorage interface {
	Upload(ctx context.Context, country, key string, data []byte, contentType string) error
	Download(ctx context.Context, country, key string) ([]byte, string, error)
}

// VisitService handles visits and their details
type VisitService struct {
	repo           visit.Repository
	photos         PhotoStorage
	defaultCountry string
	logger         *zap.Logger
}

// NewVisitService creates a VisitService. defaultCountry picks the photo
// bucket when a call carries no country.
func NewVisitService(repo visit.Repository, photos PhotoStorage, defaultCountry string, logger *zap.Logger) *VisitService {
	return &VisitService{
		repo:           repo,
		photos:         photos,
		defaultCountry: shared.NormalizeCountry(defaultCountry),
		logger:         logger,
	}
}

func (s *VisitService) scope(ctx context.Context, country string) (context.Context, string) {
	country = shared.NormalizeCountry(country)
	if country == "" {
		country = s.defaultCountry
	}
	return shared.WithCountry(ctx, country), country
}

// Create schedules a pending visit. Only one visit per client, salesperson
// and date is allowed.
func (s *VisitService) Create(ctx context.Context, country string, req CreateVisitRequest) (*VisitResponse, error) {
	ctx, country = s.scope(ctx, country)

	date, err := shared.ParseDate(req.Date, time.Time{})
	if err != nil {
		return nil, err
	}

	v, err := visit.NewVisit(visit.NewVisitInput{
		SalespersonID: req.SalespersonID,
		ClientID:      req.ClientID,
		Address:       req.Address,
		City:          req.City,
		Contact:       req.Contact,
		Date:          date,
	})
	if err != nil {
		return nil, shared.InvalidInput(err)
	}

	exists, err := s.repo.Exists(ctx, v.ClientID, v.SalespersonID, v.Date)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.AlreadyExists("A visit for that client, salesperson and date already exists")
	}

	if err := s.repo.Create(ctx, v); err != nil {
		return nil, err
	}

	s.logger.Info("Visit created",
		zap.String("visit_id", v.ID),
		zap.String("country", country),
		zap.String("salesperson_id", v.SalespersonID),
		zap.String("client_id", v.ClientID),
	)
	return ToVisitResponse(v), nil
}

// List returns visits, optionally filtered by salesperson and date
func (s *VisitService) List(ctx context.Context, country string, query ListVisitsQuery) ([]VisitResponse, error) {
	ctx, _ = s.scope(ctx, country)

	filter := visit.Filter{SalespersonID: query.SalespersonID}
	if query.Date != "" {
		d, err := shared.ParseDate(query.Date, time.Time{})
		if err != nil {
			return nil, err
		}
		filter.Date = &d
	}

	visits, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]VisitResponse, 0, len(visits))
	for i := range visits {
		out = append(out, *ToVisitResponse(&visits[i]))
	}
	return out, nil
}

// SaveDetail creates or overwrites the detail of a visit and finishes it.
// A photo, when given, is uploaded first and its object key kept in the
// detail; without one the previous photo key is preserved.
func (s *VisitService) SaveDetail(ctx context.Context, country, visitID string, req SaveDetailRequest, photo *Photo) (*DetailResponse, error) {
	ctx, country = s.scope(ctx, country)

	v, err := s.repo.FindByID(ctx, visitID)
	if err != nil {
		return nil, err
	}

	detail, err := s.repo.FindDetail(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if detail == nil {
		detail = &visit.Detail{VisitID: v.ID, CreatedAt: time.Now().UTC()}
	}

	if err := detail.Apply(visit.DetailInput{
		ClientID:           req.ClientID,
		AttendedBy:         req.AttendedBy,
		Findings:           req.Findings,
		ProductSuggestions: req.ProductSuggestions,
	}); err != nil {
		return nil, shared.InvalidInput(err)
	}

	if photo != nil && len(photo.Data) > 0 {
		contentType := photo.ContentType
		if contentType == "" {
			contentType = visit.DefaultPhotoContentType
		}
		key := visit.PhotoObjectKey(v.ID, photo.Filename)
		if err := s.photos.Upload(ctx, country, key, photo.Data, contentType); err != nil {
			return nil, shared.UpstreamUnavailable(fmt.Errorf("upload visit photo: %w", err))
		}
		detail.PhotoKey = key
		s.logger.Debug("Visit photo uploaded",
			zap.String("visit_id", v.ID),
			zap.String("key", key),
			zap.Int("bytes", len(photo.Data)),
		)
	}

	v.Finish()
	if err := s.repo.SaveDetailAndFinish(ctx, v, detail); err != nil {
		return nil, err
	}

	s.logger.Info("Visit detail saved",
		zap.String("visit_id", v.ID),
		zap.String("country", country),
		zap.Bool("has_photo", detail.PhotoKey != ""),
	)
	return ToDetailResponse(detail), nil
}

// GetWithDetail returns a visit with its detail. When includePhoto is set
// and the detail has a photo, it is inlined as a data URI; a failed
// download leaves it null.
func (s *VisitService) GetWithDetail(ctx context.Context, country, visitID string, includePhoto bool) (*VisitWithDetailResponse, error) {
	ctx, country = s.scope(ctx, country)

	v, err := s.repo.FindByID(ctx, visitID)
	if err != nil {
		return nil, err
	}
	detail, err := s.repo.FindDetail(ctx, visitID)
	if err != nil {
		return nil, err
	}

	resp := &VisitWithDetailResponse{VisitResponse: *ToVisitResponse(v)}
	if detail == nil {
		return resp, nil
	}
	resp.Detail = ToDetailResponse(detail)

	if includePhoto && detail.PhotoKey != "" {
		data, contentType, err := s.photos.Download(ctx, country, detail.PhotoKey)
		if err != nil {
			s.logger.Warn("Visit photo download failed",
				zap.String("visit_id", v.ID),
				zap.String("key", detail.PhotoKey),
				zap.Error(err),
			)
			return resp, nil
		}
		uri := PhotoDataURI(contentType, data)
		resp.PhotoDataURI = &uri
	}
	return resp, nil
}

// PhotoDataURI encodes data as data:{contentType};base64,{data}
func PhotoDataURI(contentType string, data []byte) string {
	if contentType == "" {
		contentType = visit.DefaultPhotoContentType
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
