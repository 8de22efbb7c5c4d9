package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/salescrm/backend/internal/domain/visit"
	"github.com/salescrm/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormVisitRepository implements visit.Repository
type GormVisitRepository struct {
	dbs Resolver
}

// NewGormVisitRepository creates a visit repository
func NewGormVisitRepository(dbs Resolver) *GormVisitRepository {
	return &GormVisitRepository{dbs: dbs}
}

func (r *GormVisitRepository) Create(ctx context.Context, v *visit.Visit) error {
	db, err := r.dbs.ForContext(ctx)
	if err != nil {
		return err
	}
	return translateError(db.Create(models.VisitModelFromDomain(v)).Error, "visit")
}

func (r *GormVisitRepository) Update(ctx context.Context, v *visit.Visit) error {
	db, err := r.dbs.ForContext(ctx)
	if err != nil {
		return err
	}
	return translateError(db.Save(models.VisitModelFromDomain(v)).Error, "visit")
}

func (r *GormVisitRepository) FindByID(ctx context.Context, id string) (*visit.Visit, error) {
	db, err := r.dbs.ForContext(ctx)
	if err != nil {
		return nil, err
	}
	var m models.VisitModel
	if err := db.First(&m, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "visit")
	}
	return m.ToDomain(), nil
}

// FindAll lists visits, most recent date first
func (r *GormVisitRepository) FindAll(ctx context.Context, filter visit.Filter) ([]visit.Visit, error) {
	db, err := r.dbs.ForContext(ctx)
	if err != nil {
		return nil, err
	}
	query := db.Order("visit_date DESC").Order("id")
	if filter.SalespersonID != "" {
		query = query.Where("salesperson_id = ?", filter.SalespersonID)
	}
	if filter.Date != nil {
		d := *filter.Date
		query = query.Where("visit_date = ?", time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC))
	}
	var rows []models.VisitModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]visit.Visit, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

func (r *GormVisitRepository) Exists(ctx context.Context, clientID, salespersonID string, date time.Time) (bool, error) {
	db, err := r.dbs.ForContext(ctx)
	if err != nil {
		return false, err
	}
	var count int64
	err = db.Model(&models.VisitModel{}).
		Where("client_id = ? AND salesperson_id = ? AND visit_date = ?", clientID, salespersonID,
			time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)).
		Count(&count).Error
	return count > 0, err
}

// FindDetail returns the detail of a visit, or nil when none was recorded
func (r *GormVisitRepository) FindDetail(ctx context.Context, visitID string) (*visit.Detail, error) {
	db, err := r.dbs.ForContext(ctx)
	if err != nil {
		return nil, err
	}
	var m models.VisitDetailModel
	if err := db.Where("visit_id = ?", visitID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

func (r *GormVisitRepository) SaveDetailAndFinish(ctx context.Context, v *visit.Visit, d *visit.Detail) error {
	db, err := r.dbs.ForContext(ctx)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		dm := models.VisitDetailModelFromDomain(d)
		if err := tx.Save(dm).Error; err != nil {
			return translateError(err, "visit detail")
		}
		d.ID = dm.ID
		return tx.Model(&models.VisitModel{}).
			Where("id = ?", v.ID).
			Updates(map[string]any{"status": v.Status, "updated_at": v.UpdatedAt}).Error
	})
}
