package persistence

import (
	"context"
	"time"

	"github.com/salescrm/backend/internal/domain/sales"
	"github.com/salescrm/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPlanRepository implements sales.PlanRepository
type GormPlanRepository struct {
	dbs Resolver
}

// NewGormPlanRepository creates a plan repository
func NewGormPlanRepository(dbs Resolver) *GormPlanRepository {
	return &GormPlanRepository{dbs: dbs}
}

// Create stores the plan together with its product links
func (r *GormPlanRepository) Create(ctx context.Context, plan *sales.SalesPlan) error {
	db, err := r.dbs.ForContext(ctx)
	if err != nil {
		return err
	}
	return translateError(db.Create(models.SalesPlanModelFromDomain(plan)).Error, "sales plan")
}

// FindByID loads a plan with its products
func (r *GormPlanRepository) FindByID(ctx context.Context, id string) (*sales.SalesPlan, error) {
	db, err := r.dbs.ForContext(ctx)
	if err != nil {
		return nil, err
	}
	var m models.SalesPlanModel
	if err := db.Preload("Products").First(&m, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "sales plan")
	}
	return m.ToDomain(), nil
}

// FindAll lists plans, newest start date first
func (r *GormPlanRepository) FindAll(ctx context.Context, filter sales.PlanFilter) ([]sales.SalesPlan, error) {
	db, err := r.dbs.ForContext(ctx)
	if err != nil {
		return nil, err
	}
	query := db.Preload("Products").Order("start_date DESC").Order("id")
	if filter.SalespersonID != "" {
		query = query.Where("salesperson_id = ?", filter.SalespersonID)
	}
	return findPlans(query)
}

// FindActiveOn lists active plans whose range contains date
func (r *GormPlanRepository) FindActiveOn(ctx context.Context, date time.Time) ([]sales.SalesPlan, error) {
	db, err := r.dbs.ForContext(ctx)
	if err != nil {
		return nil, err
	}
	day := sales.NormalizeDate(date)
	query := db.Preload("Products").
		Where("active = ? AND start_date <= ? AND end_date >= ?", true, day, day).
		Order("id")
	return findPlans(query)
}

// ExistsDuplicate checks the (salesperson, client, period, range) uniqueness
func (r *GormPlanRepository) ExistsDuplicate(ctx context.Context, plan *sales.SalesPlan) (bool, error) {
	db, err := r.dbs.ForContext(ctx)
	if err != nil {
		return false, err
	}
	var count int64
	err = db.Model(&models.SalesPlanModel{}).
		Where("salesperson_id = ? AND target_client_id = ? AND period = ? AND start_date = ? AND end_date = ?",
			plan.SalespersonID, plan.TargetClientID, plan.Period, plan.StartDate, plan.EndDate).
		Count(&count).Error
	return count > 0, err
}

func findPlans(query *gorm.DB) ([]sales.SalesPlan, error) {
	var rows []models.SalesPlanModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	plans := make([]sales.SalesPlan, len(rows))
	for i := range rows {
		plans[i] = *rows[i].ToDomain()
	}
	return plans, nil
}
