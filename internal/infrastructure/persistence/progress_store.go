package persistence

import (
	"context"
	"time"

	"github.com/salescrm/backend/internal/domain/sales"
	"github.com/salescrm/backend/internal/domain/shared"
	"github.com/salescrm/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm/clause"
)

// progressColumns are overwritten when a snapshot for the same day exists
var progressColumns = []string{"amount", "units", "distinct_clients", "order_count", "updated_at"}

// GormProgressStore implements sales.ProgressStore. Each write is a single
// INSERT ... ON CONFLICT (plan_id, snapshot_date) DO UPDATE, so concurrent
// recalculations of the same plan and day leave exactly one row.
type GormProgressStore struct {
	dbs Resolver
}

// NewGormProgressStore creates a progress store
func NewGormProgressStore(dbs Resolver) *GormProgressStore {
	return &GormProgressStore{dbs: dbs}
}

// Upsert stores result as the snapshot of planID on date
func (s *GormProgressStore) Upsert(ctx context.Context, planID string, date time.Time, result sales.AggregateResult) (*sales.ProgressSnapshot, error) {
	snap, err := sales.NewProgressSnapshot(planID, date, result)
	if err != nil {
		return nil, shared.InvalidInput(err)
	}
	db, err := s.dbs.ForContext(ctx)
	if err != nil {
		return nil, err
	}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "plan_id"}, {Name: "snapshot_date"}},
		DoUpdates: clause.AssignmentColumns(progressColumns),
	}).Create(models.PlanProgressModelFromDomain(snap)).Error
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// FindByPlan returns the snapshots of planID, oldest first
func (s *GormProgressStore) FindByPlan(ctx context.Context, planID string) ([]sales.ProgressSnapshot, error) {
	db, err := s.dbs.ForContext(ctx)
	if err != nil {
		return nil, err
	}
	var rows []models.PlanProgressModel
	if err := db.Where("plan_id = ?", planID).Order("snapshot_date").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]sales.ProgressSnapshot, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}
