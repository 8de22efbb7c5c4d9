package sales

import (
	"context"
	"time"
)

// PlanFilter narrows plan listings. Empty fields do not filter.
type PlanFilter struct {
	SalespersonID string
}

// PlanRepository persists sales plans in the schema of the country carried by ctx
type PlanRepository interface {
	Create(ctx context.Context, plan *SalesPlan) error
	FindByID(ctx context.Context, id string) (*SalesPlan, error)
	FindAll(ctx context.Context, filter PlanFilter) ([]SalesPlan, error)
	// FindActiveOn returns active plans whose date range contains date
	FindActiveOn(ctx context.Context, date time.Time) ([]SalesPlan, error)
	// ExistsDuplicate reports whether another plan has the same salesperson,
	// target client, period and date range
	ExistsDuplicate(ctx context.Context, plan *SalesPlan) (bool, error)
}

// ProgressStore persists progress snapshots
type ProgressStore interface {
	// Upsert writes result as the snapshot of (planID, date), creating or
	// fully overwriting it in one atomic statement
	Upsert(ctx context.Context, planID string, date time.Time, result AggregateResult) (*ProgressSnapshot, error)
	// FindByPlan returns the plan's snapshots ordered by date
	FindByPlan(ctx context.Context, planID string) ([]ProgressSnapshot, error)
}
