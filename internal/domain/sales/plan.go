package sales

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Plan periods
const (
	PeriodMonthly   = "mensual"
	PeriodQuarterly = "trimestral"
	PeriodYearly    = "anual"
)

var (
	ErrSalespersonRequired  = errors.New("sales: salesperson id is required")
	ErrTargetClientRequired = errors.New("sales: target client id is required")
	ErrInvalidPeriod        = errors.New("sales: period must be mensual, trimestral or anual")
	ErrInvalidDateRange     = errors.New("sales: start date must not be after end date")
	ErrNegativeGoal         = errors.New("sales: goals must not be negative")
)

// SalesPlan is a sales target for one salesperson and one target client,
// optionally restricted to a set of products. Goals and period are
// informational and do not take part in progress aggregation.
type SalesPlan struct {
	ID             string
	SalespersonID  string
	TargetClientID string
	ProductIDs     []string
	Period         string
	Territory      string
	GoalAmount     decimal.NullDecimal
	GoalUnits      *int64
	GoalClients    *int64
	StartDate      time.Time
	EndDate        time.Time
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewPlanInput carries the fields needed to create a plan
type NewPlanInput struct {
	SalespersonID  string
	TargetClientID string
	ProductIDs     []string
	Period         string
	Territory      string
	GoalAmount     decimal.NullDecimal
	GoalUnits      *int64
	GoalClients    *int64
	StartDate      time.Time
	EndDate        time.Time
}

// NewSalesPlan validates the input and creates an active plan
func NewSalesPlan(in NewPlanInput) (*SalesPlan, error) {
	salesperson := strings.TrimSpace(in.SalespersonID)
	if salesperson == "" {
		return nil, ErrSalespersonRequired
	}
	client := strings.TrimSpace(in.TargetClientID)
	if client == "" {
		return nil, ErrTargetClientRequired
	}

	period := strings.ToLower(strings.TrimSpace(in.Period))
	if period == "" {
		period = PeriodMonthly
	}
	if !IsValidPeriod(period) {
		return nil, ErrInvalidPeriod
	}

	start := NormalizeDate(in.StartDate)
	end := NormalizeDate(in.EndDate)
	if start.After(end) {
		return nil, ErrInvalidDateRange
	}

	if in.GoalAmount.Valid && in.GoalAmount.Decimal.IsNegative() {
		return nil, ErrNegativeGoal
	}
	if (in.GoalUnits != nil && *in.GoalUnits < 0) || (in.GoalClients != nil && *in.GoalClients < 0) {
		return nil, ErrNegativeGoal
	}

	now := time.Now().UTC()
	return &SalesPlan{
		ID:             uuid.New().String(),
		SalespersonID:  salesperson,
		TargetClientID: client,
		ProductIDs:     uniqueProductIDs(in.ProductIDs),
		Period:         period,
		Territory:      strings.TrimSpace(in.Territory),
		GoalAmount:     in.GoalAmount,
		GoalUnits:      in.GoalUnits,
		GoalClients:    in.GoalClients,
		StartDate:      start,
		EndDate:        end,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// IsValidPeriod reports whether p is a known plan period
func IsValidPeriod(p string) bool {
	switch p {
	case PeriodMonthly, PeriodQuarterly, PeriodYearly:
		return true
	}
	return false
}

// HasProducts reports whether the plan targets at least one product
func (p *SalesPlan) HasProducts() bool {
	return len(p.ProductIDs) > 0
}

// ProductSet returns the target products as a lookup set
func (p *SalesPlan) ProductSet() map[string]struct{} {
	set := make(map[string]struct{}, len(p.ProductIDs))
	for _, id := range p.ProductIDs {
		set[id] = struct{}{}
	}
	return set
}

// CoversDate reports whether the plan is active and date falls within its range
func (p *SalesPlan) CoversDate(date time.Time) bool {
	if !p.Active {
		return false
	}
	d := NormalizeDate(date)
	return !d.Before(p.StartDate) && !d.After(p.EndDate)
}

func uniqueProductIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// NormalizeDate truncates t to its calendar day in UTC.
// The calendar day is taken from t's own location so that a date parsed
// as "2025-10-21" in any zone stays on the 21st.
func NormalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
