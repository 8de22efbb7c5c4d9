package sales

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits stored for amounts
const AmountScale = 2

// ErrInvalidPlanID is returned when a snapshot has no plan id
var ErrInvalidPlanID = errors.New("sales: plan id cannot be empty")

// ProgressSnapshot is the stored aggregate for one plan on one calendar day.
// (PlanID, Date) identifies it; every recalculation overwrites all measures.
type ProgressSnapshot struct {
	PlanID          string
	Date            time.Time
	Amount          decimal.Decimal
	Units           int64
	DistinctClients int
	OrderCount      int
	UpdatedAt       time.Time
}

// NewProgressSnapshot builds the snapshot to store for a result.
// The date is normalized to the UTC day and the amount rounded to AmountScale.
func NewProgressSnapshot(planID string, date time.Time, result AggregateResult) (*ProgressSnapshot, error) {
	if strings.TrimSpace(planID) == "" {
		return nil, ErrInvalidPlanID
	}
	return &ProgressSnapshot{
		PlanID:          planID,
		Date:            NormalizeDate(date),
		Amount:          result.Amount.Round(AmountScale),
		Units:           result.Units,
		DistinctClients: result.DistinctClients,
		OrderCount:      result.OrderCount,
		UpdatedAt:       time.Now().UTC(),
	}, nil
}

// Result returns the measures of the snapshot
func (s *ProgressSnapshot) Result() AggregateResult {
	return AggregateResult{
		Amount:          s.Amount,
		Units:           s.Units,
		DistinctClients: s.DistinctClients,
		OrderCount:      s.OrderCount,
	}
}
