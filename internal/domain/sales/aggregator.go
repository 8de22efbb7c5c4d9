package sales

import (
	"context"
	"errors"
	"time"

	"github.com/salescrm/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ErrPlanRequired is returned when Recalculate is called without a plan
var ErrPlanRequired = errors.New("sales: plan is required")

var one = decimal.NewFromInt(1)

// AggregateResult holds the totals computed for one plan and date
type AggregateResult struct {
	Amount          decimal.Decimal
	Units           int64
	DistinctClients int
	OrderCount      int
}

// IsZero reports whether nothing was counted
func (r AggregateResult) IsZero() bool {
	return r.Amount.IsZero() && r.Units == 0 && r.DistinctClients == 0 && r.OrderCount == 0
}

// Recalculate computes the plan's progress for date from the first page of
// sale orders committed on that date.
//
// A plan without products yields a zero result and the source is not queried.
// Orders are skipped, never failing the batch, when the salesperson or client
// does not match, when no item targets a plan product, or when the matching
// items carry no units. Source failures are returned as
// shared.ErrUpstreamUnavailable and are not retried here.
func Recalculate(ctx context.Context, plan *SalesPlan, date time.Time, source OrderSource) (AggregateResult, error) {
	result := AggregateResult{Amount: decimal.Zero}
	if plan == nil {
		return result, ErrPlanRequired
	}
	if !plan.HasProducts() {
		return result, nil
	}

	orders, err := source.FetchOrders(ctx, OrderQuery{
		Type:          OrderTypeSale,
		CommittedDate: NormalizeDate(date),
		Limit:         OrderPageLimit,
		Offset:        0,
	})
	if err != nil {
		return AggregateResult{Amount: decimal.Zero}, shared.UpstreamUnavailable(err)
	}

	products := plan.ProductSet()
	clients := make(map[string]struct{})

	for _, order := range orders {
		if order.SalespersonID != plan.SalespersonID {
			continue
		}
		if order.ClientID != plan.TargetClientID {
			continue
		}

		amount, units, matched := contribution(order.Items, products)
		if !matched || units <= 0 {
			continue
		}

		result.OrderCount++
		clients[order.ClientID] = struct{}{}
		result.Amount = result.Amount.Add(amount)
		result.Units += units
	}

	result.DistinctClients = len(clients)
	return result, nil
}

// contribution sums amount and units of the items that target a plan product.
// matched is false when no item targets the plan.
func contribution(items []OrderItem, products map[string]struct{}) (amount decimal.Decimal, units int64, matched bool) {
	amount = decimal.Zero
	for _, item := range items {
		if _, ok := products[item.ProductID]; !ok {
			continue
		}
		matched = true
		amount = amount.Add(ItemGross(item))
		units += item.Quantity
	}
	return amount, units, matched
}

// ItemGross returns price × quantity after discount and then tax.
// Percentages are shifted rather than divided so the result stays exact.
func ItemGross(item OrderItem) decimal.Decimal {
	line := item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity))
	net := line.Mul(one.Sub(item.DiscountPct.Shift(-2)))
	return net.Mul(one.Add(item.TaxPct.Shift(-2)))
}
