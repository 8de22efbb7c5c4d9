package sales

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OrderTypeSale is the order type the orders service uses for sales ("VENTA").
const OrderTypeSale = "VENTA"

// OrderPageLimit is the page size requested from the order source.
// Only the first page is aggregated: a date with more matching orders than
// this is undercounted.
const OrderPageLimit = 200

// OrderQuery selects orders from the order source
type OrderQuery struct {
	Type          string
	CommittedDate time.Time
	Limit         int
	Offset        int
}

// OrderItem is one line of an order
type OrderItem struct {
	ProductID   string
	Quantity    int64
	UnitPrice   decimal.Decimal
	DiscountPct decimal.Decimal
	TaxPct      decimal.Decimal
}

// OrderRecord is an order as returned by the order source
type OrderRecord struct {
	SalespersonID string
	ClientID      string
	Items         []OrderItem
}

// OrderSource returns orders for a query. Implementations own their timeout.
type OrderSource interface {
	FetchOrders(ctx context.Context, query OrderQuery) ([]OrderRecord, error)
}

// OrderSourceFunc adapts a function to OrderSource
type OrderSourceFunc func(ctx context.Context, query OrderQuery) ([]OrderRecord, error)

// FetchOrders calls f
func (f OrderSourceFunc) FetchOrders(ctx context.Context, query OrderQuery) ([]OrderRecord, error) {
	return f(ctx, query)
}
