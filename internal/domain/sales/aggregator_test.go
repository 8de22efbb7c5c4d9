package sales

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/salescrm/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSource struct {
	orders  []OrderRecord
	err     error
	calls   int
	queries []OrderQuery
}

func (s *recordingSource) FetchOrders(_ context.Context, q OrderQuery) ([]OrderRecord, error) {
	s.calls++
	s.queries = append(s.queries, q)
	return s.orders, s.err
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testPlan(products ...string) *SalesPlan {
	return &SalesPlan{
		ID:             "plan-1",
		SalespersonID:  "VEN-1",
		TargetClientID: "CLI-1",
		ProductIDs:     products,
		Period:         PeriodMonthly,
		Active:         true,
	}
}

func item(product string, qty int64, price, discount, tax string) OrderItem {
	return OrderItem{
		ProductID:   product,
		Quantity:    qty,
		UnitPrice:   dec(price),
		DiscountPct: dec(discount),
		TaxPct:      dec(tax),
	}
}

func assertZero(t *testing.T, r AggregateResult) {
	t.Helper()
	assert.True(t, r.Amount.IsZero(), "amount should be zero, got %s", r.Amount)
	assert.Equal(t, int64(0), r.Units)
	assert.Equal(t, 0, r.DistinctClients)
	assert.Equal(t, 0, r.OrderCount)
	assert.True(t, r.IsZero())
}

var day = time.Date(2025, 10, 21, 15, 4, 5, 0, time.UTC)

func TestRecalculate_EmptyProductsShortCircuits(t *testing.T) {
	src := &recordingSource{orders: []OrderRecord{{
		SalespersonID: "VEN-1",
		ClientID:      "CLI-1",
		Items:         []OrderItem{item("P1", 2, "100", "0", "0")},
	}}}

	result, err := Recalculate(context.Background(), testPlan(), day, src)

	require.NoError(t, err)
	assertZero(t, result)
	assert.Equal(t, 0, src.calls, "order source must not be queried")
}

func TestRecalculate_FilterScenario(t *testing.T) {
	src := &recordingSource{orders: []OrderRecord{{
		SalespersonID: "VEN-1",
		ClientID:      "CLI-1",
		Items: []OrderItem{
			item("P1", 2, "100", "10", "19"),
			item("P2", 5, "10", "0", "0"),
		},
	}}}

	result, err := Recalculate(context.Background(), testPlan("P1"), day, src)

	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Units)
	assert.Equal(t, 1, result.OrderCount)
	assert.Equal(t, 1, result.DistinctClients)
	assert.True(t, result.Amount.Equal(dec("214.2")), "got %s", result.Amount)
}

func TestRecalculate_QueriesFirstPageOfSalesForDate(t *testing.T) {
	src := &recordingSource{}

	_, err := Recalculate(context.Background(), testPlan("P1"), day, src)

	require.NoError(t, err)
	require.Equal(t, 1, src.calls)
	q := src.queries[0]
	assert.Equal(t, OrderTypeSale, q.Type)
	assert.Equal(t, time.Date(2025, 10, 21, 0, 0, 0, 0, time.UTC), q.CommittedDate)
	assert.Equal(t, 200, q.Limit)
	assert.Equal(t, 0, q.Offset)
}

func TestRecalculate_SkipsNonMatchingOrders(t *testing.T) {
	tests := []struct {
		name  string
		order OrderRecord
	}{
		{
			name: "salesperson mismatch",
			order: OrderRecord{
				SalespersonID: "OTRO-VEND",
				ClientID:      "CLI-1",
				Items:         []OrderItem{item("P1", 2, "100", "10", "19")},
			},
		},
		{
			name: "salesperson differs only by case",
			order: OrderRecord{
				SalespersonID: "ven-1",
				ClientID:      "CLI-1",
				Items:         []OrderItem{item("P1", 2, "100", "10", "19")},
			},
		},
		{
			name: "client mismatch",
			order: OrderRecord{
				SalespersonID: "VEN-1",
				ClientID:      "CLI-2",
				Items:         []OrderItem{item("P1", 2, "100", "10", "19")},
			},
		},
		{
			name: "no matching items",
			order: OrderRecord{
				SalespersonID: "VEN-1",
				ClientID:      "CLI-1",
				Items: []OrderItem{
					item("P2", 5, "10", "0", "0"),
					item("P3", 1, "99.99", "0", "19"),
				},
			},
		},
		{
			name: "matching items without units",
			order: OrderRecord{
				SalespersonID: "VEN-1",
				ClientID:      "CLI-1",
				Items:         []OrderItem{item("P1", 0, "100", "0", "0")},
			},
		},
		{
			name: "order without items",
			order: OrderRecord{
				SalespersonID: "VEN-1",
				ClientID:      "CLI-1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &recordingSource{orders: []OrderRecord{tt.order}}

			result, err := Recalculate(context.Background(), testPlan("P1"), day, src)

			require.NoError(t, err)
			assertZero(t, result)
		})
	}
}

func TestRecalculate_SkippedOrdersDoNotAbortBatch(t *testing.T) {
	src := &recordingSource{orders: []OrderRecord{
		{SalespersonID: "OTRO-VEND", ClientID: "CLI-1", Items: []OrderItem{item("P1", 9, "1", "0", "0")}},
		{SalespersonID: "VEN-1", ClientID: "CLI-1", Items: []OrderItem{item("P1", 1, "50", "0", "0")}},
		{SalespersonID: "VEN-1", ClientID: "CLI-9", Items: []OrderItem{item("P1", 9, "1", "0", "0")}},
		{SalespersonID: "VEN-1", ClientID: "CLI-1", Items: []OrderItem{
			item("P1", 2, "10", "0", "0"),
			item("P2", 3, "10", "0", "0"),
		}},
	}}

	result, err := Recalculate(context.Background(), testPlan("P1", "P2"), day, src)

	require.NoError(t, err)
	assert.Equal(t, 2, result.OrderCount)
	assert.Equal(t, 1, result.DistinctClients)
	assert.Equal(t, int64(6), result.Units)
	assert.True(t, result.Amount.Equal(dec("100")), "got %s", result.Amount)
}

func TestRecalculate_DecimalExactness(t *testing.T) {
	t.Run("fractional cents across items", func(t *testing.T) {
		src := &recordingSource{orders: []OrderRecord{{
			SalespersonID: "VEN-1",
			ClientID:      "CLI-1",
			Items: []OrderItem{
				item("P1", 1, "0.10", "33.33", "19"),
				item("P2", 1, "0.10", "33.33", "19"),
				item("P3", 1, "0.10", "33.33", "19"),
			},
		}}}

		result, err := Recalculate(context.Background(), testPlan("P1", "P2", "P3"), day, src)

		require.NoError(t, err)
		// 0.10 × 0.6667 × 1.19 = 0.0793373, three times
		assert.Equal(t, "0.2380119", result.Amount.String())
	})

	t.Run("many small orders sum without drift", func(t *testing.T) {
		orders := make([]OrderRecord, 10)
		for i := range orders {
			orders[i] = OrderRecord{
				SalespersonID: "VEN-1",
				ClientID:      "CLI-1",
				Items:         []OrderItem{item("P1", 1, "0.1", "0", "0")},
			}
		}
		src := &recordingSource{orders: orders}

		result, err := Recalculate(context.Background(), testPlan("P1"), day, src)

		require.NoError(t, err)
		assert.True(t, result.Amount.Equal(dec("1")), "got %s", result.Amount)
		assert.Equal(t, 10, result.OrderCount)
		assert.Equal(t, 1, result.DistinctClients)
	})

	t.Run("compounded discount and tax", func(t *testing.T) {
		gross := ItemGross(item("P1", 3, "19.99", "12.5", "16"))
		// 59.97 × 0.875 × 1.16
		assert.Equal(t, "60.86955", gross.String())
	})
}

func TestRecalculate_SourceFailureIsTransient(t *testing.T) {
	boom := errors.New("dial tcp: connection refused")
	src := &recordingSource{err: boom}

	result, err := Recalculate(context.Background(), testPlan("P1"), day, src)

	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrUpstreamUnavailable)
	assert.ErrorIs(t, err, boom)
	assert.True(t, shared.IsTransient(err))
	assertZero(t, result)
	assert.Equal(t, 1, src.calls, "no retry on failure")
}

func TestRecalculate_NilPlan(t *testing.T) {
	_, err := Recalculate(context.Background(), nil, day, &recordingSource{})
	assert.ErrorIs(t, err, ErrPlanRequired)
}

func TestRecalculate_OrderSourceFunc(t *testing.T) {
	called := false
	src := OrderSourceFunc(func(_ context.Context, q OrderQuery) ([]OrderRecord, error) {
		called = true
		return []OrderRecord{{
			SalespersonID: "VEN-1",
			ClientID:      "CLI-1",
			Items:         []OrderItem{item("P1", 4, "2.5", "0", "0")},
		}}, nil
	})

	result, err := Recalculate(context.Background(), testPlan("P1"), day, src)

	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, int64(4), result.Units)
	assert.True(t, result.Amount.Equal(dec("10")))
}
