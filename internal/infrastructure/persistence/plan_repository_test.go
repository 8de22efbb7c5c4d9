package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/salescrm/backend/internal/domain/sales"
	"github.com/salescrm/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPlan(t *testing.T, salesperson, client string, start, end time.Time, products ...string) *sales.SalesPlan {
	t.Helper()
	units := int64(50)
	p, err := sales.NewSalesPlan(sales.NewPlanInput{
		SalespersonID:  salesperson,
		TargetClientID: client,
		ProductIDs:     products,
		GoalAmount:     decimal.NewNullDecimal(decimal.RequireFromString("1500.50")),
		GoalUnits:      &units,
		StartDate:      start,
		EndDate:        end,
	})
	require.NoError(t, err)
	return p
}

func TestGormPlanRepository(t *testing.T) {
	ctx := context.Background()
	oct1 := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	oct31 := time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC)

	t.Run("create and find by id with products", func(t *testing.T) {
		repo := NewGormPlanRepository(singleDB{setupSQLite(t)})
		plan := newTestPlan(t, "VEN-1", "CLI-1", oct1, oct31, "P1", "P2")

		require.NoError(t, repo.Create(ctx, plan))

		found, err := repo.FindByID(ctx, plan.ID)
		require.NoError(t, err)
		assert.Equal(t, "VEN-1", found.SalespersonID)
		assert.Equal(t, "CLI-1", found.TargetClientID)
		assert.ElementsMatch(t, []string{"P1", "P2"}, found.ProductIDs)
		assert.Equal(t, sales.PeriodMonthly, found.Period)
		assert.Equal(t, oct1, found.StartDate)
		assert.Equal(t, oct31, found.EndDate)
		assert.True(t, found.Active)
		require.True(t, found.GoalAmount.Valid)
		assert.Equal(t, "1500.50", found.GoalAmount.Decimal.StringFixed(2))
		assert.Equal(t, int64(50), *found.GoalUnits)
		assert.Nil(t, found.GoalClients)
	})

	t.Run("find by id of a missing plan is not found", func(t *testing.T) {
		repo := NewGormPlanRepository(singleDB{setupSQLite(t)})

		_, err := repo.FindByID(ctx, "missing")

		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("duplicate scope is detected and rejected by the unique index", func(t *testing.T) {
		repo := NewGormPlanRepository(singleDB{setupSQLite(t)})
		first := newTestPlan(t, "VEN-1", "CLI-1", oct1, oct31, "P1")
		require.NoError(t, repo.Create(ctx, first))

		dup := newTestPlan(t, "VEN-1", "CLI-1", oct1, oct31, "P9")
		exists, err := repo.ExistsDuplicate(ctx, dup)
		require.NoError(t, err)
		assert.True(t, exists)

		assert.ErrorIs(t, repo.Create(ctx, dup), shared.ErrAlreadyExists)

		other := newTestPlan(t, "VEN-1", "CLI-2", oct1, oct31, "P1")
		exists, err = repo.ExistsDuplicate(ctx, other)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("find all filters by salesperson", func(t *testing.T) {
		repo := NewGormPlanRepository(singleDB{setupSQLite(t)})
		require.NoError(t, repo.Create(ctx, newTestPlan(t, "VEN-1", "CLI-1", oct1, oct31, "P1")))
		require.NoError(t, repo.Create(ctx, newTestPlan(t, "VEN-2", "CLI-1", oct1, oct31, "P1")))

		all, err := repo.FindAll(ctx, sales.PlanFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)

		mine, err := repo.FindAll(ctx, sales.PlanFilter{SalespersonID: "VEN-2"})
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, "VEN-2", mine[0].SalespersonID)
		assert.Equal(t, []string{"P1"}, mine[0].ProductIDs)
	})

	t.Run("find active on a date", func(t *testing.T) {
		repo := NewGormPlanRepository(singleDB{setupSQLite(t)})
		october := newTestPlan(t, "VEN-1", "CLI-1", oct1, oct31, "P1")
		november := newTestPlan(t, "VEN-1", "CLI-1", oct31.AddDate(0, 0, 1), oct31.AddDate(0, 1, 0), "P1")
		inactive := newTestPlan(t, "VEN-2", "CLI-1", oct1, oct31, "P1")
		inactive.Active = false
		for _, p := range []*sales.SalesPlan{october, november, inactive} {
			require.NoError(t, repo.Create(ctx, p))
		}

		plans, err := repo.FindActiveOn(ctx, time.Date(2025, 10, 31, 18, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		require.Len(t, plans, 1)
		assert.Equal(t, october.ID, plans[0].ID)

		plans, err = repo.FindActiveOn(ctx, oct1)
		require.NoError(t, err)
		require.Len(t, plans, 1, "range bounds are inclusive")
	})
}
