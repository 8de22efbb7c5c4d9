package persistence

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/salescrm/backend/internal/domain/sales"
	"github.com/salescrm/backend/internal/domain/shared"
	"github.com/salescrm/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(amount string, units int64, clients, orders int) sales.AggregateResult {
	return sales.AggregateResult{
		Amount:          decimal.RequireFromString(amount),
		Units:           units,
		DistinctClients: clients,
		OrderCount:      orders,
	}
}

// writerResult is what concurrent writer i stores: every measure equals i,
// plus fifty cents on the amount
func writerResult(i int) sales.AggregateResult {
	return result(fmt.Sprintf("%d.50", i), int64(i), i, i)
}

// assertOneWriter checks that every column of snap came from the same
// writerResult call, so no write interleaved with another
func assertOneWriter(t *testing.T, snap sales.ProgressSnapshot) {
	t.Helper()
	i := snap.Amount.IntPart()
	assert.True(t, decimal.RequireFromString(fmt.Sprintf("%d.50", i)).Equal(snap.Amount), "amount %s", snap.Amount)
	assert.Equal(t, i, snap.Units, "units")
	assert.Equal(t, int(i), snap.DistinctClients, "distinct clients")
	assert.Equal(t, int(i), snap.OrderCount, "order count")
}

func countProgressRows(t *testing.T, store *GormProgressStore, planID string) int {
	t.Helper()
	rows, err := store.FindByPlan(context.Background(), planID)
	require.NoError(t, err)
	return len(rows)
}

func TestGormProgressStore_Upsert(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2025, 10, 21, 0, 0, 0, 0, time.UTC)

	t.Run("creates the snapshot on first write", func(t *testing.T) {
		store := NewGormProgressStore(singleDB{setupSQLite(t)})

		snap, err := store.Upsert(ctx, "plan-1", day, result("214.2", 2, 1, 1))
		require.NoError(t, err)
		assert.Equal(t, day, snap.Date)

		rows, err := store.FindByPlan(ctx, "plan-1")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.True(t, decimal.RequireFromString("214.20").Equal(rows[0].Amount), rows[0].Amount.String())
		assert.Equal(t, int64(2), rows[0].Units)
		assert.Equal(t, 1, rows[0].DistinctClients)
		assert.Equal(t, 1, rows[0].OrderCount)
	})

	t.Run("second write for the same day overwrites every measure", func(t *testing.T) {
		store := NewGormProgressStore(singleDB{setupSQLite(t)})

		_, err := store.Upsert(ctx, "plan-1", day, result("500", 10, 3, 4))
		require.NoError(t, err)
		_, err = store.Upsert(ctx, "plan-1", day.Add(15*time.Hour), result("0", 0, 0, 0))
		require.NoError(t, err)

		rows, err := store.FindByPlan(ctx, "plan-1")
		require.NoError(t, err)
		require.Len(t, rows, 1, "time of day must not create a second snapshot")
		assert.True(t, rows[0].Amount.IsZero())
		assert.Zero(t, rows[0].Units)
		assert.Zero(t, rows[0].DistinctClients)
		assert.Zero(t, rows[0].OrderCount)
	})

	t.Run("different days and plans are separate snapshots", func(t *testing.T) {
		store := NewGormProgressStore(singleDB{setupSQLite(t)})

		_, err := store.Upsert(ctx, "plan-1", day.AddDate(0, 0, 1), result("2", 2, 1, 1))
		require.NoError(t, err)
		_, err = store.Upsert(ctx, "plan-1", day, result("1", 1, 1, 1))
		require.NoError(t, err)
		_, err = store.Upsert(ctx, "plan-2", day, result("3", 3, 1, 1))
		require.NoError(t, err)

		rows, err := store.FindByPlan(ctx, "plan-1")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, day, rows[0].Date, "ordered by date")
		assert.Equal(t, day.AddDate(0, 0, 1), rows[1].Date)
		assert.Equal(t, 1, countProgressRows(t, store, "plan-2"))
	})

	t.Run("concurrent writes leave exactly one row from one writer", func(t *testing.T) {
		store := NewGormProgressStore(singleDB{setupSQLite(t)})

		const writers = 16
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := store.Upsert(ctx, "plan-c", day, writerResult(i))
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		rows, err := store.FindByPlan(ctx, "plan-c")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Less(t, rows[0].Amount.IntPart(), int64(writers))
		assertOneWriter(t, rows[0])
	})

	t.Run("late evening in a negative offset keeps its calendar day", func(t *testing.T) {
		store := NewGormProgressStore(singleDB{setupSQLite(t)})
		bogota := time.FixedZone("COT", -5*60*60)

		_, err := store.Upsert(ctx, "plan-tz", time.Date(2025, 10, 21, 23, 0, 0, 0, bogota), result("1", 1, 1, 1))
		require.NoError(t, err)

		rows, err := store.FindByPlan(ctx, "plan-tz")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, day, rows[0].Date)
	})

	t.Run("rejects an empty plan id", func(t *testing.T) {
		store := NewGormProgressStore(singleDB{setupSQLite(t)})

		_, err := store.Upsert(ctx, "", day, result("1", 1, 1, 1))

		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		assert.ErrorIs(t, err, sales.ErrInvalidPlanID)
	})
}

func TestGormProgressStore_UpsertSQL(t *testing.T) {
	d, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	router, err := NewCountryRouter(d.Scoped, []string{"CO"}, "CO")
	require.NoError(t, err)
	store := NewGormProgressStore(router)

	mock.ExpectExec(`INSERT INTO "co"."plan_progress" .* ON CONFLICT \("plan_id","snapshot_date"\) DO UPDATE SET "amount"="excluded"."amount","units"="excluded"."units","distinct_clients"="excluded"."distinct_clients","order_count"="excluded"."order_count","updated_at"="excluded"."updated_at"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := shared.WithCountry(context.Background(), "CO")
	_, err = store.Upsert(ctx, "plan-1", time.Now(), result("1", 1, 1, 1))

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanProgressModel_RoundTrip(t *testing.T) {
	snap, err := sales.NewProgressSnapshot("p", time.Date(2025, 1, 2, 13, 0, 0, 0, time.UTC), result("1.005", 1, 1, 1))
	require.NoError(t, err)

	back := models.PlanProgressModelFromDomain(snap).ToDomain()

	assert.Equal(t, snap.Date, back.Date)
	assert.Equal(t, "1.01", back.Amount.StringFixed(2))
}
