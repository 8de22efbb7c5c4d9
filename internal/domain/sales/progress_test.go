package sales

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProgressSnapshot(t *testing.T) {
	t.Run("rounds amount to two digits and normalizes date", func(t *testing.T) {
		result := AggregateResult{
			Amount:          decimal.RequireFromString("0.2380119"),
			Units:           3,
			DistinctClients: 1,
			OrderCount:      1,
		}

		snap, err := NewProgressSnapshot("plan-1", time.Date(2025, 10, 21, 9, 0, 0, 0, time.UTC), result)

		require.NoError(t, err)
		assert.Equal(t, "plan-1", snap.PlanID)
		assert.Equal(t, time.Date(2025, 10, 21, 0, 0, 0, 0, time.UTC), snap.Date)
		assert.Equal(t, "0.24", snap.Amount.StringFixed(2))
		assert.Equal(t, int64(3), snap.Units)
		assert.Equal(t, 1, snap.DistinctClients)
		assert.Equal(t, 1, snap.OrderCount)
		assert.False(t, snap.UpdatedAt.IsZero())
	})

	t.Run("rounds half away from zero", func(t *testing.T) {
		snap, err := NewProgressSnapshot("plan-1", time.Now(), AggregateResult{Amount: decimal.RequireFromString("10.005")})

		require.NoError(t, err)
		assert.Equal(t, "10.01", snap.Amount.StringFixed(2))
	})

	t.Run("zero result is still a snapshot", func(t *testing.T) {
		snap, err := NewProgressSnapshot("plan-1", time.Now(), AggregateResult{Amount: decimal.Zero})

		require.NoError(t, err)
		assert.True(t, snap.Result().IsZero())
	})

	t.Run("rejects empty plan id", func(t *testing.T) {
		snap, err := NewProgressSnapshot(" ", time.Now(), AggregateResult{})

		assert.Nil(t, snap)
		assert.ErrorIs(t, err, ErrInvalidPlanID)
	})
}
