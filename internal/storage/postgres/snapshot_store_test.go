package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

func TestSnapshotStore_InsertBulkAndGetByRun(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSnapshotStore(pool)
	ctx := context.Background()

	d1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)

	snaps := []*domain.PortfolioSnapshot{
		{
			RunID:       "run-1",
			Date:        d2,
			Cash:        decimal.RequireFromString("899868"),
			Positions:   map[string]int64{"600519": 10000},
			Prices:      map[string]float64{"600519": 11.5},
			MarketValue: decimal.RequireFromString("115000"),
			TotalValue:  decimal.RequireFromString("1014868"),
		},
		{
			RunID:       "run-1",
			Date:        d1,
			Cash:        decimal.RequireFromString("1000000"),
			Positions:   map[string]int64{},
			Prices:      map[string]float64{},
			MarketValue: decimal.Zero,
			TotalValue:  decimal.RequireFromString("1000000"),
		},
	}
	require.NoError(t, store.InsertBulk(ctx, snaps))

	got, err := store.GetByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Ordered by date ASC regardless of insert order.
	assert.True(t, got[0].Date.Equal(d1))
	assert.True(t, got[1].Date.Equal(d2))

	first, second := got[0], got[1]
	requireDecimalEqual(t, decimal.RequireFromString("1000000"), first.Cash, "initial cash")
	assert.Empty(t, first.Positions)

	requireDecimalEqual(t, decimal.RequireFromString("899868"), second.Cash, "cash")
	requireDecimalEqual(t, decimal.RequireFromString("115000"), second.MarketValue, "market value")
	requireDecimalEqual(t, decimal.RequireFromString("1014868"), second.TotalValue, "total value")
	assert.Equal(t, int64(10000), second.Positions["600519"])
	assert.Equal(t, 11.5, second.Prices["600519"])
}

func TestSnapshotStore_DuplicateRunDate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSnapshotStore(pool)
	ctx := context.Background()

	snap := &domain.PortfolioSnapshot{
		RunID:       "run-1",
		Date:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Cash:        decimal.RequireFromString("1000000"),
		Positions:   map[string]int64{},
		Prices:      map[string]float64{},
		MarketValue: decimal.Zero,
		TotalValue:  decimal.RequireFromString("1000000"),
	}
	require.NoError(t, store.InsertBulk(ctx, []*domain.PortfolioSnapshot{snap}))

	err := store.InsertBulk(ctx, []*domain.PortfolioSnapshot{snap})
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey), "expected ErrDuplicateKey, got %v", err)
}

func TestSnapshotStore_GetByRunEmpty(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSnapshotStore(pool)

	got, err := store.GetByRun(context.Background(), "run-missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}
