package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

func testSummary(runID string, start time.Time) *domain.PerformanceSummary {
	return &domain.PerformanceSummary{
		RunID:            runID,
		StartDate:        start,
		EndDate:          start.AddDate(0, 0, 14),
		Periods:          2,
		InitialValue:     1000000,
		FinalValue:       1050000,
		TotalReturn:      0.05,
		AnnualizedReturn: 2.5659,
		MaxDrawdown:      0.02,
		SharpeRatio:      1.8,
		Volatility:       0.25,
		TradeCount:       4,
		BuyCount:         1,
		SellCount:        3,
		WinCount:         1,
		WinRate:          1.0 / 3.0,
		TotalCosts:       550,
	}
}

func TestSummaryStore_InsertAndGetByRun(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSummaryStore(pool)
	ctx := context.Background()

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	summary := testSummary("run-1", start)
	require.NoError(t, store.Insert(ctx, summary))

	got, err := store.GetByRun(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, summary.RunID, got.RunID)
	assert.True(t, got.StartDate.Equal(summary.StartDate))
	assert.True(t, got.EndDate.Equal(summary.EndDate))
	assert.Equal(t, summary.Periods, got.Periods)
	assert.Equal(t, summary.InitialValue, got.InitialValue)
	assert.Equal(t, summary.FinalValue, got.FinalValue)
	assert.Equal(t, summary.TotalReturn, got.TotalReturn)
	assert.Equal(t, summary.AnnualizedReturn, got.AnnualizedReturn)
	assert.Equal(t, summary.MaxDrawdown, got.MaxDrawdown)
	assert.Equal(t, summary.SharpeRatio, got.SharpeRatio)
	assert.Equal(t, summary.Volatility, got.Volatility)
	assert.Equal(t, summary.TradeCount, got.TradeCount)
	assert.Equal(t, summary.BuyCount, got.BuyCount)
	assert.Equal(t, summary.SellCount, got.SellCount)
	assert.Equal(t, summary.WinCount, got.WinCount)
	assert.Equal(t, summary.WinRate, got.WinRate)
	assert.Equal(t, summary.TotalCosts, got.TotalCosts)
}

func TestSummaryStore_InsertDuplicate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSummaryStore(pool)
	ctx := context.Background()

	summary := testSummary("run-1", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, store.Insert(ctx, summary))

	err := store.Insert(ctx, summary)
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey), "expected ErrDuplicateKey, got %v", err)
}

func TestSummaryStore_GetByRunNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSummaryStore(pool)

	_, err := store.GetByRun(context.Background(), "run-missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound), "expected ErrNotFound, got %v", err)
}

func TestSummaryStore_GetAllOrdering(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSummaryStore(pool)
	ctx := context.Background()

	early := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	late := time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Insert(ctx, testSummary("run-b", late)))
	require.NoError(t, store.Insert(ctx, testSummary("run-c", early)))
	require.NoError(t, store.Insert(ctx, testSummary("run-a", early)))

	got, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "run-a", got[0].RunID)
	assert.Equal(t, "run-c", got[1].RunID)
	assert.Equal(t, "run-b", got[2].RunID)
}
