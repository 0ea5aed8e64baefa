package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

func TestInstrumentStore_InsertAndGetByID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewInstrumentStore(pool)
	ctx := context.Background()

	inst := &domain.Instrument{
		ID:        "600519",
		Name:      "Kweichow Moutai",
		Industry:  "Beverages",
		FairValue: 1800.0,
		Shanghai:  true,
	}

	require.NoError(t, store.Insert(ctx, inst))

	got, err := store.GetByID(ctx, "600519")
	require.NoError(t, err)
	assert.Equal(t, inst.ID, got.ID)
	assert.Equal(t, inst.Name, got.Name)
	assert.Equal(t, inst.Industry, got.Industry)
	assert.Equal(t, inst.FairValue, got.FairValue)
	assert.True(t, got.Shanghai)
}

func TestInstrumentStore_InsertDuplicate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewInstrumentStore(pool)
	ctx := context.Background()

	inst := &domain.Instrument{ID: "000001", Name: "Ping An Bank", Industry: "Banks"}
	require.NoError(t, store.Insert(ctx, inst))

	err := store.Insert(ctx, inst)
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey), "expected ErrDuplicateKey, got %v", err)
}

func TestInstrumentStore_GetByIDNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewInstrumentStore(pool)

	_, err := store.GetByID(context.Background(), "999999")
	assert.True(t, errors.Is(err, storage.ErrNotFound), "expected ErrNotFound, got %v", err)
}

func TestInstrumentStore_GetByIndustryOrdering(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewInstrumentStore(pool)
	ctx := context.Background()

	// Insert out of order; reads must come back sorted by instrument_id.
	for _, inst := range []*domain.Instrument{
		{ID: "601398", Name: "ICBC", Industry: "Banks", Shanghai: true},
		{ID: "000001", Name: "Ping An Bank", Industry: "Banks"},
		{ID: "600519", Name: "Kweichow Moutai", Industry: "Beverages", Shanghai: true},
	} {
		require.NoError(t, store.Insert(ctx, inst))
	}

	banks, err := store.GetByIndustry(ctx, "Banks")
	require.NoError(t, err)
	require.Len(t, banks, 2)
	assert.Equal(t, "000001", banks[0].ID)
	assert.Equal(t, "601398", banks[1].ID)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "000001", all[0].ID)
	assert.Equal(t, "600519", all[1].ID)
	assert.Equal(t, "601398", all[2].ID)

	empty, err := store.GetByIndustry(ctx, "Utilities")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
