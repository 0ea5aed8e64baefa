package memory

import (
	"context"
	"sort"
	"sync"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

type snapshotKey struct {
	runID string
	date  string
}

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[snapshotKey]*domain.PortfolioSnapshot
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[snapshotKey]*domain.PortfolioSnapshot),
	}
}

// InsertBulk adds multiple snapshots. Fails entire batch on duplicate (run_id, date).
func (s *SnapshotStore) InsertBulk(_ context.Context, snaps []*domain.PortfolioSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[snapshotKey]struct{}, len(snaps))
	for _, snap := range snaps {
		if snap == nil || snap.RunID == "" {
			return storage.ErrInvalidInput
		}
		k := snapshotKey{snap.RunID, domain.DateKey(snap.Date)}
		if _, dup := seen[k]; dup {
			return storage.ErrDuplicateKey
		}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, snap := range snaps {
		s.data[snapshotKey{snap.RunID, domain.DateKey(snap.Date)}] = copySnapshot(snap)
	}
	return nil
}

// GetByRun retrieves all snapshots for a run, ordered by date ASC.
func (s *SnapshotStore) GetByRun(_ context.Context, runID string) ([]*domain.PortfolioSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PortfolioSnapshot
	for k, snap := range s.data {
		if k.runID == runID {
			result = append(result, copySnapshot(snap))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})

	return result, nil
}

// copySnapshot deep-copies a snapshot including its position and price maps.
func copySnapshot(snap *domain.PortfolioSnapshot) *domain.PortfolioSnapshot {
	snapCopy := *snap
	snapCopy.Positions = make(map[string]int64, len(snap.Positions))
	for id, shares := range snap.Positions {
		snapCopy.Positions[id] = shares
	}
	snapCopy.Prices = make(map[string]float64, len(snap.Prices))
	for id, price := range snap.Prices {
		snapCopy.Prices[id] = price
	}
	return &snapCopy
}

// Verify interface compliance at compile time.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)
