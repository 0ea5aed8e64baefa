package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

type barKey struct {
	instrumentID string
	date         string
}

// BarStore is an in-memory implementation of storage.BarStore.
type BarStore struct {
	mu   sync.RWMutex
	data map[barKey]*domain.PriceBar
}

// NewBarStore creates a new in-memory bar store.
func NewBarStore() *BarStore {
	return &BarStore{
		data: make(map[barKey]*domain.PriceBar),
	}
}

// InsertBulk adds multiple bars. Fails entire batch on duplicate (instrument_id, date).
func (s *BarStore) InsertBulk(_ context.Context, bars []*domain.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check for intra-batch and existing duplicates before writing anything
	seen := make(map[barKey]struct{}, len(bars))
	for _, b := range bars {
		if b == nil || b.InstrumentID == "" {
			return storage.ErrInvalidInput
		}
		k := barKey{b.InstrumentID, domain.DateKey(b.Date)}
		if _, dup := seen[k]; dup {
			return storage.ErrDuplicateKey
		}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, b := range bars {
		barCopy := *b
		s.data[barKey{b.InstrumentID, domain.DateKey(b.Date)}] = &barCopy
	}
	return nil
}

// GetByInstrument retrieves all bars for an instrument, ordered by date ASC.
func (s *BarStore) GetByInstrument(_ context.Context, instrumentID string) ([]*domain.PriceBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceBar
	for k, b := range s.data {
		if k.instrumentID == instrumentID {
			barCopy := *b
			result = append(result, &barCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})

	return result, nil
}

// GetByDateRange retrieves bars for an instrument within [start, end] (inclusive).
func (s *BarStore) GetByDateRange(_ context.Context, instrumentID string, start, end time.Time) ([]*domain.PriceBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceBar
	for k, b := range s.data {
		if k.instrumentID != instrumentID {
			continue
		}
		if b.Date.Before(start) || b.Date.After(end) {
			continue
		}
		barCopy := *b
		result = append(result, &barCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.BarStore = (*BarStore)(nil)
