package memory

import (
	"context"
	"sort"
	"sync"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

// InstrumentStore is an in-memory implementation of storage.InstrumentStore.
type InstrumentStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Instrument // keyed by instrument_id
}

// NewInstrumentStore creates a new in-memory instrument store.
func NewInstrumentStore() *InstrumentStore {
	return &InstrumentStore{
		data: make(map[string]*domain.Instrument),
	}
}

// Insert adds a new instrument. Returns ErrDuplicateKey if instrument_id exists.
func (s *InstrumentStore) Insert(_ context.Context, inst *domain.Instrument) error {
	if inst == nil || inst.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[inst.ID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	instCopy := *inst
	s.data[inst.ID] = &instCopy
	return nil
}

// GetByID retrieves an instrument by its ID. Returns ErrNotFound if not exists.
func (s *InstrumentStore) GetByID(_ context.Context, instrumentID string) (*domain.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, exists := s.data[instrumentID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	// Return a copy
	instCopy := *inst
	return &instCopy, nil
}

// GetByIndustry retrieves all instruments in an industry, ordered by instrument_id ASC.
func (s *InstrumentStore) GetByIndustry(_ context.Context, industry string) ([]*domain.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Instrument
	for _, inst := range s.data {
		if inst.Industry == industry {
			instCopy := *inst
			result = append(result, &instCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// GetAll retrieves all instruments, ordered by instrument_id ASC.
func (s *InstrumentStore) GetAll(_ context.Context) ([]*domain.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Instrument, 0, len(s.data))
	for _, inst := range s.data {
		instCopy := *inst
		result = append(result, &instCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.InstrumentStore = (*InstrumentStore)(nil)
