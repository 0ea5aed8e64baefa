package memory

import (
	"context"
	"sort"
	"sync"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

// SummaryStore is an in-memory implementation of storage.SummaryStore.
type SummaryStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PerformanceSummary // keyed by run_id
}

// NewSummaryStore creates a new in-memory summary store.
func NewSummaryStore() *SummaryStore {
	return &SummaryStore{
		data: make(map[string]*domain.PerformanceSummary),
	}
}

// Insert adds a new summary. Returns ErrDuplicateKey if run_id exists.
func (s *SummaryStore) Insert(_ context.Context, summary *domain.PerformanceSummary) error {
	if summary == nil || summary.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[summary.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	summaryCopy := *summary
	s.data[summary.RunID] = &summaryCopy
	return nil
}

// GetByRun retrieves the summary for a run. Returns ErrNotFound if not exists.
func (s *SummaryStore) GetByRun(_ context.Context, runID string) (*domain.PerformanceSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	summaryCopy := *summary
	return &summaryCopy, nil
}

// GetAll retrieves all summaries, ordered by start_date ASC, run_id ASC.
func (s *SummaryStore) GetAll(_ context.Context) ([]*domain.PerformanceSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.PerformanceSummary, 0, len(s.data))
	for _, summary := range s.data {
		summaryCopy := *summary
		result = append(result, &summaryCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartDate.Equal(result[j].StartDate) {
			return result[i].StartDate.Before(result[j].StartDate)
		}
		return result[i].RunID < result[j].RunID
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.SummaryStore = (*SummaryStore)(nil)
