package memory

import (
	"context"
	"sort"
	"sync"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

// DecisionStore is an in-memory implementation of storage.DecisionStore.
type DecisionStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.SignalDecision // keyed by run_id
}

// NewDecisionStore creates a new in-memory decision store.
func NewDecisionStore() *DecisionStore {
	return &DecisionStore{
		data: make(map[string][]*domain.SignalDecision),
	}
}

// InsertBulk adds multiple decisions for a run.
func (s *DecisionStore) InsertBulk(_ context.Context, runID string, decisions []*domain.SignalDecision) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(decisions) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range decisions {
		if d == nil || d.InstrumentID == "" {
			return storage.ErrInvalidInput
		}
		decisionCopy := *d
		s.data[runID] = append(s.data[runID], &decisionCopy)
	}
	return nil
}

// GetByRun retrieves all decisions for a run, ordered by date ASC, instrument_id ASC.
func (s *DecisionStore) GetByRun(_ context.Context, runID string) ([]*domain.SignalDecision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.data[runID]
	result := make([]*domain.SignalDecision, 0, len(stored))
	for _, d := range stored {
		decisionCopy := *d
		result = append(result, &decisionCopy)
	}

	sortDecisions(result)
	return result, nil
}

// GetByInstrument retrieves a run's decisions for one instrument, ordered by date ASC.
func (s *DecisionStore) GetByInstrument(_ context.Context, runID, instrumentID string) ([]*domain.SignalDecision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SignalDecision
	for _, d := range s.data[runID] {
		if d.InstrumentID == instrumentID {
			decisionCopy := *d
			result = append(result, &decisionCopy)
		}
	}

	sortDecisions(result)
	return result, nil
}

func sortDecisions(decisions []*domain.SignalDecision) {
	sort.Slice(decisions, func(i, j int) bool {
		if !decisions[i].Date.Equal(decisions[j].Date) {
			return decisions[i].Date.Before(decisions[j].Date)
		}
		return decisions[i].InstrumentID < decisions[j].InstrumentID
	})
}

// Verify interface compliance at compile time.
var _ storage.DecisionStore = (*DecisionStore)(nil)
