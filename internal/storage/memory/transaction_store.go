package memory

import (
	"context"
	"sort"
	"sync"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

// TransactionStore is an in-memory implementation of storage.TransactionStore.
type TransactionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Transaction // keyed by tx_id
}

// NewTransactionStore creates a new in-memory transaction store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		data: make(map[string]*domain.Transaction),
	}
}

// Insert adds a new transaction. Returns ErrDuplicateKey if tx_id exists.
func (s *TransactionStore) Insert(_ context.Context, tx *domain.Transaction) error {
	if tx == nil || tx.TxID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertLocked(tx)
}

// InsertBulk adds multiple transactions atomically. Fails entire batch on any duplicate.
func (s *TransactionStore) InsertBulk(_ context.Context, txs []*domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(txs))
	for _, tx := range txs {
		if tx == nil || tx.TxID == "" {
			return storage.ErrInvalidInput
		}
		if _, dup := seen[tx.TxID]; dup {
			return storage.ErrDuplicateKey
		}
		if _, exists := s.data[tx.TxID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[tx.TxID] = struct{}{}
	}

	for _, tx := range txs {
		if err := s.insertLocked(tx); err != nil {
			return err
		}
	}
	return nil
}

func (s *TransactionStore) insertLocked(tx *domain.Transaction) error {
	if _, exists := s.data[tx.TxID]; exists {
		return storage.ErrDuplicateKey
	}
	txCopy := *tx
	s.data[tx.TxID] = &txCopy
	return nil
}

// GetByID retrieves a transaction by its ID. Returns ErrNotFound if not exists.
func (s *TransactionStore) GetByID(_ context.Context, txID string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, exists := s.data[txID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	txCopy := *tx
	return &txCopy, nil
}

// GetByRun retrieves all transactions for a run, ordered by date ASC, tx_id ASC.
func (s *TransactionStore) GetByRun(_ context.Context, runID string) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Transaction
	for _, tx := range s.data {
		if tx.RunID == runID {
			txCopy := *tx
			result = append(result, &txCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].TxID < result[j].TxID
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.TransactionStore = (*TransactionStore)(nil)
