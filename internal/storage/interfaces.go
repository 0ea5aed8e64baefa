package storage

import (
	"context"
	"time"

	"rotation-lab/internal/domain"
)

// InstrumentStore provides access to instruments storage.
type InstrumentStore interface {
	// Insert adds a new instrument. Returns ErrDuplicateKey if instrument_id exists.
	Insert(ctx context.Context, inst *domain.Instrument) error

	// GetByID retrieves an instrument by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, instrumentID string) (*domain.Instrument, error)

	// GetByIndustry retrieves all instruments in an industry, ordered by instrument_id ASC.
	GetByIndustry(ctx context.Context, industry string) ([]*domain.Instrument, error)

	// GetAll retrieves all instruments, ordered by instrument_id ASC.
	GetAll(ctx context.Context) ([]*domain.Instrument, error)
}

// BarStore provides access to price bar storage.
type BarStore interface {
	// InsertBulk adds multiple bars. Fails entire batch on duplicate (instrument_id, date).
	InsertBulk(ctx context.Context, bars []*domain.PriceBar) error

	// GetByInstrument retrieves all bars for an instrument, ordered by date ASC.
	GetByInstrument(ctx context.Context, instrumentID string) ([]*domain.PriceBar, error)

	// GetByDateRange retrieves bars for an instrument within [start, end] (inclusive).
	GetByDateRange(ctx context.Context, instrumentID string, start, end time.Time) ([]*domain.PriceBar, error)
}

// DecisionStore provides access to signal decision storage.
type DecisionStore interface {
	// InsertBulk adds multiple decisions for a run.
	InsertBulk(ctx context.Context, runID string, decisions []*domain.SignalDecision) error

	// GetByRun retrieves all decisions for a run, ordered by date ASC, instrument_id ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.SignalDecision, error)

	// GetByInstrument retrieves a run's decisions for one instrument, ordered by date ASC.
	GetByInstrument(ctx context.Context, runID, instrumentID string) ([]*domain.SignalDecision, error)
}

// TransactionStore provides access to executed trade storage.
type TransactionStore interface {
	// Insert adds a new transaction. Returns ErrDuplicateKey if tx_id exists.
	Insert(ctx context.Context, tx *domain.Transaction) error

	// InsertBulk adds multiple transactions atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, txs []*domain.Transaction) error

	// GetByID retrieves a transaction by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, txID string) (*domain.Transaction, error)

	// GetByRun retrieves all transactions for a run, ordered by date ASC, tx_id ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.Transaction, error)
}

// SnapshotStore provides access to portfolio snapshot storage.
type SnapshotStore interface {
	// InsertBulk adds multiple snapshots. Fails entire batch on duplicate (run_id, date).
	InsertBulk(ctx context.Context, snaps []*domain.PortfolioSnapshot) error

	// GetByRun retrieves all snapshots for a run, ordered by date ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.PortfolioSnapshot, error)
}

// SummaryStore provides access to run performance summaries.
type SummaryStore interface {
	// Insert adds a new summary. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, s *domain.PerformanceSummary) error

	// GetByRun retrieves the summary for a run. Returns ErrNotFound if not exists.
	GetByRun(ctx context.Context, runID string) (*domain.PerformanceSummary, error)

	// GetAll retrieves all summaries, ordered by start_date ASC, run_id ASC.
	GetAll(ctx context.Context) ([]*domain.PerformanceSummary, error)
}
