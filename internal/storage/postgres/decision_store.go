package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

// DecisionStore implements storage.DecisionStore using PostgreSQL.
// The gate, dimension results and trigger reasons are stored as JSONB
// so the full audit trail survives persistence.
type DecisionStore struct {
	pool *Pool
}

// NewDecisionStore creates a new DecisionStore.
func NewDecisionStore(pool *Pool) *DecisionStore {
	return &DecisionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DecisionStore = (*DecisionStore)(nil)

// InsertBulk adds multiple decisions for a run.
func (s *DecisionStore) InsertBulk(ctx context.Context, runID string, decisions []*domain.SignalDecision) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(decisions) == 0 {
		return nil
	}

	query := `
		INSERT INTO signal_decisions (
			run_id, instrument_id, date, kind, gate, dimensions,
			total_score, override, trigger_reasons, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	dbTx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback(ctx)

	for _, d := range decisions {
		gate, err := json.Marshal(d.Gate)
		if err != nil {
			return fmt.Errorf("marshal gate: %w", err)
		}
		dims, err := json.Marshal(d.Dimensions)
		if err != nil {
			return fmt.Errorf("marshal dimensions: %w", err)
		}
		reasons, err := json.Marshal(d.TriggerReasons)
		if err != nil {
			return fmt.Errorf("marshal trigger reasons: %w", err)
		}

		_, err = dbTx.Exec(ctx, query,
			runID, d.InstrumentID, d.Date, string(d.Kind),
			gate, dims, d.TotalScore, d.Override, reasons, d.Err,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert decision: %w", err)
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit decisions: %w", err)
	}
	return nil
}

// GetByRun retrieves all decisions for a run, ordered by date ASC, instrument_id ASC.
func (s *DecisionStore) GetByRun(ctx context.Context, runID string) ([]*domain.SignalDecision, error) {
	query := selectDecisionQuery + ` WHERE run_id = $1 ORDER BY date ASC, instrument_id ASC`
	return s.queryDecisions(ctx, query, runID)
}

// GetByInstrument retrieves a run's decisions for one instrument, ordered by date ASC.
func (s *DecisionStore) GetByInstrument(ctx context.Context, runID, instrumentID string) ([]*domain.SignalDecision, error) {
	query := selectDecisionQuery + ` WHERE run_id = $1 AND instrument_id = $2 ORDER BY date ASC`
	return s.queryDecisions(ctx, query, runID, instrumentID)
}

const selectDecisionQuery = `
	SELECT instrument_id, date, kind, gate, dimensions,
		total_score, override, trigger_reasons, error
	FROM signal_decisions
`

func (s *DecisionStore) queryDecisions(ctx context.Context, query string, args ...any) ([]*domain.SignalDecision, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var result []*domain.SignalDecision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("scan decision row: %w", err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decision rows: %w", err)
	}
	return result, nil
}

func scanDecision(row pgx.Row) (*domain.SignalDecision, error) {
	var (
		d                      domain.SignalDecision
		date                   time.Time
		kind                   string
		gateRaw, dimsRaw, rsns []byte
	)
	err := row.Scan(&d.InstrumentID, &date, &kind, &gateRaw, &dimsRaw,
		&d.TotalScore, &d.Override, &rsns, &d.Err)
	if err != nil {
		return nil, err
	}

	d.Date = date.UTC()
	d.Kind = domain.DecisionKind(kind)
	if err := json.Unmarshal(gateRaw, &d.Gate); err != nil {
		return nil, fmt.Errorf("unmarshal gate: %w", err)
	}
	if err := json.Unmarshal(dimsRaw, &d.Dimensions); err != nil {
		return nil, fmt.Errorf("unmarshal dimensions: %w", err)
	}
	if err := json.Unmarshal(rsns, &d.TriggerReasons); err != nil {
		return nil, fmt.Errorf("unmarshal trigger reasons: %w", err)
	}
	return &d, nil
}
