package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
// Position and price maps are stored as JSONB.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// InsertBulk adds multiple snapshots. Fails entire batch on duplicate (run_id, date).
func (s *SnapshotStore) InsertBulk(ctx context.Context, snaps []*domain.PortfolioSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	query := `
		INSERT INTO portfolio_snapshots (
			run_id, date, cash, positions, prices, market_value, total_value
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	dbTx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback(ctx)

	for _, snap := range snaps {
		positions, err := json.Marshal(snap.Positions)
		if err != nil {
			return fmt.Errorf("marshal positions: %w", err)
		}
		prices, err := json.Marshal(snap.Prices)
		if err != nil {
			return fmt.Errorf("marshal prices: %w", err)
		}

		_, err = dbTx.Exec(ctx, query,
			snap.RunID,
			snap.Date,
			snap.Cash.String(),
			positions,
			prices,
			snap.MarketValue.String(),
			snap.TotalValue.String(),
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert snapshot: %w", err)
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit snapshots: %w", err)
	}
	return nil
}

// GetByRun retrieves all snapshots for a run, ordered by date ASC.
func (s *SnapshotStore) GetByRun(ctx context.Context, runID string) ([]*domain.PortfolioSnapshot, error) {
	query := `
		SELECT run_id, date, cash, positions, prices, market_value, total_value
		FROM portfolio_snapshots
		WHERE run_id = $1
		ORDER BY date ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query snapshots by run: %w", err)
	}
	defer rows.Close()

	var result []*domain.PortfolioSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		result = append(result, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return result, nil
}

func scanSnapshot(row pgx.Row) (*domain.PortfolioSnapshot, error) {
	var (
		snap                    domain.PortfolioSnapshot
		date                    time.Time
		cash, market, total     string
		positionsRaw, pricesRaw []byte
	)
	err := row.Scan(&snap.RunID, &date, &cash, &positionsRaw, &pricesRaw, &market, &total)
	if err != nil {
		return nil, err
	}

	snap.Date = date.UTC()
	if snap.Cash, err = decimal.NewFromString(cash); err != nil {
		return nil, fmt.Errorf("parse cash: %w", err)
	}
	if snap.MarketValue, err = decimal.NewFromString(market); err != nil {
		return nil, fmt.Errorf("parse market value: %w", err)
	}
	if snap.TotalValue, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse total value: %w", err)
	}
	if err := json.Unmarshal(positionsRaw, &snap.Positions); err != nil {
		return nil, fmt.Errorf("unmarshal positions: %w", err)
	}
	if err := json.Unmarshal(pricesRaw, &snap.Prices); err != nil {
		return nil, fmt.Errorf("unmarshal prices: %w", err)
	}
	return &snap, nil
}
