package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

// SummaryStore implements storage.SummaryStore using PostgreSQL.
type SummaryStore struct {
	pool *Pool
}

// NewSummaryStore creates a new SummaryStore.
func NewSummaryStore(pool *Pool) *SummaryStore {
	return &SummaryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SummaryStore = (*SummaryStore)(nil)

// Insert adds a new summary. Returns ErrDuplicateKey if run_id exists.
func (s *SummaryStore) Insert(ctx context.Context, summary *domain.PerformanceSummary) error {
	query := `
		INSERT INTO run_summaries (
			run_id, start_date, end_date, periods, initial_value, final_value,
			total_return, annualized_return, max_drawdown, sharpe_ratio, volatility,
			trade_count, buy_count, sell_count, win_count, win_rate, total_costs
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := s.pool.Exec(ctx, query,
		summary.RunID, summary.StartDate, summary.EndDate, summary.Periods,
		summary.InitialValue, summary.FinalValue,
		summary.TotalReturn, summary.AnnualizedReturn, summary.MaxDrawdown,
		summary.SharpeRatio, summary.Volatility,
		summary.TradeCount, summary.BuyCount, summary.SellCount,
		summary.WinCount, summary.WinRate, summary.TotalCosts,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert summary: %w", err)
	}
	return nil
}

// GetByRun retrieves the summary for a run. Returns ErrNotFound if not exists.
func (s *SummaryStore) GetByRun(ctx context.Context, runID string) (*domain.PerformanceSummary, error) {
	query := selectSummaryQuery + ` WHERE run_id = $1`

	row := s.pool.QueryRow(ctx, query, runID)
	summary, err := scanSummary(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get summary by run: %w", err)
	}
	return summary, nil
}

// GetAll retrieves all summaries, ordered by start_date ASC, run_id ASC.
func (s *SummaryStore) GetAll(ctx context.Context) ([]*domain.PerformanceSummary, error) {
	query := selectSummaryQuery + ` ORDER BY start_date ASC, run_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all summaries: %w", err)
	}
	defer rows.Close()

	var result []*domain.PerformanceSummary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		result = append(result, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary rows: %w", err)
	}
	return result, nil
}

const selectSummaryQuery = `
	SELECT run_id, start_date, end_date, periods, initial_value, final_value,
		total_return, annualized_return, max_drawdown, sharpe_ratio, volatility,
		trade_count, buy_count, sell_count, win_count, win_rate, total_costs
	FROM run_summaries
`

func scanSummary(row pgx.Row) (*domain.PerformanceSummary, error) {
	var (
		s          domain.PerformanceSummary
		start, end time.Time
	)
	err := row.Scan(
		&s.RunID, &start, &end, &s.Periods, &s.InitialValue, &s.FinalValue,
		&s.TotalReturn, &s.AnnualizedReturn, &s.MaxDrawdown, &s.SharpeRatio, &s.Volatility,
		&s.TradeCount, &s.BuyCount, &s.SellCount, &s.WinCount, &s.WinRate, &s.TotalCosts,
	)
	if err != nil {
		return nil, err
	}
	s.StartDate = start.UTC()
	s.EndDate = end.UTC()
	return &s, nil
}
