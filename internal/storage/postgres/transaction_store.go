package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

// TransactionStore implements storage.TransactionStore using PostgreSQL.
// Monetary columns are NUMERIC and round-trip through decimal strings
// so no float precision is lost.
type TransactionStore struct {
	pool *Pool
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(pool *Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

const insertTransactionQuery = `
	INSERT INTO transactions (
		tx_id, run_id, date, instrument_id, action, price, shares,
		gross_amount, commission, stamp_tax, transfer_fee, slippage,
		total_cost, realized_pnl
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
`

// Insert adds a new transaction. Returns ErrDuplicateKey if tx_id exists.
func (s *TransactionStore) Insert(ctx context.Context, tx *domain.Transaction) error {
	_, err := s.pool.Exec(ctx, insertTransactionQuery, transactionArgs(tx)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// InsertBulk adds multiple transactions atomically. Fails entire batch on any duplicate.
func (s *TransactionStore) InsertBulk(ctx context.Context, txs []*domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	dbTx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback(ctx)

	for _, tx := range txs {
		if _, err := dbTx.Exec(ctx, insertTransactionQuery, transactionArgs(tx)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert transaction %s: %w", tx.TxID, err)
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transactions: %w", err)
	}
	return nil
}

// GetByID retrieves a transaction by its ID. Returns ErrNotFound if not exists.
func (s *TransactionStore) GetByID(ctx context.Context, txID string) (*domain.Transaction, error) {
	query := selectTransactionQuery + ` WHERE tx_id = $1`

	row := s.pool.QueryRow(ctx, query, txID)
	tx, err := scanTransaction(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get transaction by id: %w", err)
	}
	return tx, nil
}

// GetByRun retrieves all transactions for a run, ordered by date ASC, tx_id ASC.
func (s *TransactionStore) GetByRun(ctx context.Context, runID string) ([]*domain.Transaction, error) {
	query := selectTransactionQuery + ` WHERE run_id = $1 ORDER BY date ASC, tx_id ASC`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query transactions by run: %w", err)
	}
	defer rows.Close()

	var result []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		result = append(result, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return result, nil
}

const selectTransactionQuery = `
	SELECT tx_id, run_id, date, instrument_id, action, price, shares,
		gross_amount, commission, stamp_tax, transfer_fee, slippage,
		total_cost, realized_pnl
	FROM transactions
`

func transactionArgs(tx *domain.Transaction) []any {
	return []any{
		tx.TxID,
		tx.RunID,
		tx.Date,
		tx.InstrumentID,
		string(tx.Action),
		tx.Price,
		tx.Shares,
		tx.GrossAmount.String(),
		tx.Commission.String(),
		tx.StampTax.String(),
		tx.TransferFee.String(),
		tx.Slippage.String(),
		tx.TotalCost.String(),
		tx.RealizedPnL.String(),
	}
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		tx     domain.Transaction
		action string
		date   time.Time
		money  [7]string
	)
	err := row.Scan(
		&tx.TxID, &tx.RunID, &date, &tx.InstrumentID, &action,
		&tx.Price, &tx.Shares,
		&money[0], &money[1], &money[2], &money[3], &money[4], &money[5], &money[6],
	)
	if err != nil {
		return nil, err
	}

	tx.Date = date.UTC()
	tx.Action = domain.TradeAction(action)

	fields := []*decimal.Decimal{
		&tx.GrossAmount, &tx.Commission, &tx.StampTax, &tx.TransferFee,
		&tx.Slippage, &tx.TotalCost, &tx.RealizedPnL,
	}
	for i, dst := range fields {
		d, err := decimal.NewFromString(money[i])
		if err != nil {
			return nil, fmt.Errorf("parse decimal column %d: %w", i, err)
		}
		*dst = d
	}
	return &tx, nil
}
