package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

// InstrumentStore implements storage.InstrumentStore using PostgreSQL.
type InstrumentStore struct {
	pool *Pool
}

// NewInstrumentStore creates a new InstrumentStore.
func NewInstrumentStore(pool *Pool) *InstrumentStore {
	return &InstrumentStore{pool: pool}
}

// Compile-time interface check.
var _ storage.InstrumentStore = (*InstrumentStore)(nil)

// Insert adds a new instrument. Returns ErrDuplicateKey if instrument_id exists.
func (s *InstrumentStore) Insert(ctx context.Context, inst *domain.Instrument) error {
	query := `
		INSERT INTO instruments (
			instrument_id, name, industry, fair_value, shanghai
		) VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query,
		inst.ID,
		inst.Name,
		inst.Industry,
		inst.FairValue,
		inst.Shanghai,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert instrument: %w", err)
	}
	return nil
}

// GetByID retrieves an instrument by its ID. Returns ErrNotFound if not exists.
func (s *InstrumentStore) GetByID(ctx context.Context, instrumentID string) (*domain.Instrument, error) {
	query := `
		SELECT instrument_id, name, industry, fair_value, shanghai
		FROM instruments
		WHERE instrument_id = $1
	`

	row := s.pool.QueryRow(ctx, query, instrumentID)
	inst, err := scanInstrument(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get instrument by id: %w", err)
	}
	return inst, nil
}

// GetByIndustry retrieves all instruments in an industry, ordered by instrument_id ASC.
func (s *InstrumentStore) GetByIndustry(ctx context.Context, industry string) ([]*domain.Instrument, error) {
	query := `
		SELECT instrument_id, name, industry, fair_value, shanghai
		FROM instruments
		WHERE industry = $1
		ORDER BY instrument_id ASC
	`

	rows, err := s.pool.Query(ctx, query, industry)
	if err != nil {
		return nil, fmt.Errorf("query instruments by industry: %w", err)
	}
	defer rows.Close()

	return scanInstruments(rows)
}

// GetAll retrieves all instruments, ordered by instrument_id ASC.
func (s *InstrumentStore) GetAll(ctx context.Context) ([]*domain.Instrument, error) {
	query := `
		SELECT instrument_id, name, industry, fair_value, shanghai
		FROM instruments
		ORDER BY instrument_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all instruments: %w", err)
	}
	defer rows.Close()

	return scanInstruments(rows)
}

func scanInstrument(row pgx.Row) (*domain.Instrument, error) {
	var inst domain.Instrument
	err := row.Scan(&inst.ID, &inst.Name, &inst.Industry, &inst.FairValue, &inst.Shanghai)
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func scanInstruments(rows pgx.Rows) ([]*domain.Instrument, error) {
	var result []*domain.Instrument
	for rows.Next() {
		inst, err := scanInstrument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan instrument row: %w", err)
		}
		result = append(result, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate instrument rows: %w", err)
	}
	return result, nil
}
