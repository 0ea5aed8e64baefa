package clickhouse

import (
	"context"
	"fmt"
	"time"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

// BarStore implements storage.BarStore using ClickHouse. Price history
// is the high-volume table; everything else lives in Postgres.
type BarStore struct {
	conn *Conn
}

// NewBarStore creates a new BarStore.
func NewBarStore(conn *Conn) *BarStore {
	return &BarStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BarStore = (*BarStore)(nil)

// InsertBulk adds multiple bars. Fails entire batch on duplicate (instrument_id, date).
// ClickHouse MergeTree does not enforce uniqueness, so duplicates are
// checked explicitly before the batch is sent.
func (s *BarStore) InsertBulk(ctx context.Context, bars []*domain.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		instrumentID string
		date         string
	}
	seen := make(map[key]struct{})
	for _, b := range bars {
		k := key{b.InstrumentID, domain.DateKey(b.Date)}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, b := range bars {
		exists, err := s.exists(ctx, b.InstrumentID, b.Date)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_bars (
			instrument_id, date, open, high, low, close, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		err = batch.Append(
			b.InstrumentID, b.Date, b.Open, b.High, b.Low, b.Close, uint64(b.Volume),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByInstrument retrieves all bars for an instrument, ordered by date ASC.
func (s *BarStore) GetByInstrument(ctx context.Context, instrumentID string) ([]*domain.PriceBar, error) {
	query := `
		SELECT instrument_id, date, open, high, low, close, volume
		FROM price_bars
		WHERE instrument_id = ?
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, instrumentID)
	if err != nil {
		return nil, fmt.Errorf("query by instrument: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// GetByDateRange retrieves bars for an instrument within [start, end] (inclusive).
func (s *BarStore) GetByDateRange(ctx context.Context, instrumentID string, start, end time.Time) ([]*domain.PriceBar, error) {
	query := `
		SELECT instrument_id, date, open, high, low, close, volume
		FROM price_bars
		WHERE instrument_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, instrumentID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by date range: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// exists checks if a bar with the given key exists.
func (s *BarStore) exists(ctx context.Context, instrumentID string, date time.Time) (bool, error) {
	query := `
		SELECT count(*) FROM price_bars
		WHERE instrument_id = ? AND date = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, instrumentID, date).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanBars scans multiple rows.
func scanBars(rows chRows) ([]*domain.PriceBar, error) {
	var bars []*domain.PriceBar

	for rows.Next() {
		var b domain.PriceBar
		var date time.Time
		var volume uint64

		err := rows.Scan(
			&b.InstrumentID, &date, &b.Open, &b.High, &b.Low, &b.Close, &volume,
		)
		if err != nil {
			return nil, fmt.Errorf("scan price bar row: %w", err)
		}

		b.Date = date.UTC()
		b.Volume = int64(volume)
		bars = append(bars, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price bar rows: %w", err)
	}

	return bars, nil
}
