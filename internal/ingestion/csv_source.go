package ingestion

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"rotation-lab/internal/domain"
)

// CSVSource reads bars from a CSV file with the header
// instrument_id,date,open,high,low,close,volume. Dates are YYYY-MM-DD.
type CSVSource struct {
	Path string
}

var _ Source = (*CSVSource)(nil)

// Bars reads and parses the whole file.
func (s *CSVSource) Bars(_ context.Context) ([]domain.PriceBar, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 7

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if header[0] != "instrument_id" {
		return nil, fmt.Errorf("unexpected csv header %q", header[0])
	}

	var bars []domain.PriceBar
	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		line++

		bar, err := parseBarRecord(record)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		bars = append(bars, bar)
	}

	return bars, nil
}

func parseBarRecord(record []string) (domain.PriceBar, error) {
	date, err := time.Parse("2006-01-02", record[1])
	if err != nil {
		return domain.PriceBar{}, fmt.Errorf("parse date: %w", err)
	}

	var prices [4]float64
	for i, name := range []string{"open", "high", "low", "close"} {
		v, err := strconv.ParseFloat(record[2+i], 64)
		if err != nil {
			return domain.PriceBar{}, fmt.Errorf("parse %s: %w", name, err)
		}
		prices[i] = v
	}

	volume, err := strconv.ParseInt(record[6], 10, 64)
	if err != nil {
		return domain.PriceBar{}, fmt.Errorf("parse volume: %w", err)
	}

	return domain.PriceBar{
		InstrumentID: record[0],
		Date:         date.UTC(),
		Open:         prices[0],
		High:         prices[1],
		Low:          prices[2],
		Close:        prices[3],
		Volume:       volume,
	}, nil
}
