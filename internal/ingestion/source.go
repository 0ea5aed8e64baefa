// Package ingestion loads bar history into storage: from CSV exports,
// or by rolling live quote ticks into daily bars. Daily bars are
// resampled into the weekly periods the backtest consumes.
package ingestion

import (
	"context"

	"rotation-lab/internal/domain"
)

// Source yields price bars from some upstream. Implementations return
// bars in any order; the ingestor sorts before persisting.
type Source interface {
	Bars(ctx context.Context) ([]domain.PriceBar, error)
}
