package ingestion

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/observability"
	"rotation-lab/internal/storage"
)

// Ingestor pulls bars from a source, optionally resamples them to
// weekly periods, and persists them through a BarStore.
type Ingestor struct {
	source   Source
	barStore storage.BarStore
	weekly   bool
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// IngestorOptions contains configuration for creating an Ingestor.
type IngestorOptions struct {
	Source   Source
	BarStore storage.BarStore

	// Weekly resamples daily input into weekly bars before storing.
	Weekly bool

	Logger zerolog.Logger

	// Metrics is optional; nil disables instrumentation.
	Metrics *observability.Metrics
}

// NewIngestor creates an ingestor.
func NewIngestor(opts IngestorOptions) *Ingestor {
	return &Ingestor{
		source:   opts.Source,
		barStore: opts.BarStore,
		weekly:   opts.Weekly,
		logger:   opts.Logger.With().Str("component", "ingestor").Logger(),
		metrics:  opts.Metrics,
	}
}

// Run loads, resamples and stores all bars. Returns the stored count.
func (i *Ingestor) Run(ctx context.Context) (int, error) {
	bars, err := i.source.Bars(ctx)
	if err != nil {
		if i.metrics != nil {
			i.metrics.IngestionErrors.WithLabelValues("source").Inc()
		}
		return 0, fmt.Errorf("load bars: %w", err)
	}
	if i.metrics != nil {
		i.metrics.BarsIngested.Add(float64(len(bars)))
	}

	if i.weekly {
		before := len(bars)
		bars = ResampleWeekly(bars)
		i.logger.Info().Int("daily", before).Int("weekly", len(bars)).Msg("resampled to weekly bars")
	}

	ptrs := make([]*domain.PriceBar, len(bars))
	for idx := range bars {
		ptrs[idx] = &bars[idx]
	}

	if err := i.barStore.InsertBulk(ctx, ptrs); err != nil {
		if i.metrics != nil {
			i.metrics.IngestionErrors.WithLabelValues("store").Inc()
		}
		return 0, fmt.Errorf("store bars: %w", err)
	}
	if i.metrics != nil {
		i.metrics.BarsStored.Add(float64(len(bars)))
	}

	i.logger.Info().Int("bars", len(bars)).Msg("bars stored")
	return len(bars), nil
}
