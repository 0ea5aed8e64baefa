package ingestion

import (
	"context"
	"sort"
	"time"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/marketdata"
)

// TickCollector rolls live quote ticks into daily OHLCV bars, one bar
// per instrument per day.
type TickCollector struct {
	bars map[string]*domain.PriceBar // keyed by instrument_id + date key
}

// NewTickCollector creates an empty collector.
func NewTickCollector() *TickCollector {
	return &TickCollector{
		bars: make(map[string]*domain.PriceBar),
	}
}

// Consume drains the tick channel until it closes or the context is
// canceled, updating the in-progress daily bars.
func (c *TickCollector) Consume(ctx context.Context, ticks <-chan marketdata.QuoteTick) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tick, ok := <-ticks:
			if !ok {
				return nil
			}
			c.Add(tick)
		}
	}
}

// Add folds one tick into its instrument's daily bar.
func (c *TickCollector) Add(tick marketdata.QuoteTick) {
	if tick.InstrumentID == "" || tick.Price <= 0 {
		return
	}

	key := tick.InstrumentID + "|" + domain.DateKey(tick.Time)
	bar, ok := c.bars[key]
	if !ok {
		day := tick.Time.UTC().Truncate(24 * time.Hour)
		c.bars[key] = &domain.PriceBar{
			InstrumentID: tick.InstrumentID,
			Date:         day,
			Open:         tick.Price,
			High:         tick.Price,
			Low:          tick.Price,
			Close:        tick.Price,
			Volume:       tick.Volume,
		}
		return
	}

	if tick.Price > bar.High {
		bar.High = tick.Price
	}
	if tick.Price < bar.Low {
		bar.Low = tick.Price
	}
	bar.Close = tick.Price
	bar.Volume += tick.Volume
}

// Bars returns the collected daily bars sorted by instrument then date.
func (c *TickCollector) Bars() []domain.PriceBar {
	out := make([]domain.PriceBar, 0, len(c.bars))
	for _, b := range c.bars {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].InstrumentID != out[j].InstrumentID {
			return out[i].InstrumentID < out[j].InstrumentID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}
