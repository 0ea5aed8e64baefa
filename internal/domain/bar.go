package domain

import "time"

// PriceBar represents one weekly OHLCV period for one instrument.
// Bars are immutable once produced by upstream data processing and are
// identified by (instrument_id, date). Per instrument the date sequence
// is strictly increasing with no duplicates.
type PriceBar struct {
	InstrumentID string
	Date         time.Time // period end, normalized to UTC midnight
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       int64
}

// DateKey formats a bar date as the canonical storage key (YYYY-MM-DD).
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// PeriodData pairs a price bar with its derived indicator snapshot.
// Element i of a series depends only on bars 0..i, never on later data.
type PeriodData struct {
	Bar        PriceBar
	Indicators IndicatorSnapshot
}
