// Package marketdata streams live quotes over WebSocket. The backtest
// itself never touches this; it feeds the ingestion layer that builds
// the bar history the backtest replays.
package marketdata

import "time"

// QuoteTick is one traded-price observation for an instrument.
type QuoteTick struct {
	InstrumentID string    `json:"instrument_id"`
	Time         time.Time `json:"time"`
	Price        float64   `json:"price"`
	Volume       int64     `json:"volume"`
}
