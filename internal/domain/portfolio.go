package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeAction identifies the side of an executed trade.
type TradeAction string

// Trade action constants.
const (
	ActionBuy  TradeAction = "BUY"
	ActionSell TradeAction = "SELL"
)

// PositionLot is a holding of one instrument. Shares are always a
// multiple of the configured board lot and never negative; a position
// whose share count reaches zero is removed from the holdings map.
type PositionLot struct {
	InstrumentID string
	Shares       int64
	AvgCost      decimal.Decimal // weighted-average cost basis per share
	AcquiredAt   time.Time
}

// Transaction is an immutable record of one executed trade, appended to
// an ordered log and never mutated or removed.
type Transaction struct {
	TxID         string
	RunID        string
	Date         time.Time
	InstrumentID string
	Action       TradeAction

	Price  float64
	Shares int64

	GrossAmount decimal.Decimal
	Commission  decimal.Decimal
	StampTax    decimal.Decimal // sell-side only
	TransferFee decimal.Decimal // Shanghai-listed instruments only
	Slippage    decimal.Decimal
	TotalCost   decimal.Decimal // commission + stamp tax + transfer fee + slippage

	// Realized result, sells only: proceeds net of costs minus the
	// weighted-average basis of the shares sold.
	RealizedPnL decimal.Decimal

	// Decision references the SignalDecision that triggered the trade.
	Decision *SignalDecision
}

// PortfolioSnapshot is the point-in-time record taken once per period.
// The snapshot list is the authoritative source for performance
// computation and is never recomputed retroactively.
type PortfolioSnapshot struct {
	RunID string
	Date  time.Time

	Cash decimal.Decimal

	// Positions maps instrument id to held shares at snapshot time.
	Positions map[string]int64

	// Prices holds the end-of-period price used to value each position.
	Prices map[string]float64

	MarketValue decimal.Decimal // sum of shares * price
	TotalValue  decimal.Decimal // cash + market value
}
