package reporting

import "time"

// Report represents the backtest run report structure.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunID       string

	// Performance summary
	Performance PerformanceSection

	// Equity curve, one row per snapshot (sorted by date)
	EquityCurve []EquityRow

	// Executed trades (sorted by date, tx_id)
	Trades []TradeRow

	// Signal activity per instrument across the run
	SignalActivity []SignalActivityRow
}

// PerformanceSection contains the headline run metrics.
type PerformanceSection struct {
	StartDate        time.Time
	EndDate          time.Time
	Periods          int
	InitialValue     float64
	FinalValue       float64
	TotalReturn      float64
	AnnualizedReturn float64
	MaxDrawdown      float64
	SharpeRatio      float64
	Volatility       float64
	TradeCount       int
	WinRate          float64
	TotalCosts       float64
}

// EquityRow represents one row in the equity curve table.
type EquityRow struct {
	Date        time.Time
	Cash        float64
	MarketValue float64
	TotalValue  float64
	Positions   int
}

// TradeRow represents one executed trade.
type TradeRow struct {
	Date         time.Time
	InstrumentID string
	Action       string
	Price        float64
	Shares       int64
	TotalCost    float64
	RealizedPnL  float64
	Reasons      string // trigger reasons joined with "; "
}

// SignalActivityRow summarizes one instrument's decisions.
type SignalActivityRow struct {
	InstrumentID string
	Buys         int
	Sells        int
	Holds        int
	Overrides    int
	Errors       int
}
