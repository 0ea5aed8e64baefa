package domain

import "time"

// PerformanceSummary aggregates a completed run. Pure function of the
// snapshot history and transaction log; computed post-hoc, never fed
// back into the simulation.
type PerformanceSummary struct {
	RunID string

	StartDate time.Time
	EndDate   time.Time
	Periods   int

	InitialValue float64
	FinalValue   float64

	TotalReturn      float64 // (final - initial) / initial
	AnnualizedReturn float64 // (1+total)^(365/days) - 1
	MaxDrawdown      float64 // max of (peak - value) / peak
	SharpeRatio      float64 // annualized mean/stdev of period returns
	Volatility       float64 // annualized stdev of period returns

	TradeCount int
	BuyCount   int
	SellCount  int
	WinCount   int
	WinRate    float64 // winning sells / total sells

	TotalCosts float64 // sum of all transaction costs
}
