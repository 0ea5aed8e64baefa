// Package metrics computes post-hoc performance summaries from a
// completed run's snapshot history and transaction log. Aggregation
// is a pure function of its inputs and never feeds back into the
// simulation.
package metrics

import (
	"errors"
	"sort"

	"rotation-lab/internal/domain"
)

// ErrNoSnapshots is returned when a run has no snapshot history.
var ErrNoSnapshots = errors.New("no snapshots available for aggregation")

// Aggregator computes performance summaries.
type Aggregator struct {
	// RiskFreeRate is the annual risk-free rate used in the Sharpe
	// ratio. Zero by default.
	RiskFreeRate float64
}

// NewAggregator creates a metrics aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Summarize computes all metrics for a run. Snapshots are sorted by
// date before any order-dependent calculation; a run that never
// traded yields zero returns and zero trade counts, not an error.
// Returns ErrNoSnapshots when the snapshot history is empty.
func (a *Aggregator) Summarize(runID string, snapshots []*domain.PortfolioSnapshot, transactions []*domain.Transaction) (*domain.PerformanceSummary, error) {
	if len(snapshots) == 0 {
		return nil, ErrNoSnapshots
	}

	sorted := make([]*domain.PortfolioSnapshot, len(snapshots))
	copy(sorted, snapshots)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	equity := make([]float64, len(sorted))
	for i, s := range sorted {
		equity[i], _ = s.TotalValue.Float64()
	}

	first := sorted[0]
	last := sorted[len(sorted)-1]
	days := int(last.Date.Sub(first.Date).Hours() / 24)

	totalReturn := computeTotalReturn(equity[0], equity[len(equity)-1])
	returns := computeReturns(equity)

	summary := &domain.PerformanceSummary{
		RunID:            runID,
		StartDate:        first.Date,
		EndDate:          last.Date,
		Periods:          len(sorted) - 1,
		InitialValue:     equity[0],
		FinalValue:       equity[len(equity)-1],
		TotalReturn:      totalReturn,
		AnnualizedReturn: computeAnnualizedReturn(totalReturn, days),
		MaxDrawdown:      computeMaxDrawdown(equity),
		SharpeRatio:      computeSharpe(returns, a.RiskFreeRate),
		Volatility:       computeVolatility(returns),
	}

	countTrades(summary, transactions)
	return summary, nil
}

// countTrades fills the trade-level fields. A sell counts as a win
// when its realized profit after costs is positive.
func countTrades(summary *domain.PerformanceSummary, transactions []*domain.Transaction) {
	for _, tx := range transactions {
		summary.TradeCount++
		costs, _ := tx.TotalCost.Float64()
		summary.TotalCosts += costs

		switch tx.Action {
		case domain.ActionBuy:
			summary.BuyCount++
		case domain.ActionSell:
			summary.SellCount++
			if tx.RealizedPnL.IsPositive() {
				summary.WinCount++
			}
		}
	}
	if summary.SellCount > 0 {
		summary.WinRate = float64(summary.WinCount) / float64(summary.SellCount)
	}
}
