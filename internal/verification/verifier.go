// Package verification checks that stored runs are reproducible and
// that bar history is internally consistent before a run trades on it.
package verification

import (
	"context"
	"fmt"
	"math"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/simulation"
	"rotation-lab/internal/storage"
)

// FloatTolerance is the tolerance for float64 comparisons when
// comparing a stored run against its replay.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string
	Expected interface{}
	Actual   interface{}
}

// RunVerification contains the result of replaying one run.
type RunVerification struct {
	RunID       string
	Match       bool
	Divergences []FieldDivergence
}

// VerifyRun re-executes a stored run from its bar history and compares
// the replayed transactions and summary against what was persisted.
// The simulator is deterministic, so any divergence means either the
// stored data or the engine changed.
func VerifyRun(
	ctx context.Context,
	sim *simulation.Simulator,
	instruments []domain.Instrument,
	bars map[string][]domain.PriceBar,
	txStore storage.TransactionStore,
	summaryStore storage.SummaryStore,
	runID string,
) (*RunVerification, error) {
	stored, err := txStore.GetByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load stored transactions: %w", err)
	}
	storedSummary, err := summaryStore.GetByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load stored summary: %w", err)
	}

	result, err := sim.Run(ctx, instruments, bars)
	if err != nil {
		return nil, fmt.Errorf("replay run: %w", err)
	}

	verification := &RunVerification{RunID: runID}

	if result.RunID != runID {
		verification.Divergences = append(verification.Divergences, FieldDivergence{
			Field: "RunID", Expected: runID, Actual: result.RunID,
		})
	}

	verification.Divergences = append(verification.Divergences,
		compareTransactions(stored, result.Transactions)...)
	verification.Divergences = append(verification.Divergences,
		compareSummaries(storedSummary, result.Summary)...)

	verification.Match = len(verification.Divergences) == 0
	return verification, nil
}

func compareTransactions(stored, replayed []*domain.Transaction) []FieldDivergence {
	var divergences []FieldDivergence

	if len(stored) != len(replayed) {
		return append(divergences, FieldDivergence{
			Field: "TransactionCount", Expected: len(stored), Actual: len(replayed),
		})
	}

	for i := range stored {
		s, r := stored[i], replayed[i]
		prefix := fmt.Sprintf("Transaction[%d].", i)

		if s.TxID != r.TxID {
			divergences = append(divergences, FieldDivergence{
				Field: prefix + "TxID", Expected: s.TxID, Actual: r.TxID,
			})
			// IDs derive from everything else; no point comparing further.
			continue
		}
		if s.Shares != r.Shares {
			divergences = append(divergences, FieldDivergence{
				Field: prefix + "Shares", Expected: s.Shares, Actual: r.Shares,
			})
		}
		if !s.TotalCost.Equal(r.TotalCost) {
			divergences = append(divergences, FieldDivergence{
				Field: prefix + "TotalCost", Expected: s.TotalCost.String(), Actual: r.TotalCost.String(),
			})
		}
		if !s.RealizedPnL.Equal(r.RealizedPnL) {
			divergences = append(divergences, FieldDivergence{
				Field: prefix + "RealizedPnL", Expected: s.RealizedPnL.String(), Actual: r.RealizedPnL.String(),
			})
		}
	}

	return divergences
}

func compareSummaries(stored, replayed *domain.PerformanceSummary) []FieldDivergence {
	var divergences []FieldDivergence

	floatFields := []struct {
		name             string
		expected, actual float64
	}{
		{"Summary.TotalReturn", stored.TotalReturn, replayed.TotalReturn},
		{"Summary.MaxDrawdown", stored.MaxDrawdown, replayed.MaxDrawdown},
		{"Summary.SharpeRatio", stored.SharpeRatio, replayed.SharpeRatio},
		{"Summary.FinalValue", stored.FinalValue, replayed.FinalValue},
	}
	for _, f := range floatFields {
		if math.Abs(f.expected-f.actual) > FloatTolerance {
			divergences = append(divergences, FieldDivergence{
				Field: f.name, Expected: f.expected, Actual: f.actual,
			})
		}
	}

	if stored.TradeCount != replayed.TradeCount {
		divergences = append(divergences, FieldDivergence{
			Field: "Summary.TradeCount", Expected: stored.TradeCount, Actual: replayed.TradeCount,
		})
	}

	return divergences
}
