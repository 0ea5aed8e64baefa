package evaluation

import (
	"fmt"

	"rotation-lab/internal/domain"
)

// Evaluator evaluates run summaries against acceptance criteria.
type Evaluator struct {
	criteria Criteria
}

// NewEvaluator creates an evaluator. Zero-valued criteria fields
// disable their checks.
func NewEvaluator(criteria Criteria) *Evaluator {
	return &Evaluator{criteria: criteria}
}

// Evaluate produces a Result from a run summary.
// ACCEPT only if every enabled criterion passes.
func (e *Evaluator) Evaluate(summary *domain.PerformanceSummary) *Result {
	var checks []CriterionResult
	c := e.criteria

	if c.MinTrades > 0 {
		checks = append(checks, CriterionResult{
			Name:      "Trade activity",
			Threshold: fmt.Sprintf(">= %d trades", c.MinTrades),
			Actual:    fmt.Sprintf("%d", summary.TradeCount),
			Pass:      summary.TradeCount >= c.MinTrades,
		})
	}

	checks = append(checks, CriterionResult{
		Name:      "Total return",
		Threshold: fmt.Sprintf(">= %.2f%%", c.MinTotalReturn*100),
		Actual:    fmt.Sprintf("%.2f%%", summary.TotalReturn*100),
		Pass:      summary.TotalReturn >= c.MinTotalReturn,
	})

	if c.MaxDrawdown > 0 {
		checks = append(checks, CriterionResult{
			Name:      "Max drawdown",
			Threshold: fmt.Sprintf("<= %.2f%%", c.MaxDrawdown*100),
			Actual:    fmt.Sprintf("%.2f%%", summary.MaxDrawdown*100),
			Pass:      summary.MaxDrawdown <= c.MaxDrawdown,
		})
	}

	if c.MinWinRate > 0 && summary.SellCount > 0 {
		checks = append(checks, CriterionResult{
			Name:      "Win rate",
			Threshold: fmt.Sprintf(">= %.2f%%", c.MinWinRate*100),
			Actual:    fmt.Sprintf("%.2f%%", summary.WinRate*100),
			Pass:      summary.WinRate >= c.MinWinRate,
		})
	}

	if c.MinSharpe != 0 {
		checks = append(checks, CriterionResult{
			Name:      "Sharpe ratio",
			Threshold: fmt.Sprintf(">= %.2f", c.MinSharpe),
			Actual:    fmt.Sprintf("%.4f", summary.SharpeRatio),
			Pass:      summary.SharpeRatio >= c.MinSharpe,
		})
	}

	if c.MaxCostShare > 0 && summary.InitialValue > 0 {
		share := summary.TotalCosts / summary.InitialValue
		checks = append(checks, CriterionResult{
			Name:      "Cost share of capital",
			Threshold: fmt.Sprintf("<= %.2f%%", c.MaxCostShare*100),
			Actual:    fmt.Sprintf("%.2f%%", share*100),
			Pass:      share <= c.MaxCostShare,
		})
	}

	verdict := VerdictAccept
	for _, check := range checks {
		if !check.Pass {
			verdict = VerdictReject
			break
		}
	}

	return &Result{
		Verdict:  verdict,
		Criteria: checks,
	}
}
