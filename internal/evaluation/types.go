// Package evaluation grades a completed run against acceptance
// criteria: is the strategy worth keeping on this universe? The
// verdict is a checklist, not a number, so a reviewer can see exactly
// which bar was missed.
package evaluation

// Verdict represents the final accept/reject result.
type Verdict string

const (
	VerdictAccept Verdict = "ACCEPT"
	VerdictReject Verdict = "REJECT"
)

// Criteria holds the acceptance thresholds. Zero values disable the
// corresponding check.
type Criteria struct {
	// MinTrades rejects runs with too little activity to judge.
	MinTrades int

	// MinTotalReturn is the floor on total return (e.g. 0 = must not lose money).
	MinTotalReturn float64

	// MaxDrawdown is the ceiling on peak-to-trough decline (fraction).
	MaxDrawdown float64

	// MinWinRate is the floor on winning sells / total sells.
	MinWinRate float64

	// MinSharpe is the floor on the annualized Sharpe ratio.
	MinSharpe float64

	// MaxCostShare rejects runs whose transaction costs consumed more
	// than this fraction of initial capital.
	MaxCostShare float64
}

// DefaultCriteria returns the standard acceptance bar.
func DefaultCriteria() Criteria {
	return Criteria{
		MinTrades:      4,
		MinTotalReturn: 0,
		MaxDrawdown:    0.30,
		MinWinRate:     0.45,
		MinSharpe:      0.5,
		MaxCostShare:   0.02,
	}
}

// CriterionResult represents pass/fail for one criterion.
type CriterionResult struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// Result contains the final verdict with checklist.
type Result struct {
	Verdict  Verdict
	Criteria []CriterionResult
}
