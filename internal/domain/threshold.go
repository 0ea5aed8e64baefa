package domain

// VolatilityTier classifies an industry's historical indicator
// dispersion against population quantiles.
type VolatilityTier string

// Volatility tier constants.
const (
	TierHigh   VolatilityTier = "HIGH"
	TierMedium VolatilityTier = "MEDIUM"
	TierLow    VolatilityTier = "LOW"
)

// ThresholdSet holds the resolved RSI bounds for one industry.
// Extreme bounds carry any per-tier adjustment coefficient already
// applied; ordinary bounds are never adjusted. Immutable during a run.
type ThresholdSet struct {
	Industry string
	Tier     VolatilityTier

	Oversold   float64
	Overbought float64

	ExtremeOversold   float64
	ExtremeOverbought float64
}

// Instrument describes one tracked equity: its industry classification
// (required for threshold resolution) and optional fair-value estimate.
type Instrument struct {
	ID       string
	Name     string
	Industry string

	// FairValue is the externally supplied per-share estimate. Zero
	// means no estimate is configured and the value-ratio gate is
	// skipped for this instrument.
	FairValue float64

	// Shanghai marks instruments subject to the exchange transfer fee.
	Shanghai bool
}
