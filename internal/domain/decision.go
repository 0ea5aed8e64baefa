package domain

import "time"

// DecisionKind is the final trading decision for one (instrument, period).
type DecisionKind string

// Decision kind constants.
const (
	DecisionBuy  DecisionKind = "BUY"
	DecisionSell DecisionKind = "SELL"
	DecisionHold DecisionKind = "HOLD"
)

// Scoring dimension names. The gate is a hard precondition, not one of
// the three scored dimensions.
const (
	DimValueGate     = "value_ratio_gate"
	DimOscillator    = "oscillator"
	DimMomentum      = "momentum"
	DimExtremeVolume = "extreme_price_volume"
)

// DimensionResult records one dimension's evaluation with its textual
// justification. Reason strings are the authoritative audit record
// consumed by reporting, not optional logging.
type DimensionResult struct {
	Name   string
	Score  int // 0 unless the dimension fired in the decision direction
	Reason string
}

// SignalDecision is the scoring engine's output for one (instrument,
// date). It is created fresh each period, immutable after creation, and
// reused verbatim by the simulator and any reporting layer.
type SignalDecision struct {
	InstrumentID string
	Date         time.Time

	Kind DecisionKind

	// Gate is the hard-precondition evaluation. Gate.Score is 1 when
	// the gate passed in the decision direction (or was skipped).
	Gate DimensionResult

	// Dimensions holds the three scored dimensions in evaluation
	// order: oscillator, momentum, extreme price/volume.
	Dimensions []DimensionResult

	// TotalScore sums the three dimension scores (gate excluded).
	TotalScore int

	// Override is set when an extreme oscillator bound forced the
	// decision irrespective of the other dimensions.
	Override bool

	// TriggerReasons is the ordered audit trail of every dimension's
	// evaluation, contributing or not.
	TriggerReasons []string

	// Indicators is the full snapshot the decision was scored against.
	Indicators IndicatorSnapshot

	// Err annotates a HOLD recorded for a recoverable per-instrument
	// failure (e.g. missing threshold mapping). Empty otherwise.
	Err string
}
