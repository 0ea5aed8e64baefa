package indicators

import (
	"testing"

	"rotation-lab/internal/domain"
)

func defined(vals ...float64) []domain.Value {
	out := make([]domain.Value, len(vals))
	for i, v := range vals {
		out[i] = domain.Def(v)
	}
	return out
}

func TestDetectDivergence_Bearish(t *testing.T) {
	// Price makes the window high at the last index while the oscillator
	// peaked earlier and has backed off by more than 2%.
	closes := []float64{10, 12, 11, 12}
	osc := defined(50, 80, 60, 70)

	flags := DetectDivergence(closes, osc, 3)

	if !flags.Bearish[3] {
		t.Error("expected bearish divergence at the final index")
	}
	if flags.Bullish[3] {
		t.Error("did not expect bullish divergence at the final index")
	}
}

func TestDetectDivergence_Bullish(t *testing.T) {
	// Price makes the window low while the oscillator holds above its
	// own low.
	closes := []float64{12, 10, 11, 10}
	osc := defined(50, 20, 40, 30)

	flags := DetectDivergence(closes, osc, 3)

	if !flags.Bullish[3] {
		t.Error("expected bullish divergence at the final index")
	}
	if flags.Bearish[3] {
		t.Error("did not expect bearish divergence at the final index")
	}
}

func TestDetectDivergence_OscillatorConfirmsNoFlag(t *testing.T) {
	// Oscillator makes its high together with price: no divergence.
	closes := []float64{10, 11, 12, 13}
	osc := defined(40, 50, 60, 70)

	flags := DetectDivergence(closes, osc, 3)

	if flags.Bearish[3] || flags.Bullish[3] {
		t.Error("confirming oscillator should not flag divergence")
	}
}

func TestDetectDivergence_UndefinedOscillatorSkipsWindow(t *testing.T) {
	closes := []float64{10, 12, 11, 12}
	osc := []domain.Value{{}, domain.Def(80), domain.Def(60), domain.Def(70)}

	flags := DetectDivergence(closes, osc, 3)

	if flags.Bearish[3] || flags.Bullish[3] {
		t.Error("window containing undefined oscillator values should not be flagged")
	}
}

func TestDetectDivergence_ShortHistoryUnflagged(t *testing.T) {
	closes := []float64{10, 12}
	osc := defined(50, 60)

	flags := DetectDivergence(closes, osc, 6)

	for i := range closes {
		if flags.Bearish[i] || flags.Bullish[i] {
			t.Errorf("index %d flagged without a full lookback window", i)
		}
	}
}
