package indicators

import (
	"math"
	"testing"
)

func TestBollinger_KnownBands(t *testing.T) {
	// Window {10, 20, 30}: mean 20, population stddev sqrt(200/3).
	closes := []float64{10, 20, 30}
	res := Bollinger(closes, 3, 2.0)

	if res.Middle[0].Defined || res.Middle[1].Defined {
		t.Error("warm-up indices should be undefined")
	}
	sd := math.Sqrt(200.0 / 3.0)
	if math.Abs(res.Middle[2].V-20) > 1e-9 {
		t.Errorf("expected middle 20, got %f", res.Middle[2].V)
	}
	if math.Abs(res.Upper[2].V-(20+2*sd)) > 1e-9 {
		t.Errorf("expected upper %f, got %f", 20+2*sd, res.Upper[2].V)
	}
	if math.Abs(res.Lower[2].V-(20-2*sd)) > 1e-9 {
		t.Errorf("expected lower %f, got %f", 20-2*sd, res.Lower[2].V)
	}
}

func TestBollinger_FlatPricesCollapse(t *testing.T) {
	closes := []float64{15, 15, 15, 15}
	res := Bollinger(closes, 3, 2.0)

	for i := 2; i < len(closes); i++ {
		if res.Upper[i].V != 15 || res.Lower[i].V != 15 {
			t.Errorf("index %d: flat prices should collapse bands to the mean", i)
		}
	}
}

func TestVolumeMA_RollingMean(t *testing.T) {
	volumes := []int64{100, 200, 300, 400}
	ma := VolumeMA(volumes, 2)

	if ma[0].Defined {
		t.Error("index 0 should be undefined")
	}
	want := []float64{0, 150, 250, 350}
	for i := 1; i < len(volumes); i++ {
		if math.Abs(ma[i].V-want[i]) > 1e-12 {
			t.Errorf("index %d: expected %f, got %f", i, want[i], ma[i].V)
		}
	}
}
