package idhash

import (
	"testing"
	"time"

	"rotation-lab/internal/domain"
)

func TestComputeRunID_Deterministic(t *testing.T) {
	start := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)

	a := ComputeRunID("rotation", start, end, 100000000, 3)
	b := ComputeRunID("rotation", start, end, 100000000, 3)
	if a != b {
		t.Errorf("expected identical run ids, got %s and %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(a))
	}
}

func TestComputeRunID_DistinctInputs(t *testing.T) {
	start := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)

	base := ComputeRunID("rotation", start, end, 100000000, 3)

	variants := map[string]string{
		"strategy":   ComputeRunID("other", start, end, 100000000, 3),
		"start date": ComputeRunID("rotation", start.AddDate(0, 0, 7), end, 100000000, 3),
		"cash":       ComputeRunID("rotation", start, end, 100000001, 3),
		"count":      ComputeRunID("rotation", start, end, 100000000, 4),
	}
	for name, got := range variants {
		if got == base {
			t.Errorf("changing %s did not change the run id", name)
		}
	}
}

func TestComputeRunID_TimeOfDayIgnored(t *testing.T) {
	start := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)

	// Only the calendar date participates in the hash.
	a := ComputeRunID("rotation", start, end, 100000000, 3)
	b := ComputeRunID("rotation", start.Add(9*time.Hour), end.Add(15*time.Hour), 100000000, 3)
	if a != b {
		t.Errorf("expected time of day to be ignored, got %s and %s", a, b)
	}
}

func TestComputeTransactionID_Deterministic(t *testing.T) {
	date := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)

	a := ComputeTransactionID("run-1", "600519", date, domain.ActionBuy, 10000)
	b := ComputeTransactionID("run-1", "600519", date, domain.ActionBuy, 10000)
	if a != b {
		t.Errorf("expected identical tx ids, got %s and %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(a))
	}
}

func TestComputeTransactionID_DistinctInputs(t *testing.T) {
	date := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)

	base := ComputeTransactionID("run-1", "600519", date, domain.ActionBuy, 10000)

	variants := map[string]string{
		"run":        ComputeTransactionID("run-2", "600519", date, domain.ActionBuy, 10000),
		"instrument": ComputeTransactionID("run-1", "000001", date, domain.ActionBuy, 10000),
		"date":       ComputeTransactionID("run-1", "600519", date.AddDate(0, 0, 7), domain.ActionBuy, 10000),
		"action":     ComputeTransactionID("run-1", "600519", date, domain.ActionSell, 10000),
		"shares":     ComputeTransactionID("run-1", "600519", date, domain.ActionBuy, 10100),
	}
	for name, got := range variants {
		if got == base {
			t.Errorf("changing %s did not change the tx id", name)
		}
	}
}
