package evaluation

import (
	"strings"
	"testing"

	"rotation-lab/internal/domain"
)

func passingSummary() *domain.PerformanceSummary {
	return &domain.PerformanceSummary{
		RunID:        "run-1",
		InitialValue: 1000000,
		FinalValue:   1080000,
		TotalReturn:  0.08,
		MaxDrawdown:  0.10,
		SharpeRatio:  1.2,
		TradeCount:   10,
		SellCount:    5,
		WinCount:     3,
		WinRate:      0.6,
		TotalCosts:   5000,
	}
}

func TestEvaluate_Accept(t *testing.T) {
	result := NewEvaluator(DefaultCriteria()).Evaluate(passingSummary())

	if result.Verdict != VerdictAccept {
		t.Errorf("expected ACCEPT, got %s", result.Verdict)
	}
	if len(result.Criteria) != 6 {
		t.Fatalf("expected 6 checks, got %d", len(result.Criteria))
	}
	for _, c := range result.Criteria {
		if !c.Pass {
			t.Errorf("expected all checks to pass, %s failed (%s vs %s)", c.Name, c.Actual, c.Threshold)
		}
	}
}

func TestEvaluate_RejectSingleFailure(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*domain.PerformanceSummary)
	}{
		{"too few trades", func(s *domain.PerformanceSummary) { s.TradeCount = 2 }},
		{"negative return", func(s *domain.PerformanceSummary) { s.TotalReturn = -0.01 }},
		{"deep drawdown", func(s *domain.PerformanceSummary) { s.MaxDrawdown = 0.45 }},
		{"low win rate", func(s *domain.PerformanceSummary) { s.WinRate = 0.2 }},
		{"low sharpe", func(s *domain.PerformanceSummary) { s.SharpeRatio = 0.1 }},
		{"costs too high", func(s *domain.PerformanceSummary) { s.TotalCosts = 50000 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			summary := passingSummary()
			tc.mutate(summary)
			result := NewEvaluator(DefaultCriteria()).Evaluate(summary)
			if result.Verdict != VerdictReject {
				t.Errorf("expected REJECT, got %s", result.Verdict)
			}
		})
	}
}

func TestEvaluate_ZeroCriteriaDisableChecks(t *testing.T) {
	summary := passingSummary()
	summary.TradeCount = 0
	summary.MaxDrawdown = 0.99
	summary.SharpeRatio = -5
	summary.WinRate = 0
	summary.TotalCosts = 900000

	// Only the always-on total return check remains.
	result := NewEvaluator(Criteria{}).Evaluate(summary)
	if len(result.Criteria) != 1 {
		t.Fatalf("expected 1 check, got %d", len(result.Criteria))
	}
	if result.Criteria[0].Name != "Total return" {
		t.Errorf("expected total return check, got %s", result.Criteria[0].Name)
	}
	if result.Verdict != VerdictAccept {
		t.Errorf("expected ACCEPT with checks disabled, got %s", result.Verdict)
	}
}

func TestEvaluate_WinRateSkippedWithoutSells(t *testing.T) {
	summary := passingSummary()
	summary.SellCount = 0
	summary.WinRate = 0

	result := NewEvaluator(DefaultCriteria()).Evaluate(summary)
	for _, c := range result.Criteria {
		if c.Name == "Win rate" {
			t.Error("expected win rate check skipped when no sells executed")
		}
	}
}

func TestEvaluate_CriterionFields(t *testing.T) {
	summary := passingSummary()
	summary.MaxDrawdown = 0.45

	result := NewEvaluator(DefaultCriteria()).Evaluate(summary)

	var found bool
	for _, c := range result.Criteria {
		if c.Name != "Max drawdown" {
			continue
		}
		found = true
		if c.Threshold != "<= 30.00%" {
			t.Errorf("expected threshold '<= 30.00%%', got %q", c.Threshold)
		}
		if c.Actual != "45.00%" {
			t.Errorf("expected actual '45.00%%', got %q", c.Actual)
		}
		if c.Pass {
			t.Error("expected drawdown check to fail")
		}
	}
	if !found {
		t.Fatal("drawdown check missing from result")
	}
}

func TestRenderMarkdown_Checklist(t *testing.T) {
	summary := passingSummary()
	summary.SharpeRatio = 0.1
	result := NewEvaluator(DefaultCriteria()).Evaluate(summary)

	md := RenderMarkdown(result)
	if !strings.Contains(md, "## Verdict: REJECT") {
		t.Error("expected REJECT verdict in markdown")
	}
	if !strings.Contains(md, "| FAIL |") {
		t.Error("expected a FAIL row in the checklist")
	}
	if !strings.Contains(md, "Criteria: 5/6 passed") {
		t.Errorf("expected pass count line, got:\n%s", md)
	}
}
