package metrics

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"rotation-lab/internal/domain"
)

func snap(date string, total int64) *domain.PortfolioSnapshot {
	d, _ := time.Parse("2006-01-02", date)
	return &domain.PortfolioSnapshot{
		RunID:      "run-1",
		Date:       d,
		TotalValue: decimal.NewFromInt(total),
	}
}

func TestSummarize_NoSnapshots(t *testing.T) {
	_, err := NewAggregator().Summarize("run-1", nil, nil)
	if !errors.Is(err, ErrNoSnapshots) {
		t.Errorf("expected ErrNoSnapshots, got %v", err)
	}
}

func TestSummarize_SortsSnapshotsByDate(t *testing.T) {
	// Delivered out of order; the summary must still span first to last.
	snapshots := []*domain.PortfolioSnapshot{
		snap("2024-03-15", 1_050_000),
		snap("2024-03-01", 1_000_000),
		snap("2024-03-08", 1_020_000),
	}

	s, err := NewAggregator().Summarize("run-1", snapshots, nil)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}

	if s.InitialValue != 1_000_000 {
		t.Errorf("expected initial 1000000, got %f", s.InitialValue)
	}
	if s.FinalValue != 1_050_000 {
		t.Errorf("expected final 1050000, got %f", s.FinalValue)
	}
	if s.Periods != 2 {
		t.Errorf("expected 2 periods, got %d", s.Periods)
	}
	if math.Abs(s.TotalReturn-0.05) > 1e-12 {
		t.Errorf("expected total return 0.05, got %f", s.TotalReturn)
	}
	wantAnn := math.Pow(1.05, 365.0/14.0) - 1
	if math.Abs(s.AnnualizedReturn-wantAnn) > 1e-9 {
		t.Errorf("expected annualized %f, got %f", wantAnn, s.AnnualizedReturn)
	}
}

func TestSummarize_ZeroTradeRun(t *testing.T) {
	snapshots := []*domain.PortfolioSnapshot{
		snap("2024-03-01", 1_000_000),
		snap("2024-03-08", 1_000_000),
	}

	s, err := NewAggregator().Summarize("run-1", snapshots, nil)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}

	if s.TotalReturn != 0 || s.TradeCount != 0 || s.WinRate != 0 {
		t.Errorf("zero-trade run must report zeros, got %+v", s)
	}
	if s.SharpeRatio != 0 || s.MaxDrawdown != 0 {
		t.Errorf("flat curve must report zero sharpe and drawdown, got %+v", s)
	}
}

func TestSummarize_TradeCounts(t *testing.T) {
	snapshots := []*domain.PortfolioSnapshot{
		snap("2024-03-01", 1_000_000),
		snap("2024-03-08", 1_010_000),
	}
	txs := []*domain.Transaction{
		{Action: domain.ActionBuy, TotalCost: decimal.NewFromInt(100)},
		{Action: domain.ActionSell, TotalCost: decimal.NewFromInt(150), RealizedPnL: decimal.NewFromInt(5000)},
		{Action: domain.ActionSell, TotalCost: decimal.NewFromInt(150), RealizedPnL: decimal.NewFromInt(-2000)},
		{Action: domain.ActionSell, TotalCost: decimal.NewFromInt(150), RealizedPnL: decimal.Zero},
	}

	s, err := NewAggregator().Summarize("run-1", snapshots, txs)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}

	if s.TradeCount != 4 || s.BuyCount != 1 || s.SellCount != 3 {
		t.Errorf("unexpected counts %+v", s)
	}
	// Breakeven sells do not count as wins.
	if s.WinCount != 1 {
		t.Errorf("expected 1 win, got %d", s.WinCount)
	}
	if math.Abs(s.WinRate-1.0/3.0) > 1e-12 {
		t.Errorf("expected win rate 1/3, got %f", s.WinRate)
	}
	if math.Abs(s.TotalCosts-550) > 1e-12 {
		t.Errorf("expected total costs 550, got %f", s.TotalCosts)
	}
}
