package reporting

import (
	"context"
	"sort"
	"strings"
	"time"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

// Generator produces run reports from stored data.
type Generator struct {
	summaryStore     storage.SummaryStore
	snapshotStore    storage.SnapshotStore
	transactionStore storage.TransactionStore
	decisionStore    storage.DecisionStore
	now              func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	summaryStore storage.SummaryStore,
	snapshotStore storage.SnapshotStore,
	transactionStore storage.TransactionStore,
	decisionStore storage.DecisionStore,
) *Generator {
	return &Generator{
		summaryStore:     summaryStore,
		snapshotStore:    snapshotStore,
		transactionStore: transactionStore,
		decisionStore:    decisionStore,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete report for one run.
func (g *Generator) Generate(ctx context.Context, runID string) (*Report, error) {
	summary, err := g.summaryStore.GetByRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	snapshots, err := g.snapshotStore.GetByRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	transactions, err := g.transactionStore.GetByRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	decisions, err := g.decisionStore.GetByRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	return &Report{
		GeneratedAt:    g.now(),
		RunID:          runID,
		Performance:    performanceSection(summary),
		EquityCurve:    equityRows(snapshots),
		Trades:         tradeRows(transactions),
		SignalActivity: signalActivity(decisions),
	}, nil
}

func performanceSection(s *domain.PerformanceSummary) PerformanceSection {
	return PerformanceSection{
		StartDate:        s.StartDate,
		EndDate:          s.EndDate,
		Periods:          s.Periods,
		InitialValue:     s.InitialValue,
		FinalValue:       s.FinalValue,
		TotalReturn:      s.TotalReturn,
		AnnualizedReturn: s.AnnualizedReturn,
		MaxDrawdown:      s.MaxDrawdown,
		SharpeRatio:      s.SharpeRatio,
		Volatility:       s.Volatility,
		TradeCount:       s.TradeCount,
		WinRate:          s.WinRate,
		TotalCosts:       s.TotalCosts,
	}
}

func equityRows(snapshots []*domain.PortfolioSnapshot) []EquityRow {
	rows := make([]EquityRow, 0, len(snapshots))
	for _, snap := range snapshots {
		cash, _ := snap.Cash.Float64()
		market, _ := snap.MarketValue.Float64()
		total, _ := snap.TotalValue.Float64()
		rows = append(rows, EquityRow{
			Date:        snap.Date,
			Cash:        cash,
			MarketValue: market,
			TotalValue:  total,
			Positions:   len(snap.Positions),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})
	return rows
}

func tradeRows(transactions []*domain.Transaction) []TradeRow {
	rows := make([]TradeRow, 0, len(transactions))
	for _, tx := range transactions {
		cost, _ := tx.TotalCost.Float64()
		pnl, _ := tx.RealizedPnL.Float64()
		var reasons string
		if tx.Decision != nil {
			reasons = strings.Join(tx.Decision.TriggerReasons, "; ")
		}
		rows = append(rows, TradeRow{
			Date:         tx.Date,
			InstrumentID: tx.InstrumentID,
			Action:       string(tx.Action),
			Price:        tx.Price,
			Shares:       tx.Shares,
			TotalCost:    cost,
			RealizedPnL:  pnl,
			Reasons:      reasons,
		})
	}
	return rows
}

func signalActivity(decisions []*domain.SignalDecision) []SignalActivityRow {
	byInstrument := make(map[string]*SignalActivityRow)
	for _, d := range decisions {
		row, ok := byInstrument[d.InstrumentID]
		if !ok {
			row = &SignalActivityRow{InstrumentID: d.InstrumentID}
			byInstrument[d.InstrumentID] = row
		}
		switch d.Kind {
		case domain.DecisionBuy:
			row.Buys++
		case domain.DecisionSell:
			row.Sells++
		default:
			row.Holds++
		}
		if d.Override {
			row.Overrides++
		}
		if d.Err != "" {
			row.Errors++
		}
	}

	rows := make([]SignalActivityRow, 0, len(byInstrument))
	for _, row := range byInstrument {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].InstrumentID < rows[j].InstrumentID
	})
	return rows
}
