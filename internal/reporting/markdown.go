package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Backtest Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Run: `%s`\n\n", r.RunID))

	// Performance
	p := r.Performance
	sb.WriteString("## Performance\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Period | %s to %s (%d periods) |\n",
		p.StartDate.Format("2006-01-02"), p.EndDate.Format("2006-01-02"), p.Periods))
	sb.WriteString(fmt.Sprintf("| Initial Value | %.2f |\n", p.InitialValue))
	sb.WriteString(fmt.Sprintf("| Final Value | %.2f |\n", p.FinalValue))
	sb.WriteString(fmt.Sprintf("| Total Return | %.2f%% |\n", p.TotalReturn*100))
	sb.WriteString(fmt.Sprintf("| Annualized Return | %.2f%% |\n", p.AnnualizedReturn*100))
	sb.WriteString(fmt.Sprintf("| Max Drawdown | %.2f%% |\n", p.MaxDrawdown*100))
	sb.WriteString(fmt.Sprintf("| Sharpe Ratio | %.4f |\n", p.SharpeRatio))
	sb.WriteString(fmt.Sprintf("| Volatility | %.2f%% |\n", p.Volatility*100))
	sb.WriteString(fmt.Sprintf("| Trades | %d |\n", p.TradeCount))
	sb.WriteString(fmt.Sprintf("| Win Rate | %.2f%% |\n", p.WinRate*100))
	sb.WriteString(fmt.Sprintf("| Total Costs | %.2f |\n", p.TotalCosts))
	sb.WriteString("\n")

	// Trades
	sb.WriteString("## Trades\n\n")
	if len(r.Trades) > 0 {
		sb.WriteString("| Date | Instrument | Action | Price | Shares | Cost | Realized PnL | Reasons |\n")
		sb.WriteString("|------|------------|--------|-------|--------|------|--------------|--------|\n")
		for _, t := range r.Trades {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.3f | %d | %.2f | %.2f | %s |\n",
				t.Date.Format("2006-01-02"), t.InstrumentID, t.Action,
				t.Price, t.Shares, t.TotalCost, t.RealizedPnL, t.Reasons))
		}
	} else {
		sb.WriteString("No trades executed.\n")
	}
	sb.WriteString("\n")

	// Signal activity
	sb.WriteString("## Signal Activity\n\n")
	if len(r.SignalActivity) > 0 {
		sb.WriteString("| Instrument | Buys | Sells | Holds | Overrides | Errors |\n")
		sb.WriteString("|------------|------|-------|-------|-----------|--------|\n")
		for _, s := range r.SignalActivity {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %d | %d |\n",
				s.InstrumentID, s.Buys, s.Sells, s.Holds, s.Overrides, s.Errors))
		}
	} else {
		sb.WriteString("No signal activity recorded.\n")
	}
	sb.WriteString("\n")

	// Equity curve
	sb.WriteString("## Equity Curve\n\n")
	if len(r.EquityCurve) > 0 {
		sb.WriteString("| Date | Cash | Market Value | Total Value | Positions |\n")
		sb.WriteString("|------|------|--------------|-------------|----------|\n")
		for _, e := range r.EquityCurve {
			sb.WriteString(fmt.Sprintf("| %s | %.2f | %.2f | %.2f | %d |\n",
				e.Date.Format("2006-01-02"), e.Cash, e.MarketValue, e.TotalValue, e.Positions))
		}
	} else {
		sb.WriteString("No snapshots recorded.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
