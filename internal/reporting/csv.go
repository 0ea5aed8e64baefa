package reporting

import (
	"fmt"
	"strings"
)

// RenderEquityCSV renders the equity curve as CSV string.
func RenderEquityCSV(rows []EquityRow) string {
	var sb strings.Builder

	sb.WriteString("date,cash,market_value,total_value,positions\n")
	for _, e := range rows {
		sb.WriteString(fmt.Sprintf("%s,%.6f,%.6f,%.6f,%d\n",
			e.Date.Format("2006-01-02"), e.Cash, e.MarketValue, e.TotalValue, e.Positions))
	}

	return sb.String()
}

// RenderTradesCSV renders executed trades as CSV string.
func RenderTradesCSV(rows []TradeRow) string {
	var sb strings.Builder

	sb.WriteString("date,instrument_id,action,price,shares,total_cost,realized_pnl\n")
	for _, t := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%.6f,%d,%.6f,%.6f\n",
			t.Date.Format("2006-01-02"), t.InstrumentID, t.Action,
			t.Price, t.Shares, t.TotalCost, t.RealizedPnL))
	}

	return sb.String()
}
