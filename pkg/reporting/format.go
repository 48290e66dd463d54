package reporting

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dthrottle/spy-leaps-monitor/internal/backtest"
	"github.com/dthrottle/spy-leaps-monitor/pkg/types"
)

// money rounds a dollar amount to cents for file output
func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// moneyValue is money as a float, for spreadsheet cells
func moneyValue(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// fraction renders a fraction with the given number of decimals
func fraction(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

func formatDate(t time.Time) string {
	return t.Format(types.DateLayout)
}

// summaryRow is one labelled metric
type summaryRow struct {
	Label string
	Value string
}

// summaryRows lists the run metrics in display order
func summaryRows(m backtest.Metrics) []summaryRow {
	return []summaryRow{
		{"Total Return", fmt.Sprintf("%.2f%%", m.TotalReturn*100)},
		{"Buy & Hold Return", fmt.Sprintf("%.2f%%", m.BuyAndHoldReturn*100)},
		{"CAGR", fmt.Sprintf("%.2f%%", m.CAGR*100)},
		{"Max Drawdown", fmt.Sprintf("%.2f%%", m.MaxDrawdown*100)},
		{"Sharpe Ratio", fmt.Sprintf("%.2f", m.SharpeRatio)},
		{"Sortino Ratio", fmt.Sprintf("%.2f", m.SortinoRatio)},
		{"Win Rate", fmt.Sprintf("%.2f%%", m.WinRate*100)},
		{"Total Trades", fmt.Sprintf("%d", m.TotalTrades)},
		{"Winning Trades", fmt.Sprintf("%d", m.WinningTrades)},
		{"Losing Trades", fmt.Sprintf("%d", m.LosingTrades)},
		{"Avg Win", "$" + money(m.AvgWin)},
		{"Avg Loss", "$" + money(m.AvgLoss)},
		{"Final Value", "$" + money(m.FinalValue)},
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
