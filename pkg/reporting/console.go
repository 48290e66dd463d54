package reporting

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/dthrottle/spy-leaps-monitor/internal/backtest"
	"github.com/dthrottle/spy-leaps-monitor/internal/regime"
	"github.com/dthrottle/spy-leaps-monitor/pkg/storage"
)

// maxConsoleRows caps the trade and signal tables; files carry the full logs
const maxConsoleRows = 20

// DefaultConsoleReporter implements console output functionality
type DefaultConsoleReporter struct {
	out io.Writer
}

// NewDefaultConsoleReporter creates a console reporter writing to out, or stdout when nil
func NewDefaultConsoleReporter(out io.Writer) *DefaultConsoleReporter {
	if out == nil {
		out = os.Stdout
	}
	return &DefaultConsoleReporter{out: out}
}

func (r *DefaultConsoleReporter) newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	return t
}

// OutputResults prints the run summary, then the most recent trades and signals
func (r *DefaultConsoleReporter) OutputResults(report RunReport) {
	result := report.Result
	cfg := result.Config

	t := r.newTable("📊 BACKTEST RESULTS")
	t.AppendRows([]table.Row{
		{"🆔 Run", report.RunID},
		{"📈 Symbol", cfg.Symbol},
		{"📅 Period", fmt.Sprintf("%s → %s", formatDate(result.StartDate), formatDate(result.EndDate))},
		{"💰 Initial Capital", "$" + money(cfg.InitialCapital)},
	})
	t.AppendSeparator()
	for _, row := range summaryRows(report.Metrics) {
		t.AppendRow(table.Row{row.Label, row.Value})
	}
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"🚦 Final State", result.FinalState},
		{"📂 Open Positions", len(result.OpenPositions)},
		{"⏭️ Skipped Buys", len(result.SkippedBuys)},
		{"🕳️ Data Gaps", len(result.DataGaps)},
		{"❔ Missing VIX Days", result.MissingVIXDays},
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 20, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, Align: text.AlignRight},
	})
	t.Render()
	fmt.Fprintln(r.out)

	r.outputTrades(result.Trades)
	r.outputSignals(result.Signals)
}

func (r *DefaultConsoleReporter) outputTrades(trades []backtest.Trade) {
	if len(trades) == 0 {
		fmt.Fprintln(r.out, "No closed trades")
		return
	}

	title := fmt.Sprintf("🔄 TRADES (%d)", len(trades))
	shown := trades
	if len(trades) > maxConsoleRows {
		shown = trades[len(trades)-maxConsoleRows:]
		title = fmt.Sprintf("🔄 TRADES (last %d of %d)", maxConsoleRows, len(trades))
	}

	t := r.newTable(title)
	t.AppendHeader(table.Row{"Entry", "Exit", "Strike", "Contracts", "Entry Prem", "Exit Prem", "PnL", "Notes"})
	for _, tr := range shown {
		t.AppendRow(table.Row{
			formatDate(tr.EntryDate),
			formatDate(tr.ExitDate),
			fmt.Sprintf("%.0f", tr.Strike),
			tr.Contracts,
			money(tr.EntryPremium),
			money(tr.ExitPremium),
			money(tr.PnL),
			tr.Notes,
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 7, Align: text.AlignRight},
		{Number: 8, WidthMax: 40},
	})
	t.Render()
	fmt.Fprintln(r.out)
}

func (r *DefaultConsoleReporter) outputSignals(signals []backtest.Signal) {
	if len(signals) == 0 {
		return
	}

	counts := make(map[string]int)
	for _, s := range signals {
		counts[string(s.Type)]++
	}
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	sort.Strings(kinds)

	var nonBuy []backtest.Signal
	for _, s := range signals {
		if s.Type != regime.SignalBuy {
			nonBuy = append(nonBuy, s)
		}
	}
	if len(nonBuy) > maxConsoleRows {
		nonBuy = nonBuy[len(nonBuy)-maxConsoleRows:]
	}

	t := r.newTable("🚦 SIGNALS " + strings.Join(kinds, " "))
	t.AppendHeader(table.Row{"Date", "Type", "Details"})
	for _, s := range nonBuy {
		t.AppendRow(table.Row{formatDate(s.Date), s.Type, s.Details})
	}
	t.Render()
	fmt.Fprintln(r.out)
}

// OutputSweep prints one row per combination, best total return first
func (r *DefaultConsoleReporter) OutputSweep(results []backtest.BacktestResult) {
	rows := sortedSweep(results)

	t := r.newTable(fmt.Sprintf("🔬 PARAMETER SWEEP (%d combinations)", len(results)))
	t.AppendHeader(table.Row{"#", "Parameters", "Total Return", "CAGR", "Max DD", "Sharpe", "Trades", "Error"})
	for _, res := range rows {
		if res.Error != nil {
			t.AppendRow(table.Row{res.Index, paramString(res.Params), "", "", "", "", "", res.Error.Error()})
			continue
		}
		m := res.Metrics
		t.AppendRow(table.Row{
			res.Index,
			paramString(res.Params),
			fmt.Sprintf("%.2f%%", m.TotalReturn*100),
			fmt.Sprintf("%.2f%%", m.CAGR*100),
			fmt.Sprintf("%.2f%%", m.MaxDrawdown*100),
			fmt.Sprintf("%.2f", m.SharpeRatio),
			m.TotalTrades,
			"",
		})
	}
	t.Render()
	fmt.Fprintln(r.out)
}

// OutputRuns prints stored runs, one row each
func (r *DefaultConsoleReporter) OutputRuns(runs []storage.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(r.out, "No stored runs")
		return
	}

	t := r.newTable(fmt.Sprintf("🗄️ STORED RUNS (%d)", len(runs)))
	t.AppendHeader(table.Row{"Run", "Created", "Symbol", "Period", "Total Return", "Max DD", "Trades", "Final State"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			run.RunID,
			run.CreatedAt.Local().Format("2006-01-02 15:04"),
			run.Symbol,
			fmt.Sprintf("%s → %s", formatDate(run.StartDate), formatDate(run.EndDate)),
			fmt.Sprintf("%.2f%%", run.Metrics.TotalReturn*100),
			fmt.Sprintf("%.2f%%", run.Metrics.MaxDrawdown*100),
			run.TradeCount,
			run.FinalState,
		})
	}
	t.Render()
	fmt.Fprintln(r.out)
}

// sortedSweep orders successful combinations by total return, failures last
func sortedSweep(results []backtest.BacktestResult) []backtest.BacktestResult {
	rows := make([]backtest.BacktestResult, len(results))
	copy(rows, results)
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if (a.Error == nil) != (b.Error == nil) {
			return a.Error == nil
		}
		return a.Metrics.TotalReturn > b.Metrics.TotalReturn
	})
	return rows
}

func paramString(params map[string]float64) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%g", name, params[name])
	}
	return strings.Join(parts, " ")
}
