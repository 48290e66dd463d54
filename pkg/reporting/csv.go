package reporting

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/dthrottle/spy-leaps-monitor/internal/backtest"
)

// DefaultCSVReporter implements CSV output functionality
type DefaultCSVReporter struct {
	paths *DefaultPathManager
}

// NewDefaultCSVReporter creates a new CSV reporter
func NewDefaultCSVReporter() *DefaultCSVReporter {
	return &DefaultCSVReporter{paths: NewDefaultPathManager()}
}

func (r *DefaultCSVReporter) writeRows(path string, header []string, rows [][]string) error {
	if err := r.paths.EnsureDirectoryExists(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

// WriteTradesCSV writes the trade log, one row per closed position
func (r *DefaultCSVReporter) WriteTradesCSV(trades []backtest.Trade, path string) error {
	rows := make([][]string, len(trades))
	for i, t := range trades {
		rows[i] = []string{
			formatDate(t.EntryDate),
			formatDate(t.ExitDate),
			money(t.EntryPrice),
			money(t.ExitPrice),
			money(t.Strike),
			money(t.EntryPremium),
			money(t.ExitPremium),
			strconv.Itoa(t.Contracts),
			money(t.PnL),
			t.Notes,
			fraction(t.EntryDelta, 4),
			fraction(t.EntryTheta, 4),
		}
	}
	return r.writeRows(path, []string{
		"entry_date", "exit_date", "entry_price", "exit_price", "strike",
		"entry_premium", "exit_premium", "contracts", "pnl", "notes",
		"entry_delta", "entry_theta",
	}, rows)
}

// WriteSignalsCSV writes the signal log in emission order
func (r *DefaultCSVReporter) WriteSignalsCSV(signals []backtest.Signal, path string) error {
	rows := make([][]string, len(signals))
	for i, s := range signals {
		rows[i] = []string{formatDate(s.Date), string(s.Type), s.Details}
	}
	return r.writeRows(path, []string{"date", "signal_type", "details"}, rows)
}

// WriteEquityCSV writes the daily equity curve
func (r *DefaultCSVReporter) WriteEquityCSV(curve []backtest.EquityPoint, path string) error {
	rows := make([][]string, len(curve))
	for i, p := range curve {
		rows[i] = []string{
			formatDate(p.Date),
			money(p.PortfolioValue),
			fraction(p.ExposurePct, 4),
			money(p.Cash),
			strconv.Itoa(p.OpenPositions),
			money(p.Underlying),
			p.State,
		}
	}
	return r.writeRows(path, []string{
		"date", "portfolio_value", "exposure_pct", "cash", "open_positions", "underlying", "state",
	}, rows)
}

// WriteSweepCSV writes one row per sweep combination in grid order
func (r *DefaultCSVReporter) WriteSweepCSV(results []backtest.BacktestResult, path string) error {
	rows := make([][]string, len(results))
	for i, res := range results {
		errText := ""
		if res.Error != nil {
			errText = res.Error.Error()
		}
		m := res.Metrics
		rows[i] = []string{
			strconv.Itoa(res.Index),
			paramString(res.Params),
			fraction(m.TotalReturn, 6),
			fraction(m.CAGR, 6),
			fraction(m.MaxDrawdown, 6),
			fraction(m.SharpeRatio, 4),
			fraction(m.SortinoRatio, 4),
			fraction(m.WinRate, 4),
			strconv.Itoa(m.TotalTrades),
			money(m.FinalValue),
			errText,
		}
	}
	return r.writeRows(path, []string{
		"index", "params", "total_return", "cagr", "max_drawdown", "sharpe_ratio",
		"sortino_ratio", "win_rate", "total_trades", "final_value", "error",
	}, rows)
}
