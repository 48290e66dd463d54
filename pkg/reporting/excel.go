package reporting

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/dthrottle/spy-leaps-monitor/internal/backtest"
)

const (
	summarySheet = "Summary"
	tradesSheet  = "Trades"
	signalsSheet = "Signals"
	equitySheet  = "Equity"
	sweepSheet   = "Sweep"
)

// rollingSharpeWindow is one quarter of trading days
const rollingSharpeWindow = 63

// DefaultExcelReporter implements Excel output functionality
type DefaultExcelReporter struct {
	paths *DefaultPathManager
}

// NewDefaultExcelReporter creates a new Excel reporter
func NewDefaultExcelReporter() *DefaultExcelReporter {
	return &DefaultExcelReporter{paths: NewDefaultPathManager()}
}

// WriteWorkbook writes a workbook with Summary, Trades, Signals and Equity sheets
func (r *DefaultExcelReporter) WriteWorkbook(report RunReport, path string) error {
	if err := r.paths.EnsureDirectoryExists(path); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	fx := excelize.NewFile()
	defer fx.Close()

	fx.SetSheetName(fx.GetSheetName(0), summarySheet)
	for _, sheet := range []string{tradesSheet, signalsSheet, equitySheet} {
		if _, err := fx.NewSheet(sheet); err != nil {
			return err
		}
	}

	styles, err := r.createExcelStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeSummarySheet(fx, report, styles); err != nil {
		return err
	}
	if err := r.writeTradesSheet(fx, report.Result.Trades, styles); err != nil {
		return err
	}
	if err := r.writeSignalsSheet(fx, report.Result.Signals, styles); err != nil {
		return err
	}
	if err := r.writeEquitySheet(fx, report.Result.EquityCurve, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

// WriteSweepXLSX writes a single Sweep sheet, best total return first
func (r *DefaultExcelReporter) WriteSweepXLSX(results []backtest.BacktestResult, path string) error {
	if err := r.paths.EnsureDirectoryExists(path); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	fx := excelize.NewFile()
	defer fx.Close()
	fx.SetSheetName(fx.GetSheetName(0), sweepSheet)

	styles, err := r.createExcelStyles(fx)
	if err != nil {
		return err
	}
	if err := r.writeSweepSheet(fx, results, styles); err != nil {
		return err
	}
	return fx.SaveAs(path)
}

func cellBorder(color string) []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: color, Style: 1},
		{Type: "right", Color: color, Style: 1},
		{Type: "bottom", Color: color, Style: 1},
	}
}

// createExcelStyles creates all Excel styles
func (r *DefaultExcelReporter) createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	// Header style - dark slate background with white text
	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	styles.TitleStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14, Color: "2F4F4F"},
	})
	if err != nil {
		return styles, err
	}

	styles.CurrencyStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    7,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    cellBorder("E0E0E0"),
	})
	if err != nil {
		return styles, err
	}

	styles.RedCurrencyStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    7,
		Font:      &excelize.Font{Color: "C00000"},
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    cellBorder("E0E0E0"),
	})
	if err != nil {
		return styles, err
	}

	styles.GreenCurrencyStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    7,
		Font:      &excelize.Font{Color: "008000"},
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    cellBorder("E0E0E0"),
	})
	if err != nil {
		return styles, err
	}

	// Percentage style; values are fractions
	styles.PercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    10,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    cellBorder("E0E0E0"),
	})
	if err != nil {
		return styles, err
	}

	styles.DateStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    14,
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border:    cellBorder("E0E0E0"),
	})
	if err != nil {
		return styles, err
	}

	styles.NumberStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    2,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    cellBorder("E0E0E0"),
	})
	if err != nil {
		return styles, err
	}

	styles.BaseStyle, err = fx.NewStyle(&excelize.Style{
		Border: cellBorder("E0E0E0"),
	})
	if err != nil {
		return styles, err
	}

	return styles, nil
}

func writeHeader(fx *excelize.File, sheet string, row int, headers []string, style int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := fx.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
	}
	return nil
}

// setCell writes one value with a style at 1-based (col, row)
func setCell(fx *excelize.File, sheet string, col, row int, value interface{}, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := fx.SetCellValue(sheet, cell, value); err != nil {
		return err
	}
	return fx.SetCellStyle(sheet, cell, cell, style)
}

func pnlStyle(styles ExcelStyles, pnl float64) int {
	switch {
	case pnl > 0:
		return styles.GreenCurrencyStyle
	case pnl < 0:
		return styles.RedCurrencyStyle
	default:
		return styles.CurrencyStyle
	}
}

func (r *DefaultExcelReporter) writeSummarySheet(fx *excelize.File, report RunReport, styles ExcelStyles) error {
	result := report.Result
	cfg := result.Config

	fx.SetColWidth(summarySheet, "A", "A", 24)
	fx.SetColWidth(summarySheet, "B", "B", 28)

	if err := setCell(fx, summarySheet, 1, 1, fmt.Sprintf("%s LEAPS backtest %s", cfg.Symbol, report.RunID), styles.TitleStyle); err != nil {
		return err
	}
	if err := writeHeader(fx, summarySheet, 3, []string{"Metric", "Value"}, styles.HeaderStyle); err != nil {
		return err
	}

	row := 4
	for _, s := range summaryRows(report.Metrics) {
		if err := setCell(fx, summarySheet, 1, row, s.Label, styles.BaseStyle); err != nil {
			return err
		}
		if err := setCell(fx, summarySheet, 2, row, s.Value, styles.BaseStyle); err != nil {
			return err
		}
		row++
	}

	extra := []summaryRow{
		{"Start Date", formatDate(result.StartDate)},
		{"End Date", formatDate(result.EndDate)},
		{"Initial Capital", "$" + money(cfg.InitialCapital)},
		{"Final State", result.FinalState},
		{"Open Positions", fmt.Sprintf("%d", len(result.OpenPositions))},
		{"Skipped Buys", fmt.Sprintf("%d", len(result.SkippedBuys))},
		{"Data Gaps", fmt.Sprintf("%d", len(result.DataGaps))},
		{"Missing VIX Days", fmt.Sprintf("%d", result.MissingVIXDays)},
	}
	row++
	for _, s := range extra {
		if err := setCell(fx, summarySheet, 1, row, s.Label, styles.BaseStyle); err != nil {
			return err
		}
		if err := setCell(fx, summarySheet, 2, row, s.Value, styles.BaseStyle); err != nil {
			return err
		}
		row++
	}

	// Parameters
	row++
	if err := writeHeader(fx, summarySheet, row, []string{"Parameter", "Value"}, styles.HeaderStyle); err != nil {
		return err
	}
	row++
	params := cfg.ToMap()
	for _, name := range sortedKeys(params) {
		if err := setCell(fx, summarySheet, 1, row, name, styles.BaseStyle); err != nil {
			return err
		}
		if err := setCell(fx, summarySheet, 2, row, fmt.Sprintf("%v", params[name]), styles.BaseStyle); err != nil {
			return err
		}
		row++
	}
	return nil
}

func (r *DefaultExcelReporter) writeTradesSheet(fx *excelize.File, trades []backtest.Trade, styles ExcelStyles) error {
	fx.SetColWidth(tradesSheet, "A", "B", 12) // dates
	fx.SetColWidth(tradesSheet, "C", "G", 13)
	fx.SetColWidth(tradesSheet, "H", "H", 10) // contracts
	fx.SetColWidth(tradesSheet, "I", "I", 14) // PnL
	fx.SetColWidth(tradesSheet, "J", "J", 40) // notes
	fx.SetColWidth(tradesSheet, "K", "L", 11) // greeks at entry

	headers := []string{"Entry Date", "Exit Date", "Entry Price", "Exit Price", "Strike",
		"Entry Premium", "Exit Premium", "Contracts", "PnL", "Notes", "Delta", "Theta/Day"}
	if err := writeHeader(fx, tradesSheet, 1, headers, styles.HeaderStyle); err != nil {
		return err
	}

	for i, t := range trades {
		row := i + 2
		cells := []struct {
			value interface{}
			style int
		}{
			{t.EntryDate, styles.DateStyle},
			{t.ExitDate, styles.DateStyle},
			{moneyValue(t.EntryPrice), styles.CurrencyStyle},
			{moneyValue(t.ExitPrice), styles.CurrencyStyle},
			{t.Strike, styles.BaseStyle},
			{moneyValue(t.EntryPremium), styles.CurrencyStyle},
			{moneyValue(t.ExitPremium), styles.CurrencyStyle},
			{t.Contracts, styles.BaseStyle},
			{moneyValue(t.PnL), pnlStyle(styles, t.PnL)},
			{t.Notes, styles.BaseStyle},
			{t.EntryDelta, styles.BaseStyle},
			{t.EntryTheta, styles.BaseStyle},
		}
		for col, c := range cells {
			if err := setCell(fx, tradesSheet, col+1, row, c.value, c.style); err != nil {
				return err
			}
		}
	}

	if len(trades) > 0 {
		return fx.SetPanes(tradesSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	}
	return nil
}

func (r *DefaultExcelReporter) writeSignalsSheet(fx *excelize.File, signals []backtest.Signal, styles ExcelStyles) error {
	fx.SetColWidth(signalsSheet, "A", "A", 12)
	fx.SetColWidth(signalsSheet, "B", "B", 12)
	fx.SetColWidth(signalsSheet, "C", "C", 60)

	if err := writeHeader(fx, signalsSheet, 1, []string{"Date", "Type", "Details"}, styles.HeaderStyle); err != nil {
		return err
	}
	for i, s := range signals {
		row := i + 2
		if err := setCell(fx, signalsSheet, 1, row, s.Date, styles.DateStyle); err != nil {
			return err
		}
		if err := setCell(fx, signalsSheet, 2, row, string(s.Type), styles.BaseStyle); err != nil {
			return err
		}
		if err := setCell(fx, signalsSheet, 3, row, s.Details, styles.BaseStyle); err != nil {
			return err
		}
	}
	return nil
}

func (r *DefaultExcelReporter) writeEquitySheet(fx *excelize.File, curve []backtest.EquityPoint, styles ExcelStyles) error {
	fx.SetColWidth(equitySheet, "A", "A", 12)
	fx.SetColWidth(equitySheet, "B", "F", 15)
	fx.SetColWidth(equitySheet, "G", "G", 12)

	fx.SetColWidth(equitySheet, "H", "H", 16)

	headers := []string{"Date", "Portfolio Value", "Exposure", "Cash", "Open Positions", "Underlying", "State",
		fmt.Sprintf("Sharpe (%dd)", rollingSharpeWindow)}
	if err := writeHeader(fx, equitySheet, 1, headers, styles.HeaderStyle); err != nil {
		return err
	}

	rolling := backtest.RollingSharpe(curve, rollingSharpeWindow)
	for i, p := range curve {
		row := i + 2
		cells := []struct {
			value interface{}
			style int
		}{
			{p.Date, styles.DateStyle},
			{moneyValue(p.PortfolioValue), styles.CurrencyStyle},
			{p.ExposurePct / 100, styles.PercentStyle},
			{moneyValue(p.Cash), styles.CurrencyStyle},
			{p.OpenPositions, styles.BaseStyle},
			{moneyValue(p.Underlying), styles.CurrencyStyle},
			{p.State, styles.BaseStyle},
		}
		for col, c := range cells {
			if err := setCell(fx, equitySheet, col+1, row, c.value, c.style); err != nil {
				return err
			}
		}
		if !math.IsNaN(rolling[i]) {
			if err := setCell(fx, equitySheet, len(cells)+1, row, rolling[i], styles.NumberStyle); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *DefaultExcelReporter) writeSweepSheet(fx *excelize.File, results []backtest.BacktestResult, styles ExcelStyles) error {
	fx.SetColWidth(sweepSheet, "A", "A", 6)
	fx.SetColWidth(sweepSheet, "B", "B", 50)
	fx.SetColWidth(sweepSheet, "C", "I", 14)
	fx.SetColWidth(sweepSheet, "J", "J", 50)

	headers := []string{"#", "Parameters", "Total Return", "CAGR", "Max Drawdown",
		"Sharpe", "Sortino", "Trades", "Final Value", "Error"}
	if err := writeHeader(fx, sweepSheet, 1, headers, styles.HeaderStyle); err != nil {
		return err
	}

	for i, res := range sortedSweep(results) {
		row := i + 2
		if err := setCell(fx, sweepSheet, 1, row, res.Index, styles.BaseStyle); err != nil {
			return err
		}
		if err := setCell(fx, sweepSheet, 2, row, paramString(res.Params), styles.BaseStyle); err != nil {
			return err
		}
		if res.Error != nil {
			if err := setCell(fx, sweepSheet, 10, row, res.Error.Error(), styles.BaseStyle); err != nil {
				return err
			}
			continue
		}

		m := res.Metrics
		cells := []struct {
			value interface{}
			style int
		}{
			{m.TotalReturn, styles.PercentStyle},
			{m.CAGR, styles.PercentStyle},
			{m.MaxDrawdown, styles.PercentStyle},
			{m.SharpeRatio, styles.NumberStyle},
			{m.SortinoRatio, styles.NumberStyle},
			{m.TotalTrades, styles.BaseStyle},
			{moneyValue(m.FinalValue), styles.CurrencyStyle},
		}
		for col, c := range cells {
			if err := setCell(fx, sweepSheet, col+3, row, c.value, c.style); err != nil {
				return err
			}
		}
	}
	return nil
}
