package reporting

import (
	"fmt"
	"path/filepath"

	"github.com/dthrottle/spy-leaps-monitor/internal/backtest"
	"github.com/dthrottle/spy-leaps-monitor/pkg/storage"
)

// Output file names inside a run directory
const (
	TradesCSVFile   = "trades.csv"
	SignalsCSVFile  = "signals.csv"
	EquityCSVFile   = "equity.csv"
	WorkbookFile    = "report.xlsx"
	SummaryJSONFile = "summary.json"
	SweepCSVFile    = "sweep.csv"
	SweepXLSXFile   = "sweep.xlsx"
	BestConfigFile  = "best.json"
)

// DefaultReporter implements the complete Reporter interface
type DefaultReporter struct {
	console *DefaultConsoleReporter
	csv     *DefaultCSVReporter
	excel   *DefaultExcelReporter
	json    *DefaultJSONFormatter
	paths   *DefaultPathManager
}

// NewDefaultReporter creates a new default reporter with all functionality
func NewDefaultReporter(cfg ReportingConfig) *DefaultReporter {
	return &DefaultReporter{
		console: NewDefaultConsoleReporter(cfg.Console),
		csv:     NewDefaultCSVReporter(),
		excel:   NewDefaultExcelReporter(),
		json:    NewDefaultJSONFormatter(),
		paths:   NewDefaultPathManager(),
	}
}

// Console output methods
func (r *DefaultReporter) OutputResults(report RunReport) {
	r.console.OutputResults(report)
}

func (r *DefaultReporter) OutputSweep(results []backtest.BacktestResult) {
	r.console.OutputSweep(results)
}

func (r *DefaultReporter) OutputRuns(runs []storage.RunRecord) {
	r.console.OutputRuns(runs)
}

// File output methods
func (r *DefaultReporter) WriteTradesCSV(trades []backtest.Trade, path string) error {
	return r.csv.WriteTradesCSV(trades, path)
}

func (r *DefaultReporter) WriteSignalsCSV(signals []backtest.Signal, path string) error {
	return r.csv.WriteSignalsCSV(signals, path)
}

func (r *DefaultReporter) WriteEquityCSV(curve []backtest.EquityPoint, path string) error {
	return r.csv.WriteEquityCSV(curve, path)
}

func (r *DefaultReporter) WriteWorkbook(report RunReport, path string) error {
	return r.excel.WriteWorkbook(report, path)
}

func (r *DefaultReporter) WriteSweepXLSX(results []backtest.BacktestResult, path string) error {
	return r.excel.WriteSweepXLSX(results, path)
}

func (r *DefaultReporter) WriteSummaryJSON(report RunReport, path string) error {
	return r.json.WriteSummaryJSON(report, path)
}

// Path management methods
func (r *DefaultReporter) GetDefaultOutputDir(symbol, runID string) string {
	return r.paths.GetDefaultOutputDir(symbol, runID)
}

func (r *DefaultReporter) EnsureDirectoryExists(path string) error {
	return r.paths.EnsureDirectoryExists(path)
}

// ReportingManager provides a high-level interface for all reporting needs
type ReportingManager struct {
	reporter *DefaultReporter
	config   ReportingConfig
}

// NewReportingManager creates a new reporting manager with configuration
func NewReportingManager(config ReportingConfig) *ReportingManager {
	return &ReportingManager{
		reporter: NewDefaultReporter(config),
		config:   config,
	}
}

func (m *ReportingManager) outputDir(symbol, runID string) string {
	if m.config.OutputDirectory != "" {
		return m.config.OutputDirectory
	}
	return m.reporter.GetDefaultOutputDir(symbol, runID)
}

// ReportRun outputs a run according to configuration and returns the directory
// files were written to, or "" when file output is disabled
func (m *ReportingManager) ReportRun(report RunReport) (string, error) {
	if report.Result == nil {
		return "", fmt.Errorf("report %s has no result", report.RunID)
	}

	if m.config.EnableConsole {
		m.reporter.OutputResults(report)
	}
	if !m.config.EnableFiles {
		return "", nil
	}

	dir := m.outputDir(report.Result.Config.Symbol, report.RunID)
	result := report.Result

	if m.config.CSVEnabled {
		if err := m.reporter.WriteTradesCSV(result.Trades, filepath.Join(dir, TradesCSVFile)); err != nil {
			return dir, fmt.Errorf("write trades csv: %w", err)
		}
		if err := m.reporter.WriteSignalsCSV(result.Signals, filepath.Join(dir, SignalsCSVFile)); err != nil {
			return dir, fmt.Errorf("write signals csv: %w", err)
		}
		if err := m.reporter.WriteEquityCSV(result.EquityCurve, filepath.Join(dir, EquityCSVFile)); err != nil {
			return dir, fmt.Errorf("write equity csv: %w", err)
		}
	}
	if m.config.ExcelEnabled {
		if err := m.reporter.WriteWorkbook(report, filepath.Join(dir, WorkbookFile)); err != nil {
			return dir, fmt.Errorf("write workbook: %w", err)
		}
	}
	if m.config.JSONEnabled {
		if err := m.reporter.WriteSummaryJSON(report, filepath.Join(dir, SummaryJSONFile)); err != nil {
			return dir, fmt.Errorf("write summary json: %w", err)
		}
	}
	return dir, nil
}

// ReportSweep outputs sweep results; the best successful combination's config
// is written as best.json when JSON output is enabled
func (m *ReportingManager) ReportSweep(symbol, sweepID string, results []backtest.BacktestResult) (string, error) {
	if m.config.EnableConsole {
		m.reporter.OutputSweep(results)
	}
	if !m.config.EnableFiles {
		return "", nil
	}

	dir := m.outputDir(symbol, sweepID)
	if m.config.CSVEnabled {
		if err := m.reporter.csv.WriteSweepCSV(results, filepath.Join(dir, SweepCSVFile)); err != nil {
			return dir, fmt.Errorf("write sweep csv: %w", err)
		}
	}
	if m.config.ExcelEnabled {
		if err := m.reporter.WriteSweepXLSX(results, filepath.Join(dir, SweepXLSXFile)); err != nil {
			return dir, fmt.Errorf("write sweep workbook: %w", err)
		}
	}
	if m.config.JSONEnabled {
		if best, ok := BestSweepResult(results); ok {
			if err := m.reporter.json.WriteBestConfigJSON(best.Config, filepath.Join(dir, BestConfigFile)); err != nil {
				return dir, fmt.Errorf("write best config: %w", err)
			}
		}
	}
	return dir, nil
}

// BestSweepResult returns the successful combination with the highest total return
func BestSweepResult(results []backtest.BacktestResult) (backtest.BacktestResult, bool) {
	sorted := sortedSweep(results)
	if len(sorted) == 0 || sorted[0].Error != nil {
		return backtest.BacktestResult{}, false
	}
	return sorted[0], true
}
