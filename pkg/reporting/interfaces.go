package reporting

import (
	"io"

	"github.com/dthrottle/spy-leaps-monitor/internal/backtest"
	"github.com/dthrottle/spy-leaps-monitor/pkg/storage"
)

// RunReport bundles everything reported about a single run
type RunReport struct {
	RunID   string
	Result  *backtest.Result
	Metrics backtest.Metrics
}

// ConsoleReporter defines interface for console output
type ConsoleReporter interface {
	OutputResults(report RunReport)
	OutputSweep(results []backtest.BacktestResult)
	OutputRuns(runs []storage.RunRecord)
}

// FileReporter defines interface for file output
type FileReporter interface {
	WriteTradesCSV(trades []backtest.Trade, path string) error
	WriteSignalsCSV(signals []backtest.Signal, path string) error
	WriteEquityCSV(curve []backtest.EquityPoint, path string) error
	WriteWorkbook(report RunReport, path string) error
	WriteSweepXLSX(results []backtest.BacktestResult, path string) error
	WriteSummaryJSON(report RunReport, path string) error
}

// PathManager defines interface for output path management
type PathManager interface {
	GetDefaultOutputDir(symbol, runID string) string
	EnsureDirectoryExists(path string) error
}

// Reporter combines all reporting interfaces
type Reporter interface {
	ConsoleReporter
	FileReporter
	PathManager
}

// ExcelStyles holds Excel formatting styles
type ExcelStyles struct {
	HeaderStyle        int
	CurrencyStyle      int
	PercentStyle       int
	BaseStyle          int
	NumberStyle        int
	DateStyle          int
	RedCurrencyStyle   int
	GreenCurrencyStyle int
	TitleStyle         int
}

// ReportingConfig holds configuration for reporting
type ReportingConfig struct {
	EnableConsole   bool
	EnableFiles     bool
	OutputDirectory string // overrides results/<SYMBOL>_<runID> when set
	ExcelEnabled    bool
	CSVEnabled      bool
	JSONEnabled     bool
	Console         io.Writer
}

// DefaultReportingConfig enables every output
func DefaultReportingConfig() ReportingConfig {
	return ReportingConfig{
		EnableConsole: true,
		EnableFiles:   true,
		ExcelEnabled:  true,
		CSVEnabled:    true,
		JSONEnabled:   true,
	}
}
