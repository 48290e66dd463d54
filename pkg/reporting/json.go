package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dthrottle/spy-leaps-monitor/internal/backtest"
	"github.com/dthrottle/spy-leaps-monitor/pkg/config"
)

// RunSummary is the JSON document written next to a run's CSV and Excel files
type RunSummary struct {
	RunID          string                `json:"run_id"`
	Symbol         string                `json:"symbol"`
	StartDate      string                `json:"start_date"`
	EndDate        string                `json:"end_date"`
	FinalState     string                `json:"final_state"`
	Metrics        backtest.Metrics      `json:"metrics"`
	Config         config.StrategyConfig `json:"config"`
	OpenPositions  []backtest.Position   `json:"open_positions"`
	SkippedBuys    []backtest.SkippedBuy `json:"skipped_buys"`
	DataGaps       []backtest.DataGap    `json:"data_gaps"`
	MissingVIXDays int                   `json:"missing_vix_days"`
	GeneratedAt    time.Time             `json:"generated_at"`
}

// DefaultJSONFormatter implements JSON output functionality
type DefaultJSONFormatter struct {
	paths *DefaultPathManager
}

// NewDefaultJSONFormatter creates a new JSON formatter
func NewDefaultJSONFormatter() *DefaultJSONFormatter {
	return &DefaultJSONFormatter{paths: NewDefaultPathManager()}
}

// BuildSummary assembles the summary document of a run
func (f *DefaultJSONFormatter) BuildSummary(report RunReport) RunSummary {
	result := report.Result
	return RunSummary{
		RunID:          report.RunID,
		Symbol:         result.Config.Symbol,
		StartDate:      formatDate(result.StartDate),
		EndDate:        formatDate(result.EndDate),
		FinalState:     result.FinalState,
		Metrics:        report.Metrics,
		Config:         result.Config,
		OpenPositions:  result.OpenPositions,
		SkippedBuys:    result.SkippedBuys,
		DataGaps:       result.DataGaps,
		MissingVIXDays: result.MissingVIXDays,
		GeneratedAt:    time.Now().UTC(),
	}
}

// FormatSummary formats the run summary as indented JSON
func (f *DefaultJSONFormatter) FormatSummary(report RunReport) ([]byte, error) {
	return json.MarshalIndent(f.BuildSummary(report), "", "  ")
}

// WriteSummaryJSON writes the run summary to path
func (f *DefaultJSONFormatter) WriteSummaryJSON(report RunReport, path string) error {
	data, err := f.FormatSummary(report)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := f.paths.EnsureDirectoryExists(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// WriteBestConfigJSON writes the best sweep configuration to path
func (f *DefaultJSONFormatter) WriteBestConfigJSON(cfg config.StrategyConfig, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := f.paths.EnsureDirectoryExists(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
