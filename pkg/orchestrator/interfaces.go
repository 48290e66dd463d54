package orchestrator

import (
	"context"
	"time"

	"github.com/dthrottle/spy-leaps-monitor/internal/backtest"
	"github.com/dthrottle/spy-leaps-monitor/pkg/config"
	"github.com/dthrottle/spy-leaps-monitor/pkg/types"
)

// Orchestrator coordinates data loading, simulation, persistence and reporting
type Orchestrator interface {
	// RunBacktest executes a single backtest
	RunBacktest(ctx context.Context, req BacktestRequest) (*RunOutcome, error)

	// RunSweep executes every combination of grid over the same market data
	RunSweep(ctx context.Context, req BacktestRequest, grid *backtest.ParameterGrid) (*SweepOutcome, error)
}

// RunStore is the persistence the orchestrator needs; *storage.Store implements it
type RunStore interface {
	SaveRun(ctx context.Context, runID string, cfg config.StrategyConfig, result *backtest.Result, metrics backtest.Metrics) error
	SaveBars(ctx context.Context, table string, series types.PriceSeries) error
	LoadBars(ctx context.Context, table string, start, end time.Time) (types.PriceSeries, error)
}

// Workflow represents different execution workflows
type Workflow interface {
	// Execute runs the workflow and returns results
	Execute(ctx context.Context) (interface{}, error)

	// GetWorkflowType returns the type of workflow
	GetWorkflowType() WorkflowType
}

// WorkflowType represents different types of workflows
type WorkflowType string

const (
	WorkflowTypeSingle WorkflowType = "single"
	WorkflowTypeSweep  WorkflowType = "sweep"
)

// BacktestRequest describes one backtest or the base of a sweep.
// Market data comes from the store when FromStore is set, otherwise from CSV
// files given directly or located under DataRoot.
type BacktestRequest struct {
	Config         config.StrategyConfig `json:"config"`
	UnderlyingFile string                `json:"underlying_file,omitempty"`
	VIXFile        string                `json:"vix_file,omitempty"`
	DataRoot       string                `json:"data_root,omitempty"`
	FromStore      bool                  `json:"from_store,omitempty"`
	ImportBars     bool                  `json:"import_bars,omitempty"` // copy loaded CSV bars into the store
	NoPersist      bool                  `json:"no_persist,omitempty"`
	Report         bool                  `json:"report,omitempty"`
}

// RunOutcome is what RunBacktest returns
type RunOutcome struct {
	RunID     string           `json:"run_id"`
	Result    *backtest.Result `json:"result"`
	Metrics   backtest.Metrics `json:"metrics"`
	OutputDir string           `json:"output_dir,omitempty"`
	Duration  time.Duration    `json:"duration"`
}

// SweepOutcome is what RunSweep returns
type SweepOutcome struct {
	SweepID   string                    `json:"sweep_id"`
	Results   []backtest.BacktestResult `json:"results"`
	Best      *backtest.BacktestResult  `json:"best,omitempty"`
	BestRunID string                    `json:"best_run_id,omitempty"`
	Failed    int                       `json:"failed"`
	OutputDir string                    `json:"output_dir,omitempty"`
	Duration  time.Duration             `json:"duration"`
}
