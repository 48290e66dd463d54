package orchestrator

import (
	"context"

	"github.com/dthrottle/spy-leaps-monitor/internal/backtest"
)

// SingleBacktestWorkflow represents a single backtest workflow
type SingleBacktestWorkflow struct {
	orchestrator Orchestrator
	request      BacktestRequest
}

// NewSingleBacktestWorkflow creates a new single backtest workflow
func NewSingleBacktestWorkflow(orchestrator Orchestrator, req BacktestRequest) Workflow {
	return &SingleBacktestWorkflow{orchestrator: orchestrator, request: req}
}

// Execute runs the single backtest workflow
func (w *SingleBacktestWorkflow) Execute(ctx context.Context) (interface{}, error) {
	return w.orchestrator.RunBacktest(ctx, w.request)
}

// GetWorkflowType returns the workflow type
func (w *SingleBacktestWorkflow) GetWorkflowType() WorkflowType {
	return WorkflowTypeSingle
}

// SweepWorkflow represents a parameter sweep workflow
type SweepWorkflow struct {
	orchestrator Orchestrator
	request      BacktestRequest
	grid         *backtest.ParameterGrid
}

// NewSweepWorkflow creates a new sweep workflow
func NewSweepWorkflow(orchestrator Orchestrator, req BacktestRequest, grid *backtest.ParameterGrid) Workflow {
	return &SweepWorkflow{orchestrator: orchestrator, request: req, grid: grid}
}

// Execute runs the sweep workflow
func (w *SweepWorkflow) Execute(ctx context.Context) (interface{}, error) {
	return w.orchestrator.RunSweep(ctx, w.request, w.grid)
}

// GetWorkflowType returns the workflow type
func (w *SweepWorkflow) GetWorkflowType() WorkflowType {
	return WorkflowTypeSweep
}

// WorkflowFactory creates workflows based on type
type WorkflowFactory struct {
	orchestrator Orchestrator
}

// NewWorkflowFactory creates a new workflow factory
func NewWorkflowFactory(orchestrator Orchestrator) *WorkflowFactory {
	return &WorkflowFactory{orchestrator: orchestrator}
}

// CreateWorkflow picks the sweep workflow when a grid is given
func (f *WorkflowFactory) CreateWorkflow(req BacktestRequest, grid *backtest.ParameterGrid) Workflow {
	if grid != nil && grid.Size() > 0 {
		return NewSweepWorkflow(f.orchestrator, req, grid)
	}
	return NewSingleBacktestWorkflow(f.orchestrator, req)
}
