package backtest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	bterrors "github.com/dthrottle/spy-leaps-monitor/internal/errors"
	"github.com/dthrottle/spy-leaps-monitor/pkg/config"
	"github.com/dthrottle/spy-leaps-monitor/pkg/types"
)

// ParameterGrid is the cartesian product of swept parameter values
type ParameterGrid struct {
	ranges []config.ParameterRange
}

// NewParameterGrid validates the ranges and builds a grid. Parameter order is kept.
func NewParameterGrid(ranges ...config.ParameterRange) (*ParameterGrid, error) {
	if len(ranges) == 0 {
		return nil, fmt.Errorf("parameter grid needs at least one range")
	}
	seen := make(map[string]bool, len(ranges))
	known := make(map[string]bool)
	for _, name := range config.SweepableParameters() {
		known[name] = true
	}
	for _, r := range ranges {
		if !known[r.Name] {
			return nil, fmt.Errorf("unknown sweep parameter %q", r.Name)
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("duplicate sweep parameter %q", r.Name)
		}
		if len(r.Values) == 0 {
			return nil, fmt.Errorf("sweep parameter %q has no values", r.Name)
		}
		seen[r.Name] = true
	}
	return &ParameterGrid{ranges: ranges}, nil
}

// Size returns the number of combinations
func (g *ParameterGrid) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r.Values)
	}
	return n
}

// Ranges returns the grid parameters
func (g *ParameterGrid) Ranges() []config.ParameterRange {
	return g.ranges
}

// Jobs expands the grid over base. The last parameter varies fastest.
// A combination that cannot be applied becomes a job carrying its error.
func (g *ParameterGrid) Jobs(base config.StrategyConfig) []BacktestJob {
	jobs := make([]BacktestJob, 0, g.Size())
	idx := make([]int, len(g.ranges))

	for n := 0; n < g.Size(); n++ {
		cfg := base
		params := make(map[string]float64, len(g.ranges))
		var err error
		for p, r := range g.ranges {
			value := r.Values[idx[p]]
			params[r.Name] = value
			if err == nil {
				cfg, err = config.ApplyParameter(cfg, r.Name, value)
			}
		}

		jobs = append(jobs, BacktestJob{
			Index:  n,
			ID:     comboID(n, params),
			Params: params,
			Config: cfg,
			Err:    err,
		})

		for p := len(idx) - 1; p >= 0; p-- {
			idx[p]++
			if idx[p] < len(g.ranges[p].Values) {
				break
			}
			idx[p] = 0
		}
	}
	return jobs
}

func comboID(index int, params map[string]float64) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%g", name, params[name])
	}
	return fmt.Sprintf("%03d[%s]", index, strings.Join(parts, ","))
}

// SweepRunner fans grid combinations out over a worker pool
type SweepRunner struct {
	workers    int
	progress   *ProgressTracker
	errorStats *bterrors.ErrorStats
	mu         sync.Mutex
}

// NewSweepRunner creates a runner; workers <= 0 uses one worker per CPU
func NewSweepRunner(workers int) *SweepRunner {
	return &SweepRunner{
		workers:    workers,
		errorStats: bterrors.NewErrorStats(10),
	}
}

// Run simulates every combination and returns results in combination order.
// A failing combination carries its error and never affects the others.
func (r *SweepRunner) Run(ctx context.Context, base config.StrategyConfig, grid *ParameterGrid, underlying, vix types.PriceSeries) ([]BacktestResult, error) {
	jobs := grid.Jobs(base)

	r.mu.Lock()
	r.progress = NewProgressTracker(len(jobs))
	r.errorStats = bterrors.NewErrorStats(10)
	progress := r.progress
	r.mu.Unlock()

	pool := NewWorkerPool(ctx, r.workers, len(jobs), underlying, vix)
	pool.Start()
	defer pool.Stop()

	go func() {
		defer pool.CloseJobs()
		for _, job := range jobs {
			if err := pool.SubmitJob(job); err != nil {
				return
			}
		}
	}()

	results := make([]BacktestResult, len(jobs))
	received := 0
	for res := range pool.GetResults() {
		results[res.Index] = res
		received++
		progress.Increment(res.Error != nil)
		if res.Error != nil {
			r.mu.Lock()
			r.errorStats.RecordError(res.Error)
			r.mu.Unlock()
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if received != len(jobs) {
		return nil, fmt.Errorf("sweep finished %d of %d combinations", received, len(jobs))
	}
	return results, nil
}

// Progress returns the tracker of the current or last sweep
func (r *SweepRunner) Progress() *ProgressTracker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress
}

// ErrorStats returns failure counts of the last sweep
func (r *SweepRunner) ErrorStats() *bterrors.ErrorStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errorStats
}
