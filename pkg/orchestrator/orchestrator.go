package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dthrottle/spy-leaps-monitor/internal/backtest"
	bterrors "github.com/dthrottle/spy-leaps-monitor/internal/errors"
	"github.com/dthrottle/spy-leaps-monitor/internal/logger"
	"github.com/dthrottle/spy-leaps-monitor/internal/monitoring"
	"github.com/dthrottle/spy-leaps-monitor/pkg/data"
	"github.com/dthrottle/spy-leaps-monitor/pkg/reporting"
)

const sweepProgressInterval = 10 * time.Second

// Dependencies are the collaborators of an orchestrator. Nil fields get
// defaults, except Store and Reporter which simply disable persistence and
// file output.
type Dependencies struct {
	Data     *data.DataManager
	Store    RunStore
	Metrics  *monitoring.Metrics
	Health   *monitoring.HealthChecker
	Reporter *reporting.ReportingManager
	Logger   *logger.Logger
	Workers  int
}

// DefaultOrchestrator implements the Orchestrator interface
type DefaultOrchestrator struct {
	data     *data.DataManager
	store    RunStore
	metrics  *monitoring.Metrics
	health   *monitoring.HealthChecker
	reporter *reporting.ReportingManager
	log      *logger.Logger
	workers  int
}

// NewOrchestrator creates an orchestrator from its dependencies
func NewOrchestrator(deps Dependencies) *DefaultOrchestrator {
	log := deps.Logger
	if log == nil {
		log = logger.Discard()
	}
	o := &DefaultOrchestrator{
		data:     deps.Data,
		store:    deps.Store,
		metrics:  deps.Metrics,
		health:   deps.Health,
		reporter: deps.Reporter,
		log:      log,
		workers:  deps.Workers,
	}
	if o.data == nil {
		o.data = data.NewDataManager(log)
	}
	if o.metrics == nil {
		o.metrics = monitoring.NewMetrics()
	}
	if o.health == nil {
		o.health = monitoring.NewHealthChecker(nil)
	}
	return o
}

// RunBacktest executes a single backtest
func (o *DefaultOrchestrator) RunBacktest(ctx context.Context, req BacktestRequest) (*RunOutcome, error) {
	start := time.Now()
	cfg := req.Config
	runID := uuid.NewString()
	log := o.log.With("run_id", runID)

	log.Info("🚀 Starting LEAPS backtest %s", runID)
	log.Info("📊 Symbol: %s, weekly amount: $%.2f, buy weekday: %s", cfg.Symbol, cfg.WeeklyAmount, cfg.BuyDay())
	log.Info("🛡️ Pause at %.1f%% drawdown or VIX > %g, liquidate at %.1f%% from peak or %.1f%% below 200MA",
		cfg.PauseDrawdownPct, cfg.VIXThreshold, cfg.LiquidatePctFromPeak, cfg.LiquidatePctFrom200MA)

	outcome, err := o.runBacktest(ctx, runID, req)
	if err != nil {
		o.fail(cfg.Symbol, err)
		log.LogError("❌ Backtest failed", err)
		return nil, err
	}

	outcome.Duration = time.Since(start)
	res, m := outcome.Result, outcome.Metrics
	o.metrics.RecordRun(runSummary(res, m, outcome.Duration))
	o.health.RecordRun(runID)
	log.LogRunSummary(runID, m.TotalReturn, m.MaxDrawdown, len(res.Trades), len(res.Signals), outcome.Duration)

	if req.Report && o.reporter != nil {
		dir, err := o.reporter.ReportRun(reporting.RunReport{RunID: runID, Result: res, Metrics: m})
		if err != nil {
			log.LogError("⚠️ Report failed", err)
			return outcome, err
		}
		outcome.OutputDir = dir
		if dir != "" {
			log.Info("📁 Reports written to %s", dir)
		}
	}
	return outcome, nil
}

// RunSweep executes every combination of grid; failed combinations are
// reported in the outcome and never abort the sweep
func (o *DefaultOrchestrator) RunSweep(ctx context.Context, req BacktestRequest, grid *backtest.ParameterGrid) (*SweepOutcome, error) {
	start := time.Now()
	cfg := req.Config
	sweepID := uuid.NewString()
	log := o.log.With("sweep_id", sweepID)

	log.Info("🔬 Starting parameter sweep %s: %d combinations", sweepID, grid.Size())
	for _, r := range grid.Ranges() {
		log.Info("   %s: %v", r.Name, r.Values)
	}

	md, err := o.loadMarketData(ctx, req)
	if err != nil {
		o.fail(cfg.Symbol, err)
		return nil, err
	}

	runner := backtest.NewSweepRunner(o.workers)
	stopProgress := logProgress(log, runner)
	results, err := runner.Run(ctx, cfg, grid, md.Underlying, md.VIX)
	stopProgress()
	if err != nil {
		o.fail(cfg.Symbol, err)
		return nil, err
	}

	outcome := &SweepOutcome{SweepID: sweepID, Results: results}
	for _, res := range results {
		o.metrics.RecordSweepJob(res.Error != nil)
		if res.Error != nil {
			outcome.Failed++
			log.Warning("⚠️ Combination %s failed: %v", res.ID, res.Error)
		}
	}
	if stats := runner.ErrorStats(); stats.TotalErrors > 0 {
		for category, n := range stats.ErrorsByCategory {
			log.Warning("⚠️ %d combinations failed with %s (%.0f%% of failures)",
				n, category, stats.GetErrorRate(category)*100)
		}
	}

	if best, ok := reporting.BestSweepResult(results); ok {
		outcome.Best = &best
		log.Info("🏆 Best combination %s: return %.2f%%, max drawdown %.2f%%",
			best.ID, best.Metrics.TotalReturn*100, best.Metrics.MaxDrawdown*100)

		if o.store != nil && !req.NoPersist {
			runID := uuid.NewString()
			if err := o.store.SaveRun(ctx, runID, best.Config, best.Result, best.Metrics); err != nil {
				return nil, err
			}
			outcome.BestRunID = runID
		}
	}

	outcome.Duration = time.Since(start)
	log.Status("✅ Sweep %s finished in %s: %d ok, %d failed",
		sweepID, outcome.Duration.Round(time.Millisecond), len(results)-outcome.Failed, outcome.Failed)

	if req.Report && o.reporter != nil {
		dir, err := o.reporter.ReportSweep(cfg.Symbol, sweepID, results)
		if err != nil {
			return outcome, err
		}
		outcome.OutputDir = dir
	}
	return outcome, nil
}

// logProgress logs sweep progress every sweepProgressInterval until the returned func is called
func logProgress(log *logger.Logger, runner *backtest.SweepRunner) func() {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(sweepProgressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := runner.Progress()
				if p == nil {
					continue
				}
				completed, failed, total, pct := p.GetProgress()
				log.Info("⏳ Sweep progress %d/%d (%.0f%%), %d failed, ~%s left",
					completed, total, pct, failed, p.EstimateTimeRemaining().Round(time.Second))
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}

func (o *DefaultOrchestrator) fail(symbol string, err error) {
	category, ok := bterrors.CategoryOf(err)
	if !ok {
		category = "UNKNOWN"
	}
	o.metrics.RecordRunFailure(symbol, string(category))
	o.health.RecordError(err)
}

func runSummary(res *backtest.Result, m backtest.Metrics, elapsed time.Duration) monitoring.RunSummary {
	s := monitoring.RunSummary{
		Symbol:      res.Config.Symbol,
		Duration:    elapsed,
		FinalValue:  m.FinalValue,
		TotalReturn: m.TotalReturn,
		MaxDrawdown: m.MaxDrawdown,
		SkippedBuys: len(res.SkippedBuys),
	}
	for _, t := range res.Trades {
		s.TradeReasons = append(s.TradeReasons, t.ExitReason())
		s.TradePnLs = append(s.TradePnLs, t.PnL)
	}
	for _, sig := range res.Signals {
		s.SignalTypes = append(s.SignalTypes, string(sig.Type))
	}
	return s
}
