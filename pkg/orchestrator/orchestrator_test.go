package orchestrator

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dthrottle/spy-leaps-monitor/internal/backtest"
	bterrors "github.com/dthrottle/spy-leaps-monitor/internal/errors"
	"github.com/dthrottle/spy-leaps-monitor/internal/monitoring"
	"github.com/dthrottle/spy-leaps-monitor/internal/regime"
	"github.com/dthrottle/spy-leaps-monitor/pkg/config"
	"github.com/dthrottle/spy-leaps-monitor/pkg/data"
	"github.com/dthrottle/spy-leaps-monitor/pkg/reporting"
	"github.com/dthrottle/spy-leaps-monitor/pkg/storage"
	"github.com/dthrottle/spy-leaps-monitor/pkg/types"
)

// writeSeries writes n weekday bars; closes switch from before to after at index crashAt
func writeSeries(t *testing.T, path string, n, crashAt int, before, after float64) {
	t.Helper()
	series := make(types.PriceSeries, 0, n)
	for d := time.Date(2020, 1, 6, 0, 0, 0, 0, time.UTC); len(series) < n; d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		c := before
		if len(series) >= crashAt {
			c = after
		}
		series = append(series, types.PriceBar{Date: d, Open: c, High: c, Low: c, Close: c, AdjClose: c, Volume: 1e6})
	}

	var buf bytes.Buffer
	require.NoError(t, data.WriteCSV(&buf, series, data.YahooCSVFormat))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

// crashDataRoot holds SPY.csv (flat at 400, then 320 from bar 504) and a calm VIX.csv
func crashDataRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeSeries(t, filepath.Join(root, "SPY.csv"), 756, 504, 400, 320)
	writeSeries(t, filepath.Join(root, "VIX.csv"), 756, 756, 15, 15)
	return root
}

func crashConfig() config.StrategyConfig {
	cfg := config.NewDefaultStrategyConfig()
	cfg.WeeklyAmount = 5000
	cfg.MaxExposurePct = 50
	return cfg
}

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(storage.DriverSQLite, ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunBacktest_FromDataRoot(t *testing.T) {
	store := newTestStore(t)
	metrics := monitoring.NewMetrics()
	health := monitoring.NewHealthChecker(store.Ping)
	o := NewOrchestrator(Dependencies{Store: store, Metrics: metrics, Health: health})
	ctx := context.Background()

	outcome, err := o.RunBacktest(ctx, BacktestRequest{Config: crashConfig(), DataRoot: crashDataRoot(t)})
	require.NoError(t, err)

	require.NotEmpty(t, outcome.RunID)
	res := outcome.Result
	assert.Len(t, res.EquityCurve, 756)
	assert.NotEmpty(t, res.Trades)
	assert.NotEmpty(t, res.SignalsOfType(regime.SignalLiquidate))
	assert.Zero(t, res.MissingVIXDays)
	assert.Equal(t, res.FinalValue(), outcome.Metrics.FinalValue)
	assert.InDelta(t, -0.2, outcome.Metrics.BuyAndHoldReturn, 1e-12)

	rec, err := store.LoadRun(ctx, outcome.RunID)
	require.NoError(t, err)
	assert.Equal(t, len(res.Trades), rec.TradeCount)
	assert.Equal(t, outcome.Metrics, rec.Metrics)

	trades, err := store.LoadTrades(ctx, outcome.RunID)
	require.NoError(t, err)
	assert.Len(t, trades, len(res.Trades))

	count, err := testutil.GatherAndCount(metrics.Registry(), "leaps_backtest_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	status, _ := health.Check(ctx)
	assert.Equal(t, outcome.RunID, status.LastRunID)
}

func TestRunBacktest_NoPersist(t *testing.T) {
	store := newTestStore(t)
	o := NewOrchestrator(Dependencies{Store: store})
	ctx := context.Background()

	outcome, err := o.RunBacktest(ctx, BacktestRequest{Config: crashConfig(), DataRoot: crashDataRoot(t), NoPersist: true})
	require.NoError(t, err)

	_, err = store.LoadRun(ctx, outcome.RunID)
	assert.ErrorIs(t, err, storage.ErrRunNotFound)
}

func TestRunBacktest_NoDataSource(t *testing.T) {
	health := monitoring.NewHealthChecker(nil)
	o := NewOrchestrator(Dependencies{Health: health})

	_, err := o.RunBacktest(context.Background(), BacktestRequest{Config: crashConfig()})
	require.Error(t, err)
	assert.ErrorIs(t, err, bterrors.ErrConfigValidation)

	status, _ := health.Check(context.Background())
	assert.Equal(t, "degraded", status.Status)
}

func TestRunBacktest_InvalidConfig(t *testing.T) {
	cfg := crashConfig()
	cfg.WeeklyAmount = 0

	_, err := NewOrchestrator(Dependencies{}).RunBacktest(context.Background(), BacktestRequest{Config: cfg, DataRoot: t.TempDir()})
	assert.ErrorIs(t, err, bterrors.ErrConfigValidation)
}

func TestRunBacktest_FromStoreMatchesCSV(t *testing.T) {
	store := newTestStore(t)
	o := NewOrchestrator(Dependencies{Store: store})
	ctx := context.Background()

	fromCSV, err := o.RunBacktest(ctx, BacktestRequest{Config: crashConfig(), DataRoot: crashDataRoot(t), ImportBars: true})
	require.NoError(t, err)

	fromStore, err := o.RunBacktest(ctx, BacktestRequest{Config: crashConfig(), FromStore: true})
	require.NoError(t, err)

	assert.NotEqual(t, fromCSV.RunID, fromStore.RunID)
	assert.InDelta(t, fromCSV.Metrics.FinalValue, fromStore.Metrics.FinalValue, 1e-6)
	assert.Equal(t, len(fromCSV.Result.Trades), len(fromStore.Result.Trades))
}

func TestRunBacktest_FromStoreWithoutStore(t *testing.T) {
	_, err := NewOrchestrator(Dependencies{}).RunBacktest(context.Background(), BacktestRequest{Config: crashConfig(), FromStore: true})
	assert.ErrorIs(t, err, bterrors.ErrConfigValidation)
}

func TestRunBacktest_Report(t *testing.T) {
	out := t.TempDir()
	var console bytes.Buffer
	rcfg := reporting.DefaultReportingConfig()
	rcfg.OutputDirectory = out
	rcfg.Console = &console

	o := NewOrchestrator(Dependencies{Reporter: reporting.NewReportingManager(rcfg)})
	outcome, err := o.RunBacktest(context.Background(), BacktestRequest{Config: crashConfig(), DataRoot: crashDataRoot(t), Report: true})
	require.NoError(t, err)

	assert.Equal(t, out, outcome.OutputDir)
	assert.FileExists(t, filepath.Join(out, reporting.TradesCSVFile))
	assert.FileExists(t, filepath.Join(out, reporting.WorkbookFile))
	assert.Contains(t, console.String(), outcome.RunID)
}

func TestRunSweep(t *testing.T) {
	store := newTestStore(t)
	metrics := monitoring.NewMetrics()
	o := NewOrchestrator(Dependencies{Store: store, Metrics: metrics, Workers: 2})
	ctx := context.Background()

	grid, err := backtest.NewParameterGrid(
		config.ParameterRange{Name: "max_exposure_pct", Values: []float64{50, 0}},
		config.ParameterRange{Name: "vix_threshold", Values: []float64{20, 30}},
	)
	require.NoError(t, err)

	outcome, err := o.RunSweep(ctx, BacktestRequest{Config: crashConfig(), DataRoot: crashDataRoot(t)}, grid)
	require.NoError(t, err)

	require.Len(t, outcome.Results, 4)
	assert.Equal(t, 2, outcome.Failed)
	for i, res := range outcome.Results {
		assert.Equal(t, i, res.Index)
	}
	assert.ErrorIs(t, outcome.Results[2].Error, bterrors.ErrConfigValidation)

	require.NotNil(t, outcome.Best)
	assert.NoError(t, outcome.Best.Error)
	require.NotEmpty(t, outcome.BestRunID)

	rec, err := store.LoadRun(ctx, outcome.BestRunID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, rec.Config.MaxExposurePct)

	count, err := testutil.GatherAndCount(metrics.Registry(), "leaps_backtest_sweep_jobs_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestWorkflowFactory(t *testing.T) {
	o := NewOrchestrator(Dependencies{})
	f := NewWorkflowFactory(o)

	assert.Equal(t, WorkflowTypeSingle, f.CreateWorkflow(BacktestRequest{}, nil).GetWorkflowType())

	grid, err := backtest.NewParameterGrid(config.ParameterRange{Name: "vix_threshold", Values: []float64{20}})
	require.NoError(t, err)
	assert.Equal(t, WorkflowTypeSweep, f.CreateWorkflow(BacktestRequest{}, grid).GetWorkflowType())
}
