package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dthrottle/spy-leaps-monitor/internal/backtest"
	bterrors "github.com/dthrottle/spy-leaps-monitor/internal/errors"
	"github.com/dthrottle/spy-leaps-monitor/internal/regime"
	"github.com/dthrottle/spy-leaps-monitor/pkg/config"
	"github.com/dthrottle/spy-leaps-monitor/pkg/types"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(DriverSQLite, ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleResult() *backtest.Result {
	return &backtest.Result{
		StartDate: day(2020, 1, 6),
		EndDate:   day(2020, 1, 10),
		Trades: []backtest.Trade{
			{EntryDate: day(2020, 1, 6), ExitDate: day(2020, 1, 8), EntryPrice: 400, ExitPrice: 380,
				Strike: 400, EntryPremium: 40, ExitPremium: 30, Contracts: 1, PnL: -1000, Notes: "Liquidation"},
			{EntryDate: day(2020, 1, 7), ExitDate: day(2020, 1, 8), EntryPrice: 401, ExitPrice: 380,
				Strike: 401, EntryPremium: 41, ExitPremium: 29, Contracts: 2, PnL: -2400, Notes: "Liquidation",
				EntryDelta: 0.62, EntryTheta: -0.05},
		},
		Signals: []backtest.Signal{
			{Date: day(2020, 1, 6), Type: regime.SignalBuy, Details: "Bought 1 contracts"},
			{Date: day(2020, 1, 8), Type: regime.SignalLiquidate, Details: "Drawdown 20.0% from peak exceeds liquidation threshold"},
		},
		EquityCurve: []backtest.EquityPoint{
			{Date: day(2020, 1, 6), PortfolioValue: 100000, Cash: 96000, OpenPositions: 1, Underlying: 400, State: "ACTIVE"},
			{Date: day(2020, 1, 7), PortfolioValue: 99900, Cash: 87800, OpenPositions: 2, Underlying: 401, State: "ACTIVE"},
			{Date: day(2020, 1, 8), PortfolioValue: 96600, Cash: 96600, Underlying: 380, State: "LIQUIDATED"},
		},
		MissingVIXDays: 1,
		FinalState:     "LIQUIDATED",
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("oracle", "dsn", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, bterrors.ErrStorage)
}

func TestSaveAndLoadBars(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	series := types.PriceSeries{
		{Date: day(2020, 1, 6), Open: 1, High: 2, Low: 0.5, Close: 1.5, AdjClose: 1.5, Volume: 100},
		{Date: day(2020, 1, 7), Open: 2, High: 3, Low: 1.5, Close: 2.5, AdjClose: 2.5, Volume: 200},
		{Date: day(2020, 1, 8), Open: 3, High: 4, Low: 2.5, Close: 3.5, AdjClose: 3.5, Volume: 300},
	}
	require.NoError(t, store.SaveBars(ctx, TablePrices, series))

	loaded, err := store.LoadBars(ctx, TablePrices, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.True(t, loaded[0].Date.Equal(day(2020, 1, 6)))
	assert.Equal(t, 2.5, loaded[1].Close)

	t.Run("upsert replaces same date", func(t *testing.T) {
		update := types.PriceSeries{{Date: day(2020, 1, 7), Open: 9, High: 9, Low: 9, Close: 9, AdjClose: 9, Volume: 9}}
		require.NoError(t, store.SaveBars(ctx, TablePrices, update))

		loaded, err := store.LoadBars(ctx, TablePrices, time.Time{}, time.Time{})
		require.NoError(t, err)
		require.Len(t, loaded, 3)
		assert.Equal(t, 9.0, loaded[1].Close)
	})

	t.Run("date range", func(t *testing.T) {
		loaded, err := store.LoadBars(ctx, TablePrices, day(2020, 1, 7), day(2020, 1, 7))
		require.NoError(t, err)
		require.Len(t, loaded, 1)
		assert.True(t, loaded[0].Date.Equal(day(2020, 1, 7)))
	})

	t.Run("tables are separate", func(t *testing.T) {
		vix, err := store.LoadBars(ctx, TableVIX, time.Time{}, time.Time{})
		require.NoError(t, err)
		assert.Empty(t, vix)
	})

	t.Run("unknown table", func(t *testing.T) {
		_, err := store.LoadBars(ctx, "runs", time.Time{}, time.Time{})
		assert.ErrorIs(t, err, bterrors.ErrStorage)
	})
}

func TestSaveAndLoadRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cfg := config.NewDefaultStrategyConfig()
	cfg.VIXThreshold = 30
	result := sampleResult()
	metrics := backtest.Metrics{TotalReturn: -0.034, MaxDrawdown: 0.034, TotalTrades: 2, LosingTrades: 2, FinalValue: 96600}

	require.NoError(t, store.SaveRun(ctx, "run-1", cfg, result, metrics))

	rec, err := store.LoadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", rec.RunID)
	assert.Equal(t, "SPY", rec.Symbol)
	assert.Equal(t, "LIQUIDATED", rec.FinalState)
	assert.Equal(t, 2, rec.TradeCount)
	assert.Equal(t, 2, rec.SignalCount)
	assert.Equal(t, 1, rec.MissingVIXDays)
	assert.Equal(t, cfg, rec.Config)
	assert.Equal(t, metrics, rec.Metrics)
	assert.True(t, rec.StartDate.Equal(day(2020, 1, 6)))
	assert.False(t, rec.CreatedAt.IsZero())

	trades, err := store.LoadTrades(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, result.Trades[0].PnL, trades[0].PnL)
	assert.Equal(t, 2, trades[1].Contracts)
	assert.Equal(t, 0.62, trades[1].EntryDelta)
	assert.Equal(t, -0.05, trades[1].EntryTheta)
	assert.True(t, trades[1].EntryDate.Equal(day(2020, 1, 7)))

	signals, err := store.LoadSignals(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, signals, 2)
	assert.Equal(t, regime.SignalBuy, signals[0].Type)
	assert.Equal(t, regime.SignalLiquidate, signals[1].Type)

	equity, err := store.LoadEquity(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, equity, 3)
	assert.Equal(t, "LIQUIDATED", equity[2].State)
	assert.Equal(t, 96600.0, equity[2].PortfolioValue)
}

func TestSaveRunDuplicateIDFails(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	cfg := config.NewDefaultStrategyConfig()

	require.NoError(t, store.SaveRun(ctx, "dup", cfg, sampleResult(), backtest.Metrics{}))
	err := store.SaveRun(ctx, "dup", cfg, sampleResult(), backtest.Metrics{})
	require.Error(t, err)
	assert.ErrorIs(t, err, bterrors.ErrStorage)

	// the failed transaction must not leave extra rows behind
	trades, err := store.LoadTrades(ctx, "dup")
	require.NoError(t, err)
	assert.Len(t, trades, 2)
}

func TestLoadRunNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.LoadRun(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, err, bterrors.ErrStorage)
}

func TestListRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	cfg := config.NewDefaultStrategyConfig()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.SaveRun(ctx, id, cfg, sampleResult(), backtest.Metrics{}))
	}

	all, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}
