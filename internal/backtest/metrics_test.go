package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func curveFrom(start time.Time, values ...float64) []EquityPoint {
	curve := make([]EquityPoint, len(values))
	for i, v := range values {
		curve[i] = EquityPoint{
			Date:           start.AddDate(0, 0, i),
			PortfolioValue: v,
			Cash:           v,
			Underlying:     400 + float64(i),
		}
	}
	return curve
}

var metricsStart = time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)

// TestCalculateMetrics_EmptyCurve tests that no data gives all zeros
func TestCalculateMetrics_EmptyCurve(t *testing.T) {
	assert.Equal(t, Metrics{}, CalculateMetrics(nil, nil, 100000, 0.045))
}

// TestCalculateMetrics_Returns tests total return, final value and drawdown
func TestCalculateMetrics_Returns(t *testing.T) {
	curve := curveFrom(metricsStart, 100000, 110000, 99000, 120000)
	m := CalculateMetrics(curve, nil, 100000, 0.045)

	assert.InDelta(t, 0.20, m.TotalReturn, 1e-12)
	assert.Equal(t, 120000.0, m.FinalValue)
	assert.InDelta(t, 0.10, m.MaxDrawdown, 1e-12)
	assert.InDelta(t, 403.0/400.0-1, m.BuyAndHoldReturn, 1e-12)
}

// TestCalculateMetrics_CAGR tests annualisation over calendar days
func TestCalculateMetrics_CAGR(t *testing.T) {
	curve := []EquityPoint{
		{Date: metricsStart, PortfolioValue: 100000},
		{Date: metricsStart.AddDate(2, 0, 0), PortfolioValue: 121000},
	}
	days := curve[1].Date.Sub(curve[0].Date).Hours() / 24

	m := CalculateMetrics(curve, nil, 100000, 0)
	assert.InDelta(t, math.Pow(1.21, 365.25/days)-1, m.CAGR, 1e-12)
	assert.InDelta(t, 0.10, m.CAGR, 1e-3)
}

// TestCalculateMetrics_SinglePoint tests that a one-day curve has no ratios
func TestCalculateMetrics_SinglePoint(t *testing.T) {
	m := CalculateMetrics(curveFrom(metricsStart, 95000), nil, 100000, 0.045)

	assert.InDelta(t, -0.05, m.TotalReturn, 1e-12)
	assert.Zero(t, m.CAGR)
	assert.Zero(t, m.SharpeRatio)
	assert.Zero(t, m.SortinoRatio)
	assert.Zero(t, m.MaxDrawdown)
}

// TestCalculateMetrics_SharpeAndSortino tests the sign and annualisation of the ratios
func TestCalculateMetrics_SharpeAndSortino(t *testing.T) {
	up := curveFrom(metricsStart, 100000, 101000, 100500, 102000, 101800, 103500)
	m := CalculateMetrics(up, nil, 100000, 0)
	assert.Greater(t, m.SharpeRatio, 0.0)
	assert.Greater(t, m.SortinoRatio, 0.0)

	returns := dailyReturns(up)
	expected := mean(returns) / stdDev(returns) * math.Sqrt(252)
	assert.InDelta(t, expected, m.SharpeRatio, 1e-9)

	down := curveFrom(metricsStart, 100000, 99000, 99500, 97000, 97200, 95000)
	m = CalculateMetrics(down, nil, 100000, 0)
	assert.Less(t, m.SharpeRatio, 0.0)
	assert.Less(t, m.SortinoRatio, 0.0)
}

// TestCalculateMetrics_NoDownside tests that Sortino is zero without negative excess returns
func TestCalculateMetrics_NoDownside(t *testing.T) {
	m := CalculateMetrics(curveFrom(metricsStart, 100000, 101000, 103000, 104000), nil, 100000, 0)
	assert.Zero(t, m.SortinoRatio)
	assert.Greater(t, m.SharpeRatio, 0.0)
}

// TestCalculateMetrics_FlatCurve tests zero volatility handling
func TestCalculateMetrics_FlatCurve(t *testing.T) {
	m := CalculateMetrics(curveFrom(metricsStart, 100000, 100000, 100000), nil, 100000, 0.045)
	assert.Zero(t, m.SharpeRatio)
	assert.Zero(t, m.TotalReturn)
	assert.Zero(t, m.MaxDrawdown)
}

// TestCalculateMetrics_TradeStats tests win rate and average win/loss
func TestCalculateMetrics_TradeStats(t *testing.T) {
	trades := []Trade{{PnL: 100}, {PnL: -50}, {PnL: 0}, {PnL: 300}}
	m := CalculateMetrics(curveFrom(metricsStart, 100000, 100350), trades, 100000, 0)

	assert.Equal(t, 4, m.TotalTrades)
	assert.Equal(t, 2, m.WinningTrades)
	assert.Equal(t, 1, m.LosingTrades)
	assert.InDelta(t, 0.5, m.WinRate, 1e-12)
	assert.InDelta(t, 200, m.AvgWin, 1e-12)
	assert.InDelta(t, -50, m.AvgLoss, 1e-12)
}

// TestCalculateMetrics_NoTrades tests zero trade statistics
func TestCalculateMetrics_NoTrades(t *testing.T) {
	m := CalculateMetrics(curveFrom(metricsStart, 100000, 100100), nil, 100000, 0)
	assert.Zero(t, m.TotalTrades)
	assert.Zero(t, m.WinRate)
	assert.Zero(t, m.AvgWin)
	assert.Zero(t, m.AvgLoss)
}

// TestRollingSharpe tests warm-up and values
func TestRollingSharpe(t *testing.T) {
	curve := curveFrom(metricsStart, 100, 101, 100, 102, 103, 102, 104)
	rolling := RollingSharpe(curve, 3)

	require.Len(t, rolling, len(curve))
	for i := 0; i < 3; i++ {
		assert.True(t, math.IsNaN(rolling[i]), "index %d", i)
	}

	returns := dailyReturns(curve)
	win := returns[3:6]
	assert.InDelta(t, mean(win)/stdDev(win)*math.Sqrt(252), rolling[6], 1e-9)
}
