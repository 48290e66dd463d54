package backtest

import "math"

const (
	tradingDaysPerYear = 252
	daysPerYear        = 365.25
)

// Metrics summarises a run. Returns and drawdown are fractions, not percents.
type Metrics struct {
	TotalReturn      float64 `json:"total_return"`
	CAGR             float64 `json:"cagr"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	SortinoRatio     float64 `json:"sortino_ratio"`
	WinRate          float64 `json:"win_rate"`
	AvgWin           float64 `json:"avg_win"`
	AvgLoss          float64 `json:"avg_loss"`
	TotalTrades      int     `json:"total_trades"`
	WinningTrades    int     `json:"winning_trades"`
	LosingTrades     int     `json:"losing_trades"`
	FinalValue       float64 `json:"final_value"`
	BuyAndHoldReturn float64 `json:"buy_and_hold_return"`
}

// CalculateMetrics computes performance statistics from an equity curve and trade log
func CalculateMetrics(curve []EquityPoint, trades []Trade, initialCapital, riskFreeRate float64) Metrics {
	var m Metrics
	if len(curve) == 0 {
		return m
	}

	m.FinalValue = curve[len(curve)-1].PortfolioValue
	if initialCapital > 0 {
		m.TotalReturn = m.FinalValue/initialCapital - 1
		m.CAGR = calculateCAGR(initialCapital, m.FinalValue, curve)
	}
	m.MaxDrawdown = calculateMaxDrawdown(curve)

	returns := dailyReturns(curve)
	m.SharpeRatio = sharpeRatio(returns, riskFreeRate)
	m.SortinoRatio = sortinoRatio(returns, riskFreeRate)

	m.BuyAndHoldReturn = underlyingReturn(curve)

	applyTradeStats(&m, trades)
	return m
}

func calculateCAGR(initial, final float64, curve []EquityPoint) float64 {
	days := curve[len(curve)-1].Date.Sub(curve[0].Date).Hours() / 24
	if days <= 0 {
		return 0
	}
	if final <= 0 {
		return -1
	}
	return math.Pow(final/initial, daysPerYear/days) - 1
}

func calculateMaxDrawdown(curve []EquityPoint) float64 {
	peak := curve[0].PortfolioValue
	maxDD := 0.0
	for _, p := range curve {
		if p.PortfolioValue > peak {
			peak = p.PortfolioValue
		}
		if peak > 0 {
			if dd := (peak - p.PortfolioValue) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

func dailyReturns(curve []EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].PortfolioValue
		if prev == 0 {
			continue
		}
		returns = append(returns, curve[i].PortfolioValue/prev-1)
	}
	return returns
}

func sharpeRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	excess := excessReturns(returns, riskFreeRate)
	sd := stdDev(excess)
	if sd < 1e-12 {
		return 0
	}
	return mean(excess) / sd * math.Sqrt(tradingDaysPerYear)
}

// sortinoRatio divides mean excess return by the downside deviation,
// the root mean square of negative excess returns over all observations
func sortinoRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	excess := excessReturns(returns, riskFreeRate)
	sumSq := 0.0
	for _, r := range excess {
		if r < 0 {
			sumSq += r * r
		}
	}
	downside := math.Sqrt(sumSq / float64(len(excess)))
	if downside < 1e-12 {
		return 0
	}
	return mean(excess) / downside * math.Sqrt(tradingDaysPerYear)
}

func excessReturns(returns []float64, riskFreeRate float64) []float64 {
	daily := riskFreeRate / tradingDaysPerYear
	out := make([]float64, len(returns))
	for i, r := range returns {
		out[i] = r - daily
	}
	return out
}

func applyTradeStats(m *Metrics, trades []Trade) {
	m.TotalTrades = len(trades)
	if len(trades) == 0 {
		return
	}

	var winSum, lossSum float64
	for _, t := range trades {
		switch {
		case t.PnL > 0:
			m.WinningTrades++
			winSum += t.PnL
		case t.PnL < 0:
			m.LosingTrades++
			lossSum += t.PnL
		}
	}

	m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)
	if m.WinningTrades > 0 {
		m.AvgWin = winSum / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AvgLoss = lossSum / float64(m.LosingTrades)
	}
}

func underlyingReturn(curve []EquityPoint) float64 {
	first := curve[0].Underlying
	if first <= 0 {
		return 0
	}
	return curve[len(curve)-1].Underlying/first - 1
}

// ResultMetrics computes the metrics of a finished run with its own capital and rate
func ResultMetrics(res *Result) Metrics {
	return CalculateMetrics(res.EquityCurve, res.Trades, res.Config.InitialCapital, res.Config.RiskFreeRate)
}

// RollingSharpe returns the annualised Sharpe ratio of daily returns over a
// trailing window, aligned with curve. Entries without a full window are NaN.
func RollingSharpe(curve []EquityPoint, window int) []float64 {
	out := make([]float64, len(curve))
	for i := range out {
		out[i] = math.NaN()
	}
	if window < 2 {
		return out
	}

	returns := make([]float64, len(curve))
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].PortfolioValue
		if prev != 0 {
			returns[i] = curve[i].PortfolioValue/prev - 1
		}
	}

	for i := window; i < len(curve); i++ {
		win := returns[i-window+1 : i+1]
		sd := stdDev(win)
		if sd < 1e-12 {
			out[i] = 0
			continue
		}
		out[i] = mean(win) / sd * math.Sqrt(tradingDaysPerYear)
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdDev is the sample standard deviation
func stdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	variance := 0.0
	for _, x := range xs {
		variance += math.Pow(x-m, 2)
	}
	return math.Sqrt(variance / float64(len(xs)-1))
}
