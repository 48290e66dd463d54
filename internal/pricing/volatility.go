package pricing

import "math"

// TradingDaysPerYear annualises daily log-return volatility
const TradingDaysPerYear = 252

// VolatilityEstimator estimates annualised realized volatility from closes
type VolatilityEstimator struct {
	Window  int
	Default float64
}

// NewVolatilityEstimator creates an estimator over window log returns
func NewVolatilityEstimator(window int, defaultVol float64) *VolatilityEstimator {
	return &VolatilityEstimator{Window: window, Default: defaultVol}
}

// Estimate returns the population stdev of the last Window log returns ending at
// index asOf, annualised with sqrt(252). Short history, a zero result or a
// non-finite result give the default.
func (e *VolatilityEstimator) Estimate(closes []float64, asOf int) float64 {
	if e.Window < 2 || asOf >= len(closes) || asOf-e.Window < 0 {
		return e.Default
	}

	returns := make([]float64, 0, e.Window)
	for i := asOf - e.Window + 1; i <= asOf; i++ {
		prev, cur := closes[i-1], closes[i]
		if prev <= 0 || cur <= 0 {
			return e.Default
		}
		returns = append(returns, math.Log(cur/prev))
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))

	vol := math.Sqrt(variance) * math.Sqrt(TradingDaysPerYear)
	if vol == 0 || math.IsNaN(vol) || math.IsInf(vol, 0) {
		return e.Default
	}
	return vol
}
