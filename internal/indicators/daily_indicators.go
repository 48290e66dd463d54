package indicators

import "math"

// Moving average periods used by the liquidation and resume rules
const (
	FastMAPeriod = 50
	SlowMAPeriod = 200
)

// DailyIndicators holds the per-bar inputs of the signal state machine,
// aligned index for index with the underlying series
type DailyIndicators struct {
	MA50        []float64
	MA200       []float64
	RollingHigh []float64
}

// dailySet returns the indicators in DailyIndicators field order
func dailySet(lookback int) []SeriesIndicator {
	return []SeriesIndicator{NewSMA(FastMAPeriod), NewSMA(SlowMAPeriod), NewRollingHigh(lookback)}
}

// ComputeDailyIndicators computes MA50, MA200 and the rolling high once for a whole series
func ComputeDailyIndicators(closes []float64, lookback int) DailyIndicators {
	set := dailySet(lookback)
	return DailyIndicators{
		MA50:        set[0].Series(closes),
		MA200:       set[1].Series(closes),
		RollingHigh: set[2].Series(closes),
	}
}

// WarmUp names the daily indicators that are still warming up after bars
// closes; it is empty once every indicator has a full window
func WarmUp(bars, lookback int) []string {
	var names []string
	for _, ind := range dailySet(lookback) {
		if bars < ind.GetRequiredPeriods() {
			names = append(names, ind.GetName())
		}
	}
	return names
}

// Available reports whether an indicator value exists (is not NaN)
func Available(v float64) bool {
	return !math.IsNaN(v)
}
