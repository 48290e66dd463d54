package backtest

import (
	"time"

	"github.com/dthrottle/spy-leaps-monitor/pkg/config"
	"github.com/dthrottle/spy-leaps-monitor/pkg/types"
)

// businessDays returns n weekdays starting at start
func businessDays(start time.Time, n int) []time.Time {
	days := make([]time.Time, 0, n)
	for d := start; len(days) < n; d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		days = append(days, d)
	}
	return days
}

func seriesFrom(dates []time.Time, closes []float64) types.PriceSeries {
	series := make(types.PriceSeries, len(dates))
	for i, d := range dates {
		c := closes[i]
		series[i] = types.PriceBar{Date: d, Open: c, High: c, Low: c, Close: c, AdjClose: c, Volume: 1e6}
	}
	return series
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func flatVIX(dates []time.Time, level float64) types.PriceSeries {
	return seriesFrom(dates, constant(len(dates), level))
}

// crashScenario is 504 flat days at 400, a one-day drop to 320, then 251 flat days at 320
func crashScenario() (types.PriceSeries, types.PriceSeries, int) {
	dates := businessDays(time.Date(2020, 1, 6, 0, 0, 0, 0, time.UTC), 756)
	closes := append(constant(504, 400), constant(252, 320)...)
	return seriesFrom(dates, closes), flatVIX(dates, 15), 504
}

func crashConfig() config.StrategyConfig {
	cfg := config.NewDefaultStrategyConfig()
	cfg.WeeklyAmount = 5000
	cfg.MaxExposurePct = 50
	return cfg
}
