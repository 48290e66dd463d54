package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParameterRange is one swept parameter and the values it takes
type ParameterRange struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// DefaultSensitivityRanges provides the parameter ranges swept when none are given
var DefaultSensitivityRanges = []ParameterRange{
	{Name: "pause_drawdown_pct", Values: []float64{5, 8, 10, 12, 15}},
	{Name: "liquidate_pct_from_peak", Values: []float64{12, 15, 18, 20, 25}},
	{Name: "vix_threshold", Values: []float64{20, 25, 30, 35}},
}

// sweepableParameters maps a config key to a setter for that field
var sweepableParameters = map[string]func(cfg *StrategyConfig, value float64){
	"weekly_amount":            func(c *StrategyConfig, v float64) { c.WeeklyAmount = v },
	"buy_weekday":              func(c *StrategyConfig, v float64) { c.BuyWeekday = int(v) },
	"strike_moneyness":         func(c *StrategyConfig, v float64) { c.StrikeMoneynessPct = v },
	"pause_drawdown_pct":       func(c *StrategyConfig, v float64) { c.PauseDrawdownPct = v },
	"pause_lookback_days":      func(c *StrategyConfig, v float64) { c.PauseLookbackDays = int(v) },
	"vix_threshold":            func(c *StrategyConfig, v float64) { c.VIXThreshold = v },
	"liquidate_pct_from_200ma": func(c *StrategyConfig, v float64) { c.LiquidatePctFrom200MA = v },
	"liquidate_pct_from_peak":  func(c *StrategyConfig, v float64) { c.LiquidatePctFromPeak = v },
	"use_death_cross":          func(c *StrategyConfig, v float64) { c.UseDeathCross = v != 0 },
	"resume_consec_days":       func(c *StrategyConfig, v float64) { c.ResumeConsecDays = int(v) },
	"resume_pct":               func(c *StrategyConfig, v float64) { c.ResumePct = v },
	"max_exposure_pct":         func(c *StrategyConfig, v float64) { c.MaxExposurePct = v },
	"pos_loss_pct":             func(c *StrategyConfig, v float64) { c.PosLossPct = v },
	"risk_free_rate":           func(c *StrategyConfig, v float64) { c.RiskFreeRate = v },
	"vol_window":               func(c *StrategyConfig, v float64) { c.VolWindow = int(v) },
}

// SweepableParameters returns the names accepted by ApplyParameter, sorted
func SweepableParameters() []string {
	names := make([]string, 0, len(sweepableParameters))
	for name := range sweepableParameters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyParameter returns a copy of cfg with the named parameter set to value
func ApplyParameter(cfg StrategyConfig, name string, value float64) (StrategyConfig, error) {
	set, ok := sweepableParameters[name]
	if !ok {
		return cfg, fmt.Errorf("unknown sweep parameter %q (supported: %s)", name, strings.Join(SweepableParameters(), ", "))
	}
	set(&cfg, value)
	return cfg, nil
}

// ParseParameterRange parses "name=v1,v2,..." into a ParameterRange
func ParseParameterRange(s string) (ParameterRange, error) {
	name, list, ok := strings.Cut(strings.TrimSpace(s), "=")
	if !ok {
		return ParameterRange{}, fmt.Errorf("invalid range %q: expected name=v1,v2,...", s)
	}
	name = strings.TrimSpace(name)
	if _, known := sweepableParameters[name]; !known {
		return ParameterRange{}, fmt.Errorf("unknown sweep parameter %q", name)
	}

	var values []float64
	for _, raw := range strings.Split(list, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return ParameterRange{}, fmt.Errorf("invalid value %q for %s: %w", raw, name, err)
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return ParameterRange{}, fmt.Errorf("range for %s has no values", name)
	}

	return ParameterRange{Name: name, Values: values}, nil
}
