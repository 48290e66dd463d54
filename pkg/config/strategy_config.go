package config

import (
	"time"

	"github.com/dthrottle/spy-leaps-monitor/pkg/types"
)

// Strategy configuration defaults
const (
	DefaultWeeklyAmount          = 1000.0
	DefaultBuyWeekday            = 4 // Friday
	DefaultStrikeMoneynessPct    = 0.0
	DefaultPauseDrawdownPct      = 10.0
	DefaultPauseLookbackDays     = 100
	DefaultVIXThreshold          = 25.0
	DefaultLiquidatePctFrom200MA = 15.0
	DefaultLiquidatePctFromPeak  = 18.0
	DefaultUseDeathCross         = false
	DefaultResumeConsecDays      = 15
	DefaultResumePct             = 5.0
	DefaultMaxExposurePct        = 10.0
	DefaultPosLossPct            = 0.0 // disabled
	DefaultRiskFreeRate          = 0.045
	DefaultInitialCapital        = 100000.0
	DefaultVolWindow             = 30
	DefaultVolatility            = 0.20
	DefaultStartDate             = "2010-01-01"
	DefaultMaxGapDays            = 4
	DefaultSymbol                = "SPY"
	DefaultVIXSymbol             = "^VIX"
)

// Validation bounds
const (
	MaxBuyWeekday       = 4
	MaxPercent          = 100.0
	MinMoneynessPct     = -50.0
	MaxMoneynessPct     = 100.0
	MinVolWindow        = 2
	MaxAbsRiskFreeRate  = 1.0
	MinResumeConsecDays = 1
	MinLookbackDays     = 1
)

// StrategyConfig holds every tunable of the LEAPS accumulation strategy.
// It is passed by value and never changed once a run starts.
type StrategyConfig struct {
	Symbol    string `json:"symbol" mapstructure:"symbol"`
	VIXSymbol string `json:"vix_symbol" mapstructure:"vix_symbol"`

	// Weekly buy parameters
	WeeklyAmount       float64 `json:"weekly_amount" mapstructure:"weekly_amount"`
	BuyWeekday         int     `json:"buy_weekday" mapstructure:"buy_weekday"` // 0=Monday .. 4=Friday
	StrikeMoneynessPct float64 `json:"strike_moneyness" mapstructure:"strike_moneyness"`

	// Pause rules
	PauseDrawdownPct  float64 `json:"pause_drawdown_pct" mapstructure:"pause_drawdown_pct"`
	PauseLookbackDays int     `json:"pause_lookback_days" mapstructure:"pause_lookback_days"`
	VIXThreshold      float64 `json:"vix_threshold" mapstructure:"vix_threshold"`

	// Liquidation rules
	LiquidatePctFrom200MA float64 `json:"liquidate_pct_from_200ma" mapstructure:"liquidate_pct_from_200ma"`
	LiquidatePctFromPeak  float64 `json:"liquidate_pct_from_peak" mapstructure:"liquidate_pct_from_peak"`
	UseDeathCross         bool    `json:"use_death_cross" mapstructure:"use_death_cross"`

	// Resume rules
	ResumeConsecDays int     `json:"resume_consec_days" mapstructure:"resume_consec_days"`
	ResumePct        float64 `json:"resume_pct" mapstructure:"resume_pct"`

	// Risk management
	MaxExposurePct float64 `json:"max_exposure_pct" mapstructure:"max_exposure_pct"`
	PosLossPct     float64 `json:"pos_loss_pct" mapstructure:"pos_loss_pct"` // 0 disables the per-position stop

	// Pricing
	RiskFreeRate float64 `json:"risk_free_rate" mapstructure:"risk_free_rate"`
	VolWindow    int     `json:"vol_window" mapstructure:"vol_window"`
	DefaultVol   float64 `json:"default_vol" mapstructure:"default_vol"`

	// Run range and capital
	InitialCapital float64 `json:"initial_capital" mapstructure:"initial_capital"`
	StartDate      string  `json:"start_date" mapstructure:"start_date"`
	EndDate        string  `json:"end_date,omitempty" mapstructure:"end_date"`
	MaxGapDays     int     `json:"max_gap_days" mapstructure:"max_gap_days"`
}

// NewDefaultStrategyConfig returns the moderate default configuration
func NewDefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		Symbol:                DefaultSymbol,
		VIXSymbol:             DefaultVIXSymbol,
		WeeklyAmount:          DefaultWeeklyAmount,
		BuyWeekday:            DefaultBuyWeekday,
		StrikeMoneynessPct:    DefaultStrikeMoneynessPct,
		PauseDrawdownPct:      DefaultPauseDrawdownPct,
		PauseLookbackDays:     DefaultPauseLookbackDays,
		VIXThreshold:          DefaultVIXThreshold,
		LiquidatePctFrom200MA: DefaultLiquidatePctFrom200MA,
		LiquidatePctFromPeak:  DefaultLiquidatePctFromPeak,
		UseDeathCross:         DefaultUseDeathCross,
		ResumeConsecDays:      DefaultResumeConsecDays,
		ResumePct:             DefaultResumePct,
		MaxExposurePct:        DefaultMaxExposurePct,
		PosLossPct:            DefaultPosLossPct,
		RiskFreeRate:          DefaultRiskFreeRate,
		VolWindow:             DefaultVolWindow,
		DefaultVol:            DefaultVolatility,
		InitialCapital:        DefaultInitialCapital,
		StartDate:             DefaultStartDate,
		MaxGapDays:            DefaultMaxGapDays,
	}
}

// Validate validates the configuration
func (c StrategyConfig) Validate() error {
	return NewStrategyValidator().Validate(c)
}

// BuyDay returns the configured buy weekday as a time.Weekday
func (c StrategyConfig) BuyDay() time.Weekday {
	return time.Weekday(c.BuyWeekday + 1)
}

// StopLossEnabled reports whether the per-position stop is active
func (c StrategyConfig) StopLossEnabled() bool {
	return c.PosLossPct > 0
}

// RunRange returns the parsed start and end dates; a zero time means unbounded
func (c StrategyConfig) RunRange() (start, end time.Time, err error) {
	if c.StartDate != "" {
		if start, err = types.ParseDate(c.StartDate); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if c.EndDate != "" {
		if end, err = types.ParseDate(c.EndDate); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return start, end, nil
}

// ToMap returns the configuration keyed by its file/JSON names
func (c StrategyConfig) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"symbol":                   c.Symbol,
		"vix_symbol":               c.VIXSymbol,
		"weekly_amount":            c.WeeklyAmount,
		"buy_weekday":              c.BuyWeekday,
		"strike_moneyness":         c.StrikeMoneynessPct,
		"pause_drawdown_pct":       c.PauseDrawdownPct,
		"pause_lookback_days":      c.PauseLookbackDays,
		"vix_threshold":            c.VIXThreshold,
		"liquidate_pct_from_200ma": c.LiquidatePctFrom200MA,
		"liquidate_pct_from_peak":  c.LiquidatePctFromPeak,
		"use_death_cross":          c.UseDeathCross,
		"resume_consec_days":       c.ResumeConsecDays,
		"resume_pct":               c.ResumePct,
		"max_exposure_pct":         c.MaxExposurePct,
		"pos_loss_pct":             c.PosLossPct,
		"risk_free_rate":           c.RiskFreeRate,
		"vol_window":               c.VolWindow,
		"default_vol":              c.DefaultVol,
		"initial_capital":          c.InitialCapital,
		"start_date":               c.StartDate,
		"end_date":                 c.EndDate,
		"max_gap_days":             c.MaxGapDays,
	}
}
