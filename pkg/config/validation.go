package config

import (
	"fmt"
	"math"

	bterrors "github.com/dthrottle/spy-leaps-monitor/internal/errors"
)

// StrategyValidator implements validation for strategy configurations
type StrategyValidator struct{}

// NewStrategyValidator creates a new strategy validator
func NewStrategyValidator() *StrategyValidator {
	return &StrategyValidator{}
}

// Validate checks every threshold against its sane domain and returns a
// ConfigValidationError for the first one that is out of range
func (v *StrategyValidator) Validate(cfg StrategyConfig) error {
	if field, msg := v.firstViolation(cfg); msg != "" {
		return bterrors.NewConfigValidationError("config", "validate", msg).WithContext("field", field)
	}
	return nil
}

// firstViolation returns the offending field and message. Comparisons are
// written so NaN fails them.
func (v *StrategyValidator) firstViolation(cfg StrategyConfig) (string, string) {
	if !(cfg.WeeklyAmount > 0) || math.IsInf(cfg.WeeklyAmount, 0) {
		return "weekly_amount", fmt.Sprintf("weekly amount must be positive, got: %.2f", cfg.WeeklyAmount)
	}

	if cfg.BuyWeekday < 0 || cfg.BuyWeekday > MaxBuyWeekday {
		return "buy_weekday", fmt.Sprintf("buy weekday must be between 0 (Monday) and %d (Friday), got: %d", MaxBuyWeekday, cfg.BuyWeekday)
	}

	if !(cfg.StrikeMoneynessPct >= MinMoneynessPct && cfg.StrikeMoneynessPct <= MaxMoneynessPct) {
		return "strike_moneyness", fmt.Sprintf("strike moneyness must be between %.0f%% and %.0f%%, got: %.2f", MinMoneynessPct, MaxMoneynessPct, cfg.StrikeMoneynessPct)
	}

	if msg := openPercent("pause drawdown pct", cfg.PauseDrawdownPct); msg != "" {
		return "pause_drawdown_pct", msg
	}

	if cfg.PauseLookbackDays < MinLookbackDays {
		return "pause_lookback_days", fmt.Sprintf("pause lookback days must be at least %d, got: %d", MinLookbackDays, cfg.PauseLookbackDays)
	}

	if !(cfg.VIXThreshold > 0) || math.IsInf(cfg.VIXThreshold, 0) {
		return "vix_threshold", fmt.Sprintf("vix threshold must be positive, got: %.2f", cfg.VIXThreshold)
	}

	if msg := openPercent("liquidate pct from 200ma", cfg.LiquidatePctFrom200MA); msg != "" {
		return "liquidate_pct_from_200ma", msg
	}

	if msg := openPercent("liquidate pct from peak", cfg.LiquidatePctFromPeak); msg != "" {
		return "liquidate_pct_from_peak", msg
	}

	if cfg.ResumeConsecDays < MinResumeConsecDays {
		return "resume_consec_days", fmt.Sprintf("resume consecutive days must be at least %d, got: %d", MinResumeConsecDays, cfg.ResumeConsecDays)
	}

	if !(cfg.ResumePct >= 0 && cfg.ResumePct < MaxPercent) {
		return "resume_pct", fmt.Sprintf("resume pct must be between 0 and %.0f, got: %.2f", MaxPercent, cfg.ResumePct)
	}

	if !(cfg.MaxExposurePct > 0 && cfg.MaxExposurePct <= MaxPercent) {
		return "max_exposure_pct", fmt.Sprintf("max exposure pct must be within (0, %.0f], got: %.2f", MaxPercent, cfg.MaxExposurePct)
	}

	if !(cfg.PosLossPct >= 0 && cfg.PosLossPct <= MaxPercent) {
		return "pos_loss_pct", fmt.Sprintf("position loss pct must be between 0 and %.0f (0 disables), got: %.2f", MaxPercent, cfg.PosLossPct)
	}

	if !(math.Abs(cfg.RiskFreeRate) <= MaxAbsRiskFreeRate) {
		return "risk_free_rate", fmt.Sprintf("risk free rate must be between -%.1f and %.1f, got: %.4f", MaxAbsRiskFreeRate, MaxAbsRiskFreeRate, cfg.RiskFreeRate)
	}

	if cfg.VolWindow < MinVolWindow {
		return "vol_window", fmt.Sprintf("volatility window must be at least %d, got: %d", MinVolWindow, cfg.VolWindow)
	}

	if !(cfg.DefaultVol > 0) || math.IsInf(cfg.DefaultVol, 0) {
		return "default_vol", fmt.Sprintf("default volatility must be positive, got: %.4f", cfg.DefaultVol)
	}

	if !(cfg.InitialCapital > 0) || math.IsInf(cfg.InitialCapital, 0) {
		return "initial_capital", fmt.Sprintf("initial capital must be positive, got: %.2f", cfg.InitialCapital)
	}

	if cfg.MaxGapDays < 1 {
		return "max_gap_days", fmt.Sprintf("max gap days must be at least 1, got: %d", cfg.MaxGapDays)
	}

	start, end, err := cfg.RunRange()
	if err != nil {
		return "start_date", fmt.Sprintf("dates must use YYYY-MM-DD: %v", err)
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return "end_date", fmt.Sprintf("end date %s is before start date %s", cfg.EndDate, cfg.StartDate)
	}

	return "", ""
}

// openPercent requires 0 < value < 100
func openPercent(name string, value float64) string {
	if value > 0 && value < MaxPercent {
		return ""
	}
	return fmt.Sprintf("%s must be within (0, %.0f), got: %.2f", name, MaxPercent, value)
}
