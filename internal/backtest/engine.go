package backtest

import (
	"context"
	"fmt"
	"math"

	bterrors "github.com/dthrottle/spy-leaps-monitor/internal/errors"
	"github.com/dthrottle/spy-leaps-monitor/internal/indicators"
	"github.com/dthrottle/spy-leaps-monitor/internal/pricing"
	"github.com/dthrottle/spy-leaps-monitor/internal/regime"
	"github.com/dthrottle/spy-leaps-monitor/pkg/config"
	"github.com/dthrottle/spy-leaps-monitor/pkg/types"
)

// BacktestEngine replays the LEAPS accumulation strategy over daily bars.
// An engine holds only its configuration, so one engine can run many times.
type BacktestEngine struct {
	cfg       config.StrategyConfig
	pricer    *pricing.OptionPricer
	estimator *pricing.VolatilityEstimator
}

// NewBacktestEngine validates cfg and creates an engine
func NewBacktestEngine(cfg config.StrategyConfig) (*BacktestEngine, error) {
	if err := config.NewStrategyValidator().Validate(cfg); err != nil {
		return nil, err
	}
	return &BacktestEngine{
		cfg:       cfg,
		pricer:    pricing.NewOptionPricer(),
		estimator: pricing.NewVolatilityEstimator(cfg.VolWindow, cfg.DefaultVol),
	}, nil
}

// Config returns the engine configuration
func (e *BacktestEngine) Config() config.StrategyConfig {
	return e.cfg
}

// Run simulates every underlying bar inside the configured date range.
// The inputs are read only; a cancelled context aborts with ctx.Err().
func (e *BacktestEngine) Run(ctx context.Context, underlying, vix types.PriceSeries) (*Result, error) {
	if len(underlying) == 0 {
		return nil, bterrors.NewDataInsufficientError("engine", "run", "underlying series is empty")
	}

	first, last, err := e.runBounds(underlying)
	if err != nil {
		return nil, err
	}

	closes := underlying.Closes()
	ind := indicators.ComputeDailyIndicators(closes, e.cfg.PauseLookbackDays)

	ledger := NewPositionLedger(e.cfg, e.pricer)
	machine := regime.NewSignalStateMachine(e.cfg)
	buyDay := e.cfg.BuyDay()

	result := &Result{
		Config:      e.cfg,
		StartDate:   underlying[first].Date,
		EndDate:     underlying[last].Date,
		Trades:      []Trade{},
		Signals:     []Signal{},
		EquityCurve: make([]EquityPoint, 0, last-first+1),
		SkippedBuys: []SkippedBuy{},
		DataGaps:    []DataGap{},
	}

	for i := first; i <= last; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		bar := underlying[i]
		date := bar.Date
		price := bar.Close

		if i > first {
			if gap := e.detectGap(underlying[i-1], bar); gap != nil {
				result.DataGaps = append(result.DataGaps, *gap)
			}
		}

		vol := e.estimator.Estimate(closes, i)
		if err := ledger.MarkToMarket(date, price, vol, e.cfg.RiskFreeRate); err != nil {
			return nil, err
		}

		vixClose, ok := vix.CloseOn(date)
		if !ok {
			vixClose = math.NaN()
			result.MissingVIXDays++
		}

		transition := machine.Evaluate(regime.DayInputs{
			Close:       price,
			RollingHigh: ind.RollingHigh[i],
			MA50:        ind.MA50[i],
			MA200:       ind.MA200[i],
			VIX:         vixClose,
		})
		if transition != nil {
			result.Signals = append(result.Signals, Signal{
				Date:    date,
				Type:    transition.SignalType,
				Details: transition.Reason,
			})
			if transition.SignalType == regime.SignalLiquidate {
				if _, err := ledger.CloseAll(date, price, vol, e.cfg.RiskFreeRate, "Liquidated: "+transition.Reason); err != nil {
					return nil, err
				}
			}
		}

		ledger.CloseExpired(date, price)
		ledger.CloseStopped(date, price)

		if date.Weekday() == buyDay && machine.State() == regime.StateActive {
			if err := e.buy(ledger, result, bar, vol); err != nil {
				return nil, err
			}
		}

		result.EquityCurve = append(result.EquityCurve, EquityPoint{
			Date:           date,
			PortfolioValue: ledger.PortfolioValue(),
			ExposurePct:    ledger.ExposurePct(),
			Cash:           ledger.Cash(),
			OpenPositions:  len(ledger.OpenPositions()),
			Underlying:     price,
			State:          machine.State().String(),
		})
	}

	result.Trades = ledger.Trades()
	result.OpenPositions = ledger.OpenPositions()
	result.FinalState = machine.State().String()
	return result, nil
}

// buy prices and opens the weekly lot. Rejected buys are recorded, not signalled.
func (e *BacktestEngine) buy(ledger *PositionLedger, result *Result, bar types.PriceBar, vol float64) error {
	quote, err := e.pricer.Quote(bar.Close, e.cfg.StrikeMoneynessPct, bar.Date, vol, e.cfg.RiskFreeRate)
	if err != nil {
		return err
	}

	pos, err := ledger.Open(bar.Date, quote)
	switch {
	case bterrors.IsExposureExceeded(err):
		result.SkippedBuys = append(result.SkippedBuys, SkippedBuy{
			Date:    bar.Date,
			Premium: quote.Premium,
			Reason:  err.Error(),
		})
		return nil
	case err != nil:
		return err
	case pos == nil:
		result.SkippedBuys = append(result.SkippedBuys, SkippedBuy{
			Date:    bar.Date,
			Premium: quote.Premium,
			Reason:  fmt.Sprintf("weekly amount %.2f buys zero contracts", e.cfg.WeeklyAmount),
		})
		return nil
	}

	result.Signals = append(result.Signals, Signal{
		Date:    bar.Date,
		Type:    regime.SignalBuy,
		Details: fmt.Sprintf("Bought %d contracts, strike %.0f, premium $%.2f, delta %.2f, theta %.3f/day",
			pos.Contracts, pos.Strike, pos.EntryPremium, pos.EntryDelta, pos.EntryTheta),
	})
	return nil
}

// runBounds returns the first and last index of bars inside the run range
func (e *BacktestEngine) runBounds(series types.PriceSeries) (int, int, error) {
	start, end, err := e.cfg.RunRange()
	if err != nil {
		return 0, 0, bterrors.NewConfigValidationError("engine", "run", err.Error())
	}

	first, last := -1, -1
	for i, bar := range series {
		if !start.IsZero() && bar.Date.Before(start) {
			continue
		}
		if !end.IsZero() && bar.Date.After(end) {
			break
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	if first < 0 {
		return 0, 0, bterrors.NewDataInsufficientError("engine", "run", "no underlying bars inside the run range").
			WithContext("start", e.cfg.StartDate).
			WithContext("end", e.cfg.EndDate)
	}
	return first, last, nil
}

func (e *BacktestEngine) detectGap(prev, cur types.PriceBar) *DataGap {
	days := int(cur.Date.Sub(prev.Date).Hours() / 24)
	if days <= e.cfg.MaxGapDays {
		return nil
	}
	return &DataGap{From: prev.Date, To: cur.Date, Days: days}
}
