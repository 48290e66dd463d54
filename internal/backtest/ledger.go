package backtest

import (
	"fmt"
	"math"
	"time"

	bterrors "github.com/dthrottle/spy-leaps-monitor/internal/errors"
	"github.com/dthrottle/spy-leaps-monitor/internal/pricing"
	"github.com/dthrottle/spy-leaps-monitor/pkg/config"
)

// ContractMultiplier is the number of shares per option contract
const ContractMultiplier = 100

// PositionLedger owns cash and positions for one run
type PositionLedger struct {
	cfg       config.StrategyConfig
	pricer    *pricing.OptionPricer
	cash      float64
	positions []*Position
	trades    []Trade
	nextID    int
}

// NewPositionLedger creates a ledger funded with the initial capital
func NewPositionLedger(cfg config.StrategyConfig, pricer *pricing.OptionPricer) *PositionLedger {
	return &PositionLedger{
		cfg:    cfg,
		pricer: pricer,
		cash:   cfg.InitialCapital,
		nextID: 1,
	}
}

// Open buys as many whole contracts of quote as the weekly amount allows.
// It returns (nil, nil) when the amount buys zero contracts.
func (l *PositionLedger) Open(date time.Time, quote pricing.OptionQuote) (*Position, error) {
	if quote.Premium <= 0 {
		return nil, bterrors.NewPricingError("ledger", "open",
			fmt.Sprintf("premium must be positive, got: %.4f", quote.Premium))
	}

	contracts := int(math.Floor(l.cfg.WeeklyAmount / (quote.Premium * ContractMultiplier)))
	if contracts == 0 {
		return nil, nil
	}

	cost := quote.Premium * float64(contracts) * ContractMultiplier
	limit := l.exposureBase() * l.cfg.MaxExposurePct / 100
	if l.OpenPremium()+cost > limit {
		return nil, bterrors.NewExposureExceededError("ledger", "open",
			fmt.Sprintf("exposure %.2f would exceed limit %.2f", l.OpenPremium()+cost, limit)).
			WithContext("max_exposure_pct", l.cfg.MaxExposurePct)
	}
	if cost > l.cash {
		return nil, bterrors.NewExposureExceededError("ledger", "open",
			fmt.Sprintf("insufficient cash %.2f for cost %.2f", l.cash, cost))
	}

	pos := &Position{
		ID:              l.nextID,
		EntryDate:       date,
		EntryUnderlying: quote.Underlying,
		Strike:          quote.Strike,
		EntryPremium:    quote.Premium,
		Contracts:       contracts,
		Expiry:          quote.Expiry,
		Status:          PositionOpen,
		MarkPremium:     quote.Premium,
		EntryDelta:      quote.Greeks.Delta,
		EntryTheta:      quote.Greeks.Theta,
	}
	l.nextID++
	l.cash -= cost
	l.positions = append(l.positions, pos)

	snapshot := *pos
	return &snapshot, nil
}

// MarkToMarket reprices every open position. Positions at or past expiry are
// marked at intrinsic value.
func (l *PositionLedger) MarkToMarket(date time.Time, underlying, vol, rate float64) error {
	for _, pos := range l.positions {
		if !date.Before(pos.Expiry) {
			pos.MarkPremium = pricing.IntrinsicValue(underlying, pos.Strike)
			continue
		}
		premium, err := l.pricer.Reprice(underlying, pos.Strike, pos.Expiry, date, vol, rate)
		if err != nil {
			return fmt.Errorf("mark position %d: %w", pos.ID, err)
		}
		pos.MarkPremium = premium
	}
	return nil
}

// CloseAll marks and closes every open position
func (l *PositionLedger) CloseAll(date time.Time, underlying, vol, rate float64, note string) ([]Trade, error) {
	if err := l.MarkToMarket(date, underlying, vol, rate); err != nil {
		return nil, err
	}
	return l.closeWhere(date, underlying, func(*Position) (string, bool) {
		return note, true
	}), nil
}

// CloseExpired closes positions whose expiry is on or before date at intrinsic value
func (l *PositionLedger) CloseExpired(date time.Time, underlying float64) []Trade {
	return l.closeWhere(date, underlying, func(pos *Position) (string, bool) {
		if date.Before(pos.Expiry) {
			return "", false
		}
		pos.MarkPremium = pricing.IntrinsicValue(underlying, pos.Strike)
		return "Expired", true
	})
}

// CloseStopped closes positions whose mark fell more than PosLossPct from entry.
// A PosLossPct of zero disables the stop.
func (l *PositionLedger) CloseStopped(date time.Time, underlying float64) []Trade {
	if !l.cfg.StopLossEnabled() {
		return nil
	}
	return l.closeWhere(date, underlying, func(pos *Position) (string, bool) {
		change := pos.ChangePct()
		if -change <= l.cfg.PosLossPct {
			return "", false
		}
		return fmt.Sprintf("Stop loss: position down %.1f%%", -change), true
	})
}

// closeWhere closes the positions selected by match at their current mark
func (l *PositionLedger) closeWhere(date time.Time, underlying float64, match func(*Position) (string, bool)) []Trade {
	var closed []Trade
	remaining := l.positions[:0]
	for _, pos := range l.positions {
		note, ok := match(pos)
		if !ok {
			remaining = append(remaining, pos)
			continue
		}

		proceeds := pos.MarkPremium * float64(pos.Contracts) * ContractMultiplier
		l.cash += proceeds
		pos.Status = PositionClosed

		trade := Trade{
			EntryDate:    pos.EntryDate,
			ExitDate:     date,
			EntryPrice:   pos.EntryUnderlying,
			ExitPrice:    underlying,
			Strike:       pos.Strike,
			EntryPremium: pos.EntryPremium,
			ExitPremium:  pos.MarkPremium,
			Contracts:    pos.Contracts,
			PnL:          (pos.MarkPremium - pos.EntryPremium) * float64(pos.Contracts) * ContractMultiplier,
			Notes:        note,
			EntryDelta:   pos.EntryDelta,
			EntryTheta:   pos.EntryTheta,
		}
		l.trades = append(l.trades, trade)
		closed = append(closed, trade)
	}
	l.positions = remaining
	return closed
}

// Cash returns uncommitted cash
func (l *PositionLedger) Cash() float64 {
	return l.cash
}

// PortfolioValue is cash plus the marked value of open positions
func (l *PositionLedger) PortfolioValue() float64 {
	value := l.cash
	for _, pos := range l.positions {
		value += pos.MarketValue()
	}
	return value
}

// OpenPremium is the entry premium committed to open positions
func (l *PositionLedger) OpenPremium() float64 {
	total := 0.0
	for _, pos := range l.positions {
		total += pos.Cost()
	}
	return total
}

// exposureBase is the value the exposure cap is taken against. Gains never
// raise it above the initial capital; losses shrink it.
func (l *PositionLedger) exposureBase() float64 {
	return math.Min(l.cfg.InitialCapital, l.PortfolioValue())
}

// ExposurePct is committed premium as a percent of portfolio value
func (l *PositionLedger) ExposurePct() float64 {
	value := l.PortfolioValue()
	if value <= 0 {
		return 0
	}
	return l.OpenPremium() / value * 100
}

// OpenPositions returns copies of the open positions in entry order
func (l *PositionLedger) OpenPositions() []Position {
	out := make([]Position, len(l.positions))
	for i, pos := range l.positions {
		out[i] = *pos
	}
	return out
}

// Trades returns the trade log
func (l *PositionLedger) Trades() []Trade {
	out := make([]Trade, len(l.trades))
	copy(out, l.trades)
	return out
}
