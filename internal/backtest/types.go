package backtest

import (
	"strings"
	"time"

	"github.com/dthrottle/spy-leaps-monitor/internal/regime"
	"github.com/dthrottle/spy-leaps-monitor/pkg/config"
)

// PositionStatus is the lifecycle state of a position
type PositionStatus string

const (
	PositionOpen   PositionStatus = "OPEN"
	PositionClosed PositionStatus = "CLOSED"
)

// Position is a lot of calls bought on one date
type Position struct {
	ID              int            `json:"id"`
	EntryDate       time.Time      `json:"entry_date"`
	EntryUnderlying float64        `json:"entry_underlying"`
	Strike          float64        `json:"strike"`
	EntryPremium    float64        `json:"entry_premium"`
	Contracts       int            `json:"contracts"`
	Expiry          time.Time      `json:"expiry"`
	Status          PositionStatus `json:"status"`
	MarkPremium     float64        `json:"mark_premium"`
	EntryDelta      float64        `json:"entry_delta"`
	EntryTheta      float64        `json:"entry_theta"` // per contract share per calendar day
}

// Cost is the premium paid for the position
func (p Position) Cost() float64 {
	return p.EntryPremium * float64(p.Contracts) * ContractMultiplier
}

// MarketValue is the position value at its current mark
func (p Position) MarketValue() float64 {
	return p.MarkPremium * float64(p.Contracts) * ContractMultiplier
}

// ChangePct is the percent change of the mark from the entry premium
func (p Position) ChangePct() float64 {
	if p.EntryPremium == 0 {
		return 0
	}
	return (p.MarkPremium - p.EntryPremium) / p.EntryPremium * 100
}

// Trade is a closed position. Trades are only ever appended.
type Trade struct {
	EntryDate    time.Time `json:"entry_date"`
	ExitDate     time.Time `json:"exit_date"`
	EntryPrice   float64   `json:"entry_price"`
	ExitPrice    float64   `json:"exit_price"`
	Strike       float64   `json:"strike"`
	EntryPremium float64   `json:"entry_premium"`
	ExitPremium  float64   `json:"exit_premium"`
	Contracts    int       `json:"contracts"`
	PnL          float64   `json:"pnl"`
	Notes        string    `json:"notes"`
	EntryDelta   float64   `json:"entry_delta"`
	EntryTheta   float64   `json:"entry_theta"`
}

// Exit reasons, the coarse form of Trade.Notes
const (
	ExitLiquidation = "liquidation"
	ExitExpiry      = "expiry"
	ExitStopLoss    = "stop_loss"
	ExitOther       = "other"
)

// ExitReason classifies the trade by how it was closed
func (t Trade) ExitReason() string {
	switch {
	case strings.HasPrefix(t.Notes, "Liquidated"):
		return ExitLiquidation
	case strings.HasPrefix(t.Notes, "Expired"):
		return ExitExpiry
	case strings.HasPrefix(t.Notes, "Stop loss"):
		return ExitStopLoss
	default:
		return ExitOther
	}
}

// Signal is one entry of the signal log
type Signal struct {
	Date    time.Time         `json:"date"`
	Type    regime.SignalType `json:"signal_type"`
	Details string            `json:"details"`
}

// EquityPoint is the end-of-day portfolio snapshot
type EquityPoint struct {
	Date           time.Time `json:"date"`
	PortfolioValue float64   `json:"portfolio_value"`
	ExposurePct    float64   `json:"exposure_pct"`
	Cash           float64   `json:"cash"`
	OpenPositions  int       `json:"open_positions"`
	Underlying     float64   `json:"underlying"`
	State          string    `json:"state"`
}

// DataGap records consecutive bars further apart than the configured maximum
type DataGap struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
	Days int       `json:"days"`
}

// SkippedBuy is a scheduled buy that did not open a position
type SkippedBuy struct {
	Date    time.Time `json:"date"`
	Premium float64   `json:"premium"`
	Reason  string    `json:"reason"`
}

// Result is everything a run produces
type Result struct {
	Config         config.StrategyConfig `json:"config"`
	StartDate      time.Time             `json:"start_date"`
	EndDate        time.Time             `json:"end_date"`
	Trades         []Trade               `json:"trades"`
	Signals        []Signal              `json:"signals"`
	EquityCurve    []EquityPoint         `json:"equity_curve"`
	OpenPositions  []Position            `json:"open_positions"`
	SkippedBuys    []SkippedBuy          `json:"skipped_buys"`
	DataGaps       []DataGap             `json:"data_gaps"`
	MissingVIXDays int                   `json:"missing_vix_days"`
	FinalState     string                `json:"final_state"`
}

// FinalValue returns the last portfolio value or 0 for an empty curve
func (r *Result) FinalValue() float64 {
	if len(r.EquityCurve) == 0 {
		return 0
	}
	return r.EquityCurve[len(r.EquityCurve)-1].PortfolioValue
}

// SignalsOfType filters the signal log
func (r *Result) SignalsOfType(t regime.SignalType) []Signal {
	var out []Signal
	for _, s := range r.Signals {
		if s.Type == t {
			out = append(out, s)
		}
	}
	return out
}
