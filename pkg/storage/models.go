package storage

import (
	"time"

	"github.com/dthrottle/spy-leaps-monitor/internal/backtest"
	"github.com/dthrottle/spy-leaps-monitor/internal/regime"
	"github.com/dthrottle/spy-leaps-monitor/pkg/types"
)

// Bar tables
const (
	TablePrices = "prices"
	TableVIX    = "vix"
)

// BarRow is one daily bar. The same model backs the prices and vix tables.
type BarRow struct {
	Date     time.Time `gorm:"primaryKey"`
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64
	Volume   float64
}

// RunRow is one stored backtest run with its parameters and summary metrics as JSON
type RunRow struct {
	RunID          string    `gorm:"primaryKey;size:36"`
	CreatedAt      time.Time `gorm:"index"`
	Symbol         string    `gorm:"size:16"`
	StartDate      time.Time
	EndDate        time.Time
	FinalState     string `gorm:"size:16"`
	TradeCount     int
	SignalCount    int
	MissingVIXDays int
	Params         string `gorm:"type:text"`
	Summary        string `gorm:"type:text"`
}

func (RunRow) TableName() string { return "runs" }

// TradeRow is an append-only closed trade
type TradeRow struct {
	ID           uint   `gorm:"primaryKey"`
	RunID        string `gorm:"index;size:36"`
	Seq          int
	EntryDate    time.Time
	ExitDate     time.Time
	EntryPrice   float64
	ExitPrice    float64
	Strike       float64
	EntryPremium float64
	ExitPremium  float64
	Contracts    int
	PnL          float64
	Notes        string
	EntryDelta   float64
	EntryTheta   float64
}

func (TradeRow) TableName() string { return "trades" }

// SignalRow is an append-only signal log entry
type SignalRow struct {
	ID         uint   `gorm:"primaryKey"`
	RunID      string `gorm:"index;size:36"`
	Seq        int
	Date       time.Time
	SignalType string `gorm:"size:16"`
	Details    string
}

func (SignalRow) TableName() string { return "signals" }

// EquityRow is one point of a run's equity curve
type EquityRow struct {
	ID             uint   `gorm:"primaryKey"`
	RunID          string `gorm:"index;size:36"`
	Date           time.Time
	PortfolioValue float64
	ExposurePct    float64
	Cash           float64
	OpenPositions  int
	Underlying     float64
	State          string `gorm:"size:16"`
}

func (EquityRow) TableName() string { return "equity_points" }

func barRowFrom(bar types.PriceBar) BarRow {
	return BarRow{
		Date:     types.TruncateToDay(bar.Date),
		Open:     bar.Open,
		High:     bar.High,
		Low:      bar.Low,
		Close:    bar.Close,
		AdjClose: bar.AdjClose,
		Volume:   bar.Volume,
	}
}

func (r BarRow) toBar() types.PriceBar {
	return types.PriceBar{
		Date:     types.TruncateToDay(r.Date),
		Open:     r.Open,
		High:     r.High,
		Low:      r.Low,
		Close:    r.Close,
		AdjClose: r.AdjClose,
		Volume:   r.Volume,
	}
}

func tradeRowFrom(runID string, seq int, t backtest.Trade) TradeRow {
	return TradeRow{
		RunID:        runID,
		Seq:          seq,
		EntryDate:    t.EntryDate,
		ExitDate:     t.ExitDate,
		EntryPrice:   t.EntryPrice,
		ExitPrice:    t.ExitPrice,
		Strike:       t.Strike,
		EntryPremium: t.EntryPremium,
		ExitPremium:  t.ExitPremium,
		Contracts:    t.Contracts,
		PnL:          t.PnL,
		Notes:        t.Notes,
		EntryDelta:   t.EntryDelta,
		EntryTheta:   t.EntryTheta,
	}
}

func (r TradeRow) toTrade() backtest.Trade {
	return backtest.Trade{
		EntryDate:    types.TruncateToDay(r.EntryDate),
		ExitDate:     types.TruncateToDay(r.ExitDate),
		EntryPrice:   r.EntryPrice,
		ExitPrice:    r.ExitPrice,
		Strike:       r.Strike,
		EntryPremium: r.EntryPremium,
		ExitPremium:  r.ExitPremium,
		Contracts:    r.Contracts,
		PnL:          r.PnL,
		Notes:        r.Notes,
		EntryDelta:   r.EntryDelta,
		EntryTheta:   r.EntryTheta,
	}
}

func signalRowFrom(runID string, seq int, s backtest.Signal) SignalRow {
	return SignalRow{
		RunID:      runID,
		Seq:        seq,
		Date:       s.Date,
		SignalType: string(s.Type),
		Details:    s.Details,
	}
}

func (r SignalRow) toSignal() backtest.Signal {
	return backtest.Signal{
		Date:    types.TruncateToDay(r.Date),
		Type:    regime.SignalType(r.SignalType),
		Details: r.Details,
	}
}

func equityRowFrom(runID string, p backtest.EquityPoint) EquityRow {
	return EquityRow{
		RunID:          runID,
		Date:           p.Date,
		PortfolioValue: p.PortfolioValue,
		ExposurePct:    p.ExposurePct,
		Cash:           p.Cash,
		OpenPositions:  p.OpenPositions,
		Underlying:     p.Underlying,
		State:          p.State,
	}
}

func (r EquityRow) toPoint() backtest.EquityPoint {
	return backtest.EquityPoint{
		Date:           types.TruncateToDay(r.Date),
		PortfolioValue: r.PortfolioValue,
		ExposurePct:    r.ExposurePct,
		Cash:           r.Cash,
		OpenPositions:  r.OpenPositions,
		Underlying:     r.Underlying,
		State:          r.State,
	}
}
