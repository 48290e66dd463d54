package backtest

import (
	"testing"
	"time"

	bterrors "github.com/dthrottle/spy-leaps-monitor/internal/errors"
	"github.com/dthrottle/spy-leaps-monitor/internal/pricing"
	"github.com/dthrottle/spy-leaps-monitor/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var openDate = time.Date(2020, 1, 10, 0, 0, 0, 0, time.UTC)

func testQuote(premium float64) pricing.OptionQuote {
	return pricing.OptionQuote{
		AsOf:       openDate,
		Underlying: 400,
		Strike:     400,
		Expiry:     openDate.AddDate(0, 0, pricing.DaysToExpiry),
		ImpliedVol: 0.20,
		Premium:    premium,
		Greeks:     pricing.Greeks{Delta: 0.6, Theta: -0.04},
	}
}

func newTestLedger(mutate func(*config.StrategyConfig)) *PositionLedger {
	cfg := config.NewDefaultStrategyConfig()
	cfg.WeeklyAmount = 5000
	cfg.MaxExposurePct = 10
	if mutate != nil {
		mutate(&cfg)
	}
	return NewPositionLedger(cfg, pricing.NewOptionPricer())
}

// TestPositionLedger_Open_ContractFloor tests the whole-contract sizing
func TestPositionLedger_Open_ContractFloor(t *testing.T) {
	ledger := newTestLedger(nil)

	pos, err := ledger.Open(openDate, testQuote(24))
	require.NoError(t, err)
	require.NotNil(t, pos)

	assert.Equal(t, 2, pos.Contracts)
	assert.Equal(t, PositionOpen, pos.Status)
	assert.Equal(t, 1, pos.ID)
	assert.InDelta(t, 100000-4800, ledger.Cash(), 1e-9)
	assert.InDelta(t, 4800, ledger.OpenPremium(), 1e-9)
	assert.Equal(t, 0.6, pos.EntryDelta)
	assert.Equal(t, -0.04, pos.EntryTheta)
}

// TestPositionLedger_Open_ZeroContracts tests that a too-small amount is a no-op
func TestPositionLedger_Open_ZeroContracts(t *testing.T) {
	ledger := newTestLedger(func(c *config.StrategyConfig) { c.WeeklyAmount = 1000 })

	pos, err := ledger.Open(openDate, testQuote(40.74))
	assert.NoError(t, err)
	assert.Nil(t, pos)
	assert.Equal(t, 100000.0, ledger.Cash())
	assert.Empty(t, ledger.OpenPositions())
}

// TestPositionLedger_Open_ExposureCap tests rejection once committed premium would exceed the cap
func TestPositionLedger_Open_ExposureCap(t *testing.T) {
	ledger := newTestLedger(nil)
	quote := testQuote(40)

	for i := 0; i < 2; i++ {
		pos, err := ledger.Open(openDate, quote)
		require.NoError(t, err)
		require.NotNil(t, pos)
	}

	pos, err := ledger.Open(openDate, quote)
	assert.Nil(t, pos)
	require.Error(t, err)
	assert.ErrorIs(t, err, bterrors.ErrExposureExceeded)
	assert.False(t, bterrors.IsFatal(err))
	assert.Len(t, ledger.OpenPositions(), 2)
	assert.InDelta(t, 100000-8000, ledger.Cash(), 1e-9)
}

// TestPositionLedger_Open_ExactlyAtCap tests that reaching the cap exactly is allowed
func TestPositionLedger_Open_ExactlyAtCap(t *testing.T) {
	ledger := newTestLedger(func(c *config.StrategyConfig) { c.WeeklyAmount = 10000 })

	pos, err := ledger.Open(openDate, testQuote(50))
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Equal(t, 2, pos.Contracts)
}

// TestPositionLedger_Open_InsufficientCash tests the cash check
func TestPositionLedger_Open_InsufficientCash(t *testing.T) {
	ledger := newTestLedger(func(c *config.StrategyConfig) {
		c.InitialCapital = 10000
		c.MaxExposurePct = 100
	})

	_, err := ledger.Open(openDate, testQuote(40))
	require.NoError(t, err)
	// realized losses elsewhere left little cash
	ledger.cash = 1000

	pos, err := ledger.Open(openDate, testQuote(40))
	assert.Nil(t, pos)
	assert.ErrorIs(t, err, bterrors.ErrExposureExceeded)
	assert.Contains(t, err.Error(), "insufficient cash")
}

// TestPositionLedger_Open_CapIgnoresGains tests that a rising portfolio does not lift the cap
func TestPositionLedger_Open_CapIgnoresGains(t *testing.T) {
	ledger := newTestLedger(nil)
	quote := testQuote(40)

	for i := 0; i < 2; i++ {
		_, err := ledger.Open(openDate, quote)
		require.NoError(t, err)
	}
	for _, pos := range ledger.positions {
		pos.MarkPremium = 400
	}
	require.Greater(t, ledger.PortfolioValue(), 150000.0)

	pos, err := ledger.Open(openDate, quote)
	assert.Nil(t, pos)
	assert.ErrorIs(t, err, bterrors.ErrExposureExceeded)
	assert.Contains(t, err.Error(), "limit 10000.00")
}

// TestPositionLedger_Open_CapShrinksWithLosses tests that the cap follows a falling portfolio
func TestPositionLedger_Open_CapShrinksWithLosses(t *testing.T) {
	ledger := newTestLedger(nil)
	quote := testQuote(40)

	_, err := ledger.Open(openDate, quote)
	require.NoError(t, err)
	ledger.cash = 40000

	pos, err := ledger.Open(openDate, quote)
	assert.Nil(t, pos)
	assert.ErrorIs(t, err, bterrors.ErrExposureExceeded)
	assert.Contains(t, err.Error(), "limit 4400.00")
}

// TestPositionLedger_Open_NonPositivePremium tests that a bad quote is a pricing error
func TestPositionLedger_Open_NonPositivePremium(t *testing.T) {
	_, err := newTestLedger(nil).Open(openDate, testQuote(0))
	assert.ErrorIs(t, err, bterrors.ErrPricing)
}

// TestPositionLedger_MarkToMarket tests repricing and the intrinsic value path at expiry
func TestPositionLedger_MarkToMarket(t *testing.T) {
	ledger := newTestLedger(nil)
	_, err := ledger.Open(openDate, testQuote(40))
	require.NoError(t, err)

	require.NoError(t, ledger.MarkToMarket(openDate.AddDate(0, 0, 30), 420, 0.20, 0.045))
	marked := ledger.OpenPositions()[0].MarkPremium
	assert.Greater(t, marked, 40.0)
	assert.InDelta(t, 100000-4000+marked*100, ledger.PortfolioValue(), 1e-6)

	expiry := openDate.AddDate(0, 0, pricing.DaysToExpiry)
	require.NoError(t, ledger.MarkToMarket(expiry, 420, 0.20, 0.045))
	assert.Equal(t, 20.0, ledger.OpenPositions()[0].MarkPremium)

	require.NoError(t, ledger.MarkToMarket(expiry.AddDate(0, 0, 3), 390, 0.20, 0.045))
	assert.Equal(t, 0.0, ledger.OpenPositions()[0].MarkPremium)
}

// TestPositionLedger_CloseExpired tests closing at intrinsic value
func TestPositionLedger_CloseExpired(t *testing.T) {
	ledger := newTestLedger(nil)
	_, err := ledger.Open(openDate, testQuote(40))
	require.NoError(t, err)

	assert.Empty(t, ledger.CloseExpired(openDate.AddDate(0, 0, 364), 420))

	expiry := openDate.AddDate(0, 0, pricing.DaysToExpiry)
	trades := ledger.CloseExpired(expiry, 420)
	require.Len(t, trades, 1)

	tr := trades[0]
	assert.Equal(t, "Expired", tr.Notes)
	assert.Equal(t, 20.0, tr.ExitPremium)
	assert.InDelta(t, -2000, tr.PnL, 1e-9)
	assert.Equal(t, 400.0, tr.EntryPrice)
	assert.Equal(t, 420.0, tr.ExitPrice)
	assert.InDelta(t, 100000-4000+2000, ledger.Cash(), 1e-9)
	assert.Empty(t, ledger.OpenPositions())
	assert.Len(t, ledger.Trades(), 1)
}

// TestPositionLedger_CloseStopped tests the per-position stop
func TestPositionLedger_CloseStopped(t *testing.T) {
	ledger := newTestLedger(func(c *config.StrategyConfig) {
		c.PosLossPct = 50
		c.MaxExposurePct = 100
	})
	for i := 0; i < 2; i++ {
		_, err := ledger.Open(openDate, testQuote(40))
		require.NoError(t, err)
	}
	ledger.positions[0].MarkPremium = 19
	ledger.positions[1].MarkPremium = 21

	trades := ledger.CloseStopped(openDate.AddDate(0, 0, 60), 380)
	require.Len(t, trades, 1)
	assert.Equal(t, "Stop loss: position down 52.5%", trades[0].Notes)
	assert.Len(t, ledger.OpenPositions(), 1)
	assert.Equal(t, 2, ledger.OpenPositions()[0].ID)
}

// TestPositionLedger_CloseStopped_Disabled tests that a zero stop never closes
func TestPositionLedger_CloseStopped_Disabled(t *testing.T) {
	ledger := newTestLedger(nil)
	_, err := ledger.Open(openDate, testQuote(40))
	require.NoError(t, err)
	ledger.positions[0].MarkPremium = 1

	assert.Empty(t, ledger.CloseStopped(openDate.AddDate(0, 0, 60), 300))
	assert.Len(t, ledger.OpenPositions(), 1)
}

// TestPositionLedger_CloseAll tests liquidation at the current mark
func TestPositionLedger_CloseAll(t *testing.T) {
	ledger := newTestLedger(func(c *config.StrategyConfig) { c.MaxExposurePct = 100 })
	for i := 0; i < 3; i++ {
		_, err := ledger.Open(openDate, testQuote(40))
		require.NoError(t, err)
	}

	date := openDate.AddDate(0, 0, 100)
	trades, err := ledger.CloseAll(date, 320, 0.30, 0.045, "Liquidated: test")
	require.NoError(t, err)
	require.Len(t, trades, 3)

	total := 0.0
	for _, tr := range trades {
		assert.Equal(t, "Liquidated: test", tr.Notes)
		assert.Equal(t, 0.6, tr.EntryDelta)
		assert.Equal(t, date, tr.ExitDate)
		assert.InDelta(t, (tr.ExitPremium-tr.EntryPremium)*100, tr.PnL, 1e-9)
		total += tr.ExitPremium * 100
	}
	assert.Empty(t, ledger.OpenPositions())
	assert.InDelta(t, 100000-12000+total, ledger.Cash(), 1e-6)
	assert.Equal(t, ledger.Cash(), ledger.PortfolioValue())
	assert.Equal(t, 0.0, ledger.ExposurePct())
}

// TestPositionLedger_ExposurePct tests committed premium over portfolio value
func TestPositionLedger_ExposurePct(t *testing.T) {
	ledger := newTestLedger(nil)
	_, err := ledger.Open(openDate, testQuote(40))
	require.NoError(t, err)

	assert.InDelta(t, 4.0, ledger.ExposurePct(), 1e-9)
}

func TestTradeExitReason(t *testing.T) {
	assert.Equal(t, ExitLiquidation, Trade{Notes: "Liquidated: Death cross detected (50-day MA < 200-day MA)"}.ExitReason())
	assert.Equal(t, ExitExpiry, Trade{Notes: "Expired"}.ExitReason())
	assert.Equal(t, ExitStopLoss, Trade{Notes: "Stop loss: position down 55.0%"}.ExitReason())
	assert.Equal(t, ExitOther, Trade{Notes: "manual"}.ExitReason())
}
