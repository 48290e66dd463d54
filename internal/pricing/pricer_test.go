package pricing

import (
	"testing"
	"time"

	bterrors "github.com/dthrottle/spy-leaps-monitor/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var entry = time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)

func TestSelectStrike(t *testing.T) {
	p := NewOptionPricer()

	tests := []struct {
		name       string
		underlying float64
		moneyness  float64
		expected   float64
	}{
		{"at the money rounds down", 400.4, 0, 400},
		{"at the money rounds up", 400.6, 0, 401},
		{"tie goes to higher strike", 400.5, 0, 401},
		{"out of the money", 400, 10, 440},
		{"in the money", 400, -5, 380},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, p.SelectStrike(tt.underlying, tt.moneyness))
		})
	}
}

func TestQuote_OneYearExpiry(t *testing.T) {
	q, err := NewOptionPricer().Quote(400, 0, entry, 0.20, 0.045)
	require.NoError(t, err)

	assert.Equal(t, entry.AddDate(0, 0, 365), q.Expiry)
	assert.Equal(t, 1.0, TimeToExpiry(q.AsOf, q.Expiry))
	assert.Equal(t, 400.0, q.Strike)
	assert.Equal(t, 0.20, q.ImpliedVol)
}

func TestExpiry_LeapYearIs365Days(t *testing.T) {
	leapEntry := time.Date(2020, 1, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2021, 1, 9, 0, 0, 0, 0, time.UTC), NewOptionPricer().Expiry(leapEntry))
}

func TestQuote_KnownATMValue(t *testing.T) {
	// S=K=400, T=1, r=4.5%, vol=20%
	q, err := NewOptionPricer().Quote(400, 0, entry, 0.20, 0.045)
	require.NoError(t, err)

	assert.InDelta(t, 40.744, q.Premium, 0.01)
	assert.InDelta(t, 0.63, q.Greeks.Delta, 0.01)
	assert.Greater(t, q.Greeks.Gamma, 0.0)
	assert.Less(t, q.Greeks.Theta, 0.0)
	assert.Greater(t, q.Greeks.Vega, 0.0)
	assert.Greater(t, q.Greeks.Rho, 0.0)
}

func TestQuote_Deterministic(t *testing.T) {
	p := NewOptionPricer()
	a, err := p.Quote(412.37, 5, entry, 0.173, 0.045)
	require.NoError(t, err)
	b, err := p.Quote(412.37, 5, entry, 0.173, 0.045)
	require.NoError(t, err)

	assert.InDelta(t, a.Premium, b.Premium, 1e-6)
}

func TestQuote_MonotonicInVolatility(t *testing.T) {
	p := NewOptionPricer()
	prev := 0.0
	for _, vol := range []float64{0.05, 0.10, 0.20, 0.40, 0.80} {
		q, err := p.Quote(400, 0, entry, vol, 0.045)
		require.NoError(t, err)
		assert.Greater(t, q.Premium, prev, "vol %.2f", vol)
		prev = q.Premium
	}
}

func TestQuote_MonotonicInUnderlying(t *testing.T) {
	p := NewOptionPricer()
	prev := 0.0
	for _, s := range []float64{300, 350, 400, 450, 500} {
		premium, err := p.Reprice(s, 400, entry.AddDate(1, 0, 0), entry, 0.20, 0.045)
		require.NoError(t, err)
		assert.Greater(t, premium, prev)
		prev = premium
	}
}

func TestReprice_MatchesQuoteAtEntry(t *testing.T) {
	p := NewOptionPricer()
	q, err := p.Quote(400, 0, entry, 0.20, 0.045)
	require.NoError(t, err)

	premium, err := p.Reprice(400, q.Strike, q.Expiry, entry, 0.20, 0.045)
	require.NoError(t, err)
	assert.InDelta(t, q.Premium, premium, 1e-9)
}

func TestReprice_DecaysWithTime(t *testing.T) {
	p := NewOptionPricer()
	expiry := entry.AddDate(0, 0, 365)

	early, err := p.Reprice(400, 400, expiry, entry, 0.20, 0.045)
	require.NoError(t, err)
	late, err := p.Reprice(400, 400, expiry, entry.AddDate(0, 0, 300), 0.20, 0.045)
	require.NoError(t, err)

	assert.Less(t, late, early)
}

func TestReprice_ExpiredIsPricingError(t *testing.T) {
	p := NewOptionPricer()
	expiry := entry.AddDate(0, 0, 365)

	_, err := p.Reprice(400, 400, expiry, expiry, 0.20, 0.045)
	require.Error(t, err)
	assert.ErrorIs(t, err, bterrors.ErrPricing)
	assert.True(t, bterrors.IsFatal(err))

	_, err = p.Reprice(400, 400, expiry, expiry.AddDate(0, 0, 1), 0.20, 0.045)
	assert.ErrorIs(t, err, bterrors.ErrPricing)
}

func TestReprice_InvalidVolatility(t *testing.T) {
	_, err := NewOptionPricer().Reprice(400, 400, entry.AddDate(1, 0, 0), entry, 0, 0.045)
	assert.ErrorIs(t, err, bterrors.ErrPricing)
}

func TestIntrinsicValue(t *testing.T) {
	assert.Equal(t, 20.0, IntrinsicValue(420, 400))
	assert.Equal(t, 0.0, IntrinsicValue(380, 400))
}
