package pricing

import (
	"fmt"
	"math"
	"time"

	bterrors "github.com/dthrottle/spy-leaps-monitor/internal/errors"
)

const (
	// DaysToExpiry is the calendar life of every LEAPS bought
	DaysToExpiry = 365
	// StrikeIncrement is the listed strike spacing
	StrikeIncrement = 1.0
)

// OptionQuote is a priced call at entry or at a daily mark
type OptionQuote struct {
	AsOf       time.Time `json:"as_of"`
	Underlying float64   `json:"underlying"`
	Strike     float64   `json:"strike"`
	Expiry     time.Time `json:"expiry"`
	ImpliedVol float64   `json:"implied_vol"`
	Premium    float64   `json:"premium"`
	Greeks     Greeks    `json:"greeks"`
}

// OptionPricer quotes one-year calls with Black-Scholes. It is stateless.
type OptionPricer struct{}

// NewOptionPricer creates a pricer
func NewOptionPricer() *OptionPricer {
	return &OptionPricer{}
}

// SelectStrike rounds underlying*(1+m/100) to the nearest strike increment,
// ties going to the higher strike
func (p *OptionPricer) SelectStrike(underlying, moneynessPct float64) float64 {
	target := underlying * (1 + moneynessPct/100) / StrikeIncrement
	return math.Floor(target+0.5) * StrikeIncrement
}

// Expiry returns the expiry of a call bought on entryDate
func (p *OptionPricer) Expiry(entryDate time.Time) time.Time {
	return entryDate.AddDate(0, 0, DaysToExpiry)
}

// TimeToExpiry returns the year fraction between asOf and expiry in calendar days
func TimeToExpiry(asOf, expiry time.Time) float64 {
	days := expiry.Sub(asOf).Hours() / 24
	return days / DaysToExpiry
}

// Quote prices a new one-year call at the strike selected from moneynessPct
func (p *OptionPricer) Quote(underlying, moneynessPct float64, entryDate time.Time, vol, rate float64) (OptionQuote, error) {
	strike := p.SelectStrike(underlying, moneynessPct)
	expiry := p.Expiry(entryDate)

	premium, greeks, err := p.price(underlying, strike, entryDate, expiry, vol, rate)
	if err != nil {
		return OptionQuote{}, err
	}

	return OptionQuote{
		AsOf:       entryDate,
		Underlying: underlying,
		Strike:     strike,
		Expiry:     expiry,
		ImpliedVol: vol,
		Premium:    premium,
		Greeks:     greeks,
	}, nil
}

// Reprice prices an existing call on asOf. A call at or past expiry is a
// PricingError; callers mark those at intrinsic value.
func (p *OptionPricer) Reprice(underlying, strike float64, expiry, asOf time.Time, vol, rate float64) (float64, error) {
	premium, _, err := p.price(underlying, strike, asOf, expiry, vol, rate)
	return premium, err
}

func (p *OptionPricer) price(underlying, strike float64, asOf, expiry time.Time, vol, rate float64) (float64, Greeks, error) {
	t := TimeToExpiry(asOf, expiry)
	if t <= 0 {
		return 0, Greeks{}, bterrors.NewPricingError("pricer", "price",
			fmt.Sprintf("time to expiry must be positive, got: %.6f", t)).
			WithContext("as_of", asOf.Format("2006-01-02")).
			WithContext("expiry", expiry.Format("2006-01-02"))
	}
	if underlying <= 0 || strike <= 0 {
		return 0, Greeks{}, bterrors.NewPricingError("pricer", "price",
			fmt.Sprintf("underlying and strike must be positive, got: %.2f, %.2f", underlying, strike))
	}
	if vol <= 0 || math.IsNaN(vol) || math.IsInf(vol, 0) {
		return 0, Greeks{}, bterrors.NewPricingError("pricer", "price",
			fmt.Sprintf("volatility must be positive, got: %v", vol))
	}

	res := CalculateCall(BlackScholesInput{S: underlying, K: strike, T: t, R: rate, V: vol})
	if math.IsNaN(res.Price) || math.IsInf(res.Price, 0) {
		return 0, Greeks{}, bterrors.NewPricingError("pricer", "price", "non-finite premium")
	}
	return res.Price, res.Greeks, nil
}

// IntrinsicValue is the exercise value of a call per share
func IntrinsicValue(underlying, strike float64) float64 {
	return math.Max(underlying-strike, 0)
}
