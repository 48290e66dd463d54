package pricing

import "math"

// BlackScholesInput holds the inputs of the Black-Scholes model
type BlackScholesInput struct {
	S float64 // underlying price
	K float64 // strike
	T float64 // time to expiry in years
	R float64 // risk-free rate
	V float64 // volatility
}

// Greeks are the call sensitivities reported with every quote.
// Theta is per calendar day, Vega per one vol point and Rho per one rate point.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	Rho   float64 `json:"rho"`
}

// BlackScholesResult is a call price per share with its Greeks
type BlackScholesResult struct {
	Price  float64
	Greeks Greeks
}

// CalculateCall prices a European call on a non-dividend underlying.
// Callers must ensure S, K, T and V are positive.
func CalculateCall(input BlackScholesInput) BlackScholesResult {
	sqrtT := math.Sqrt(input.T)
	d1 := (math.Log(input.S/input.K) + (input.R+0.5*input.V*input.V)*input.T) / (input.V * sqrtT)
	d2 := d1 - input.V*sqrtT
	discount := math.Exp(-input.R * input.T)

	price := input.S*normCdf(d1) - input.K*discount*normCdf(d2)
	theta := -input.S*normPdf(d1)*input.V/(2*sqrtT) - input.R*input.K*discount*normCdf(d2)

	return BlackScholesResult{
		Price: price,
		Greeks: Greeks{
			Delta: normCdf(d1),
			Gamma: normPdf(d1) / (input.S * input.V * sqrtT),
			Theta: theta / 365,
			Vega:  input.S * sqrtT * normPdf(d1) / 100,
			Rho:   input.K * input.T * discount * normCdf(d2) / 100,
		},
	}
}

// normCdf standard normal cumulative distribution
func normCdf(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// normPdf standard normal density
func normPdf(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}
