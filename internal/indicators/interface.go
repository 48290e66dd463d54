package indicators

// SeriesIndicator computes one value per input close. Bars before the
// indicator has a full window are NaN.
type SeriesIndicator interface {
	// Series returns the indicator aligned with closes
	Series(closes []float64) []float64

	// GetName returns the indicator name
	GetName() string

	// GetRequiredPeriods returns the minimum number of periods needed
	GetRequiredPeriods() int
}
