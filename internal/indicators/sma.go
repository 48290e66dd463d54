package indicators

import (
	"fmt"
	"math"
)

// SMA represents the Simple Moving Average technical indicator
type SMA struct {
	period int
}

// NewSMA creates a new SMA indicator
func NewSMA(period int) *SMA {
	return &SMA{
		period: period,
	}
}

// Series returns the SMA at every index, NaN until a full window exists
func (s *SMA) Series(closes []float64) []float64 {
	out := make([]float64, len(closes))
	for i := range closes {
		if s.period <= 0 || i+1 < s.period {
			out[i] = math.NaN()
			continue
		}
		out[i] = windowMean(closes[i+1-s.period : i+1])
	}
	return out
}

// GetName returns the indicator name
func (s *SMA) GetName() string {
	return fmt.Sprintf("SMA(%d)", s.period)
}

// GetRequiredPeriods returns the minimum number of periods needed
func (s *SMA) GetRequiredPeriods() int {
	return s.period
}

func windowMean(window []float64) float64 {
	sum := 0.0
	for _, v := range window {
		sum += v
	}
	return sum / float64(len(window))
}
