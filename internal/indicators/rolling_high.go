package indicators

import (
	"fmt"
	"math"
)

// RollingHigh is the highest close over a trailing window that includes the current bar
type RollingHigh struct {
	lookback int
}

// NewRollingHigh creates a rolling high over lookback bars
func NewRollingHigh(lookback int) *RollingHigh {
	return &RollingHigh{lookback: lookback}
}

// Series returns the rolling high at every index, NaN until lookback bars exist.
// Uses a monotonic deque so the whole series is linear in its length.
func (r *RollingHigh) Series(closes []float64) []float64 {
	out := make([]float64, len(closes))
	if r.lookback <= 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	deque := make([]int, 0, r.lookback)
	for i, c := range closes {
		for len(deque) > 0 && closes[deque[len(deque)-1]] <= c {
			deque = deque[:len(deque)-1]
		}
		deque = append(deque, i)
		if deque[0] <= i-r.lookback {
			deque = deque[1:]
		}

		if i+1 < r.lookback {
			out[i] = math.NaN()
		} else {
			out[i] = closes[deque[0]]
		}
	}
	return out
}

// GetName returns the indicator name
func (r *RollingHigh) GetName() string {
	return fmt.Sprintf("RollingHigh(%d)", r.lookback)
}

// GetRequiredPeriods returns the minimum number of periods needed
func (r *RollingHigh) GetRequiredPeriods() int {
	return r.lookback
}
