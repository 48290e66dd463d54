package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func naiveRollingMax(closes []float64, lookback, i int) float64 {
	best := closes[i]
	for j := i - lookback + 1; j <= i; j++ {
		if closes[j] > best {
			best = closes[j]
		}
	}
	return best
}

func TestRollingHigh_Series(t *testing.T) {
	closes := []float64{10, 12, 11, 15, 9, 8, 14, 13, 7, 7}
	series := NewRollingHigh(3).Series(closes)

	require.Len(t, series, len(closes))
	assert.True(t, math.IsNaN(series[0]))
	assert.True(t, math.IsNaN(series[1]))
	for i := 2; i < len(closes); i++ {
		assert.Equal(t, naiveRollingMax(closes, 3, i), series[i], "index %d", i)
	}
}

func TestRollingHigh_IncludesCurrentBar(t *testing.T) {
	series := NewRollingHigh(2).Series([]float64{100, 120})
	assert.Equal(t, 120.0, series[1])
}

func TestRollingHigh_DropsOldPeak(t *testing.T) {
	closes := []float64{500, 400, 400, 400}
	series := NewRollingHigh(3).Series(closes)

	assert.Equal(t, 500.0, series[2])
	assert.Equal(t, 400.0, series[3])
}

func TestRollingHigh_InvalidLookback(t *testing.T) {
	series := NewRollingHigh(0).Series([]float64{1, 2})
	assert.True(t, math.IsNaN(series[0]))
	assert.True(t, math.IsNaN(series[1]))
}

func TestComputeDailyIndicators(t *testing.T) {
	closes := generateFlatData(250)
	ind := ComputeDailyIndicators(closes, 100)

	assert.False(t, Available(ind.MA50[48]))
	assert.True(t, Available(ind.MA50[49]))
	assert.False(t, Available(ind.MA200[198]))
	assert.Equal(t, 100.0, ind.MA200[199])
	assert.False(t, Available(ind.RollingHigh[98]))
	assert.Equal(t, 100.0, ind.RollingHigh[99])
}
