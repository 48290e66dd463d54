package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateTestData(count int) []float64 {
	closes := make([]float64, count)
	for i := range closes {
		closes[i] = 100.0 + float64(i)*1.5
	}
	return closes
}

func generateFlatData(count int) []float64 {
	closes := make([]float64, count)
	for i := range closes {
		closes[i] = 100.0
	}
	return closes
}

func TestNewSMA(t *testing.T) {
	sma := NewSMA(20)

	assert.NotNil(t, sma)
	assert.Equal(t, 20, sma.period)
}

func TestSMA_Series_InvalidPeriod(t *testing.T) {
	for _, v := range NewSMA(0).Series(generateTestData(5)) {
		assert.True(t, math.IsNaN(v))
	}
}

func TestSMA_Series_Flat(t *testing.T) {
	series := NewSMA(5).Series(generateFlatData(10))
	assert.Equal(t, 100.0, series[9])
	assert.Equal(t, 100.0, series[4])
	assert.True(t, math.IsNaN(series[3]))
}

func TestSMA_Series_WarmUp(t *testing.T) {
	data := generateTestData(8)
	series := NewSMA(3).Series(data)

	require.Len(t, series, 8)
	assert.True(t, math.IsNaN(series[0]))
	assert.True(t, math.IsNaN(series[1]))
	assert.InDelta(t, (data[0]+data[1]+data[2])/3, series[2], 1e-9)
	assert.InDelta(t, (data[5]+data[6]+data[7])/3, series[7], 1e-9)
}

func TestSMA_Series_Window(t *testing.T) {
	data := generateTestData(30)
	series := NewSMA(7).Series(data)

	for i := 6; i < len(data); i++ {
		assert.InDelta(t, windowMean(data[i-6:i+1]), series[i], 1e-9, "index %d", i)
	}
}

func TestSMA_NameAndPeriods(t *testing.T) {
	sma := NewSMA(200)
	assert.Equal(t, "SMA(200)", sma.GetName())
	assert.Equal(t, 200, sma.GetRequiredPeriods())
}

func TestWarmUp(t *testing.T) {
	assert.Equal(t, []string{"SMA(50)", "SMA(200)", "RollingHigh(100)"}, WarmUp(10, 100))
	assert.Equal(t, []string{"SMA(200)"}, WarmUp(150, 100))
	assert.Empty(t, WarmUp(200, 100))
	assert.Equal(t, []string{"RollingHigh(252)"}, WarmUp(200, 252))
}

func TestSMA_InterfaceCompliance(t *testing.T) {
	var _ SeriesIndicator = NewSMA(5)
	var _ SeriesIndicator = NewRollingHigh(5)
}
