package data

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dthrottle/spy-leaps-monitor/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bars(dates ...string) types.PriceSeries {
	series := make(types.PriceSeries, len(dates))
	for i, d := range dates {
		series[i] = types.PriceBar{Date: day(d), Close: float64(100 + i)}
	}
	return series
}

// TestDefaultDataFilter_FilterByDateRange tests inclusive bounds and open ends
func TestDefaultDataFilter_FilterByDateRange(t *testing.T) {
	f := NewDefaultDataFilter()
	series := bars("2020-01-02", "2020-01-03", "2020-01-06", "2020-01-07")

	assert.Len(t, f.FilterByDateRange(series, day("2020-01-03"), day("2020-01-06")), 2)
	assert.Len(t, f.FilterByDateRange(series, day("2020-01-06"), time.Time{}), 2)
	assert.Len(t, f.FilterByDateRange(series, time.Time{}, time.Time{}), 4)
	assert.Empty(t, f.FilterByDateRange(series, day("2021-01-01"), time.Time{}))
}

// TestDefaultDataFilter_SortAndDedupe tests ordering and first-wins duplicates
func TestDefaultDataFilter_SortAndDedupe(t *testing.T) {
	f := NewDefaultDataFilter()
	series := bars("2020-01-06", "2020-01-02", "2020-01-06", "2020-01-03")

	sorted := f.SortByDate(series)
	assert.Equal(t, day("2020-01-06"), series[0].Date, "input is not modified")

	deduped := f.RemoveDuplicates(sorted)
	require.Len(t, deduped, 3)
	assert.Equal(t, 100.0, deduped[2].Close)
	assert.NoError(t, f.ValidateTimeSequence(deduped))
	assert.Error(t, f.ValidateTimeSequence(sorted))
}

// TestDefaultDataFilter_DetectGaps tests the calendar-day threshold
func TestDefaultDataFilter_DetectGaps(t *testing.T) {
	f := NewDefaultDataFilter()
	// Fri -> Mon is 3 days, Mon -> next Tue is 8 days
	series := bars("2020-01-03", "2020-01-06", "2020-01-14")

	gaps := f.DetectGaps(series, 4)
	require.Len(t, gaps, 1)
	assert.Equal(t, day("2020-01-06"), gaps[0].From)
	assert.Equal(t, 8, gaps[0].Days)

	assert.Empty(t, f.DetectGaps(series, 8))
}

// TestDefaultFileLocator tests candidate paths
func TestDefaultFileLocator(t *testing.T) {
	root := t.TempDir()
	locator := NewDefaultFileLocator(nil)

	assert.Empty(t, locator.FindDataFile(root, "SPY"))

	require.NoError(t, os.MkdirAll(filepath.Join(root, "yahoo", "VIX"), 0o755))
	vixPath := filepath.Join(root, "yahoo", "VIX", "daily.csv")
	require.NoError(t, os.WriteFile(vixPath, []byte("Date,Close\n"), 0o644))
	assert.Equal(t, vixPath, locator.FindDataFile(root, "^VIX"))

	spyPath := filepath.Join(root, "spy.csv")
	require.NoError(t, os.WriteFile(spyPath, []byte("Date,Close\n"), 0o644))
	assert.Equal(t, spyPath, locator.FindDataFile(root, "SPY"))
}

func TestFileSymbol(t *testing.T) {
	assert.Equal(t, "VIX", FileSymbol("^vix"))
	assert.Equal(t, "SPY", FileSymbol(" SPY "))
}
