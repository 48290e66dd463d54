package data

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	bterrors "github.com/dthrottle/spy-leaps-monitor/internal/errors"
	"github.com/dthrottle/spy-leaps-monitor/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yahooCSV = `Date,Open,High,Low,Close,Adj Close,Volume
2020-01-03,321.16,323.64,321.10,322.41,305.66,77709700
2020-01-02,323.54,324.89,322.53,324.87,307.99,59151200
2020-01-06,320.49,323.73,320.36,323.64,306.83,55653900
2020-01-06,1,1,1,1,1,1
2020-01-07,null,null,null,null,null,null
2020-01-08,322.94,325.78,322.67,324.45,307.60,68296000
`

func day(s string) time.Time {
	d, _ := types.ParseDate(s)
	return d
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestCSVProvider_Parse_Yahoo tests sorting, de-duplication and skipped null rows
func TestCSVProvider_Parse_Yahoo(t *testing.T) {
	series, err := NewCSVProvider(nil).Parse(strings.NewReader(yahooCSV))
	require.NoError(t, err)

	require.Len(t, series, 4)
	assert.Equal(t, day("2020-01-02"), series[0].Date)
	assert.Equal(t, day("2020-01-03"), series[1].Date)
	assert.Equal(t, day("2020-01-06"), series[2].Date)
	assert.Equal(t, 323.64, series[2].Close, "first occurrence of a duplicate date is kept")
	assert.Equal(t, day("2020-01-08"), series[3].Date)

	assert.Equal(t, 324.87, series[0].Close)
	assert.Equal(t, 307.99, series[0].AdjClose)
	assert.Equal(t, 59151200.0, series[0].Volume)
}

// TestCSVProvider_Parse_LowerCaseCloseOnly tests the table export format with optional columns missing
func TestCSVProvider_Parse_LowerCaseCloseOnly(t *testing.T) {
	series, err := NewCSVProvider(nil).Parse(strings.NewReader("date,close\n2021-05-03,18.5\n2021-05-04,19.25\n"))
	require.NoError(t, err)

	require.Len(t, series, 2)
	assert.Equal(t, 19.25, series[1].Close)
	assert.Equal(t, 19.25, series[1].Open)
	assert.Equal(t, 19.25, series[1].AdjClose)
}

// TestCSVProvider_Parse_TimestampDates tests dates with a clock part
func TestCSVProvider_Parse_TimestampDates(t *testing.T) {
	series, err := NewCSVProvider(nil).Parse(strings.NewReader("Date,Close\n2021-05-03 00:00:00-04:00,410.2\n"))
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, day("2021-05-03"), series[0].Date)
}

// TestCSVProvider_Parse_BadHeader tests an unrecognised header
func TestCSVProvider_Parse_BadHeader(t *testing.T) {
	_, err := NewCSVProvider(nil).Parse(strings.NewReader("when,price\n2021-05-03,1\n"))
	assert.Error(t, err)

	_, err = NewCSVProvider(nil).Parse(strings.NewReader(""))
	assert.Error(t, err)
}

// TestCSVProvider_LoadData_MissingFile tests the data error category
func TestCSVProvider_LoadData_MissingFile(t *testing.T) {
	_, err := NewCSVProvider(nil).LoadData(filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, bterrors.ErrData)
}

// TestCSVProvider_ValidateData tests the integrity checks
func TestCSVProvider_ValidateData(t *testing.T) {
	p := NewCSVProvider(nil)

	assert.ErrorIs(t, p.ValidateData(nil), bterrors.ErrDataInsufficient)

	bad := types.PriceSeries{{Date: day("2020-01-02"), Close: 10, High: 9, Low: 11}}
	assert.ErrorIs(t, p.ValidateData(bad), bterrors.ErrData)

	unordered := types.PriceSeries{
		{Date: day("2020-01-03"), Close: 10, High: 10, Low: 10},
		{Date: day("2020-01-02"), Close: 10, High: 10, Low: 10},
	}
	assert.ErrorIs(t, p.ValidateData(unordered), bterrors.ErrData)
}

// TestWriteCSV_RoundTrip tests that written files load back unchanged
func TestWriteCSV_RoundTrip(t *testing.T) {
	p := NewCSVProvider(nil)
	original, err := p.Parse(strings.NewReader(yahooCSV))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, original, YahooCSVFormat))
	assert.True(t, strings.HasPrefix(buf.String(), "Date,Open,High,Low,Close,Adj Close,Volume\n"))

	reloaded, err := p.Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, original, reloaded)
}

// TestCachedProvider tests that the second load is served from the cache
func TestCachedProvider(t *testing.T) {
	path := writeTemp(t, "SPY.csv", yahooCSV)
	cached := NewCachedProvider(NewCSVProvider(nil), nil)

	first, err := cached.LoadData(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cached.GetCacheSize())

	require.NoError(t, os.Remove(path))
	second, err := cached.LoadData(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	second[0].Close = -1
	third, err := cached.LoadData(path)
	require.NoError(t, err)
	assert.Equal(t, first[0].Close, third[0].Close, "cache hands out copies")

	cached.ClearCache()
	assert.Equal(t, 0, cached.GetCacheSize())
	assert.Equal(t, "Cached CSV Provider", cached.GetName())
}

// TestDataManager_LoadMarketData tests concurrent loading of both series
func TestDataManager_LoadMarketData(t *testing.T) {
	spy := writeTemp(t, "SPY.csv", yahooCSV)
	vix := writeTemp(t, "VIX.csv", "Date,Open,High,Low,Close,Adj Close,Volume\n2020-01-02,13.46,13.72,12.42,12.47,12.47,0\n")

	md, err := NewDataManager(nil).LoadMarketData(context.Background(), spy, vix)
	require.NoError(t, err)
	assert.Len(t, md.Underlying, 4)
	assert.Len(t, md.VIX, 1)
}

// TestDataManager_LoadMarketData_NoVIX tests an omitted VIX path
func TestDataManager_LoadMarketData_NoVIX(t *testing.T) {
	spy := writeTemp(t, "SPY.csv", yahooCSV)

	md, err := NewDataManager(nil).LoadMarketData(context.Background(), spy, "")
	require.NoError(t, err)
	assert.Empty(t, md.VIX)
}

// TestDataManager_LoadMarketData_Error tests that one failing series fails the load
func TestDataManager_LoadMarketData_Error(t *testing.T) {
	spy := writeTemp(t, "SPY.csv", yahooCSV)

	_, err := NewDataManager(nil).LoadMarketData(context.Background(), spy, filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load vix")
	assert.ErrorIs(t, err, bterrors.ErrData)
}
