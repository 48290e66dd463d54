package data

import (
	"time"

	"github.com/dthrottle/spy-leaps-monitor/pkg/types"
)

// DataProvider interface for loading daily price series from various sources
type DataProvider interface {
	// LoadData loads a daily series from the specified source
	LoadData(source string) (types.PriceSeries, error)

	// ValidateData validates the integrity of the loaded data
	ValidateData(series types.PriceSeries) error

	// GetName returns the name of the data provider
	GetName() string
}

// DataCache interface for caching loaded data
type DataCache interface {
	// Get retrieves data from cache if available
	Get(key string) (types.PriceSeries, bool)

	// Set stores data in cache
	Set(key string, series types.PriceSeries)

	// Clear removes all cached data
	Clear()

	// Size returns the number of cached entries
	Size() int
}

// DataFilter interface for filtering and checking series
type DataFilter interface {
	// FilterByDateRange keeps bars inside [start, end]; a zero bound is open
	FilterByDateRange(series types.PriceSeries, start, end time.Time) types.PriceSeries

	// ValidateTimeSequence ensures dates are strictly increasing
	ValidateTimeSequence(series types.PriceSeries) error

	// DetectGaps reports consecutive bars more than maxGapDays calendar days apart
	DetectGaps(series types.PriceSeries, maxGapDays int) []Gap
}

// FileLocator interface for finding data files
type FileLocator interface {
	// FindDataFile attempts to locate the daily CSV of a symbol under dataRoot
	FindDataFile(dataRoot, symbol string) string
}

// Gap is a hole in a daily series
type Gap struct {
	From time.Time
	To   time.Time
	Days int
}

// CSVColumnMapping defines the header names of a daily CSV format
type CSVColumnMapping struct {
	DateCol     string
	OpenCol     string
	HighCol     string
	LowCol      string
	CloseCol    string
	AdjCloseCol string
	VolumeCol   string
	DateFormat  string
}

// Predefined CSV formats
var (
	YahooCSVFormat = CSVColumnMapping{
		DateCol:     "Date",
		OpenCol:     "Open",
		HighCol:     "High",
		LowCol:      "Low",
		CloseCol:    "Close",
		AdjCloseCol: "Adj Close",
		VolumeCol:   "Volume",
		DateFormat:  types.DateLayout,
	}

	// LowerCaseCSVFormat matches exports of the prices and vix tables
	LowerCaseCSVFormat = CSVColumnMapping{
		DateCol:     "date",
		OpenCol:     "open",
		HighCol:     "high",
		LowCol:      "low",
		CloseCol:    "close",
		AdjCloseCol: "adj_close",
		VolumeCol:   "volume",
		DateFormat:  types.DateLayout,
	}
)

// Header returns the column names in the order WriteCSV emits them
func (m CSVColumnMapping) Header() []string {
	return []string{m.DateCol, m.OpenCol, m.HighCol, m.LowCol, m.CloseCol, m.AdjCloseCol, m.VolumeCol}
}
