package data

import (
	"fmt"
	"slices"
	"time"

	bterrors "github.com/dthrottle/spy-leaps-monitor/internal/errors"
	"github.com/dthrottle/spy-leaps-monitor/pkg/types"
)

// DefaultDataFilter implements DataFilter for common filtering operations
type DefaultDataFilter struct{}

// NewDefaultDataFilter creates a new default data filter
func NewDefaultDataFilter() *DefaultDataFilter {
	return &DefaultDataFilter{}
}

// FilterByDateRange keeps bars inside [start, end]; a zero bound is open
func (f *DefaultDataFilter) FilterByDateRange(series types.PriceSeries, start, end time.Time) types.PriceSeries {
	filtered := types.PriceSeries{}
	for _, bar := range series {
		if !start.IsZero() && bar.Date.Before(start) {
			continue
		}
		if !end.IsZero() && bar.Date.After(end) {
			continue
		}
		filtered = append(filtered, bar)
	}
	return filtered
}

// ValidateTimeSequence ensures dates are strictly increasing
func (f *DefaultDataFilter) ValidateTimeSequence(series types.PriceSeries) error {
	for i := 1; i < len(series); i++ {
		prev, cur := series[i-1].Date, series[i].Date
		if cur.Before(prev) {
			return bterrors.NewBacktestError(bterrors.ErrorCategoryData, "filter", "validate_sequence",
				fmt.Sprintf("data not in chronological order at index %d: %s comes after %s",
					i, cur.Format(types.DateLayout), prev.Format(types.DateLayout)))
		}
		if cur.Equal(prev) {
			return bterrors.NewBacktestError(bterrors.ErrorCategoryData, "filter", "validate_sequence",
				fmt.Sprintf("duplicate date at index %d: %s", i, cur.Format(types.DateLayout)))
		}
	}
	return nil
}

// SortByDate returns a copy sorted by date; equal dates keep their input order
func (f *DefaultDataFilter) SortByDate(series types.PriceSeries) types.PriceSeries {
	sorted := series.Clone()
	slices.SortStableFunc(sorted, func(a, b types.PriceBar) int {
		return a.Date.Compare(b.Date)
	})
	return sorted
}

// RemoveDuplicates drops repeated dates from a sorted series, keeping the first occurrence
func (f *DefaultDataFilter) RemoveDuplicates(series types.PriceSeries) types.PriceSeries {
	if len(series) <= 1 {
		return series
	}

	filtered := make(types.PriceSeries, 0, len(series))
	for i, bar := range series {
		if i > 0 && bar.Date.Equal(filtered[len(filtered)-1].Date) {
			continue
		}
		filtered = append(filtered, bar)
	}
	return filtered
}

// DetectGaps reports consecutive bars more than maxGapDays calendar days apart
func (f *DefaultDataFilter) DetectGaps(series types.PriceSeries, maxGapDays int) []Gap {
	var gaps []Gap
	for i := 1; i < len(series); i++ {
		days := int(series[i].Date.Sub(series[i-1].Date).Hours() / 24)
		if days > maxGapDays {
			gaps = append(gaps, Gap{From: series[i-1].Date, To: series[i].Date, Days: days})
		}
	}
	return gaps
}
