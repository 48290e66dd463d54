package types

import "time"

// DateLayout is the calendar date format used across CSV files, storage and reports
const DateLayout = "2006-01-02"

// PriceBar is one daily bar of a price series
type PriceBar struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adj_close"`
	Volume   float64   `json:"volume"`
}

// PriceSeries is a date-ordered list of daily bars with unique dates
type PriceSeries []PriceBar

// Closes returns the close prices in series order
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, bar := range s {
		closes[i] = bar.Close
	}
	return closes
}

// CloseOn returns the close for the given calendar date, if the series has a bar on it
func (s PriceSeries) CloseOn(date time.Time) (float64, bool) {
	idx := s.IndexOf(date)
	if idx < 0 {
		return 0, false
	}
	return s[idx].Close, true
}

// IndexOf returns the index of the bar on the given calendar date or -1.
// The series must be sorted by date.
func (s PriceSeries) IndexOf(date time.Time) int {
	day := TruncateToDay(date)
	lo, hi := 0, len(s)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		d := TruncateToDay(s[mid].Date)
		switch {
		case d.Equal(day):
			return mid
		case d.Before(day):
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return -1
}

// Clone returns an independent copy of the series
func (s PriceSeries) Clone() PriceSeries {
	out := make(PriceSeries, len(s))
	copy(out, s)
	return out
}

// FirstDate returns the date of the first bar or the zero time for an empty series
func (s PriceSeries) FirstDate() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[0].Date
}

// LastDate returns the date of the last bar or the zero time for an empty series
func (s PriceSeries) LastDate() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[len(s)-1].Date
}

// TruncateToDay drops the clock part of t, keeping the calendar date in UTC
func TruncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
