package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBacktestError_IsMatchesCategory(t *testing.T) {
	err := NewExposureExceededError("ledger", "open", "exposure would reach 12.00%")
	wrapped := fmt.Errorf("buy on 2020-01-03: %w", err)

	assert.True(t, stderrors.Is(wrapped, ErrExposureExceeded))
	assert.False(t, stderrors.Is(wrapped, ErrPricing))
	assert.True(t, IsExposureExceeded(wrapped))
}

func TestBacktestError_IsFatal(t *testing.T) {
	assert.False(t, NewExposureExceededError("ledger", "open", "cap").IsFatal())
	assert.True(t, NewPricingError("pricer", "reprice", "expired").IsFatal())
	assert.True(t, NewConfigValidationError("config", "validate", "bad").IsFatal())

	assert.False(t, IsFatal(nil))
	assert.True(t, IsFatal(stderrors.New("plain")))
	assert.False(t, IsFatal(fmt.Errorf("wrapped: %w", NewExposureExceededError("ledger", "open", "cap"))))
}

func TestBacktestError_ErrorString(t *testing.T) {
	err := NewDataInsufficientError("engine", "run", "no bars in range").
		WithContext("start", "2020-01-01").
		WithContext("end", "2020-02-01")

	assert.Equal(t, "[DATA_INSUFFICIENT:engine] run: no bars in range (end=2020-02-01, start=2020-01-01)", err.Error())

	wrapped := NewStorageError("store", "save_run", stderrors.New("disk full"))
	assert.Contains(t, wrapped.Error(), "disk full")
	assert.True(t, stderrors.Is(wrapped, ErrStorage))
}

func TestWrapError_Nil(t *testing.T) {
	assert.Nil(t, WrapError(nil, ErrorCategoryData, "csv", "load"))
}

func TestCategoryOf(t *testing.T) {
	category, ok := CategoryOf(fmt.Errorf("x: %w", NewPricingError("pricer", "reprice", "t<=0")))
	require.True(t, ok)
	assert.Equal(t, ErrorCategoryPricing, category)

	_, ok = CategoryOf(stderrors.New("plain"))
	assert.False(t, ok)
}

func TestErrorStats_RecordError(t *testing.T) {
	stats := NewErrorStats(2)
	stats.RecordError(NewPricingError("pricer", "reprice", "a"))
	stats.RecordError(NewConfigValidationError("config", "validate", "b"))
	stats.RecordError(stderrors.New("c"))
	stats.RecordError(nil)

	assert.Equal(t, 3, stats.TotalErrors)
	assert.Len(t, stats.RecentErrors, 2)
	assert.Equal(t, 1, stats.ErrorsByCategory["UNKNOWN"])
	assert.InDelta(t, 1.0/3.0, stats.GetErrorRate(ErrorCategoryPricing), 1e-9)
}
