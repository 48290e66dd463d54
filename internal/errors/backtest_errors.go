package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCategory represents the kinds of failure a backtest run can report
type ErrorCategory string

const (
	// Fatal for the run: the caller gets no partial result
	ErrorCategoryDataInsufficient ErrorCategory = "DATA_INSUFFICIENT"
	ErrorCategoryConfigValidation ErrorCategory = "CONFIG_VALIDATION"
	ErrorCategoryPricing          ErrorCategory = "PRICING"
	ErrorCategoryData             ErrorCategory = "DATA"
	ErrorCategoryStorage          ErrorCategory = "STORAGE"

	// Expected during a run, never fatal
	ErrorCategoryExposureExceeded ErrorCategory = "EXPOSURE_EXCEEDED"
)

// Sentinels usable with errors.Is; they match any BacktestError of the same category.
var (
	ErrDataInsufficient = &BacktestError{Category: ErrorCategoryDataInsufficient}
	ErrConfigValidation = &BacktestError{Category: ErrorCategoryConfigValidation}
	ErrPricing          = &BacktestError{Category: ErrorCategoryPricing}
	ErrExposureExceeded = &BacktestError{Category: ErrorCategoryExposureExceeded}
	ErrData             = &BacktestError{Category: ErrorCategoryData}
	ErrStorage          = &BacktestError{Category: ErrorCategoryStorage}
)

// BacktestError represents a categorized error with context
type BacktestError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
}

// Error implements the error interface
func (e *BacktestError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Context[k])
		}
		b.WriteString(")")
	}
	if e.Underlying != nil {
		fmt.Fprintf(&b, ": %v", e.Underlying)
	}
	return b.String()
}

// Unwrap returns the underlying error for error unwrapping
func (e *BacktestError) Unwrap() error {
	return e.Underlying
}

// Is reports category equality so sentinels match wrapped instances
func (e *BacktestError) Is(target error) bool {
	t, ok := target.(*BacktestError)
	if !ok {
		return false
	}
	return t.Category == e.Category
}

// IsFatal returns whether this error must abort the run
func (e *BacktestError) IsFatal() bool {
	return e.Category != ErrorCategoryExposureExceeded
}

// NewBacktestError creates a new categorized error
func NewBacktestError(category ErrorCategory, component, operation, message string) *BacktestError {
	return &BacktestError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with backtest error context
func WrapError(err error, category ErrorCategory, component, operation string) *BacktestError {
	if err == nil {
		return nil
	}

	return &BacktestError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Context:    make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *BacktestError) WithContext(key string, value interface{}) *BacktestError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Common error constructors
func NewDataInsufficientError(component, operation, message string) *BacktestError {
	return NewBacktestError(ErrorCategoryDataInsufficient, component, operation, message)
}

func NewConfigValidationError(component, operation, message string) *BacktestError {
	return NewBacktestError(ErrorCategoryConfigValidation, component, operation, message)
}

func NewExposureExceededError(component, operation, message string) *BacktestError {
	return NewBacktestError(ErrorCategoryExposureExceeded, component, operation, message)
}

func NewPricingError(component, operation, message string) *BacktestError {
	return NewBacktestError(ErrorCategoryPricing, component, operation, message)
}

func NewDataError(component, operation string, err error) *BacktestError {
	return WrapError(err, ErrorCategoryData, component, operation)
}

func NewStorageError(component, operation string, err error) *BacktestError {
	return WrapError(err, ErrorCategoryStorage, component, operation)
}

// CategoryOf returns the category of the first BacktestError in err's chain
func CategoryOf(err error) (ErrorCategory, bool) {
	var be *BacktestError
	if stderrors.As(err, &be) {
		return be.Category, true
	}
	return "", false
}

// IsExposureExceeded reports whether err is a rejected buy
func IsExposureExceeded(err error) bool {
	return stderrors.Is(err, ErrExposureExceeded)
}

// IsFatal reports whether err should abort a run. Unknown errors are fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var be *BacktestError
	if stderrors.As(err, &be) {
		return be.IsFatal()
	}
	return true
}

// ErrorStats tallies failures across many runs, e.g. a parameter sweep
type ErrorStats struct {
	TotalErrors      int
	ErrorsByCategory map[ErrorCategory]int
	RecentErrors     []error
	MaxRecentErrors  int
}

// NewErrorStats creates a new error statistics tracker
func NewErrorStats(maxRecentErrors int) *ErrorStats {
	return &ErrorStats{
		ErrorsByCategory: make(map[ErrorCategory]int),
		RecentErrors:     make([]error, 0, maxRecentErrors),
		MaxRecentErrors:  maxRecentErrors,
	}
}

// RecordError records an error in the statistics
func (es *ErrorStats) RecordError(err error) {
	if err == nil {
		return
	}
	es.TotalErrors++
	category, ok := CategoryOf(err)
	if !ok {
		category = "UNKNOWN"
	}
	es.ErrorsByCategory[category]++

	es.RecentErrors = append(es.RecentErrors, err)
	if len(es.RecentErrors) > es.MaxRecentErrors {
		es.RecentErrors = es.RecentErrors[1:]
	}
}

// GetErrorRate returns the share of recorded errors in a category
func (es *ErrorStats) GetErrorRate(category ErrorCategory) float64 {
	if es.TotalErrors == 0 {
		return 0.0
	}
	return float64(es.ErrorsByCategory[category]) / float64(es.TotalErrors)
}
