// Package errors provides structured error types for the tripbench system.
// All errors include a category, code, message, and retryable flag for
// consistent error handling across components.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by system component.
type ErrorCategory string

const (
	ErrCategoryDataSource  ErrorCategory = "DATASOURCE"
	ErrCategoryEngine      ErrorCategory = "ENGINE"
	ErrCategoryConsistency ErrorCategory = "CONSISTENCY"
	ErrCategorySink        ErrorCategory = "SINK"
	ErrCategoryExport      ErrorCategory = "EXPORT"
	ErrCategoryInternal    ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Data source codes
	CodeFileMissing   = "FILE_MISSING"
	CodeEmptyDataset  = "EMPTY_DATASET"
	CodeParseFailed   = "PARSE_FAILED"
	CodeSampleInvalid = "SAMPLE_INVALID"

	// Engine codes
	CodeEngineUnavailable = "ENGINE_UNAVAILABLE"
	CodeExecutionFailed   = "EXECUTION_FAILED"
	CodeSessionClosed     = "SESSION_CLOSED"

	// Consistency codes
	CodeResultMismatch = "RESULT_MISMATCH"

	// Sink codes
	CodeChartWriteFailed = "CHART_WRITE_FAILED"

	// Export codes
	CodeExportFailed = "EXPORT_FAILED"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// TripbenchError is the structured error type used throughout the system.
type TripbenchError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *TripbenchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *TripbenchError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *TripbenchError) Is(target error) bool {
	var t *TripbenchError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new TripbenchError.
func New(category ErrorCategory, code, message string) *TripbenchError {
	return &TripbenchError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new TripbenchError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *TripbenchError {
	return &TripbenchError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var te *TripbenchError
	if errors.As(err, &te) {
		return te.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a TripbenchError.
func GetCategory(err error) ErrorCategory {
	var te *TripbenchError
	if errors.As(err, &te) {
		return te.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a TripbenchError.
func GetCode(err error) string {
	var te *TripbenchError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

// isRetryable determines if an error code is retryable. Sink and export
// writes cross the network or a shared disk and may succeed on a second
// attempt. Engine and data-source failures are deterministic for a fixed
// input and are not retried.
func isRetryable(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategorySink && code == CodeChartWriteFailed:
		return true
	case category == ErrCategoryExport && code == CodeExportFailed:
		return true
	default:
		return false
	}
}

// Convenience constructors for common errors.

func NewDataSourceError(code, message string, cause error) *TripbenchError {
	return Wrap(ErrCategoryDataSource, code, message, cause)
}

func NewEngineError(code, message string, cause error) *TripbenchError {
	return Wrap(ErrCategoryEngine, code, message, cause)
}

func NewConsistencyError(message string) *TripbenchError {
	return New(ErrCategoryConsistency, CodeResultMismatch, message)
}

func NewSinkError(message string, cause error) *TripbenchError {
	return Wrap(ErrCategorySink, CodeChartWriteFailed, message, cause)
}

func NewExportError(message string, cause error) *TripbenchError {
	return Wrap(ErrCategoryExport, CodeExportFailed, message, cause)
}

func NewInternalError(message string, cause error) *TripbenchError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
