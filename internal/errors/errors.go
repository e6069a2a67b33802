// Package errors provides structured error types for the labeltally
// pipeline. All errors include a category, code, message, and retryable
// flag for consistent error handling across stages.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by pipeline stage.
type ErrorCategory string

const (
	ErrCategoryConfig  ErrorCategory = "CONFIG"
	ErrCategoryFetch   ErrorCategory = "FETCH"
	ErrCategoryParse   ErrorCategory = "PARSE"
	ErrCategoryResolve ErrorCategory = "RESOLVE"
	ErrCategoryExport  ErrorCategory = "EXPORT"
	ErrCategoryReport  ErrorCategory = "REPORT"
)

// Error codes for each category.
const (
	// Config codes
	CodeEmptyJobList = "EMPTY_JOB_LIST"
	CodeInvalidValue = "INVALID_VALUE"

	// Fetch codes
	CodeJobNotFound    = "JOB_NOT_FOUND"
	CodeNoOutputPath   = "NO_OUTPUT_PATH"
	CodeListFailed     = "LIST_FAILED"
	CodeDownloadFailed = "DOWNLOAD_FAILED"

	// Parse codes
	CodeMalformedRecord = "MALFORMED_RECORD"
	CodeUnreadableFile  = "UNREADABLE_FILE"

	// Resolve codes
	CodeLookupFailed = "LOOKUP_FAILED"
	CodeNoPool       = "NO_POOL"

	// Export codes
	CodeWriteFailed = "WRITE_FAILED"

	// Report codes
	CodeStoreFailed = "STORE_FAILED"
)

// PipelineError is the structured error type used throughout the system.
type PipelineError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *PipelineError) Is(target error) bool {
	var t *PipelineError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new PipelineError.
func New(category ErrorCategory, code, message string) *PipelineError {
	return &PipelineError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new PipelineError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *PipelineError {
	return &PipelineError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a PipelineError.
func GetCategory(err error) ErrorCategory {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a PipelineError.
func GetCode(err error) string {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// isRetryable determines if an error code represents a transient
// service failure worth retrying at the call site.
func isRetryable(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategoryFetch && code == CodeListFailed:
		return true
	case category == ErrCategoryFetch && code == CodeDownloadFailed:
		return true
	case category == ErrCategoryResolve && code == CodeLookupFailed:
		return true
	default:
		return false
	}
}

// Convenience constructors for common errors.

func NewConfigError(code, message string) *PipelineError {
	return New(ErrCategoryConfig, code, message)
}

func NewFetchError(code, message string, cause error) *PipelineError {
	return Wrap(ErrCategoryFetch, code, message, cause)
}

func NewParseError(code, message string, cause error) *PipelineError {
	return Wrap(ErrCategoryParse, code, message, cause)
}

func NewResolveError(code, message string, cause error) *PipelineError {
	return Wrap(ErrCategoryResolve, code, message, cause)
}

func NewExportError(message string, cause error) *PipelineError {
	return Wrap(ErrCategoryExport, CodeWriteFailed, message, cause)
}
