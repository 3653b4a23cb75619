// Package errors provides structured error types for the Faceton system.
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
	ErrCategoryValidation ErrorCategory = "VALIDATION"
	ErrCategoryFormat     ErrorCategory = "FORMAT"
	ErrCategoryMerge      ErrorCategory = "MERGE"
	ErrCategoryArchive    ErrorCategory = "ARCHIVE"
	ErrCategoryInternal   ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Validation codes
	CodeEmptyPartials  = "EMPTY_PARTIALS"
	CodeInvalidConfig  = "INVALID_CONFIG"
	CodeInvalidRequest = "INVALID_REQUEST"

	// Format codes
	CodeTruncatedStream   = "TRUNCATED_STREAM"
	CodeUnknownOrdering   = "UNKNOWN_ORDERING"
	CodeUnknownStreamType = "UNKNOWN_STREAM_TYPE"
	CodeCorruptPayload    = "CORRUPT_PAYLOAD"

	// Archive codes
	CodePutFailed        = "PUT_FAILED"
	CodeGetFailed        = "GET_FAILED"
	CodeRecordNotFound   = "RECORD_NOT_FOUND"
	CodeChecksumMismatch = "CHECKSUM_MISMATCH"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// FacetonError is the structured error type used throughout the system.
type FacetonError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *FacetonError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *FacetonError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *FacetonError) Is(target error) bool {
	var t *FacetonError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new FacetonError.
func New(category ErrorCategory, code, message string) *FacetonError {
	return &FacetonError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new FacetonError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *FacetonError {
	return &FacetonError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var fe *FacetonError
	if errors.As(err, &fe) {
		return fe.Retryable
	}
	return false
}

// IsFormat reports whether an error (or its chain) is a wire format error.
func IsFormat(err error) bool {
	return GetCategory(err) == ErrCategoryFormat
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a FacetonError.
func GetCategory(err error) ErrorCategory {
	var fe *FacetonError
	if errors.As(err, &fe) {
		return fe.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a FacetonError.
func GetCode(err error) string {
	var fe *FacetonError
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// isRetryable determines if an error code is retryable. Only archive I/O
// is worth retrying; format and validation failures never succeed twice.
func isRetryable(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategoryArchive && code == CodePutFailed:
		return true
	case category == ErrCategoryArchive && code == CodeGetFailed:
		return true
	default:
		return false
	}
}

// Convenience constructors for common errors.

func NewValidationError(code, message string) *FacetonError {
	return New(ErrCategoryValidation, code, message)
}

func NewFormatError(code, message string) *FacetonError {
	return New(ErrCategoryFormat, code, message)
}

func WrapFormatError(code, message string, cause error) *FacetonError {
	return Wrap(ErrCategoryFormat, code, message, cause)
}

func NewArchiveError(code, message string, cause error) *FacetonError {
	return Wrap(ErrCategoryArchive, code, message, cause)
}

func NewInternalError(message string, cause error) *FacetonError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
