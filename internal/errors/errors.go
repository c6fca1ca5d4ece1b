// Package errors provides structured error types for framekit.
// All errors include a category, code, message, and retryable flag so callers
// can branch on the failure kind with errors.Is.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by the component that raised them.
type ErrorCategory string

const (
	ErrCategoryIngest    ErrorCategory = "INGEST"
	ErrCategorySchema    ErrorCategory = "SCHEMA"
	ErrCategoryQuery     ErrorCategory = "QUERY"
	ErrCategoryAggregate ErrorCategory = "AGGREGATE"
	ErrCategoryStorage   ErrorCategory = "STORAGE"
	ErrCategoryInternal  ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Ingest codes
	CodeParseError       = "PARSE_ERROR"
	CodeRowShapeMismatch = "ROW_SHAPE_MISMATCH"
	CodeEmptySource      = "EMPTY_SOURCE"

	// Schema codes
	CodeUnknownType     = "UNKNOWN_TYPE"
	CodeShapeMismatch   = "SHAPE_MISMATCH"
	CodeSchemaMismatch  = "SCHEMA_MISMATCH"
	CodeDuplicateColumn = "DUPLICATE_COLUMN"

	// Query codes
	CodeColumnNotFound      = "COLUMN_NOT_FOUND"
	CodeUnsupportedOperator = "UNSUPPORTED_OPERATOR"
	CodeInvalidPredicate    = "INVALID_PREDICATE"

	// Aggregate codes
	CodeNotNumeric     = "NOT_NUMERIC"
	CodeNoData         = "NO_DATA"
	CodeLengthMismatch = "LENGTH_MISMATCH"

	// Storage codes
	CodeObjectNotFound = "OBJECT_NOT_FOUND"
	CodeDownloadFailed = "DOWNLOAD_FAILED"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// FrameError is the structured error type used throughout the system.
type FrameError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *FrameError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *FrameError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *FrameError) Is(target error) bool {
	var t *FrameError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// Sentinels for errors.Is. Only Category and Code take part in matching.
var (
	ErrParse               = New(ErrCategoryIngest, CodeParseError, "parse error")
	ErrRowShapeMismatch    = New(ErrCategoryIngest, CodeRowShapeMismatch, "row shape mismatch")
	ErrEmptySource         = New(ErrCategoryIngest, CodeEmptySource, "empty source")
	ErrUnknownType         = New(ErrCategorySchema, CodeUnknownType, "unknown type")
	ErrShapeMismatch       = New(ErrCategorySchema, CodeShapeMismatch, "shape mismatch")
	ErrSchemaMismatch      = New(ErrCategorySchema, CodeSchemaMismatch, "schema mismatch")
	ErrDuplicateColumn     = New(ErrCategorySchema, CodeDuplicateColumn, "duplicate column")
	ErrColumnNotFound      = New(ErrCategoryQuery, CodeColumnNotFound, "column not found")
	ErrUnsupportedOperator = New(ErrCategoryQuery, CodeUnsupportedOperator, "unsupported operator")
	ErrInvalidPredicate    = New(ErrCategoryQuery, CodeInvalidPredicate, "invalid predicate")
	ErrNotNumeric          = New(ErrCategoryAggregate, CodeNotNumeric, "not numeric")
	ErrNoData              = New(ErrCategoryAggregate, CodeNoData, "no data")
	ErrLengthMismatch      = New(ErrCategoryAggregate, CodeLengthMismatch, "length mismatch")
	ErrObjectNotFound      = New(ErrCategoryStorage, CodeObjectNotFound, "object not found")
	ErrDownloadFailed      = New(ErrCategoryStorage, CodeDownloadFailed, "download failed")
)

// New creates a new FrameError.
func New(category ErrorCategory, code, message string) *FrameError {
	return &FrameError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Newf creates a new FrameError with a formatted message.
func Newf(category ErrorCategory, code, format string, args ...interface{}) *FrameError {
	return New(category, code, fmt.Sprintf(format, args...))
}

// Wrap creates a new FrameError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *FrameError {
	return &FrameError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *FrameError) WithDetails(details map[string]interface{}) *FrameError {
	cp := *e
	cp.Details = details
	return &cp
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var fe *FrameError
	if errors.As(err, &fe) {
		return fe.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a FrameError.
func GetCategory(err error) ErrorCategory {
	var fe *FrameError
	if errors.As(err, &fe) {
		return fe.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a FrameError.
func GetCode(err error) string {
	var fe *FrameError
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// isRetryable reports whether a category/code pair is transient.
func isRetryable(category ErrorCategory, code string) bool {
	return category == ErrCategoryStorage && code == CodeDownloadFailed
}

// Convenience constructors for common errors.

func NewIngestError(code, message string, cause error) *FrameError {
	return Wrap(ErrCategoryIngest, code, message, cause)
}

func NewSchemaError(code, message string) *FrameError {
	return New(ErrCategorySchema, code, message)
}

func NewQueryError(code, message string) *FrameError {
	return New(ErrCategoryQuery, code, message)
}

func NewAggregateError(code, message string) *FrameError {
	return New(ErrCategoryAggregate, code, message)
}

func NewStorageError(code, message string, cause error) *FrameError {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewInternalError(message string, cause error) *FrameError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
