package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestFrameError_Error(t *testing.T) {
	err := New(ErrCategoryAggregate, CodeNotNumeric, "column \"Name\" is text")
	expected := "[AGGREGATE:NOT_NUMERIC] column \"Name\" is text"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestFrameError_ErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("invalid syntax")
	err := Wrap(ErrCategoryIngest, CodeParseError, "row 3, field 2", cause)
	expected := "[INGEST:PARSE_ERROR] row 3, field 2: invalid syntax"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestFrameError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(ErrCategoryStorage, CodeDownloadFailed, "read failed", cause)
	if !errors.Is(err, cause) {
		t.Error("Unwrap should allow errors.Is to find the cause")
	}
}

func TestFrameError_Is(t *testing.T) {
	err1 := New(ErrCategoryQuery, CodeColumnNotFound, "first")
	err2 := New(ErrCategoryQuery, CodeColumnNotFound, "second")
	err3 := New(ErrCategoryQuery, CodeInvalidPredicate, "different code")

	if !errors.Is(err1, err2) {
		t.Error("errors with same category+code should match via Is")
	}
	if errors.Is(err1, err3) {
		t.Error("errors with different codes should not match via Is")
	}
}

func TestSentinels(t *testing.T) {
	tests := []struct {
		err      error
		sentinel error
	}{
		{Newf(ErrCategoryIngest, CodeParseError, "row %d", 1), ErrParse},
		{New(ErrCategoryIngest, CodeRowShapeMismatch, "x"), ErrRowShapeMismatch},
		{New(ErrCategorySchema, CodeShapeMismatch, "x"), ErrShapeMismatch},
		{New(ErrCategorySchema, CodeSchemaMismatch, "x"), ErrSchemaMismatch},
		{New(ErrCategorySchema, CodeUnknownType, "x"), ErrUnknownType},
		{New(ErrCategoryQuery, CodeColumnNotFound, "x"), ErrColumnNotFound},
		{New(ErrCategoryAggregate, CodeNotNumeric, "x"), ErrNotNumeric},
		{New(ErrCategoryAggregate, CodeNoData, "x"), ErrNoData},
		{New(ErrCategoryAggregate, CodeLengthMismatch, "x"), ErrLengthMismatch},
	}

	for _, tt := range tests {
		wrapped := fmt.Errorf("outer: %w", tt.err)
		if !errors.Is(wrapped, tt.sentinel) {
			t.Errorf("%v should match sentinel %v", tt.err, tt.sentinel)
		}
	}

	if errors.Is(New(ErrCategoryAggregate, CodeNoData, "x"), ErrNotNumeric) {
		t.Error("NoData must not match NotNumeric")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		category  ErrorCategory
		code      string
		retryable bool
	}{
		{ErrCategoryStorage, CodeDownloadFailed, true},
		{ErrCategoryStorage, CodeObjectNotFound, false},
		{ErrCategoryIngest, CodeParseError, false},
		{ErrCategorySchema, CodeSchemaMismatch, false},
		{ErrCategoryAggregate, CodeNoData, false},
		{ErrCategoryInternal, CodeUnexpected, false},
	}

	for _, tt := range tests {
		err := New(tt.category, tt.code, "test")
		if IsRetryable(err) != tt.retryable {
			t.Errorf("%s:%s retryable=%v, want %v", tt.category, tt.code, IsRetryable(err), tt.retryable)
		}
	}
}

func TestGetCategory(t *testing.T) {
	err := New(ErrCategoryQuery, CodeInvalidPredicate, "bad predicate")
	if GetCategory(err) != ErrCategoryQuery {
		t.Errorf("got %q, want %q", GetCategory(err), ErrCategoryQuery)
	}
	if GetCategory(fmt.Errorf("plain error")) != "" {
		t.Error("non-FrameError should return empty category")
	}
}

func TestGetCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", New(ErrCategoryAggregate, CodeNoData, "empty"))
	if GetCode(err) != CodeNoData {
		t.Errorf("got %q, want %q", GetCode(err), CodeNoData)
	}
	if GetCode(fmt.Errorf("plain error")) != "" {
		t.Error("non-FrameError should return empty code")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(ErrCategoryIngest, CodeRowShapeMismatch, "bad row")
	detailed := err.WithDetails(map[string]interface{}{"row": 3})

	if detailed.Details["row"] != 3 {
		t.Error("WithDetails should set details")
	}
	if err.Details != nil {
		t.Error("WithDetails should not modify original")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	cause := fmt.Errorf("io error")

	in := NewIngestError(CodeParseError, "bad field", cause)
	if in.Category != ErrCategoryIngest || !errors.Is(in, cause) {
		t.Error("NewIngestError mismatch")
	}

	s := NewSchemaError(CodeSchemaMismatch, "kinds differ")
	if s.Category != ErrCategorySchema {
		t.Error("NewSchemaError mismatch")
	}

	q := NewQueryError(CodeColumnNotFound, "no such column")
	if q.Category != ErrCategoryQuery {
		t.Error("NewQueryError mismatch")
	}

	a := NewAggregateError(CodeNoData, "empty")
	if a.Category != ErrCategoryAggregate {
		t.Error("NewAggregateError mismatch")
	}

	st := NewStorageError(CodeDownloadFailed, "s3 down", cause)
	if st.Category != ErrCategoryStorage || !st.Retryable {
		t.Error("NewStorageError mismatch")
	}

	i := NewInternalError("unexpected", cause)
	if i.Category != ErrCategoryInternal || i.Code != CodeUnexpected {
		t.Error("NewInternalError mismatch")
	}
}
