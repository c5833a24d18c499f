// Package errors holds the error definitions shared by every polarwarp package.
//
// This file provides:
// - Process exit codes
// - Sentinel errors for all error conditions
// - Error category checking functions
// - ErrorToCode mapping
// - Row rejection errors and their reason keys

package errors

import (
	"errors"
	"fmt"
)

// ============================================================================
// Process exit codes - returned by cmd/polarwarp
// ============================================================================

const (
	CodeOK           = 0
	CodeUnknown      = 1
	CodeUsage        = 2
	CodeInvalidInput = 3
	CodeNoData       = 4
	CodePartial      = 5
	CodeInternal     = 70
)

// ============================================================================
// Sentinel errors
// ============================================================================

var (
	// Row validation errors
	ErrMissingField     = errors.New("missing required field")
	ErrNegativeSize     = errors.New("negative byte size")
	ErrEndBeforeStart   = errors.New("end before start")
	ErrNegativeDuration = errors.New("negative duration")
	ErrDurationMismatch = errors.New("duration inconsistent with end-start")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrInvalidNumber    = errors.New("invalid number")
	ErrMalformedRow     = errors.New("malformed row")

	// Input format errors
	ErrMissingColumn     = errors.New("missing required column")
	ErrUnsupportedFormat = errors.New("unsupported input format")
	ErrEmptyInput        = errors.New("empty input")
	ErrNoRecords         = errors.New("no valid records")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrInvalidSkip   = errors.New("invalid skip duration")

	// Aggregation state errors
	ErrGroupFinalized = errors.New("group is finalized")
	ErrInvariant      = errors.New("aggregation invariant violated")

	// Output errors
	ErrWriterClosed = errors.New("writer is closed")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// Join is a convenience wrapper for errors.Join
var Join = errors.Join

// New is a convenience wrapper for errors.New
var New = errors.New

// IsRowError returns true if err rejects a single row without affecting the file.
func IsRowError(err error) bool {
	return errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrNegativeSize) ||
		errors.Is(err, ErrEndBeforeStart) ||
		errors.Is(err, ErrNegativeDuration) ||
		errors.Is(err, ErrDurationMismatch) ||
		errors.Is(err, ErrInvalidTimestamp) ||
		errors.Is(err, ErrInvalidNumber) ||
		errors.Is(err, ErrMalformedRow)
}

// IsInputError returns true if err means a whole file could not be decoded.
func IsInputError(err error) bool {
	return errors.Is(err, ErrMissingColumn) ||
		errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrEmptyInput)
}

// IsValidation returns true if err is a configuration validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrInvalidSkip)
}

// IsFatal returns true if err indicates a bug rather than a data problem.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInvariant) ||
		errors.Is(err, ErrGroupFinalized)
}

// ============================================================================
// Error to exit code mapping
// ============================================================================

// ErrorToCode maps an error to the process exit code.
func ErrorToCode(err error) int {
	if err == nil {
		return CodeOK
	}

	switch {
	case IsFatal(err):
		return CodeInternal
	case IsValidation(err):
		return CodeUsage
	case IsInputError(err):
		return CodeInvalidInput
	case Is(err, ErrNoRecords):
		return CodeNoData
	default:
		return CodeUnknown
	}
}

// ============================================================================
// Error wrapping utilities
// ============================================================================

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ============================================================================
// Error constructors with context
// ============================================================================

// NewMissingField creates a missing field error.
func NewMissingField(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}

// NewMissingColumn creates a missing column error.
func NewMissingColumn(column string) error {
	return fmt.Errorf("column %q: %w", column, ErrMissingColumn)
}

// NewInvariant reports an internal bug in the aggregation core.
func NewInvariant(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvariant)
}

// ============================================================================
// Row errors
// ============================================================================

// RowError is a rejection of one input row.
type RowError struct {
	Line int
	Err  error
}

// NewRowError wraps err with the line it was found on.
func NewRowError(line int, err error) *RowError {
	return &RowError{Line: line, Err: err}
}

// Error implements the error interface.
func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// Unwrap returns the underlying reason.
func (e *RowError) Unwrap() error {
	return e.Err
}

// Reason returns the sentinel category of a row rejection, used as a counter key.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	case errors.Is(err, ErrNegativeSize):
		return "negative_size"
	case errors.Is(err, ErrEndBeforeStart):
		return "end_before_start"
	case errors.Is(err, ErrNegativeDuration):
		return "negative_duration"
	case errors.Is(err, ErrDurationMismatch):
		return "duration_mismatch"
	case errors.Is(err, ErrInvalidTimestamp):
		return "invalid_timestamp"
	case errors.Is(err, ErrInvalidNumber):
		return "invalid_number"
	case errors.Is(err, ErrMalformedRow):
		return "malformed_row"
	default:
		return "other"
	}
}
