// LOCATION: internal/errors/errors.go
// VERSION: 1.0 - Consolidated error definitions for the entire project
//
// This file provides:
// - Sentinel errors for all error conditions
// - Error category checking functions
// - Error wrapping utilities
// - ValidationErrors collector for multi-field validation

package errors

import (
	"errors"
	"fmt"
)

// ============================================================================
// Sentinel errors for common conditions
// ============================================================================

var (
	// Temporal ordering errors
	ErrOutOfOrder   = errors.New("sample out of order")
	ErrZeroTimeSpan = errors.New("zero time span between bracketing samples")

	// Not found errors
	ErrNotFound        = errors.New("not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrUnknownChannel  = errors.New("unknown channel")
	ErrTrackNotFound   = errors.New("track not found")

	// Already exists errors
	ErrAlreadyExists = errors.New("already exists")
	ErrSessionExists = errors.New("session already exists")
	ErrChannelExists = errors.New("channel already exists")

	// Session lifecycle errors
	ErrSessionSealed = errors.New("session is sealed")
	ErrSessionOpen   = errors.New("session is still open")
	ErrEmptySession  = errors.New("session has no channels")

	// Merge/query errors
	ErrChannelCollision = errors.New("channel collision on overlapping timestamps")
	ErrEmptyResult      = errors.New("query window does not intersect dataset")
	ErrEmptyGrid        = errors.New("alignment grid is empty")

	// Data shape errors
	ErrWidthMismatch    = errors.New("value width mismatch")
	ErrGridNotAscending = errors.New("grid timestamps not strictly increasing")

	// Validation errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrInvalidName   = errors.New("invalid name")
	ErrMissingField  = errors.New("missing required field")
	ErrMissingColumn = errors.New("missing required column")
	ErrUnknownFormat = errors.New("unknown telemetry format")
	ErrBadValue      = errors.New("malformed value")

	// Storage errors
	ErrCorruptRecord = errors.New("corrupt record")
	ErrWriterClosed  = errors.New("writer is closed")
	ErrDatabase      = errors.New("database error")

	// Internal errors
	ErrInternal = errors.New("internal error")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// IsNotFound returns true if err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrUnknownChannel) ||
		errors.Is(err, ErrTrackNotFound)
}

// IsAlreadyExists returns true if err is an already-exists error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrSessionExists) ||
		errors.Is(err, ErrChannelExists)
}

// IsStateError returns true if err is a session lifecycle error.
func IsStateError(err error) bool {
	return errors.Is(err, ErrSessionSealed) ||
		errors.Is(err, ErrSessionOpen) ||
		errors.Is(err, ErrEmptySession)
}

// IsDataError returns true if err reports malformed or mis-shaped input data.
func IsDataError(err error) bool {
	return errors.Is(err, ErrOutOfOrder) ||
		errors.Is(err, ErrZeroTimeSpan) ||
		errors.Is(err, ErrWidthMismatch) ||
		errors.Is(err, ErrGridNotAscending) ||
		errors.Is(err, ErrMissingColumn) ||
		errors.Is(err, ErrBadValue) ||
		errors.Is(err, ErrCorruptRecord)
}

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrUnknownFormat)
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

// NewOutOfOrder creates an out-of-order error naming the channel and timestamps.
func NewOutOfOrder(channel string, t, last float64) error {
	return fmt.Errorf("channel '%s': t=%g <= last=%g: %w", channel, t, last, ErrOutOfOrder)
}

// NewUnknownChannel creates an unknown-channel error with context.
func NewUnknownChannel(name string) error {
	return fmt.Errorf("channel '%s': %w", name, ErrUnknownChannel)
}

// NewCollision creates a channel collision error naming the overlap.
func NewCollision(channel string, t0, t1 float64) error {
	return fmt.Errorf("channel '%s' overlaps on [%g, %g]: %w", channel, t0, t1, ErrChannelCollision)
}

// NewValidation creates a validation error with context.
func NewValidation(field, reason string) error {
	return fmt.Errorf("invalid %s: %s: %w", field, reason, ErrInvalidConfig)
}

// NewMissingColumn creates a missing column error.
func NewMissingColumn(column string) error {
	return fmt.Errorf("column '%s': %w", column, ErrMissingColumn)
}

// ============================================================================
// Validation Errors Collection
// ============================================================================

// ValidationErrors collects multiple validation errors.
type ValidationErrors struct {
	Errors []error
}

// NewValidationErrors creates a new ValidationErrors collector.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{}
}

// Add adds an error to the collection.
func (v *ValidationErrors) Add(err error) {
	if err != nil {
		v.Errors = append(v.Errors, err)
	}
}

// AddField adds a field validation error.
func (v *ValidationErrors) AddField(field, reason string) {
	v.Errors = append(v.Errors, NewValidation(field, reason))
}

// AddMissing adds a missing column error.
func (v *ValidationErrors) AddMissing(column string) {
	v.Errors = append(v.Errors, NewMissingColumn(column))
}

// HasErrors returns true if there are any errors.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}

	msg := fmt.Sprintf("validation failed with %d errors:", len(v.Errors))
	for _, err := range v.Errors {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Err returns nil if no errors, otherwise returns the ValidationErrors.
func (v *ValidationErrors) Err() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Unwrap returns the first error for errors.Is/As support.
func (v *ValidationErrors) Unwrap() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v.Errors[0]
}
