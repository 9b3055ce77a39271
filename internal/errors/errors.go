// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNoData          = errors.New("no usable data")
	ErrSymbolNotFound  = errors.New("symbol not found")
	ErrAlertNotFound   = errors.New("alert not found")
	ErrMarketClosed    = errors.New("market is closed")
	ErrRateLimited     = errors.New("rate limited")
	ErrTimeout         = errors.New("operation timed out")
	ErrConfigInvalid   = errors.New("invalid configuration")
	ErrDatabaseError   = errors.New("database error")
	ErrBootstrapRetry  = errors.New("ticker universe bootstrap incomplete, retry wanted")
	ErrInputValidation = errors.New("input validation failed")
)

// ProviderError represents an error from a remote price provider. Transient
// errors (network failures, timeouts, throttling) are eligible for retry;
// everything else (malformed responses, unknown symbols) short-circuits.
type ProviderError struct {
	Provider  string
	Operation string
	Transient bool
	Err       error
}

func (e *ProviderError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("provider error [%s] %s (%s): %v", e.Provider, e.Operation, kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewTransient creates a retryable ProviderError.
func NewTransient(provider, operation string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Operation: operation, Transient: true, Err: err}
}

// NewPermanent creates a non-retryable ProviderError.
func NewPermanent(provider, operation string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Operation: operation, Transient: false, Err: err}
}

// IsTransient reports whether err is a retryable provider error.
func IsTransient(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Transient
	}
	return false
}

// DataError represents a persistence-layer error scoped to one symbol.
type DataError struct {
	DataType string
	Symbol   string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.DataType, e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.DataType, e.Symbol, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(dataType, symbol, message string, err error) *DataError {
	return &DataError{DataType: dataType, Symbol: symbol, Message: message, Err: err}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

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

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
