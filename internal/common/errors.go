package common

import (
	"errors"
	"fmt"
)

var (
	// ErrTransientFetch marks a gateway failure worth retrying on the next tick
	// (network, timeout, 5xx, undecodable payload).
	ErrTransientFetch = errors.New("transient fetch failure")

	// ErrUnknownSymbol means the gateway returned no data for the symbol.
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrNotFound is returned when a record id is not in its collection.
	ErrNotFound = errors.New("not found")
)

// LookupError wraps a gateway failure for one symbol.
type LookupError struct {
	Symbol string
	Err    error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup %s: %v", e.Symbol, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// TransientError wraps err so that errors.Is(err, ErrTransientFetch) holds.
func TransientError(symbol string, err error) error {
	return &LookupError{Symbol: symbol, Err: fmt.Errorf("%w: %w", ErrTransientFetch, err)}
}

// UnknownSymbolError reports a symbol the gateway has no data for.
func UnknownSymbolError(symbol string) error {
	return &LookupError{Symbol: symbol, Err: ErrUnknownSymbol}
}

// IsUnknownSymbol reports whether err is, or wraps, ErrUnknownSymbol.
func IsUnknownSymbol(err error) bool {
	return errors.Is(err, ErrUnknownSymbol)
}

// ValidationError is raised for user input that must not be persisted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError returns a ValidationError for field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// MalformedStateError reports a stored collection that could not be parsed.
// Loaders log it and fall back to an empty collection.
type MalformedStateError struct {
	Collection string
	Err        error
}

func (e *MalformedStateError) Error() string {
	return fmt.Sprintf("collection %s is malformed: %v", e.Collection, e.Err)
}

func (e *MalformedStateError) Unwrap() error { return e.Err }
