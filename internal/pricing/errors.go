package pricing

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when a numeric argument violates a positivity precondition.
	ErrInvalidInput = errors.New("pricing: invalid input")
	// ErrInvalidFormat is returned when a price string cannot be parsed.
	ErrInvalidFormat = errors.New("pricing: invalid price format")
)

// InputError describes which argument was rejected.
type InputError struct {
	Field string
	Value float64
}

func (e *InputError) Error() string {
	return fmt.Sprintf("pricing: %s must be a positive finite number, got %v", e.Field, e.Value)
}

// Is lets errors.Is match ErrInvalidInput.
func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

// FormatError carries the original, undecorated input that failed to parse.
type FormatError struct {
	Input string
	Err   error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("pricing: cannot parse price %q", e.Input)
}

// Is lets errors.Is match ErrInvalidFormat.
func (e *FormatError) Is(target error) bool { return target == ErrInvalidFormat }

// Unwrap exposes the underlying parse error, if any.
func (e *FormatError) Unwrap() error { return e.Err }
