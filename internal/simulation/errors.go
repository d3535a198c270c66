package simulation

import (
	"context"
	"errors"
	"fmt"

	"fopsim/internal/grid"
)

// ErrConfiguration is matched by every ConfigurationError.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError reports a run parameter outside its valid range.
type ConfigurationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// The input errors are raised by the grid package when records are stored or
// gathered; they are re-exported so callers only need this package.
var (
	ErrInputData     = grid.ErrInputData
	ErrNumericDomain = grid.ErrNumericDomain
)

type (
	InputDataError     = grid.InputDataError
	NumericDomainError = grid.NumericDomainError
)

// ErrorKind maps an error to the short label used in metrics and run records.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrInputData):
		return "input_data"
	case errors.Is(err, ErrNumericDomain):
		return "numeric_domain"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "other"
	}
}
