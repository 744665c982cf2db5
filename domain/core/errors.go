package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Input errors abort a screening call before any pair is processed
	ErrInvalidInput = errors.New("invalid input")
	ErrTooFewSeries = fmt.Errorf("%w: at least two instruments are required", ErrInvalidInput)
	ErrRaggedTable  = fmt.Errorf("%w: series lengths differ", ErrInvalidInput)

	// Per-pair errors
	ErrDegenerateSeries = errors.New("degenerate series")
	ErrConstantSeries   = fmt.Errorf("%w: zero variance", ErrDegenerateSeries)
	ErrSeriesTooShort   = fmt.Errorf("%w: too few observations", ErrDegenerateSeries)

	ErrNumericalTest = errors.New("numerical test failure")
	ErrNonFinite     = fmt.Errorf("%w: non-finite statistic", ErrNumericalTest)
)

// Error constructors with context
func NewInvalidInputError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidInput, field, reason)
}

func NewConstantSeriesError(id InstrumentID) error {
	return fmt.Errorf("%w: %s", ErrConstantSeries, id)
}

func NewSeriesTooShortError(what string, have, need int) error {
	return fmt.Errorf("%w: %s has %d observations, need at least %d", ErrSeriesTooShort, what, have, need)
}

func NewNumericalTestError(test string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrNumericalTest, test)
	}
	return fmt.Errorf("%w: %s: %v", ErrNumericalTest, test, err)
}

// Error checking helpers
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

func IsDegenerateSeries(err error) bool {
	return errors.Is(err, ErrDegenerateSeries)
}

func IsNumericalTest(err error) bool {
	return errors.Is(err, ErrNumericalTest)
}

// IsPairError reports whether err is scoped to a single pair rather than the whole call.
func IsPairError(err error) bool {
	return IsDegenerateSeries(err) || IsNumericalTest(err)
}
