package model

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned for a missing or empty agent roster and
	// for invalid iteration or tolerance parameters.
	ErrConfiguration = errors.New("configuration error")
	// ErrDimensionMismatch indicates that a vector or matrix does not match
	// the horizon H or the roster size N.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrInfeasibleLocalProblem is returned by an agent whose private
	// feasible set is empty.
	ErrInfeasibleLocalProblem = errors.New("infeasible local problem")
	// ErrNumerical reports non-finite values or a covariance that is not
	// positive semidefinite.
	ErrNumerical = errors.New("numerical error")
)

// DimensionError describes a shape disagreement. It unwraps to
// ErrDimensionMismatch.
type DimensionError struct {
	What string
	Got  int
	Want int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: %s has length %d, want %d", ErrDimensionMismatch, e.What, e.Got, e.Want)
}

func (e *DimensionError) Unwrap() error { return ErrDimensionMismatch }

// CheckLen returns a DimensionError when len(v) != want.
func CheckLen(what string, v []float64, want int) error {
	if len(v) != want {
		return &DimensionError{What: what, Got: len(v), Want: want}
	}
	return nil
}
