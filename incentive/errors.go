/*
errors.go - Centralized error types for the incentive engine

ERROR CATEGORIES:
  1. Batch errors     - Per-driver failures reported inside batch output
  2. Workflow errors  - Illegal transitions, missing snapshots
  3. Store errors     - Missing records

Nothing in the core is fatal to the process: batch failures are scoped to a
single driver and reported in the return value, workflow failures are scoped
to a single record.
*/
package incentive

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrIllegalTransition is returned when a requested status transition is
	// not in the transition table. Rejected before any snapshot, mutation,
	// or audit write happens.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrNoSnapshot is returned when rollback is requested for a calculation
	// that has no snapshot. No partial mutation occurs.
	ErrNoSnapshot = errors.New("no snapshot available")

	// ErrCalculationNotFound is returned when a referenced calculation
	// doesn't exist.
	ErrCalculationNotFound = errors.New("calculation not found")

	// ErrDriverNotFound is returned when a referenced driver doesn't exist.
	ErrDriverNotFound = errors.New("driver not found")

	// ErrMissingPerformance is the non-fatal per-driver batch failure cause
	// when no performance record exists for the period.
	ErrMissingPerformance = errors.New("no performance record for period")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// IllegalTransitionError reports the exact pair that was rejected.
type IllegalTransitionError struct {
	From Status
	To   Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal status transition: %s -> %s", e.From, e.To)
}

func (e *IllegalTransitionError) Unwrap() error { return ErrIllegalTransition }

// MissingInputError is a per-driver batch failure: a required input record
// was absent for the period.
type MissingInputError struct {
	DriverID DriverID
	Year     int
	Month    int
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("no performance record for period %d-%02d (driver %s)", e.Year, e.Month, e.DriverID)
}

func (e *MissingInputError) Unwrap() error { return ErrMissingPerformance }

// ComputationError wraps an unexpected failure during one driver's
// calculation. Caught at the batch boundary and recorded, never propagated.
type ComputationError struct {
	DriverID DriverID
	Cause    error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("calculation failed for driver %s: %v", e.DriverID, e.Cause)
}

func (e *ComputationError) Unwrap() error { return e.Cause }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrIllegalTransition)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCalculationNotFound) ||
		errors.Is(err, ErrDriverNotFound) ||
		errors.Is(err, ErrNoSnapshot)
}
