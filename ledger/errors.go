/*
errors.go - Centralized error types for the budget engine

PURPOSE:
  Sentinel errors shared across the engine packages, plus helpers the API
  layer uses to map errors to HTTP status codes. Domain packages wrap
  these with additional context.

ERROR CATEGORIES:
  1. Validation errors - business rule violations (block persistence)
  2. Configuration-missing errors - no distribution / no accounts
  3. Not-found errors - missing records

USAGE:
  if errors.Is(err, ledger.ErrNotConfigured) {
      // offer default-distribution creation
  }
*/
package ledger

import "errors"

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotConfigured is returned when the engine has nothing to compute
	// from: no active distribution or no accounts. Callers are expected to
	// offer default creation rather than treat this as a crash.
	ErrNotConfigured = errors.New("not configured")

	// ErrValidation is the root of all validation failures. Validation
	// errors must block persistence, never be silently coerced.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrNegativeAmount is returned when an unsigned amount field carries
	// a negative value.
	ErrNegativeAmount = errors.New("amount must be nonnegative")
)

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrNegativeAmount)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsNotConfigured returns true if the error indicates missing setup rather
// than a fault.
func IsNotConfigured(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}
