/*
errors.go - Centralized error types for the engine

PURPOSE:
  All engine error types in one place for consistency and discoverability.
  Callers match with errors.Is / errors.As; structured errors carry the
  context an operator-facing message needs.

ERROR CATEGORIES:
  1. Input errors - empty name, malformed query
  2. Selection errors - stale or out-of-range choices
  3. Validation errors - overpayment
  4. Log errors - append contention against the external log table

NOTE:
  "No match found" is NOT an error. It is a normal resolution outcome
  (see resolver.go) and is reported to the operator as plain text.
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEmptyName is returned when a name normalizes to nothing.
	ErrEmptyName = errors.New("empty client name")

	// ErrInvalidSelection is returned for a choice that references a session
	// which expired, or an index outside the candidate list.
	ErrInvalidSelection = errors.New("invalid selection")

	// ErrNoSession is returned when a choice arrives for a requester with no
	// pending session. Callers treat this as a stale signal, not a failure.
	ErrNoSession = errors.New("no pending session")

	// ErrOverpayment is returned when a requested installment count would
	// push a credit past its total.
	ErrOverpayment = errors.New("payment exceeds remaining installments")

	// ErrRowOccupied is returned by a log store when a conditional write
	// targets a row that already holds data. The appender retries on it.
	ErrRowOccupied = errors.New("log row already occupied")

	// ErrLogConflict is returned when the append retry bound is exhausted
	// under sustained contention. The payment is NOT logged.
	ErrLogConflict = errors.New("log append conflict: retries exhausted")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// SelectionError explains why a disambiguating choice was rejected.
type SelectionError struct {
	Index      int
	Candidates int
	Expired    bool
}

func (e *SelectionError) Error() string {
	if e.Expired {
		return "selection expired: please resend the request"
	}
	return fmt.Sprintf("selection %d out of range (1-%d)", e.Index+1, e.Candidates)
}

func (e *SelectionError) Unwrap() error { return ErrInvalidSelection }

// OverpaymentError details a rejected installment count.
type OverpaymentError struct {
	Requested int
	Paid      int
	Total     int
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("cannot pay %d installment(s): %d of %d already paid, %d remaining",
		e.Requested, e.Paid, e.Total, e.Total-e.Paid)
}

func (e *OverpaymentError) Unwrap() error { return ErrOverpayment }

// LogConflictError reports append retry exhaustion.
type LogConflictError struct {
	Attempts int
}

func (e *LogConflictError) Error() string {
	return fmt.Sprintf("log append failed after %d attempts", e.Attempts)
}

func (e *LogConflictError) Unwrap() error { return ErrLogConflict }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is user-correctable: the operator
// should re-enter something rather than retry the same input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrEmptyName) ||
		errors.Is(err, ErrInvalidSelection) ||
		errors.Is(err, ErrOverpayment)
}

// IsRetryable returns true if the same operation might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRowOccupied) || errors.Is(err, ErrLogConflict)
}
