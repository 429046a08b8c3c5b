/*
errors.go - Error taxonomy for the accounting core

PURPOSE:
  All error kinds surfaced by the engine, in one place. Every operation
  returns either a success value or exactly one of these; validation
  failures always leave the store unmodified because the enclosing
  transaction is rolled back.

ERROR CATEGORIES:
  1. Not-found       - referenced employee or request does not exist
  2. Invalid input   - malformed date range, start before joining
  3. Conflict        - duplicate email, overlapping request,
                       insufficient balance, already-decided request

USAGE:
  Callers match with errors.Is():

    if errors.Is(err, leave.ErrOverlappingRequest) { ... }

  or use the classification helpers (IsNotFound, IsInvalid, IsConflict)
  when only the HTTP-status family matters.

SEE ALSO:
  - engine.go: Produces these errors
  - api/handlers.go: Maps them to HTTP statuses
*/
package leave

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEmployeeNotFound is returned when a referenced employee does not exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrRequestNotFound is returned when a referenced leave request does not exist.
	ErrRequestNotFound = errors.New("leave request not found")

	// ErrDuplicateEmail is returned when registration collides with an
	// existing employee's email. Email is unique across all employees.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidRange is returned when the end date precedes the start date.
	ErrInvalidRange = errors.New("end date before start date")

	// ErrBeforeJoining is returned when the requested start precedes the
	// employee's joining date.
	ErrBeforeJoining = errors.New("leave starts before joining date")

	// ErrOverlappingRequest is returned when the requested range collides
	// with an existing pending or approved request of the same employee.
	ErrOverlappingRequest = errors.New("overlapping leave request exists")

	// ErrInsufficientBalance is returned when the inclusive span exceeds the
	// current balance. Checked at submission AND re-checked at approval,
	// because the balance may shrink between the two.
	ErrInsufficientBalance = errors.New("insufficient leave balance")

	// ErrNotPending is returned on an attempt to decide a request that has
	// already reached a terminal status.
	ErrNotPending = errors.New("request already decided")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError reports a balance shortage.
type InsufficientBalanceError struct {
	EmployeeID int64
	Available  int
	Requested  int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient leave balance: have %d days, need %d", e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// OverlapError reports a collision with an existing pending/approved request.
type OverlapError struct {
	EmployeeID int64
	Start, End time.Time
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("overlapping leave request exists for employee %d in [%s, %s]",
		e.EmployeeID, e.Start.Format("2006-01-02"), e.End.Format("2006-01-02"))
}

func (e *OverlapError) Unwrap() error { return ErrOverlappingRequest }

// NotPendingError reports the actual status of an already-decided request.
type NotPendingError struct {
	RequestID int64
	Status    Status
}

func (e *NotPendingError) Error() string {
	return fmt.Sprintf("request %d is %s, only pending requests can be decided", e.RequestID, e.Status)
}

func (e *NotPendingError) Unwrap() error { return ErrNotPending }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether err indicates a missing employee or request.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) || errors.Is(err, ErrRequestNotFound)
}

// IsInvalid reports whether err is due to malformed client input.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidRange) || errors.Is(err, ErrBeforeJoining)
}

// IsConflict reports whether err is a collision with current store state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateEmail) ||
		errors.Is(err, ErrOverlappingRequest) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrNotPending)
}
