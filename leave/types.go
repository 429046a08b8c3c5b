// Package leave implements the leave-request accounting core: employee
// registration, request submission against a day balance, and the
// approve/reject lifecycle that deducts balance only on approval.
//
// All date arithmetic is on whole calendar days with inclusive bounds.
package leave

import (
	"strings"
	"time"
)

// =============================================================================
// STATUS - Request lifecycle, forward-only
// =============================================================================

// Status is the lifecycle state of a leave request.
// A request starts PENDING and transitions exactly once to APPROVED or
// REJECTED. Terminal states never change.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// ParseStatus returns the Status for a wire string, case-insensitive.
func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToUpper(s)) {
	case StatusPending:
		return StatusPending, true
	case StatusApproved:
		return StatusApproved, true
	case StatusRejected:
		return StatusRejected, true
	}
	return "", false
}

// Decision is the approver's verdict on a pending request.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// =============================================================================
// RECORDS
// =============================================================================

// Employee is a registered employee with a personal day balance.
// The balance is mutated only by request approval.
type Employee struct {
	ID           int64
	Name         string
	Email        string
	Department   string
	JoiningDate  time.Time // calendar date
	LeaveBalance int       // days remaining, never negative
	CreatedAt    time.Time
}

// LeaveRequest is a request for a contiguous span of days off.
type LeaveRequest struct {
	ID         int64
	EmployeeID int64
	StartDate  time.Time // calendar date, inclusive
	EndDate    time.Time // calendar date, inclusive
	Reason     string    // optional free text
	Status     Status
	CreatedAt  time.Time
}

// Days returns the inclusive span length of the request.
func (r *LeaveRequest) Days() int {
	return DaysInclusive(r.StartDate, r.EndDate)
}

// =============================================================================
// CALENDAR HELPERS
// =============================================================================

// Day truncates t to its calendar day at midnight UTC.
// All dates entering the engine pass through here so that span and
// overlap arithmetic never sees a time-of-day component.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysInclusive returns the number of calendar days in [start, end]
// counting both endpoints. start and end must be Day-truncated.
func DaysInclusive(start, end time.Time) int {
	return int(end.Sub(start).Hours()/24) + 1
}

// Overlaps reports whether [aStart, aEnd] and [bStart, bEnd] intersect
// under inclusive bounds.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}

// Departments returns the department choices offered at registration.
// Department is a free-form category; this list is only a convenience
// for presentation dropdowns.
func Departments() []string {
	return []string{"Engineering", "Product", "HR", "Sales", "Marketing", "Finance", "Operations"}
}
