/*
engine.go - The accounting engine

PURPOSE:
  Enforces the leave-request lifecycle and balance-accounting rules.
  Every mutating operation is one atomic transaction: the validation
  reads and the resulting writes commit together or not at all, so two
  racing submissions cannot both pass the overlap check against stale
  data, and a submission racing an approval cannot overdraw.

THE DOUBLE CHECK:
  Submission checks balance sufficiency but does NOT deduct; approval
  deducts and therefore re-checks. This is intentional, not redundant:
  non-overlapping pending requests of one employee may jointly exceed
  the balance, and an approval in between shrinks it. The approval-time
  re-check is the actual enforcement point. Overlap is NOT re-validated
  at approval - pending/approved ranges were already disjoint when the
  request entered the pool.

SEE ALSO:
  - store.go: The transaction contract the engine relies on
  - errors.go: The failure kinds returned here
*/
package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBalance is the initial day balance granted at registration
// when the caller does not specify one.
const DefaultBalance = 24

// Engine implements the accounting operations and the query layer on
// top of a transactional store. It holds no state of its own; the store
// handle is explicit, opened at startup and closed at shutdown.
type Engine struct {
	store TxStore
	log   zerolog.Logger
}

// NewEngine creates an engine bound to the given store.
func NewEngine(store TxStore, log zerolog.Logger) *Engine {
	return &Engine{store: store, log: log}
}

// =============================================================================
// REGISTRATION
// =============================================================================

// RegisterEmployee registers a new employee with an initial day balance
// and returns the assigned id. Returns ErrDuplicateEmail if the email
// is taken.
func (e *Engine) RegisterEmployee(ctx context.Context, name, email, department string, joining time.Time, balance int) (int64, error) {
	if name == "" || email == "" || department == "" {
		return 0, fmt.Errorf("name, email and department are required")
	}
	if balance < 0 {
		return 0, fmt.Errorf("initial balance must not be negative, got %d", balance)
	}

	id, err := e.store.InsertEmployee(ctx, Employee{
		Name:         name,
		Email:        email,
		Department:   department,
		JoiningDate:  Day(joining),
		LeaveBalance: balance,
	})
	if err != nil {
		return 0, err
	}

	e.log.Info().Int64("employee_id", id).Str("department", department).Msg("employee registered")
	return id, nil
}

// =============================================================================
// SUBMISSION
// =============================================================================

// SubmitRequest submits a leave request for [start, end] and returns
// the new request id. The request enters the pool as PENDING; the
// balance is not deducted until approval.
//
// Preconditions, checked in order, each failing fast:
//  1. employee exists            -> ErrEmployeeNotFound
//  2. end >= start               -> ErrInvalidRange
//  3. start >= joining date      -> ErrBeforeJoining
//  4. no pending/approved overlap -> ErrOverlappingRequest
//  5. inclusive span <= balance  -> ErrInsufficientBalance
func (e *Engine) SubmitRequest(ctx context.Context, employeeID int64, start, end time.Time, reason string) (int64, error) {
	start, end = Day(start), Day(end)

	var id int64
	err := e.store.WithTx(ctx, func(s Store) error {
		emp, err := s.GetEmployee(ctx, employeeID)
		if err != nil {
			return err
		}
		if emp == nil {
			return ErrEmployeeNotFound
		}

		if end.Before(start) {
			return ErrInvalidRange
		}
		if start.Before(emp.JoiningDate) {
			return ErrBeforeJoining
		}

		overlap, err := s.HasOverlap(ctx, employeeID, start, end)
		if err != nil {
			return err
		}
		if overlap {
			return &OverlapError{EmployeeID: employeeID, Start: start, End: end}
		}

		days := DaysInclusive(start, end)
		if days > emp.LeaveBalance {
			return &InsufficientBalanceError{EmployeeID: employeeID, Available: emp.LeaveBalance, Requested: days}
		}

		id, err = s.InsertRequest(ctx, LeaveRequest{
			EmployeeID: employeeID,
			StartDate:  start,
			EndDate:    end,
			Reason:     reason,
			Status:     StatusPending,
		})
		return err
	})
	if err != nil {
		return 0, err
	}

	e.log.Info().Int64("request_id", id).Int64("employee_id", employeeID).
		Str("start", start.Format("2006-01-02")).Str("end", end.Format("2006-01-02")).
		Msg("leave request submitted")
	return id, nil
}

// =============================================================================
// DECISION - The critical transactional operation
// =============================================================================

// DecideRequest approves or rejects a pending request.
//
// Approval recomputes the span, re-fetches the balance and deducts;
// deduction and status change commit atomically, so a failed approval
// leaves both balance and status untouched. Rejection only flips the
// status. A request in a terminal status yields ErrNotPending.
func (e *Engine) DecideRequest(ctx context.Context, requestID int64, decision Decision) error {
	if decision != DecisionApprove && decision != DecisionReject {
		return fmt.Errorf("unknown decision %q", decision)
	}

	err := e.store.WithTx(ctx, func(s Store) error {
		req, err := s.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return ErrRequestNotFound
		}
		if req.Status != StatusPending {
			return &NotPendingError{RequestID: requestID, Status: req.Status}
		}

		if decision == DecisionReject {
			return s.UpdateRequestStatus(ctx, requestID, StatusRejected)
		}

		// Approval: the balance may have changed since submission due to
		// an intervening approval, so the sufficiency check runs again
		// against the current row.
		emp, err := s.GetEmployee(ctx, req.EmployeeID)
		if err != nil {
			return err
		}
		if emp == nil {
			return ErrEmployeeNotFound
		}

		days := req.Days()
		if days > emp.LeaveBalance {
			return &InsufficientBalanceError{EmployeeID: req.EmployeeID, Available: emp.LeaveBalance, Requested: days}
		}

		if err := s.AdjustBalance(ctx, req.EmployeeID, -days); err != nil {
			return err
		}
		return s.UpdateRequestStatus(ctx, requestID, StatusApproved)
	})
	if err != nil {
		return err
	}

	e.log.Info().Int64("request_id", requestID).Str("decision", string(decision)).Msg("leave request decided")
	return nil
}

// =============================================================================
// READS
// =============================================================================

// Balance returns the current day balance of an employee.
func (e *Engine) Balance(ctx context.Context, employeeID int64) (int, error) {
	emp, err := e.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return 0, err
	}
	if emp == nil {
		return 0, ErrEmployeeNotFound
	}
	return emp.LeaveBalance, nil
}

// GetEmployee returns an employee record.
func (e *Engine) GetEmployee(ctx context.Context, employeeID int64) (*Employee, error) {
	emp, err := e.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, ErrEmployeeNotFound
	}
	return emp, nil
}

// GetRequest returns a leave request record.
func (e *Engine) GetRequest(ctx context.Context, requestID int64) (*LeaveRequest, error) {
	req, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	return req, nil
}

// ListEmployees lists employees newest-id first, optionally filtered by
// a case-insensitive substring over name or email.
func (e *Engine) ListEmployees(ctx context.Context, filter string) ([]Employee, error) {
	return e.store.ListEmployees(ctx, filter)
}

// ListRequests lists leave requests newest-created first.
func (e *Engine) ListRequests(ctx context.Context, f RequestFilter) ([]LeaveRequest, error) {
	return e.store.ListRequests(ctx, f)
}

// =============================================================================
// ADMINISTRATION
// =============================================================================

// RemoveEmployee deletes an employee and, via the store's cascade, all
// of its leave requests. This is an administrative action outside the
// accounting lifecycle.
func (e *Engine) RemoveEmployee(ctx context.Context, employeeID int64) error {
	deleted, err := e.store.DeleteEmployee(ctx, employeeID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrEmployeeNotFound
	}
	e.log.Info().Int64("employee_id", employeeID).Msg("employee removed")
	return nil
}
