/*
store.go - Persistence contract for the accounting core

PURPOSE:
  Defines the interface between the engine and the database. The engine
  never touches SQL; it composes these primitives inside transactions.

KEY INTERFACES:
  Store:   Row-level reads and writes on employees and leave requests
  TxStore: Store plus WithTx, the atomic read-modify-write boundary

TRANSACTION CONTRACT:
  Every engine operation runs as ONE WithTx call. The Store passed to
  the callback is bound to that transaction: reads inside the callback
  observe earlier writes of the same callback, and nothing is visible
  outside until commit. The implementation must serialize concurrent
  WithTx calls (serializable or single-writer locking) - the overlap
  check at submission and the balance re-check at approval are unsound
  under weaker isolation.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite store (also used in-memory by tests)

SEE ALSO:
  - engine.go: The only consumer of this contract
  - store/sqlite/sqlite.go: Concrete implementation
*/
package leave

import (
	"context"
	"time"
)

// RequestFilter narrows ListRequests. Zero values mean "no filter".
type RequestFilter struct {
	EmployeeID int64  // 0 = all employees
	Status     Status // "" = all statuses
}

// Store is the row-level persistence contract.
//
// Get* methods return (nil, nil) when the row is absent; the engine
// translates absence into the not-found errors of the taxonomy.
type Store interface {
	// InsertEmployee persists a new employee and returns its surrogate id.
	// Returns ErrDuplicateEmail if the email is already registered.
	InsertEmployee(ctx context.Context, e Employee) (int64, error)

	GetEmployee(ctx context.Context, id int64) (*Employee, error)

	// ListEmployees returns employees ordered newest-id first, optionally
	// filtered by a case-insensitive substring over name or email.
	ListEmployees(ctx context.Context, filter string) ([]Employee, error)

	// DeleteEmployee removes an employee; the schema cascades the delete
	// to its leave requests. Returns whether a row was deleted.
	DeleteEmployee(ctx context.Context, id int64) (bool, error)

	// InsertRequest persists a new PENDING request and returns its id.
	InsertRequest(ctx context.Context, r LeaveRequest) (int64, error)

	GetRequest(ctx context.Context, id int64) (*LeaveRequest, error)

	// ListRequests returns requests ordered newest-created first.
	ListRequests(ctx context.Context, f RequestFilter) ([]LeaveRequest, error)

	// HasOverlap reports whether any PENDING or APPROVED request of the
	// employee intersects [start, end] under inclusive bounds.
	HasOverlap(ctx context.Context, employeeID int64, start, end time.Time) (bool, error)

	// UpdateRequestStatus sets the status of a request.
	UpdateRequestStatus(ctx context.Context, id int64, status Status) error

	// AdjustBalance applies a signed delta to an employee's leave balance.
	AdjustBalance(ctx context.Context, employeeID int64, delta int) error

	// Aggregates for the dashboard.
	CountEmployees(ctx context.Context) (int, error)
	CountRequests(ctx context.Context, status Status) (int, error)
	SumApprovedDays(ctx context.Context) (int, error)
	SumBalances(ctx context.Context) (int, error)
}

// TxStore is a Store that can run callbacks atomically.
type TxStore interface {
	Store

	// WithTx executes fn within a single transaction.
	// If fn returns an error the transaction is rolled back, otherwise
	// it is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
