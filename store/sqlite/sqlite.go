/*
Package sqlite provides the SQLite-backed implementation of the leave
store contract.

PURPOSE:
  Implements leave.Store and leave.TxStore using database/sql with the
  mattn/go-sqlite3 driver. The same SQL applies nearly unchanged to
  PostgreSQL; only placeholder and date-function dialects differ.

SCHEMA:
  employees:       registered employees with their day balance
  leave_requests:  requests with a forward-only status column
  A UNIQUE constraint on employees.email, a foreign key with ON DELETE
  CASCADE from leave_requests to employees, and indexes on
  leave_requests(employee_id) and leave_requests(status).

DATES:
  Calendar dates are stored as '2006-01-02' text. ISO dates compare
  lexicographically, so the overlap predicate works directly on the
  column values.

CONCURRENCY:
  The pool is capped at a single connection and a mutex serializes
  callers, giving the single-writer isolation the engine's
  check-then-write sequences require. The cap also makes ':memory:'
  databases safe to share between fixture and test.

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - leave/store.go: Contract definitions
  - leave/engine.go: The consumer of this store
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/leave-engine/leave"
)

const dateLayout = "2006-01-02"

// Store implements leave.TxStore using SQLite.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// querier is satisfied by both *sql.DB and *sql.Tx, so every statement
// is written once and runs inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: transactions from concurrent logical operations
	// must never interleave, and ':memory:' is per-connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, path: dbPath}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Path returns the database file path as given to New.
func (s *Store) Path() string { return s.path }

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		department TEXT NOT NULL,
		joining_date TEXT NOT NULL,
		leave_balance INTEGER NOT NULL DEFAULT 24 CHECK (leave_balance >= 0),
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id INTEGER NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		reason TEXT,
		status TEXT NOT NULL DEFAULT 'PENDING',
		created_at TEXT NOT NULL,
		FOREIGN KEY(employee_id) REFERENCES employees(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_leave_requests_employee
		ON leave_requests(employee_id);
	CREATE INDEX IF NOT EXISTS idx_leave_requests_status
		ON leave_requests(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// InsertEmployee persists a new employee and returns its id.
func (s *Store) InsertEmployee(ctx context.Context, e leave.Employee) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertEmployee(ctx, s.db, e)
}

func insertEmployee(ctx context.Context, q querier, e leave.Employee) (int64, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO employees (name, email, department, joining_date, leave_balance, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.Name, e.Email, e.Department,
		e.JoiningDate.Format(dateLayout),
		e.LeaveBalance,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return 0, leave.ErrDuplicateEmail
		}
		return 0, fmt.Errorf("failed to insert employee: %w", err)
	}
	return res.LastInsertId()
}

// GetEmployee returns the employee with the given id, or nil if absent.
func (s *Store) GetEmployee(ctx context.Context, id int64) (*leave.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return getEmployee(ctx, s.db, id)
}

func getEmployee(ctx context.Context, q querier, id int64) (*leave.Employee, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, email, department, joining_date, leave_balance, created_at
		FROM employees WHERE id = ?`, id)

	e, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListEmployees returns employees newest-id first, optionally filtered
// by a case-insensitive substring over name or email.
func (s *Store) ListEmployees(ctx context.Context, filter string) ([]leave.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return listEmployees(ctx, s.db, filter)
}

func listEmployees(ctx context.Context, q querier, filter string) ([]leave.Employee, error) {
	query := `
		SELECT id, name, email, department, joining_date, leave_balance, created_at
		FROM employees`
	var args []any
	if filter != "" {
		query += ` WHERE LOWER(name) LIKE ? OR LOWER(email) LIKE ?`
		pattern := "%" + strings.ToLower(filter) + "%"
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []leave.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, *e)
	}
	return employees, rows.Err()
}

// DeleteEmployee removes an employee; the foreign key cascades to its
// leave requests. Reports whether a row was deleted.
func (s *Store) DeleteEmployee(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteEmployee(ctx, s.db, id)
}

func deleteEmployee(ctx context.Context, q querier, id int64) (bool, error) {
	res, err := q.ExecContext(ctx, "DELETE FROM employees WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete employee: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

// InsertRequest persists a new leave request and returns its id.
func (s *Store) InsertRequest(ctx context.Context, r leave.LeaveRequest) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertRequest(ctx, s.db, r)
}

func insertRequest(ctx context.Context, q querier, r leave.LeaveRequest) (int64, error) {
	status := r.Status
	if status == "" {
		status = leave.StatusPending
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO leave_requests (employee_id, start_date, end_date, reason, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.EmployeeID,
		r.StartDate.Format(dateLayout),
		r.EndDate.Format(dateLayout),
		nullString(r.Reason),
		status,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert leave request: %w", err)
	}
	return res.LastInsertId()
}

// GetRequest returns the leave request with the given id, or nil if absent.
func (s *Store) GetRequest(ctx context.Context, id int64) (*leave.LeaveRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return getRequest(ctx, s.db, id)
}

func getRequest(ctx context.Context, q querier, id int64) (*leave.LeaveRequest, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, employee_id, start_date, end_date, reason, status, created_at
		FROM leave_requests WHERE id = ?`, id)

	r, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListRequests returns leave requests newest-created first.
func (s *Store) ListRequests(ctx context.Context, f leave.RequestFilter) ([]leave.LeaveRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return listRequests(ctx, s.db, f)
}

func listRequests(ctx context.Context, q querier, f leave.RequestFilter) ([]leave.LeaveRequest, error) {
	query := `
		SELECT id, employee_id, start_date, end_date, reason, status, created_at
		FROM leave_requests`
	var clauses []string
	var args []any
	if f.EmployeeID != 0 {
		clauses = append(clauses, "employee_id = ?")
		args = append(args, f.EmployeeID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, f.Status)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	// id breaks ties between requests created within the same second.
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leave requests: %w", err)
	}
	defer rows.Close()

	var requests []leave.LeaveRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *r)
	}
	return requests, rows.Err()
}

// HasOverlap reports whether any PENDING or APPROVED request of the
// employee intersects [start, end] (inclusive bounds):
// existing.start <= end AND existing.end >= start.
func (s *Store) HasOverlap(ctx context.Context, employeeID int64, start, end time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return hasOverlap(ctx, s.db, employeeID, start, end)
}

func hasOverlap(ctx context.Context, q querier, employeeID int64, start, end time.Time) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `
		SELECT 1 FROM leave_requests
		WHERE employee_id = ?
		  AND status IN ('PENDING', 'APPROVED')
		  AND start_date <= ?
		  AND end_date >= ?
		LIMIT 1`,
		employeeID, end.Format(dateLayout), start.Format(dateLayout),
	).Scan(&one)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UpdateRequestStatus sets the status of a request.
func (s *Store) UpdateRequestStatus(ctx context.Context, id int64, status leave.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateRequestStatus(ctx, s.db, id, status)
}

func updateRequestStatus(ctx context.Context, q querier, id int64, status leave.Status) error {
	res, err := q.ExecContext(ctx,
		"UPDATE leave_requests SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("failed to update request status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return leave.ErrRequestNotFound
	}
	return nil
}

// AdjustBalance applies a signed delta to an employee's balance.
// The schema's CHECK constraint is a backstop; the engine validates
// sufficiency before calling this.
func (s *Store) AdjustBalance(ctx context.Context, employeeID int64, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return adjustBalance(ctx, s.db, employeeID, delta)
}

func adjustBalance(ctx context.Context, q querier, employeeID int64, delta int) error {
	res, err := q.ExecContext(ctx,
		"UPDATE employees SET leave_balance = leave_balance + ? WHERE id = ?", delta, employeeID)
	if err != nil {
		return fmt.Errorf("failed to adjust balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return leave.ErrEmployeeNotFound
	}
	return nil
}

// =============================================================================
// AGGREGATES
// =============================================================================

const (
	countEmployeesSQL = "SELECT COUNT(*) FROM employees"
	sumBalancesSQL    = "SELECT COALESCE(SUM(leave_balance), 0) FROM employees"
	sumApprovedSQL    = `
		SELECT CAST(COALESCE(SUM(julianday(end_date) - julianday(start_date) + 1), 0) AS INTEGER)
		FROM leave_requests WHERE status = 'APPROVED'`
)

// CountEmployees returns the number of registered employees.
func (s *Store) CountEmployees(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return scanCount(s.db.QueryRowContext(ctx, countEmployeesSQL))
}

// CountRequests returns the number of requests with the given status,
// or of all requests when status is empty.
func (s *Store) CountRequests(ctx context.Context, status leave.Status) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return countRequests(ctx, s.db, status)
}

func countRequests(ctx context.Context, q querier, status leave.Status) (int, error) {
	if status == "" {
		return scanCount(q.QueryRowContext(ctx, "SELECT COUNT(*) FROM leave_requests"))
	}
	return scanCount(q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM leave_requests WHERE status = ?", status))
}

// SumApprovedDays returns the all-time total of approved leave days,
// counting both endpoints of each range.
func (s *Store) SumApprovedDays(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return scanCount(s.db.QueryRowContext(ctx, sumApprovedSQL))
}

// SumBalances returns the total remaining balance across all employees.
func (s *Store) SumBalances(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return scanCount(s.db.QueryRowContext(ctx, sumBalancesSQL))
}

// =============================================================================
// TRANSACTIONS (leave.TxStore)
// =============================================================================

// WithTx executes fn within a database transaction. The mutex is held
// for the whole transaction, so concurrent logical operations are
// serialized and never observe each other's partial writes.
func (s *Store) WithTx(ctx context.Context, fn func(leave.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore is a leave.Store bound to an open transaction. It bypasses
// the parent mutex, which WithTx already holds.
type txStore struct {
	tx *sql.Tx
}

func (t *txStore) InsertEmployee(ctx context.Context, e leave.Employee) (int64, error) {
	return insertEmployee(ctx, t.tx, e)
}

func (t *txStore) GetEmployee(ctx context.Context, id int64) (*leave.Employee, error) {
	return getEmployee(ctx, t.tx, id)
}

func (t *txStore) ListEmployees(ctx context.Context, filter string) ([]leave.Employee, error) {
	return listEmployees(ctx, t.tx, filter)
}

func (t *txStore) DeleteEmployee(ctx context.Context, id int64) (bool, error) {
	return deleteEmployee(ctx, t.tx, id)
}

func (t *txStore) InsertRequest(ctx context.Context, r leave.LeaveRequest) (int64, error) {
	return insertRequest(ctx, t.tx, r)
}

func (t *txStore) GetRequest(ctx context.Context, id int64) (*leave.LeaveRequest, error) {
	return getRequest(ctx, t.tx, id)
}

func (t *txStore) ListRequests(ctx context.Context, f leave.RequestFilter) ([]leave.LeaveRequest, error) {
	return listRequests(ctx, t.tx, f)
}

func (t *txStore) HasOverlap(ctx context.Context, employeeID int64, start, end time.Time) (bool, error) {
	return hasOverlap(ctx, t.tx, employeeID, start, end)
}

func (t *txStore) UpdateRequestStatus(ctx context.Context, id int64, status leave.Status) error {
	return updateRequestStatus(ctx, t.tx, id, status)
}

func (t *txStore) AdjustBalance(ctx context.Context, employeeID int64, delta int) error {
	return adjustBalance(ctx, t.tx, employeeID, delta)
}

func (t *txStore) CountEmployees(ctx context.Context) (int, error) {
	return scanCount(t.tx.QueryRowContext(ctx, countEmployeesSQL))
}

func (t *txStore) CountRequests(ctx context.Context, status leave.Status) (int, error) {
	return countRequests(ctx, t.tx, status)
}

func (t *txStore) SumApprovedDays(ctx context.Context) (int, error) {
	return scanCount(t.tx.QueryRowContext(ctx, sumApprovedSQL))
}

func (t *txStore) SumBalances(ctx context.Context) (int, error) {
	return scanCount(t.tx.QueryRowContext(ctx, sumBalancesSQL))
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data. For tests and local development only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"leave_requests", "employees"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row scanner) (*leave.Employee, error) {
	var (
		e         leave.Employee
		joining   string
		createdAt string
	)
	if err := row.Scan(&e.ID, &e.Name, &e.Email, &e.Department, &joining, &e.LeaveBalance, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan employee: %w", err)
	}

	var err error
	if e.JoiningDate, err = time.ParseInLocation(dateLayout, joining, time.UTC); err != nil {
		return nil, fmt.Errorf("bad joining_date %q: %w", joining, err)
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &e, nil
}

func scanRequest(row scanner) (*leave.LeaveRequest, error) {
	var (
		r         leave.LeaveRequest
		start     string
		end       string
		reason    sql.NullString
		createdAt string
	)
	if err := row.Scan(&r.ID, &r.EmployeeID, &start, &end, &reason, &r.Status, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan leave request: %w", err)
	}

	var err error
	if r.StartDate, err = time.ParseInLocation(dateLayout, start, time.UTC); err != nil {
		return nil, fmt.Errorf("bad start_date %q: %w", start, err)
	}
	if r.EndDate, err = time.ParseInLocation(dateLayout, end, time.UTC); err != nil {
		return nil, fmt.Errorf("bad end_date %q: %w", end, err)
	}
	r.Reason = reason.String
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &r, nil
}

func scanCount(row *sql.Row) (int, error) {
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
