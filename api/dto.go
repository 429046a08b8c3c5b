/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for the API. They decouple the domain records from
  the wire contract; dates travel as '2006-01-02' strings.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"fmt"
	"time"

	"github.com/warp/leave-engine/leave"
)

const dateLayout = "2006-01-02"

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Department   string `json:"department"`
	JoiningDate  string `json:"joining_date"`
	LeaveBalance int    `json:"leave_balance"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// CreateEmployeeRequest is the request to register an employee.
// InitialBalance is optional; absent means the configured default.
type CreateEmployeeRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Department     string `json:"department"`
	JoiningDate    string `json:"joining_date"`
	InitialBalance *int   `json:"initial_balance,omitempty"`
}

// LeaveRequestDTO represents a leave request in API responses.
type LeaveRequestDTO struct {
	ID         int64  `json:"id"`
	EmployeeID int64  `json:"employee_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Days       int    `json:"days"`
	Reason     string `json:"reason,omitempty"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// SubmitLeaveRequest is the request body to submit a leave request.
type SubmitLeaveRequest struct {
	EmployeeID int64  `json:"employee_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Reason     string `json:"reason,omitempty"`
}

// BalanceDTO is the balance of one employee.
type BalanceDTO struct {
	EmployeeID int64 `json:"employee_id"`
	Balance    int   `json:"balance"`
}

// DashboardDTO carries the dashboard metrics.
type DashboardDTO struct {
	Employees        int    `json:"employees"`
	PendingRequests  int    `json:"pending_requests"`
	ApprovedRequests int    `json:"approved_requests"`
	ApprovedDays     int    `json:"approved_days"`
	AverageBalance   string `json:"average_balance"`
	UtilizationPct   string `json:"utilization_pct"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toEmployeeDTO(e *leave.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:           e.ID,
		Name:         e.Name,
		Email:        e.Email,
		Department:   e.Department,
		JoiningDate:  e.JoiningDate.Format(dateLayout),
		LeaveBalance: e.LeaveBalance,
		CreatedAt:    formatTimestamp(e.CreatedAt),
	}
}

func toRequestDTO(r *leave.LeaveRequest) LeaveRequestDTO {
	return LeaveRequestDTO{
		ID:         r.ID,
		EmployeeID: r.EmployeeID,
		StartDate:  r.StartDate.Format(dateLayout),
		EndDate:    r.EndDate.Format(dateLayout),
		Days:       r.Days(),
		Reason:     r.Reason,
		Status:     string(r.Status),
		CreatedAt:  formatTimestamp(r.CreatedAt),
	}
}

func parseDate(field, value string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a %s date, got %q", field, dateLayout, value)
	}
	return t, nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
