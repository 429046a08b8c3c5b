/*
handlers.go - HTTP handlers for the leave management API

PURPOSE:
  Exposes the accounting engine and query layer over REST. Handlers
  parse input, delegate to the engine, and translate the error taxonomy
  into HTTP statuses. No business rule lives here.

ENDPOINTS:
  Employees:
    GET    /api/employees               List (optional ?q= search)
    POST   /api/employees               Register employee
    GET    /api/employees/{id}          Employee details
    GET    /api/employees/{id}/balance  Current day balance
    GET    /api/employees/{id}/requests Leave history
    DELETE /api/employees/{id}          Administrative delete (cascades)

  Requests:
    POST   /api/requests                Submit leave request
    GET    /api/requests                List (?employee_id=, ?status=)
    GET    /api/requests/pending        Pending queue for approvers
    POST   /api/requests/{id}/approve   Approve (deducts balance)
    POST   /api/requests/{id}/reject    Reject (no balance effect)

  Misc:
    GET    /api/dashboard               Headline metrics
    GET    /api/departments             Department choices
    GET    /api/admin/backup            SQLite file, verbatim

ERROR MAPPING:
  400 malformed input / invalid range / before joining
  404 unknown employee or request
  409 duplicate email, overlap, insufficient balance, already decided
  500 everything else (logged)

SEE ALSO:
  - dto.go: Wire types
  - server.go: Router and middleware
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

// Handler holds the dependencies of all HTTP handlers.
type Handler struct {
	engine         *leave.Engine
	db             *sqlite.Store
	log            zerolog.Logger
	defaultBalance int
}

// NewHandler creates a handler. defaultBalance is granted to employees
// registered without an explicit initial balance.
func NewHandler(engine *leave.Engine, db *sqlite.Store, log zerolog.Logger, defaultBalance int) *Handler {
	if defaultBalance < 0 {
		defaultBalance = leave.DefaultBalance
	}
	return &Handler{engine: engine, db: db, log: log, defaultBalance: defaultBalance}
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// CreateEmployee handles POST /api/employees.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Name == "" || req.Email == "" || req.Department == "" {
		h.writeBadRequest(w, "name, email and department are required")
		return
	}

	joining, err := parseDate("joining_date", req.JoiningDate)
	if err != nil {
		h.writeBadRequest(w, err.Error())
		return
	}

	balance := h.defaultBalance
	if req.InitialBalance != nil {
		if *req.InitialBalance < 0 {
			h.writeBadRequest(w, "initial_balance must not be negative")
			return
		}
		balance = *req.InitialBalance
	}

	id, err := h.engine.RegisterEmployee(r.Context(), req.Name, req.Email, req.Department, joining, balance)
	if err != nil {
		h.writeError(w, err)
		return
	}

	emp, err := h.engine.GetEmployee(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// ListEmployees handles GET /api/employees. The optional q parameter is
// a case-insensitive substring match over name and email.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.engine.ListEmployees(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	dtos := make([]EmployeeDTO, 0, len(employees))
	for i := range employees {
		dtos = append(dtos, toEmployeeDTO(&employees[i]))
	}
	h.writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee handles GET /api/employees/{id}.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	emp, err := h.engine.GetEmployee(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// GetBalance handles GET /api/employees/{id}/balance.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	balance, err := h.engine.Balance(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, BalanceDTO{EmployeeID: id, Balance: balance})
}

// GetEmployeeRequests handles GET /api/employees/{id}/requests.
func (h *Handler) GetEmployeeRequests(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	// 404 for unknown employees rather than an empty history.
	if _, err := h.engine.GetEmployee(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.listRequests(w, r, leave.RequestFilter{EmployeeID: id})
}

// DeleteEmployee handles DELETE /api/employees/{id}. The store cascades
// the delete to the employee's leave requests.
func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := h.engine.RemoveEmployee(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

// SubmitRequest handles POST /api/requests.
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var req SubmitLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.EmployeeID == 0 {
		h.writeBadRequest(w, "employee_id is required")
		return
	}

	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		h.writeBadRequest(w, err.Error())
		return
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		h.writeBadRequest(w, err.Error())
		return
	}

	id, err := h.engine.SubmitRequest(r.Context(), req.EmployeeID, start, end, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}

	created, err := h.engine.GetRequest(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toRequestDTO(created))
}

// ListRequests handles GET /api/requests with optional employee_id and
// status filters.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	var f leave.RequestFilter

	if v := r.URL.Query().Get("employee_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.writeBadRequest(w, "employee_id must be an integer")
			return
		}
		f.EmployeeID = id
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status, ok := leave.ParseStatus(v)
		if !ok {
			h.writeBadRequest(w, fmt.Sprintf("unknown status %q", v))
			return
		}
		f.Status = status
	}

	h.listRequests(w, r, f)
}

// ListPendingRequests handles GET /api/requests/pending.
func (h *Handler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	h.listRequests(w, r, leave.RequestFilter{Status: leave.StatusPending})
}

func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request, f leave.RequestFilter) {
	requests, err := h.engine.ListRequests(r.Context(), f)
	if err != nil {
		h.writeError(w, err)
		return
	}

	dtos := make([]LeaveRequestDTO, 0, len(requests))
	for i := range requests {
		dtos = append(dtos, toRequestDTO(&requests[i]))
	}
	h.writeJSON(w, http.StatusOK, dtos)
}

// ApproveRequest handles POST /api/requests/{id}/approve.
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.decideRequest(w, r, leave.DecisionApprove)
}

// RejectRequest handles POST /api/requests/{id}/reject.
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.decideRequest(w, r, leave.DecisionReject)
}

func (h *Handler) decideRequest(w http.ResponseWriter, r *http.Request, decision leave.Decision) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := h.engine.DecideRequest(r.Context(), id, decision); err != nil {
		h.writeError(w, err)
		return
	}

	req, err := h.engine.GetRequest(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// =============================================================================
// DASHBOARD AND ADMIN
// =============================================================================

// Dashboard handles GET /api/dashboard.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Dashboard(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, DashboardDTO{
		Employees:        stats.Employees,
		PendingRequests:  stats.PendingRequests,
		ApprovedRequests: stats.ApprovedRequests,
		ApprovedDays:     stats.ApprovedDays,
		AverageBalance:   stats.AverageBalance.String(),
		UtilizationPct:   stats.Utilization.String(),
	})
}

// Departments handles GET /api/departments.
func (h *Handler) Departments(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, leave.Departments())
}

// Backup handles GET /api/admin/backup and streams the SQLite database
// file verbatim.
func (h *Handler) Backup(w http.ResponseWriter, r *http.Request) {
	path := h.db.Path()
	if path == ":memory:" {
		h.writeBadRequest(w, "in-memory database cannot be exported")
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="leave_mgmt.sqlite3"`)
	http.ServeFile(w, r, path)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeBadRequest(w, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("failed to encode response")
	}
}

func (h *Handler) writeBadRequest(w http.ResponseWriter, msg string) {
	h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// writeError maps the error taxonomy onto HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case leave.IsNotFound(err):
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case leave.IsInvalid(err):
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case leave.IsConflict(err):
		h.writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		h.log.Error().Err(err).Msg("internal error")
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
