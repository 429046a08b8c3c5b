package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestRouter(t *testing.T) http.Handler {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	engine := leave.NewEngine(store, zerolog.Nop())
	handler := api.NewHandler(engine, store, zerolog.Nop(), 24)
	return api.NewRouter(handler, []string{"http://localhost:5173"})
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func createEmployee(t *testing.T, router http.Handler, email string, balance int) int64 {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/employees", map[string]any{
		"name":            "Jane Doe",
		"email":           email,
		"department":      "Engineering",
		"joining_date":    "2024-01-01",
		"initial_balance": balance,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[api.EmployeeDTO](t, rec).ID
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestCreateEmployee(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/employees", map[string]any{
		"name":         "Jane Doe",
		"email":        "jane@company.com",
		"department":   "Engineering",
		"joining_date": "2024-01-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	emp := decode[api.EmployeeDTO](t, rec)
	assert.NotZero(t, emp.ID)
	assert.Equal(t, "2024-01-01", emp.JoiningDate)
	assert.Equal(t, 24, emp.LeaveBalance, "default balance applies when none given")

	// Duplicate email maps to 409.
	rec = do(t, router, http.MethodPost, "/api/employees", map[string]any{
		"name":         "Other Jane",
		"email":        "jane@company.com",
		"department":   "Sales",
		"joining_date": "2024-01-01",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateEmployee_BadInput(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/employees", map[string]any{
		"name": "Jane Doe",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing fields")

	rec = do(t, router, http.MethodPost, "/api/employees", map[string]any{
		"name":         "Jane Doe",
		"email":        "jane@company.com",
		"department":   "Engineering",
		"joining_date": "01/02/2024",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "malformed date")
}

func TestListEmployees_Search(t *testing.T) {
	router := newTestRouter(t)
	createEmployee(t, router, "alice@company.com", 24)
	createEmployee(t, router, "bob@company.com", 24)

	rec := do(t, router, http.MethodGet, "/api/employees?q=ALICE", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]api.EmployeeDTO](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "alice@company.com", list[0].Email)
}

func TestGetBalance_UnknownEmployee_404(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/api/employees/999/balance", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/employees/abc/balance", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// REQUEST LIFECYCLE OVER HTTP
// =============================================================================

func TestSubmitApproveFlow(t *testing.T) {
	// Submit a 5-day request, approve it, and watch the balance drop
	// from 24 to 19 through the public endpoints.

	router := newTestRouter(t)
	empID := createEmployee(t, router, "jane@company.com", 24)

	rec := do(t, router, http.MethodPost, "/api/requests", map[string]any{
		"employee_id": empID,
		"start_date":  "2024-02-01",
		"end_date":    "2024-02-05",
		"reason":      "vacation",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	req := decode[api.LeaveRequestDTO](t, rec)
	assert.Equal(t, "PENDING", req.Status)
	assert.Equal(t, 5, req.Days)

	// Overlapping submission conflicts.
	rec = do(t, router, http.MethodPost, "/api/requests", map[string]any{
		"employee_id": empID,
		"start_date":  "2024-02-03",
		"end_date":    "2024-02-04",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, router, http.MethodPost, fmt.Sprintf("/api/requests/%d/approve", req.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "APPROVED", decode[api.LeaveRequestDTO](t, rec).Status)

	rec = do(t, router, http.MethodGet, fmt.Sprintf("/api/employees/%d/balance", empID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 19, decode[api.BalanceDTO](t, rec).Balance)

	// Second decision on the same request conflicts.
	rec = do(t, router, http.MethodPost, fmt.Sprintf("/api/requests/%d/reject", req.ID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSubmit_InvalidRange_400(t *testing.T) {
	router := newTestRouter(t)
	empID := createEmployee(t, router, "jane@company.com", 24)

	rec := do(t, router, http.MethodPost, "/api/requests", map[string]any{
		"employee_id": empID,
		"start_date":  "2024-02-05",
		"end_date":    "2024-02-01",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListRequests_Filters(t *testing.T) {
	router := newTestRouter(t)
	empID := createEmployee(t, router, "jane@company.com", 24)

	rec := do(t, router, http.MethodPost, "/api/requests", map[string]any{
		"employee_id": empID,
		"start_date":  "2024-02-01",
		"end_date":    "2024-02-02",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/requests?status=pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]api.LeaveRequestDTO](t, rec), 1)

	rec = do(t, router, http.MethodGet, "/api/requests/pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]api.LeaveRequestDTO](t, rec), 1)

	rec = do(t, router, http.MethodGet, "/api/requests?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, fmt.Sprintf("/api/employees/%d/requests", empID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]api.LeaveRequestDTO](t, rec), 1)

	rec = do(t, router, http.MethodGet, "/api/employees/999/requests", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// DASHBOARD AND MISC
// =============================================================================

func TestDashboard(t *testing.T) {
	router := newTestRouter(t)
	empID := createEmployee(t, router, "jane@company.com", 10)

	rec := do(t, router, http.MethodPost, "/api/requests", map[string]any{
		"employee_id": empID,
		"start_date":  "2024-02-01",
		"end_date":    "2024-02-04",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	reqID := decode[api.LeaveRequestDTO](t, rec).ID

	rec = do(t, router, http.MethodPost, fmt.Sprintf("/api/requests/%d/approve", reqID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	stats := decode[api.DashboardDTO](t, rec)
	assert.Equal(t, 1, stats.Employees)
	assert.Equal(t, 0, stats.PendingRequests)
	assert.Equal(t, 1, stats.ApprovedRequests)
	assert.Equal(t, 4, stats.ApprovedDays)
	assert.Equal(t, "6", stats.AverageBalance)
	assert.Equal(t, "40", stats.UtilizationPct)
}

func TestDepartments(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/api/departments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode[[]string](t, rec), "Engineering")
}

func TestBackup_InMemory_Rejected(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/api/admin/backup", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteEmployee(t *testing.T) {
	router := newTestRouter(t)
	empID := createEmployee(t, router, "jane@company.com", 24)

	rec := do(t, router, http.MethodDelete, fmt.Sprintf("/api/employees/%d", empID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodDelete, fmt.Sprintf("/api/employees/%d", empID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
