/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontends

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a router with all routes configured. allowedOrigins
// is the CORS allow-list for browser frontends.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Delete("/{id}", h.DeleteEmployee)
			r.Get("/{id}/balance", h.GetBalance)
			r.Get("/{id}/requests", h.GetEmployeeRequests)
		})

		r.Route("/requests", func(r chi.Router) {
			r.Get("/", h.ListRequests)
			r.Post("/", h.SubmitRequest)
			r.Get("/pending", h.ListPendingRequests)
			r.Post("/{id}/approve", h.ApproveRequest)
			r.Post("/{id}/reject", h.RejectRequest)
		})

		r.Get("/dashboard", h.Dashboard)
		r.Get("/departments", h.Departments)
		r.Get("/admin/backup", h.Backup)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
