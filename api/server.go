/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for dashboards

ROUTE GROUPS:
  /api/drivers/*        Roster
  /api/calculations/*   Calculation engine and workflow per record
  /api/workflow/*       Transition table and bulk operations
  /api/audit            Append-only trail, read side
  /api/seed             Demo dataset (dev only)
  /metrics              Prometheus scrape endpoint
  /healthz              Liveness probe

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

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

// NewRouter creates a new router with all routes configured. metricsHandler
// serves the prometheus registry; pass nil to skip mounting /metrics.
func NewRouter(h *Handler, metricsHandler http.Handler, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Driver routes
		r.Route("/drivers", func(r chi.Router) {
			r.Get("/", h.ListDrivers)
			r.Post("/", h.CreateDriver)
		})

		// Calculation routes
		r.Route("/calculations", func(r chi.Router) {
			r.Get("/", h.ListCalculations)
			r.Post("/run", h.RunBatch)
			r.Get("/{id}", h.GetCalculation)
			r.Post("/{id}/transition", h.TransitionCalculation)
			r.Post("/{id}/rollback", h.RollbackCalculation)
			r.Get("/{id}/projections", h.GetProjections)
		})

		// Workflow routes
		r.Route("/workflow", func(r chi.Router) {
			r.Get("/transitions", h.ListTransitions)
			r.Post("/bulk-transition", h.BulkTransition)
		})

		// Audit trail
		r.Get("/audit", h.ListAudit)

		// Demo dataset (dev only)
		r.Post("/seed", h.Seed)
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
