/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/resources/*      Resource ledger and lifecycle
  /api/allocations/*    Allocation lifecycle
  /api/projects/*       Project allocation views
  /api/tasks/*          Task resource assignments
  /api/schedule         Weekly equipment schedule
  /api/admin/*          Expiry sweep
  /api/scenarios/*      Demo scenarios
  /metrics              Prometheus

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// DefaultAllowedOrigins are the frontend dev servers.
var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = DefaultAllowedOrigins
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/resources", func(r chi.Router) {
			r.Get("/", h.ListResources)
			r.Post("/", h.CreateResource)
			r.Get("/{id}", h.GetResource)
			r.Put("/{id}", h.UpdateResource)
			r.Delete("/{id}", h.DeleteResource)
			r.Post("/{id}/refill", h.RefillResource)
			r.Post("/{id}/reset", h.ResetResource)
		})

		r.Route("/allocations", func(r chi.Router) {
			r.Post("/", h.Allocate)
			r.Get("/{id}", h.GetAllocation)
			r.Post("/{id}/consume", h.ConsumeAllocation)
			r.Post("/{id}/use", h.MarkAllocationUsed)
			r.Post("/{id}/return", h.ReturnAllocation)
		})

		r.Get("/projects/{id}/allocations", h.ProjectAllocations)

		r.Route("/tasks/{id}/resources", func(r chi.Router) {
			r.Get("/", h.ListTaskResources)
			r.Post("/", h.AssignTaskResource)
		})
		r.Delete("/task-resources/{id}", h.RemoveTaskResource)

		r.Get("/schedule", h.GetSchedule)

		r.Route("/admin/expiry", func(r chi.Router) {
			r.Post("/run", h.RunExpiry)
			r.Get("/runs", h.ListExpiryRuns)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics.Handler())
	}

	return r
}
