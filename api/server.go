/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the input screens

ROUTE GROUPS:
  /api/operations       Batch status mutations
  /api/maintenance/*    Repair and inspection flows
  /api/billing/*        Monthly invoicing
  /api/admin/*          Close and cache administration

SECURITY NOTE:
  Credential checking happens per request inside the handlers (email
  or passcode resolution against the staff directory); there is no
  session middleware.

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

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Operation routes
		r.Post("/operations", h.SubmitOperation)

		// Maintenance routes
		r.Route("/maintenance", func(r chi.Router) {
			r.Post("/", h.SubmitMaintenance)
			r.Get("/repair-candidates", h.ListRepairCandidates)
			r.Get("/inspection-due", h.ListInspectionDue)
		})

		// Read-model routes
		r.Get("/status-map", h.GetStatusMap)
		r.Get("/prefixes", h.GetPrefixes)
		r.Get("/destinations", h.GetDestinations)
		r.Get("/in-house", h.GetInHouseTanks)
		r.Get("/repair-options", h.GetRepairOptions)

		// Session / staff routes
		r.Post("/login", h.Login)
		r.Post("/view-mode", h.SaveViewMode)
		r.Post("/my-stats", h.MyStats)
		r.Get("/staff", h.ListStaff)

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/close", h.CloseMonth)
			r.Post("/refresh-masters", h.RefreshMasters)
		})

		// Billing routes
		r.Route("/billing", func(r chi.Router) {
			r.Get("/months", h.ListBillingMonths)
			r.Get("/statement", h.GetBillingStatement)
			r.Get("/invoice", h.DownloadInvoice)
		})
	})

	return r
}
