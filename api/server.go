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
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/accounts/*        Accounts and balance
  /api/transactions/*    Ledger entries
  /api/distributions/*   Bucket distributions
  /api/rules/*           Recurring rules
  /api/forecast          Day-indexed projection
  /api/snapshot          Monthly bucket metrics
  /api/scenarios/*       Demo scenarios
  /api/reset             Database reset (dev only)

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

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
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Account routes
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.ListAccounts)
			r.Post("/", h.CreateAccount)
		})
		r.Get("/balance", h.GetBalance)

		// Transaction routes
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.Post("/", h.CreateTransaction)
		})

		// Distribution routes
		r.Route("/distributions", func(r chi.Router) {
			r.Get("/", h.ListDistributions)
			r.Post("/", h.CreateDistribution)
			r.Post("/default", h.CreateDefaultDistribution)
			r.Get("/active", h.GetActiveDistribution)
			r.Post("/{id}/normalize", h.NormalizeDistribution)
			r.Post("/{id}/buckets", h.AddBucket)
			r.Put("/{id}/buckets/{bucketID}", h.EditBucket)
			r.Delete("/{id}/buckets/{bucketID}", h.RemoveBucket)
		})

		// Recurring rule routes
		r.Route("/rules", func(r chi.Router) {
			r.Get("/", h.ListRules)
			r.Post("/", h.CreateRule)
			r.Post("/{id}/materialize", h.MaterializeRule)
		})

		// View routes
		r.Get("/forecast", h.GetForecast)
		r.Get("/snapshot", h.GetSnapshot)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})

		r.Post("/reset", h.Reset)
	})

	return r
}
