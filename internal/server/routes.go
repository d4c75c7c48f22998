package server

import (
	"net/http"
	"time"

	"tirehub/internal/domain"

	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all application routes
func (s *Server) setupRoutes() {
	r := s.router

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, domain.ErrNotFound)
	})

	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)

		r.Get("/categories", s.handleCategories)
		r.Get("/service-types", s.handleServiceTypes)
		r.Get("/vehicles", s.handleVehicles)

		r.Route("/parts", func(r chi.Router) {
			r.Get("/", s.handleListParts)
			r.Get("/featured", s.handleFeaturedParts)
			r.Get("/category/{slug}", s.handlePartsByCategory)
			r.Post("/search-by-vehicle", s.handleSearchByVehicle)
			r.Get("/{id}", s.handleGetPart)
			r.Get("/{id}/vehicles", s.handleCompatibleVehicles)

			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware)
				r.Use(s.roleMiddleware(domain.RoleAdmin))
				r.Get("/low-stock", s.handleLowStock)
			})
		})

		// Service request workflow
		r.Route("/service-requests", func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/", s.handleCreateRequest)
			r.Get("/", s.handleListRequests)
			r.Get("/number/{number}", s.handleGetRequestByNumber)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetRequest)
				r.Get("/qr", s.handleRequestQR)
				r.Post("/rate", s.handleRateRequest)
				r.Post("/pay", s.handlePayRequest)
				r.Get("/quotations", s.handleListQuotations)

				r.Group(func(r chi.Router) {
					r.Use(s.roleMiddleware(domain.RoleMechanic))

					r.Post("/accept", s.handleAcceptRequest)
					r.Post("/start", s.handleStartRequest)
					r.Post("/complete", s.handleCompleteRequest)

					r.Post("/parts", s.handleAddRequestPart)
					r.Patch("/parts/{itemId}", s.handleUpdateRequestPart)
					r.Delete("/parts/{itemId}", s.handleRemoveRequestPart)
					r.Post("/parts/{itemId}/confirm", s.handleConfirmRequestPart)
					r.Post("/parts/{itemId}/install", s.handleInstallRequestPart)
					r.Post("/recalculate", s.handleRecalculateRequest)

					r.Post("/quotations", s.handleCreateQuotation)
				})

				r.With(s.roleMiddleware(domain.RoleAdmin)).Post("/assign", s.handleAssignRequest)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Use(s.roleMiddleware(domain.RoleMechanic))
			r.Post("/quotations/{id}/send", s.handleSendQuotation)
		})

		// Admin only
		r.Route("/admin", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Use(s.roleMiddleware(domain.RoleAdmin))

			if s.monitor != nil {
				r.Post("/low-stock/sweep", s.handleLowStockSweep)
			}
		})
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
