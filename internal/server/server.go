// Package server provides the HTTP JSON API
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tirehub/internal/catalog"
	"tirehub/internal/config"
	"tirehub/internal/logger"
	"tirehub/internal/repository"
	"tirehub/internal/servicerequest"
	"tirehub/internal/stockmonitor"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Services are the application components exposed over HTTP
type Services struct {
	Catalog  *catalog.Service
	Requests *servicerequest.Service
	// Monitor is optional; without it the manual sweep endpoint is not mounted.
	Monitor *stockmonitor.Monitor
}

// Server represents the HTTP server
type Server struct {
	config   *config.Config
	repos    *repository.Repositories
	catalog  *catalog.Service
	requests *servicerequest.Service
	monitor  *stockmonitor.Monitor
	router   *chi.Mux
	http     *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, repos *repository.Repositories, svc Services) *Server {
	s := &Server{
		config:   cfg,
		repos:    repos,
		catalog:  svc.Catalog,
		requests: svc.Requests,
		monitor:  svc.Monitor,
		router:   chi.NewRouter(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.http = &http.Server{
		Addr:         cfg.Address(),
		Handler:      s.router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info(ctx, "server starting",
			logger.String("address", s.config.Address()),
			logger.Bool("debug", s.config.Debug))
		serverErrors <- s.http.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		logger.Info(ctx, "shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.http.Shutdown(shutdownCtx); err != nil {
			logger.Error(ctx, "graceful shutdown failed", logger.ErrorF(err))
			if err := s.http.Close(); err != nil {
				return fmt.Errorf("failed to close server: %w", err)
			}
		}

		logger.Info(ctx, "server shutdown complete")
	}

	return nil
}

// setupMiddleware configures global middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.RequestID)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.securityHeaders)
	s.router.Use(middleware.Timeout(30 * time.Second))
}

// securityHeaders adds security-related headers to all responses
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// GetRouter returns the chi router (useful for testing)
func (s *Server) GetRouter() *chi.Mux {
	return s.router
}
