package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kha159-create/alsani-cockpit/internal/auth"
	"github.com/kha159-create/alsani-cockpit/internal/config"
)

// Server represents the API server
type Server struct {
	config  config.ServerConfig
	handler http.Handler
	server  *http.Server
}

// NewServer creates the API server. authManager may be nil.
func NewServer(cfg config.ServerConfig, h *Handlers, health *HealthChecker, authManager *auth.AuthManager) *Server {
	return &Server{
		config:  cfg,
		handler: SetupRoutes(h, health, authManager, cfg.AllowedOrigins),
	}
}

// ListenAndServe starts the HTTP server on the configured host and port.
func (s *Server) ListenAndServe() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.config.GetHost(), s.config.Port),
		Handler: s.handler,
		// uploads of large workbooks and model calls both take a while
		ReadTimeout:       5 * time.Minute,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.handler
}
