package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ignite/bulk-dispatch/internal/config"
	"github.com/ignite/bulk-dispatch/internal/dispatch"
	"github.com/ignite/bulk-dispatch/internal/message"
)

// Server represents the API server.
type Server struct {
	config   config.ServerConfig
	handler  http.Handler
	handlers *Handlers
	server   *http.Server
	router   *chi.Mux
}

// NewServer creates a new API server. limiter may be nil when no shared
// throughput ceiling is configured.
func NewServer(cfg *config.Config, sender dispatch.Sender, limiter dispatch.Limiter) *Server {
	handlers := NewHandlers(cfg, sender, message.NewRenderer(), limiter)
	router := SetupRoutes(handlers, cfg.Auth.Token)

	return &Server{
		config:   cfg.Server,
		handler:  router,
		handlers: handlers,
		router:   router,
	}
}

// ListenAndServe starts the HTTP server. Write timeout is generous because
// a dispatch run holds the request open across its pacing delays.
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      30 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.handler
}
