package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/custodia-labs/sercha-catalog/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

// Ping calls f(ctx)
func (f PingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	handler    http.Handler
	version    string
	logger     *slog.Logger

	authService   driving.AuthService
	indexService  driving.IndexService
	exportService driving.ExportService

	// Dependencies checked by /ready, by name
	readiness map[string]Pinger
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	Version        string
	AllowedOrigins []string
	Logger         *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		Version:        "dev",
		AllowedOrigins: []string{"*"},
	}
}

// Services bundles the driving ports the API exposes
type Services struct {
	Auth   driving.AuthService
	Index  driving.IndexService
	Export driving.ExportService
}

// NewServer creates a new HTTP server.
// readiness may be nil; each entry is pinged by GET /ready.
func NewServer(cfg Config, services Services, readiness map[string]Pinger) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:        http.NewServeMux(),
		version:       cfg.Version,
		logger:        logger,
		authService:   services.Auth,
		indexService:  services.Index,
		exportService: services.Export,
		readiness:     readiness,
	}

	s.setupRoutes()

	s.handler = NewRecoveryMiddleware(logger).Handler(
		NewLoggingMiddleware(logger).Handler(
			NewCORSMiddleware(cfg.AllowedOrigins).Handler(s.router)))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // full-index reads can be slow
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authService)

	authed := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.Authenticate(h)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.Authenticate(authMiddleware.RequireAdmin(h))
	}

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Auth (public)
	s.router.HandleFunc("POST /api/v1/auth/token", s.handleIssueToken)

	// Search (any authenticated client)
	s.router.Handle("POST /api/v1/indexes/{index}/search", authed(s.handleSearch))
	s.router.Handle("POST /api/v1/search/multi", authed(s.handleMultiSearch))
	s.router.Handle("POST /api/v1/indexes/{index}/facets/{facet}/query", authed(s.handleFacetValues))
	s.router.Handle("POST /api/v1/recommendations", authed(s.handleRecommendations))

	// Records (admin-only)
	s.router.Handle("GET /api/v1/indexes/{index}/records", admin(s.handleFetchAllRecords))
	s.router.Handle("POST /api/v1/indexes/{index}/records", admin(s.handleCreateRecord))
	s.router.Handle("PUT /api/v1/indexes/{index}/records", admin(s.handleCreateOrUpdateRecords))
	s.router.Handle("PATCH /api/v1/indexes/{index}/records", admin(s.handlePartialUpdateRecords))
	s.router.Handle("DELETE /api/v1/indexes/{index}/records", admin(s.handleDeleteRecords))

	// Exports (admin-only)
	s.router.Handle("POST /api/v1/indexes/{index}/exports", admin(s.handleStartExport))
	s.router.Handle("GET /api/v1/indexes/{index}/exports", admin(s.handleListExports))
	s.router.Handle("GET /api/v1/exports/{id}", admin(s.handleGetExport))
	s.router.Handle("GET /api/v1/exports/{id}/download", admin(s.handleDownloadExport))
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
