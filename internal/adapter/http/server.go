// Package http exposes the orchestration core over a small JSON API plus the
// operational endpoints (health, readiness, metrics).
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/weather-insights-service/internal/domain"
)

// Core is the orchestration surface the API serves.
type Core interface {
	Handle(ctx context.Context, callerRef, rawText string) domain.AssembledResponse
	ResetSession(callerRef string)
	CheckReadiness(ctx context.Context) error
}

// Server exposes the query API and operational HTTP endpoints.
type Server struct {
	httpServer *http.Server
	core       Core
	logger     *slog.Logger
}

// NewServer creates the HTTP server with /api/query, /api/session/reset,
// /healthz, /readyz, and /metrics routes.
func NewServer(addr string, core Core, logger *slog.Logger) *Server {
	s := &Server{core: core, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(api chi.Router) {
		api.Post("/query", s.handleQuery)
		api.Post("/session/reset", s.handleSessionReset)
	})
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second, // must outlast the slowest provider fan-out
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type queryRequest struct {
	CallerRef string `json:"callerRef"`
	Text      string `json:"text"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CallerRef == "" {
		writeError(w, http.StatusBadRequest, "callerRef is required")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	resp := s.core.Handle(r.Context(), req.CallerRef, req.Text)
	writeJSON(w, statusFor(resp), resp)
}

func (s *Server) handleSessionReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CallerRef string `json:"callerRef"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CallerRef == "" {
		writeError(w, http.StatusBadRequest, "callerRef is required")
		return
	}

	s.core.ResetSession(req.CallerRef)
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.core.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// statusFor maps an assembled outcome to an HTTP status. User-recoverable
// failures stay 200 since the body is a renderable answer; infrastructure
// failures surface as such.
func statusFor(resp domain.AssembledResponse) int {
	switch resp.Error {
	case "":
		return http.StatusOK
	case "provider_unavailable":
		return http.StatusBadGateway
	case "internal_inconsistency":
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}
