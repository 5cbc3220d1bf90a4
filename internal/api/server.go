// Package api serves a read-only JSON view of the running monitor.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"codeberg.org/mutker/turbinemon/internal/errors"
	"codeberg.org/mutker/turbinemon/internal/logger"
	"codeberg.org/mutker/turbinemon/internal/metrics"
	"codeberg.org/mutker/turbinemon/internal/monitor"
	"github.com/gorilla/mux"
)

const (
	defaultReportLimit = 50
	maxReportLimit     = 1000
	shutdownTimeout    = 5 * time.Second
	readHeaderTimeout  = 5 * time.Second
)

// StatusProvider is satisfied by *monitor.Status.
type StatusProvider interface {
	Snapshot() monitor.StatusSnapshot
}

// Server represents the API server
type Server struct {
	status    StatusProvider
	collector metrics.Collector
	router    *mux.Router
	log       logger.Logger
}

func NewServer(status StatusProvider, collector metrics.Collector, log logger.Logger) *Server {
	s := &Server{
		status:    status,
		collector: collector,
		router:    mux.NewRouter(),
		log:       log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/reports", s.handleReports).Methods(http.MethodGet)

	s.router.Use(s.loggingMiddleware)
	s.router.Use(jsonMiddleware)
}

// Router returns the configured router
func (s *Server) Router() *mux.Router {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	errFactory := errors.New()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errFactory.Wrap(errors.ErrServeAPI, err)
	}

	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errFactory := errors.New()

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("API listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errFactory.Wrap(errors.ErrServeAPI, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errFactory.Wrap(errors.ErrShutdownFailed, err)
	}

	return nil
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("API request")
	})
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

type apiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Meta    *meta  `json:"meta,omitempty"`
}

type meta struct {
	Total int `json:"total"`
	Limit int `json:"limit"`
}

// respond encodes before writing the header so an unencodable payload (a
// NaN efficiency, say) becomes a 500 instead of a 200 with an empty body.
func (s *Server) respond(w http.ResponseWriter, status int, resp apiResponse) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(resp); err != nil {
		s.log.Warn().Err(err).Msg("Failed to encode API response")

		buf.Reset()
		status = http.StatusInternalServerError
		// a plain error envelope always encodes
		_ = json.NewEncoder(&buf).Encode(apiResponse{Success: false, Error: "failed to encode response"})
	}

	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.log.Debug().Err(err).Msg("Failed to write API response")
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	s.respond(w, status, apiResponse{Success: true, Data: data})
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respond(w, status, apiResponse{Success: false, Error: message})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, s.status.Snapshot())
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	if !s.collector.Enabled() {
		s.respondError(w, http.StatusNotFound, "metrics collection is disabled")
		return
	}

	limit := defaultReportLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxReportLimit)
	}

	reports, err := s.collector.Recent(r.Context(), limit)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to query reports")
		s.respondError(w, http.StatusInternalServerError, "failed to query reports")
		return
	}
	if reports == nil {
		reports = []metrics.Snapshot{}
	}

	s.respond(w, http.StatusOK, apiResponse{
		Success: true,
		Data:    reports,
		Meta:    &meta{Total: len(reports), Limit: limit},
	})
}
