// Package httpapi exposes pipeline triggering, run history and headline
// ingestion over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/custodia-labs/newsdigest/internal/core/ports/driving"
	"github.com/custodia-labs/newsdigest/internal/logger"
)

const (
	// maxBodyBytes bounds request bodies on ingestion.
	maxBodyBytes = 4 << 20

	// runTimeout bounds a pipeline run triggered over HTTP.
	runTimeout = 30 * time.Minute

	shutdownTimeout = 10 * time.Second
)

// ErrMissingPorts is returned when a required service is not provided.
var ErrMissingPorts = errors.New("httpapi: pipeline, run and headline services are required")

// Ports aggregates the driving ports the API serves.
type Ports struct {
	Pipeline  driving.PipelineRunner
	Runs      driving.RunService
	Headlines driving.HeadlineService

	// MCP is mounted at /mcp when set.
	MCP http.Handler
}

// Server is the HTTP API.
type Server struct {
	ports  Ports
	router chi.Router
	logger *slog.Logger
}

// NewServer creates the API and registers its routes.
func NewServer(ports Ports) (*Server, error) {
	if ports.Pipeline == nil || ports.Runs == nil || ports.Headlines == nil {
		return nil, ErrMissingPorts
	}

	s := &Server{
		ports:  ports,
		router: chi.NewRouter(),
		logger: logger.With("http"),
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/runs", func(r chi.Router) {
			r.Post("/", s.handleTriggerRun)
			r.Get("/", s.handleListRuns)
			r.Get("/latest", s.handleLatestRun)
			r.Get("/{runID}", s.handleGetRun)
		})
		r.Post("/headlines", s.handleIngest)
	})

	if s.ports.MCP != nil {
		r.Handle("/mcp", s.ports.MCP)
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("http shutdown", "error", err)
		}
	}()

	s.logger.Info("listening", "addr", addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// requestLogger logs one line per request through slog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
