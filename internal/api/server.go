// Package api serves the web UI and the REST surface of the fetch
// service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/portholelabs/porthole/internal/archive"
	"github.com/portholelabs/porthole/internal/config"
	"github.com/portholelabs/porthole/internal/export"
	"github.com/portholelabs/porthole/internal/fetcher"
	"github.com/portholelabs/porthole/internal/observability"
	"github.com/portholelabs/porthole/internal/preview"
)

// Server hosts the single-page UI and the JSON API in one mux.
type Server struct {
	cfg        *config.Config
	mux        *http.ServeMux
	httpServer *http.Server

	fetcher    fetcher.Fetcher
	relays     *fetcher.RelayFetcher
	sanitizer  *preview.Sanitizer
	summarizer *preview.Summarizer
	exporter   *export.Exporter
	archiver   archive.Archiver
	metrics    *observability.Metrics

	logger    *slog.Logger
	startedAt time.Time
}

// NewServer wires the handlers around f. Relay introspection routes
// activate only when f walks a relay chain.
func NewServer(cfg *config.Config, f fetcher.Fetcher, logger *slog.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		mux:        http.NewServeMux(),
		fetcher:    f,
		sanitizer:  preview.NewSanitizer(logger),
		summarizer: preview.NewSummarizer(logger),
		exporter:   export.NewExporter(cfg.Export.Dir, logger),
		metrics:    observability.NewMetrics(logger),
		logger:     logger.With("component", "api_server"),
		startedAt:  time.Now(),
	}

	if rf, ok := f.(*fetcher.RelayFetcher); ok {
		s.relays = rf
	}

	s.registerRoutes()
	return s
}

// SetArchiver attaches an archive backend for fetch history.
func (s *Server) SetArchiver(a archive.Archiver) {
	s.archiver = a
}

// Metrics exposes the server's counters, e.g. for a standalone
// metrics listener.
func (s *Server) Metrics() *observability.Metrics {
	return s.metrics
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	s.logger.Info("server starting", "addr", addr, "mode", s.fetcher.Type())

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight
// requests to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	// UI
	s.mux.HandleFunc("GET /", s.handleIndex)

	// Fetching
	s.mux.HandleFunc("POST /api/fetch", s.handleFetch)
	s.mux.HandleFunc("GET /api/validate", s.handleValidate)
	s.mux.HandleFunc("POST /api/export", s.handleExport)

	// Introspection
	s.mux.HandleFunc("GET /api/relays", s.handleRelays)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
