// Package server exposes the harness's debug HTTP surface: liveness,
// Prometheus metrics, and the most recent divergence report as JSON.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/sajjad-MoBe/kvdiff/internal/compare"
)

// Server serves the optional debug endpoints while a run is active.
type Server struct {
	httpServer *http.Server
	logger     zerolog.Logger

	mu     sync.RWMutex
	report *compare.Report
}

// New creates a debug server listening on address.
func New(address string, logger zerolog.Logger) *Server {
	s := &Server{logger: logger}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/report", s.handleReport).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:              address,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("debug server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// SetReport publishes the latest report on /report.
func (s *Server) SetReport(report *compare.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report = report
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	report := s.report
	s.mu.RUnlock()

	if report == nil {
		sendJSON(w, http.StatusNotFound, map[string]string{"status": "NO_REPORT"})
		return
	}
	sendJSON(w, http.StatusOK, report)
}

func sendJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
