// Package server exposes the event log over a read-only HTTP JSON API for
// local dashboards and tooling. Consumers never write; the daily loop
// controller remains the only writer of governance state.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/stratadata/steward/catalog"
	"github.com/stratadata/steward/config"
	"github.com/stratadata/steward/eventlog"
	"github.com/stratadata/steward/learning"
)

// Server is the read-only query API over governance state.
type Server struct {
	catalog    *catalog.Store
	events     *eventlog.Store
	snapshots  *learning.SnapshotStore
	cfg        config.ServerConfig
	logger     *zap.SugaredLogger
	httpServer *http.Server
}

// New creates a query API server over the governance stores.
func New(
	catalogStore *catalog.Store,
	events *eventlog.Store,
	snapshots *learning.SnapshotStore,
	cfg config.ServerConfig,
	logger *zap.SugaredLogger,
) *Server {
	s := &Server{
		catalog:   catalogStore,
		events:    events,
		snapshots: snapshots,
		cfg:       cfg,
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.corsMiddleware(s.handleHealth))
	mux.HandleFunc("/events", s.corsMiddleware(s.handleEvents))
	mux.HandleFunc("/investigations", s.corsMiddleware(s.handleInvestigations))
	mux.HandleFunc("/latest_state", s.corsMiddleware(s.handleLatestState))
	mux.HandleFunc("/learning_summary", s.corsMiddleware(s.handleLearningSummary))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	if s.logger != nil {
		s.logger.Infow("Query API listening", "addr", s.httpServer.Addr)
	}
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the routed handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// corsMiddleware reflects allowed origins from configuration so local UIs
// on other ports can read the API.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	}
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
