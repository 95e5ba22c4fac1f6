package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"trading-journal-go/internal/journal"

	"go.uber.org/zap"
)

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log   *zap.Logger
	store *journal.Store
	now   func() time.Time
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, store *journal.Store) *APIHandler {
	return &APIHandler{log: log, store: store, now: time.Now}
}

// Routes registers the API endpoints on a new mux.
func (h *APIHandler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/trades", h.TradesHandler)
	mux.HandleFunc("GET /api/statistics", h.StatisticsHandler)
	mux.HandleFunc("GET /health", h.HealthHandler)
	return mux
}

// TradesHandler returns all journaled trades, most recent first.
func (h *APIHandler) TradesHandler(w http.ResponseWriter, r *http.Request) {
	trades, err := h.store.List()
	if err != nil {
		h.log.Error("Failed to get trades from database", zap.Error(err))
		http.Error(w, "Failed to get trades", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, trades)
}

// StatisticsHandler returns win rate and profit for the last 24h and all time.
func (h *APIHandler) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Statistics(h.now())
	if err != nil {
		h.log.Error("Failed to calculate statistics", zap.Error(err))
		http.Error(w, "Failed to calculate statistics", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, stats)
}

// HealthHandler reports that the server is up.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to write response", zap.Error(err))
	}
}

// APIServer serves the journal API until its context ends.
type APIServer struct {
	server *http.Server
	logger *zap.Logger
}

// NewAPIServer creates a new APIServer listening on addr.
func NewAPIServer(addr string, h *APIHandler, logger *zap.Logger) *APIServer {
	return &APIServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           h.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger.Named("api-server"),
	}
}

// Run blocks until ctx is done, then shuts the server down gracefully.
func (s *APIServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	s.logger.Info("Starting web server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Stopping web server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
