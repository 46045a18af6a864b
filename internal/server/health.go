package server

import (
	"context"
	"net/http"
	"time"

	"github.com/raakeshmj/coreenginedb/internal/blob"
	"github.com/raakeshmj/coreenginedb/internal/middleware"
)

// Liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Readiness checks the blob backend when it can be pinged.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if p, ok := s.blobs.(blob.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			s.logger.Warn("readiness check failed", "backend", s.cfg.BlobBackend, "error", err)
			middleware.WriteError(w, r, http.StatusServiceUnavailable, "store_unavailable")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, s.metrics.GetStats())
}
