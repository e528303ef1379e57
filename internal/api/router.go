package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(middleware.RequestSize(maxRequestBodySize))

	r.Method(http.MethodGet, "/metrics", s.metrics.handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleStats)
		r.Get("/entries", s.handleListEntries)

		r.Route("/entities", func(r chi.Router) {
			r.Get("/", s.handleListEntities)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetEntity)
				r.Get("/state", s.handleGetEntityState)
				r.Get("/history", s.handleGetEntityHistory)
				r.Post("/command", s.handleEntityCommand)
			})
		})

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  s.version,
		"entities": s.registry.Count(),
	})
}

// handleStats returns entity counts and bridge counters.
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"entities":    s.registry.CountByPlatform(),
		"total":       s.registry.Count(),
		"ws_clients":  s.hub.ClientCount(),
		"uptime_secs": int64(time.Since(s.started).Seconds()),
	}
	if s.bridge != nil {
		resp["bridge"] = s.bridge.Statistics()
	}
	if s.entries != nil {
		ready := 0
		entries := s.entries()
		for _, e := range entries {
			if e.Ready {
				ready++
			}
		}
		resp["entries"] = map[string]int{"total": len(entries), "ready": ready}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleListEntries returns the integration entries with their vendor
// SDK process state.
func (s *Server) handleListEntries(w http.ResponseWriter, _ *http.Request) {
	if s.entries == nil {
		writeUnavailable(w, "integration entries not available")
		return
	}
	entries := s.entries()
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}
