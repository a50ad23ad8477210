package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route - /ws/{search_id}
	mux.HandleFunc("/ws/", s.handleWebSocketRoute)

	// API routes - Search
	mux.HandleFunc("/api/search", s.app.SearchHandler.StartSearch) // POST - start a search
	mux.HandleFunc("/api/search/", s.handleSearchRoutes)           // GET /{id}/status, /{id}/results

	// API routes - Cache administration
	mux.HandleFunc("/api/cache/stats", s.app.CacheHandler.Stats)
	mux.HandleFunc("/api/cache/clear", s.app.CacheHandler.Clear)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleSearchRoutes routes /api/search/{id}/status and /api/search/{id}/results
func (s *Server) handleSearchRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/search/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[0] == "" {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}

	id := parts[0]
	switch parts[1] {
	case "status":
		s.app.SearchHandler.Status(w, r, id)
	case "results":
		s.app.SearchHandler.Results(w, r, id)
	default:
		s.app.APIHandler.NotFoundHandler(w, r)
	}
}

// handleWebSocketRoute extracts the search id from /ws/{id}
func (s *Server) handleWebSocketRoute(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/ws/"), "/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	s.app.WSHandler.HandleWebSocket(w, r, id)
}
