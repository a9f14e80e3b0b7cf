package server

import (
	"encoding/json"
	"net/http"
)

// NewHTTPHandler returns an http.Handler with all routes registered. When an
// auth token is configured, write routes and cache statistics require a
// valid Authorization: Bearer <token> header. Reads, the webhook and the
// preview toggle are not covered: the latter two carry the shared secret.
func (s *Server) NewHTTPHandler() http.Handler {
	admin := func(h http.HandlerFunc) http.Handler { return AuthMiddleware(s.authToken, h) }

	mux := http.NewServeMux()
	mux.HandleFunc("GET /collections/{collection}", s.handleListDocuments)
	mux.Handle("POST /collections/{collection}", admin(s.handleCreateDocument))
	mux.Handle("PUT /collections/{collection}", admin(s.handleUpdateDocument))
	mux.Handle("DELETE /collections/{collection}", admin(s.handleDeleteDocument))
	mux.HandleFunc("GET /collections/{collection}/{id}", s.handleGetDocument)
	mux.HandleFunc("GET /globals/{slug}", s.handleGetGlobal)
	mux.Handle("POST /globals/{slug}", admin(s.handleUpdateGlobal))
	mux.Handle("POST /uploads/{collection}", admin(s.handleUpload))
	mux.HandleFunc("GET "+MediaPath+"/{key...}", s.handleMedia)
	mux.HandleFunc("POST /revalidate", s.handleRevalidate)
	mux.HandleFunc("GET /revalidate", s.handleRevalidateStatus)
	mux.HandleFunc("GET /preview", s.handlePreview)
	mux.HandleFunc("GET /preview/exit", s.handleExitPreview)
	mux.HandleFunc("GET /content/pages/{slug}", s.handleContentPage)
	mux.HandleFunc("GET /content/products", s.handleContentProducts)
	mux.HandleFunc("GET /content/components", s.handleContentComponents)
	mux.HandleFunc("GET /content/globals/{slug}", s.handleContentGlobal)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /cache/stats", admin(s.handleCacheStats))
	return RecoveryMiddleware(s.logger, LoggingMiddleware(s.logger, mux))
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	collections, globals := s.docs.Schema().Slugs()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "success",
		"message":     "catalog is running",
		"collections": collections,
		"globals":     globals,
	})
}

// handleCacheStats handles GET /cache/stats.
func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"cache":       s.cache.Stats(),
		"ttl":         s.cache.TTL().String(),
		"invalidator": s.invalidator.State().String(),
		"handled":     s.invalidator.Handled(),
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
