package server

import (
	"net/http"
	"strconv"

	"github.com/alfredjeanlab/catalog/internal/content"
	"github.com/alfredjeanlab/catalog/internal/store"
)

// handleContentPage handles GET /content/pages/{slug}. Draft mode shows
// unpublished pages and skips the cache.
func (s *Server) handleContentPage(w http.ResponseWriter, r *http.Request) {
	doc := s.queries.PageBySlug(r.Context(), r.PathValue("slug"), s.draftMode(r))
	if doc == nil {
		writeError(w, http.StatusNotFound, "Page not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doc": doc})
}

// handleContentProducts handles GET /content/products.
func (s *Server) handleContentProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := content.ProductOptions{Category: q.Get("category")}
	if v, err := strconv.ParseBool(q.Get("featured")); err == nil {
		opts.Featured = v
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		opts.Limit = min(n, store.MaxLimit)
	}
	writeJSON(w, http.StatusOK, map[string]any{"docs": s.queries.Products(r.Context(), opts)})
}

// handleContentComponents handles GET /content/components.
func (s *Server) handleContentComponents(w http.ResponseWriter, r *http.Request) {
	docs := s.queries.Components(r.Context(), r.URL.Query().Get("category"))
	writeJSON(w, http.StatusOK, map[string]any{"docs": docs})
}

// handleContentGlobal handles GET /content/globals/{slug}.
func (s *Server) handleContentGlobal(w http.ResponseWriter, r *http.Request) {
	var g *store.GlobalDoc
	switch r.PathValue("slug") {
	case "site-settings":
		g = s.queries.SiteSettings(r.Context())
	case "navigation":
		g = s.queries.Navigation(r.Context())
	default:
		writeError(w, http.StatusNotFound, "Global not found")
		return
	}
	if g == nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch global")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"global": g})
}
