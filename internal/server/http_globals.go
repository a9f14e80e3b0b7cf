package server

import (
	"errors"
	"net/http"

	"github.com/alfredjeanlab/catalog/internal/events"
	"github.com/alfredjeanlab/catalog/internal/normalize"
	"github.com/alfredjeanlab/catalog/internal/store"
)

// handleGetGlobal handles GET /globals/{slug}.
func (s *Server) handleGetGlobal(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	ctx, cancel := s.bound(r.Context())
	defer cancel()
	g, err := s.docs.FindGlobal(ctx, slug)
	if errors.Is(err, store.ErrUnknownCollection) {
		writeError(w, http.StatusNotFound, "Global not found")
		return
	}
	if err != nil {
		s.writeStoreError(w, err, "Failed to fetch global", "global", slug)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"global": g})
}

// handleUpdateGlobal handles POST /globals/{slug}.
func (s *Server) handleUpdateGlobal(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	body, ok := decodeObject(w, r)
	if !ok {
		return
	}

	ctx, cancel := s.bound(r.Context())
	defer cancel()
	g, err := s.docs.UpdateGlobal(ctx, slug, normalize.Normalize(body))
	if errors.Is(err, store.ErrUnknownCollection) {
		writeError(w, http.StatusNotFound, "Global not found")
		return
	}
	if err != nil {
		s.writeStoreError(w, err, "Failed to update global", "global", slug)
		return
	}

	s.publishChange(r.Context(), events.TopicGlobalChanged, events.Change{
		Collection: slug, Operation: events.OpUpdate,
	})
	writeJSON(w, http.StatusOK, map[string]any{"global": g})
}
