package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/alfredjeanlab/catalog/internal/docstore"
	"github.com/alfredjeanlab/catalog/internal/events"
	"github.com/alfredjeanlab/catalog/internal/normalize"
	"github.com/alfredjeanlab/catalog/internal/schema"
	"github.com/alfredjeanlab/catalog/internal/store"
)

// errMissingID is reported when an update or delete names no document.
const errMissingID = "Document ID is required"

// handleListDocuments handles GET /collections/{collection}.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	collection := r.PathValue("collection")
	q := r.URL.Query()
	page, limit := store.ParsePage(q.Get("page"), q.Get("limit"))

	ctx, cancel := s.bound(r.Context())
	defer cancel()
	res, err := s.docs.Find(ctx, collection, docstore.FindOptions{
		Where: whereParams(q),
		Sort:  q.Get("sort"),
		Page:  page,
		Limit: limit,
	})
	if err != nil {
		s.writeStoreError(w, err, "Failed to fetch collection", "collection", collection)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// whereParams collects where[field]=value query parameters.
func whereParams(q map[string][]string) map[string]any {
	var where map[string]any
	for k, vs := range q {
		field, ok := strings.CutPrefix(k, "where[")
		if !ok || !strings.HasSuffix(field, "]") || len(vs) == 0 {
			continue
		}
		field = strings.TrimSuffix(field, "]")
		if field == "" {
			continue
		}
		if where == nil {
			where = make(map[string]any)
		}
		where[field] = vs[0]
	}
	return where
}

// handleGetDocument handles GET /collections/{collection}/{id}.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	collection, id := r.PathValue("collection"), r.PathValue("id")

	ctx, cancel := s.bound(r.Context())
	defer cancel()
	doc, err := s.docs.FindByID(ctx, collection, id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Document not found")
		return
	}
	if err != nil {
		s.writeStoreError(w, err, "Failed to fetch document", "collection", collection, "id", id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doc": doc})
}

// handleCreateDocument handles POST /collections/{collection}.
func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	collection := r.PathValue("collection")
	body, ok := decodeObject(w, r)
	if !ok {
		return
	}

	ctx, cancel := s.bound(r.Context())
	defer cancel()
	doc, err := s.docs.Create(ctx, collection, normalize.Normalize(body))
	if err != nil {
		s.writeStoreError(w, err, "Failed to create document", "collection", collection)
		return
	}

	s.publishChange(r.Context(), events.TopicCollectionChanged, events.Change{
		Collection: collection, Operation: events.OpCreate, ID: doc.ID,
	})
	writeJSON(w, http.StatusCreated, map[string]any{"doc": doc})
}

// handleUpdateDocument handles PUT /collections/{collection}. The document
// ID travels in the body and is removed before the remaining fields are
// normalized.
func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	collection := r.PathValue("collection")
	body, ok := decodeObject(w, r)
	if !ok {
		return
	}
	id, _ := body[store.KeyID].(string)
	if id == "" {
		writeError(w, http.StatusBadRequest, errMissingID)
		return
	}
	delete(body, store.KeyID)

	ctx, cancel := s.bound(r.Context())
	defer cancel()
	doc, err := s.docs.Update(ctx, collection, id, normalize.Normalize(body))
	if err != nil {
		s.writeStoreError(w, err, "Failed to update document", "collection", collection, "id", id)
		return
	}

	s.publishChange(r.Context(), events.TopicCollectionChanged, events.Change{
		Collection: collection, Operation: events.OpUpdate, ID: id,
	})
	writeJSON(w, http.StatusOK, map[string]any{"doc": doc})
}

// handleDeleteDocument handles DELETE /collections/{collection}?id=.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	collection := r.PathValue("collection")
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, errMissingID)
		return
	}

	ctx, cancel := s.bound(r.Context())
	defer cancel()
	doc, err := s.docs.Delete(ctx, collection, id)
	if err != nil {
		s.writeStoreError(w, err, "Failed to delete document", "collection", collection, "id", id)
		return
	}
	s.removeBlob(r.Context(), collection, doc)

	s.publishChange(r.Context(), events.TopicCollectionChanged, events.Change{
		Collection: collection, Operation: events.OpDelete, ID: id,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// decodeObject reads a JSON object body. It writes the 400 response itself
// and returns false when the body is not an object.
func decodeObject(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return nil, false
	}
	if body == nil {
		body = map[string]any{}
	}
	return body, true
}

// writeStoreError maps a store client error to a response. Validation
// errors carry their message; unknown collections are 404; everything else
// is logged and reported with the generic message.
func (s *Server) writeStoreError(w http.ResponseWriter, err error, generic string, attrs ...any) {
	var ve *schema.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, store.ErrUnknownCollection):
		writeError(w, http.StatusNotFound, "Collection not found")
	default:
		s.logger.Error(generic, append(attrs, "error", err)...)
		writeError(w, http.StatusInternalServerError, generic)
	}
}
