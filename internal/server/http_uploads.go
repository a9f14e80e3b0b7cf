package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/catalog/internal/blob"
	"github.com/alfredjeanlab/catalog/internal/events"
	"github.com/alfredjeanlab/catalog/internal/idgen"
	"github.com/alfredjeanlab/catalog/internal/normalize"
	"github.com/alfredjeanlab/catalog/internal/schema"
	"github.com/alfredjeanlab/catalog/internal/store"
)

// MaxUploadSize bounds the multipart body of an upload.
const MaxUploadSize = 32 << 20

// handleUpload handles POST /uploads/{collection}. The multipart form
// carries the file under "file"; other form values become document fields.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	collection := r.PathValue("collection")
	col, ok := s.docs.Schema().Collection(collection)
	if !ok {
		writeError(w, http.StatusNotFound, "Collection not found")
		return
	}
	if col.Upload == nil {
		writeError(w, http.StatusBadRequest, "Collection does not accept uploads")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart body")
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()

	body := bufio.NewReader(file)
	mimeType := hdr.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		head, _ := body.Peek(512)
		mimeType = http.DetectContentType(head)
	}
	if !col.Upload.Allows(mimeType) {
		writeError(w, http.StatusBadRequest, "File type "+mimeType+" is not allowed")
		return
	}

	key, err := idgen.ObjectKey(collection, hdr.Filename)
	if err != nil {
		s.logger.Error("Failed to upload file", "collection", collection, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to upload file")
		return
	}

	ctx, cancel := s.bound(r.Context())
	defer cancel()
	url, err := s.blobs.Put(ctx, key, mimeType, body, hdr.Size)
	if err != nil {
		s.logger.Error("Failed to upload file", "collection", collection, "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to upload file")
		return
	}

	fields := make(map[string]any, len(r.MultipartForm.Value)+4)
	for k, vs := range r.MultipartForm.Value {
		if len(vs) > 0 {
			fields[k] = vs[0]
		}
	}
	fields = normalize.Normalize(fields)
	fields[schema.FieldFilename] = hdr.Filename
	fields[schema.FieldMimeType] = mimeType
	fields[schema.FieldFilesize] = float64(hdr.Size)
	fields[schema.FieldURL] = url

	doc, err := s.docs.Create(ctx, collection, fields)
	if err != nil {
		if derr := s.blobs.Delete(context.WithoutCancel(ctx), key); derr != nil {
			s.logger.Warn("failed to remove orphaned upload", "key", key, "error", derr)
		}
		s.writeStoreError(w, err, "Failed to create document", "collection", collection)
		return
	}

	s.publishChange(r.Context(), events.TopicCollectionChanged, events.Change{
		Collection: collection, Operation: events.OpCreate, ID: doc.ID,
	})
	writeJSON(w, http.StatusCreated, map[string]any{"doc": doc})
}

// removeBlob deletes the stored file of a deleted upload document. Failures
// are logged only.
func (s *Server) removeBlob(ctx context.Context, collection string, doc *store.Document) {
	col, ok := s.docs.Schema().Collection(collection)
	if !ok || col.Upload == nil || doc == nil {
		return
	}
	url, _ := doc.Data[schema.FieldURL].(string)
	key, ok := blob.KeyFromURL(s.blobs.PublicURL(), url)
	if !ok {
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil && !errors.Is(err, blob.ErrNotFound) {
		s.logger.Warn("failed to remove upload", "collection", collection, "key", key, "error", err)
	}
}

// handleMedia handles GET /media/{key...}, serving objects from the blob
// store.
// mediaCSP is sent with every /media response.
const mediaCSP = "default-src 'none'; img-src 'self' data:; style-src 'unsafe-inline'; sandbox"

// scriptableType reports whether a browser could execute content of type ct
// when rendered inline.
func scriptableType(ct string) bool {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ct != ""
	}
	switch {
	case mt == "image/svg+xml", mt == "text/html", mt == "application/xhtml+xml",
		mt == "text/xml", mt == "application/xml", mt == "text/javascript", mt == "application/javascript":
		return true
	}
	return strings.HasSuffix(mt, "+xml")
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.bound(r.Context())
	defer cancel()
	obj, err := s.blobs.Get(ctx, r.PathValue("key"))
	if errors.Is(err, blob.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.Error("Failed to read file", "key", r.PathValue("key"), "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to read file")
		return
	}
	defer obj.Body.Close()

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	// Uploaded bytes are served same-origin; never let them run script.
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", mediaCSP)
	if scriptableType(obj.ContentType) {
		w.Header().Set("Content-Disposition", "attachment")
	}
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, obj.Body)
}
