package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/alfredjeanlab/catalog/internal/revalidate"
)

// WebhookSecretHeader carries the shared secret on POST /revalidate.
const WebhookSecretHeader = "x-webhook-secret"

// DraftCookie marks a browser as being in draft (preview) mode.
const DraftCookie = "catalog_draft"

// handleRevalidate handles POST /revalidate.
func (s *Server) handleRevalidate(w http.ResponseWriter, r *http.Request) {
	if !revalidate.VerifySecret(s.secret, r.Header.Get(WebhookSecretHeader)) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var n revalidate.Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	n.Source = "webhook"
	if _, err := s.invalidator.Handle(r.Context(), n); err != nil {
		s.logger.Error("revalidate failed", "collection", n.Collection, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to revalidate")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"revalidated": true,
		"collection":  n.Collection,
		"operation":   n.Operation,
		"now":         time.Now().UnixMilli(),
	})
}

// handleRevalidateStatus handles GET /revalidate.
func (s *Server) handleRevalidateStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UnixMilli(),
	})
}

// handlePreview handles GET /preview?secret=&slug=. It enables draft mode
// and redirects to the slug.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !revalidate.VerifySecret(s.secret, q.Get("secret")) {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     DraftCookie,
		Value:    s.draftToken(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	http.Redirect(w, r, redirectTarget(q.Get("slug")), http.StatusTemporaryRedirect)
}

// handleExitPreview handles GET /preview/exit.
func (s *Server) handleExitPreview(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     DraftCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, redirectTarget(r.URL.Query().Get("slug")), http.StatusTemporaryRedirect)
}

// redirectTarget keeps redirects on this site: the result is always a
// path starting with a single slash.
func redirectTarget(slug string) string {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return "/"
	}
	return "/" + strings.TrimLeft(slug, "/\\")
}

// draftToken is the draft cookie value, derived from the shared secret so
// it cannot be forged without it.
func (s *Server) draftToken() string {
	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write([]byte(DraftCookie))
	return hex.EncodeToString(mac.Sum(nil))
}

// draftMode reports whether r carries a valid draft cookie.
func (s *Server) draftMode(r *http.Request) bool {
	if s.secret == "" {
		return false
	}
	c, err := r.Cookie(DraftCookie)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(c.Value), []byte(s.draftToken()))
}
