// Package blob stores uploaded files for upload-backed collections.
package blob

import (
	"context"
	"errors"
	"io"
	"strings"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("blob not found")

// Object is a stored file opened for reading.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// Store puts, fetches and deletes objects by key.
type Store interface {
	// Put writes the object and returns its public URL.
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	Get(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
	// PublicURL is the base of the URLs returned by Put.
	PublicURL() string
}

// publicURL joins a base URL and an object key.
func publicURL(base, key string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(key, "/")
}

// KeyFromURL recovers the object key from a URL produced with base. It
// returns false when url was not built from base.
func KeyFromURL(base, url string) (string, bool) {
	prefix := strings.TrimSuffix(base, "/") + "/"
	key, ok := strings.CutPrefix(url, prefix)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}
