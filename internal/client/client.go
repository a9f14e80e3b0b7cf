// Package client provides transport-agnostic interfaces for the catalog
// service, an HTTP/JSON implementation of the full API and a gRPC
// implementation of the cache service.
package client

import (
	"context"
	"io"

	"github.com/alfredjeanlab/catalog/internal/store"
)

// CacheClient controls the server's read cache. It is implemented by both
// HTTPClient and GRPCClient.
type CacheClient interface {
	// Revalidate reports a content change for a collection, dropping the
	// cache tags it maps to.
	Revalidate(ctx context.Context, collection, operation string) (*RevalidateResponse, error)
	// Stats returns the cache counters as a generic map.
	Stats(ctx context.Context) (map[string]any, error)
	// Health returns the server status string.
	Health(ctx context.Context) (string, error)

	Close() error
}

// Client is the interface the catalog CLI commands use to talk to the
// server. It is implemented by HTTPClient.
type Client interface {
	CacheClient

	// Documents
	List(ctx context.Context, collection string, req *ListRequest) (*store.Result, error)
	Get(ctx context.Context, collection, id string) (*store.Document, error)
	Create(ctx context.Context, collection string, data map[string]any) (*store.Document, error)
	Update(ctx context.Context, collection, id string, data map[string]any) (*store.Document, error)
	Delete(ctx context.Context, collection, id string) error

	// Globals
	GetGlobal(ctx context.Context, slug string) (*store.GlobalDoc, error)
	SetGlobal(ctx context.Context, slug string, data map[string]any) (*store.GlobalDoc, error)

	// Uploads
	Upload(ctx context.Context, collection string, req *UploadRequest) (*store.Document, error)
}

// ListRequest holds parameters for listing a collection.
type ListRequest struct {
	Page  int
	Limit int
	Sort  string
	Where map[string]string
}

// UploadRequest holds a file and the extra form fields stored alongside it.
type UploadRequest struct {
	Filename    string
	ContentType string
	Body        io.Reader
	Fields      map[string]string
}

// RevalidateResponse is the acknowledgement returned by Revalidate.
type RevalidateResponse struct {
	Revalidated bool     `json:"revalidated"`
	Collection  string   `json:"collection"`
	Operation   string   `json:"operation"`
	Tags        []string `json:"tags,omitempty"`
	Now         int64    `json:"now"`
}
