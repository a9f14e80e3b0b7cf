// Package server exposes the catalog over HTTP (the generic collection
// gateway, webhook, preview and cached content reads) and gRPC (the cache
// control plane).
package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/catalog/internal/blob"
	"github.com/alfredjeanlab/catalog/internal/cache"
	"github.com/alfredjeanlab/catalog/internal/content"
	"github.com/alfredjeanlab/catalog/internal/docstore"
	"github.com/alfredjeanlab/catalog/internal/events"
	"github.com/alfredjeanlab/catalog/internal/revalidate"
)

// DefaultStoreTimeout bounds each store call made by a handler.
const DefaultStoreTimeout = 10 * time.Second

// MediaPath is where objects of the in-memory blob store are served.
const MediaPath = "/media"

// Options configures a Server. Zero values select defaults.
type Options struct {
	Secret       string // webhook and preview secret; empty rejects both
	AuthToken    string // bearer token for admin routes; empty disables auth
	StoreTimeout time.Duration
	Publisher    events.Publisher
	Blobs        blob.Store
	Logger       *slog.Logger
}

// Server holds the collaborators shared by the HTTP and gRPC handlers.
type Server struct {
	docs        *docstore.Client
	cache       *cache.Layer
	queries     *content.Queries
	invalidator *revalidate.Invalidator
	publisher   events.Publisher
	blobs       blob.Store

	secret       string
	authToken    string
	storeTimeout time.Duration
	logger       *slog.Logger
}

// New returns a Server over docs whose cached reads go through layer.
func New(docs *docstore.Client, layer *cache.Layer, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = DefaultStoreTimeout
	}
	if opts.Publisher == nil {
		opts.Publisher = &events.NoopPublisher{}
	}
	if opts.Blobs == nil {
		opts.Blobs = blob.NewMemoryStore(MediaPath)
	}
	return &Server{
		docs:         docs,
		cache:        layer,
		queries:      content.New(docs, layer, opts.StoreTimeout, opts.Logger),
		invalidator:  revalidate.New(layer, opts.Logger),
		publisher:    opts.Publisher,
		blobs:        opts.Blobs,
		secret:       opts.Secret,
		authToken:    opts.AuthToken,
		storeTimeout: opts.StoreTimeout,
		logger:       opts.Logger,
	}
}

// Invalidator returns the consumer shared by the webhook, the bus and gRPC.
func (s *Server) Invalidator() *revalidate.Invalidator {
	return s.invalidator
}

// Queries returns the cached named queries.
func (s *Server) Queries() *content.Queries {
	return s.queries
}

// bound applies the store timeout to ctx.
func (s *Server) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

// publishChange announces a successful write. Failures are logged and do
// not affect the response.
func (s *Server) publishChange(ctx context.Context, topic string, c events.Change) {
	if err := s.publisher.Publish(ctx, topic, c); err != nil {
		s.logger.Warn("failed to publish change",
			"topic", topic, "collection", c.Collection, "operation", c.Operation, "id", c.ID, "error", err)
	}
}
