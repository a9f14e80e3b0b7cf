// Package content holds the named read queries used by site rendering.
// Every query reads through the cache layer under a fixed tag, so a
// revalidation of that tag makes the next read hit the store again.
package content

import (
	"context"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/catalog/internal/cache"
	"github.com/alfredjeanlab/catalog/internal/docstore"
	"github.com/alfredjeanlab/catalog/internal/store"
)

// Cache tags.
const (
	TagPage         = "page"
	TagProducts     = "products"
	TagComponents   = "components"
	TagSiteSettings = "site-settings"
	TagNavigation   = "navigation"
)

// AllTags lists every tag a query reads under.
var AllTags = []string{TagPage, TagProducts, TagComponents, TagSiteSettings, TagNavigation}

// DefaultProductLimit is used when ProductOptions.Limit is zero.
const DefaultProductLimit = 10

// componentLimit bounds the component listing.
const componentLimit = store.MaxLimit

// Reader is the subset of the document store client the queries use.
type Reader interface {
	Find(ctx context.Context, collection string, opts docstore.FindOptions) (*store.Result, error)
	FindGlobal(ctx context.Context, slug string) (*store.GlobalDoc, error)
}

// Queries runs the named queries.
type Queries struct {
	docs    Reader
	cache   *cache.Layer
	timeout time.Duration
	logger  *slog.Logger
}

// New returns the queries over docs, cached in layer. Each store call is
// bounded by timeout when it is positive.
func New(docs Reader, layer *cache.Layer, timeout time.Duration, logger *slog.Logger) *Queries {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queries{docs: docs, cache: layer, timeout: timeout, logger: logger}
}

func (q *Queries) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if q.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, q.timeout)
}

// PageBySlug returns the published page with the given slug, or nil. In
// draft mode any status matches and the cache is bypassed.
func (q *Queries) PageBySlug(ctx context.Context, slug string, draft bool) *store.Document {
	if draft {
		doc, err := q.findPage(ctx, slug, false)
		if err != nil {
			q.logger.Error("fetch draft page", "slug", slug, "error", err)
			return nil
		}
		return doc
	}
	doc, err := cache.Read(ctx, q.cache, TagPage, map[string]any{"slug": slug}, 0,
		func(ctx context.Context) (*store.Document, error) {
			return q.findPage(ctx, slug, true)
		})
	if err != nil {
		q.logger.Error("fetch page", "slug", slug, "error", err)
		return nil
	}
	return doc
}

func (q *Queries) findPage(ctx context.Context, slug string, publishedOnly bool) (*store.Document, error) {
	ctx, cancel := q.bound(ctx)
	defer cancel()
	where := map[string]any{"slug": slug}
	if publishedOnly {
		where["status"] = "published"
	}
	res, err := q.docs.Find(ctx, "pages", docstore.FindOptions{Where: where, Page: 1, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(res.Docs) == 0 {
		return nil, nil
	}
	return res.Docs[0], nil
}

// ProductOptions filters the product listing.
type ProductOptions struct {
	Featured bool   `json:"featured,omitempty"`
	Category string `json:"category,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// Products returns active products, newest first.
func (q *Queries) Products(ctx context.Context, opts ProductOptions) []*store.Document {
	if opts.Limit <= 0 {
		opts.Limit = DefaultProductLimit
	}
	docs, err := cache.Read(ctx, q.cache, TagProducts, opts, 0,
		func(ctx context.Context) ([]*store.Document, error) {
			where := map[string]any{"status": "active"}
			if opts.Featured {
				where["featured"] = true
			}
			if opts.Category != "" {
				where["category"] = opts.Category
			}
			return q.list(ctx, "products", where, opts.Limit)
		})
	if err != nil {
		q.logger.Error("fetch products", "error", err)
		return []*store.Document{}
	}
	return docs
}

// Components returns components, optionally restricted to one category.
func (q *Queries) Components(ctx context.Context, category string) []*store.Document {
	docs, err := cache.Read(ctx, q.cache, TagComponents, map[string]any{"category": category}, 0,
		func(ctx context.Context) ([]*store.Document, error) {
			var where map[string]any
			if category != "" {
				where = map[string]any{"category": category}
			}
			return q.list(ctx, "components", where, componentLimit)
		})
	if err != nil {
		q.logger.Error("fetch components", "category", category, "error", err)
		return []*store.Document{}
	}
	return docs
}

func (q *Queries) list(ctx context.Context, collection string, where map[string]any, limit int) ([]*store.Document, error) {
	ctx, cancel := q.bound(ctx)
	defer cancel()
	res, err := q.docs.Find(ctx, collection, docstore.FindOptions{Where: where, Page: 1, Limit: limit})
	if err != nil {
		return nil, err
	}
	return res.Docs, nil
}

// SiteSettings returns the site-settings global, or nil on failure.
func (q *Queries) SiteSettings(ctx context.Context) *store.GlobalDoc {
	return q.global(ctx, TagSiteSettings, "site-settings")
}

// Navigation returns the navigation global, or nil on failure.
func (q *Queries) Navigation(ctx context.Context) *store.GlobalDoc {
	return q.global(ctx, TagNavigation, "navigation")
}

func (q *Queries) global(ctx context.Context, tag, slug string) *store.GlobalDoc {
	g, err := cache.Read(ctx, q.cache, tag, nil, 0,
		func(ctx context.Context) (*store.GlobalDoc, error) {
			ctx, cancel := q.bound(ctx)
			defer cancel()
			return q.docs.FindGlobal(ctx, slug)
		})
	if err != nil {
		q.logger.Error("fetch global", "slug", slug, "error", err)
		return nil
	}
	return g
}
