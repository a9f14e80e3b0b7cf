package content

import (
	"context"
	"errors"
	"testing"

	"github.com/alfredjeanlab/catalog/internal/cache"
	"github.com/alfredjeanlab/catalog/internal/docstore"
	"github.com/alfredjeanlab/catalog/internal/schema"
	"github.com/alfredjeanlab/catalog/internal/store"
	"github.com/alfredjeanlab/catalog/internal/store/memory"
)

func newTestQueries(t *testing.T) (*Queries, *docstore.Client, *cache.Layer) {
	t.Helper()
	docs := docstore.New(memory.New(), schema.Builtin())
	layer := cache.New()
	return New(docs, layer, 0, nil), docs, layer
}

func mustCreate(t *testing.T, docs *docstore.Client, collection string, data map[string]any) *store.Document {
	t.Helper()
	d, err := docs.Create(context.Background(), collection, data)
	if err != nil {
		t.Fatalf("create %s: %v", collection, err)
	}
	return d
}

func TestPageBySlug(t *testing.T) {
	q, docs, layer := newTestQueries(t)
	ctx := context.Background()

	home := mustCreate(t, docs, "pages", map[string]any{"title": "Home", "slug": "home", "status": "published"})
	mustCreate(t, docs, "pages", map[string]any{"title": "Soon", "slug": "soon"})

	if p := q.PageBySlug(ctx, "home", false); p == nil || p.ID != home.ID {
		t.Fatalf("PageBySlug(home) = %+v", p)
	}
	if p := q.PageBySlug(ctx, "soon", false); p != nil {
		t.Errorf("draft page visible outside draft mode: %+v", p)
	}
	if p := q.PageBySlug(ctx, "soon", true); p == nil {
		t.Error("draft mode should see draft pages")
	}

	// Writes do not touch the cache; the stale page is served until the
	// tag is invalidated.
	if _, err := docs.Update(ctx, "pages", home.ID, map[string]any{"title": "Welcome"}); err != nil {
		t.Fatal(err)
	}
	if p := q.PageBySlug(ctx, "home", false); p.Data["title"] != "Home" {
		t.Errorf("expected cached title, got %v", p.Data["title"])
	}
	if err := layer.InvalidateTag(ctx, TagPage); err != nil {
		t.Fatal(err)
	}
	if p := q.PageBySlug(ctx, "home", false); p.Data["title"] != "Welcome" {
		t.Errorf("after invalidation title = %v", p.Data["title"])
	}
}

func TestProducts(t *testing.T) {
	q, docs, _ := newTestQueries(t)
	ctx := context.Background()

	mustCreate(t, docs, "products", map[string]any{"name": "Boot", "slug": "boot", "price": 120.0, "status": "active", "featured": true, "category": "footwear"})
	mustCreate(t, docs, "products", map[string]any{"name": "Belt", "slug": "belt", "price": 30.0, "status": "active", "category": "accessories"})
	mustCreate(t, docs, "products", map[string]any{"name": "Hat", "slug": "hat", "price": 20.0, "status": "archived", "featured": true})

	if got := q.Products(ctx, ProductOptions{}); len(got) != 2 {
		t.Errorf("active products = %d, want 2", len(got))
	}
	featured := q.Products(ctx, ProductOptions{Featured: true})
	if len(featured) != 1 || featured[0].Data["name"] != "Boot" {
		t.Errorf("featured = %v", featured)
	}
	if got := q.Products(ctx, ProductOptions{Category: "accessories"}); len(got) != 1 {
		t.Errorf("accessories = %d", len(got))
	}
	if got := q.Products(ctx, ProductOptions{Limit: 1}); len(got) != 1 {
		t.Errorf("limit 1 returned %d", len(got))
	}
}

func TestComponentsAndGlobals(t *testing.T) {
	q, docs, _ := newTestQueries(t)
	ctx := context.Background()

	mustCreate(t, docs, "components", map[string]any{"name": "Button", "slug": "button", "category": "ui"})
	mustCreate(t, docs, "components", map[string]any{"name": "Hero", "slug": "hero", "category": "block"})

	if got := q.Components(ctx, ""); len(got) != 2 {
		t.Errorf("all components = %d", len(got))
	}
	if got := q.Components(ctx, "ui"); len(got) != 1 || got[0].Data["name"] != "Button" {
		t.Errorf("ui components = %v", got)
	}

	if _, err := docs.UpdateGlobal(ctx, "site-settings", map[string]any{"siteName": "Shop"}); err != nil {
		t.Fatal(err)
	}
	if s := q.SiteSettings(ctx); s == nil || s.Data["siteName"] != "Shop" {
		t.Errorf("SiteSettings = %+v", s)
	}
	if n := q.Navigation(ctx); n == nil || n.Slug != "navigation" {
		t.Errorf("Navigation = %+v", n)
	}
}

type failingReader struct{ calls int }

func (f *failingReader) Find(context.Context, string, docstore.FindOptions) (*store.Result, error) {
	f.calls++
	return nil, errors.New("connection refused")
}

func (f *failingReader) FindGlobal(context.Context, string) (*store.GlobalDoc, error) {
	f.calls++
	return nil, errors.New("connection refused")
}

func TestFaultsYieldEmptyAndAreNotCached(t *testing.T) {
	r := &failingReader{}
	layer := cache.New()
	q := New(r, layer, 0, nil)
	ctx := context.Background()

	if p := q.PageBySlug(ctx, "home", false); p != nil {
		t.Errorf("page = %+v", p)
	}
	if got := q.Products(ctx, ProductOptions{}); got == nil || len(got) != 0 {
		t.Errorf("products = %#v, want empty slice", got)
	}
	if got := q.Components(ctx, ""); got == nil || len(got) != 0 {
		t.Errorf("components = %#v", got)
	}
	if s := q.SiteSettings(ctx); s != nil {
		t.Errorf("settings = %+v", s)
	}

	before := r.calls
	q.Products(ctx, ProductOptions{})
	if r.calls != before+1 {
		t.Error("failed read was served from cache")
	}
	if layer.Stats().Entries != 0 {
		t.Errorf("entries = %d, want 0", layer.Stats().Entries)
	}
}
