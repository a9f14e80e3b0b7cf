package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"

	"github.com/alfredjeanlab/catalog/internal/blob"
	"github.com/alfredjeanlab/catalog/internal/cache"
	"github.com/alfredjeanlab/catalog/internal/content"
	"github.com/alfredjeanlab/catalog/internal/docstore"
	"github.com/alfredjeanlab/catalog/internal/events"
	"github.com/alfredjeanlab/catalog/internal/schema"
	"github.com/alfredjeanlab/catalog/internal/store"
	"github.com/alfredjeanlab/catalog/internal/store/memory"
)

// spyStore counts calls into the engine and can fail Find on demand.
type spyStore struct {
	store.Store
	calls   atomic.Int64
	findErr error
}

func (s *spyStore) Find(ctx context.Context, collection string, q store.Query) ([]*store.Document, int, error) {
	s.calls.Add(1)
	if s.findErr != nil {
		return nil, 0, s.findErr
	}
	return s.Store.Find(ctx, collection, q)
}

func (s *spyStore) Get(ctx context.Context, collection, id string) (*store.Document, error) {
	s.calls.Add(1)
	return s.Store.Get(ctx, collection, id)
}

func (s *spyStore) Insert(ctx context.Context, doc *store.Document) error {
	s.calls.Add(1)
	return s.Store.Insert(ctx, doc)
}

func (s *spyStore) Replace(ctx context.Context, doc *store.Document) error {
	s.calls.Add(1)
	return s.Store.Replace(ctx, doc)
}

func (s *spyStore) Delete(ctx context.Context, collection, id string) error {
	s.calls.Add(1)
	return s.Store.Delete(ctx, collection, id)
}

const testSecret = "xyz"

type testEnv struct {
	srv     *Server
	handler http.Handler
	docs    *docstore.Client
	spy     *spyStore
	bus     *events.MemoryBus
	blobs   *blob.MemoryStore
	layer   *cache.Layer
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	spy := &spyStore{Store: memory.New()}
	params := &argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	docs := docstore.New(spy, schema.Builtin(), docstore.WithHasher(docstore.NewArgon2Hasher(params)))
	layer := cache.New(cache.WithTTL(time.Minute))
	bus := events.NewMemoryBus()
	t.Cleanup(func() { bus.Close() })
	blobs := blob.NewMemoryStore(MediaPath)

	if opts.Secret == "" {
		opts.Secret = testSecret
	}
	opts.Publisher = bus
	opts.Blobs = blobs
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	srv := New(docs, layer, opts)
	return &testEnv{
		srv:     srv,
		handler: srv.NewHTTPHandler(),
		docs:    docs,
		spy:     spy,
		bus:     bus,
		blobs:   blobs,
		layer:   layer,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return m
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, code int, msg string) {
	t.Helper()
	if rec.Code != code {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["error"]; got != msg {
		t.Fatalf("error = %q, want %q", got, msg)
	}
}

func createProduct(t *testing.T, e *testEnv, slug string, extra map[string]any) *store.Document {
	t.Helper()
	data := map[string]any{"name": slug, "slug": slug, "price": 10.0}
	for k, v := range extra {
		data[k] = v
	}
	doc, err := e.docs.Create(context.Background(), "products", data)
	if err != nil {
		t.Fatalf("create %s: %v", slug, err)
	}
	return doc
}

func TestCreateDocument(t *testing.T) {
	e := newTestEnv(t, Options{})

	rec := e.do(t, http.MethodPost, "/collections/products", map[string]any{
		"name": "Acme Mug", "slug": "acme-mug", "price": 12, "category": "accessories",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}
	doc, ok := decodeBody(t, rec)["doc"].(map[string]any)
	if !ok {
		t.Fatalf("missing doc: %s", rec.Body.String())
	}
	if id, _ := doc["id"].(string); id == "" {
		t.Error("id not generated")
	}
	for k, want := range map[string]any{
		"name": "Acme Mug", "slug": "acme-mug", "price": 12.0, "category": "accessories",
		"featured": false, "status": "draft",
	} {
		if doc[k] != want {
			t.Errorf("doc[%q] = %#v, want %#v", k, doc[k], want)
		}
	}
	if doc["createdAt"] == nil || doc["updatedAt"] == nil {
		t.Errorf("timestamps missing: %v", doc)
	}
}

func TestCreateDocument_Errors(t *testing.T) {
	e := newTestEnv(t, Options{})

	expectError(t, e.do(t, http.MethodPost, "/collections/products", "{not json"), http.StatusBadRequest, "Invalid JSON body")
	expectError(t, e.do(t, http.MethodPost, "/collections/products", "[1,2]"), http.StatusBadRequest, "Invalid JSON body")
	expectError(t, e.do(t, http.MethodPost, "/collections/nope", map[string]any{}), http.StatusNotFound, "Collection not found")

	rec := e.do(t, http.MethodPost, "/collections/products", map[string]any{"name": "Mug", "price": -1})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}
	msg, _ := decodeBody(t, rec)["error"].(string)
	if !strings.Contains(msg, "price") || !strings.Contains(msg, "slug") {
		t.Errorf("validation message = %q", msg)
	}

	createProduct(t, e, "mug", nil)
	rec = e.do(t, http.MethodPost, "/collections/products", map[string]any{"name": "Mug 2", "slug": "mug", "price": 1})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate slug status = %d", rec.Code)
	}

	rec = e.do(t, http.MethodPost, "/collections/products", map[string]any{"name": "X", "slug": "x", "price": "NaN"})
	expectError(t, rec, http.StatusBadRequest, "The following field is invalid: price")
	rec = e.do(t, http.MethodGet, "/collections/products", nil)
	if rec.Code != http.StatusOK || decodeBody(t, rec)["totalDocs"] != 1.0 {
		t.Errorf("list after rejected create: %d %s", rec.Code, rec.Body.String())
	}
}

func TestCreateDocument_StripsEmptyStrings(t *testing.T) {
	e := newTestEnv(t, Options{})
	rec := e.do(t, http.MethodPost, "/collections/products", map[string]any{
		"name": "Mug", "slug": "mug", "price": 0, "description": "",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}
	doc := decodeBody(t, rec)["doc"].(map[string]any)
	if _, ok := doc["description"]; ok {
		t.Error("empty description should be dropped")
	}
	if doc["price"] != 0.0 {
		t.Errorf("price = %#v, zero must be kept", doc["price"])
	}
}

func TestListDocuments_Pagination(t *testing.T) {
	e := newTestEnv(t, Options{})
	for _, slug := range []string{"a", "b", "c", "d", "e"} {
		createProduct(t, e, slug, nil)
	}

	rec := e.do(t, http.MethodGet, "/collections/products?limit=2&page=1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if docs := body["docs"].([]any); len(docs) != 2 {
		t.Errorf("docs = %d, want 2", len(docs))
	}
	if body["totalDocs"] != 5.0 || body["totalPages"] != 3.0 || body["page"] != 1.0 {
		t.Errorf("envelope = %v", body)
	}
	if body["hasNextPage"] != true || body["hasPrevPage"] != false {
		t.Errorf("flags = %v/%v", body["hasNextPage"], body["hasPrevPage"])
	}

	rec = e.do(t, http.MethodGet, "/collections/products?limit=2&page=3", nil)
	body = decodeBody(t, rec)
	if docs := body["docs"].([]any); len(docs) != 1 || body["hasNextPage"] != false || body["hasPrevPage"] != true {
		t.Errorf("last page = %v", body)
	}
}

func TestListDocuments_ClampsPaging(t *testing.T) {
	e := newTestEnv(t, Options{})
	for _, q := range []string{"", "?limit=abc&page=xyz", "?limit=0&page=0", "?limit=-5&page=-2"} {
		rec := e.do(t, http.MethodGet, "/collections/products"+q, nil)
		body := decodeBody(t, rec)
		if body["limit"] != 20.0 || body["page"] != 1.0 || body["totalPages"] != 0.0 {
			t.Errorf("%q: envelope = %v", q, body)
		}
		if docs, ok := body["docs"].([]any); !ok || len(docs) != 0 {
			t.Errorf("%q: docs = %v", q, body["docs"])
		}
	}
}

func TestListDocuments_PageBeyondRange(t *testing.T) {
	e := newTestEnv(t, Options{})
	createProduct(t, e, "mug", nil)

	for _, q := range []string{"?limit=20&page=9223372036854775807", "?limit=100&page=92233720368547758"} {
		rec := e.do(t, http.MethodGet, "/collections/products"+q, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%q: status = %d; body: %s", q, rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		if docs := body["docs"].([]any); len(docs) != 0 {
			t.Errorf("%q: docs = %d, want empty page", q, len(docs))
		}
		if body["totalDocs"] != 1.0 || body["hasNextPage"] != false || body["hasPrevPage"] != true {
			t.Errorf("%q: envelope = %v", q, body)
		}
	}
}

func TestListDocuments_WhereAndSort(t *testing.T) {
	e := newTestEnv(t, Options{})
	createProduct(t, e, "cheap", map[string]any{"price": 1.0, "featured": true})
	createProduct(t, e, "pricey", map[string]any{"price": 99.0, "featured": true})
	createProduct(t, e, "plain", map[string]any{"price": 5.0})

	rec := e.do(t, http.MethodGet, "/collections/products?where[featured]=true&sort=-price", nil)
	body := decodeBody(t, rec)
	docs := body["docs"].([]any)
	if len(docs) != 2 {
		t.Fatalf("docs = %v", docs)
	}
	if docs[0].(map[string]any)["slug"] != "pricey" {
		t.Errorf("first = %v, want pricey", docs[0])
	}

	rec = e.do(t, http.MethodGet, "/collections/products?where[colour]=red", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown where field status = %d", rec.Code)
	}
}

func TestListDocuments_StoreFault(t *testing.T) {
	e := newTestEnv(t, Options{})
	e.spy.findErr = errors.New("connection reset")
	expectError(t, e.do(t, http.MethodGet, "/collections/products", nil), http.StatusInternalServerError, "Failed to fetch collection")
	expectError(t, e.do(t, http.MethodGet, "/collections/nope", nil), http.StatusNotFound, "Collection not found")
}

func TestGetDocument(t *testing.T) {
	e := newTestEnv(t, Options{})
	doc := createProduct(t, e, "mug", nil)

	rec := e.do(t, http.MethodGet, "/collections/products/"+doc.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeBody(t, rec)["doc"].(map[string]any)["id"]; got != doc.ID {
		t.Errorf("id = %v", got)
	}
	expectError(t, e.do(t, http.MethodGet, "/collections/products/missing", nil), http.StatusNotFound, "Document not found")
}

func TestUpdateDocument(t *testing.T) {
	e := newTestEnv(t, Options{})
	doc := createProduct(t, e, "mug", map[string]any{"description": "old"})

	rec := e.do(t, http.MethodPut, "/collections/products", map[string]any{
		"id": doc.ID, "name": "Big Mug", "description": "", "category": nil,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}
	got := decodeBody(t, rec)["doc"].(map[string]any)
	if got["name"] != "Big Mug" || got["slug"] != "mug" {
		t.Errorf("doc = %v", got)
	}
	if got["description"] != "old" {
		t.Errorf("empty string must not clear a field, got %v", got["description"])
	}
}

func TestUpdateDocument_MissingID(t *testing.T) {
	e := newTestEnv(t, Options{})
	before := e.spy.calls.Load()
	expectError(t, e.do(t, http.MethodPut, "/collections/products", map[string]any{"name": "X"}), http.StatusBadRequest, "Document ID is required")
	expectError(t, e.do(t, http.MethodPut, "/collections/products", map[string]any{"id": "", "name": "X"}), http.StatusBadRequest, "Document ID is required")
	expectError(t, e.do(t, http.MethodPut, "/collections/products", map[string]any{"id": 7, "name": "X"}), http.StatusBadRequest, "Document ID is required")
	if e.spy.calls.Load() != before {
		t.Error("store was called without an id")
	}
}

func TestUpdateDocument_UnknownID(t *testing.T) {
	e := newTestEnv(t, Options{})
	expectError(t, e.do(t, http.MethodPut, "/collections/products", map[string]any{"id": "missing-id", "name": "X"}),
		http.StatusInternalServerError, "Failed to update document")

	n, err := e.docs.Count(context.Background(), "products", nil)
	if err != nil || n != 0 {
		t.Errorf("count = %d, %v; update must not create documents", n, err)
	}
}

func TestUpdateDocument_ValidationLeavesDocument(t *testing.T) {
	e := newTestEnv(t, Options{})
	doc := createProduct(t, e, "mug", nil)

	rec := e.do(t, http.MethodPut, "/collections/products", map[string]any{"id": doc.ID, "name": "New", "price": -3})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	stored, err := e.docs.FindByID(context.Background(), "products", doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Data["name"] != "mug" || stored.Data["price"] != 10.0 {
		t.Errorf("partial mutation: %v", stored.Data)
	}
}

func TestDeleteDocument(t *testing.T) {
	e := newTestEnv(t, Options{})
	doc := createProduct(t, e, "mug", nil)

	rec := e.do(t, http.MethodDelete, "/collections/products?id="+doc.ID, nil)
	if rec.Code != http.StatusOK || decodeBody(t, rec)["success"] != true {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}
	expectError(t, e.do(t, http.MethodDelete, "/collections/products?id="+doc.ID, nil),
		http.StatusInternalServerError, "Failed to delete document")
}

func TestDeleteDocument_MissingID(t *testing.T) {
	e := newTestEnv(t, Options{})
	before := e.spy.calls.Load()
	expectError(t, e.do(t, http.MethodDelete, "/collections/products", nil), http.StatusBadRequest, "Document ID is required")
	if e.spy.calls.Load() != before {
		t.Error("store was called without an id")
	}
}

func TestWritesPublishChanges(t *testing.T) {
	e := newTestEnv(t, Options{})
	ch, cancel, err := e.bus.Subscribe(events.TopicAll)
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	next := func() events.Change {
		t.Helper()
		select {
		case msg := <-ch:
			var c events.Change
			if err := json.Unmarshal(msg, &c); err != nil {
				t.Fatal(err)
			}
			return c
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for change event")
			return events.Change{}
		}
	}

	rec := e.do(t, http.MethodPost, "/collections/pages", map[string]any{"title": "Home", "slug": "home"})
	id := decodeBody(t, rec)["doc"].(map[string]any)["id"].(string)
	if c := next(); c != (events.Change{Collection: "pages", Operation: events.OpCreate, ID: id}) {
		t.Errorf("create event = %+v", c)
	}

	e.do(t, http.MethodPut, "/collections/pages", map[string]any{"id": id, "title": "Start"})
	if c := next(); c.Operation != events.OpUpdate || c.ID != id {
		t.Errorf("update event = %+v", c)
	}

	e.do(t, http.MethodPost, "/globals/site-settings", map[string]any{"siteName": "Shop"})
	if c := next(); c != (events.Change{Collection: "site-settings", Operation: events.OpUpdate}) {
		t.Errorf("global event = %+v", c)
	}

	e.do(t, http.MethodDelete, "/collections/pages?id="+id, nil)
	if c := next(); c.Operation != events.OpDelete || c.ID != id {
		t.Errorf("delete event = %+v", c)
	}

	// Failed writes publish nothing.
	e.do(t, http.MethodPost, "/collections/pages", map[string]any{})
	select {
	case msg := <-ch:
		t.Errorf("unexpected event %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestGlobals(t *testing.T) {
	e := newTestEnv(t, Options{})

	rec := e.do(t, http.MethodGet, "/globals/site-settings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if g := decodeBody(t, rec)["global"].(map[string]any); g["globalType"] != "site-settings" {
		t.Errorf("global = %v", g)
	}

	rec = e.do(t, http.MethodPost, "/globals/site-settings", map[string]any{"tagline": "hi"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("first write without required field: status = %d", rec.Code)
	}

	rec = e.do(t, http.MethodPost, "/globals/site-settings", map[string]any{"siteName": "Shop", "tagline": ""})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}
	g := decodeBody(t, rec)["global"].(map[string]any)
	if g["siteName"] != "Shop" || g["updatedAt"] == nil {
		t.Errorf("global = %v", g)
	}
	if _, ok := g["tagline"]; ok {
		t.Error("empty tagline should be dropped")
	}

	expectError(t, e.do(t, http.MethodGet, "/globals/nope", nil), http.StatusNotFound, "Global not found")
	expectError(t, e.do(t, http.MethodPost, "/globals/nope", map[string]any{}), http.StatusNotFound, "Global not found")
	expectError(t, e.do(t, http.MethodPost, "/globals/site-settings", "nope"), http.StatusBadRequest, "Invalid JSON body")
}

func TestAdminAuth(t *testing.T) {
	e := newTestEnv(t, Options{AuthToken: "tok"})
	body := map[string]any{"name": "Mug", "slug": "mug", "price": 1}

	if rec := e.do(t, http.MethodPost, "/collections/products", body); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d", rec.Code)
	}
	if rec := e.do(t, http.MethodPost, "/collections/products", body, "Authorization", "Bearer tok"); rec.Code != http.StatusCreated {
		t.Errorf("with token: status = %d", rec.Code)
	}
	if rec := e.do(t, http.MethodGet, "/collections/products", nil); rec.Code != http.StatusOK {
		t.Errorf("reads stay public: status = %d", rec.Code)
	}
	if rec := e.do(t, http.MethodGet, "/cache/stats", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("stats without token: status = %d", rec.Code)
	}
	if rec := e.do(t, http.MethodGet, "/cache/stats", nil, "Authorization", "Bearer tok"); rec.Code != http.StatusOK {
		t.Errorf("stats with token: status = %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t, Options{})
	rec := e.do(t, http.MethodGet, "/health", nil)
	body := decodeBody(t, rec)
	if rec.Code != http.StatusOK || body["status"] != "success" {
		t.Fatalf("health = %d %v", rec.Code, body)
	}
	if cols := body["collections"].([]any); len(cols) != 5 {
		t.Errorf("collections = %v", cols)
	}
}

func TestCacheStats(t *testing.T) {
	e := newTestEnv(t, Options{})
	e.srv.Queries().Products(context.Background(), content.ProductOptions{})

	rec := e.do(t, http.MethodGet, "/cache/stats", nil)
	body := decodeBody(t, rec)
	stats := body["cache"].(map[string]any)
	if stats["computes"] != 1.0 || body["invalidator"] != "idle" {
		t.Errorf("stats = %v", body)
	}
}
