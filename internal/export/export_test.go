package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/alfredjeanlab/catalog/internal/docstore"
	"github.com/alfredjeanlab/catalog/internal/schema"
	"github.com/alfredjeanlab/catalog/internal/store"
	"github.com/alfredjeanlab/catalog/internal/store/memory"
)

func newTestSource(t *testing.T) *docstore.Client {
	t.Helper()
	return docstore.New(memory.New(), schema.Builtin())
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

func TestExportJSONL_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), newTestSource(t), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	if len(lines) != 1 {
		t.Fatalf("expected 1 line (header only), got %d", len(lines))
	}

	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.Version != "1" || h.Type != "header" || h.DocumentCount != 0 || h.GlobalCount != 0 {
		t.Fatalf("unexpected header: %+v", h)
	}
}

func TestExportJSONL_DocumentsAndGlobals(t *testing.T) {
	ctx := context.Background()
	src := newTestSource(t)

	for _, slug := range []string{"about", "home"} {
		if _, err := src.Create(ctx, "pages", map[string]any{"title": slug, "slug": slug}); err != nil {
			t.Fatalf("create page: %v", err)
		}
	}
	if _, err := src.Create(ctx, "products", map[string]any{"name": "Mug", "slug": "mug", "price": 12.0}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	if _, err := src.UpdateGlobal(ctx, "site-settings", map[string]any{"siteName": "Shop"}); err != nil {
		t.Fatalf("update global: %v", err)
	}

	var buf bytes.Buffer
	if err := ExportJSONL(ctx, src, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	// 1 header + 3 documents + 1 global (navigation was never written)
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d:\n%s", len(lines), buf.String())
	}

	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.DocumentCount != 3 || h.GlobalCount != 1 || h.Collections["pages"] != 2 || h.Collections["products"] != 1 {
		t.Errorf("unexpected header: %+v", h)
	}

	var first, second struct {
		Type       string         `json:"type"`
		Collection string         `json:"collection"`
		Data       map[string]any `json:"data"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &first); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(lines[2]), &second); err != nil {
		t.Fatal(err)
	}
	if first.Type != "document" || first.Collection != "pages" {
		t.Errorf("line 1 = %+v", first)
	}
	if first.Data["id"].(string) > second.Data["id"].(string) {
		t.Errorf("documents not ordered by id: %v, %v", first.Data["id"], second.Data["id"])
	}

	var last struct {
		Type string         `json:"type"`
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal([]byte(lines[4]), &last); err != nil {
		t.Fatal(err)
	}
	if last.Type != "global" || last.Data["globalType"] != "site-settings" || last.Data["siteName"] != "Shop" {
		t.Errorf("global line = %+v", last)
	}
}

func TestExportJSONL_Paginates(t *testing.T) {
	ctx := context.Background()
	src := newTestSource(t)
	n := store.MaxLimit + 5
	for i := range n {
		slug := fmt.Sprintf("p-%03d", i)
		if _, err := src.Create(ctx, "pages", map[string]any{"title": slug, "slug": slug}); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	if err := ExportJSONL(ctx, src, &buf); err != nil {
		t.Fatal(err)
	}
	if got := len(nonEmptyLines(buf.String())); got != n+1 {
		t.Errorf("lines = %d, want %d", got, n+1)
	}
}

func TestExportJSONL_OmitsHiddenFields(t *testing.T) {
	ctx := context.Background()
	src := docstore.New(memory.New(), schema.Builtin(), docstore.WithHasher(fakeHasher{}))
	if _, err := src.Create(ctx, "users", map[string]any{"email": "a@example.com", "password": "secret"}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := ExportJSONL(ctx, src, &buf); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "hashed:") || strings.Contains(buf.String(), "secret") {
		t.Errorf("credential material exported:\n%s", buf.String())
	}
}

type fakeHasher struct{}

func (fakeHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }
func (fakeHasher) Verify(plain, hash string) (bool, error) { return hash == "hashed:"+plain, nil }

type failingSource struct{ *docstore.Client }

func (failingSource) Find(context.Context, string, docstore.FindOptions) (*store.Result, error) {
	return nil, errors.New("connection refused")
}

func TestExportJSONL_SourceError(t *testing.T) {
	var buf bytes.Buffer
	err := ExportJSONL(context.Background(), failingSource{newTestSource(t)}, &buf)
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("err = %v", err)
	}
	if buf.Len() != 0 {
		t.Error("partial output written on error")
	}
}
