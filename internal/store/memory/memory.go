// Package memory implements the store.Store interface in process memory.
// It backs the server when no database URL is configured and serves as the
// engine for tests.
package memory

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/alfredjeanlab/catalog/internal/store"
)

// MemoryStore holds documents and globals in maps guarded by a RWMutex.
// Values are deep-copied on the way in and out.
type MemoryStore struct {
	mu      sync.RWMutex
	docs    map[string]map[string]*store.Document // collection -> id -> doc
	globals map[string]*store.GlobalDoc
}

// Compile-time check that MemoryStore implements store.Store.
var _ store.Store = (*MemoryStore)(nil)

// New returns an empty store.
func New() *MemoryStore {
	return &MemoryStore{
		docs:    make(map[string]map[string]*store.Document),
		globals: make(map[string]*store.GlobalDoc),
	}
}

func (s *MemoryStore) Find(ctx context.Context, collection string, q store.Query) ([]*store.Document, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	matched := s.match(collection, q.Where)
	s.mu.RUnlock()

	sortDocs(matched, q.Sort)

	total := len(matched)
	start := q.Offset()
	if start > total {
		start = total
	}
	end := total
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}
	page := make([]*store.Document, 0, end-start)
	for _, d := range matched[start:end] {
		page = append(page, d.Clone())
	}
	return page, total, nil
}

func (s *MemoryStore) Count(ctx context.Context, collection string, where map[string]any) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.match(collection, where)), nil
}

// match returns the documents of collection satisfying every equality in
// where. The caller must hold s.mu.
func (s *MemoryStore) match(collection string, where map[string]any) []*store.Document {
	var out []*store.Document
	for _, d := range s.docs[collection] {
		if matches(d, where) {
			out = append(out, d)
		}
	}
	return out
}

func matches(d *store.Document, where map[string]any) bool {
	for k, want := range where {
		if !reflect.DeepEqual(fieldValue(d, k), want) {
			return false
		}
	}
	return true
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (*store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[collection][id]
	if !ok {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, store.ErrNotFound)
	}
	return d.Clone(), nil
}

func (s *MemoryStore) Insert(ctx context.Context, doc *store.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.docs[doc.Collection]
	if !ok {
		col = make(map[string]*store.Document)
		s.docs[doc.Collection] = col
	}
	if _, dup := col[doc.ID]; dup {
		return fmt.Errorf("insert %s/%s: duplicate id", doc.Collection, doc.ID)
	}
	col[doc.ID] = doc.Clone()
	return nil
}

func (s *MemoryStore) Replace(ctx context.Context, doc *store.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.docs[doc.Collection][doc.ID]
	if !ok {
		return fmt.Errorf("replace %s/%s: %w", doc.Collection, doc.ID, store.ErrNotFound)
	}
	next := doc.Clone()
	next.CreatedAt = prev.CreatedAt
	s.docs[doc.Collection][doc.ID] = next
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[collection][id]; !ok {
		return fmt.Errorf("delete %s/%s: %w", collection, id, store.ErrNotFound)
	}
	delete(s.docs[collection], id)
	return nil
}

func (s *MemoryStore) Exists(ctx context.Context, collection, field string, value any, excludeID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, d := range s.docs[collection] {
		if id == excludeID {
			continue
		}
		if v, ok := d.Data[field]; ok && reflect.DeepEqual(v, value) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) GetGlobal(ctx context.Context, slug string) (*store.GlobalDoc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.globals[slug]
	if !ok {
		return nil, fmt.Errorf("get global %s: %w", slug, store.ErrNotFound)
	}
	return g.Clone(), nil
}

func (s *MemoryStore) PutGlobal(ctx context.Context, g *store.GlobalDoc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.globals[g.Slug] = g.Clone()
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

// fieldValue resolves a sort or filter key against a document, mapping the
// reserved keys to document metadata.
func fieldValue(d *store.Document, key string) any {
	switch key {
	case store.KeyID:
		return d.ID
	case store.KeyCreatedAt:
		return d.CreatedAt
	case store.KeyUpdatedAt:
		return d.UpdatedAt
	}
	return d.Data[key]
}

// sortDocs orders docs by the sort order, newest first when order is empty.
// Ties fall back to the document ID so pages are stable.
func sortDocs(docs []*store.Document, order string) {
	if order == "" {
		order = "-" + store.KeyCreatedAt
	}
	desc := strings.HasPrefix(order, "-")
	key := strings.TrimPrefix(order, "-")
	sort.SliceStable(docs, func(i, j int) bool {
		c := compareValues(fieldValue(docs[i], key), fieldValue(docs[j], key))
		if c == 0 {
			return docs[i].ID < docs[j].ID
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}
