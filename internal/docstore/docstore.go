// Package docstore is the document store client. It applies the schema
// registry's rules (coercion, defaults, validation, uniqueness, credential
// hashing) on top of a store.Store engine. It owns no caching.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alfredjeanlab/catalog/internal/idgen"
	"github.com/alfredjeanlab/catalog/internal/schema"
	"github.com/alfredjeanlab/catalog/internal/store"
)

// ErrMissingID is returned when an operation needs a document ID and none
// was given.
var ErrMissingID = errors.New("document ID is required")

// Client performs schema-checked operations against a store engine.
type Client struct {
	store  store.Store
	schema *schema.Registry
	hasher Hasher
	now    func() time.Time
	newID  func() (string, error)
}

// Option configures a Client.
type Option func(*Client)

// WithHasher replaces the default argon2id hasher.
func WithHasher(h Hasher) Option {
	return func(c *Client) { c.hasher = h }
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New returns a client for s governed by reg.
func New(s store.Store, reg *schema.Registry, opts ...Option) *Client {
	c := &Client{
		store:  s,
		schema: reg,
		hasher: NewArgon2Hasher(nil),
		now:    time.Now,
		newID:  idgen.NewID,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Schema returns the registry the client enforces.
func (c *Client) Schema() *schema.Registry {
	return c.schema
}

func (c *Client) collection(slug string) (*schema.Collection, error) {
	col, ok := c.schema.Collection(slug)
	if !ok {
		return nil, fmt.Errorf("collection %q: %w", slug, store.ErrUnknownCollection)
	}
	return col, nil
}

func (c *Client) global(slug string) (*schema.Global, error) {
	g, ok := c.schema.Global(slug)
	if !ok {
		return nil, fmt.Errorf("global %q: %w", slug, store.ErrUnknownCollection)
	}
	return g, nil
}

// FindByID returns one document.
func (c *Client) FindByID(ctx context.Context, collection, id string) (*store.Document, error) {
	col, err := c.collection(collection)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ErrMissingID
	}
	d, err := c.store.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	return present(col.Fields, d), nil
}

// Create validates data and inserts it as a new document. Defaults apply
// here and nowhere else.
func (c *Client) Create(ctx context.Context, collection string, data map[string]any) (*store.Document, error) {
	col, err := c.collection(collection)
	if err != nil {
		return nil, err
	}
	doc, err := prepareInput(col.Fields, data)
	if err != nil {
		return nil, err
	}
	schema.Coerce(col.Fields, doc)
	schema.ApplyDefaults(col.Fields, doc)
	if err := schema.Validate(col.Fields, doc, schema.ModeCreate); err != nil {
		return nil, err
	}
	dropNulls(doc)
	if err := c.checkUnique(ctx, col, doc, ""); err != nil {
		return nil, err
	}
	if err := c.hashCredentials(col, doc); err != nil {
		return nil, err
	}

	id, err := c.newID()
	if err != nil {
		return nil, err
	}
	now := c.now().UTC()
	d := &store.Document{ID: id, Collection: collection, Data: doc, CreatedAt: now, UpdatedAt: now}
	if err := c.store.Insert(ctx, d); err != nil {
		return nil, fmt.Errorf("create %s: %w", collection, err)
	}
	return present(col.Fields, d), nil
}

// Update merges patch into the stored document. Keys absent from patch keep
// their value; a null value removes the key. Defaults are not applied.
func (c *Client) Update(ctx context.Context, collection, id string, patch map[string]any) (*store.Document, error) {
	col, err := c.collection(collection)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ErrMissingID
	}
	existing, err := c.store.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	p, err := prepareInput(col.Fields, patch)
	if err != nil {
		return nil, err
	}
	schema.Coerce(col.Fields, p)
	if err := schema.Validate(col.Fields, p, schema.ModeUpdate); err != nil {
		return nil, err
	}

	merged := store.CloneData(existing.Data)
	if merged == nil {
		merged = map[string]any{}
	}
	changed := make(map[string]any, len(p))
	for k, v := range p {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
		changed[k] = v
	}
	if err := c.checkUnique(ctx, col, changed, id); err != nil {
		return nil, err
	}
	if err := c.hashCredentials(col, merged); err != nil {
		return nil, err
	}

	d := &store.Document{
		ID:         id,
		Collection: collection,
		Data:       merged,
		CreatedAt:  existing.CreatedAt,
		UpdatedAt:  c.now().UTC(),
	}
	if err := c.store.Replace(ctx, d); err != nil {
		return nil, fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return present(col.Fields, d), nil
}

// Delete removes a document and returns it as it was.
func (c *Client) Delete(ctx context.Context, collection, id string) (*store.Document, error) {
	col, err := c.collection(collection)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ErrMissingID
	}
	d, err := c.store.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	if err := c.store.Delete(ctx, collection, id); err != nil {
		return nil, err
	}
	return present(col.Fields, d), nil
}

// FindGlobal returns the stored global, or an empty one when it has never
// been written.
func (c *Client) FindGlobal(ctx context.Context, slug string) (*store.GlobalDoc, error) {
	g, err := c.global(slug)
	if err != nil {
		return nil, err
	}
	doc, err := c.store.GetGlobal(ctx, slug)
	if errors.Is(err, store.ErrNotFound) {
		return &store.GlobalDoc{Slug: slug, Data: map[string]any{}}, nil
	}
	if err != nil {
		return nil, err
	}
	doc.Data = stripHidden(g.Fields, doc.Data)
	return doc, nil
}

// UpdateGlobal merges patch into the global, creating it on first write.
// The first write applies defaults and enforces every required field.
func (c *Client) UpdateGlobal(ctx context.Context, slug string, patch map[string]any) (*store.GlobalDoc, error) {
	g, err := c.global(slug)
	if err != nil {
		return nil, err
	}
	p, err := prepareInput(g.Fields, patch)
	if err != nil {
		return nil, err
	}
	schema.Coerce(g.Fields, p)

	existing, err := c.store.GetGlobal(ctx, slug)
	switch {
	case errors.Is(err, store.ErrNotFound):
		schema.ApplyDefaults(g.Fields, p)
		if err := schema.Validate(g.Fields, p, schema.ModeCreate); err != nil {
			return nil, err
		}
		dropNulls(p)
		existing = &store.GlobalDoc{Slug: slug, Data: map[string]any{}}
	case err != nil:
		return nil, err
	default:
		if err := schema.Validate(g.Fields, p, schema.ModeUpdate); err != nil {
			return nil, err
		}
	}

	merged := store.CloneData(existing.Data)
	if merged == nil {
		merged = map[string]any{}
	}
	for k, v := range p {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	doc := &store.GlobalDoc{Slug: slug, Data: merged, UpdatedAt: c.now().UTC()}
	if err := c.store.PutGlobal(ctx, doc); err != nil {
		return nil, fmt.Errorf("update global %s: %w", slug, err)
	}
	out := doc.Clone()
	out.Data = stripHidden(g.Fields, out.Data)
	return out, nil
}

// checkUnique verifies that no other document holds the same value in any
// unique field set in doc.
func (c *Client) checkUnique(ctx context.Context, col *schema.Collection, doc map[string]any, excludeID string) error {
	var ve schema.ValidationError
	for _, f := range col.Fields {
		if !f.Unique {
			continue
		}
		v, ok := doc[f.Name]
		if !ok || v == nil {
			continue
		}
		taken, err := c.store.Exists(ctx, col.Slug, f.Name, v, excludeID)
		if err != nil {
			return fmt.Errorf("check unique %s.%s: %w", col.Slug, f.Name, err)
		}
		if taken {
			ve.Add(f.Name, "value must be unique")
		}
	}
	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// hashCredentials replaces a plaintext password with its hash on auth
// collections.
func (c *Client) hashCredentials(col *schema.Collection, doc map[string]any) error {
	if !col.Auth {
		return nil
	}
	plain, ok := doc[schema.FieldPassword].(string)
	delete(doc, schema.FieldPassword)
	if !ok {
		return nil
	}
	h, err := c.hasher.Hash(plain)
	if err != nil {
		return fmt.Errorf("hash credential: %w", err)
	}
	doc[schema.FieldHash] = h
	return nil
}

// VerifyCredential reports whether plain matches the stored hash of the
// given auth-collection document.
func (c *Client) VerifyCredential(ctx context.Context, collection, id, plain string) (bool, error) {
	col, err := c.collection(collection)
	if err != nil {
		return false, err
	}
	if !col.Auth {
		return false, fmt.Errorf("collection %q does not hold credentials", collection)
	}
	d, err := c.store.Get(ctx, collection, id)
	if err != nil {
		return false, err
	}
	hash, _ := d.Data[schema.FieldHash].(string)
	if hash == "" {
		return false, nil
	}
	return c.hasher.Verify(plain, hash)
}

// prepareInput canonicalizes caller data into decoded-JSON form and drops
// store-managed and hidden keys.
func prepareInput(fields []schema.Field, data map[string]any) (map[string]any, error) {
	out, err := canonical(data)
	if err != nil {
		return nil, err
	}
	for k := range out {
		if store.IsReserved(k) {
			delete(out, k)
		}
	}
	for _, f := range fields {
		if f.Hidden {
			delete(out, f.Name)
		}
	}
	return out, nil
}

// canonical round-trips data through encoding/json so numbers are float64
// and nested values are plain maps and slices.
func canonical(data map[string]any) (map[string]any, error) {
	out := map[string]any{}
	if len(data) == 0 {
		return out, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return out, nil
}

func dropNulls(doc map[string]any) {
	for k, v := range doc {
		if v == nil {
			delete(doc, k)
		}
	}
}

// present returns a copy of d safe to hand to callers.
func present(fields []schema.Field, d *store.Document) *store.Document {
	out := d.Clone()
	out.Data = stripHidden(fields, out.Data)
	return out
}

func stripHidden(fields []schema.Field, data map[string]any) map[string]any {
	for _, f := range fields {
		if f.Hidden || f.WriteOnly {
			delete(data, f.Name)
		}
	}
	return data
}
