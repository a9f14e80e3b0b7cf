package docstore

import (
	"context"
	"strings"

	"github.com/alfredjeanlab/catalog/internal/schema"
	"github.com/alfredjeanlab/catalog/internal/store"
)

// FindOptions selects a page of documents.
type FindOptions struct {
	Where map[string]any // top-level equality filters
	Sort  string         // field, or -field for descending
	Page  int
	Limit int
}

// Find returns one page of documents. Page and limit are clamped to the
// store defaults. Filter values are coerced to their field types, so
// query-string values such as "true" or "12" match stored booleans and
// numbers.
func (c *Client) Find(ctx context.Context, collection string, opts FindOptions) (*store.Result, error) {
	col, err := c.collection(collection)
	if err != nil {
		return nil, err
	}
	where, err := c.filter(col, opts.Where)
	if err != nil {
		return nil, err
	}
	if err := checkSort(col, opts.Sort); err != nil {
		return nil, err
	}

	page, limit := store.ClampPage(opts.Page, opts.Limit)
	docs, total, err := c.store.Find(ctx, collection, store.Query{
		Where: where,
		Sort:  opts.Sort,
		Page:  page,
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}
	for i, d := range docs {
		docs[i] = present(col.Fields, d)
	}
	return store.NewResult(docs, total, page, limit), nil
}

// Count returns the number of documents matching where.
func (c *Client) Count(ctx context.Context, collection string, where map[string]any) (int, error) {
	col, err := c.collection(collection)
	if err != nil {
		return 0, err
	}
	w, err := c.filter(col, where)
	if err != nil {
		return 0, err
	}
	return c.store.Count(ctx, collection, w)
}

// filter checks that every key names a filterable field and coerces the
// values. Group, array and opaque fields cannot be filtered on.
func (c *Client) filter(col *schema.Collection, where map[string]any) (map[string]any, error) {
	if len(where) == 0 {
		return nil, nil
	}
	out, err := canonical(where)
	if err != nil {
		return nil, err
	}
	var ve schema.ValidationError
	for k := range out {
		f, ok := col.Field(k)
		switch {
		case !ok || f.Hidden || f.WriteOnly:
			ve.Add(k, "unknown field")
		case f.Kind == schema.KindGroup || f.Kind == schema.KindArray ||
			f.Kind == schema.KindRichText || f.Kind == schema.KindJSON:
			ve.Add(k, "cannot filter on "+string(f.Kind)+" fields")
		}
	}
	if ve.HasErrors() {
		return nil, &ve
	}
	schema.Coerce(col.Fields, out)
	return out, nil
}

func checkSort(col *schema.Collection, sort string) error {
	key := strings.TrimPrefix(sort, "-")
	if key == "" || store.IsReserved(key) {
		return nil
	}
	if f, ok := col.Field(key); ok && !f.Hidden && !f.WriteOnly {
		return nil
	}
	ve := &schema.ValidationError{}
	ve.Add("sort", "unknown field "+key)
	return ve
}
