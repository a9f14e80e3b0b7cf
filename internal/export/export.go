// Package export writes the catalog as JSONL and ships it to destinations,
// either on demand or on a fixed interval.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alfredjeanlab/catalog/internal/docstore"
	"github.com/alfredjeanlab/catalog/internal/schema"
	"github.com/alfredjeanlab/catalog/internal/store"
)

// Source is the read side of the document store client.
type Source interface {
	Schema() *schema.Registry
	Find(ctx context.Context, collection string, opts docstore.FindOptions) (*store.Result, error)
	FindGlobal(ctx context.Context, slug string) (*store.GlobalDoc, error)
}

// Compile-time check that the store client is a Source.
var _ Source = (*docstore.Client)(nil)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version       string         `json:"version"`
	Type          string         `json:"type"`
	Timestamp     time.Time      `json:"timestamp"`
	DocumentCount int            `json:"document_count"`
	GlobalCount   int            `json:"global_count"`
	Collections   map[string]int `json:"collections"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type       string `json:"type"`
	Collection string `json:"collection,omitempty"`
	Data       any    `json:"data"`
}

// ExportJSONL writes every document of every collection, then every global
// that has been written, as JSONL to w. Collections follow schema
// declaration order and documents are ordered by ID. Hidden fields are not
// exported.
func ExportJSONL(ctx context.Context, src Source, w io.Writer) error {
	reg := src.Schema()

	type batch struct {
		slug string
		docs []*store.Document
	}
	var batches []batch
	counts := make(map[string]int)
	total := 0
	for _, col := range reg.Collections() {
		docs, err := allDocuments(ctx, src, col.Slug)
		if err != nil {
			return err
		}
		batches = append(batches, batch{slug: col.Slug, docs: docs})
		counts[col.Slug] = len(docs)
		total += len(docs)
	}

	var globals []*store.GlobalDoc
	for _, g := range reg.Globals() {
		doc, err := src.FindGlobal(ctx, g.Slug)
		if err != nil {
			return fmt.Errorf("find global %s: %w", g.Slug, err)
		}
		if doc.UpdatedAt.IsZero() {
			continue
		}
		globals = append(globals, doc)
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:       "1",
		Type:          "header",
		Timestamp:     time.Now().UTC(),
		DocumentCount: total,
		GlobalCount:   len(globals),
		Collections:   counts,
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, b := range batches {
		for _, d := range b.docs {
			if err := enc.Encode(record{Type: "document", Collection: b.slug, Data: d}); err != nil {
				return fmt.Errorf("encode document %s/%s: %w", b.slug, d.ID, err)
			}
		}
	}

	for _, g := range globals {
		if err := enc.Encode(record{Type: "global", Data: g}); err != nil {
			return fmt.Errorf("encode global %s: %w", g.Slug, err)
		}
	}

	return nil
}

// allDocuments pages through a collection at the maximum page size.
func allDocuments(ctx context.Context, src Source, collection string) ([]*store.Document, error) {
	var out []*store.Document
	for page := 1; ; page++ {
		res, err := src.Find(ctx, collection, docstore.FindOptions{
			Sort:  store.KeyID,
			Page:  page,
			Limit: store.MaxLimit,
		})
		if err != nil {
			return nil, fmt.Errorf("find %s page %d: %w", collection, page, err)
		}
		out = append(out, res.Docs...)
		if !res.HasNextPage {
			return out, nil
		}
	}
}
