// Package store defines the persistence interface for collection documents
// and globals, along with the types shared by every engine.
package store

import (
	"context"
	"errors"
	"math"
)

var (
	// ErrNotFound is returned when a document or global does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnknownCollection is returned for a slug the schema does not declare.
	ErrUnknownCollection = errors.New("unknown collection")
)

// Store defines the persistence interface for documents and globals.
// Engines store data verbatim; schema rules are applied by the caller.
type Store interface {
	// Documents
	Find(ctx context.Context, collection string, q Query) ([]*Document, int, error) // returns docs, total count, error
	Get(ctx context.Context, collection, id string) (*Document, error)
	Insert(ctx context.Context, doc *Document) error
	Replace(ctx context.Context, doc *Document) error
	Delete(ctx context.Context, collection, id string) error
	Count(ctx context.Context, collection string, where map[string]any) (int, error)

	// Exists reports whether another document in collection (other than
	// excludeID) holds value under field.
	Exists(ctx context.Context, collection, field string, value any, excludeID string) (bool, error)

	// Globals
	GetGlobal(ctx context.Context, slug string) (*GlobalDoc, error)
	PutGlobal(ctx context.Context, g *GlobalDoc) error

	// Lifecycle
	Close() error
}

// Query selects a page of documents. Where holds top-level equality
// filters. Sort names a data field or one of createdAt, updatedAt, id,
// optionally prefixed with "-" for descending order; the default is newest
// first. Page is 1-based.
type Query struct {
	Where map[string]any
	Sort  string
	Page  int
	Limit int
}

// Offset returns the number of documents skipped before the page starts.
// It saturates at math.MaxInt instead of overflowing, so a page far past
// the end is simply empty.
func (q Query) Offset() int {
	if q.Page < 1 || q.Limit < 1 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}
