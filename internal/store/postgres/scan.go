package postgres

import (
	"encoding/json"

	"github.com/alfredjeanlab/catalog/internal/store"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanDocument scans a single row into a store.Document.
// The row must contain columns in the order defined by documentColumns.
func scanDocument(row scannable) (*store.Document, error) {
	var (
		d    store.Document
		data []byte
	)
	if err := row.Scan(&d.ID, &d.Collection, &data, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	m, err := decodeData(data)
	if err != nil {
		return nil, err
	}
	d.Data = m
	return &d, nil
}

// scanGlobal scans a (slug, data, updated_at) row into a store.GlobalDoc.
func scanGlobal(row scannable) (*store.GlobalDoc, error) {
	var (
		g    store.GlobalDoc
		data []byte
	)
	if err := row.Scan(&g.Slug, &data, &g.UpdatedAt); err != nil {
		return nil, err
	}
	m, err := decodeData(data)
	if err != nil {
		return nil, err
	}
	g.Data = m
	return &g, nil
}

func decodeData(b []byte) (map[string]any, error) {
	m := map[string]any{}
	if len(b) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// jsonbText encodes v for a ::jsonb cast. A nil map encodes as {}.
func jsonbText(v map[string]any) (string, error) {
	if v == nil {
		return "{}", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
