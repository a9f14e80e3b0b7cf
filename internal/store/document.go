package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// Reserved document keys. They are owned by the store and never accepted
// as field data.
const (
	KeyID        = "id"
	KeyCreatedAt = "createdAt"
	KeyUpdatedAt = "updatedAt"
)

// IsReserved reports whether key is one of the store-managed keys.
func IsReserved(key string) bool {
	return key == KeyID || key == KeyCreatedAt || key == KeyUpdatedAt
}

// Document is one instance of a collection.
type Document struct {
	ID         string
	Collection string
	Data       map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MarshalJSON flattens the document: field data plus id, createdAt and
// updatedAt at the top level.
func (d *Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Data)+3)
	for k, v := range d.Data {
		out[k] = v
	}
	out[KeyID] = d.ID
	out[KeyCreatedAt] = d.CreatedAt.UTC().Format(time.RFC3339Nano)
	out[KeyUpdatedAt] = d.UpdatedAt.UTC().Format(time.RFC3339Nano)
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON. Collection is left empty.
func (d *Document) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	id, _ := raw[KeyID].(string)
	created, err := parseTime(raw[KeyCreatedAt])
	if err != nil {
		return fmt.Errorf("createdAt: %w", err)
	}
	updated, err := parseTime(raw[KeyUpdatedAt])
	if err != nil {
		return fmt.Errorf("updatedAt: %w", err)
	}
	delete(raw, KeyID)
	delete(raw, KeyCreatedAt)
	delete(raw, KeyUpdatedAt)
	d.ID, d.Data, d.CreatedAt, d.UpdatedAt = id, raw, created, updated
	return nil
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	c := *d
	c.Data = CloneData(d.Data)
	return &c
}

// GlobalDoc is the stored instance of a global.
type GlobalDoc struct {
	Slug      string
	Data      map[string]any
	UpdatedAt time.Time
}

// MarshalJSON flattens the global's data and adds globalType and updatedAt.
func (g *GlobalDoc) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(g.Data)+2)
	for k, v := range g.Data {
		out[k] = v
	}
	out["globalType"] = g.Slug
	if !g.UpdatedAt.IsZero() {
		out[KeyUpdatedAt] = g.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (g *GlobalDoc) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	slug, _ := raw["globalType"].(string)
	updated, err := parseTime(raw[KeyUpdatedAt])
	if err != nil {
		return fmt.Errorf("updatedAt: %w", err)
	}
	delete(raw, "globalType")
	delete(raw, KeyUpdatedAt)
	g.Slug, g.Data, g.UpdatedAt = slug, raw, updated
	return nil
}

// Clone returns a deep copy of the global.
func (g *GlobalDoc) Clone() *GlobalDoc {
	c := *g
	c.Data = CloneData(g.Data)
	return &c
}

func parseTime(v any) (time.Time, error) {
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// CloneData deep-copies a JSON-shaped map.
func CloneData(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneData(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	}
	return v
}
