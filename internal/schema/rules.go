package schema

import (
	"math"
	"strconv"
	"strings"
)

// Coerce converts loosely-typed form values to the types their fields
// expect: numeric strings become numbers, checkbox strings become booleans,
// and populated relations collapse to their ID. Values that cannot be
// converted are left untouched for Validate to reject. doc is modified in
// place and must already hold JSON-decoded values.
func Coerce(fields []Field, doc map[string]any) {
	for i := range fields {
		f := &fields[i]
		v, ok := doc[f.Name]
		if !ok || v == nil {
			continue
		}
		doc[f.Name] = coerceValue(f, v)
	}
}

func coerceValue(f *Field, v any) any {
	switch f.Kind {
	case KindNumber:
		if s, ok := v.(string); ok {
			n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
				return n
			}
		}
	case KindCheckbox:
		if s, ok := v.(string); ok {
			switch strings.ToLower(strings.TrimSpace(s)) {
			case "true", "on", "1":
				return true
			case "false", "off", "0":
				return false
			}
		}
	case KindRelationship, KindUpload:
		if m, ok := v.(map[string]any); ok {
			if id, ok := m["id"].(string); ok {
				return id
			}
		}
	case KindGroup:
		if m, ok := v.(map[string]any); ok {
			Coerce(f.Fields, m)
		}
	case KindArray:
		if rows, ok := v.([]any); ok {
			for _, row := range rows {
				if m, ok := row.(map[string]any); ok {
					Coerce(f.Fields, m)
				}
			}
		}
	}
	return v
}

// ApplyDefaults fills absent fields with their declared default values.
// It is applied when a document is first created, never on update.
func ApplyDefaults(fields []Field, doc map[string]any) {
	for i := range fields {
		f := &fields[i]
		v, present := doc[f.Name]
		switch {
		case !present && f.Default != nil:
			doc[f.Name] = cloneValue(f.Default)
		case f.Kind == KindGroup:
			m, ok := v.(map[string]any)
			if !present {
				m = map[string]any{}
				ApplyDefaults(f.Fields, m)
				if len(m) > 0 {
					doc[f.Name] = m
				}
			} else if ok {
				ApplyDefaults(f.Fields, m)
			}
		case f.Kind == KindArray && present:
			if rows, ok := v.([]any); ok {
				for _, row := range rows {
					if m, ok := row.(map[string]any); ok {
						ApplyDefaults(f.Fields, m)
					}
				}
			}
		}
	}
}

// cloneValue deep-copies JSON-shaped values so defaults are never shared
// between documents.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	}
	return v
}
