package schema

import (
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
)

// fileSchema is the on-disk TOML layout of a schema file.
type fileSchema struct {
	Collections []Collection `toml:"collections"`
	Globals     []Global     `toml:"globals"`
}

// LoadFile reads a TOML schema file and builds a registry from it.
func LoadFile(path string) (*Registry, error) {
	var fs fileSchema
	if _, err := toml.DecodeFile(path, &fs); err != nil {
		return nil, fmt.Errorf("decode schema file %s: %w", path, err)
	}
	return fromFile(fs)
}

// Load reads a TOML schema from r.
func Load(r io.Reader) (*Registry, error) {
	var fs fileSchema
	if _, err := toml.NewDecoder(r).Decode(&fs); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return fromFile(fs)
}

func fromFile(fs fileSchema) (*Registry, error) {
	for i := range fs.Collections {
		normalizeDefaults(fs.Collections[i].Fields)
	}
	for i := range fs.Globals {
		normalizeDefaults(fs.Globals[i].Fields)
	}
	return NewRegistry(fs.Collections, fs.Globals)
}

// normalizeDefaults converts TOML integers to the float64 representation
// that decoded JSON documents use.
func normalizeDefaults(fields []Field) {
	for i := range fields {
		fields[i].Default = jsonNumber(fields[i].Default)
		normalizeDefaults(fields[i].Fields)
	}
}

func jsonNumber(v any) any {
	switch t := v.(type) {
	case int64:
		return float64(t)
	case int:
		return float64(t)
	case []any:
		for i := range t {
			t[i] = jsonNumber(t[i])
		}
	case map[string]any:
		for k := range t {
			t[k] = jsonNumber(t[k])
		}
	}
	return v
}
