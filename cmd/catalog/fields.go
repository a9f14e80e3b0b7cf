package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// splitField splits "key=value" into (key, value, true).
// Returns ("", "", false) if there is no '=' or key is empty.
func splitField(s string) (string, string, bool) {
	i := strings.IndexByte(s, '=')
	if i <= 0 {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}

// literalOrString decodes v when it is a JSON literal (object, array,
// quoted string, boolean, null or number) and returns it unchanged
// otherwise.
func literalOrString(v string) any {
	if v == "" {
		return v
	}
	looksJSON := false
	switch v[0] {
	case '{', '[', '"':
		looksJSON = true
	default:
		looksJSON = v == "true" || v == "false" || v == "null" ||
			v[0] == '-' || unicode.IsDigit(rune(v[0]))
	}
	if !looksJSON {
		return v
	}
	var out any
	if err := json.Unmarshal([]byte(v), &out); err != nil {
		return v
	}
	return out
}

// parseFields builds a document body. data, when non-empty, is a JSON
// object ("-" reads it from stdin); each key=value pair then overrides a
// top-level key.
func parseFields(data string, pairs []string, stdin io.Reader) (map[string]any, error) {
	out := map[string]any{}
	if data != "" {
		raw := []byte(data)
		if data == "-" {
			b, err := io.ReadAll(stdin)
			if err != nil {
				return nil, fmt.Errorf("reading stdin: %w", err)
			}
			raw = b
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("--data must be a JSON object: %w", err)
		}
		if out == nil {
			out = map[string]any{}
		}
	}
	for _, p := range pairs {
		k, v, ok := splitField(p)
		if !ok {
			return nil, fmt.Errorf("invalid field %q (expected key=value)", p)
		}
		out[k] = literalOrString(v)
	}
	return out, nil
}

// parseWhere turns key=value pairs into list filters.
func parseWhere(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := splitField(p)
		if !ok {
			return nil, fmt.Errorf("invalid filter %q (expected key=value)", p)
		}
		out[k] = v
	}
	return out, nil
}
