// Package normalize cleans request bodies before they reach the store.
package normalize

// Normalize returns a copy of raw without keys whose value is the empty
// string. Every other value, including 0, false, nil and empty collections,
// is kept unchanged. Only top-level keys are inspected; nested group values
// pass through as-is.
func Normalize(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		out[k] = v
	}
	return out
}
