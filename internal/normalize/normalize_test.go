package normalize

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   map[string]any
		want map[string]any
	}{
		{"Nil", nil, map[string]any{}},
		{"DropsEmptyString", map[string]any{"title": "Home", "slug": ""}, map[string]any{"title": "Home"}},
		{"KeepsZeroFalseNull",
			map[string]any{"price": 0.0, "featured": false, "image": nil},
			map[string]any{"price": 0.0, "featured": false, "image": nil}},
		{"KeepsEmptyCollections",
			map[string]any{"tags": []any{}, "hero": map[string]any{}},
			map[string]any{"tags": []any{}, "hero": map[string]any{}}},
		{"KeepsWhitespace", map[string]any{"title": " "}, map[string]any{"title": " "}},
		{"NestedUntouched",
			map[string]any{"hero": map[string]any{"heading": ""}},
			map[string]any{"hero": map[string]any{"heading": ""}}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Normalize(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalize_IdempotentAndPure(t *testing.T) {
	in := map[string]any{"a": "", "b": "x", "c": 0.0}
	once := Normalize(in)
	twice := Normalize(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("not idempotent: %v vs %v", once, twice)
	}
	if _, ok := in["a"]; !ok {
		t.Error("input was mutated")
	}
}
