package main

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseFields(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		stdin   string
		pairs   []string
		want    string
		wantErr bool
	}{
		{
			name: "nothing",
			want: `{}`,
		},
		{
			name:  "plain strings",
			pairs: []string{"name=Acme Mug", "slug=acme-mug"},
			want:  `{"name":"Acme Mug","slug":"acme-mug"}`,
		},
		{
			name:  "json literals",
			pairs: []string{"price=12.5", "featured=true", `hero={"heading":"Hi"}`, "image=null"},
			want:  `{"featured":true,"hero":{"heading":"Hi"},"image":null,"price":12.5}`,
		},
		{
			name:  "not json stays a string",
			pairs: []string{"version=1.2.3", "link=[docs"},
			want:  `{"link":"[docs","version":"1.2.3"}`,
		},
		{
			name:  "data then override",
			data:  `{"name":"Mug","price":10}`,
			pairs: []string{"price=12"},
			want:  `{"name":"Mug","price":12}`,
		},
		{
			name:  "data from stdin",
			data:  "-",
			stdin: `{"siteName":"Acme"}`,
			want:  `{"siteName":"Acme"}`,
		},
		{
			name:    "data not an object",
			data:    `[1,2]`,
			wantErr: true,
		},
		{
			name:    "missing equals",
			pairs:   []string{"noequals"},
			wantErr: true,
		},
		{
			name:    "empty key",
			pairs:   []string{"=value"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFields(tt.data, tt.pairs, strings.NewReader(tt.stdin))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			b, _ := json.Marshal(got)
			if string(b) != tt.want {
				t.Errorf("got %s, want %s", b, tt.want)
			}
		})
	}
}

func TestParseWhere(t *testing.T) {
	got, err := parseWhere([]string{"status=active", "price=10"})
	if err != nil {
		t.Fatal(err)
	}
	if got["status"] != "active" || got["price"] != "10" {
		t.Errorf("got %v", got)
	}
	if _, err := parseWhere([]string{"bad"}); err == nil {
		t.Error("expected error for missing '='")
	}
	if got, _ := parseWhere(nil); got != nil {
		t.Errorf("nil pairs = %v", got)
	}
}
