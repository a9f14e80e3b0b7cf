package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore("/media/")
	ctx := context.Background()

	url, err := m.Put(ctx, "media/abc/logo.png", "image/png", strings.NewReader("png-bytes"), 9)
	if err != nil {
		t.Fatal(err)
	}
	if url != "/media/media/abc/logo.png" {
		t.Errorf("url = %q", url)
	}

	obj, err := m.Get(ctx, "media/abc/logo.png")
	if err != nil {
		t.Fatal(err)
	}
	defer obj.Body.Close()
	b, _ := io.ReadAll(obj.Body)
	if string(b) != "png-bytes" || obj.ContentType != "image/png" || obj.Size != 9 {
		t.Errorf("object = %q %q %d", b, obj.ContentType, obj.Size)
	}

	if err := m.Delete(ctx, "media/abc/logo.png"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(ctx, "media/abc/logo.png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete err = %v", err)
	}
	if err := m.Delete(ctx, "media/abc/logo.png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete err = %v", err)
	}
}

func TestMemoryStore_SizeMismatch(t *testing.T) {
	m := NewMemoryStore("/media")
	if _, err := m.Put(context.Background(), "k", "text/plain", strings.NewReader("abc"), 10); err == nil {
		t.Error("expected size mismatch error")
	}
	if m.Len() != 0 {
		t.Error("partial object stored")
	}
	if _, err := m.Put(context.Background(), "k", "text/plain", strings.NewReader("abc"), -1); err != nil {
		t.Errorf("unknown size: %v", err)
	}
}

func TestKeyFromURL(t *testing.T) {
	for _, tc := range []struct {
		base, url string
		want      string
		ok        bool
	}{
		{"/media", "/media/a/b.png", "a/b.png", true},
		{"https://cdn.example.com/", "https://cdn.example.com/x.png", "x.png", true},
		{"/media", "/other/x.png", "", false},
		{"/media", "/media/", "", false},
	} {
		got, ok := KeyFromURL(tc.base, tc.url)
		if got != tc.want || ok != tc.ok {
			t.Errorf("KeyFromURL(%q, %q) = %q, %v", tc.base, tc.url, got, ok)
		}
	}
}

func TestS3PublicURL(t *testing.T) {
	for _, tc := range []struct {
		cfg  S3Config
		want string
	}{
		{S3Config{Bucket: "b", Region: "eu-west-1"}, "https://b.s3.eu-west-1.amazonaws.com"},
		{S3Config{Bucket: "b", Endpoint: "http://localhost:9000"}, "http://localhost:9000/b"},
		{S3Config{Bucket: "b", PublicURL: "https://cdn.example.com"}, "https://cdn.example.com"},
	} {
		if got := s3PublicURL(tc.cfg); got != tc.want {
			t.Errorf("s3PublicURL(%+v) = %q, want %q", tc.cfg, got, tc.want)
		}
	}
}

func TestNewS3Store_RequiresBucket(t *testing.T) {
	if _, err := NewS3Store(context.Background(), S3Config{Region: "us-east-1"}); err == nil {
		t.Error("expected error without bucket")
	}
}
