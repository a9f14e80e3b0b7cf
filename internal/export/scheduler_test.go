package export

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// mockDestination records calls to Write.
type mockDestination struct {
	writes atomic.Int64
	last   atomic.Value // []byte
	err    error
}

func (d *mockDestination) Name() string { return "mock" }

func (d *mockDestination) Write(_ context.Context, data []byte) error {
	d.writes.Add(1)
	cp := make([]byte, len(data))
	copy(cp, data)
	d.last.Store(cp)
	return d.err
}

func TestSchedulerStartStop(t *testing.T) {
	src := newTestSource(t)
	if _, err := src.Create(context.Background(), "pages", map[string]any{"title": "Home", "slug": "home"}); err != nil {
		t.Fatal(err)
	}

	dest := &mockDestination{}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	sched := NewScheduler(src, []Destination{dest}, 50*time.Millisecond, logger)
	sched.Start()

	// Wait for at least the initial export + one tick.
	time.Sleep(120 * time.Millisecond)
	sched.Stop()

	if writes := dest.writes.Load(); writes < 2 {
		t.Fatalf("expected at least 2 writes, got %d", writes)
	}

	data, ok := dest.last.Load().([]byte)
	if !ok || len(data) == 0 {
		t.Fatal("expected non-empty data")
	}
	// 1 header + 1 page
	if lines := nonEmptyLines(string(data)); len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
}

func TestSchedulerStop_NoStart(t *testing.T) {
	sched := NewScheduler(newTestSource(t), nil, time.Minute, nil)
	// Stop without Start should not panic.
	sched.Stop()
}

func TestSchedulerMultipleDestinations(t *testing.T) {
	dest1 := &mockDestination{err: errors.New("bucket gone")}
	dest2 := &mockDestination{}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	sched := NewScheduler(newTestSource(t), []Destination{dest1, dest2}, time.Second, logger)
	sched.Start()

	// Wait for the initial export.
	time.Sleep(50 * time.Millisecond)
	sched.Stop()

	if dest1.writes.Load() < 1 {
		t.Fatal("dest1 expected at least 1 write")
	}
	if dest2.writes.Load() < 1 {
		t.Fatal("dest2 expected a write despite dest1 failing")
	}
}

func TestRun(t *testing.T) {
	failing := &mockDestination{err: errors.New("bucket gone")}
	ok := &mockDestination{}

	n, err := Run(context.Background(), newTestSource(t), []Destination{failing, ok})
	if err == nil || err.Error() != "bucket gone" {
		t.Errorf("err = %v", err)
	}
	if n == 0 || ok.writes.Load() != 1 {
		t.Errorf("n = %d, writes = %d", n, ok.writes.Load())
	}
}

func TestFileDestination(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "export.jsonl")
	d := &FileDestination{Path: path}

	for _, payload := range []string{"first\n", "second\n"} {
		if err := d.Write(context.Background(), []byte(payload)); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second\n" {
		t.Errorf("file = %q, want the latest payload", got)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestWriterDestination(t *testing.T) {
	var buf bytes.Buffer
	d := &WriterDestination{W: &buf}
	if d.Name() != "writer" {
		t.Errorf("Name = %q", d.Name())
	}
	if err := d.Write(context.Background(), []byte("x\n")); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "x\n" {
		t.Errorf("buf = %q", buf.String())
	}
}
