package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

// collector gathers delivered events for assertions.
type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) add(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collector) snapshot() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

func (c *collector) waitFor(t *testing.T, n int, timeout time.Duration) []Event {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if evs := c.snapshot(); len(evs) >= n {
			return evs
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d events, have %v", n, c.snapshot())
	return nil
}

func TestWatcher_DebounceCoalesces(t *testing.T) {
	var c collector
	w, err := New(c.add, WithDelay(50*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	path := filepath.Join(t.TempDir(), "forge.config.json")
	w.mu.Lock()
	w.watched[path] = true
	w.mu.Unlock()

	// Rapid create+write bursts coalesce into one combined event.
	w.handleEvent(Event{Path: path, Op: OpCreate, Timestamp: time.Now()})
	w.handleEvent(Event{Path: path, Op: OpWrite, Timestamp: time.Now()})
	w.handleEvent(Event{Path: path, Op: OpWrite, Timestamp: time.Now()})

	evs := c.waitFor(t, 1, 2*time.Second)
	if len(evs) != 1 {
		t.Fatalf("got %d events, want 1", len(evs))
	}
	if !evs[0].Op.Has(OpCreate) || !evs[0].Op.Has(OpWrite) {
		t.Errorf("coalesced op = %v, want create|write", evs[0].Op)
	}
}

func TestWatcher_IgnoresUnwatchedPaths(t *testing.T) {
	var c collector
	w, err := New(c.add, WithDelay(20*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	w.handleEvent(Event{Path: "/not/watched", Op: OpWrite, Timestamp: time.Now()})
	time.Sleep(100 * time.Millisecond)
	if evs := c.snapshot(); len(evs) != 0 {
		t.Errorf("unexpected events %v", evs)
	}
}

func TestWatcher_AcceptAdmitsMatchingPaths(t *testing.T) {
	var c collector
	w, err := New(c.add,
		WithDelay(20*time.Millisecond),
		WithAccept(func(path string) bool {
			return filepath.Base(path) == "forge.config.json"
		}))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	// A matching file is delivered even though it was never watched,
	// e.g. a config created next to an already watched one.
	path := filepath.Join(t.TempDir(), "forge.config.json")
	w.handleEvent(Event{Path: path, Op: OpCreate, Timestamp: time.Now()})

	evs := c.waitFor(t, 1, 2*time.Second)
	if evs[0].Path != path || !evs[0].Op.Has(OpCreate) {
		t.Errorf("event = %+v", evs[0])
	}

	// Non-matching unwatched paths stay filtered.
	w.handleEvent(Event{Path: "/elsewhere/style.css", Op: OpWrite, Timestamp: time.Now()})
	time.Sleep(100 * time.Millisecond)
	if evs := c.snapshot(); len(evs) != 1 {
		t.Errorf("unexpected events %v", evs[1:])
	}
}

func TestWatcher_WatchAndWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "forge.config.json")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	var c collector
	w, err := New(c.add, WithDelay(30*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if !w.IsWatching(path) {
		t.Fatal("IsWatching = false after Watch")
	}

	if err := os.WriteFile(path, []byte(`{"prefix":"x"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	evs := c.waitFor(t, 1, 3*time.Second)
	if evs[0].Path != path {
		t.Errorf("event path = %q, want %q", evs[0].Path, path)
	}
	if !evs[0].Op.Has(OpWrite) && !evs[0].Op.Has(OpCreate) {
		t.Errorf("event op = %v", evs[0].Op)
	}
}

func TestWatcher_Unwatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "forge.config.json")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	var c collector
	w, err := New(c.add)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch(path); err != nil {
		t.Fatal(err)
	}
	if err := w.Unwatch(path); err != nil {
		t.Fatal(err)
	}
	if w.IsWatching(path) {
		t.Error("IsWatching = true after Unwatch")
	}
}

func TestWatcher_CloseIdempotent(t *testing.T) {
	w, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestTranslateOp(t *testing.T) {
	tests := []struct {
		in   fsnotify.Op
		want Op
	}{
		{fsnotify.Create, OpCreate},
		{fsnotify.Write, OpWrite},
		{fsnotify.Remove, OpRemove},
		{fsnotify.Rename, OpRemove},
		{fsnotify.Chmod, 0},
		{fsnotify.Create | fsnotify.Write, OpCreate | OpWrite},
	}
	for _, tt := range tests {
		if got := translateOp(tt.in); got != tt.want {
			t.Errorf("translateOp(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
