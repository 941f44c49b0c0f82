package watch

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcher_DetectsWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prd.md")
	writeFile(t, path, "# v1")

	w, err := New(path, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()

	var fired atomic.Int32
	w.SetChangeCallback(func() { fired.Add(1) })
	w.Start()

	// Let the watch loop come up before writing.
	time.Sleep(50 * time.Millisecond)
	writeFile(t, path, "# v2")

	deadline := time.Now().Add(2 * time.Second)
	for fired.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if fired.Load() == 0 {
		t.Fatal("change callback never fired")
	}
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prd.md")
	writeFile(t, path, "# v1")

	w, err := New(path, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()

	var fired atomic.Int32
	w.SetChangeCallback(func() { fired.Add(1) })
	w.Start()

	time.Sleep(50 * time.Millisecond)
	for i := 0; i < 5; i++ {
		writeFile(t, path, "# burst")
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(3 * debounceWindow)
	if got := fired.Load(); got != 1 {
		t.Errorf("callback fired %d times for one save burst, want 1", got)
	}
}

func TestWatcher_IgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prd.md")
	writeFile(t, path, "# v1")

	w, err := New(path, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()

	var fired atomic.Int32
	w.SetChangeCallback(func() { fired.Add(1) })
	w.Start()

	time.Sleep(50 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "other.md"), "noise")

	time.Sleep(3 * debounceWindow)
	if fired.Load() != 0 {
		t.Error("callback fired for a sibling file")
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prd.md")
	writeFile(t, path, "# v1")

	w, err := New(path, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.Start()
	w.Stop()
	w.Stop()
}

func TestNew_MissingDirectory(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing", "prd.md"), nil); err == nil {
		t.Fatal("expected error for nonexistent directory")
	}
}
