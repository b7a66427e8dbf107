package watch

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestNewRequiresPaths(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("New(nil) should return error")
	}
}

func TestNewDeduplicatesDirectories(t *testing.T) {
	dir := t.TempDir()
	w, err := New([]string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.csv")}, WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if len(w.dirs) != 1 {
		t.Errorf("len(dirs) = %d, want 1", len(w.dirs))
	}
	if len(w.files) != 2 {
		t.Errorf("len(files) = %d, want 2", len(w.files))
	}
	if w.debounce != 10*time.Millisecond {
		t.Errorf("debounce = %v, want 10ms", w.debounce)
	}
}

func TestRunCallsBackOnChange(t *testing.T) {
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.txt")
	otherPath := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(catalogPath, []byte("CS101: Intro\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := New([]string{catalogPath}, WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan []string, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(_ context.Context, changed []string) error {
			changes <- changed
			return nil
		})
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(otherPath, []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(catalogPath, []byte("CS101: Intro\nLevel\nBachelor\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case changed := <-changes:
		abs, err := filepath.Abs(catalogPath)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(changed, []string{abs}) {
			t.Errorf("changed = %q, want [%s]", changed, abs)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change callback")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
