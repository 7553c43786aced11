package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReportsDebouncedWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "song.lys")
	if err := os.WriteFile(path, []byte("[0]a(0,100)"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := New(path, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	for i := range 5 {
		content := []byte("[0]a(0," + string(rune('1'+i)) + "00)")
		if err := os.WriteFile(path, content, 0644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case got := <-w.Changes():
		if got != w.Path() {
			t.Errorf("change for %q, want %q", got, w.Path())
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no change reported")
	}

	select {
	case <-w.Changes():
		t.Error("burst of writes produced more than one change")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "song.lys")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}

	w, err := New(path, 20*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "other.lrc"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-w.Changes():
		t.Errorf("unexpected change for %q", got)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherSeesRenameIntoPlace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "song.lys")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}

	w, err := New(path, 20*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	tmp := filepath.Join(dir, ".song.lys.swp")
	if err := os.WriteFile(tmp, []byte("[0]b(0,100)"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	select {
	case <-w.Changes():
	case <-time.After(3 * time.Second):
		t.Fatal("rename into place not reported")
	}
}

func TestNewMissingDirectory(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "nope", "song.lys"), 0); err == nil {
		t.Error("expected error watching a missing directory")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.lys")
	w, err := New(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	_ = w.Close()
}
