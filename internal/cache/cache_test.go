package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"karolbroda.com/syllecho/internal/timeline"
)

func newTestCache(t *testing.T) *DiskCache {
	t.Helper()
	c, err := NewDiskCacheAt(filepath.Join(t.TempDir(), "timelines"))
	if err != nil {
		t.Fatalf("NewDiskCacheAt: %v", err)
	}
	return c
}

func writeLyrics(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "song.lys")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func sampleEntry(hash string) *TimelineEntry {
	return &TimelineEntry{
		ContentHash: hash,
		Format:      "lyricify-syllable",
		Meta:        timeline.Metadata{Title: "Song", Artist: "Singer"},
		Lines: []timeline.Line{
			{Start: 0, End: 500, Syllables: []timeline.Syllable{{Start: 0, End: 500, Text: "la", TrailingSpace: true}}},
			{Start: 700, End: 900, Background: true, Alignment: timeline.AlignEnd},
		},
	}
}

func TestSetGetRoundTripThroughDisk(t *testing.T) {
	c := newTestCache(t)
	path := writeLyrics(t, "[0]la (0,500)")
	hash := ContentHash([]byte("[0]la (0,500)"))

	if err := c.Set(path, sampleEntry(hash)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// a fresh cache on the same dir has to read from disk
	fresh, err := NewDiskCacheAt(c.Dir())
	if err != nil {
		t.Fatal(err)
	}
	entry, err := fresh.Lookup(path, hash)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	tl := entry.Timeline()
	if tl.Len() != 2 || tl.Metadata().Title != "Song" {
		t.Fatalf("unexpected timeline: %d lines, meta %+v", tl.Len(), tl.Metadata())
	}
	line, _ := tl.Line(1)
	if !line.Background || line.Alignment != timeline.AlignEnd {
		t.Errorf("line flags lost: %+v", line)
	}
	if entry.Path != path || entry.Version != cacheVersion {
		t.Errorf("unexpected bookkeeping: path %q version %d", entry.Path, entry.Version)
	}
}

func TestLookupStaleContent(t *testing.T) {
	c := newTestCache(t)
	path := writeLyrics(t, "old")

	if err := c.Set(path, sampleEntry(ContentHash([]byte("old")))); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Lookup(path, ContentHash([]byte("new"))); !errors.Is(err, ErrCacheStale) {
		t.Errorf("expected ErrCacheStale, got %v", err)
	}
	if _, err := c.Get(filepath.Join(t.TempDir(), "missing.lys")); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
}

func TestSetSyncOffset(t *testing.T) {
	c := newTestCache(t)
	path := writeLyrics(t, "x")

	if err := c.SetSyncOffset(path, 100); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected miss before the entry exists, got %v", err)
	}

	_ = c.Set(path, sampleEntry("h"))
	if err := c.SetSyncOffset(path, -300); err != nil {
		t.Fatalf("SetSyncOffset: %v", err)
	}

	fresh, _ := NewDiskCacheAt(c.Dir())
	entry, err := fresh.Get(path)
	if err != nil {
		t.Fatal(err)
	}
	if entry.SyncOffsetMillis != -300 {
		t.Errorf("SyncOffsetMillis = %d, want -300", entry.SyncOffsetMillis)
	}
}

func TestPruneStatsClear(t *testing.T) {
	c := newTestCache(t)
	kept := writeLyrics(t, "a")
	gone := filepath.Join(t.TempDir(), "deleted.lys")
	expired := writeLyrics(t, "c")

	_ = c.Set(kept, sampleEntry("a"))
	_ = c.Set(gone, sampleEntry("b"))
	_ = c.Set(expired, sampleEntry("c"))

	old := sampleEntry("c")
	old.Version = cacheVersion
	old.Path = expired
	old.ExpiresAt = time.Now().Add(-time.Hour).Unix()
	if err := c.writeToDisk(c.getFilePath(generateKey(expired)), old); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(c.Dir(), "junk.bin"), []byte("not gob"), 0644); err != nil {
		t.Fatal(err)
	}

	count, size, err := c.Stats()
	if err != nil || count != 4 || size <= 0 {
		t.Fatalf("Stats = %d, %d, %v", count, size, err)
	}

	pruned, err := c.Prune()
	if err != nil {
		t.Fatal(err)
	}
	if pruned != 3 {
		t.Errorf("pruned %d, want 3", pruned)
	}

	all, _ := c.ListAll()
	if len(all) != 1 || all[0].Path != kept {
		t.Errorf("unexpected survivors: %+v", all)
	}

	if err := c.Clear(); err != nil {
		t.Fatal(err)
	}
	if count, _, _ := c.Stats(); count != 0 {
		t.Errorf("expected empty cache after Clear, got %d", count)
	}
	if _, err := c.Get(kept); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected miss after Clear, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	c := newTestCache(t)
	path := writeLyrics(t, "a")
	_ = c.Set(path, sampleEntry("a"))

	if err := c.Delete(path); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(path); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected miss after Delete, got %v", err)
	}
	if err := c.Delete(""); err == nil {
		t.Error("expected error for empty path")
	}
}
