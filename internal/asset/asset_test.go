package asset

import (
	"os"
	"path/filepath"
	"testing"

	"karolbroda.com/syllecho/internal/cache"
	"karolbroda.com/syllecho/internal/lyrics"
)

const twoLines = "[ti:Song]\n[0]Hel(1000,300)lo(1300,200)\n[0]World(2000,500)\n"

func writeFile(t *testing.T, dir string, name string, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newCache(t *testing.T) *cache.DiskCache {
	t.Helper()
	c, err := cache.NewDiskCacheAt(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestLoadParsesThenHitsCache(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "song.lys", twoLines)
	c := newCache(t)

	first, err := Load(path, Options{Cache: c})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if first.FromCache {
		t.Error("first load cannot come from the cache")
	}
	if first.Format != lyrics.FormatLyricify || first.Timeline.Len() != 2 {
		t.Fatalf("unexpected asset: %s with %d lines", first.Format, first.Timeline.Len())
	}

	if err := c.SetSyncOffset(path, 250); err != nil {
		t.Fatal(err)
	}

	second, err := Load(path, Options{Cache: c})
	if err != nil {
		t.Fatal(err)
	}
	if !second.FromCache || second.SyncOffsetMillis != 250 {
		t.Errorf("expected cached asset with offset 250, got cache=%v offset=%d", second.FromCache, second.SyncOffsetMillis)
	}
	if second.Timeline.Metadata().Title != "Song" {
		t.Errorf("metadata lost in cache: %+v", second.Timeline.Metadata())
	}
}

func TestLoadReparsesEditedFileKeepingOffset(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "song.lys", twoLines)
	c := newCache(t)

	if _, err := Load(path, Options{Cache: c}); err != nil {
		t.Fatal(err)
	}
	_ = c.SetSyncOffset(path, -400)

	writeFile(t, dir, "song.lys", twoLines+"[0]Again(3000,400)\n")
	a, err := Load(path, Options{Cache: c})
	if err != nil {
		t.Fatal(err)
	}
	if a.FromCache {
		t.Error("edited file must be parsed again")
	}
	if a.Timeline.Len() != 3 {
		t.Errorf("Len = %d, want 3", a.Timeline.Len())
	}
	if a.SyncOffsetMillis != -400 {
		t.Errorf("offset = %d, want -400 carried over", a.SyncOffsetMillis)
	}
}

func TestLoadNoCacheStillStores(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "song.lys", twoLines)
	c := newCache(t)

	a, err := Load(path, Options{Cache: c, NoCache: true})
	if err != nil || a.FromCache {
		t.Fatalf("Load = %+v, %v", a, err)
	}
	if _, err := c.Get(path); err != nil {
		t.Errorf("fresh parse not stored: %v", err)
	}
}

func TestLoadTranslations(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "song.lys", twoLines)
	trans := writeFile(t, dir, "song.trans.lrc", "[00:01.10]Hallo\n[00:02.00]Welt\n")

	a, err := Load(path, Options{TranslationPath: trans})
	if err != nil {
		t.Fatal(err)
	}
	first, _ := a.Timeline.Line(0)
	second, _ := a.Timeline.Line(1)
	if first.Translation != "Hallo" || second.Translation != "Welt" {
		t.Errorf("translations = %q, %q", first.Translation, second.Translation)
	}

	if _, err := Load(path, Options{TranslationPath: filepath.Join(dir, "missing.lrc")}); err == nil {
		t.Error("expected error for missing translation file")
	}
}

func TestLoadCollectsIssues(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "song.lys", "[0]Hel(1000,300)lo(abc,200)\n")

	var hooked int
	a, err := Load(path, Options{OnIssue: func(lyrics.Issue) { hooked++ }})
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Issues) == 0 || hooked != len(a.Issues) {
		t.Errorf("issues = %v, hook saw %d", a.Issues, hooked)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.lys"), Options{}); err == nil {
		t.Error("expected error for missing file")
	}

	empty := writeFile(t, dir, "empty.lys", "\n\n")
	if _, err := Load(empty, Options{}); err == nil {
		t.Error("expected error for empty file")
	}
}

func TestLoadForcedFormat(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "song.txt", "[00:01.00]plain line\n[00:03.00]next\n")

	a, err := Load(path, Options{Format: lyrics.FormatLRC})
	if err != nil {
		t.Fatal(err)
	}
	if a.Format != lyrics.FormatLRC || a.Timeline.Len() != 2 {
		t.Errorf("got %s with %d lines", a.Format, a.Timeline.Len())
	}
}
