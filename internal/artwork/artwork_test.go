package artwork

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: 40, B: uint8(y * 16), A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cover art.png")
	writePNG(t, path)

	for _, ref := range []string{path, "file://" + filepath.ToSlash(path)} {
		img, err := Load(ref)
		if err != nil {
			t.Fatalf("Load(%q): %v", ref, err)
		}
		if img.Bounds().Dx() != 16 {
			t.Errorf("unexpected bounds %v", img.Bounds())
		}
	}

	if _, err := Load("https://example.com/cover.png"); err == nil {
		t.Error("expected remote artwork to be refused")
	}
	if _, err := Load(""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestFindCover(t *testing.T) {
	dir := t.TempDir()
	lyrics := filepath.Join(dir, "song.lys")

	if _, ok := FindCover(lyrics); ok {
		t.Fatal("found a cover in an empty directory")
	}

	writePNG(t, filepath.Join(dir, "folder.png"))
	if got, ok := FindCover(lyrics); !ok || filepath.Base(got) != "folder.png" {
		t.Errorf("FindCover = %q, %v", got, ok)
	}

	writePNG(t, filepath.Join(dir, "song.png"))
	if got, ok := FindCover(lyrics); !ok || filepath.Base(got) != "song.png" {
		t.Errorf("same-name cover should win, got %q", got)
	}
}

func TestExtractPaletteFallback(t *testing.T) {
	if got := ExtractPalette(nil); got.Primary != DefaultPalette().Primary {
		t.Errorf("nil image palette = %+v", got)
	}

	// a flat grey image has nothing saturated enough to lead
	grey := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			grey.Set(x, y, color.RGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}
	p := ExtractPalette(grey)
	if p == nil || len(p.Gradient) == 0 {
		t.Fatalf("expected a usable palette, got %+v", p)
	}
}

func TestRenderHalfBlockArt(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	if lines := RenderHalfBlockArt(img, 8, 4); len(lines) != 4 {
		t.Errorf("expected 4 rows, got %d", len(lines))
	}
	if lines := RenderHalfBlockArt(nil, 8, 4); lines != nil {
		t.Error("expected nil for missing image")
	}
	if lines := RenderHalfBlockArt(img, 2, 4); lines != nil {
		t.Error("expected nil for a too narrow target")
	}
}

func TestScoreColor(t *testing.T) {
	red := scoreColor(255, 0, 0)
	if red.sat != 1 || red.brightness != 1 {
		t.Errorf("red scored %+v", red)
	}
	black := scoreColor(0, 0, 0)
	if black.sat != 0 || black.score != 0 {
		t.Errorf("black scored %+v", black)
	}
}
