package terminal

import (
	"image"
	"strings"
	"testing"
)

func TestDetectCapabilitiesKittyOptIn(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"", false},
		{"1", true},
		{"On", true},
		{"no", false},
	}
	for _, tt := range tests {
		t.Setenv("SYLLECHO_USE_KITTY_GRAPHICS", tt.env)
		t.Setenv("TERM_PROGRAM", "")
		caps := DetectCapabilities()
		if caps.SupportsKittyGraphics != tt.want {
			t.Errorf("env %q: kitty = %v, want %v", tt.env, caps.SupportsKittyGraphics, tt.want)
		}
		if tt.want && caps.TermProgram != "kitty" {
			t.Errorf("env %q: TermProgram = %q", tt.env, caps.TermProgram)
		}
	}
}

func TestDetectCapabilitiesColorTerm(t *testing.T) {
	t.Setenv("COLORTERM", "truecolor")
	if !DetectCapabilities().SupportsRGB {
		t.Error("truecolor terminal should support rgb")
	}
	t.Setenv("COLORTERM", "8bit")
	if DetectCapabilities().SupportsRGB {
		t.Error("8bit terminal should not report rgb")
	}
}

func TestEncodeImageForKitty(t *testing.T) {
	if EncodeImageForKitty(nil, 4, 4) != "" {
		t.Error("nil image should encode to nothing")
	}
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	out := EncodeImageForKitty(img, 6, 3)
	if !strings.HasPrefix(out, "\033_G") {
		t.Errorf("unexpected prefix: %q", out[:min(len(out), 8)])
	}
}
