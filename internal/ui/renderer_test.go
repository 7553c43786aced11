package ui

import (
	"strings"
	"testing"
	"time"

	"karolbroda.com/syllecho/internal/timeline"
)

func TestSplitByProgress(t *testing.T) {
	tests := []struct {
		text     string
		progress float64
		sung     string
		rest     string
		wantFrac float64
	}{
		{"hello", 0, "", "hello", 0},
		{"hello", 1, "hello", "", 0},
		{"hello", 0.4, "he", "llo", 0},
		{"hello", 0.5, "he", "llo", 0.5},
		// wide runes count double
		{"日本語", 0.5, "日", "本語", 0.5},
		{"a日", 0.5, "a", "日", 0.25},
	}

	for _, tt := range tests {
		sung, rest, frac := splitByProgress(tt.text, tt.progress)
		if sung != tt.sung || rest != tt.rest {
			t.Errorf("splitByProgress(%q, %v) = %q, %q", tt.text, tt.progress, sung, rest)
		}
		if frac != tt.wantFrac {
			t.Errorf("splitByProgress(%q, %v) frac = %v, want %v", tt.text, tt.progress, frac, tt.wantFrac)
		}
	}
}

func TestWrapPieces(t *testing.T) {
	line := timeline.Line{Syllables: []timeline.Syllable{
		{Text: "one", TrailingSpace: true},
		{Text: "two", TrailingSpace: true},
		{Text: "th"},
		{Text: "ree"},
	}}

	rows := wrapPieces(linePieces(line), 10)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if got := piecesText(rows[0]); got != "one two" {
		t.Errorf("row 0 = %q", got)
	}
	// a word split across syllables stays together
	if got := piecesText(rows[1]); got != "three" {
		t.Errorf("row 1 = %q", got)
	}

	if rows := wrapPieces(linePieces(line), 80); len(rows) != 1 {
		t.Errorf("wide screen should not wrap, got %d rows", len(rows))
	}
}

func piecesText(pieces []piece) string {
	var b strings.Builder
	for _, p := range pieces {
		b.WriteString(p.text)
	}
	return b.String()
}

func TestRenderActiveAlignmentAndTranslation(t *testing.T) {
	r := NewLyricRenderer(nil, nil, 40)
	line := timeline.Line{
		Start:       0,
		End:         1000,
		Syllables:   []timeline.Syllable{{Start: 0, End: 1000, Text: "sing"}},
		Translation: "canta",
		Alignment:   timeline.AlignEnd,
	}

	rows := r.RenderActive(line, []float64{0.5})
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want line plus translation", len(rows))
	}
	if !strings.HasSuffix(rows[0], "sing") || !strings.HasPrefix(rows[0], strings.Repeat(" ", 40-sideMargin-4)) {
		t.Errorf("end aligned row = %q", rows[0])
	}
	if !strings.Contains(rows[1], "canta") {
		t.Errorf("translation row = %q", rows[1])
	}

	line.Alignment = timeline.AlignStart
	if rows := r.RenderContext(line, 1); !strings.HasPrefix(rows[0], strings.Repeat(" ", sideMargin)+"sing") {
		t.Errorf("start aligned context row = %q", rows[0])
	}
}

func TestRenderMarkers(t *testing.T) {
	r := NewLyricRenderer(nil, nil, 40)
	marker := timeline.Line{Start: 1000, End: 1000}

	if rows := r.RenderContext(marker, 1); len(rows) != 1 || !strings.Contains(rows[0], "·") {
		t.Errorf("context marker = %q", rows)
	}
	if rows := r.RenderInterlude(0.9); len(rows) != 1 || strings.Count(rows[0], "●") != markerDots {
		t.Errorf("interlude = %q", rows)
	}
}

func TestAnimStateEasesToTarget(t *testing.T) {
	var a AnimState

	a.SetTarget(3)
	if a.ScrollPosition != 3 || !a.Settled() {
		t.Fatalf("first target should jump, got %+v", a)
	}

	a.SetTarget(4)
	if a.Settled() || a.GlowIntensity != 1 {
		t.Fatalf("new target should start a transition, got %+v", a)
	}

	a.Update(1, 100*time.Millisecond)
	if a.ScrollPosition <= 3 || a.ScrollPosition >= 4 {
		t.Errorf("mid transition position = %v", a.ScrollPosition)
	}

	for i := 2; i < 10; i++ {
		a.Update(i, 100*time.Millisecond)
	}
	if a.ScrollPosition != 4 || !a.Settled() {
		t.Errorf("transition did not settle: %+v", a)
	}
	if a.GlowIntensity >= 1 {
		t.Error("glow should decay")
	}

	a.Jump(1)
	if a.ScrollPosition != 1 || a.TargetScroll != 1 {
		t.Errorf("Jump = %+v", a)
	}
}
