package ui

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/samber/lo"

	"karolbroda.com/syllecho/internal/artwork"
	"karolbroda.com/syllecho/internal/colors"
	"karolbroda.com/syllecho/internal/timeline"
)

const (
	sideMargin   = 4
	contextGrey  = "#505050"
	markerDots   = 3
	minWrapWidth = 10
)

// LyricRenderer turns timeline lines into styled terminal rows. Sung
// syllables take the palette gradient; the syllable being sung is split at
// the rune its progress has reached.
type LyricRenderer struct {
	palette     *artwork.Palette
	animState   *AnimState
	screenWidth int
}

func NewLyricRenderer(palette *artwork.Palette, animState *AnimState, screenWidth int) *LyricRenderer {
	if palette == nil {
		palette = artwork.DefaultPalette()
	}
	if animState == nil {
		animState = &AnimState{}
	}
	return &LyricRenderer{
		palette:     palette,
		animState:   animState,
		screenWidth: screenWidth,
	}
}

// piece is a run of text belonging to one syllable, or an inserted space
// when syl is -1.
type piece struct {
	text string
	syl  int
}

func linePieces(line timeline.Line) []piece {
	var out []piece
	for i, s := range line.Syllables {
		if s.LeadingSpace && i > 0 && !line.Syllables[i-1].TrailingSpace {
			out = append(out, piece{text: " ", syl: -1})
		}
		out = append(out, piece{text: s.Text, syl: i})
		if s.TrailingSpace && i < len(line.Syllables)-1 {
			out = append(out, piece{text: " ", syl: -1})
		}
	}
	return out
}

// wrapPieces breaks at inserted spaces so no row is wider than maxWidth,
// unless a single word is.
func wrapPieces(pieces []piece, maxWidth int) [][]piece {
	maxWidth = max(maxWidth, minWrapWidth)

	var words [][]piece
	var word []piece
	for _, p := range pieces {
		if p.syl < 0 {
			if len(word) > 0 {
				words = append(words, word)
				word = nil
			}
			continue
		}
		word = append(word, p)
	}
	if len(word) > 0 {
		words = append(words, word)
	}

	var rows [][]piece
	var row []piece
	rowWidth := 0
	for _, w := range words {
		wWidth := piecesWidth(w)
		if len(row) > 0 && rowWidth+1+wWidth > maxWidth {
			rows = append(rows, row)
			row = nil
			rowWidth = 0
		}
		if len(row) > 0 {
			row = append(row, piece{text: " ", syl: -1})
			rowWidth++
		}
		row = append(row, w...)
		rowWidth += wWidth
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}

func piecesWidth(pieces []piece) int {
	w := 0
	for _, p := range pieces {
		w += runewidth.StringWidth(p.text)
	}
	return w
}

// splitByProgress cuts text where progress of its display width has been
// sung. frac is how far into the rune at the cut the progress lies.
func splitByProgress(text string, progress float64) (string, string, float64) {
	if progress <= 0 {
		return "", text, 0
	}
	if progress >= 1 {
		return text, "", 0
	}

	target := progress * float64(runewidth.StringWidth(text))
	acc := 0.0
	for i, r := range text {
		w := float64(runewidth.RuneWidth(r))
		if acc+w > target {
			frac := 0.0
			if w > 0 {
				frac = (target - acc) / w
			}
			return text[:i], text[i:], frac
		}
		acc += w
	}
	return text, "", 0
}

func (r *LyricRenderer) wrapWidth() int {
	return r.screenWidth - 2*sideMargin
}

func (r *LyricRenderer) pad(rowWidth int, align timeline.Alignment) string {
	var padding int
	switch align {
	case timeline.AlignStart:
		padding = sideMargin
	case timeline.AlignEnd:
		padding = r.screenWidth - sideMargin - rowWidth
	default:
		padding = (r.screenWidth - rowWidth) / 2
	}
	return strings.Repeat(" ", max(0, padding))
}

func (r *LyricRenderer) highlight(background bool) colors.Highlight {
	return colors.Highlight{
		Gradient: r.palette.Gradient,
		From:     r.palette.Primary,
		To:       r.palette.Accent,
		Unsung:   colors.UnsungTone(r.palette.Dim, background),
		Glow:     r.animState.GlowIntensity,
		Shimmer:  r.animState.ShimmerPhase,
	}
}

// RenderActive draws the line being sung. progress holds one entry per
// syllable as produced by the engine.
func (r *LyricRenderer) RenderActive(line timeline.Line, progress []float64) []string {
	if line.IsMarker() {
		return []string{r.renderDots(lineFill(progress), true)}
	}

	hl := r.highlight(line.Background)
	unsung := lipgloss.NewStyle().Foreground(lipgloss.Color(hl.Unsung)).Italic(line.Background)

	var out []string
	for _, row := range wrapPieces(linePieces(line), r.wrapWidth()) {
		rowWidth := piecesWidth(row)

		var b strings.Builder
		b.WriteString(r.pad(rowWidth, line.Alignment))

		x := 0
		for _, p := range row {
			if p.syl < 0 {
				b.WriteString(p.text)
				x++
				continue
			}

			prog := 0.0
			if p.syl < len(progress) {
				prog = progress[p.syl]
			}

			sungText, rest, frac := splitByProgress(p.text, prog)
			for _, ch := range sungText {
				b.WriteString(sungStyle(hl, line, x, rowWidth).Render(string(ch)))
				x += runewidth.RuneWidth(ch)
			}
			if rest == "" {
				continue
			}

			// the rune at the cut fades from unsung toward sung
			_, size := utf8.DecodeRuneInString(rest)
			first := rest[:size]
			if frac > 0 {
				blend := hl.Partial(x, rowWidth, frac)
				b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(blend)).Italic(line.Background).Render(first))
			} else {
				b.WriteString(unsung.Render(first))
			}
			x += runewidth.StringWidth(first)

			if tail := rest[size:]; tail != "" {
				b.WriteString(unsung.Render(tail))
				x += runewidth.StringWidth(tail)
			}
		}

		out = append(out, b.String())
	}

	if line.Translation != "" {
		c := colors.Mix(r.palette.Secondary, r.palette.Dim, 0.3)
		out = append(out, r.renderTranslation(line, c))
	}

	return out
}

func sungStyle(hl colors.Highlight, line timeline.Line, x int, rowWidth int) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(hl.Sung(x, rowWidth))).
		Bold(!line.Background).
		Italic(line.Background)
}

// RenderContext draws a line that is not being sung. brightness runs from 0
// (far away) to 1 (the next line).
func (r *LyricRenderer) RenderContext(line timeline.Line, brightness float64) []string {
	brightness = math.Max(0.2, math.Min(1, brightness))
	c := colors.Mix(contextGrey, r.palette.Dim, 0.4)
	c = colors.Scale(c, 0.5+brightness)
	if line.Background {
		c = colors.Scale(c, 0.8)
	}

	if line.IsMarker() {
		return []string{r.renderDots(0, false)}
	}

	style := lipgloss.NewStyle().Foreground(lipgloss.Color(c)).Italic(line.Background)

	var out []string
	for _, row := range wrapPieces(linePieces(line), r.wrapWidth()) {
		var text strings.Builder
		for _, p := range row {
			text.WriteString(p.text)
		}
		out = append(out, r.pad(piecesWidth(row), line.Alignment)+style.Render(text.String()))
	}

	if line.Translation != "" {
		out = append(out, r.renderTranslation(line, colors.Scale(c, 0.8)))
	}

	return out
}

func (r *LyricRenderer) renderTranslation(line timeline.Line, color string) string {
	text := runewidth.Truncate(line.Translation, r.wrapWidth(), "…")
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Italic(true)
	return r.pad(runewidth.StringWidth(text), line.Alignment) + style.Render(text)
}

// RenderInterlude draws the active marker for an instrumental break.
func (r *LyricRenderer) RenderInterlude(fill float64) []string {
	return []string{r.renderDots(fill, true)}
}

// renderDots draws the interlude indicator; each dot lights up in turn as
// fill goes from 0 to 1.
func (r *LyricRenderer) renderDots(fill float64, active bool) string {
	dim := colors.Mix(contextGrey, r.palette.Dim, 0.4)

	parts := make([]string, markerDots)
	for i := range parts {
		dot := "·"
		c := dim
		if active {
			dotFill := math.Max(0, math.Min(1, fill*markerDots-float64(i)))
			dot = "●"
			c = colors.Mix(dim, r.palette.Primary, dotFill)
		}
		parts[i] = lipgloss.NewStyle().Foreground(lipgloss.Color(c)).Render(dot)
	}

	width := markerDots*2 - 1
	return r.pad(width, timeline.AlignUnset) + strings.Join(parts, " ")
}
