package colors

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Highlight colours the runes of a line being sung. Sung runes follow the
// gradient across the row and shimmer along it; unsung runes keep one
// muted tone. A fresh line start lights everything up through Glow, which
// the caller decays frame by frame.
type Highlight struct {
	Gradient []string
	// From and To are blended instead when Gradient is empty.
	From string
	To   string

	Unsung  string
	Glow    float64
	Shimmer float64
}

// UnsungTone is the resting colour of lyrics not yet reached, lifted from the
// palette's dim colour. Background vocals sit a step darker.
func UnsungTone(dim string, background bool) string {
	c := Mix(dim, white, 0.35)
	if background {
		c = Scale(c, 0.75)
	}
	return c
}

// Sung colours the rune at column x of a row rowWidth columns wide.
func (h Highlight) Sung(x int, rowWidth int) string {
	pos := rowPos(x, rowWidth)

	var c string
	if len(h.Gradient) > 0 {
		c = Stop(h.Gradient, pos)
	} else {
		c = Mix(h.From, h.To, pos)
	}

	if h.Glow > 0.05 {
		c = Glow(c, h.Glow*0.5)
	}
	if s := math.Sin(h.Shimmer+float64(x)*0.3)*0.5 + 0.5; s > 0.5 {
		c = Glow(c, (s-0.5)*0.25)
	}
	return c
}

// Partial colours the rune a syllable's progress has reached. frac is how
// far into that rune the progress is; zero leaves it unsung.
func (h Highlight) Partial(x int, rowWidth int, frac float64) string {
	if frac <= 0 {
		return Normalize(h.Unsung)
	}
	return Mix(h.Unsung, h.Sung(x, rowWidth), frac)
}

func rowPos(x int, width int) float64 {
	if width <= 1 {
		return 0
	}
	return float64(x) / float64(width-1)
}

// GradientText colours each rune of text with the stop matching its place in
// the string.
func GradientText(text string, gradient []string, bold bool) string {
	runes := []rune(text)
	if len(runes) == 0 || len(gradient) == 0 {
		return text
	}

	var b strings.Builder
	for i, r := range runes {
		style := lipgloss.NewStyle().
			Foreground(lipgloss.Color(Stop(gradient, rowPos(i, len(runes))))).
			Bold(bold)
		b.WriteString(style.Render(string(r)))
	}
	return b.String()
}
