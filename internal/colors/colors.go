// Package colors holds the colour work behind the lyric view: palette
// gradients, the sung and unsung tones of a karaoke line, and small
// brightness tweaks. Colours travel as "#RRGGBB" strings so they can be
// handed to lipgloss unchanged.
package colors

import (
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/samber/lo"
)

// white stands in for anything that does not parse.
const white = "#FFFFFF"

func parse(hex string) colorful.Color {
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		c, _ = colorful.Hex(white)
	}
	return c
}

func format(c colorful.Color) string {
	return strings.ToUpper(c.Clamped().Hex())
}

// Normalize returns hex in canonical "#RRGGBB" form.
func Normalize(hex string) string {
	return format(parse(hex))
}

// Mix blends a toward b in HCL space. t is clamped to [0, 1] and the ends
// return the inputs exactly.
func Mix(a string, b string, t float64) string {
	switch t = lo.Clamp(t, 0, 1); t {
	case 0:
		return Normalize(a)
	case 1:
		return Normalize(b)
	}
	return format(parse(a).BlendHcl(parse(b), t))
}

// Scale multiplies every channel by factor.
func Scale(hex string, factor float64) string {
	c := parse(hex)
	return format(colorful.Color{R: c.R * factor, G: c.G * factor, B: c.B * factor})
}

// Glow brightens a colour by up to 60% at intensity 1.
func Glow(hex string, intensity float64) string {
	return Scale(hex, 1+0.6*intensity)
}

// Lightness is perceived lightness in [0, 1].
func Lightness(hex string) float64 {
	_, _, l := parse(hex).Hcl()
	return l
}

// Gradient returns steps colours from start to end, at least two. Pairs far
// apart in lightness, chroma or hue are eased so the jump lands mid-line
// rather than on the first sung syllable.
func Gradient(start string, end string, steps int) []string {
	steps = max(steps, 2)

	h1, c1, l1 := parse(start).Hcl()
	h2, c2, l2 := parse(end).Hcl()
	hue := math.Abs(h2 - h1)
	if hue > 180 {
		hue = 360 - hue
	}
	eased := math.Abs(l2-l1) > 0.3 || math.Abs(c2-c1) > 0.3 || hue > 60

	return lo.Times(steps, func(i int) string {
		t := float64(i) / float64(steps-1)
		if eased {
			t = smoothstep(smoothstep(t))
		}
		return Mix(start, end, t)
	})
}

// Roughness is the largest CIE76 step between neighbouring stops of the
// gradient from start to end. Lower is smoother.
func Roughness(start string, end string, steps int) float64 {
	grad := Gradient(start, end, steps)
	var worst float64
	for i := 1; i < len(grad); i++ {
		worst = max(worst, parse(grad[i-1]).DistanceCIE76(parse(grad[i])))
	}
	return worst
}

// Stop picks the gradient stop nearest to t in [0, 1].
func Stop(gradient []string, t float64) string {
	if len(gradient) == 0 {
		return white
	}
	t = lo.Clamp(t, 0, 1)
	return gradient[int(math.Round(t*float64(len(gradient)-1)))]
}

func smoothstep(t float64) float64 {
	t = lo.Clamp(t, 0, 1)
	return t * t * (3 - 2*t)
}
