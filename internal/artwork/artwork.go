package artwork

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/EdlinOrg/prominentcolor"
	"github.com/charmbracelet/lipgloss"
	"github.com/nfnt/resize"
	"github.com/samber/lo"

	"karolbroda.com/syllecho/internal/colors"
)

type Palette struct {
	Primary      string
	Secondary    string
	Accent       string
	Dim          string
	Gradient     []string
	GradientInfo string // describes which color pair was selected for gradient
}

var coverNames = []string{"cover", "folder", "front", "album", "artwork"}

var coverExts = []string{".jpg", ".jpeg", ".png"}

// Load decodes a local cover image. file:// urls are accepted; remote
// artwork is never fetched.
func Load(pathOrURL string) (image.Image, error) {
	if pathOrURL == "" {
		return nil, errors.New("empty artwork path")
	}
	if strings.Contains(pathOrURL, "://") && !strings.HasPrefix(pathOrURL, "file://") {
		return nil, fmt.Errorf("remote artwork is not supported: %s", pathOrURL)
	}

	path := strings.TrimPrefix(pathOrURL, "file://")
	if unescaped, err := url.PathUnescape(path); err == nil {
		path = unescaped
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open artwork file: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode artwork image: %w", err)
	}
	return img, nil
}

// FindCover looks next to a lyrics file for an image with the same base name,
// then for the usual cover file names.
func FindCover(lyricsPath string) (string, bool) {
	dir := filepath.Dir(lyricsPath)
	base := strings.TrimSuffix(filepath.Base(lyricsPath), filepath.Ext(lyricsPath))

	candidates := make([]string, 0, (len(coverNames)+1)*len(coverExts)*2)
	for _, name := range append([]string{base}, coverNames...) {
		if name == "" {
			continue
		}
		for _, ext := range coverExts {
			candidates = append(candidates, name+ext, strings.ToUpper(name[:1])+name[1:]+ext)
		}
	}

	for _, name := range lo.Uniq(candidates) {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

type scoredColor struct {
	hex        string
	rgb        [3]uint32
	sat        float64
	brightness float64
	score      float64
}

// ExtractPalette picks sung, unsung and accent colors from the cover. The
// most saturated mid-bright color leads; anything unusable falls back to the
// default palette.
func ExtractPalette(img image.Image) *Palette {
	if img == nil {
		return DefaultPalette()
	}

	extracted, err := prominentcolor.KmeansWithAll(5, img, prominentcolor.ArgumentDefault, prominentcolor.DefaultSize, nil)
	if err != nil || len(extracted) < 3 {
		return DefaultPalette()
	}

	scored := lo.Map(extracted, func(c prominentcolor.ColorItem, _ int) scoredColor {
		return scoreColor(c.Color.R, c.Color.G, c.Color.B)
	})

	primary, ok := lo.Find(sortedByScore(scored), func(c scoredColor) bool {
		return c.brightness > 0.3 && c.sat > 0.2
	})
	if !ok {
		return DefaultPalette()
	}

	rest := lo.Filter(scored, func(c scoredColor, _ int) bool { return c.rgb != primary.rgb })
	secondary, _ := lo.Find(rest, func(c scoredColor) bool {
		return c.sat > 0.15 && c.brightness > 0.3
	})
	accent, _ := lo.Find(rest, func(c scoredColor) bool {
		return c.rgb != secondary.rgb && c.sat > 0.1 && c.brightness > 0.25
	})

	picked := []scoredColor{primary, secondary, accent}
	for i := range picked {
		picked[i].hex = boostColor(picked[i].rgb[0], picked[i].rgb[1], picked[i].rgb[2], picked[i].brightness)
	}
	sort.SliceStable(picked, func(i, j int) bool {
		return picked[i].brightness > picked[j].brightness
	})

	primaryColor := picked[0].hex
	accentColor := picked[1].hex
	secondaryColor := picked[2].hex

	gradStart, gradEnd, gradientInfo := selectBestGradientPair(primaryColor, secondaryColor, accentColor)

	return &Palette{
		Primary:      primaryColor,
		Secondary:    secondaryColor,
		Accent:       accentColor,
		Dim:          defaultDim,
		Gradient:     colors.Gradient(gradStart, gradEnd, 20),
		GradientInfo: gradientInfo,
	}
}

func scoreColor(r, g, b uint32) scoredColor {
	rf := float64(r) / 255.0
	gf := float64(g) / 255.0
	bf := float64(b) / 255.0

	high := math.Max(math.Max(rf, gf), bf)
	low := math.Min(math.Min(rf, gf), bf)

	var sat float64
	if high > 0 {
		sat = (high - low) / high
	}

	return scoredColor{
		rgb:        [3]uint32{r, g, b},
		sat:        sat,
		brightness: high,
		score:      sat * (1.0 - math.Abs(high-0.6)),
	}
}

func sortedByScore(in []scoredColor) []scoredColor {
	out := append([]scoredColor(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}

// selectBestGradientPair evaluates all possible color pairs and returns
// the pair that produces the smoothest gradient along with a description
func selectBestGradientPair(primary string, secondary string, accent string) (string, string, string) {
	// define all possible color pairs
	type colorPair struct {
		start      string
		end        string
		name       string
		smoothness float64
	}

	pairs := []colorPair{
		{primary, secondary, "primary → secondary", 0},
		{primary, accent, "primary → accent", 0},
		{secondary, primary, "secondary → primary", 0},
		{secondary, accent, "secondary → accent", 0},
		{accent, primary, "accent → primary", 0},
		{accent, secondary, "accent → secondary", 0},
	}

	// calculate smoothness for each pair
	steps := 20
	for i := range pairs {
		pairs[i].smoothness = colors.Roughness(pairs[i].start, pairs[i].end, steps)
	}

	// find the pair with lowest smoothness value (smoothest gradient)
	bestIdx := 0
	for i := 1; i < len(pairs); i++ {
		if pairs[i].smoothness < pairs[bestIdx].smoothness {
			bestIdx = i
		}
	}

	// prefer pairs that start with brighter colors for visual appeal
	// but only if the smoothness difference is very small
	for i := range pairs {
		if i == bestIdx {
			continue
		}

		smoothnessDiff := pairs[i].smoothness - pairs[bestIdx].smoothness
		if smoothnessDiff < roughnessTolerance {
			// check if this pair starts with a brighter color
			startL1 := colors.Lightness(pairs[i].start)
			startL2 := colors.Lightness(pairs[bestIdx].start)

			if startL1 > startL2 {
				bestIdx = i
			}
		}
	}

	return pairs[bestIdx].start, pairs[bestIdx].end, pairs[bestIdx].name
}

const defaultDim = "#6272A4"

// roughnessTolerance is how much rougher (in CIE76 units) a gradient may be
// and still win by starting brighter.
const roughnessTolerance = 0.01

func DefaultPalette() *Palette {
	return &Palette{
		Primary:      "#8BA4E8",
		Secondary:    "#E8A4C8",
		Accent:       "#B8A8E8",
		Dim:          defaultDim,
		Gradient:     colors.Gradient("#8BA4E8", "#E8A4C8", 20),
		GradientInfo: "primary → secondary (default)",
	}
}

func boostColor(r, g, b uint32, brightness float64) string {
	if brightness < 0.4 {
		factor := 0.4 / brightness
		if factor > 2.5 {
			factor = 2.5
		}
		r = uint32(math.Min(255, float64(r)*factor))
		g = uint32(math.Min(255, float64(g)*factor))
		b = uint32(math.Min(255, float64(b)*factor))
	}

	if brightness > 0.85 {
		avg := (r + g + b) / 3
		factor := 0.7
		r = uint32(float64(avg) + (float64(r)-float64(avg))*factor)
		g = uint32(float64(avg) + (float64(g)-float64(avg))*factor)
		b = uint32(float64(avg) + (float64(b)-float64(avg))*factor)
	}

	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

func RenderHalfBlockArt(img image.Image, targetWidth int, targetHeight int) []string {
	if img == nil || targetWidth < 4 || targetHeight < 2 {
		return nil
	}

	actualHeight := targetHeight * 2

	resized := resize.Resize(uint(targetWidth), uint(actualHeight), img, resize.Lanczos3)
	bounds := resized.Bounds()

	lines := make([]string, targetHeight)

	for y := 0; y < targetHeight; y++ {
		var line strings.Builder
		topY := y * 2
		bottomY := topY + 1

		for x := 0; x < bounds.Dx(); x++ {
			topR, topG, topB, topA := resized.At(bounds.Min.X+x, bounds.Min.Y+topY).RGBA()

			var bottomR, bottomG, bottomB, bottomA uint32
			if bottomY < bounds.Dy() {
				bottomR, bottomG, bottomB, bottomA = resized.At(bounds.Min.X+x, bounds.Min.Y+bottomY).RGBA()
			} else {
				bottomR, bottomG, bottomB, bottomA = topR, topG, topB, topA
			}

			topR, topG, topB = topR>>8, topG>>8, topB>>8
			bottomR, bottomG, bottomB = bottomR>>8, bottomG>>8, bottomB>>8
			topA, bottomA = topA>>8, bottomA>>8

			if topA < 128 && bottomA < 128 {
				line.WriteString(" ")
				continue
			}

			topColor := fmt.Sprintf("#%02X%02X%02X", topR, topG, topB)
			bottomColor := fmt.Sprintf("#%02X%02X%02X", bottomR, bottomG, bottomB)

			style := lipgloss.NewStyle().
				Foreground(lipgloss.Color(topColor)).
				Background(lipgloss.Color(bottomColor))

			line.WriteString(style.Render("▀"))
		}
		lines[y] = line.String()
	}

	return lines
}
