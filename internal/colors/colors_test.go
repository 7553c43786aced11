package colors

import (
	"math"
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"#ff8000", "#FF8000"},
		{"000000", "#000000"},
		{"#fff", "#FFFFFF"},
		{"#zzz", "#FFFFFF"},
		{"", "#FFFFFF"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestMix(t *testing.T) {
	tests := []struct {
		name string
		t    float64
		want string
	}{
		{"start", 0, "#102030"},
		{"end", 1, "#F0E0D0"},
		{"below range", -2, "#102030"},
		{"above range", 3, "#F0E0D0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Mix("#102030", "#f0e0d0", tt.t); got != tt.want {
				t.Errorf("Mix = %s, want %s", got, tt.want)
			}
		})
	}

	if l := Lightness(Mix("#000000", "#FFFFFF", 0.5)); l < 0.4 || l > 0.6 {
		t.Errorf("midpoint lightness = %v", l)
	}
}

func TestScaleAndGlow(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"half", Scale("#808080", 0.5), "#404040"},
		{"overdriven", Scale("#808080", 4), "#FFFFFF"},
		{"negative", Scale("#808080", -1), "#000000"},
		{"full glow", Glow("#808080", 1), "#CDCDCD"},
		{"no glow", Glow("#808080", 0), "#808080"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %s, want %s", tt.got, tt.want)
			}
		})
	}
}

func TestGradient(t *testing.T) {
	grad := Gradient("#000000", "#FFFFFF", 5)
	if len(grad) != 5 {
		t.Fatalf("len = %d", len(grad))
	}
	if grad[0] != "#000000" || grad[4] != "#FFFFFF" {
		t.Errorf("endpoints = %s .. %s", grad[0], grad[4])
	}
	for i := 1; i < len(grad); i++ {
		if Lightness(grad[i]) < Lightness(grad[i-1]) {
			t.Errorf("lightness drops at stop %d: %v", i, grad)
		}
	}

	if n := len(Gradient("#000000", "#FFFFFF", 0)); n != 2 {
		t.Errorf("expected two stops, got %d", n)
	}
}

func TestRoughness(t *testing.T) {
	if got := Roughness("#8BA4E8", "#8BA4E8", 20); got != 0 {
		t.Errorf("flat gradient roughness = %v", got)
	}
	coarse := Roughness("#8BA4E8", "#E8A4C8", 3)
	fine := Roughness("#8BA4E8", "#E8A4C8", 30)
	if fine >= coarse {
		t.Errorf("more stops should be smoother: %v >= %v", fine, coarse)
	}
}

func TestStop(t *testing.T) {
	grad := []string{"#000000", "#111111", "#222222"}
	tests := map[float64]string{-1: "#000000", 0: "#000000", 0.5: "#111111", 1: "#222222", 7: "#222222"}
	for in, want := range tests {
		if got := Stop(grad, in); got != want {
			t.Errorf("Stop(%v) = %s, want %s", in, got, want)
		}
	}
	if got := Stop(nil, 0.5); got != "#FFFFFF" {
		t.Errorf("empty gradient gave %s", got)
	}
}

func TestHighlight(t *testing.T) {
	// a shimmer phase of -pi/2 keeps columns 0..4 out of the shimmer
	quiet := -math.Pi / 2

	tests := []struct {
		name string
		got  string
		want string
	}{
		{
			"gradient start",
			Highlight{Gradient: []string{"#112233", "#445566"}, Shimmer: quiet}.Sung(0, 5),
			"#112233",
		},
		{
			"gradient end",
			Highlight{Gradient: []string{"#112233", "#445566"}, Shimmer: quiet}.Sung(4, 5),
			"#445566",
		},
		{
			"fallback pair",
			Highlight{From: "#000000", To: "#FFFFFF", Shimmer: quiet}.Sung(4, 5),
			"#FFFFFF",
		},
		{
			"glow on a fresh line",
			Highlight{Gradient: []string{"#404040"}, Glow: 1, Shimmer: quiet}.Sung(0, 5),
			"#535353",
		},
		{
			"untouched rune stays unsung",
			Highlight{Gradient: []string{"#445566"}, Unsung: "#aaaaaa", Shimmer: quiet}.Partial(0, 5, 0),
			"#AAAAAA",
		},
		{
			"finished rune is sung",
			Highlight{Gradient: []string{"#445566"}, Unsung: "#AAAAAA", Shimmer: quiet}.Partial(0, 5, 1),
			"#445566",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %s, want %s", tt.got, tt.want)
			}
		})
	}
}

func TestUnsungTone(t *testing.T) {
	lead := UnsungTone("#6272A4", false)
	backing := UnsungTone("#6272A4", true)
	if Lightness(backing) >= Lightness(lead) {
		t.Errorf("background vocals %s should be darker than %s", backing, lead)
	}
	if Lightness(lead) <= Lightness("#6272A4") {
		t.Errorf("unsung tone %s should sit above the dim colour", lead)
	}
}

func TestGradientText(t *testing.T) {
	if GradientText("", []string{"#FFFFFF"}, false) != "" {
		t.Error("empty text should render empty")
	}
	if got := GradientText("abc", nil, false); got != "abc" {
		t.Errorf("no gradient should pass text through, got %q", got)
	}
	if got := GradientText("äbc", []string{"#FF0000", "#0000FF"}, true); !strings.Contains(got, "ä") {
		t.Errorf("rendered text lost runes: %q", got)
	}
}
