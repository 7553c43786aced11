package terminal

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"

	"github.com/nfnt/resize"
)

type Capabilities struct {
	SupportsKittyGraphics bool
	SupportsRGB           bool
	TermProgram           string
}

func DetectCapabilities() *Capabilities {
	caps := &Capabilities{
		SupportsRGB: true,
	}

	caps.TermProgram = os.Getenv("TERM_PROGRAM")

	colorTerm := strings.ToLower(os.Getenv("COLORTERM"))
	if colorTerm != "" && colorTerm != "truecolor" && colorTerm != "24bit" {
		caps.SupportsRGB = false
	}

	// kitty graphics protocol is opt-in only via environment variable
	switch strings.ToLower(os.Getenv("SYLLECHO_USE_KITTY_GRAPHICS")) {
	case "1", "true", "yes", "on":
		caps.SupportsKittyGraphics = true
		if caps.TermProgram == "" {
			caps.TermProgram = "kitty"
		}
	}

	return caps
}

func Reset() {
	os.Stdout.WriteString("\033[?25h")
	os.Stdout.WriteString("\033[0m")
	os.Stdout.WriteString("\033[?1049l")
	os.Stdout.WriteString("\033[?1000l")
	os.Stdout.WriteString("\033[?1002l")
	os.Stdout.WriteString("\033[?1003l")
	os.Stdout.WriteString("\033[?1006l")
	os.Stdout.Sync()
}

// kitty accepts base64 payloads in chunks of at most 4096 bytes
const kittyChunkSize = 4096

// EncodeImageForKitty returns the escape sequence that draws img over a
// cols x rows cell area.
func EncodeImageForKitty(img image.Image, cols int, rows int) string {
	if img == nil {
		return ""
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width == 0 || height == 0 {
		return ""
	}

	newWidth := uint(cols * 10)
	newHeight := uint(rows * 20)

	aspectRatio := float64(width) / float64(height)
	targetAspect := float64(newWidth) / float64(newHeight)

	if aspectRatio > targetAspect {
		newHeight = uint(float64(newWidth) / aspectRatio)
	} else {
		newWidth = uint(float64(newHeight) * aspectRatio)
	}

	newWidth = max(newWidth, 10)
	newHeight = max(newHeight, 10)

	resized := resize.Resize(newWidth, newHeight, img, resize.Lanczos3)

	var buf bytes.Buffer
	err := png.Encode(&buf, resized)
	if err != nil {
		return ""
	}

	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())

	var result strings.Builder

	for i := 0; i < len(encoded); i += kittyChunkSize {
		end := min(i+kittyChunkSize, len(encoded))
		chunk := encoded[i:end]

		more := 1
		if end >= len(encoded) {
			more = 0
		}

		if i == 0 {
			result.WriteString(fmt.Sprintf("\x1b_Ga=T,f=100,c=%d,r=%d,m=%d;%s\x1b\\", cols, rows, more, chunk))
		} else {
			result.WriteString(fmt.Sprintf("\x1b_Gm=%d;%s\x1b\\", more, chunk))
		}
	}

	return result.String()
}
