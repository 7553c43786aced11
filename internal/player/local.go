package player

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var ErrUnsupportedAudio = errors.New("unsupported audio format")

type audioKind int

const (
	audioMP3 audioKind = iota
	audioWAV
)

func audioKindOf(path string) (audioKind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return audioMP3, nil
	case ".wav", ".wave":
		return audioWAV, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedAudio, filepath.Base(path))
	}
}
