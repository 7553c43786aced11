//go:build !cgo

package player

import (
	"fmt"
	"os"

	"karolbroda.com/syllecho/internal/logger"
)

// AudioAvailable reports whether this build can play sound. Audio output
// needs cgo, so this build follows a silent clock instead.
const AudioAvailable = false

type Local struct {
	*Clock
	done chan struct{}
}

func OpenLocal(path string) (*Local, error) {
	if _, err := audioKindOf(path); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open audio: %w", err)
	}

	logger.Warn("audio: built without cgo, %s will not be heard", path)

	clock := NewClock(0)
	_ = clock.TogglePause()
	return &Local{Clock: clock, done: make(chan struct{})}, nil
}

func (l *Local) Start() {
	if !l.Playing() {
		_ = l.TogglePause()
	}
}

func (l *Local) Done() <-chan struct{} {
	return l.done
}

func (l *Local) Close() error {
	return nil
}
