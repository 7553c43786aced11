//go:build cgo

package player

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"

	"karolbroda.com/syllecho/internal/logger"
)

// AudioAvailable reports whether this build can play sound.
const AudioAvailable = true

var (
	speakerRate = beep.SampleRate(44100)
	speakerOnce sync.Once
	speakerErr  error
)

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(speakerRate, speakerRate.N(time.Second/10))
	})
	return speakerErr
}

// Local plays an mp3 or wav file through the default audio device.
type Local struct {
	mu       sync.Mutex
	path     string
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	done     chan struct{}
}

// OpenLocal decodes path and queues it paused; call Start to begin.
func OpenLocal(path string) (*Local, error) {
	kind, err := audioKindOf(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio: %w", err)
	}

	var streamer beep.StreamSeekCloser
	var format beep.Format
	switch kind {
	case audioWAV:
		streamer, format, err = wav.Decode(f)
	default:
		streamer, format, err = mp3.Decode(f)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	if err := initSpeaker(); err != nil {
		streamer.Close()
		return nil, fmt.Errorf("failed to initialize speaker: %w", err)
	}

	l := &Local{
		path:     path,
		streamer: streamer,
		format:   format,
		done:     make(chan struct{}),
	}
	resampled := beep.Resample(4, format.SampleRate, speakerRate, streamer)
	l.ctrl = &beep.Ctrl{Streamer: resampled, Paused: true}

	speaker.Play(beep.Seq(l.ctrl, beep.Callback(func() {
		close(l.done)
	})))

	logger.Info("audio: opened %s (%d Hz, %s)", path, format.SampleRate, format.SampleRate.D(streamer.Len()))
	return l, nil
}

func (l *Local) Start() {
	l.setPaused(false)
}

func (l *Local) setPaused(paused bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ctrl == nil {
		return
	}
	speaker.Lock()
	l.ctrl.Paused = paused
	speaker.Unlock()
}

func (l *Local) CurrentPositionMillis() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.streamer == nil {
		return 0
	}

	speaker.Lock()
	pos := l.streamer.Position()
	speaker.Unlock()

	return l.format.SampleRate.D(pos).Milliseconds()
}

func (l *Local) DurationMillis() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.streamer == nil {
		return 0
	}
	return l.format.SampleRate.D(l.streamer.Len()).Milliseconds()
}

func (l *Local) SeekTo(ms int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.streamer == nil {
		return nil
	}

	speaker.Lock()
	defer speaker.Unlock()

	samples := l.format.SampleRate.N(time.Duration(max(0, ms)) * time.Millisecond)
	samples = min(samples, l.streamer.Len())
	if err := l.streamer.Seek(samples); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	return nil
}

func (l *Local) TogglePause() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ctrl == nil {
		return nil
	}
	speaker.Lock()
	l.ctrl.Paused = !l.ctrl.Paused
	speaker.Unlock()
	return nil
}

func (l *Local) Playing() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ctrl == nil {
		return false
	}
	speaker.Lock()
	defer speaker.Unlock()
	return !l.ctrl.Paused
}

// Done is closed when the file has played to the end.
func (l *Local) Done() <-chan struct{} {
	return l.done
}

func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ctrl != nil {
		speaker.Lock()
		l.ctrl.Paused = true
		speaker.Unlock()
	}
	var err error
	if l.streamer != nil {
		err = l.streamer.Close()
		l.streamer = nil
	}
	l.ctrl = nil
	return err
}
