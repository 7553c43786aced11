package karaoke

import (
	"fmt"
	"sync"
	"sync/atomic"

	"karolbroda.com/syllecho/internal/logger"
	"karolbroda.com/syllecho/internal/timeline"
)

// Driver is the playback side the engine samples and seeks.
type Driver interface {
	CurrentPositionMillis() int64
	DurationMillis() int64
	SeekTo(ms int64) error
}

// Presenter receives one VisualState per frame.
type Presenter interface {
	Render(VisualState)
}

// PresenterFunc adapts a plain function to Presenter.
type PresenterFunc func(VisualState)

func (f PresenterFunc) Render(v VisualState) { f(v) }

// Session is the hand-off point between whoever parses lyrics and the frame
// loop. Publish may be called from any goroutine; Frame is meant to be called
// from one frame loop at a time.
type Session struct {
	hold     HoldPolicy
	duration atomic.Int64
	offset   atomic.Int64
	current  atomic.Pointer[timeline.Timeline]

	mu   sync.Mutex
	seen *timeline.Timeline
	prev int
	last VisualState
}

func NewSession(hold HoldPolicy) *Session {
	return &Session{
		hold: hold,
		prev: timeline.None,
		last: VisualState{ActiveLine: timeline.None},
	}
}

// Publish swaps in a new timeline. The previous active line belongs to the old
// timeline, so the next frame starts without memory.
func (s *Session) Publish(tl *timeline.Timeline) {
	s.current.Store(tl)
	logger.Debug("session: published timeline with %d lines", tl.Len())
}

func (s *Session) Timeline() *timeline.Timeline {
	return s.current.Load()
}

// SetDurationMillis bounds positions passed to Frame; zero means the end of the
// timeline.
func (s *Session) SetDurationMillis(ms int64) {
	s.duration.Store(max(0, ms))
}

// SyncOffset is the user adjustment in milliseconds. A positive offset shows
// lyrics earlier.
func (s *Session) SyncOffset() int64 {
	return s.offset.Load()
}

func (s *Session) SetSyncOffset(ms int64) {
	s.offset.Store(ms)
}

func (s *Session) AdjustSyncOffset(delta int64) int64 {
	return s.offset.Add(delta)
}

// EffectivePosition applies the user offset and the file's own offset tag.
func (s *Session) EffectivePosition(positionMs int64) int64 {
	return s.effective(s.current.Load(), positionMs)
}

func (s *Session) effective(tl *timeline.Timeline, positionMs int64) int64 {
	return positionMs + s.offset.Load() + tl.Metadata().OffsetMillis
}

// Frame computes the state for one playback sample and remembers its active
// line for the next call.
func (s *Session) Frame(positionMs int64) VisualState {
	tl := s.current.Load()
	pos := s.effective(tl, positionMs)

	s.mu.Lock()
	defer s.mu.Unlock()

	if tl != s.seen {
		s.seen = tl
		s.prev = timeline.None
	}

	engine := Engine{Hold: s.hold, DurationMillis: s.duration.Load()}
	state := engine.Compute(tl, pos, s.prev)
	s.prev = state.ActiveLine
	s.last = state
	return state
}

// Last returns the state produced by the most recent Frame call.
func (s *Session) Last() VisualState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Activate seeks the driver to the start of line lineIdx, undoing the sync
// offsets so the line lights up as soon as the seek lands.
func (s *Session) Activate(lineIdx int, driver Driver) error {
	tl := s.current.Load()
	line, ok := tl.Line(lineIdx)
	if !ok {
		return fmt.Errorf("line %d out of range (0..%d)", lineIdx, tl.Len()-1)
	}

	target := line.Start - s.effective(tl, 0)
	if err := driver.SeekTo(max(0, target)); err != nil {
		return fmt.Errorf("failed to seek to line %d: %w", lineIdx, err)
	}

	logger.Debug("session: activated line %d at %dms", lineIdx, line.Start)
	return nil
}
