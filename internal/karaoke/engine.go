package karaoke

import (
	"time"

	"github.com/samber/lo"

	"karolbroda.com/syllecho/internal/timeline"
)

type Phase int

const (
	// PhasePreRoll: position is before the first line.
	PhasePreRoll Phase = iota
	// PhaseActive: position lies inside the active line's range.
	PhaseActive
	// PhaseHolding: position is in a gap and the previous line is kept lit.
	PhaseHolding
	// PhaseGap: position is in a gap and nothing is lit.
	PhaseGap
	// PhaseEnded: position is past every line.
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhasePreRoll:
		return "pre-roll"
	case PhaseActive:
		return "active"
	case PhaseHolding:
		return "holding"
	case PhaseGap:
		return "gap"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// ScrollTarget is where the view should settle. Offset is how far through the
// line the position is, for views that scroll within tall wrapped lines.
type ScrollTarget struct {
	Line   int
	Offset float64
}

// VisualState is the per-frame result of the engine. A new one is built for
// every call and never modified afterwards.
type VisualState struct {
	Position   int64
	ActiveLine int
	Progress   []float64
	Scroll     ScrollTarget
	Phase      Phase
}

func (v VisualState) HasActiveLine() bool {
	return v.ActiveLine != timeline.None
}

// HoldPolicy decides how long a finished line stays lit while waiting for the
// next one. MaxHold zero holds until the next line starts.
type HoldPolicy struct {
	MaxHold time.Duration
}

func (h HoldPolicy) allows(gapMillis int64) bool {
	if h.MaxHold <= 0 {
		return true
	}
	return gapMillis <= h.MaxHold.Milliseconds()
}

// Engine maps a playback position onto a VisualState. It keeps no state of
// its own; the one step of memory it needs is passed in as prevActive.
type Engine struct {
	Hold HoldPolicy
	// DurationMillis bounds the position; zero or less falls back to the end
	// of the timeline.
	DurationMillis int64
}

// Compute never fails. Positions outside [0, duration] are clamped first.
func (e Engine) Compute(tl *timeline.Timeline, positionMs int64, prevActive int) VisualState {
	pos := e.clampPosition(tl, positionMs)

	state := VisualState{
		Position:   pos,
		ActiveLine: timeline.None,
		Scroll:     ScrollTarget{Line: 0},
		Phase:      PhasePreRoll,
	}

	n := tl.Len()
	if n == 0 || pos < tl.Start() {
		return state
	}

	latest := tl.LineContaining(pos)
	active := tl.CoveringLine(pos)
	held := timeline.None
	if active == timeline.None && pos <= tl.End() {
		held = e.holdLine(tl, pos, prevActive, latest)
	}

	switch {
	case active != timeline.None:
		state.Phase = PhaseActive
	case pos > tl.End():
		state.Phase = PhaseEnded
		state.Scroll = ScrollTarget{Line: n - 1, Offset: 1}
		return state
	case held != timeline.None:
		active = held
		state.Phase = PhaseHolding
	default:
		state.Phase = PhaseGap
		state.Scroll = ScrollTarget{Line: min(latest+1, n-1)}
		return state
	}

	line, _ := tl.Line(active)
	state.ActiveLine = active
	state.Progress = lo.Map(line.Syllables, func(s timeline.Syllable, _ int) float64 {
		return SyllableProgress(s, pos)
	})
	state.Scroll = ScrollTarget{Line: active, Offset: lineOffset(line, pos)}

	return state
}

// holdLine picks the line to keep lit at pos, or None. The held line is the
// one whose end opened the gap, even when prevActive is an earlier line that
// finished before it or a zero-width line after it, so the result does not
// depend on where earlier frames landed. Memory from a later line (a seek
// backward) drops the hold.
func (e Engine) holdLine(tl *timeline.Timeline, pos int64, prevActive int, latest int) int {
	if prevActive == timeline.None || prevActive > latest || latest >= tl.Len()-1 {
		return timeline.None
	}
	opener := gapOpener(tl, latest)
	if opener == timeline.None {
		return timeline.None
	}
	line, _ := tl.Line(opener)
	if !e.Hold.allows(pos - line.End) {
		return timeline.None
	}
	return opener
}

// gapOpener returns the line at or before latest with the latest end,
// preferring the later index on ties. Zero-width lines never open a gap.
func gapOpener(tl *timeline.Timeline, latest int) int {
	opener, end := timeline.None, int64(0)
	for i := latest; i >= 0; i-- {
		if opener != timeline.None && tl.EndThrough(i) <= end {
			break
		}
		l, _ := tl.Line(i)
		if l.End == l.Start {
			continue
		}
		if opener == timeline.None || l.End > end {
			opener, end = i, l.End
		}
	}
	return opener
}

func (e Engine) clampPosition(tl *timeline.Timeline, positionMs int64) int64 {
	upper := e.DurationMillis
	if upper <= 0 {
		upper = tl.End()
	}
	if positionMs < 0 {
		return 0
	}
	if upper > 0 && positionMs > upper {
		return upper
	}
	return positionMs
}

// SyllableProgress is 0 at or before the syllable start, 1 at or after its
// end, and linear in between. A zero-length syllable is complete as soon as
// the position reaches it.
func SyllableProgress(s timeline.Syllable, pos int64) float64 {
	if pos >= s.End {
		return 1
	}
	if pos <= s.Start {
		return 0
	}
	span := max(int64(1), s.End-s.Start)
	return lo.Clamp(float64(pos-s.Start)/float64(span), 0, 1)
}

func lineOffset(line timeline.Line, pos int64) float64 {
	if line.End <= line.Start {
		if pos >= line.End {
			return 1
		}
		return 0
	}
	return lo.Clamp(float64(pos-line.Start)/float64(line.End-line.Start), 0, 1)
}
