package timeline

import (
	"fmt"
	"sort"
	"strings"
)

// None is returned by lookups when no line or syllable matches.
const None = -1

type Alignment int

const (
	AlignUnset Alignment = iota
	AlignStart
	AlignEnd
)

func (a Alignment) String() string {
	switch a {
	case AlignStart:
		return "start"
	case AlignEnd:
		return "end"
	default:
		return "unset"
	}
}

// Syllable is the smallest timed unit of a line. Times are milliseconds.
type Syllable struct {
	Start         int64
	End           int64
	Text          string
	LeadingSpace  bool
	TrailingSpace bool
}

func (s Syllable) Duration() int64 {
	return s.End - s.Start
}

type Line struct {
	Start       int64
	End         int64
	Syllables   []Syllable
	Translation string
	Background  bool
	Alignment   Alignment
}

func (l Line) Duration() int64 {
	return l.End - l.Start
}

// IsMarker reports whether the line carries no sung text, e.g. an
// instrumental break.
func (l Line) IsMarker() bool {
	return len(l.Syllables) == 0 || l.Start == l.End
}

func (l Line) Contains(pos int64) bool {
	return pos >= l.Start && pos <= l.End
}

// Text joins the syllables, inserting a single space wherever either side of
// a boundary asked for one.
func (l Line) Text() string {
	var b strings.Builder
	for i, s := range l.Syllables {
		if s.LeadingSpace && i > 0 && !l.Syllables[i-1].TrailingSpace {
			b.WriteByte(' ')
		}
		b.WriteString(s.Text)
		if s.TrailingSpace && i < len(l.Syllables)-1 {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func (l Line) clone() Line {
	c := l
	if l.Syllables != nil {
		c.Syllables = make([]Syllable, len(l.Syllables))
		copy(c.Syllables, l.Syllables)
	}
	return c
}

type Metadata struct {
	Title        string
	Artist       string
	Album        string
	By           string
	OffsetMillis int64
}

// Timeline is the parsed form of one lyrics asset. It never changes after
// New returns, so it can be shared between goroutines without locking.
type Timeline struct {
	lines  []Line
	maxEnd []int64
	meta   Metadata
}

// New copies lines, orders them by start time (stable, so equal starts keep
// file order) and returns the immutable timeline.
func New(lines []Line, meta Metadata) *Timeline {
	owned := make([]Line, len(lines))
	for i, l := range lines {
		owned[i] = l.clone()
	}

	sort.SliceStable(owned, func(i, j int) bool {
		return owned[i].Start < owned[j].Start
	})

	maxEnd := make([]int64, len(owned))
	var running int64
	for i, l := range owned {
		if i == 0 || l.End > running {
			running = l.End
		}
		maxEnd[i] = running
	}

	return &Timeline{
		lines:  owned,
		maxEnd: maxEnd,
		meta:   meta,
	}
}

func (t *Timeline) Len() int {
	if t == nil {
		return 0
	}
	return len(t.lines)
}

func (t *Timeline) Metadata() Metadata {
	if t == nil {
		return Metadata{}
	}
	return t.meta
}

// Line returns a copy of line i. ok is false for an out-of-range index.
func (t *Timeline) Line(i int) (Line, bool) {
	if t == nil || i < 0 || i >= len(t.lines) {
		return Line{}, false
	}
	return t.lines[i].clone(), true
}

func (t *Timeline) Lines() []Line {
	if t == nil {
		return nil
	}
	out := make([]Line, len(t.lines))
	for i, l := range t.lines {
		out[i] = l.clone()
	}
	return out
}

func (t *Timeline) Start() int64 {
	if t.Len() == 0 {
		return 0
	}
	return t.lines[0].Start
}

// End is the latest end of any line, which is not necessarily the end of the
// last line when lines overlap.
func (t *Timeline) End() int64 {
	if t.Len() == 0 {
		return 0
	}
	return t.maxEnd[len(t.maxEnd)-1]
}

// EndThrough is the latest end among lines 0..i. When pos sits in a gap after
// line i, this is where the gap began.
func (t *Timeline) EndThrough(i int) int64 {
	if t == nil || i < 0 || i >= len(t.maxEnd) {
		return 0
	}
	return t.maxEnd[i]
}

// LineContaining returns the last line whose start is <= pos, or None when
// pos precedes the first line.
func (t *Timeline) LineContaining(pos int64) int {
	n := t.Len()
	if n == 0 {
		return None
	}
	idx := sort.Search(n, func(i int) bool {
		return t.lines[i].Start > pos
	})
	return idx - 1
}

// CoveringLine returns the latest-starting line whose range includes pos, or
// None when pos sits in a gap. Overlapping lines are handled by walking back
// from LineContaining until no earlier line can still be running.
func (t *Timeline) CoveringLine(pos int64) int {
	for i := t.LineContaining(pos); i >= 0; i-- {
		if t.maxEnd[i] < pos {
			return None
		}
		if t.lines[i].Contains(pos) {
			return i
		}
	}
	return None
}

// SyllableContaining is LineContaining for the syllables of line lineIdx.
func (t *Timeline) SyllableContaining(lineIdx int, pos int64) int {
	if t == nil || lineIdx < 0 || lineIdx >= len(t.lines) {
		return None
	}
	syllables := t.lines[lineIdx].Syllables
	idx := sort.Search(len(syllables), func(i int) bool {
		return syllables[i].Start > pos
	})
	return idx - 1
}

// WithTranslations returns a copy of the timeline with secondary text set on
// every line whose start lies within tolerance of a translation timestamp.
// Background lines are left alone so a translation lands on the lead vocal.
func (t *Timeline) WithTranslations(translations map[int64]string, tolerance int64) *Timeline {
	if t == nil {
		return nil
	}
	if len(translations) == 0 {
		return t
	}

	stamps := make([]int64, 0, len(translations))
	for ts := range translations {
		stamps = append(stamps, ts)
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i] < stamps[j] })

	lines := t.Lines()
	for i := range lines {
		if lines[i].Background {
			continue
		}
		ts, ok := nearest(stamps, lines[i].Start, tolerance)
		if ok {
			lines[i].Translation = translations[ts]
		}
	}

	return New(lines, t.meta)
}

func nearest(sorted []int64, target int64, tolerance int64) (int64, bool) {
	idx := sort.Search(len(sorted), func(i int) bool {
		return sorted[i] >= target
	})

	best := int64(0)
	bestDist := int64(-1)
	for _, i := range []int{idx - 1, idx} {
		if i < 0 || i >= len(sorted) {
			continue
		}
		dist := sorted[i] - target
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = sorted[i], dist
		}
	}

	if bestDist < 0 || bestDist > tolerance {
		return 0, false
	}
	return best, true
}

// FormatMillis renders a position as m:ss. Negative positions read as 0:00.
func FormatMillis(ms int64) string {
	if ms < 0 {
		return "0:00"
	}
	seconds := ms / 1000
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
