package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"karolbroda.com/syllecho/internal/karaoke"
	"karolbroda.com/syllecho/internal/timeline"
)

type fakeDriver struct {
	pos     int64
	dur     int64
	seeks   []int64
	playing bool
}

func (d *fakeDriver) CurrentPositionMillis() int64 { return d.pos }
func (d *fakeDriver) DurationMillis() int64        { return d.dur }
func (d *fakeDriver) Playing() bool                { return d.playing }

func (d *fakeDriver) SeekTo(ms int64) error {
	d.seeks = append(d.seeks, ms)
	d.pos = ms
	return nil
}

func (d *fakeDriver) TogglePause() error {
	d.playing = !d.playing
	return nil
}

func syl(start, end int64, text string, trailing bool) timeline.Syllable {
	return timeline.Syllable{Start: start, End: end, Text: text, TrailingSpace: trailing}
}

// lines: [0,1000] [2000,3000] then a three second gap before [6000,7000]
func fixtureTimeline() *timeline.Timeline {
	return timeline.New([]timeline.Line{
		{Start: 0, End: 1000, Syllables: []timeline.Syllable{syl(0, 500, "Hel", false), syl(500, 1000, "lo", false)}},
		{Start: 2000, End: 3000, Syllables: []timeline.Syllable{syl(2000, 3000, "World", false)}},
		{Start: 6000, End: 7000, Syllables: []timeline.Syllable{syl(6000, 7000, "Again", false)}},
	}, timeline.Metadata{Title: "Fixture"})
}

func loadedModel(t *testing.T, d *fakeDriver) Model {
	t.Helper()
	session := karaoke.NewSession(karaoke.HoldPolicy{})
	tl := fixtureTimeline()
	session.Publish(tl)

	m := NewModel(ModelConfig{
		LyricsPath:    "fixture.lys",
		Driver:        d,
		Session:       session,
		HideHeader:    true,
		FrameInterval: 33 * time.Millisecond,
	})
	m.width, m.height = 80, 24

	next, _ := m.Update(LyricsLoadedMsg{Result: karaoke.LoadResult{Generation: 1, Timeline: tl}})
	return next.(Model)
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestLoadedModelFollowsDriver(t *testing.T) {
	d := &fakeDriver{playing: true}
	m := loadedModel(t, d)

	if !m.loaded || m.State().ActiveLine != 0 {
		t.Fatalf("expected line 0 active after load, got %+v", m.State())
	}

	d.pos = 2500
	m = update(t, m, TickMsg(time.Now()))
	if m.State().ActiveLine != 1 || m.State().Phase != karaoke.PhaseActive {
		t.Errorf("state at 2500 = %+v", m.State())
	}
	if m.AnimState().TargetScroll != 1 {
		t.Errorf("scroll target = %v, want 1", m.AnimState().TargetScroll)
	}

	// the previous line stays lit through the gap
	d.pos = 4000
	m = update(t, m, TickMsg(time.Now()))
	if m.State().Phase != karaoke.PhaseHolding || m.State().ActiveLine != 1 {
		t.Errorf("state at 4000 = %+v", m.State())
	}
}

func TestStaleAndFailedLoads(t *testing.T) {
	d := &fakeDriver{}
	m := loadedModel(t, d)

	m = update(t, m, LyricsLoadedMsg{Result: karaoke.LoadResult{Stale: true, Err: errors.New("old")}})
	if m.Err() != nil {
		t.Errorf("stale result should be ignored, got err %v", m.Err())
	}

	m = update(t, m, LyricsLoadedMsg{Result: karaoke.LoadResult{Err: errors.New("broken edit")}})
	if m.Err() == nil || !m.loaded {
		t.Error("failed reload should report the error and keep the timeline")
	}
	if !strings.Contains(m.View(), "Hello") {
		t.Error("view lost the last good timeline")
	}
}

func TestKeysAdjustOffsetAndSeek(t *testing.T) {
	d := &fakeDriver{pos: 1000}
	m := loadedModel(t, d)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'+'}})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'+'}})
	if got := m.SyncOffset(); got != 200 {
		t.Errorf("offset = %d, want 200", got)
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'0'}})
	if got := m.SyncOffset(); got != 0 {
		t.Errorf("offset after reset = %d", got)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if d.pos != 6000 {
		t.Errorf("seek forward landed at %d, want 6000", d.pos)
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if d.pos != 0 {
		t.Errorf("seek backward landed at %d, want 0", d.pos)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if !d.playing {
		t.Error("space should toggle playback")
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.HideHeader() {
		t.Error("tab should show the header again")
	}
}

func TestDownKeyActivatesNextLine(t *testing.T) {
	d := &fakeDriver{pos: 100}
	m := loadedModel(t, d)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if len(d.seeks) != 1 || d.seeks[0] != 2000 {
		t.Fatalf("seeks = %v, want [2000]", d.seeks)
	}
	if m.State().ActiveLine != 1 {
		t.Errorf("active line = %d, want 1", m.State().ActiveLine)
	}
}

func TestClickSeeksToLine(t *testing.T) {
	d := &fakeDriver{pos: 100}
	m := loadedModel(t, d)

	// header hidden: line 0 sits at the middle row, line 1 two rows below
	if got := m.lineAt(12); got != 0 {
		t.Fatalf("lineAt(12) = %d, want 0", got)
	}
	if got := m.lineAt(13); got != timeline.None {
		t.Errorf("spacing row mapped to line %d", got)
	}

	m = update(t, m, tea.MouseMsg{X: 40, Y: 14, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if len(d.seeks) != 1 || d.seeks[0] != 2000 {
		t.Fatalf("seeks = %v, want [2000]", d.seeks)
	}

	m = update(t, m, tea.MouseMsg{X: 40, Y: 0, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if len(d.seeks) != 1 {
		t.Errorf("click on empty row seeked: %v", d.seeks)
	}
}

func TestInterludeFillDuringGap(t *testing.T) {
	// starting inside the second gap leaves nothing to hold
	d := &fakeDriver{pos: 4500}
	m := loadedModel(t, d)

	m = update(t, m, TickMsg(time.Now()))
	if m.State().Phase != karaoke.PhaseGap || m.State().Scroll.Line != 2 {
		t.Fatalf("state = %+v", m.State())
	}

	fill, ok := m.interludeFill()
	if !ok || fill != 0.5 {
		t.Errorf("interludeFill = %v, %v; want 0.5, true", fill, ok)
	}

	d.pos = 1500
	m = update(t, m, TickMsg(time.Now()))
	if _, ok := m.interludeFill(); ok {
		t.Error("a one second gap should not show dots")
	}
}

func TestViewStates(t *testing.T) {
	session := karaoke.NewSession(karaoke.HoldPolicy{})
	m := NewModel(ModelConfig{LyricsPath: "fixture.lys", Driver: &fakeDriver{}, Session: session})
	m.width, m.height = 100, 30

	if view := m.View(); !strings.Contains(view, "loading lyrics") {
		t.Errorf("waiting screen missing spinner text:\n%s", view)
	}

	m = update(t, m, LyricsLoadedMsg{Result: karaoke.LoadResult{Err: errors.New("no such file")}})
	if view := m.View(); !strings.Contains(view, "no such file") {
		t.Errorf("waiting screen missing error:\n%s", view)
	}

	loaded := loadedModel(t, &fakeDriver{pos: 2500})
	loaded.hideHeader = false
	view := loaded.View()
	for _, want := range []string{"Fixture", "World", "0:02"} {
		if !strings.Contains(view, want) {
			t.Errorf("main view missing %q", want)
		}
	}
	if got := len(strings.Split(view, "\n")); got != 24 {
		t.Errorf("view has %d rows, want 24", got)
	}
}

func TestFileChangeMarksReload(t *testing.T) {
	m := loadedModel(t, &fakeDriver{})
	if m.IsLoading() {
		t.Fatal("loaded model still loading")
	}

	next, cmd := m.Update(LyricsChangedMsg{Path: "fixture.lys"})
	m = next.(Model)
	if !m.IsLoading() || cmd == nil {
		t.Error("a change on disk should start a reload")
	}

	m = update(t, m, LyricsLoadedMsg{Result: karaoke.LoadResult{Generation: 2, Timeline: fixtureTimeline()}})
	if m.IsLoading() {
		t.Error("reload result should clear the loading flag")
	}
}

func TestQuitStopsModel(t *testing.T) {
	m := loadedModel(t, &fakeDriver{})
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if !next.(Model).IsQuitting() || cmd == nil {
		t.Error("q should quit")
	}
	if next.(Model).View() != "" {
		t.Error("quitting model should render nothing")
	}
}
