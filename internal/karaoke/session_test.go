package karaoke

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"karolbroda.com/syllecho/internal/timeline"
)

type fakeDriver struct {
	mu       sync.Mutex
	position int64
	duration int64
	seeks    []int64
	err      error
}

func (d *fakeDriver) CurrentPositionMillis() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.position
}

func (d *fakeDriver) DurationMillis() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.duration
}

func (d *fakeDriver) SeekTo(ms int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.seeks = append(d.seeks, ms)
	d.position = ms
	return nil
}

func TestSessionRemembersActiveLine(t *testing.T) {
	s := NewSession(HoldPolicy{})
	s.Publish(fixture())

	if got := s.Frame(500).ActiveLine; got != 0 {
		t.Fatalf("expected line 0, got %d", got)
	}
	if got := s.Frame(1500); got.ActiveLine != 0 || got.Phase != PhaseHolding {
		t.Fatalf("expected line 0 held through the gap, got %+v", got)
	}
	if got := s.Last().ActiveLine; got != 0 {
		t.Errorf("Last().ActiveLine = %d, want 0", got)
	}

	// a new timeline starts without memory, even with identical content
	s.Publish(fixture())
	if got := s.Frame(1500).ActiveLine; got != timeline.None {
		t.Errorf("expected memory reset after publish, got %d", got)
	}
}

func TestSessionWithoutTimeline(t *testing.T) {
	s := NewSession(HoldPolicy{})
	state := s.Frame(1000)
	if state.HasActiveLine() || state.Phase != PhasePreRoll {
		t.Errorf("expected pre-roll before any publish, got %+v", state)
	}
	if err := s.Activate(0, &fakeDriver{}); err == nil {
		t.Error("expected error activating a line with no timeline")
	}
}

func TestSessionOffsets(t *testing.T) {
	s := NewSession(HoldPolicy{})
	s.Publish(timeline.New(fixture().Lines(), timeline.Metadata{OffsetMillis: 200}))
	s.SetSyncOffset(300)

	if got := s.Frame(1500).Position; got != 2000 {
		t.Errorf("Position = %d, want 2000", got)
	}
	if got := s.AdjustSyncOffset(-100); got != 200 {
		t.Errorf("AdjustSyncOffset = %d, want 200", got)
	}
	if got := s.EffectivePosition(1000); got != 1400 {
		t.Errorf("EffectivePosition = %d, want 1400", got)
	}
}

func TestSessionActivate(t *testing.T) {
	s := NewSession(HoldPolicy{})
	s.Publish(fixture())
	s.SetSyncOffset(500)

	d := &fakeDriver{}
	if err := s.Activate(1, d); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if err := s.Activate(0, d); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	want := []int64{1500, 0}
	if len(d.seeks) != len(want) || d.seeks[0] != want[0] || d.seeks[1] != want[1] {
		t.Errorf("seeks = %v, want %v", d.seeks, want)
	}

	if state := s.Frame(d.CurrentPositionMillis()); state.ActiveLine != 0 {
		t.Errorf("expected line 0 active after seek, got %d", state.ActiveLine)
	}

	if err := s.Activate(99, d); err == nil {
		t.Error("expected error for out of range line")
	}

	seekErr := errors.New("player gone")
	if err := s.Activate(1, &fakeDriver{err: seekErr}); !errors.Is(err, seekErr) {
		t.Errorf("expected wrapped driver error, got %v", err)
	}
}

func TestLoaderDiscardsStaleResults(t *testing.T) {
	s := NewSession(HoldPolicy{})
	l := NewLoader(s)

	release := make(chan struct{})
	results := make(chan LoadResult, 2)
	done := func(r LoadResult) { results <- r }

	slow := timeline.New([]timeline.Line{{Start: 0, End: 10}}, timeline.Metadata{Title: "slow"})
	fast := timeline.New([]timeline.Line{{Start: 0, End: 10}}, timeline.Metadata{Title: "fast"})

	first := l.Load(func() (*timeline.Timeline, error) {
		<-release
		return slow, nil
	}, done)
	second := l.Load(func() (*timeline.Timeline, error) {
		return fast, nil
	}, done)

	r := <-results
	if r.Generation != second || r.Stale {
		t.Fatalf("expected fresh result of load %d first, got %+v", second, r)
	}

	close(release)
	r = <-results
	if r.Generation != first || !r.Stale {
		t.Fatalf("expected stale result of load %d, got %+v", first, r)
	}

	if got := s.Timeline().Metadata().Title; got != "fast" {
		t.Errorf("published timeline = %q, want fast", got)
	}
	l.Close()
}

func TestLoaderCloseDiscardsInFlight(t *testing.T) {
	s := NewSession(HoldPolicy{})
	l := NewLoader(s)

	started := make(chan struct{})
	release := make(chan struct{})
	var result LoadResult
	l.Load(func() (*timeline.Timeline, error) {
		close(started)
		<-release
		return fixture(), nil
	}, func(r LoadResult) { result = r })

	<-started
	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()
	l.Close()

	if !result.Stale {
		t.Errorf("expected in-flight load to be stale after Close, got %+v", result)
	}
	if s.Timeline() != nil {
		t.Error("expected nothing published after Close")
	}
}

func TestLoaderReportsErrors(t *testing.T) {
	s := NewSession(HoldPolicy{})
	l := NewLoader(s)
	defer l.Close()

	parseErr := errors.New("bad file")
	results := make(chan LoadResult, 1)
	l.Load(func() (*timeline.Timeline, error) { return nil, parseErr }, func(r LoadResult) { results <- r })

	r := <-results
	if !errors.Is(r.Err, parseErr) || r.Stale {
		t.Errorf("unexpected result %+v", r)
	}
	if s.Timeline() != nil {
		t.Error("failed load must not publish")
	}
}

func TestLoopRendersEachFrame(t *testing.T) {
	s := NewSession(HoldPolicy{})
	s.Publish(fixture())
	d := &fakeDriver{duration: 8000}

	frames := make(ChanFrames)
	var rendered []VisualState
	loop := &Loop{
		Frames:    frames,
		Driver:    d,
		Presenter: PresenterFunc(func(v VisualState) { rendered = append(rendered, v) }),
		Session:   s,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(context.Background()) }()

	for _, pos := range []int64{500, 1500, 2500, 7000} {
		d.mu.Lock()
		d.position = pos
		d.mu.Unlock()
		frames <- time.Now()
	}
	close(frames)

	if err := <-errCh; err != nil {
		t.Fatalf("Run returned %v", err)
	}

	wantActive := []int{0, 0, 1, timeline.None}
	if len(rendered) != len(wantActive) {
		t.Fatalf("rendered %d frames, want %d", len(rendered), len(wantActive))
	}
	for i, want := range wantActive {
		if rendered[i].ActiveLine != want {
			t.Errorf("frame %d: ActiveLine = %d, want %d", i, rendered[i].ActiveLine, want)
		}
	}
	if rendered[3].Phase != PhaseEnded {
		t.Errorf("expected ended phase past the last line, got %s", rendered[3].Phase)
	}
}

func TestLoopStopsOnCancel(t *testing.T) {
	s := NewSession(HoldPolicy{})
	ctx, cancel := context.WithCancel(context.Background())

	loop := &Loop{
		Frames:    TickerFrames(time.Millisecond),
		Driver:    &fakeDriver{},
		Presenter: PresenterFunc(func(VisualState) {}),
		Session:   s,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("loop did not stop after cancel")
	}
}
