package karaoke

import (
	"context"
	"time"
)

// FrameSource delivers one signal per display refresh. The channel closing
// ends the loop.
type FrameSource interface {
	Frames() <-chan time.Time
	Stop()
}

type tickerFrames struct {
	ticker *time.Ticker
}

// TickerFrames is a FrameSource backed by a time.Ticker.
func TickerFrames(interval time.Duration) FrameSource {
	return &tickerFrames{ticker: time.NewTicker(interval)}
}

func (t *tickerFrames) Frames() <-chan time.Time { return t.ticker.C }
func (t *tickerFrames) Stop()                    { t.ticker.Stop() }

// ChanFrames wraps a channel the caller feeds by hand.
type ChanFrames chan time.Time

func (c ChanFrames) Frames() <-chan time.Time { return c }
func (c ChanFrames) Stop()                    {}

// Loop pulls a position from Driver on every frame, runs it through Session
// and hands the result to Presenter. It never sleeps on its own.
type Loop struct {
	Frames    FrameSource
	Driver    Driver
	Presenter Presenter
	Session   *Session
}

// Run blocks until ctx is cancelled or the frame source closes. The frame
// source is stopped on return.
func (l *Loop) Run(ctx context.Context) error {
	defer l.Frames.Stop()

	frames := l.Frames.Frames()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-frames:
			if !ok {
				return nil
			}
			l.Session.SetDurationMillis(l.Driver.DurationMillis())
			state := l.Session.Frame(l.Driver.CurrentPositionMillis())
			l.Presenter.Render(state)
		}
	}
}
