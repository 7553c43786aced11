package karaoke

import (
	"sync"
	"sync/atomic"

	"karolbroda.com/syllecho/internal/logger"
	"karolbroda.com/syllecho/internal/timeline"
)

// ParseFunc produces a timeline off the frame path.
type ParseFunc func() (*timeline.Timeline, error)

// LoadResult reports how a background load ended. Stale is set when a newer
// Load or Close happened first and the timeline was not published.
type LoadResult struct {
	Generation uint64
	Timeline   *timeline.Timeline
	Err        error
	Stale      bool
}

// Loader runs parses on their own goroutine and publishes the result into a
// Session. Only the newest load is ever published.
type Loader struct {
	session    *Session
	generation atomic.Uint64
	closed     atomic.Bool
	wg         sync.WaitGroup

	// publishMu keeps the staleness check and Publish together
	publishMu sync.Mutex
}

func NewLoader(session *Session) *Loader {
	return &Loader{session: session}
}

// Load starts parse in the background. done, if not nil, is called from the
// worker goroutine once the parse finishes.
func (l *Loader) Load(parse ParseFunc, done func(LoadResult)) uint64 {
	gen := l.generation.Add(1)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		tl, err := parse()
		result := LoadResult{Generation: gen, Timeline: tl, Err: err}

		l.publishMu.Lock()
		switch {
		case l.closed.Load() || l.generation.Load() != gen:
			result.Stale = true
			logger.Debug("loader: discarding stale result of load %d", gen)
		case err != nil:
			logger.Warn("loader: load %d failed: %v", gen, err)
		default:
			l.session.Publish(tl)
		}
		l.publishMu.Unlock()

		if done != nil {
			done(result)
		}
	}()

	return gen
}

// Generation is the id of the most recent Load.
func (l *Loader) Generation() uint64 {
	return l.generation.Load()
}

// Close makes every in-flight load stale and waits for the workers to return.
func (l *Loader) Close() {
	l.closed.Store(true)
	l.generation.Add(1)
	l.wg.Wait()
}
