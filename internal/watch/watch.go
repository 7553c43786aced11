package watch

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"karolbroda.com/syllecho/internal/logger"
)

const DefaultDebounce = 150 * time.Millisecond

// Watcher reports when one file has been rewritten. It watches the parent
// directory so editors that save by rename are still seen, and collapses
// bursts of events into one notification.
type Watcher struct {
	fs       *fsnotify.Watcher
	target   string
	debounce time.Duration
	changes  chan string
	errs     chan error
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

func New(path string, debounce time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		fs:       fsw,
		target:   filepath.Clean(abs),
		debounce: debounce,
		changes:  make(chan string, 1),
		errs:     make(chan error, 1),
		done:     make(chan struct{}),
	}

	w.wg.Add(1)
	go w.loop()

	return w, nil
}

func (w *Watcher) Path() string {
	return w.target
}

// Changes yields the watched path once per settled burst of writes.
func (w *Watcher) Changes() <-chan string {
	return w.changes
}

func (w *Watcher) Errors() <-chan error {
	return w.errs
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fs.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			logger.Debug("watch: %s %s", event.Op, event.Name)
			timer.Reset(w.debounce)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			default:
			}
		case <-timer.C:
			select {
			case w.changes <- w.target:
			default:
				// a reload is already pending
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.target {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}
