// Package watch re-runs planning when a PRD file changes on disk.
package watch

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/planforge/planforge/internal/logging"
)

// debounceWindow collapses editor save bursts into one change notification.
// Many editors write a file several times (or write a temp file and rename)
// for a single save.
const debounceWindow = 200 * time.Millisecond

// Watcher observes a single PRD file and invokes a callback after its
// content changes settle. The parent directory is watched rather than the
// file itself, so atomic-rename saves are still seen.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	base    string
	logger  *logging.Logger

	onChange func()

	mu       sync.Mutex
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a watcher for the given PRD file path.
func New(path string, logger *logging.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		_ = fsw.Close()
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	return &Watcher{
		watcher: fsw,
		path:    abs,
		base:    filepath.Base(abs),
		logger:  logger.WithComponent("watch"),
		stopCh:  make(chan struct{}),
	}, nil
}

// SetChangeCallback sets the function invoked after a settled change.
func (w *Watcher) SetChangeCallback(cb func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = cb
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() {
	go w.watchLoop()
}

// Stop stops the watcher and cleans up resources. Safe to call twice.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		_ = w.watcher.Close()
	})
}

// watchLoop processes filesystem events with a debounce window.
func (w *Watcher) watchLoop() {
	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C // drain initial timer

	pending := false

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.matches(event) {
				continue
			}
			pending = true
			debounceTimer.Reset(debounceWindow)

		case <-debounceTimer.C:
			if !pending {
				continue
			}
			pending = false

			w.mu.Lock()
			cb := w.onChange
			w.mu.Unlock()

			w.logger.Info("PRD changed, triggering replan", "path", w.path)
			if cb != nil {
				cb()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// matches reports whether an event concerns the watched file's content.
func (w *Watcher) matches(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	return filepath.Base(event.Name) == w.base
}
