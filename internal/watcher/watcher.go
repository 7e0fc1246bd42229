// Package watcher reloads an app script when its file changes on disk.
package watcher

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// ChangeFunc is called with the watched path after a burst of changes
// settles. Calls never overlap.
type ChangeFunc func(path string)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long the file must stay quiet before ChangeFunc
// runs.
//
// Default: 500ms
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// Watcher monitors one file.
//
// The file's directory is watched rather than the file itself, so editors
// that save by writing a temp file and renaming it over the original keep
// triggering reloads.
type Watcher struct {
	path     string
	onChange ChangeFunc
	debounce time.Duration
	logger   *slog.Logger

	fs     *fsnotify.Watcher
	cancel chan struct{}
	wg     sync.WaitGroup

	mu     sync.Mutex // serializes onChange
	once   sync.Once
	closed error
}

// New starts watching path.
func New(path string, onChange ChangeFunc, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	w := &Watcher{
		path:     abs,
		onChange: onChange,
		debounce: defaultDebounce,
		logger:   slog.Default(),
		cancel:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	fsW, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsW.Add(filepath.Dir(abs)); err != nil {
		fsW.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	w.fs = fsW

	w.wg.Add(1)
	go w.loop()

	w.logger.Info("watching script", "path", abs, "debounce", w.debounce)
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Close stops watching and waits for the event loop to exit. A pending
// debounced change is dropped.
func (w *Watcher) Close() error {
	w.once.Do(func() {
		close(w.cancel)
		w.closed = w.fs.Close()
		w.wg.Wait()
	})
	return w.closed
}

// loop processes fsnotify events with debouncing.
func (w *Watcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	for {
		select {
		case <-w.cancel:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || !relevant(event) {
				continue
			}
			w.logger.Debug("script changed", "path", w.path, "op", event.Op.String())

			// Debounce: reset timer on each event.
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.fire)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "path", w.path, "error", err)
		}
	}
}

func (w *Watcher) fire() {
	select {
	case <-w.cancel:
		return
	default:
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.onChange != nil {
		w.onChange(w.path)
	}
}

// relevant reports whether event may have changed the file's content.
// Chmod alone does not.
func relevant(event fsnotify.Event) bool {
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
