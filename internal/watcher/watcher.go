// Package watcher drives continuous ingestion: it watches input files
// and reports debounced change events so the caller can re-extract and
// update the index.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event is one debounced file change.
type Event struct {
	// Path is the changed file.
	Path string
	// Removed reports that the file is gone rather than modified.
	Removed bool
}

// Options configures the watcher behavior.
type Options struct {
	// DebounceWindow is the quiet period before a change is emitted.
	// Editors often produce bursts of writes for one save. Default 200ms.
	DebounceWindow time.Duration
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{DebounceWindow: 200 * time.Millisecond}
}

// Watcher watches a fixed set of files.
type Watcher struct {
	opts   Options
	files  map[string]bool
	events chan Event
	log    *slog.Logger
}

// New creates a watcher over the given files.
func New(files []string, opts Options, log *slog.Logger) (*Watcher, error) {
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = DefaultOptions().DebounceWindow
	}
	if log == nil {
		log = slog.Default()
	}
	set := make(map[string]bool, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, err
		}
		set[abs] = true
	}
	return &Watcher{
		opts:   opts,
		files:  set,
		events: make(chan Event, 16),
		log:    log,
	}, nil
}

// Events returns the debounced event channel. It is closed when Run
// returns.
func (w *Watcher) Events() <-chan Event { return w.events }

// Run watches until the context is cancelled. Directories (not the
// files themselves) are watched so atomic rename-over saves are seen.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()
	defer close(w.events)

	dirs := make(map[string]bool)
	for f := range w.files {
		dirs[filepath.Dir(f)] = true
	}
	for d := range dirs {
		if err := fsw.Add(d); err != nil {
			return err
		}
	}

	pending := make(map[string]Event)
	timer := time.NewTimer(w.opts.DebounceWindow)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			path, err := filepath.Abs(ev.Name)
			if err != nil || !w.files[path] {
				continue
			}
			// Within the window the last state wins: a delete followed
			// by a create is a modify, not a removal.
			removed := ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0
			pending[path] = Event{Path: path, Removed: removed}
			timer.Reset(w.opts.DebounceWindow)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", slog.String("error", err.Error()))

		case <-timer.C:
			for _, ev := range pending {
				select {
				case w.events <- ev:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			pending = make(map[string]Event)
		}
	}
}
