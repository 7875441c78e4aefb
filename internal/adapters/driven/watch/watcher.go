// Package watch reports changes to the on-disk object store so that open
// views can refresh.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/webstash/internal/core/ports/driven"
	"github.com/custodia-labs/webstash/internal/logger"
)

// Ensure Watcher implements the interface.
var _ driven.StoreWatcher = (*Watcher)(nil)

// DefaultDebounce collapses the burst of writes one transaction makes.
const DefaultDebounce = 200 * time.Millisecond

// Watcher watches a directory for changes to files with a given prefix.
type Watcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	prefix   string
	debounce time.Duration
	log      logger.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before onChange fires.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithPrefix limits events to files whose name starts with prefix, such as
// "webstash.db" to cover the database with its -wal and -shm files.
func WithPrefix(prefix string) Option {
	return func(w *Watcher) {
		w.prefix = prefix
	}
}

// New watches dir.
func New(dir string, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	w := &Watcher{
		watcher:  fw,
		dir:      dir,
		debounce: DefaultDebounce,
		log:      logger.With("watch"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watch calls onChange once per burst of relevant events until ctx ends
// or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context, onChange func()) error {
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.log.Debug("%s %s", event.Op, event.Name)
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watching %s: %v", w.dir, err)

		case <-timer.C:
			onChange()
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return w.prefix == "" || strings.HasPrefix(filepath.Base(event.Name), w.prefix)
}
