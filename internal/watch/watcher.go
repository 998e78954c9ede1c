// Package watch rebuilds a snapshot when its source files change and
// publishes it through a HotSwapGraph.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/agentic-research/flattree/internal/graph"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce coalesces bursts of events from editors that write a file
// in several steps.
const DefaultDebounce = 200 * time.Millisecond

// RebuildFunc produces a fresh snapshot from the current source files.
type RebuildFunc func() (*graph.Snapshot, error)

// Watcher swaps in a rebuilt snapshot after the watched files settle.
// A failed rebuild is logged and the published snapshot is kept.
type Watcher struct {
	target   *graph.HotSwapGraph
	rebuild  RebuildFunc
	files    map[string]bool
	debounce time.Duration
	log      logrus.FieldLogger

	// Swapped, when set, receives every snapshot published by the watcher.
	Swapped func(*graph.Snapshot)
}

func New(target *graph.HotSwapGraph, rebuild RebuildFunc, log logrus.FieldLogger, files ...string) (*Watcher, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	w := &Watcher{
		target:   target,
		rebuild:  rebuild,
		files:    make(map[string]bool, len(files)),
		debounce: DefaultDebounce,
		log:      log,
	}
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", f, err)
		}
		w.files[abs] = true
	}
	return w, nil
}

// SetDebounce changes the quiet period before a rebuild.
func (w *Watcher) SetDebounce(d time.Duration) { w.debounce = d }

// Run watches until ctx is cancelled. Directories are watched rather than the
// files themselves so that atomic replace-by-rename is seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fw.Close() }()

	dirs := make(map[string]bool)
	for f := range w.files {
		dir := filepath.Dir(f)
		if dirs[dir] {
			continue
		}
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	// settle fires once no relevant event has arrived for the debounce period.
	var settle <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.log.WithFields(logrus.Fields{"file": event.Name, "op": event.Op.String()}).Debug("source changed")
			settle = time.After(w.debounce)

		case <-settle:
			settle = nil
			w.reload()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("watch error")
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return w.files[abs]
}

func (w *Watcher) reload() {
	next, err := w.rebuild()
	if err != nil {
		w.log.WithError(err).Warn("rebuild failed; keeping current snapshot")
		return
	}
	prev := w.target.Swap(next)
	w.log.WithFields(logrus.Fields{
		"snapshot": next.Report().ID,
		"previous": prev.Report().ID,
		"nodes":    next.Len(),
	}).Info("snapshot swapped")
	if w.Swapped != nil {
		w.Swapped(next)
	}
}
