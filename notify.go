package watchman

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// NotifySource pumps OS change notifications into a
// [PendingCollection].
//
// It recursively watches a root directory and records every event as a
// pending entry flagged [PendingViaNotify]. Newly created directories
// are added to the watch and recorded with [PendingRecursive] so the
// consumer crawls them (events for files created inside before the
// watch took effect would otherwise be lost). If the kernel event
// queue overflows, the root is re-recorded with
// [PendingRecursive]|[PendingIsDesynced] and the consumer must rescan.
//
// After each batch of events the source calls
// [PendingCollection.Ping] so blocked consumers wake up.
type NotifySource struct {
	root    string
	col     *PendingCollection
	watcher *fsnotify.Watcher
	ignore  []string
	log     *slog.Logger
}

// NewNotifySource creates a source feeding col with changes under
// root. The watch is established immediately; call
// [NotifySource.Run] to start delivering events.
func NewNotifySource(root string, col *PendingCollection, opts ...Option) (*NotifySource, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("notify source: absolute path: %w", err)
	}

	cfg := applyOptions(opts)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("notify source: %w", err)
	}

	s := &NotifySource{
		root:    abs,
		col:     col,
		watcher: watcher,
		ignore:  cfg.IgnoreGlobs,
		log:     cfg.Logger,
	}

	if err := s.watchTree(abs); err != nil {
		_ = watcher.Close()

		return nil, err
	}

	return s, nil
}

// Run delivers events into the collection until ctx is canceled, then
// closes the underlying watcher and returns nil. Watch errors are
// logged; a kernel queue overflow is recorded as a desynced recursive
// entry for the root so the consumer rescans.
func (s *NotifySource) Run(ctx context.Context) error {
	defer func() { _ = s.watcher.Close() }()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-s.watcher.Events:
			if !ok {
				return nil
			}

			s.handleEvent(ev)
			s.drainQueued()
			s.col.Ping()

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return nil
			}

			s.handleError(err)
		}
	}
}

// drainQueued consumes any already-queued events before pinging, so a
// burst wakes the consumer once instead of per event.
func (s *NotifySource) drainQueued() {
	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}

			s.handleEvent(ev)
		default:
			return
		}
	}
}

func (s *NotifySource) handleEvent(ev fsnotify.Event) {
	path := ev.Name
	if s.ignored(path) {
		return
	}

	flags := PendingViaNotify

	if ev.Has(fsnotify.Create) {
		if fi, err := os.Lstat(path); err == nil && fi.IsDir() {
			flags |= PendingRecursive

			if err := s.watchTree(path); err != nil && s.log != nil {
				s.log.Warn("notify: watch new directory",
					slog.String("path", path),
					slog.String("error", err.Error()))
			}
		}
	}

	view := s.col.Lock()
	view.Add(path, time.Now(), flags)
	view.Unlock()
}

func (s *NotifySource) handleError(err error) {
	if errors.Is(err, fsnotify.ErrEventOverflow) {
		// Events were lost; schedule a full recursive rescan and tell
		// the consumer the stream is no longer trustworthy.
		view := s.col.Lock()
		view.Add(s.root, time.Now(), PendingViaNotify|PendingRecursive|PendingIsDesynced)
		view.Unlock()

		s.col.Ping()

		return
	}

	if s.log != nil {
		s.log.Warn("notify: watch error", slog.String("error", err.Error()))
	}
}

// watchTree adds root and every directory below it to the watch,
// skipping ignored subtrees.
func (s *NotifySource) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}

		if s.ignored(path) {
			return filepath.SkipDir
		}

		if err := s.watcher.Add(path); err != nil {
			return fmt.Errorf("notify source: watch %s: %w", path, err)
		}

		return nil
	})
}

// ignored matches path (relative to the root) against the ignore
// globs. The root itself is never ignored.
func (s *NotifySource) ignored(path string) bool {
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == "." {
		return false
	}

	rel = filepath.ToSlash(rel)

	for _, glob := range s.ignore {
		if ok, _ := doublestar.Match(glob, rel); ok {
			return true
		}
	}

	return false
}
