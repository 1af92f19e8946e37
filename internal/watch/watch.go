// Package watch re-runs checks when source files change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultDelay = 300 * time.Millisecond

// Watcher observes directory trees and reports batches of changed files.
type Watcher struct {
	accept  func(path string) bool
	ignored []string
	delay   time.Duration
	logger  *slog.Logger
}

func New(accept func(path string) bool, ignored []string, delay time.Duration, logger *slog.Logger) *Watcher {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{accept: accept, ignored: ignored, delay: delay, logger: logger}
}

// Run watches roots until ctx is done. onChange receives the sorted set of
// accepted files changed since the previous call; calls never overlap.
func (w *Watcher) Run(ctx context.Context, roots []string, onChange func(ctx context.Context, changed []string)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	for _, root := range roots {
		if err := w.addTree(fw, root); err != nil {
			return err
		}
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]bool)
		running sync.Mutex
	)
	debouncer := NewDebouncer(w.delay)
	defer debouncer.Cancel()

	flush := func() {
		running.Lock()
		defer running.Unlock()

		mu.Lock()
		changed := make([]string, 0, len(pending))
		for p := range pending {
			changed = append(changed, p)
		}
		clear(pending)
		mu.Unlock()

		if len(changed) == 0 || ctx.Err() != nil {
			return
		}
		slices.Sort(changed)
		onChange(ctx, changed)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(fw, ev.Name); err != nil {
						w.logger.Warn("failed to watch new directory", "path", ev.Name, "error", err)
					}
					continue
				}
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !w.accepts(ev.Name) {
				continue
			}
			w.logger.Debug("file changed", "path", ev.Name, "op", ev.Op.String())
			mu.Lock()
			pending[ev.Name] = true
			mu.Unlock()
			debouncer.Trigger(flush)
		}
	}
}

func (w *Watcher) accepts(path string) bool {
	return w.accept == nil || w.accept(path)
}

// addTree watches root and every directory below it that is not ignored.
// A file root watches its directory.
func (w *Watcher) addTree(fw *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fw.Add(filepath.Dir(root))
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && slices.Contains(w.ignored, d.Name()) {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}
