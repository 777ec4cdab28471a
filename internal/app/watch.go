package app

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits after the last change before
// calling onChange
const DefaultDebounce = 200 * time.Millisecond

// directories below the root that are never watched
var skipped = map[string]bool{
	".git":         true,
	"node_modules": true,
}

// Watch calls onChange after files under the plugin root change. Bursts of
// events within debounce are collapsed into one call. It blocks until ctx is
// cancelled.
func (a *App) Watch(ctx context.Context, debounce time.Duration, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watchTree(watcher, a.Checker.Root()); err != nil {
		return fmt.Errorf("failed to watch %s: %w", a.Checker.Root(), err)
	}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			if event.Has(fsnotify.Create) {
				// New directories are not covered by existing watches
				if err := watchTree(watcher, event.Name); err != nil {
					a.logger.Debug("watch new path", "path", event.Name, "err", err)
				}
			}
			a.logger.Debug("change detected", "path", event.Name, "op", event.Op.String())

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, onChange)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("watcher error", "err", err)
		}
	}
}

// watchTree adds dir and every directory below it to watcher. A plain file
// is ignored.
func watchTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && skipped[d.Name()] {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
