package task

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 200 * time.Millisecond

// Watcher reloads a Store when its backing file changes on disk, e.g. when
// the file is edited by hand or restored from a backup.
type Watcher struct {
	store    *Store
	path     string
	debounce time.Duration
}

func NewWatcher(store *Store, path string) *Watcher {
	return &Watcher{
		store:    store,
		path:     filepath.Clean(path),
		debounce: defaultDebounce,
	}
}

// Run blocks until ctx is canceled. The parent directory is watched rather
// than the file because atomic writes replace the file's inode.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				timer.Reset(w.debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "task file watcher error", "error", err)
		case <-timer.C:
			if err := w.store.Refresh(ctx); err != nil {
				slog.WarnContext(ctx, "failed to reload tasks after external change", "path", w.path, "error", err)
				continue
			}
			slog.DebugContext(ctx, "reloaded tasks after external change", "path", w.path)
		}
	}
}
