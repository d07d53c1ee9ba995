package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce is how long after a successful reload further change
// notifications are coalesced. Editors and atomic replaces write a file in
// several steps; without the window each step would trigger its own reload.
const defaultDebounce = time.Second

// Watcher reloads the store when the configuration file changes on disk.
// Filesystem events are forwarded as reload requests on a channel consumed
// by a single loop, which debounces and performs the reload; nothing
// mutates shared state from the notification callback itself.
type Watcher struct {
	store    *Store
	debounce time.Duration
}

// NewWatcher creates a watcher for the store's configuration file.
func NewWatcher(store *Store) *Watcher {
	return &Watcher{store: store, debounce: defaultDebounce}
}

// Run watches until ctx is cancelled. The parent directory is watched
// rather than the file itself so atomic replaces (write temp + rename) keep
// being observed.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.store.Path())
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	requests := make(chan struct{}, 1)
	go func() {
		base := filepath.Base(w.store.Path())
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != base {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				select {
				case requests <- struct{}{}:
				default:
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				slog.Error("config watcher error", "error", err)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-requests:
			if wait := w.debounce - time.Since(w.store.LastReload()); wait > 0 {
				timer := time.NewTimer(wait)
				select {
				case <-ctx.Done():
					timer.Stop()
					return nil
				case <-timer.C:
				}
			}
			// Collapse requests that piled up while waiting.
			select {
			case <-requests:
			default:
			}
			if err := w.store.Reload(); err != nil {
				slog.Error("config reload failed, keeping previous snapshot", "error", err)
			}
		}
	}
}
