package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce collapses bursts of file events into one rebuild.
const DefaultDebounce = 300 * time.Millisecond

// Watch rebuilds the catalog whenever path changes, until ctx is done. The
// parent directory is watched so editors that replace the file are seen.
// Failed rebuilds are logged and keep the previous snapshot.
func (c *Catalog) Watch(ctx context.Context, path string, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer w.Close() //nolint:errcheck // best effort on shutdown

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	c.logger.Info("watching relationships", zap.String("path", abs))

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("file watcher error", zap.Error(err))
		case <-timer.C:
			snap, err := c.Reload(ctx, abs)
			if err != nil {
				c.logger.Error("catalog reload failed, keeping previous snapshot", zap.Error(err))
				continue
			}
			c.logger.Info("catalog reloaded", zap.Uint64("generation", snap.Generation))
		}
	}
}
