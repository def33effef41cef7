package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchFile calls onChange whenever path is created, written, renamed or
// removed, until ctx is done.
//
// Saves replace the file by renaming a temporary file over it, which changes
// the inode, so the parent directory is watched instead of the file.
func WatchFile(ctx context.Context, path string, onChange func()) error {
	dir, base := filepath.Split(filepath.Clean(path))
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: data directories are meant to be shared
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	const ops = fsnotify.Create | fsnotify.Write | fsnotify.Rename | fsnotify.Remove
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				// Events on <base>.tmp don't match.
				if filepath.Base(event.Name) != base || event.Op&ops == 0 {
					continue
				}
				slog.DebugContext(ctx, "Store changed on disk", "path", event.Name, "op", event.Op.String())
				onChange()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching store", "err", err)
			}
		}
	}()
	return nil
}
