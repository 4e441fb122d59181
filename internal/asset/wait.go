package asset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WaitForFile blocks until path exists or timeout elapses. Engines may report
// completion slightly before their output is visible, so the export waits for
// the model instead of failing on the first stat. A zero timeout only checks
// once.
func WaitForFile(ctx context.Context, path string, timeout time.Duration) error {
	if exists(path) {
		return nil
	}
	if timeout <= 0 {
		return fmt.Errorf("%s: %w", path, os.ErrNotExist)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory; the file itself does not exist yet
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch directory: %w", err)
	}

	// The file may have appeared between the first stat and Add
	if exists(path) {
		return nil
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	want := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%s did not appear within %s: %w", path, timeout, os.ErrNotExist)
		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("file watcher closed")
			}
			if filepath.Clean(event.Name) != want {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 && exists(path) {
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("file watcher closed")
			}
			return fmt.Errorf("file watcher: %w", err)
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
