package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Run a new file watcher on the current thread.
// This will publish new FileChanged events whenever the import file is written or replaced.
// The parent directory is watched instead of the file itself, so editors and exports that replace
// the file through a rename are picked up as well.
func runFileWatcher(ctx context.Context, path string, events *bus) error {
	file, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("cannot resolve %q: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("cannot create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(file)); err != nil {
		return fmt.Errorf("cannot add directory %q to watcher: %w", filepath.Dir(file), err)
	}

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != file {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				events.publish(event{kind: evFileChanged, payload: ev.Name})
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			events.publish(event{kind: evLog, payload: fmt.Sprintf("watcher err: %v", err)})
		case <-ctx.Done():
			return nil
		}
	}
}
