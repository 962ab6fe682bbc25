package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/marmos91/userperm/internal/logger"
)

// Watch reloads the configuration at path every time the file is written,
// created, renamed or removed, and reports the result to onChange. A reload
// that fails is reported with a nil Config.
//
// The parent directory is watched rather than the file itself, so editors
// that replace the file through a rename are followed. Watch blocks until
// ctx is done or the watcher shuts down.
func Watch(ctx context.Context, path string, onChange func(*Config, error)) error {
	if path == "" {
		path = GetDefaultConfigPath()
	}
	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	log := logger.With(logger.KeyConfigPath, path)

	const reloadOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path || event.Op&reloadOps == 0 {
				continue
			}

			log.Debug("Configuration file changed", "op", event.Op.String())

			cfg, err := Load(path)
			onChange(cfg, err)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("Config watcher error", logger.Err(err))
		}
	}
}
