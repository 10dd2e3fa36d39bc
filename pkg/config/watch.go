package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/platinummonkey/coachgate/pkg/observability"
)

// Watch reloads path whenever it is written or replaced and passes every
// valid result to onChange until ctx is done. Invalid files are logged and
// skipped, so the previous configuration stays in effect.
//
// Only settings that are safe to change at runtime should be taken from
// the reloaded value; the service applies the log level and nothing else.
func Watch(ctx context.Context, path string, logger *observability.Logger, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	// Watch the directory: editors and config maps replace the file
	// instead of writing it in place.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	target := filepath.Clean(path)
	logger = logger.WithField("config_file", target)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Load(target)
				if err != nil {
					logger.WithError(err).Warn("ignoring invalid config file")
					continue
				}
				logger.Info("config file reloaded")
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.WithError(err).Warn("config watcher error")
			}
		}
	}()

	return nil
}
