package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mantonx/streamhub/internal/logger"
)

const reloadDebounce = 300 * time.Millisecond

// Watch reloads the configuration whenever its file changes on disk.
// The parent directory is watched because editors usually replace the file
// instead of writing it in place. Watch blocks until ctx is cancelled.
func (cm *ConfigManager) Watch(ctx context.Context) error {
	path := cm.Path()
	if path == "" {
		return fmt.Errorf("no config path set")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	scheduleReload := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(reloadDebounce, func() {
			if err := cm.Reload(); err != nil {
				logger.Error("config reload failed", "path", path, "error", err)
				return
			}
			logger.Info("config reloaded", "path", path)
		})
	}

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				scheduleReload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "error", err)
		}
	}
}

// Watch watches the global configuration file
func Watch(ctx context.Context) error {
	return GetConfigManager().Watch(ctx)
}
