package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vmunix/arrwatch/internal/config"
)

// watchDebounce coalesces the burst of events editors produce on save.
const watchDebounce = 250 * time.Millisecond

// WatchConfig calls onChange with the reloaded config each time the file at
// path changes. Invalid files are logged and ignored. The directory is
// watched rather than the file so that atomic replaces are seen.
func WatchConfig(ctx context.Context, path string, onChange func(*config.Config), log *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	log.Debug("watching config", "path", abs)

	var (
		timer  *time.Timer
		reload <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			reload = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("config watcher error", "error", err)
		case <-reload:
			reload = nil
			cfg, err := config.Load(abs)
			if err != nil {
				var cfgErr *config.ConfigError
				if errors.As(err, &cfgErr) && len(cfgErr.Keys()) > 0 {
					log.Warn("config reload rejected, keeping current settings", "path", abs, "keys", cfgErr.Keys(), "error", err)
				} else {
					log.Warn("config reload failed", "path", abs, "error", err)
				}
				continue
			}
			log.Info("config reloaded", "path", abs)
			onChange(cfg)
		}
	}
}
