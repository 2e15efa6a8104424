package config

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watch re-reads the config file on changes and calls onChange with each
// successfully parsed config. Parse or validation failures keep the
// running config and are logged at warn. The watch is on the parent
// directory so editor rename-and-replace saves are still seen.
//
// Only a subset of settings is safe to apply live (log level today);
// callers decide what to pick up.
func Watch(ctx context.Context, path string, log zerolog.Logger, onChange func(*Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return err
	}
	base := filepath.Base(path)
	log = log.With().Str("component", "configwatch").Str("path", path).Logger()

	go func() {
		defer w.Close()

		// Debounce: editors fire several events per save.
		var pending *time.Timer
		reload := func() {
			b, err := os.ReadFile(path)
			if err != nil {
				log.Warn().Err(err).Msg("config reload: read failed; keeping current config")
				return
			}
			cfg, err := Parse(b)
			if err != nil {
				log.Warn().Err(err).Msg("config reload: invalid config; keeping current config")
				return
			}
			log.Info().Msg("config reloaded")
			onChange(cfg)
		}

		for {
			select {
			case <-ctx.Done():
				if pending != nil {
					pending.Stop()
				}
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != base {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if pending != nil {
					pending.Stop()
				}
				pending = time.AfterFunc(200*time.Millisecond, reload)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("config watcher error")
			}
		}
	}()
	return nil
}
