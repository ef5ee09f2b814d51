package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/aibridge-dev/aibridge/internal/logging"
	"github.com/aibridge-dev/aibridge/pkg/types"
)

// Watcher reloads configuration when any of its source files change and
// hands the fresh config to the registered callback.
type Watcher struct {
	watcher   *fsnotify.Watcher
	directory string
	onChange  func(*types.Config)
	done      chan struct{}
}

// Watch starts watching the global and project config directories.
// The callback runs on the watcher goroutine; keep it short.
func Watch(directory string, onChange func(*types.Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:   fw,
		directory: directory,
		onChange:  onChange,
		done:      make(chan struct{}),
	}

	for _, dir := range []string{GetPaths().Config, directory, filepath.Join(directory, ".aibridge")} {
		if dir == "" {
			continue
		}
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := fw.Add(dir); err != nil {
			logging.Warn().Err(err).Str("dir", dir).Msg("config watch failed")
		}
	}

	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	log := logging.Component("config")
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isConfigFile(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			cfg, err := Load(w.directory)
			if err != nil {
				log.Warn().Err(err).Str("file", ev.Name).Msg("config reload failed")
				continue
			}
			log.Info().Str("file", ev.Name).Msg("config reloaded")
			w.onChange(cfg)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("config watcher error")
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

// isConfigFile reports whether a changed path is one of our config files.
func isConfigFile(path string) bool {
	name := filepath.Base(path)
	if !strings.HasPrefix(name, "aibridge.") {
		return false
	}
	switch filepath.Ext(name) {
	case ".json", ".jsonc", ".yaml", ".yml":
		return true
	}
	return false
}
