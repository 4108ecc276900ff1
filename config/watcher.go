package config

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/searchktools/fire-server/logger"
)

// Watcher reloads a configuration file when it changes and hands the new
// configuration to the registered callbacks. Invalid files are logged and
// skipped.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	log     logger.Logger

	mu        sync.RWMutex
	callbacks []func(*Config)
}

// NewWatcher watches the file at path.
func NewWatcher(path string, log logger.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory so editors that replace the file are noticed.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Watcher{
		path:    filepath.Clean(path),
		watcher: fw,
		log:     log.With("component", "config"),
	}, nil
}

// OnChange registers fn to receive every successfully reloaded config.
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Run handles file events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	w.log.Debug("watching config file", "path", w.path)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("config watcher error", "err", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.log.Warn("config reload rejected", "path", w.path, "err", err)
		return
	}
	w.log.Info("config reloaded", "path", w.path)

	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, fn := range w.callbacks {
		fn(cfg)
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
