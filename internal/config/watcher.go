// internal/config/watcher.go
package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/valpere/shopwatch/internal/utils"
)

// BootstrapWatcher watches the YAML bootstrap file for changes and reloads
// it, the same directory-plus-file watch fsnotify dance the teacher's
// ConfigWatcher used, now pointed at BootstrapConfig instead of
// ScraperConfig. The Mongo-backed Store documents need no such watcher:
// every Store lookup already hits Mongo directly, so they are live by
// construction.
type BootstrapWatcher struct {
	watcher    *fsnotify.Watcher
	configPath string
	callbacks  []func(BootstrapConfig)
	logger     utils.Logger
	mu         sync.RWMutex
	stopped    bool
}

// NewBootstrapWatcher creates a watcher on configPath, already running in
// its own goroutine.
func NewBootstrapWatcher(configPath string, logger utils.Logger) (*BootstrapWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if logger == nil {
		logger = utils.NewLogger()
	}

	cw := &BootstrapWatcher{
		watcher:    watcher,
		configPath: configPath,
		logger:     utils.NewComponentLogger(logger, "config-watcher"),
	}

	if err := watcher.Add(configPath); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config file: %w", err)
	}
	if err := watcher.Add(filepath.Dir(configPath)); err != nil {
		cw.logger.Warnf("failed to watch config directory: %v", err)
	}

	go cw.watch()
	return cw, nil
}

// OnChange registers a callback invoked with the freshly reloaded config
// whenever the bootstrap file changes.
func (cw *BootstrapWatcher) OnChange(callback func(BootstrapConfig)) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.callbacks = append(cw.callbacks, callback)
}

func (cw *BootstrapWatcher) watch() {
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if event.Name == cw.configPath && (event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create) {
				cw.handleChange()
			}

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Warnf("config watcher error: %v", err)
		}
	}
}

func (cw *BootstrapWatcher) handleChange() {
	cw.mu.RLock()
	if cw.stopped {
		cw.mu.RUnlock()
		return
	}
	callbacks := make([]func(BootstrapConfig), len(cw.callbacks))
	copy(callbacks, cw.callbacks)
	cw.mu.RUnlock()

	cfg, err := LoadBootstrap(cw.configPath)
	if err != nil {
		cw.logger.Warnf("failed to reload bootstrap config: %v", err)
		return
	}
	for _, callback := range callbacks {
		callback(cfg)
	}
}

// Close stops the watcher and releases resources.
func (cw *BootstrapWatcher) Close() error {
	cw.mu.Lock()
	cw.stopped = true
	cw.mu.Unlock()
	return cw.watcher.Close()
}
