package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const debounceDelay = 250 * time.Millisecond

// Watcher reloads the configuration file when it changes and notifies callbacks
// with the new configuration. Invalid files are logged and ignored.
type Watcher struct {
	loader    *Loader
	logger    *zap.Logger
	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
	stopOnce  sync.Once
	debounce  time.Duration
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewWatcher starts watching the loader's file. The directory is watched rather than
// the file so that editors replacing the file atomically are seen.
func NewWatcher(loader *Loader, initial *Config, logger *zap.Logger) (*Watcher, error) {
	return newWatcher(loader, initial, logger, debounceDelay)
}

func newWatcher(loader *Loader, initial *Config, logger *zap.Logger, debounce time.Duration) (*Watcher, error) {
	if loader.Path() == "" {
		return nil, fmt.Errorf("config watcher needs a file to watch")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsWatcher.Add(filepath.Dir(loader.Path())); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", loader.Path(), err)
	}

	w := &Watcher{
		loader:   loader,
		logger:   logger,
		watcher:  fsWatcher,
		stopCh:   make(chan struct{}),
		debounce: debounce,
		config:   initial,
	}
	go w.watchLoop()

	logger.Info("Configuration hot reloading enabled", zap.String("file", loader.Path()))
	return w, nil
}

// watchLoop monitors for file changes and triggers reloads.
func (w *Watcher) watchLoop() {
	defer w.watcher.Close()

	target := filepath.Clean(w.loader.Path())
	var debounceTimer *time.Timer

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return
		}
	}
}

// reload loads the file again and notifies callbacks when it is valid.
func (w *Watcher) reload() {
	next, err := w.loader.Load()
	if err != nil {
		w.logger.Error("Invalid configuration after reload", zap.Error(err))
		return
	}

	w.mu.Lock()
	prev := w.config
	w.config = next
	callbacks := append([]func(*Config){}, w.callbacks...)
	w.mu.Unlock()

	if prev != nil && prev.Logging.Level != next.Logging.Level {
		w.logger.Info("Configuration changes detected",
			zap.String("log_level", prev.Logging.Level+" -> "+next.Logging.Level))
	}

	for i, cb := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error("Callback panicked", zap.Int("callback_index", i), zap.Any("panic", r))
				}
			}()
			cb(next)
		}()
	}
}

// OnChange registers a callback to be called when configuration changes.
func (w *Watcher) OnChange(callback func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Current returns the last valid configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// Stop stops the configuration watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}
