package daemon

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/deskrc/internal/config"
	"github.com/jmylchreest/deskrc/internal/store"
)

// ConfigWatcher watches the config file and the keymap it references and
// requests a reload when either changes.
type ConfigWatcher struct {
	mu     sync.Mutex
	logger *slog.Logger

	configPath string
	debounce   time.Duration

	watcher *store.FileWatcher

	onChangeCallback func()

	running bool
}

// NewConfigWatcher creates a ConfigWatcher for configPath.
func NewConfigWatcher(configPath string, debounce time.Duration, logger *slog.Logger) *ConfigWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if configPath == "" {
		configPath = config.ConfigPath()
	}
	return &ConfigWatcher{
		logger:     logger,
		configPath: configPath,
		debounce:   debounce,
	}
}

// SetChangeCallback sets the callback invoked after a change settles. It
// runs on the watcher goroutine; post to the dispatch thread from it.
func (w *ConfigWatcher) SetChangeCallback(callback func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChangeCallback = callback
}

// Start begins watching the config file and the keymap named by cfg.
func (w *ConfigWatcher) Start(cfg *config.Config) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	paths := []string{w.configPath}
	if cfg != nil && cfg.Seat.Keymap != "" {
		paths = append(paths, cfg.Seat.Keymap)
	}

	fw, err := store.NewFileWatcher(paths, w.debounce, w.logger)
	if err != nil {
		return err
	}
	fw.SetChangeCallback(w.changed)
	if err := fw.Start(); err != nil {
		_ = fw.Stop()
		return err
	}

	w.watcher = fw
	w.running = true
	w.logger.Debug("config watcher started", "paths", paths, "debounce", w.debounce)
	return nil
}

// Restart re-reads the watched paths from cfg, which may name a different
// keymap than before.
func (w *ConfigWatcher) Restart(cfg *config.Config) error {
	w.Stop()
	return w.Start(cfg)
}

// Stop stops watching.
func (w *ConfigWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	w.running = false
	if err := w.watcher.Stop(); err != nil {
		w.logger.Debug("failed to stop file watcher", "error", err)
	}
	w.watcher = nil
	w.logger.Debug("config watcher stopped")
}

func (w *ConfigWatcher) changed() {
	w.mu.Lock()
	callback := w.onChangeCallback
	w.mu.Unlock()

	w.logger.Info("configuration changed on disk", "path", w.configPath)
	if callback != nil {
		callback()
	}
}
