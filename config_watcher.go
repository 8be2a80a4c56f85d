// config_watcher.go: configuration hot reload with Argus integration
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package rdpipe

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/agilira/argus"
)

// ConfigWatcherOptions tunes the file watcher.
type ConfigWatcherOptions struct {
	// PollInterval controls how often the config file is checked.
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`

	// CacheTTL bounds stat caching inside Argus.
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`

	// ErrorHandler receives file-watching errors; defaults to logging.
	ErrorHandler func(err error, filepath string) `json:"-" yaml:"-"`
}

// DefaultConfigWatcherOptions returns defaults suited to a config file that
// changes rarely.
func DefaultConfigWatcherOptions() ConfigWatcherOptions {
	return ConfigWatcherOptions{
		PollInterval: 10 * time.Second,
		CacheTTL:     5 * time.Second,
	}
}

// ConfigWatcher hot-reloads the plugin configuration from a file.
//
// On every change the file is reloaded, validated and handed to the
// plugin's ApplyConfig; an invalid file is logged and skipped, the previous
// configuration stays in effect. Runtime-applicable settings (the pipe read
// buffer size) take effect on each bridge's next local connection.
type ConfigWatcher struct {
	plugin     *Plugin
	logger     Logger
	watcher    *argus.Watcher
	configPath string
	options    ConfigWatcherOptions

	current atomic.Pointer[Config]

	enabled  atomic.Bool
	stopped  atomic.Bool
	stopOnce sync.Once
	mutex    sync.Mutex
}

// NewConfigWatcher creates a watcher bound to the given plugin and config
// file path.
func NewConfigWatcher(plugin *Plugin, configPath string, options ConfigWatcherOptions, logger Logger) *ConfigWatcher {
	if logger == nil {
		logger = DefaultLogger()
	}

	cw := &ConfigWatcher{
		plugin:     plugin,
		logger:     logger,
		configPath: configPath,
		options:    options,
	}

	cw.watcher = argus.New(argus.Config{
		PollInterval:         options.PollInterval,
		CacheTTL:             options.CacheTTL,
		MaxWatchedFiles:      1,
		OptimizationStrategy: argus.OptimizationSingleEvent,
		ErrorHandler: func(err error, filepath string) {
			if options.ErrorHandler != nil {
				options.ErrorHandler(err, filepath)
				return
			}
			logger.Error("config file watching error", "error", err, "file", filepath)
		},
	})

	return cw
}

// Start loads and applies the initial configuration, then begins watching
// the file for changes.
func (cw *ConfigWatcher) Start() error {
	cw.mutex.Lock()
	defer cw.mutex.Unlock()

	if cw.stopped.Load() {
		return NewConfigWatcherError("config watcher is already stopped", nil)
	}
	if !cw.enabled.CompareAndSwap(false, true) {
		return NewConfigWatcherError("config watcher is already running", nil)
	}

	initial, err := LoadConfig(cw.configPath)
	if err != nil {
		cw.enabled.Store(false)
		return NewConfigWatcherError("failed to load initial configuration", err)
	}
	if err := cw.plugin.ApplyConfig(initial); err != nil {
		cw.enabled.Store(false)
		return NewConfigWatcherError("failed to apply initial configuration", err)
	}
	cw.current.Store(&initial)

	if err := cw.watcher.Watch(cw.configPath, cw.handleConfigChange); err != nil {
		cw.enabled.Store(false)
		return NewConfigWatcherError("failed to watch config file", err)
	}
	if err := cw.watcher.Start(); err != nil {
		cw.enabled.Store(false)
		return NewConfigWatcherError("failed to start config watcher", err)
	}

	cw.logger.Info("config watcher started",
		"config_path", cw.configPath,
		"poll_interval", cw.options.PollInterval)
	return nil
}

// Stop permanently stops the watcher. The watcher cannot be restarted
// after stopping.
func (cw *ConfigWatcher) Stop() error {
	if cw.stopped.Load() {
		return nil
	}

	var stopErr error
	cw.stopOnce.Do(func() {
		cw.mutex.Lock()
		defer cw.mutex.Unlock()

		cw.stopped.Store(true)
		if !cw.enabled.CompareAndSwap(true, false) {
			return
		}
		if err := cw.watcher.Stop(); err != nil {
			stopErr = NewConfigWatcherError("failed to stop config watcher", err)
			return
		}
		cw.logger.Info("config watcher stopped", "config_path", cw.configPath)
	})
	return stopErr
}

// CurrentConfig returns the last successfully applied configuration, or
// nil before the first load.
func (cw *ConfigWatcher) CurrentConfig() *Config {
	return cw.current.Load()
}

// handleConfigChange processes config file changes from Argus.
func (cw *ConfigWatcher) handleConfigChange(event argus.ChangeEvent) {
	cw.logger.Info("configuration file change detected",
		"path", event.Path,
		"is_create", event.IsCreate,
		"is_delete", event.IsDelete,
		"is_modify", event.IsModify)

	if event.IsDelete {
		cw.logger.Warn("configuration file was deleted, keeping current configuration", "path", event.Path)
		return
	}

	config, err := LoadConfig(event.Path)
	if err != nil {
		cw.logger.Error("failed to load changed configuration, keeping current configuration",
			"path", event.Path, "error", err)
		return
	}

	if err := cw.plugin.ApplyConfig(config); err != nil {
		cw.logger.Error("failed to apply changed configuration, keeping current configuration",
			"path", event.Path, "error", err)
		return
	}

	cw.current.Store(&config)
	cw.logger.Info("configuration reloaded", "path", event.Path)
}
