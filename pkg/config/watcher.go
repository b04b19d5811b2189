package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/shawkym/jarvisui/pkg/log"
)

// ConfigChangeCallback is called after the configuration file was reloaded
// and validated. It receives the previous and the new configuration.
type ConfigChangeCallback func(oldConfig, newConfig *Config)

// ConfigWatcher watches a configuration file and reloads it on change.
// Invalid edits are logged and ignored; the last good config stays active.
type ConfigWatcher struct {
	mu              sync.RWMutex
	config          *Config
	configPath      string
	viper           *viper.Viper
	callbacks       []ConfigChangeCallback
	stopChan        chan struct{}
	stopOnce        sync.Once
	reloadInProcess bool
}

// NewConfigWatcher loads the initial configuration and prepares file watching.
func NewConfigWatcher(configPath string) (*ConfigWatcher, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial config: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config with viper: %w", err)
	}

	log.WithField("config_path", configPath).Info("config watcher initialized")

	return &ConfigWatcher{
		config:     config,
		configPath: configPath,
		viper:      v,
		stopChan:   make(chan struct{}),
	}, nil
}

// OnConfigChange registers a callback. Callbacks run in registration order
// on the watcher goroutine, so they must not block.
func (cw *ConfigWatcher) OnConfigChange(callback ConfigChangeCallback) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.callbacks = append(cw.callbacks, callback)
}

// StartWatching begins monitoring the configuration file. It blocks until
// StopWatching is called.
func (cw *ConfigWatcher) StartWatching() {
	cw.viper.OnConfigChange(func(e fsnotify.Event) {
		cw.handleConfigChange(e)
	})
	cw.viper.WatchConfig()

	log.WithField("config_path", cw.configPath).Info("started watching config file for changes")

	<-cw.stopChan
}

// StopWatching stops monitoring the configuration file. Safe to call twice.
func (cw *ConfigWatcher) StopWatching() {
	cw.stopOnce.Do(func() {
		close(cw.stopChan)
		log.Info("stopped watching config file")
	})
}

func (cw *ConfigWatcher) handleConfigChange(e fsnotify.Event) {
	cw.mu.Lock()
	if cw.reloadInProcess {
		cw.mu.Unlock()
		return
	}
	cw.reloadInProcess = true
	cw.mu.Unlock()

	defer func() {
		cw.mu.Lock()
		cw.reloadInProcess = false
		cw.mu.Unlock()
	}()

	log.WithFields(map[string]interface{}{
		"event":       e.Op.String(),
		"config_path": e.Name,
	}).Debug("config file change detected")

	cw.reload()
}

func (cw *ConfigWatcher) reload() {
	newConfig, err := LoadConfig(cw.configPath)
	if err != nil {
		log.WithError(err).WithField("config_path", cw.configPath).Warn("ignoring invalid config change")
		return
	}

	cw.mu.Lock()
	oldConfig := cw.config
	cw.config = newConfig
	callbacks := append([]ConfigChangeCallback(nil), cw.callbacks...)
	cw.mu.Unlock()

	log.WithFields(map[string]interface{}{
		"config_path":   cw.configPath,
		"submit_policy": newConfig.UI.SubmitPolicy,
		"max_lines":     newConfig.Terminal.MaxLines,
	}).Info("config reloaded successfully")

	for _, cb := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.WithField("panic", r).Error("config change callback panicked")
				}
			}()
			cb(oldConfig, newConfig)
		}()
	}
}
