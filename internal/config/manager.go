package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Manager loads the configuration, applies environment overrides, and
// reloads on file changes.
type Manager struct {
	logger     *zap.Logger
	configPath string

	mu     sync.RWMutex
	config *Config

	watcher  *Watcher
	onChange []func(*Config)
}

// NewManager performs the initial load from configPath. A missing file is
// not an error: defaults plus environment overrides apply.
func NewManager(logger *zap.Logger, configPath string) (*Manager, error) {
	m := &Manager{
		logger:     logger.Named("config"),
		configPath: configPath,
	}
	if err := m.Load(); err != nil {
		return nil, fmt.Errorf("initial config load failed: %w", err)
	}
	return m, nil
}

// Load reads the file, applies environment overrides, validates, and swaps
// the active configuration.
func (m *Manager) Load() error {
	cfg := DefaultConfig()

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
		// An empty list in the file means the same as the field being
		// absent.
		if len(cfg.API.AllowOrigins) == 0 {
			cfg.API.AllowOrigins = nil
		}
	}

	if err := applyEnv(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	m.mu.Lock()
	m.config = cfg
	callbacks := append([]func(*Config){}, m.onChange...)
	m.mu.Unlock()

	for _, cb := range callbacks {
		cb(cfg)
	}
	m.logger.Info("configuration loaded", zap.String("path", m.configPath))
	return nil
}

// Get returns the active configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// OnChange registers a callback invoked after every successful reload.
func (m *Manager) OnChange(cb func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, cb)
}

// Watch starts reloading the configuration when the file changes. A reload
// that fails validation keeps the previous configuration active.
func (m *Manager) Watch() error {
	if m.watcher != nil {
		return fmt.Errorf("watcher already running")
	}
	w, err := NewWatcher(m.logger, m.configPath, func() {
		if err := m.Load(); err != nil {
			m.logger.Warn("config reload failed, keeping previous configuration", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	m.watcher = w
	return w.Start()
}

// Close stops the watcher if it is running.
func (m *Manager) Close() error {
	if m.watcher != nil {
		return m.watcher.Stop()
	}
	return nil
}

// Save writes the active configuration back to disk atomically.
func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	tmp := m.configPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}
	if err := os.Rename(tmp, m.configPath); err != nil {
		return fmt.Errorf("failed to replace config file: %w", err)
	}
	return nil
}
