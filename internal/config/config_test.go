package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"api enabled without addr", func(c *Config) { c.API.ListenAddr = "" }},
		{"negative rate limit", func(c *Config) { c.API.RateLimit = -1 }},
		{"missing store path", func(c *Config) { c.Store.Path = "" }},
		{"zero checkpoint interval", func(c *Config) { c.Store.CheckpointInterval = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestManagerLoadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
log_level: debug
api:
  enabled: true
  listen_addr: ":9090"
store:
  path: /tmp/chainchat.db
  checkpoint_interval: 1m
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	m, err := NewManager(zaptest.NewLogger(t), path)
	require.NoError(t, err)
	defer m.Close()

	cfg := m.Get()
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9090", cfg.API.ListenAddr)
	assert.Equal(t, time.Minute, cfg.Store.CheckpointInterval)
	assert.Equal(t, 100, cfg.Logging.MaxSizeMB, "unset fields keep defaults")
}

func TestManagerMissingFileUsesDefaults(t *testing.T) {
	m, err := NewManager(zaptest.NewLogger(t), filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	defer m.Close()
	assert.Equal(t, "info", m.Get().LogLevel)
}

func TestManagerRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: shouty\n"), 0o644))

	_, err := NewManager(zaptest.NewLogger(t), path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CHAINCHAT_LOG_LEVEL", "warn")
	t.Setenv("CHAINCHAT_API_LISTEN_ADDR", ":7000")
	t.Setenv("CHAINCHAT_CHECKPOINT_INTERVAL", "5s")

	m, err := NewManager(zaptest.NewLogger(t), filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	defer m.Close()

	cfg := m.Get()
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, ":7000", cfg.API.ListenAddr)
	assert.Equal(t, 5*time.Second, cfg.Store.CheckpointInterval)
}

func TestEnvRejectsBadValues(t *testing.T) {
	t.Setenv("CHAINCHAT_API_ENABLED", "maybe")
	_, err := NewManager(zaptest.NewLogger(t), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	m, err := NewManager(zaptest.NewLogger(t), path)
	require.NoError(t, err)
	defer m.Close()
	require.NoError(t, m.Save())

	reloaded, err := NewManager(zaptest.NewLogger(t), path)
	require.NoError(t, err)
	defer reloaded.Close()
	assert.Equal(t, m.Get(), reloaded.Get())
	assert.Nil(t, reloaded.Get().API.AllowOrigins, "empty origin list loads as unset")
}

func TestReloadInvokesCallbacks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: info\n"), 0o644))

	m, err := NewManager(zaptest.NewLogger(t), path)
	require.NoError(t, err)
	defer m.Close()

	var seen []string
	m.OnChange(func(c *Config) { seen = append(seen, c.LogLevel) })

	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\n"), 0o644))
	require.NoError(t, m.Load())
	assert.Equal(t, []string{"warn"}, seen)
}
