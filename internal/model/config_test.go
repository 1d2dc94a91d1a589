package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultScopes, cfg.OAuth.Scopes)
	assert.Equal(t, DefaultConnectTimeout, cfg.OAuth.Timeout)
	assert.Empty(t, cfg.OAuth.CallbackPorts)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "app.db", filepath.Base(cfg.DatabasePath))
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database_path: /tmp/outreach.db
oauth:
  callback_ports: [53682, 53683]
  timeout: 30s
  scopes:
    - https://www.googleapis.com/auth/gmail.send
gmail:
  endpoint: http://127.0.0.1:9999/
log:
  level: debug
  format: json
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/outreach.db", cfg.DatabasePath)
	assert.Equal(t, []int{53682, 53683}, cfg.OAuth.CallbackPorts)
	assert.Equal(t, 30*time.Second, cfg.OAuth.Timeout)
	assert.Equal(t, []string{"https://www.googleapis.com/auth/gmail.send"}, cfg.OAuth.Scopes)
	assert.Equal(t, "http://127.0.0.1:9999/", cfg.Gmail.Endpoint)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("COMPANYTINDER_LOG_LEVEL", "warn")
	t.Setenv("COMPANYTINDER_DATABASE_PATH", "/var/lib/ct.db")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "/var/lib/ct.db", cfg.DatabasePath)
}

func TestLoadConfigRejectsBrokenYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log: [unclosed"), 0o600))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestSaveConfigThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultAppConfig()
	cfg.DatabasePath = "/data/ct.db"
	cfg.Log.Level = "debug"

	require.NoError(t, SaveConfig(path, cfg))

	got, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/ct.db", got.DatabasePath)
	assert.Equal(t, "debug", got.Log.Level)
	assert.Equal(t, DefaultScopes, got.OAuth.Scopes)
}
