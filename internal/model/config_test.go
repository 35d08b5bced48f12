package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("NOTIFYBELL_BACKEND_BASE_URL", "")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Empty(t, cfg.Backend.BaseURL, "first run has no backend configured")
	assert.Equal(t, DefaultTokenKey, cfg.Backend.TokenKey)
	assert.Equal(t, 30, cfg.Backend.TimeoutSec)
	assert.Equal(t, 60, cfg.Sync.PollIntervalSec)
	assert.Equal(t, 6, cfg.Display.BellSize)
	assert.False(t, cfg.Inbox.Enabled)
}

func TestLoadConfig_ReadsFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
backend:
  base_url: https://villas.example.com/api/
  timeout_sec: 5
display:
  bell_size: 0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("NOTIFYBELL_SYNC_POLL_INTERVAL_SEC", "15")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://villas.example.com/api", cfg.Backend.BaseURL)
	assert.Equal(t, 5, cfg.Backend.TimeoutSec)
	assert.Equal(t, 15, cfg.Sync.PollIntervalSec)
	assert.Equal(t, 6, cfg.Display.BellSize)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultAppConfig()
	cfg.Backend.BaseURL = "https://dash.example.com/api"
	cfg.Display.BellSize = 4

	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://dash.example.com/api", loaded.Backend.BaseURL)
	assert.Equal(t, 4, loaded.Display.BellSize)
}
