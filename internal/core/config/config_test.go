package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dataDir := t.TempDir()

	cfg, err := Load("", dataDir)
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.API.BaseURL)
	assert.Equal(t, DefaultPollInterval, cfg.Review.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.True(t, cfg.API.CacheEnabled())
	assert.Zero(t, cfg.Review.MaxPolls)
	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Equal(t, filepath.Join(dataDir, "sage.db"), cfg.DatabaseFile())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, cfg.API.BaseURL)
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: https://review.example.com/api/
  timeout: 10s
  cache: false
review:
  poll_interval: 5s
  max_polls: 40
  default_llm: 3
tui:
  theme: gruvbox
github:
  base_url: https://github.example.com/api/v3
`)

	cfg, err := Load(path, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "https://review.example.com/api", cfg.API.BaseURL, "trailing slash trimmed")
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.False(t, cfg.API.CacheEnabled())
	assert.Equal(t, 5*time.Second, cfg.Review.PollInterval)
	assert.Equal(t, 40, cfg.Review.MaxPolls)
	assert.Equal(t, int64(3), cfg.Review.DefaultLLM)
	assert.Equal(t, "gruvbox", cfg.TUI.Theme)
	assert.Equal(t, "https://github.example.com/api/v3", cfg.GitHub.BaseURL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"bad yaml", "api: [", "parse config file"},
		{"poll too fast", "review:\n  poll_interval: 100ms\n", "poll_interval"},
		{"negative max polls", "review:\n  max_polls: -1\n", "max_polls"},
		{"unknown theme", "tui:\n  theme: neon\n", "not a known theme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body), t.TempDir())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_RequiresDataDir(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data directory")
}
