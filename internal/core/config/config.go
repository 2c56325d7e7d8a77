// Package config handles configuration loading and validation for sage.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/colonyops/sage/internal/core/styles"
	"gopkg.in/yaml.v3"
)

// DefaultBaseURL is the review API root used when no base_url is configured.
const DefaultBaseURL = "http://localhost:8000/api"

// DefaultPollInterval is how often an active review run is re-fetched.
const DefaultPollInterval = 15 * time.Second

// Config holds the application configuration.
type Config struct {
	API     APIConfig    `yaml:"api"`
	Review  ReviewConfig `yaml:"review"`
	TUI     TUIConfig    `yaml:"tui"`
	GitHub  GitHubConfig `yaml:"github"`
	DataDir string       `yaml:"-"` // set by caller, not from config file
}

// APIConfig configures the review service gateway.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	// Cache enables HTTP validator caching (ETag/Last-Modified) for GET
	// requests. Nil means enabled.
	Cache *bool `yaml:"cache"`
}

// CacheEnabled reports whether the HTTP cache should wrap the transport.
func (a APIConfig) CacheEnabled() bool {
	return a.Cache == nil || *a.Cache
}

// ReviewConfig configures review run monitoring.
type ReviewConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	// MaxPolls stops polling a run that never reaches a terminal status.
	// Zero polls until the server reports a terminal status.
	MaxPolls int `yaml:"max_polls"`
	// DefaultLLM is the LLM integration id preselected for new runs.
	DefaultLLM int64 `yaml:"default_llm"`
}

// TUIConfig configures the interactive console.
type TUIConfig struct {
	Theme string `yaml:"theme"`
	// ToastDuration controls how long notices stay on screen.
	ToastDuration time.Duration `yaml:"toast_duration"`
}

// GitHubConfig configures the optional token preflight for GitHub
// integrations.
type GitHubConfig struct {
	// BaseURL targets GitHub Enterprise. Empty uses api.github.com.
	BaseURL string `yaml:"base_url"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL: DefaultBaseURL,
			Timeout: 30 * time.Second,
		},
		Review: ReviewConfig{
			PollInterval: DefaultPollInterval,
		},
		TUI: TUIConfig{
			Theme:         styles.DefaultTheme,
			ToastDuration: 5 * time.Second,
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaults.API.BaseURL
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.Timeout == 0 {
		c.API.Timeout = defaults.API.Timeout
	}
	if c.Review.PollInterval == 0 {
		c.Review.PollInterval = defaults.Review.PollInterval
	}
	if c.TUI.Theme == "" {
		c.TUI.Theme = defaults.TUI.Theme
	}
	if c.TUI.ToastDuration == 0 {
		c.TUI.ToastDuration = defaults.TUI.ToastDuration
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url cannot be empty")
	}

	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout cannot be negative")
	}

	if c.Review.PollInterval < time.Second {
		return fmt.Errorf("review.poll_interval must be at least 1s")
	}

	if c.Review.MaxPolls < 0 {
		return fmt.Errorf("review.max_polls cannot be negative")
	}

	if _, ok := styles.GetPalette(c.TUI.Theme); !ok {
		return fmt.Errorf("tui.theme %q is not a known theme (available: %s)",
			c.TUI.Theme, strings.Join(styles.ThemeNames(), ", "))
	}

	return nil
}

// DatabaseFile returns the path to the local sqlite database.
func (c *Config) DatabaseFile() string {
	return filepath.Join(c.DataDir, "sage.db")
}

// LogFile returns the default log file path.
func (c *Config) LogFile() string {
	return filepath.Join(c.DataDir, "sage.log")
}
