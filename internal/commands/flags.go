package commands

import (
	"os"
	"path/filepath"

	"github.com/colonyops/sage/internal/core/config"
)

// Flags holds the global options shared by every command.
type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string

	// APIURL overrides api.base_url from the config file.
	APIURL string
	// Token is a fixed access token used instead of stored credentials.
	Token string

	// Config is loaded by the root Before hook.
	Config *config.Config
}

// DefaultConfigPath is $XDG_CONFIG_HOME/sage/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(xdgHome("XDG_CONFIG_HOME", ".config"), "sage", "config.yaml")
}

// DefaultDataDir is $XDG_DATA_HOME/sage. It holds the local database and
// the log file.
func DefaultDataDir() string {
	return filepath.Join(xdgHome("XDG_DATA_HOME", ".local", "share"), "sage")
}

// xdgHome returns the directory named by env, or the XDG default under the
// user's home when it is unset.
func xdgHome(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(append([]string{home}, fallback...)...)
}
