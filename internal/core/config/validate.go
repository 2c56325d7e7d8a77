package config

import (
	"fmt"
	"os"
	"time"

	"github.com/colonyops/sage/internal/core/validate"
	"github.com/hay-kot/criterio"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// ValidateDeep performs comprehensive validation of the configuration including
// URL syntax and file accessibility. The configPath argument specifies the
// config file location to validate (empty string skips config file check).
// This calls Validate() first for basic structural validation, then adds I/O checks.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		c.validateFileAccess(configPath),
		c.validateURLs(),
	)
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if c.Review.PollInterval < 5*time.Second {
		warnings = append(warnings, ValidationWarning{
			Category: "Review",
			Item:     "poll_interval",
			Message:  fmt.Sprintf("poll interval %s is aggressive; the service default is %s", c.Review.PollInterval, DefaultPollInterval),
		})
	}

	if !c.API.CacheEnabled() {
		warnings = append(warnings, ValidationWarning{
			Category: "API",
			Item:     "cache",
			Message:  "HTTP cache disabled; every poll transfers the full response",
		})
	}

	return warnings
}

// validateFileAccess checks config file and data directory.
func (c *Config) validateFileAccess(configPath string) error {
	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
	)
}

func (c *Config) validateURLs() error {
	return criterio.ValidateStruct(
		criterio.Run("api.base_url", c.API.BaseURL, requiredURL),
		criterio.Run("github.base_url", c.GitHub.BaseURL, validate.BaseURL),
	)
}

func requiredURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("url is required")
	}
	return validate.BaseURL(raw)
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}
