// Package validate provides client-side validation run before any mutating
// request reaches the server.
package validate

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/colonyops/sage/internal/core/llm"
	"github.com/colonyops/sage/internal/core/workspace"
	"github.com/hay-kot/criterio"
)

// MaxNameLength caps every user-supplied name and model string.
const MaxNameLength = 255

// ErrNoChanges is returned for update payloads that carry no fields.
var ErrNoChanges = errors.New("at least one field must be provided")

// Name validates a display name: required after trimming, at most
// MaxNameLength characters.
func Name(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name is required")
	}
	return maxLength(name)
}

// Model validates an LLM model identifier.
func Model(model string) error {
	if strings.TrimSpace(model) == "" {
		return fmt.Errorf("model is required")
	}
	return maxLength(model)
}

// BaseURL validates an optional base URL. Empty is allowed.
func BaseURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url must use http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("url must include a host")
	}
	return nil
}

func maxLength(s string) error {
	if utf8.RuneCountInString(s) > MaxNameLength {
		return fmt.Errorf("must be at most %d characters", MaxNameLength)
	}
	return nil
}

// Workspace validates a workspace create or rename payload.
func Workspace(in workspace.WorkspaceInput) error {
	return criterio.ValidateStruct(
		criterio.Run("name", in.Name, Name),
	)
}

// IntegrationCreate validates a new Git hosting integration. An access token
// is required for every provider.
func IntegrationCreate(in workspace.IntegrationInput) error {
	var errs criterio.FieldErrorsBuilder

	if err := Name(in.Name); err != nil {
		errs = errs.Append("name", err)
	}
	if !in.Provider.IsValid() {
		errs = errs.Append("provider", fmt.Errorf("unsupported provider %q", in.Provider))
	}
	if strings.TrimSpace(in.AccessToken) == "" {
		errs = errs.Append("access_token", fmt.Errorf("access token is required"))
	}
	if err := BaseURL(in.BaseURL); err != nil {
		errs = errs.Append("base_url", err)
	}

	return errs.ToError()
}

// IntegrationUpdate validates a partial integration update. Blank fields mean
// "unchanged" but the payload must carry at least one.
func IntegrationUpdate(in workspace.IntegrationInput) error {
	if in.IsEmpty() {
		return criterio.NewFieldErrors("integration", ErrNoChanges)
	}

	var errs criterio.FieldErrorsBuilder
	if in.Name != "" {
		if err := Name(in.Name); err != nil {
			errs = errs.Append("name", err)
		}
	}
	if in.Provider != "" && !in.Provider.IsValid() {
		errs = errs.Append("provider", fmt.Errorf("unsupported provider %q", in.Provider))
	}
	if err := BaseURL(in.BaseURL); err != nil {
		errs = errs.Append("base_url", err)
	}

	return errs.ToError()
}

// Connect validates a repository connect request.
func Connect(in workspace.ConnectInput) error {
	var errs criterio.FieldErrorsBuilder
	if in.IntegrationID <= 0 {
		errs = errs.Append("integration_id", fmt.Errorf("integration is required"))
	}
	if len(in.Repositories) == 0 {
		errs = errs.Append("repositories", fmt.Errorf("select at least one repository"))
	}
	for i, r := range in.Repositories {
		if r.ExternalID == "" && r.FullPath == "" {
			errs = errs.Append(fmt.Sprintf("repositories[%d]", i), fmt.Errorf("repository identity is missing"))
		}
	}
	return errs.ToError()
}

// LLMCreate validates a new LLM integration. OpenAI and DeepSeek require an
// API key; callers must Sanitize the input so Ollama never sends one.
func LLMCreate(in llm.Input) error {
	var errs criterio.FieldErrorsBuilder

	if err := Name(in.Name); err != nil {
		errs = errs.Append("name", err)
	}
	if !in.Provider.IsValid() {
		errs = errs.Append("provider", fmt.Errorf("unsupported provider %q", in.Provider))
	}
	if err := Model(in.Model); err != nil {
		errs = errs.Append("model", err)
	}
	if in.Provider.IsValid() && in.Provider.RequiresAPIKey() && strings.TrimSpace(in.APIKey) == "" {
		errs = errs.Append("api_key", fmt.Errorf("api key is required for %s", in.Provider))
	}
	if err := BaseURL(in.BaseURL); err != nil {
		errs = errs.Append("base_url", err)
	}

	return errs.ToError()
}

// LLMUpdate validates a partial LLM integration update. A blank API key
// keeps the stored one.
func LLMUpdate(in llm.Input) error {
	if in == (llm.Input{}) {
		return criterio.NewFieldErrors("llm_integration", ErrNoChanges)
	}

	var errs criterio.FieldErrorsBuilder
	if in.Name != "" {
		if err := Name(in.Name); err != nil {
			errs = errs.Append("name", err)
		}
	}
	if in.Provider != "" && !in.Provider.IsValid() {
		errs = errs.Append("provider", fmt.Errorf("unsupported provider %q", in.Provider))
	}
	if in.Model != "" {
		if err := Model(in.Model); err != nil {
			errs = errs.Append("model", err)
		}
	}
	if err := BaseURL(in.BaseURL); err != nil {
		errs = errs.Append("base_url", err)
	}

	return errs.ToError()
}
