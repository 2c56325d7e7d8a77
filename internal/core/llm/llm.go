// Package llm defines language-model provider integrations used to execute
// review runs. Integrations are process-wide, not workspace-scoped.
package llm

import "context"

// Provider identifies a language-model provider.
type Provider string

const (
	ProviderOpenAI   Provider = "openai"
	ProviderDeepSeek Provider = "deepseek"
	ProviderOllama   Provider = "ollama"
)

// Providers lists the supported providers.
func Providers() []Provider {
	return []Provider{ProviderOpenAI, ProviderDeepSeek, ProviderOllama}
}

// IsValid reports whether p is a supported provider.
func (p Provider) IsValid() bool {
	switch p {
	case ProviderOpenAI, ProviderDeepSeek, ProviderOllama:
		return true
	default:
		return false
	}
}

// RequiresAPIKey reports whether the provider needs an API key. Ollama runs
// locally and never accepts one.
func (p Provider) RequiresAPIKey() bool {
	return p != ProviderOllama
}

// Integration is a configured connection to a language-model provider.
type Integration struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Provider      Provider `json:"provider"`
	Model         string   `json:"model"`
	BaseURL       string   `json:"base_url,omitempty"`
	APIKeyPresent bool     `json:"api_key_present"`
}

// Input is the create/update payload. An empty APIKey on update keeps the
// stored key.
type Input struct {
	Name     string   `json:"name,omitempty"`
	Provider Provider `json:"provider,omitempty"`
	Model    string   `json:"model,omitempty"`
	BaseURL  string   `json:"base_url,omitempty"`
	APIKey   string   `json:"api_key,omitempty"`
}

// Sanitize returns a copy of the input with fields the provider does not
// accept removed.
func (in Input) Sanitize() Input {
	if in.Provider == ProviderOllama {
		in.APIKey = ""
	}
	return in
}

// SanitizeFor is Sanitize for an update of an integration stored with the
// given provider. The payload's provider wins when set.
func (in Input) SanitizeFor(stored Provider) Input {
	if in.Provider == "" && stored == ProviderOllama {
		in.APIKey = ""
	}
	return in.Sanitize()
}

// Find returns the integration with the given id.
func Find(items []Integration, id int64) (Integration, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return Integration{}, false
}

// Service is the remote LLM integration API.
type Service interface {
	List(ctx context.Context) ([]Integration, error)
	Create(ctx context.Context, in Input) (Integration, error)
	Update(ctx context.Context, id int64, in Input) (Integration, error)
	Delete(ctx context.Context, id int64) error
}
