package workspace

// Provider identifies a Git hosting provider.
type Provider string

const (
	ProviderGitHub Provider = "github"
	ProviderGitLab Provider = "gitlab"
)

// IsValid reports whether p is a supported provider.
func (p Provider) IsValid() bool {
	switch p {
	case ProviderGitHub, ProviderGitLab:
		return true
	default:
		return false
	}
}

// Providers lists the supported Git hosting providers.
func Providers() []Provider {
	return []Provider{ProviderGitHub, ProviderGitLab}
}

// Integration is a configured connection to a Git hosting provider. Tokens
// are write-only: reads only report whether they are present.
type Integration struct {
	ID              int64    `json:"id"`
	WorkspaceID     int64    `json:"workspace_id"`
	Name            string   `json:"name"`
	Provider        Provider `json:"provider"`
	BaseURL         string   `json:"base_url,omitempty"`
	HasAccessToken  bool     `json:"has_access_token"`
	HasRefreshToken bool     `json:"has_refresh_token"`
}

// IntegrationInput is the create/update payload for an integration. Empty
// fields are omitted from the request, which for updates means "unchanged".
type IntegrationInput struct {
	Name         string   `json:"name,omitempty"`
	Provider     Provider `json:"provider,omitempty"`
	BaseURL      string   `json:"base_url,omitempty"`
	AccessToken  string   `json:"access_token,omitempty"`
	RefreshToken string   `json:"refresh_token,omitempty"`
}

// IsEmpty reports whether the input carries no field at all.
func (in IntegrationInput) IsEmpty() bool {
	return in == IntegrationInput{}
}

// FindIntegration returns the integration with the given id.
func FindIntegration(items []Integration, id int64) (Integration, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return Integration{}, false
}
