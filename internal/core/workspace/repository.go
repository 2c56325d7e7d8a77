package workspace

// Repository is a provider repository connected (persisted) under a workspace.
type Repository struct {
	ID            int64    `json:"id"`
	IntegrationID int64    `json:"integration_id"`
	ExternalID    string   `json:"external_id"`
	Name          string   `json:"name,omitempty"`
	FullPath      string   `json:"full_path"`
	DefaultBranch string   `json:"default_branch"`
	Provider      Provider `json:"provider"`
}

// Branch returns the default branch, falling back to "main" when the
// provider did not report one.
func (r Repository) Branch() string {
	if r.DefaultBranch == "" {
		return "main"
	}
	return r.DefaultBranch
}

// AvailableRepository is a repository listed by the provider that may be
// connected. It has no server-side id until connected.
type AvailableRepository struct {
	ExternalID    string `json:"external_id"`
	Name          string `json:"name"`
	FullPath      string `json:"full_path"`
	DefaultBranch string `json:"default_branch"`
}

// ConnectInput is the payload for connecting repositories of an integration.
type ConnectInput struct {
	IntegrationID int64                 `json:"integration_id"`
	Repositories  []AvailableRepository `json:"repositories"`
}

// ByIntegration groups connected repositories by their integration id,
// preserving the input order within each group.
func ByIntegration(repos []Repository) map[int64][]Repository {
	out := make(map[int64][]Repository)
	for _, r := range repos {
		out[r.IntegrationID] = append(out[r.IntegrationID], r)
	}
	return out
}

// FindRepository returns the repository with the given id.
func FindRepository(items []Repository, id int64) (Repository, bool) {
	for _, r := range items {
		if r.ID == id {
			return r, true
		}
	}
	return Repository{}, false
}

// SelectAvailable returns the available repositories whose external id is
// in ids, in listing order.
func SelectAvailable(items []AvailableRepository, ids map[string]bool) []AvailableRepository {
	var out []AvailableRepository
	for _, r := range items {
		if ids[r.ExternalID] {
			out = append(out, r)
		}
	}
	return out
}
