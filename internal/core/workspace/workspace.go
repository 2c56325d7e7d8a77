// Package workspace defines the workspace-scoped domain types: workspaces,
// Git-hosting integrations, repositories and merge requests.
package workspace

import (
	"strings"
	"time"
)

// Role is the caller's membership role inside a workspace.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

// NormalizeRole lowercases and trims a role string. Unknown roles are kept
// verbatim so they can still be displayed.
func NormalizeRole(s string) Role {
	return Role(strings.ToLower(strings.TrimSpace(s)))
}

// Workspace is the top-level tenant that scopes integrations and repositories.
type Workspace struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	IsAdmin   bool      `json:"is_admin,omitempty"`
	OwnerID   int64     `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CanEdit reports whether the caller may rename or delete the workspace and
// mutate its integrations and repositories. The server remains authoritative;
// this only drives what the console offers.
func (w Workspace) CanEdit() bool {
	if w.IsAdmin {
		return true
	}
	return w.Role == RoleAdmin || w.Role == RoleOwner
}

// WorkspaceInput is the payload for creating or renaming a workspace.
type WorkspaceInput struct {
	Name string `json:"name"`
}

// FindWorkspace returns the workspace with the given id.
func FindWorkspace(items []Workspace, id int64) (Workspace, bool) {
	for _, w := range items {
		if w.ID == id {
			return w, true
		}
	}
	return Workspace{}, false
}
