package api

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/colonyops/sage/internal/core/workspace"
)

func workspacePath(id int64, rest string) string {
	return fmt.Sprintf("/workspace/%d/%s", id, rest)
}

// listOf decodes a list body through the wire type W into domain values.
func listOf[W any, T any](dest *[]T, conv func(W) T) func([]byte) error {
	return func(body []byte) error {
		wires, err := decodeList[W](body)
		if err != nil {
			return err
		}
		out := make([]T, 0, len(wires))
		for _, w := range wires {
			out = append(out, conv(w))
		}
		*dest = out
		return nil
	}
}

// objectOf decodes a single entity through the wire type W. An empty body
// leaves dest untouched.
func objectOf[W any, T any](dest *T, conv func(W) T) func([]byte) error {
	return func(body []byte) error {
		if isNull(body) {
			return nil
		}
		var w W
		if err := decodeObject(body, &w); err != nil {
			return err
		}
		*dest = conv(w)
		return nil
	}
}

func (c *Client) ListWorkspaces(ctx context.Context) ([]workspace.Workspace, error) {
	var out []workspace.Workspace
	err := c.get(ctx, "/workspace/list/", nil, listOf(&out, workspaceWire.domain))
	return out, err
}

func (c *Client) CreateWorkspace(ctx context.Context, in workspace.WorkspaceInput) (workspace.Workspace, error) {
	var out workspace.Workspace
	err := c.post(ctx, "/workspace/create/", in, objectOf(&out, workspaceWire.domain))
	return out, err
}

func (c *Client) UpdateWorkspace(ctx context.Context, id int64, in workspace.WorkspaceInput) (workspace.Workspace, error) {
	var out workspace.Workspace
	err := c.patch(ctx, workspacePath(id, "update/"), in, objectOf(&out, workspaceWire.domain))
	if err == nil && out.ID == 0 {
		// Some deployments answer updates with an empty body or a bare message.
		out = workspace.Workspace{ID: id, Name: in.Name}
	}
	return out, err
}

func (c *Client) DeleteWorkspace(ctx context.Context, id int64) error {
	return c.delete(ctx, workspacePath(id, "delete/"))
}

func (c *Client) ListIntegrations(ctx context.Context, workspaceID int64) ([]workspace.Integration, error) {
	var out []workspace.Integration
	err := c.get(ctx, workspacePath(workspaceID, "integrations/list/"), nil, listOf(&out, integrationWire.domain))
	fillWorkspaceID(out, workspaceID)
	return out, err
}

func fillWorkspaceID(items []workspace.Integration, workspaceID int64) {
	for i := range items {
		if items[i].WorkspaceID == 0 {
			items[i].WorkspaceID = workspaceID
		}
	}
}

func (c *Client) CreateIntegration(ctx context.Context, workspaceID int64, in workspace.IntegrationInput) (workspace.Integration, error) {
	var out workspace.Integration
	err := c.post(ctx, workspacePath(workspaceID, "integrations/create/"), in, objectOf(&out, integrationWire.domain))
	if err == nil && out.WorkspaceID == 0 {
		out.WorkspaceID = workspaceID
	}
	return out, err
}

func (c *Client) UpdateIntegration(ctx context.Context, workspaceID, integrationID int64, in workspace.IntegrationInput) (workspace.Integration, error) {
	var out workspace.Integration
	path := workspacePath(workspaceID, fmt.Sprintf("integrations/%d/update/", integrationID))
	err := c.patch(ctx, path, in, objectOf(&out, integrationWire.domain))
	if err == nil {
		if out.ID == 0 {
			out.ID = integrationID
		}
		if out.WorkspaceID == 0 {
			out.WorkspaceID = workspaceID
		}
	}
	return out, err
}

func (c *Client) DeleteIntegration(ctx context.Context, workspaceID, integrationID int64) error {
	return c.delete(ctx, workspacePath(workspaceID, fmt.Sprintf("integrations/%d/delete/", integrationID)))
}

func (c *Client) ListAvailableRepositories(ctx context.Context, workspaceID, integrationID int64) ([]workspace.AvailableRepository, error) {
	var out []workspace.AvailableRepository
	path := workspacePath(workspaceID, fmt.Sprintf("integrations/%d/repositories/available/", integrationID))
	err := c.get(ctx, path, nil, listOf(&out, repositoryWire.available))
	return out, err
}

func (c *Client) ListRepositories(ctx context.Context, workspaceID int64) ([]workspace.Repository, error) {
	var out []workspace.Repository
	err := c.get(ctx, workspacePath(workspaceID, "repositories/list/"), nil, listOf(&out, repositoryWire.domain))
	return out, err
}

// ConnectRepositories connects the selected repositories. Servers answer with
// the connected list, a single object or only a message; anything that is
// not a list yields an empty result and callers reload.
func (c *Client) ConnectRepositories(ctx context.Context, workspaceID int64, in workspace.ConnectInput) ([]workspace.Repository, error) {
	var out []workspace.Repository
	err := c.post(ctx, workspacePath(workspaceID, "repositories/connect/"), in, func(body []byte) error {
		wires, err := decodeList[repositoryWire](body)
		if err != nil {
			return nil
		}
		out = make([]workspace.Repository, 0, len(wires))
		for _, w := range wires {
			r := w.domain()
			if r.IntegrationID == 0 {
				r.IntegrationID = in.IntegrationID
			}
			out = append(out, r)
		}
		return nil
	})
	return out, err
}

func (c *Client) DeleteRepository(ctx context.Context, workspaceID, repositoryID int64) error {
	return c.delete(ctx, workspacePath(workspaceID, fmt.Sprintf("repositories/%d/delete/", repositoryID)))
}

func (c *Client) ListMergeRequests(ctx context.Context, workspaceID, repositoryID int64, q workspace.MergeRequestQuery) ([]workspace.MergeRequest, error) {
	query := url.Values{}
	if q.State != "" {
		query.Set("state", string(q.State))
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		query.Set("search", s)
	}

	var out []workspace.MergeRequest
	path := workspacePath(workspaceID, fmt.Sprintf("repositories/%d/merge-requests/", repositoryID))
	err := c.get(ctx, path, query, listOf(&out, mergeRequestWire.domain))
	for i := range out {
		if out[i].RepositoryID == 0 {
			out[i].RepositoryID = repositoryID
		}
	}
	return out, err
}

func (c *Client) SyncMergeRequests(ctx context.Context, workspaceID, repositoryID int64) error {
	path := workspacePath(workspaceID, fmt.Sprintf("repositories/%d/merge-requests/sync/", repositoryID))
	return c.post(ctx, path, nil, nil)
}
