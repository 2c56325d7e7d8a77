package workspace

import "context"

// Service is the remote API for workspaces and everything scoped under one.
type Service interface {
	ListWorkspaces(ctx context.Context) ([]Workspace, error)
	CreateWorkspace(ctx context.Context, in WorkspaceInput) (Workspace, error)
	UpdateWorkspace(ctx context.Context, id int64, in WorkspaceInput) (Workspace, error)
	DeleteWorkspace(ctx context.Context, id int64) error

	ListIntegrations(ctx context.Context, workspaceID int64) ([]Integration, error)
	CreateIntegration(ctx context.Context, workspaceID int64, in IntegrationInput) (Integration, error)
	UpdateIntegration(ctx context.Context, workspaceID, integrationID int64, in IntegrationInput) (Integration, error)
	DeleteIntegration(ctx context.Context, workspaceID, integrationID int64) error

	// ListAvailableRepositories lists provider repositories that may be connected.
	ListAvailableRepositories(ctx context.Context, workspaceID, integrationID int64) ([]AvailableRepository, error)
	// ListRepositories lists every connected repository of the workspace.
	ListRepositories(ctx context.Context, workspaceID int64) ([]Repository, error)
	ConnectRepositories(ctx context.Context, workspaceID int64, in ConnectInput) ([]Repository, error)
	DeleteRepository(ctx context.Context, workspaceID, repositoryID int64) error

	ListMergeRequests(ctx context.Context, workspaceID, repositoryID int64, q MergeRequestQuery) ([]MergeRequest, error)
	// SyncMergeRequests asks the server to refresh merge requests from the
	// provider. It returns once the sync is accepted, not when it completes.
	SyncMergeRequests(ctx context.Context, workspaceID, repositoryID int64) error
}
