package console

import (
	"github.com/colonyops/sage/internal/core/llm"
	"github.com/colonyops/sage/internal/core/workspace"
)

// StoreKind names one of the session's entity stores.
type StoreKind int

const (
	KindWorkspaces StoreKind = iota
	KindIntegrations
	KindRepositories
	KindAvailable
	KindMergeRequests
	KindLLMs
)

func (k StoreKind) String() string {
	switch k {
	case KindWorkspaces:
		return "workspaces"
	case KindIntegrations:
		return "integrations"
	case KindRepositories:
		return "repositories"
	case KindAvailable:
		return "available repositories"
	case KindMergeRequests:
		return "merge requests"
	case KindLLMs:
		return "LLM integrations"
	default:
		return "unknown"
	}
}

// Stores are the entity stores owned by a Session. Review runs and comments
// belong to the Orchestrator.
type Stores struct {
	// Workspaces is global.
	Workspaces Store[workspace.Workspace]
	// Integrations is scoped by workspace id.
	Integrations Store[workspace.Integration]
	// Repositories holds every connected repository of a workspace, scoped
	// by workspace id.
	Repositories Store[workspace.Repository]
	// Available is scoped by integration id.
	Available Store[workspace.AvailableRepository]
	// MergeRequests is scoped by repository id and the server-side state
	// filter.
	MergeRequests Store[workspace.MergeRequest]
	// LLMs is global.
	LLMs Store[llm.Integration]
}

// RepositoriesOf returns the connected repositories of one integration.
func (s *Stores) RepositoriesOf(integrationID int64) []workspace.Repository {
	return workspace.ByIntegration(s.Repositories.Items())[integrationID]
}

// Loaded is the result of a store load.
type Loaded[T any] struct {
	Kind   StoreKind
	Ticket Ticket
	Items  []T
	Err    error
}

// Op is a mutation verb.
type Op int

const (
	OpCreate Op = iota
	OpUpdate
	OpDelete
	OpConnect
	OpSync
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	case OpConnect:
		return "connect"
	case OpSync:
		return "sync"
	default:
		return "unknown"
	}
}

// MutationDone reports a finished create, update, delete, connect or sync.
// ID is the affected entity, when known.
type MutationDone struct {
	Kind StoreKind
	Op   Op
	ID   int64
	// Scope is the workspace or repository the mutation targeted.
	Scope int64
	Err   error
}
