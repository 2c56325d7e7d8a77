package console

import "github.com/colonyops/sage/internal/core/workspace"

// NodeType is a level of the selection tree.
type NodeType int

const (
	NodeNone NodeType = iota
	NodeWorkspace
	NodeIntegration
	NodeRepository
	NodeMergeRequest
)

func (t NodeType) String() string {
	switch t {
	case NodeWorkspace:
		return "workspace"
	case NodeIntegration:
		return "integration"
	case NodeRepository:
		return "repository"
	case NodeMergeRequest:
		return "merge_request"
	default:
		return "none"
	}
}

// Node addresses one entity in the tree. ParentID is the integration id of
// a repository and the repository id of a merge request.
type Node struct {
	Type        NodeType
	ID          int64
	WorkspaceID int64
	ParentID    int64
	Repository  *workspace.Repository
}

// WorkspaceNode returns the node for a workspace.
func WorkspaceNode(id int64) Node {
	return Node{Type: NodeWorkspace, ID: id, WorkspaceID: id}
}

// IntegrationNode returns the node for an integration.
func IntegrationNode(workspaceID, id int64) Node {
	return Node{Type: NodeIntegration, ID: id, WorkspaceID: workspaceID, ParentID: workspaceID}
}

// RepositoryNode returns the node for a connected repository.
func RepositoryNode(workspaceID int64, repo workspace.Repository) Node {
	return Node{
		Type:        NodeRepository,
		ID:          repo.ID,
		WorkspaceID: workspaceID,
		ParentID:    repo.IntegrationID,
		Repository:  &repo,
	}
}

// MergeRequestNode returns the node for a merge request.
func MergeRequestNode(workspaceID int64, mr workspace.MergeRequest) Node {
	return Node{Type: NodeMergeRequest, ID: mr.ID, WorkspaceID: workspaceID, ParentID: mr.RepositoryID}
}

// Change lists the reloads a selection change requires.
type Change struct {
	LoadIntegrations  bool
	LoadRepositories  bool
	LoadMergeRequests bool
	OpenMergeRequest  bool
	CloseReview       bool
}

// IsZero reports whether nothing needs to happen.
func (c Change) IsZero() bool { return c == Change{} }

// Selection is the current focus path. It is a value: every mutator returns
// the next Selection and the Session is its only writer.
type Selection struct {
	workspaceID    int64
	integrationID  int64
	repositoryID   int64
	mergeRequestID int64
	repository     *workspace.Repository
	expanded       map[int64]bool
}

// WorkspaceID returns the active workspace, or 0.
func (s Selection) WorkspaceID() int64 { return s.workspaceID }

// IntegrationID returns the focused integration, or 0.
func (s Selection) IntegrationID() int64 { return s.integrationID }

// RepositoryID returns the focused repository, or 0.
func (s Selection) RepositoryID() int64 { return s.repositoryID }

// MergeRequestID returns the focused merge request, or 0.
func (s Selection) MergeRequestID() int64 { return s.mergeRequestID }

// Repository returns the focused repository when known.
func (s Selection) Repository() (workspace.Repository, bool) {
	if s.repository == nil || s.repositoryID == 0 {
		return workspace.Repository{}, false
	}
	return *s.repository, true
}

// Focus returns the deepest selected level.
func (s Selection) Focus() NodeType {
	switch {
	case s.mergeRequestID != 0:
		return NodeMergeRequest
	case s.repositoryID != 0:
		return NodeRepository
	case s.integrationID != 0:
		return NodeIntegration
	case s.workspaceID != 0:
		return NodeWorkspace
	default:
		return NodeNone
	}
}

// Select focuses n and reports what must reload. Nodes outside the active
// workspace are ignored, except workspace nodes, which switch workspace.
func (s Selection) Select(n Node) (Selection, Change) {
	if n.Type != NodeWorkspace && (s.workspaceID == 0 || n.WorkspaceID != s.workspaceID) {
		return s, Change{}
	}

	var ch Change
	switch n.Type {
	case NodeWorkspace:
		ch.CloseReview = s.mergeRequestID != 0
		ch.LoadIntegrations = true
		ch.LoadRepositories = true
		s = Selection{workspaceID: n.ID}

	case NodeIntegration:
		ch.CloseReview = s.mergeRequestID != 0
		s.integrationID = n.ID
		s.repositoryID = 0
		s.repository = nil
		s.mergeRequestID = 0

	case NodeRepository:
		ch.CloseReview = s.mergeRequestID != 0
		ch.LoadMergeRequests = true
		s.integrationID = n.ParentID
		s.repositoryID = n.ID
		s.repository = n.Repository
		s.mergeRequestID = 0

	case NodeMergeRequest:
		if s.repositoryID == 0 || n.ParentID != s.repositoryID {
			return s, Change{}
		}
		if s.mergeRequestID == n.ID {
			return s, Change{}
		}
		ch.OpenMergeRequest = true
		s.mergeRequestID = n.ID

	default:
		return s, Change{}
	}

	return s, ch
}

// ExpandIntegration marks an integration's repository list as expanded. It
// reports true the first time, when the list may need loading.
func (s Selection) ExpandIntegration(id int64) (Selection, bool) {
	if s.expanded[id] {
		return s, false
	}
	next := make(map[int64]bool, len(s.expanded)+1)
	for k, v := range s.expanded {
		next[k] = v
	}
	next[id] = true
	s.expanded = next
	return s, true
}

// CollapseIntegration hides an integration's repository list.
func (s Selection) CollapseIntegration(id int64) Selection {
	if !s.expanded[id] {
		return s
	}
	next := make(map[int64]bool, len(s.expanded))
	for k, v := range s.expanded {
		if k != id {
			next[k] = v
		}
	}
	s.expanded = next
	return s
}

// IsExpanded reports whether an integration's repository list is shown.
func (s Selection) IsExpanded(id int64) bool { return s.expanded[id] }

// CurrentPath returns the selected nodes from the workspace down to the
// focus.
func (s Selection) CurrentPath() []Node {
	if s.workspaceID == 0 {
		return nil
	}
	path := []Node{WorkspaceNode(s.workspaceID)}
	if s.integrationID != 0 {
		path = append(path, IntegrationNode(s.workspaceID, s.integrationID))
	}
	if s.repositoryID != 0 {
		n := Node{Type: NodeRepository, ID: s.repositoryID, WorkspaceID: s.workspaceID, ParentID: s.integrationID, Repository: s.repository}
		path = append(path, n)
	}
	if s.mergeRequestID != 0 {
		path = append(path, Node{Type: NodeMergeRequest, ID: s.mergeRequestID, WorkspaceID: s.workspaceID, ParentID: s.repositoryID})
	}
	return path
}

// IsAncestorActive reports whether level is selected above the focus, that
// is whether a node of that level is an ancestor of the focused node.
func (s Selection) IsAncestorActive(level NodeType) bool {
	focus := s.Focus()
	if level >= focus || level == NodeNone {
		return false
	}
	for _, n := range s.CurrentPath() {
		if n.Type == level {
			return true
		}
	}
	return false
}

// IsSelected reports whether the node of the given type and id lies on the
// current path.
func (s Selection) IsSelected(t NodeType, id int64) bool {
	for _, n := range s.CurrentPath() {
		if n.Type == t && n.ID == id {
			return true
		}
	}
	return false
}

// Retarget moves the focus one level above a deleted entity that lies on the
// current path. Deleting anything else leaves the selection unchanged.
func (s Selection) Retarget(t NodeType, id int64) (Selection, Change) {
	if !s.IsSelected(t, id) {
		if t == NodeIntegration {
			s = s.CollapseIntegration(id)
		}
		return s, Change{}
	}

	ch := Change{CloseReview: s.mergeRequestID != 0}
	switch t {
	case NodeWorkspace:
		s = Selection{}
	case NodeIntegration:
		s = s.CollapseIntegration(id)
		s.integrationID = 0
		s.repositoryID = 0
		s.repository = nil
		s.mergeRequestID = 0
	case NodeRepository:
		s.repositoryID = 0
		s.repository = nil
		s.mergeRequestID = 0
	case NodeMergeRequest:
		s.mergeRequestID = 0
	}
	return s, ch
}
