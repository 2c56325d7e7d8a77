package devserver

import (
	"net/http"

	"github.com/colonyops/sage/internal/core/validate"
	"github.com/colonyops/sage/internal/core/workspace"
)

// workspaceParam resolves :wid. Writes require ownership.
func (s *Server) workspaceParam(c Context, write bool) (*ownedWorkspace, error) {
	wid, ok := c.ParamID("wid")
	if !ok {
		return nil, c.BadRequest("invalid workspace id")
	}
	w, ok := s.st.workspaces[wid]
	if !ok {
		return nil, c.NotFound("workspace not found")
	}
	if write && w.owner != c.User {
		return nil, c.Error(http.StatusForbidden, "You do not have permission to perform this action.")
	}
	return w, nil
}

func (s *Server) integrationParam(c Context, w *ownedWorkspace) (*integrationRecord, error) {
	iid, ok := c.ParamID("iid")
	if !ok {
		return nil, c.BadRequest("invalid integration id")
	}
	it, ok := s.st.integrations[iid]
	if !ok || it.WorkspaceID != w.ID {
		return nil, c.NotFound("integration not found")
	}
	return it, nil
}

func (s *Server) repositoryParam(c Context, w *ownedWorkspace) (*repositoryRecord, error) {
	rid, ok := c.ParamID("rid")
	if !ok {
		return nil, c.BadRequest("invalid repository id")
	}
	r, ok := s.st.repositories[rid]
	if !ok || r.workspaceID != w.ID {
		return nil, c.NotFound("repository not found")
	}
	return r, nil
}

func (s *Server) listWorkspaces(c Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []workspace.Workspace{}
	for _, w := range sorted(s.st.workspaces, nil) {
		out = append(out, s.st.workspaceFor(c.User, w))
	}
	return c.OK(out)
}

func (s *Server) createWorkspace(c Context) error {
	var in workspace.WorkspaceInput
	if err := c.Decode(&in); err != nil {
		return c.BadRequest("invalid request body")
	}
	if err := validate.Workspace(in); err != nil {
		return c.Invalid(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.st.createWorkspace(c.User, in.Name, s.now())
	c.L.Info().Int64("id", w.ID).Str("name", w.Name).Msg("workspace created")
	return c.Created(s.st.workspaceFor(c.User, w))
}

func (s *Server) updateWorkspace(c Context) error {
	var in workspace.WorkspaceInput
	if err := c.Decode(&in); err != nil {
		return c.BadRequest("invalid request body")
	}
	if err := validate.Workspace(in); err != nil {
		return c.Invalid(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.workspaceParam(c, true)
	if w == nil {
		return err
	}
	w.Name = in.Name
	return c.OK(s.st.workspaceFor(c.User, w))
}

func (s *Server) deleteWorkspace(c Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.workspaceParam(c, true)
	if w == nil {
		return err
	}
	s.st.deleteWorkspace(w.ID)
	c.L.Info().Int64("id", w.ID).Msg("workspace deleted")
	return c.NoContent()
}

func (s *Server) listIntegrations(c Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.workspaceParam(c, false)
	if w == nil {
		return err
	}
	out := []workspace.Integration{}
	for _, it := range sorted(s.st.integrations, func(it *integrationRecord) bool { return it.WorkspaceID == w.ID }) {
		out = append(out, it.Integration)
	}
	return c.OK(map[string]any{"results": out})
}

func (s *Server) createIntegration(c Context) error {
	var in workspace.IntegrationInput
	if err := c.Decode(&in); err != nil {
		return c.BadRequest("invalid request body")
	}
	if err := validate.IntegrationCreate(in); err != nil {
		return c.Invalid(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.workspaceParam(c, true)
	if w == nil {
		return err
	}
	it := &integrationRecord{
		Integration: workspace.Integration{
			ID:              s.st.id(),
			WorkspaceID:     w.ID,
			Name:            in.Name,
			Provider:        in.Provider,
			BaseURL:         in.BaseURL,
			HasAccessToken:  true,
			HasRefreshToken: in.RefreshToken != "",
		},
		accessToken: in.AccessToken,
	}
	s.st.integrations[it.ID] = it
	return c.Created(it.Integration)
}

func (s *Server) updateIntegration(c Context) error {
	var in workspace.IntegrationInput
	if err := c.Decode(&in); err != nil {
		return c.BadRequest("invalid request body")
	}
	if err := validate.IntegrationUpdate(in); err != nil {
		return c.Invalid(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.workspaceParam(c, true)
	if w == nil {
		return err
	}
	it, err := s.integrationParam(c, w)
	if it == nil {
		return err
	}
	if in.Name != "" {
		it.Name = in.Name
	}
	if in.Provider != "" {
		it.Provider = in.Provider
	}
	if in.BaseURL != "" {
		it.BaseURL = in.BaseURL
	}
	if in.AccessToken != "" {
		it.accessToken = in.AccessToken
		it.HasAccessToken = true
	}
	if in.RefreshToken != "" {
		it.HasRefreshToken = true
	}
	return c.OK(it.Integration)
}

func (s *Server) deleteIntegration(c Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.workspaceParam(c, true)
	if w == nil {
		return err
	}
	it, err := s.integrationParam(c, w)
	if it == nil {
		return err
	}
	s.st.deleteIntegration(it.ID)
	return c.NoContent()
}

func (s *Server) listAvailable(c Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.workspaceParam(c, false)
	if w == nil {
		return err
	}
	it, err := s.integrationParam(c, w)
	if it == nil {
		return err
	}
	return c.OK(map[string]any{"repositories": s.st.available(it)})
}

func (s *Server) listRepositories(c Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.workspaceParam(c, false)
	if w == nil {
		return err
	}
	out := []workspace.Repository{}
	for _, r := range sorted(s.st.repositories, func(r *repositoryRecord) bool { return r.workspaceID == w.ID }) {
		out = append(out, r.Repository)
	}
	return c.OK(out)
}

func (s *Server) connectRepositories(c Context) error {
	var in workspace.ConnectInput
	if err := c.Decode(&in); err != nil {
		return c.BadRequest("invalid request body")
	}
	if err := validate.Connect(in); err != nil {
		return c.Invalid(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.workspaceParam(c, true)
	if w == nil {
		return err
	}
	it, ok := s.st.integrations[in.IntegrationID]
	if !ok || it.WorkspaceID != w.ID {
		return c.JSON(http.StatusBadRequest, map[string][]string{"integration_id": {"Unknown integration."}})
	}
	repos := s.st.connect(w.ID, it, in.Repositories)
	c.L.Info().Int64("workspace", w.ID).Int("count", len(repos)).Msg("repositories connected")
	return c.Created(repos)
}

func (s *Server) deleteRepository(c Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.workspaceParam(c, true)
	if w == nil {
		return err
	}
	r, err := s.repositoryParam(c, w)
	if r == nil {
		return err
	}
	s.st.deleteRepository(r.ID)
	return c.NoContent()
}

func (s *Server) listMergeRequests(c Context) error {
	q := workspace.MergeRequestQuery{
		State:  workspace.MergeRequestState(c.QueryParam("state")),
		Search: c.QueryParam("search"),
	}
	if q.State != "" && !q.State.IsValid() {
		return c.JSON(http.StatusBadRequest, map[string][]string{"state": {"Select a valid choice."}})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.workspaceParam(c, false)
	if w == nil {
		return err
	}
	r, err := s.repositoryParam(c, w)
	if r == nil {
		return err
	}
	out := s.st.mergeRequests(r.ID, q)
	if out == nil {
		out = []workspace.MergeRequest{}
	}
	return c.OK(map[string]any{"results": out})
}

func (s *Server) syncMergeRequests(c Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.workspaceParam(c, false)
	if w == nil {
		return err
	}
	r, err := s.repositoryParam(c, w)
	if r == nil {
		return err
	}
	added := s.st.sync(r, s.now())
	c.L.Info().Int64("repository", r.ID).Int("added", added).Msg("merge requests synced")
	return c.JSON(http.StatusAccepted, map[string]int{"added": added})
}
