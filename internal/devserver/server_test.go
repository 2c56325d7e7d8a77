package devserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/colonyops/sage/internal/core/auth"
	"github.com/colonyops/sage/internal/core/llm"
	"github.com/colonyops/sage/internal/core/review"
	"github.com/colonyops/sage/internal/core/workspace"
	"github.com/colonyops/sage/internal/data/api"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer starts a server with one user and returns a logged-in
// client.
func newTestServer(t *testing.T, opts Options) (*Server, *api.Client, *httptest.Server) {
	t.Helper()
	if opts.Users == nil {
		opts.Users = map[string]string{"alice": "password1"}
	}
	opts.Logger = zerolog.Nop()
	srv := New(opts)
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)

	client := api.New(hs.URL+"/api", api.WithCredentials(auth.NewStatic("")))
	_, err := client.Login(context.Background(), auth.LoginInput{Username: "alice", Password: "password1"})
	require.NoError(t, err)
	return srv, client, hs
}

func TestServer_RejectsAnonymous(t *testing.T) {
	_, _, hs := newTestServer(t, Options{})
	client := api.New(hs.URL + "/api")

	_, err := client.ListWorkspaces(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsAuthorization(err))
}

func TestServer_LoginFailure(t *testing.T) {
	_, _, hs := newTestServer(t, Options{})
	client := api.New(hs.URL+"/api", api.WithCredentials(auth.NewStatic("")))

	_, err := client.Login(context.Background(), auth.LoginInput{Username: "alice", Password: "nope"})
	require.Error(t, err)
	assert.True(t, api.IsAuthorization(err))
}

func TestServer_RegisterUsesEnvelope(t *testing.T) {
	_, _, hs := newTestServer(t, Options{})
	client := api.New(hs.URL+"/api", api.WithCredentials(auth.NewStatic("")))

	tokens, err := client.Register(context.Background(), auth.RegisterInput{Username: "bob", Password: "long-enough"})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.Access)
	assert.NotEmpty(t, tokens.Refresh)
	assert.Equal(t, "bob", tokens.Username)

	_, err = client.Register(context.Background(), auth.RegisterInput{Username: "bob", Password: "short"})
	require.Error(t, err)
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.FieldErrors, "username")
	assert.Contains(t, apiErr.FieldErrors, "password")
}

func TestServer_RefreshAfterExpiry(t *testing.T) {
	srv, client, _ := newTestServer(t, Options{})
	_, err := client.ListWorkspaces(context.Background())
	require.NoError(t, err)

	srv.ExpireTokens()
	_, err = client.ListWorkspaces(context.Background())
	require.NoError(t, err, "client refreshes once and retries")
}

func TestServer_StaticToken(t *testing.T) {
	_, _, hs := newTestServer(t, Options{Tokens: []string{"dev-token"}})
	client := api.New(hs.URL+"/api", api.WithCredentials(auth.NewStatic("dev-token")))
	_, err := client.ListWorkspaces(context.Background())
	require.NoError(t, err)
}

func TestServer_WorkspaceLifecycle(t *testing.T) {
	_, client, _ := newTestServer(t, Options{})
	ctx := context.Background()

	ws, err := client.CreateWorkspace(ctx, workspace.WorkspaceInput{Name: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, workspace.RoleOwner, ws.Role)
	assert.True(t, ws.CanEdit())

	renamed, err := client.UpdateWorkspace(ctx, ws.ID, workspace.WorkspaceInput{Name: "Acme Corp"})
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", renamed.Name)

	_, err = client.CreateWorkspace(ctx, workspace.WorkspaceInput{Name: ""})
	require.Error(t, err)
	assert.True(t, api.IsValidation(err))

	require.NoError(t, client.DeleteWorkspace(ctx, ws.ID))
	err = client.DeleteWorkspace(ctx, ws.ID)
	assert.True(t, api.IsNotFound(err))

	items, err := client.ListWorkspaces(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestServer_OnlyOwnerEdits(t *testing.T) {
	_, client, hs := newTestServer(t, Options{Users: map[string]string{"alice": "password1", "bob": "password2"}})
	ctx := context.Background()
	ws, err := client.CreateWorkspace(ctx, workspace.WorkspaceInput{Name: "Acme"})
	require.NoError(t, err)

	bob := api.New(hs.URL+"/api", api.WithCredentials(auth.NewStatic("")))
	_, err = bob.Login(ctx, auth.LoginInput{Username: "bob", Password: "password2"})
	require.NoError(t, err)

	items, err := bob.ListWorkspaces(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, workspace.RoleMember, items[0].Role)

	err = bob.DeleteWorkspace(ctx, ws.ID)
	assert.True(t, api.IsAuthorization(err))
}

func TestServer_ConnectAndSync(t *testing.T) {
	_, client, _ := newTestServer(t, Options{})
	ctx := context.Background()

	ws, err := client.CreateWorkspace(ctx, workspace.WorkspaceInput{Name: "Acme"})
	require.NoError(t, err)
	it, err := client.CreateIntegration(ctx, ws.ID, workspace.IntegrationInput{Name: "GitHub", Provider: workspace.ProviderGitHub, AccessToken: "ghp_x"})
	require.NoError(t, err)
	assert.True(t, it.HasAccessToken)
	assert.Equal(t, ws.ID, it.WorkspaceID)

	_, err = client.CreateIntegration(ctx, ws.ID, workspace.IntegrationInput{Name: "GitLab", Provider: workspace.ProviderGitLab})
	require.Error(t, err)
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.FieldErrors, "access_token")

	avail, err := client.ListAvailableRepositories(ctx, ws.ID, it.ID)
	require.NoError(t, err)
	require.Len(t, avail, 3)
	assert.Equal(t, "acme/api", avail[0].FullPath)

	repos, err := client.ConnectRepositories(ctx, ws.ID, workspace.ConnectInput{IntegrationID: it.ID, Repositories: avail[:1]})
	require.NoError(t, err)
	require.Len(t, repos, 1)
	assert.Equal(t, "main", repos[0].DefaultBranch)

	again, err := client.ConnectRepositories(ctx, ws.ID, workspace.ConnectInput{IntegrationID: it.ID, Repositories: avail[:1]})
	require.NoError(t, err)
	assert.Equal(t, repos[0].ID, again[0].ID, "connecting twice is idempotent")

	mrs, err := client.ListMergeRequests(ctx, ws.ID, repos[0].ID, workspace.MergeRequestQuery{})
	require.NoError(t, err)
	assert.Empty(t, mrs)

	require.NoError(t, client.SyncMergeRequests(ctx, ws.ID, repos[0].ID))
	mrs, err = client.ListMergeRequests(ctx, ws.ID, repos[0].ID, workspace.MergeRequestQuery{})
	require.NoError(t, err)
	assert.Len(t, mrs, len(mergeRequestFixtures))

	open, err := client.ListMergeRequests(ctx, ws.ID, repos[0].ID, workspace.MergeRequestQuery{State: workspace.MergeRequestOpen, Search: "TOKEN"})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "Fix token refresh on 401", open[0].Title)

	require.NoError(t, client.DeleteIntegration(ctx, ws.ID, it.ID))
	left, err := client.ListRepositories(ctx, ws.ID)
	require.NoError(t, err)
	assert.Empty(t, left, "repositories go with their integration")
}

func TestServer_LLMKeys(t *testing.T) {
	_, client, _ := newTestServer(t, Options{})
	ctx := context.Background()
	llms := client.LLM()

	_, err := llms.Create(ctx, llm.Input{Name: "gpt", Provider: llm.ProviderOpenAI, Model: "gpt-4o"})
	require.Error(t, err)
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.FieldErrors, "api_key")

	// The client strips the key before sending.
	local, err := llms.Create(ctx, llm.Input{Name: "local", Provider: llm.ProviderOllama, Model: "llama3", APIKey: "sk-ignored"})
	require.NoError(t, err)
	assert.False(t, local.APIKeyPresent)

	gpt, err := llms.Create(ctx, llm.Input{Name: "gpt", Provider: llm.ProviderOpenAI, Model: "gpt-4o", APIKey: "sk-1"})
	require.NoError(t, err)
	assert.True(t, gpt.APIKeyPresent)

	updated, err := llms.Update(ctx, gpt.ID, llm.Input{Model: "gpt-4.1"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1", updated.Model)
	assert.True(t, updated.APIKeyPresent, "blank key keeps the stored one")

	require.NoError(t, llms.Delete(ctx, local.ID))
	items, err := llms.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestServer_RunLifecycle(t *testing.T) {
	srv, client, _ := newTestServer(t, Options{})
	ctx := context.Background()
	wid, mid, llmID := seedMergeRequest(t, client)

	run, err := client.StartRun(ctx, wid, mid, review.RunInput{LLMIntegrationID: llmID})
	require.NoError(t, err)
	assert.Equal(t, review.StatusQueued, run.Status)

	_, err = client.StartRun(ctx, wid, mid, review.RunInput{LLMIntegrationID: 9999})
	assert.True(t, api.IsValidation(err))

	run, err = client.GetRun(ctx, wid, mid, run.ID)
	require.NoError(t, err)
	assert.Equal(t, review.StatusRunning, run.Status)
	require.NotNil(t, run.StartedAt)

	run, err = client.GetRun(ctx, wid, mid, run.ID)
	require.NoError(t, err)
	assert.Equal(t, review.StatusSucceeded, run.Status)
	assert.Equal(t, "Found 3 issues", run.Summary)
	assert.NotEmpty(t, run.StructuredOutput)

	comments, err := client.ListComments(ctx, wid, mid, run.ID)
	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, run.ID, comments[0].RunID)
	assert.NotNil(t, comments[0].Line)

	err = client.CancelRun(ctx, wid, mid, run.ID)
	require.Error(t, err)
	assert.True(t, api.IsClientError(err))

	res, err := client.PublishRun(ctx, wid, mid, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Posted)
	res, err = client.PublishRun(ctx, wid, mid, run.ID)
	require.NoError(t, err)
	assert.Zero(t, res.Posted)

	rerun, err := client.RerunRun(ctx, wid, mid, run.ID, review.RunInput{})
	require.NoError(t, err)
	assert.Equal(t, llmID, rerun.LLMIntegrationID)
	require.NoError(t, client.CancelRun(ctx, wid, mid, rerun.ID))

	runs, err := client.ListRuns(ctx, wid, mid)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	latest, _ := review.Latest(runs)
	assert.Equal(t, rerun.ID, latest.ID)
	assert.Equal(t, review.StatusCanceled, latest.Status)

	assert.True(t, srv.Finish(rerun.ID))
	assert.False(t, srv.Finish(424242))

	_, err = client.GetRun(ctx, wid, 424242, run.ID)
	assert.True(t, api.IsNotFound(err))
}

func TestServer_ETagRevalidation(t *testing.T) {
	_, _, hs := newTestServer(t, Options{Tokens: []string{"dev-token"}})

	get := func(etag string) *http.Response {
		req, err := http.NewRequest(http.MethodGet, hs.URL+"/api/workspace/list/", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer dev-token")
		if etag != "" {
			req.Header.Set("If-None-Match", etag)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	first := get("")
	require.Equal(t, http.StatusOK, first.StatusCode)
	etag := first.Header.Get("ETag")
	require.NotEmpty(t, etag)

	assert.Equal(t, http.StatusNotModified, get(etag).StatusCode)
	assert.Equal(t, http.StatusOK, get(`"stale"`).StatusCode)
}

func TestServer_Demo(t *testing.T) {
	srv := New(Options{Demo: true, Logger: zerolog.Nop()})
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)
	ctx := context.Background()

	client := api.New(hs.URL+"/api", api.WithCredentials(auth.NewStatic("")))
	_, err := client.Login(ctx, auth.LoginInput{Username: "demo", Password: "demo"})
	require.NoError(t, err)

	items, err := client.ListWorkspaces(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	repos, err := client.ListRepositories(ctx, items[0].ID)
	require.NoError(t, err)
	require.Len(t, repos, 1)
	assert.Equal(t, "acme/api", repos[0].FullPath)

	mrs, err := client.ListMergeRequests(ctx, items[0].ID, repos[0].ID, workspace.MergeRequestQuery{})
	require.NoError(t, err)
	assert.NotEmpty(t, mrs)

	llms, err := client.LLM().List(ctx)
	require.NoError(t, err)
	require.Len(t, llms, 1)
	assert.Equal(t, llm.ProviderOllama, llms[0].Provider)
}

// seedMergeRequest creates a workspace with one synced repository and an
// LLM integration.
func seedMergeRequest(t *testing.T, client *api.Client) (wid, mid, llmID int64) {
	t.Helper()
	ctx := context.Background()

	ws, err := client.CreateWorkspace(ctx, workspace.WorkspaceInput{Name: "Acme"})
	require.NoError(t, err)
	it, err := client.CreateIntegration(ctx, ws.ID, workspace.IntegrationInput{Name: "GitHub", Provider: workspace.ProviderGitHub, AccessToken: "ghp_x"})
	require.NoError(t, err)
	avail, err := client.ListAvailableRepositories(ctx, ws.ID, it.ID)
	require.NoError(t, err)
	repos, err := client.ConnectRepositories(ctx, ws.ID, workspace.ConnectInput{IntegrationID: it.ID, Repositories: avail[:1]})
	require.NoError(t, err)
	require.NoError(t, client.SyncMergeRequests(ctx, ws.ID, repos[0].ID))
	mrs, err := client.ListMergeRequests(ctx, ws.ID, repos[0].ID, workspace.MergeRequestQuery{State: workspace.MergeRequestOpen})
	require.NoError(t, err)
	require.NotEmpty(t, mrs)
	local, err := client.LLM().Create(ctx, llm.Input{Name: "local", Provider: llm.ProviderOllama, Model: "llama3"})
	require.NoError(t, err)
	return ws.ID, mrs[0].ID, local.ID
}
