package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/colonyops/sage/internal/core/auth"
	"github.com/colonyops/sage/internal/core/llm"
	"github.com/colonyops/sage/internal/core/review"
	"github.com/colonyops/sage/internal/core/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	query  string
	body   string
}

// recorder answers every request with the canned response registered for
// "METHOD /path" and records what it saw.
type recorder struct {
	t         *testing.T
	mu        sync.Mutex
	responses map[string]any
	calls     []recorded
}

func (rc *recorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	rc.mu.Lock()
	rc.calls = append(rc.calls, recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, body: string(body)})
	rc.mu.Unlock()

	key := r.Method + " " + r.URL.Path
	resp, ok := rc.responses[key]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Not found."})
		return
	}
	if resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rc *recorder) last() recorded {
	rc.t.Helper()
	rc.mu.Lock()
	defer rc.mu.Unlock()
	require.NotEmpty(rc.t, rc.calls)
	return rc.calls[len(rc.calls)-1]
}

func newRecorder(t *testing.T, responses map[string]any) (*Client, *recorder) {
	rc := &recorder{t: t, responses: responses}
	return newTestClient(t, rc), rc
}

func TestWorkspaceEndpoints(t *testing.T) {
	c, rc := newRecorder(t, map[string]any{
		"PATCH /api/workspace/4/update/":  nil,
		"DELETE /api/workspace/4/delete/": nil,
	})
	ctx := context.Background()

	ws, err := c.UpdateWorkspace(ctx, 4, workspace.WorkspaceInput{Name: "renamed"})
	require.NoError(t, err)
	assert.Equal(t, workspace.Workspace{ID: 4, Name: "renamed"}, ws, "empty update body falls back to the input")
	assert.JSONEq(t, `{"name":"renamed"}`, rc.last().body)

	require.NoError(t, c.DeleteWorkspace(ctx, 4))
	assert.Equal(t, http.MethodDelete, rc.last().method)
}

func TestIntegrationEndpoints(t *testing.T) {
	c, rc := newRecorder(t, map[string]any{
		"GET /api/workspace/2/integrations/list/": map[string]any{"results": []any{
			map[string]any{"id": 1, "name": "gl", "provider": "gitlab", "has_access_token": true},
		}},
		"POST /api/workspace/2/integrations/create/":     map[string]any{"id": 5, "name": "gh", "provider": "github"},
		"PATCH /api/workspace/2/integrations/5/update/":  map[string]any{"detail": "updated"},
		"DELETE /api/workspace/2/integrations/5/delete/": nil,
	})
	ctx := context.Background()

	list, err := c.ListIntegrations(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(2), list[0].WorkspaceID)
	assert.True(t, list[0].HasAccessToken)

	created, err := c.CreateIntegration(ctx, 2, workspace.IntegrationInput{Name: "gh", Provider: workspace.ProviderGitHub, AccessToken: "secret"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), created.ID)
	assert.Equal(t, int64(2), created.WorkspaceID)
	assert.JSONEq(t, `{"name":"gh","provider":"github","access_token":"secret"}`, rc.last().body)

	updated, err := c.UpdateIntegration(ctx, 2, 5, workspace.IntegrationInput{BaseURL: "https://gl.example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), updated.ID)
	assert.JSONEq(t, `{"base_url":"https://gl.example.com"}`, rc.last().body, "blank tokens are omitted")

	require.NoError(t, c.DeleteIntegration(ctx, 2, 5))
}

func TestRepositoryEndpoints(t *testing.T) {
	c, rc := newRecorder(t, map[string]any{
		"GET /api/workspace/2/integrations/5/repositories/available/": []any{
			map[string]any{"external_id": "101", "name": "api", "full_path": "acme/api", "default_branch": "main"},
		},
		"GET /api/workspace/2/repositories/list/": []any{
			map[string]any{"id": 11, "integration": map[string]any{"id": 5}, "external_id": 101, "full_path": "acme/api"},
		},
		"POST /api/workspace/2/repositories/connect/":     map[string]any{"detail": "connected"},
		"DELETE /api/workspace/2/repositories/11/delete/": nil,
	})
	ctx := context.Background()

	avail, err := c.ListAvailableRepositories(ctx, 2, 5)
	require.NoError(t, err)
	require.Len(t, avail, 1)

	repos, err := c.ListRepositories(ctx, 2)
	require.NoError(t, err)
	require.Len(t, repos, 1)
	assert.Equal(t, int64(5), repos[0].IntegrationID)
	assert.Equal(t, "101", repos[0].ExternalID)
	assert.Equal(t, "api", repos[0].Name)

	connected, err := c.ConnectRepositories(ctx, 2, workspace.ConnectInput{IntegrationID: 5, Repositories: avail})
	require.NoError(t, err)
	assert.Empty(t, connected)
	assert.JSONEq(t, `{"integration_id":5,"repositories":[{"external_id":"101","name":"api","full_path":"acme/api","default_branch":"main"}]}`, rc.last().body)

	require.NoError(t, c.DeleteRepository(ctx, 2, 11))
}

func TestMergeRequestEndpoints(t *testing.T) {
	c, rc := newRecorder(t, map[string]any{
		"GET /api/workspace/2/repositories/11/merge-requests/": []any{
			map[string]any{"id": 30, "iid": 4, "title": "Fix login", "state": "opened"},
		},
		"POST /api/workspace/2/repositories/11/merge-requests/sync/": map[string]any{"detail": "queued"},
	})
	ctx := context.Background()

	mrs, err := c.ListMergeRequests(ctx, 2, 11, workspace.MergeRequestQuery{State: workspace.MergeRequestOpen, Search: " login "})
	require.NoError(t, err)
	require.Len(t, mrs, 1)
	assert.Equal(t, int64(11), mrs[0].RepositoryID)
	assert.Equal(t, workspace.MergeRequestOpen, mrs[0].State)
	assert.Equal(t, "search=login&state=open", rc.last().query)

	_, err = c.ListMergeRequests(ctx, 2, 11, workspace.MergeRequestQuery{})
	require.NoError(t, err)
	assert.Empty(t, rc.last().query)

	require.NoError(t, c.SyncMergeRequests(ctx, 2, 11))
	assert.Equal(t, http.MethodPost, rc.last().method)
}

func TestReviewEndpoints(t *testing.T) {
	base := "/api/workspace/2/merge-requests/30/reviews/"
	c, rc := newRecorder(t, map[string]any{
		"POST " + base + "run/": map[string]any{"id": 50, "status": "queued"},
		"GET " + base + "list/": []any{
			map[string]any{"id": 50, "status": "running", "created_at": "2024-03-01T10:00:00Z"},
		},
		"GET " + base + "50/detail/":   map[string]any{"id": 50, "status": "succeeded", "summary": "Looks good"},
		"GET " + base + "50/comments/": map[string]any{"comments": []any{map[string]any{"id": 1, "severity": "info", "message": "nit"}}},
		"POST " + base + "50/rerun/":   map[string]any{"id": 51, "status": "queued"},
		"POST " + base + "50/cancel/":  nil,
		"POST " + base + "50/publish/": map[string]any{"posted_count": 3},
	})
	ctx := context.Background()

	run, err := c.StartRun(ctx, 2, 30, review.RunInput{LLMIntegrationID: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(50), run.ID)
	assert.Equal(t, int64(30), run.MergeRequestID, "filled from the path when absent")
	assert.JSONEq(t, `{"llm_integration_id":3}`, rc.last().body)

	runs, err := c.ListRuns(ctx, 2, 30)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, review.StatusRunning, runs[0].Status)

	detail, err := c.GetRun(ctx, 2, 30, 50)
	require.NoError(t, err)
	assert.Equal(t, "Looks good", detail.Summary)

	comments, err := c.ListComments(ctx, 2, 30, 50)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, int64(50), comments[0].RunID)

	rerun, err := c.RerunRun(ctx, 2, 30, 50, review.RunInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(51), rerun.ID)
	assert.Equal(t, int64(30), rerun.MergeRequestID)
	assert.JSONEq(t, `{}`, rc.last().body)

	require.NoError(t, c.CancelRun(ctx, 2, 30, 50))

	res, err := c.PublishRun(ctx, 2, 30, 50)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Posted)

	_, err = c.GetRun(ctx, 2, 30, 99)
	assert.True(t, IsNotFound(err))
}

func TestStartRun_MissingIDIsServerError(t *testing.T) {
	c, _ := newRecorder(t, map[string]any{
		"POST /api/workspace/1/merge-requests/1/reviews/run/": map[string]any{"detail": "accepted"},
	})
	_, err := c.StartRun(context.Background(), 1, 1, review.RunInput{LLMIntegrationID: 1})
	assert.Equal(t, KindServer, KindOf(err))
}

func TestLLMEndpoints(t *testing.T) {
	c, rc := newRecorder(t, map[string]any{
		"GET /api/llm/integrations/list/": []any{
			map[string]any{"id": 3, "name": "gpt", "provider": "openai", "model_name": "gpt-4o", "has_api_key": true},
		},
		"POST /api/llm/integrations/create/":     map[string]any{"id": 4, "name": "local", "provider": "ollama", "model": "llama3"},
		"PATCH /api/llm/integrations/4/update/":  nil,
		"DELETE /api/llm/integrations/4/delete/": nil,
	})
	ctx := context.Background()
	svc := c.LLM()

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "gpt-4o", list[0].Model)
	assert.True(t, list[0].APIKeyPresent)

	created, err := svc.Create(ctx, llm.Input{Name: "local", Provider: llm.ProviderOllama, Model: "llama3", APIKey: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), created.ID)
	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(rc.last().body), &sent))
	assert.NotContains(t, sent, "api_key", "ollama never sends a key")

	updated, err := svc.Update(ctx, 4, llm.Input{Model: "llama3.1"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), updated.ID)

	require.NoError(t, svc.Delete(ctx, 4))
}

func TestLogin(t *testing.T) {
	creds := &memCreds{}
	rc := &recorder{t: t, responses: map[string]any{
		"POST /api/users/login/": map[string]any{"data": map[string]any{"access_token": "a", "refresh_token": "r"}},
	}}
	c := newTestClient(t, rc, WithCredentials(creds))

	tokens, err := c.Login(context.Background(), auth.LoginInput{Username: "ana", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "a", tokens.Access)
	assert.Equal(t, "ana", tokens.Username)
	assert.Equal(t, tokens, creds.tokens)
	assert.JSONEq(t, `{"username":"ana","password":"pw"}`, rc.last().body)
}

func TestLogin_NoTokenInResponse(t *testing.T) {
	c, _ := newRecorder(t, map[string]any{
		"POST /api/users/login/": map[string]any{"detail": "ok"},
	})
	_, err := c.Login(context.Background(), auth.LoginInput{Username: "ana", Password: "pw"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errNoAccessToken)
}

func TestLogin_BadCredentials(t *testing.T) {
	c, _ := newRecorder(t, map[string]any{})
	_, err := c.Login(context.Background(), auth.LoginInput{Username: "ana", Password: "pw"})
	assert.True(t, IsNotFound(err))
}

func TestRegister_WithoutTokens(t *testing.T) {
	c, _ := newRecorder(t, map[string]any{
		"POST /api/users/register/": map[string]any{"id": 1, "username": "ana"},
	})
	tokens, err := c.Register(context.Background(), auth.RegisterInput{Username: "ana", Password: "pw"})
	require.NoError(t, err)
	assert.True(t, tokens.IsZero())
}
