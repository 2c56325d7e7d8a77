package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/colonyops/sage/internal/core/auth"
	"github.com/colonyops/sage/internal/core/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api/", opts...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_SendsBearerAndNoCache(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/workspace/list/", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "max-age=0", r.Header.Get("Cache-Control"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		writeJSON(w, http.StatusOK, []any{})
	}), WithCredentials(auth.NewStatic("tok")))

	items, err := c.ListWorkspaces(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)
}

func TestClient_NoCredentialsSendsNoHeader(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, []any{})
	}))

	_, err := c.ListWorkspaces(context.Background())
	require.NoError(t, err)
}

func TestClient_BaseURLTrimsSlash(t *testing.T) {
	c := New("http://localhost:8000/api///")
	assert.Equal(t, "http://localhost:8000/api", c.BaseURL())
}

func TestClient_RefreshesOnceOn401(t *testing.T) {
	var refreshes, lists atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/users/refresh/":
			refreshes.Add(1)
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"refresh":"r1"}`, string(body))
			assert.Empty(t, r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, map[string]any{"access": "new"})
		case "/api/workspace/list/":
			lists.Add(1)
			if r.Header.Get("Authorization") != "Bearer new" {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "token expired"})
				return
			}
			writeJSON(w, http.StatusOK, []map[string]any{{"id": 1, "name": "acme"}})
		}
	}), WithCredentials(&memCreds{tokens: auth.Tokens{Access: "old", Refresh: "r1"}}))

	items, err := c.ListWorkspaces(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, int32(2), lists.Load())

	saved, err := c.creds.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new", saved.Access)
	assert.Equal(t, "r1", saved.Refresh, "refresh token kept when the server omits it")
}

func TestClient_RefreshFailureSurfacesAuthorization(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/users/refresh/":
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "refresh expired"})
		default:
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "token expired"})
		}
	}), WithCredentials(&memCreds{tokens: auth.Tokens{Access: "old", Refresh: "r1"}}))

	_, err := c.ListWorkspaces(context.Background())
	require.Error(t, err)
	assert.True(t, IsAuthorization(err))
	assert.Contains(t, err.Error(), "token expired")
}

func TestClient_NoRefreshWithoutRefreshToken(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "nope"})
	}), WithCredentials(auth.NewStatic("tok")))

	_, err := c.ListWorkspaces(context.Background())
	assert.True(t, IsAuthorization(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := New(srv.URL)
	_, err := c.ListWorkspaces(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.Equal(t, KindTransport, KindOf(err))
}

func TestClient_MalformedBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"oops": true}`))
	}))

	_, err := c.ListWorkspaces(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindServer, KindOf(err))
}

func TestClient_CacheRevalidates(t *testing.T) {
	var hits, notModified atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		writeJSON(w, http.StatusOK, []map[string]any{{"id": 7, "name": "cached"}})
	}))

	for range 2 {
		items, err := c.ListWorkspaces(context.Background())
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "cached", items[0].Name)
	}
	assert.Equal(t, int32(2), hits.Load(), "every GET reaches the server")
	assert.Equal(t, int32(1), notModified.Load())
}

func TestClient_CreateSendsJSON(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"name":"acme"}`, string(body))
		writeJSON(w, http.StatusCreated, map[string]any{"data": map[string]any{"id": "3", "name": "acme", "role": "OWNER"}})
	}))

	ws, err := c.CreateWorkspace(context.Background(), workspace.WorkspaceInput{Name: "acme"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), ws.ID)
	assert.Equal(t, workspace.RoleOwner, ws.Role)
}

// memCreds is a mutable in-memory credential store.
type memCreds struct {
	tokens auth.Tokens
}

func (m *memCreds) Load(context.Context) (auth.Tokens, error) {
	if m.tokens.IsZero() {
		return auth.Tokens{}, auth.ErrNotLoggedIn
	}
	return m.tokens, nil
}

func (m *memCreds) Save(_ context.Context, t auth.Tokens) error {
	m.tokens = t
	return nil
}

func (m *memCreds) Clear(context.Context) error {
	m.tokens = auth.Tokens{}
	return nil
}
