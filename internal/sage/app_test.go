package sage

import (
	"context"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/sage/internal/core/auth"
	"github.com/colonyops/sage/internal/core/config"
	"github.com/colonyops/sage/internal/core/kv"
	"github.com/colonyops/sage/internal/data/db"
	"github.com/colonyops/sage/internal/devserver"
)

func newTestApp(t *testing.T, opts Options) *App {
	t.Helper()

	srv := devserver.New(devserver.Options{Demo: true, Logger: zerolog.Nop()})
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)

	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()

	database, err := db.Open(cfg.DataDir, db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	nop := zerolog.Nop()
	opts.BaseURL = hs.URL + "/api"
	opts.Logger = &nop
	return NewApp(&cfg, database, opts)
}

func TestApp_LoginPersistsCredentials(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t, Options{})

	_, err := app.Whoami(ctx)
	require.ErrorIs(t, err, auth.ErrNotLoggedIn)

	tokens, err := app.Login(ctx, auth.LoginInput{Username: "demo", Password: "demo"})
	require.NoError(t, err)
	assert.Equal(t, "demo", tokens.Username)

	stored, err := app.Whoami(ctx)
	require.NoError(t, err)
	assert.Equal(t, tokens.Access, stored.Access)

	workspaces, err := app.Client.ListWorkspaces(ctx)
	require.NoError(t, err)
	require.Len(t, workspaces, 1)
	assert.Equal(t, "Acme", workspaces[0].Name)

	require.NoError(t, app.Logout(ctx))
	_, err = app.Whoami(ctx)
	assert.ErrorIs(t, err, auth.ErrNotLoggedIn)
}

func TestApp_LoginRejected(t *testing.T) {
	app := newTestApp(t, Options{})
	_, err := app.Login(context.Background(), auth.LoginInput{Username: "demo", Password: "wrong"})
	assert.Error(t, err)
}

func TestApp_TokenOverridesStore(t *testing.T) {
	app := newTestApp(t, Options{Token: "fixed"})
	tokens, err := app.Whoami(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fixed", tokens.Access)
}

func TestApp_NewSessionUsesRememberedLLM(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t, Options{})
	app.Config.Review.DefaultLLM = 3

	assert.Equal(t, int64(3), app.NewSession(ctx).LLMID())

	require.NoError(t, app.Prefs.Remember(ctx, 1, 9))
	s := app.NewSession(ctx)
	t.Cleanup(s.Close)
	assert.Equal(t, int64(9), s.LLMID())
}

func TestPrefs_Remember(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t, Options{})
	p := app.Prefs

	assert.Zero(t, p.LastWorkspace(ctx))
	assert.Zero(t, p.LastLLM(ctx))

	require.NoError(t, p.Remember(ctx, 4, 2))
	assert.Equal(t, int64(4), p.LastWorkspace(ctx))
	assert.Equal(t, int64(2), p.LastLLM(ctx))

	require.NoError(t, p.Remember(ctx, 5, 0))
	assert.Equal(t, int64(5), p.LastWorkspace(ctx))
	assert.Zero(t, p.LastLLM(ctx))

	require.NoError(t, p.Clear(ctx))
	assert.Zero(t, p.LastWorkspace(ctx))
}

func TestPrefs_ClearKeepsCredentials(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t, Options{})

	legacy := kv.Scoped[int64](app.KV, prefsNamespace)
	require.NoError(t, legacy.Set(ctx, "last_pane", 3))
	require.NoError(t, app.Prefs.Remember(ctx, 4, 2))
	require.NoError(t, app.Credentials.Save(ctx, auth.Tokens{Access: "acc", Refresh: "ref"}))

	require.NoError(t, app.Prefs.Clear(ctx))

	keys, err := legacy.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	tokens, err := app.Credentials.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "acc", tokens.Access)
}

type countingSweeper struct{ n atomic.Int32 }

func (c *countingSweeper) SweepExpired(context.Context) error {
	c.n.Add(1)
	return nil
}

func TestStartSweep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &countingSweeper{}

	done := make(chan struct{})
	go func() {
		StartSweep(ctx, s, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return s.n.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweep did not stop")
	}
}
