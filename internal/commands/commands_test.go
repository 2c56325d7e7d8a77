package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/sage/internal/core/auth"
	"github.com/colonyops/sage/internal/core/config"
	"github.com/colonyops/sage/internal/core/workspace"
	"github.com/colonyops/sage/internal/data/db"
	"github.com/colonyops/sage/internal/devserver"
	"github.com/colonyops/sage/internal/printer"
	"github.com/colonyops/sage/internal/sage"
	"github.com/colonyops/sage/pkg/tuitest"
)

type testEnv struct {
	t     *testing.T
	app   *sage.App
	flags *Flags
}

func newTestEnv(t *testing.T) *testEnv {
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
	app := sage.NewApp(&cfg, database, sage.Options{BaseURL: hs.URL + "/api", Logger: &nop})
	_, err = app.Login(context.Background(), auth.LoginInput{Username: "demo", Password: "demo"})
	require.NoError(t, err)

	return &testEnv{t: t, app: app, flags: &Flags{Config: &cfg}}
}

// run executes one command line and returns its combined, unstyled output.
func (e *testEnv) run(args ...string) (string, error) {
	e.t.Helper()
	var out bytes.Buffer
	root := &cli.Command{
		Name:                  "sage",
		Writer:                &out,
		ErrWriter:             &out,
		ExitErrHandler:        func(context.Context, *cli.Command, error) {},
		EnableShellCompletion: true,
	}
	root = NewAuthCmd(e.flags, e.app).Register(root)
	root = NewWorkspaceCmd(e.flags, e.app).Register(root)
	root = NewIntegrationCmd(e.flags, e.app).Register(root)
	root = NewRepoCmd(e.flags, e.app).Register(root)
	root = NewMRCmd(e.flags, e.app).Register(root)
	root = NewReviewCmd(e.flags, e.app).Register(root)
	root = NewLLMCmd(e.flags, e.app).Register(root)
	root = NewConfigValidateCmd(e.flags).Register(root)

	ctx := printer.NewContext(context.Background(), printer.New(&out, &out, true))
	err := root.Run(ctx, append([]string{"sage"}, args...))
	return tuitest.StripANSI(out.String()), err
}

func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, out)
	return out
}

func TestWorkspaceCommands(t *testing.T) {
	e := newTestEnv(t)

	out := e.mustRun("workspace", "ls")
	assert.Contains(t, out, "Acme")

	out = e.mustRun("workspace", "create", "platform", "team")
	assert.Contains(t, out, "Created workspace platform team")

	_, err := e.run("workspace", "create")
	require.Error(t, err, "blank names are rejected before any request")

	out = e.mustRun("ws", "rename", "-w", "platform team", "platform")
	assert.Contains(t, out, "Renamed platform team to platform")

	_, err = e.run("workspace", "rm", "platform")
	require.ErrorContains(t, err, "--yes")

	e.mustRun("workspace", "rm", "platform", "--yes")
	out = e.mustRun("workspace", "ls", "--json")
	var ws workspace.Workspace
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &ws))
	assert.Equal(t, "Acme", ws.Name)
}

func TestWorkspaceCompletion(t *testing.T) {
	e := newTestEnv(t)
	e.mustRun("workspace", "create", "platform")

	out := e.mustRun("workspace", "rm", "--generate-shell-completion")
	assert.ElementsMatch(t, []string{"Acme", "platform"}, strings.Fields(out))

	out = e.mustRun("workspace", "rm", "platform", "--generate-shell-completion")
	assert.Empty(t, strings.TrimSpace(out), "only the first argument is a workspace")
}

func TestIntegrationCommands(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.run("integration", "create", "--name", "gitlab")
	require.Error(t, err)

	out := e.mustRun("integration", "create", "--name", "gitlab", "--provider", "gitlab", "--access-token", "glpat")
	assert.Contains(t, out, "Created integration gitlab")

	out = e.mustRun("integration", "ls")
	assert.Contains(t, out, "GitHub")
	assert.Contains(t, out, "gitlab")

	_, err = e.run("integration", "update", "-i", "gitlab")
	require.Error(t, err, "an update without changes is rejected")

	out = e.mustRun("integration", "update", "-i", "gitlab", "--name", "gitlab-ce")
	assert.Contains(t, out, "Updated integration gitlab-ce")

	e.mustRun("integration", "rm", "-i", "gitlab-ce", "-y")
	out = e.mustRun("integration", "ls")
	assert.NotContains(t, out, "gitlab")
}

func TestRepoCommands(t *testing.T) {
	e := newTestEnv(t)

	out := e.mustRun("repo", "available")
	assert.Contains(t, out, "acme/web")

	_, err := e.run("repo", "connect")
	require.ErrorContains(t, err, "--external-id")

	_, err = e.run("repo", "connect", "-e", "acme/missing")
	require.Error(t, err)

	out = e.mustRun("repo", "connect", "-e", "acme/web")
	assert.Contains(t, out, "Connected acme/web")

	out = e.mustRun("repo", "ls")
	assert.Contains(t, out, "acme/api")
	assert.Contains(t, out, "acme/web")

	e.mustRun("repo", "rm", "--repo", "acme/web", "--yes")
	out = e.mustRun("repo", "ls")
	assert.NotContains(t, out, "acme/web")
}

func TestMRCommands(t *testing.T) {
	e := newTestEnv(t)

	out := e.mustRun("mr", "ls", "--state", "open")
	assert.Contains(t, out, "Fix token refresh on 401")
	assert.NotContains(t, out, "Bump dependencies")

	_, err := e.run("mr", "ls", "--state", "draft")
	require.ErrorContains(t, err, "unknown state")

	out = e.mustRun("mr", "sync", "--repo", "acme/api")
	assert.Contains(t, out, "Synced acme/api: 4 merge requests")
}

func TestReviewCommands(t *testing.T) {
	e := newTestEnv(t)
	mr := []string{"--repo", "acme/api", "--mr", "!1"}

	_, err := e.run("review", "ls", "--repo", "acme/api", "--mr", "!99")
	require.ErrorContains(t, err, "not found")

	out := e.mustRun(append([]string{"review", "ls"}, mr...)...)
	assert.Contains(t, out, "No review runs yet")

	out = e.mustRun(append([]string{"review", "run", "--llm", "local", "--watch", "--interval", "10ms"}, mr...)...)
	assert.Contains(t, out, "Started run #")
	assert.Contains(t, out, "succeeded")
	assert.Contains(t, out, "finished with 3 comments")
	assert.NotZero(t, e.app.Prefs.LastLLM(context.Background()), "the LLM choice is remembered")

	out = e.mustRun(append([]string{"review", "ls"}, mr...)...)
	assert.Contains(t, out, "succeeded")

	out = e.mustRun(append([]string{"review", "comments"}, mr...)...)
	assert.Contains(t, out, "3 comments on run #")

	_, err = e.run(append([]string{"review", "comments", "--severity", "fatal"}, mr...)...)
	require.ErrorContains(t, err, "unknown severity")

	out = e.mustRun(append([]string{"review", "publish"}, mr...)...)
	assert.Contains(t, out, "Published 3 comments")

	out = e.mustRun(append([]string{"review", "comments", "--posted", "no"}, mr...)...)
	assert.Contains(t, out, "0 of 3 comments")

	out = e.mustRun(append([]string{"review", "cancel"}, mr...)...)
	assert.Contains(t, out, "already succeeded")

	out = e.mustRun(append([]string{"review", "show", "--json"}, mr...)...)
	assert.Contains(t, out, `"status":"succeeded"`)
}

func TestLLMCommands(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.run("llm", "create", "--name", "gpt", "--provider", "openai", "--model", "gpt-4o")
	require.Error(t, err, "openai needs an API key")

	out := e.mustRun("llm", "create", "--name", "gpt", "--provider", "openai", "--model", "gpt-4o", "--api-key", "sk-test")
	assert.Contains(t, out, "Created LLM integration gpt")

	out = e.mustRun("llm", "ls")
	assert.Contains(t, out, "local")
	assert.Contains(t, out, "gpt-4o")

	out = e.mustRun("llm", "update", "--llm", "gpt", "--model", "gpt-4.1")
	assert.Contains(t, out, "Updated LLM integration gpt")

	_, err = e.run("llm", "update", "--llm", "local", "--api-key", "sk-leak")
	require.Error(t, err, "a key alone is no change for ollama")

	e.mustRun("llm", "update", "--llm", "local", "--model", "llama3.2", "--api-key", "sk-leak")
	out = e.mustRun("llm", "ls", "--json")
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if strings.Contains(line, `"local"`) {
			assert.Contains(t, line, `"api_key_present":false`)
			assert.Contains(t, line, "llama3.2")
		}
	}

	_, err = e.run("llm", "rm", "-y")
	require.ErrorContains(t, err, "--llm")

	e.mustRun("llm", "rm", "--llm", "gpt", "-y")
	out = e.mustRun("llm", "ls")
	assert.NotContains(t, out, "gpt")
}

func TestAuthCommands(t *testing.T) {
	e := newTestEnv(t)

	out := e.mustRun("whoami")
	assert.Contains(t, out, "demo")

	e.mustRun("logout")
	_, err := e.app.Whoami(context.Background())
	require.ErrorIs(t, err, auth.ErrNotLoggedIn)

	_, err = e.run("login", "-u", "demo", "-p", "nope")
	require.Error(t, err)

	out = e.mustRun("login", "-u", "demo", "-p", "demo")
	assert.Contains(t, out, "demo")
}

func TestConfigValidate_JSON(t *testing.T) {
	e := newTestEnv(t)
	out := e.mustRun("config", "validate", "--format", "json")

	var res struct {
		Valid bool `json:"valid"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Valid)
}

func TestParseUsers(t *testing.T) {
	users, err := parseUsers([]string{"alice:secret", "bob:p:w"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"alice": "secret", "bob": "p:w"}, users)

	_, err = parseUsers([]string{"alice"})
	require.Error(t, err)
}

func TestPick(t *testing.T) {
	items := []workspace.Workspace{{ID: 1, Name: "Acme"}, {ID: 2, Name: "Platform"}}
	id := func(w workspace.Workspace) int64 { return w.ID }
	name := func(w workspace.Workspace) string { return w.Name }

	got, err := pick("workspace", "workspace", "2", items, id, name)
	require.NoError(t, err)
	assert.Equal(t, "Platform", got.Name)

	got, err = pick("workspace", "workspace", "acme", items, id, name)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)

	_, err = pick("workspace", "workspace", "", items, id, name)
	require.ErrorContains(t, err, "pass --workspace")

	got, err = pick("workspace", "workspace", "", items[:1], id, name)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)

	_, err = pick("workspace", "workspace", "", nil, id, name)
	require.ErrorContains(t, err, "no workspace found")
}

func TestErrorData(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.run("llm", "create", "--provider", "openai")
	require.Error(t, err)

	data := ErrorData(err)
	assert.Contains(t, data, "name")
	assert.Contains(t, data, "api_key")

	assert.Nil(t, ErrorData(errors.New("plain")))
}

func TestDefaultPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/cfg")
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("HOME", "/home/ops")

	assert.Equal(t, "/tmp/cfg/sage/config.yaml", DefaultConfigPath())
	assert.Equal(t, "/home/ops/.local/share/sage", DefaultDataDir())
}
