package devserver_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/colonyops/sage/internal/console"
	"github.com/colonyops/sage/internal/core/auth"
	"github.com/colonyops/sage/internal/core/llm"
	"github.com/colonyops/sage/internal/core/review"
	"github.com/colonyops/sage/internal/core/workspace"
	"github.com/colonyops/sage/internal/data/api"
	"github.com/colonyops/sage/internal/devserver"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// driver runs a console session against a live demo server, resolving
// commands on goroutines the way a shell would.
type driver struct {
	t        *testing.T
	srv      *devserver.Server
	s        *console.Session
	clock    *console.ManualClock
	msgs     chan console.Msg
	inflight int
}

func newDriver(t *testing.T) *driver {
	t.Helper()
	srv := devserver.New(devserver.Options{Demo: true, Logger: zerolog.Nop()})
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)

	client := api.New(hs.URL+"/api", api.WithCredentials(auth.NewStatic("")))
	_, err := client.Login(context.Background(), auth.LoginInput{Username: "demo", Password: "demo"})
	require.NoError(t, err)

	clock := console.NewManualClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	gw := console.Gateway{Workspaces: client, Reviews: client, LLMs: client.LLM()}
	s := console.NewSession(context.Background(), gw, console.Options{Clock: clock, PollInterval: 15 * time.Second})
	t.Cleanup(s.Close)

	d := &driver{t: t, srv: srv, s: s, clock: clock, msgs: make(chan console.Msg, 64)}
	d.run(s.Init())
	d.settle()
	return d
}

func (d *driver) run(cmds []console.Cmd) {
	for _, cmd := range cmds {
		if cmd == nil {
			continue
		}
		d.inflight++
		go func() { d.msgs <- cmd() }()
	}
}

func (d *driver) settle() {
	d.t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		select {
		case msg := <-d.msgs:
			d.inflight--
			if msg != nil {
				d.run(d.s.Update(msg))
			}
			continue
		default:
		}
		if d.inflight == d.clock.Waiting() {
			return
		}
		require.True(d.t, time.Now().Before(deadline), "session did not settle: %d commands in flight", d.inflight)
		time.Sleep(time.Millisecond)
	}
}

func (d *driver) send(msg console.Msg) {
	d.t.Helper()
	d.run(d.s.Update(msg))
	d.settle()
}

func (d *driver) tick() {
	d.t.Helper()
	d.clock.Advance(15 * time.Second)
	d.settle()
}

// openDemoMergeRequest walks the tree to the newest open merge request of
// acme/api and chooses the demo LLM.
func (d *driver) openDemoMergeRequest() workspace.MergeRequest {
	d.t.Helper()
	workspaces := d.s.Stores().Workspaces.Items()
	require.Len(d.t, workspaces, 1)
	wid := workspaces[0].ID
	d.send(console.SelectNode{Node: console.WorkspaceNode(wid)})

	integrations := d.s.Stores().Integrations.Items()
	require.Len(d.t, integrations, 1)
	d.send(console.ExpandIntegration{ID: integrations[0].ID})

	repos := d.s.Stores().Repositories.Items()
	require.Len(d.t, repos, 1)
	d.send(console.SelectNode{Node: console.RepositoryNode(wid, repos[0])})

	d.send(console.SetMergeRequestFilter{Filter: console.MRFilter{State: workspace.MergeRequestOpen}})
	mrs := d.s.MergeRequests()
	require.NotEmpty(d.t, mrs)
	d.send(console.SelectNode{Node: console.MergeRequestNode(wid, mrs[0])})

	llms := d.s.Stores().LLMs.Items()
	require.Len(d.t, llms, 1)
	require.Equal(d.t, llm.ProviderOllama, llms[0].Provider)
	d.send(console.ChooseLLM{ID: llms[0].ID})
	return mrs[0]
}

func TestConsole_ReviewRunsToCompletion(t *testing.T) {
	d := newDriver(t)
	mr := d.openDemoMergeRequest()
	orch := d.s.Orchestrator()
	assert.Equal(t, mr.ID, orch.MergeRequestID())
	assert.Equal(t, console.StateIdle, orch.State())

	d.send(console.StartReview{})
	require.Equal(t, console.StateAttached, orch.State())
	run, _ := orch.Current()
	assert.Equal(t, review.StatusQueued, run.Status)
	assert.True(t, orch.Polling())

	d.tick()
	run, _ = orch.Current()
	assert.Equal(t, review.StatusRunning, run.Status)
	assert.True(t, orch.Polling())

	d.tick()
	run, _ = orch.Current()
	assert.Equal(t, review.StatusSucceeded, run.Status)
	assert.False(t, orch.Polling(), "polling stops on a terminal status")
	assert.Len(t, d.s.Comments(), 3)
	assert.True(t, orch.CanPublish())

	d.send(console.PublishReview{})
	require.NoError(t, orch.ActionErr())
	res, ok := orch.LastPublish()
	require.True(t, ok)
	assert.Equal(t, 3, res.Posted)

	d.send(console.SetCommentFilter{Filter: console.CommentFilter{Posted: console.PostedNot}})
	assert.Empty(t, d.s.Comments())
}

func TestConsole_CancelLosesRaceToCompletion(t *testing.T) {
	d := newDriver(t)
	d.openDemoMergeRequest()
	orch := d.s.Orchestrator()

	d.send(console.StartReview{})
	require.True(t, orch.CanCancel())
	require.True(t, d.srv.Finish(orch.RunID()))

	d.send(console.CancelReview{})
	require.NoError(t, orch.ActionErr(), "a cancel that lost to completion is not an error")
	run, _ := orch.Current()
	assert.Equal(t, review.StatusSucceeded, run.Status)
	assert.False(t, orch.Polling())
	assert.Len(t, d.s.Comments(), 3)
}

func TestConsole_CancelActiveRun(t *testing.T) {
	d := newDriver(t)
	d.openDemoMergeRequest()
	orch := d.s.Orchestrator()

	d.send(console.StartReview{})
	d.send(console.CancelReview{})
	require.NoError(t, orch.ActionErr())
	run, _ := orch.Current()
	assert.Equal(t, review.StatusCanceled, run.Status)
	assert.False(t, orch.Polling())
	assert.Equal(t, 0, d.clock.Pending())
}
