package console

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/colonyops/sage/internal/core/llm"
	"github.com/colonyops/sage/internal/core/review"
	"github.com/colonyops/sage/internal/core/workspace"
	"github.com/colonyops/sage/internal/data/api"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func notFound(path string) error {
	return &api.Error{Kind: api.KindNotFound, Method: http.MethodGet, Path: path, Status: http.StatusNotFound}
}

// fakeBackend is an in-memory review service. Tests mutate it directly
// between steps to script what the server reports.
type fakeBackend struct {
	mu sync.Mutex

	nextID       int64
	workspaces   []workspace.Workspace
	integrations map[int64][]workspace.Integration
	repositories map[int64][]workspace.Repository
	available    map[int64][]workspace.AvailableRepository
	mrs          map[int64][]workspace.MergeRequest
	runs         map[int64][]review.Run
	comments     map[int64][]review.Comment
	llms         []llm.Integration

	// errs fails the named method once with the given error.
	errs map[string]error
	// onCancel decides the run's status when CancelRun is called.
	onCancel func(run *review.Run) error

	calls       map[string]int
	lastMRQuery workspace.MergeRequestQuery
	lastRunLLM  int64
	lastLLM     llm.Input
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		nextID:       100,
		integrations: map[int64][]workspace.Integration{},
		repositories: map[int64][]workspace.Repository{},
		available:    map[int64][]workspace.AvailableRepository{},
		mrs:          map[int64][]workspace.MergeRequest{},
		runs:         map[int64][]review.Run{},
		comments:     map[int64][]review.Comment{},
		errs:         map[string]error{},
		calls:        map[string]int{},
	}
}

func (f *fakeBackend) gateway() Gateway {
	return Gateway{Workspaces: f, Reviews: f, LLMs: fakeLLMs{f}}
}

func (f *fakeBackend) enter(method string) error {
	f.calls[method]++
	if err, ok := f.errs[method]; ok {
		delete(f.errs, method)
		return err
	}
	return nil
}

func (f *fakeBackend) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeBackend) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeBackend) failNext(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[method] = err
}

// addMR seeds a workspace with one integration, repository and merge
// request and returns their ids.
func (f *fakeBackend) addMR() (wid, iid, rid, mid int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wid, iid, rid, mid = f.id(), f.id(), f.id(), f.id()
	f.workspaces = append(f.workspaces, workspace.Workspace{ID: wid, Name: "acme", Role: workspace.RoleOwner})
	f.integrations[wid] = append(f.integrations[wid], workspace.Integration{ID: iid, WorkspaceID: wid, Name: "gh", Provider: workspace.ProviderGitHub})
	f.repositories[wid] = append(f.repositories[wid], workspace.Repository{ID: rid, IntegrationID: iid, FullPath: "acme/api", Name: "api"})
	f.mrs[rid] = append(f.mrs[rid], workspace.MergeRequest{ID: mid, RepositoryID: rid, IID: 1, Title: "Fix login", State: workspace.MergeRequestOpen})
	return wid, iid, rid, mid
}

func (f *fakeBackend) setAvailable(integrationID int64, repos ...workspace.AvailableRepository) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.available[integrationID] = repos
}

func (f *fakeBackend) addWorkspace(name string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id()
	f.workspaces = append(f.workspaces, workspace.Workspace{ID: id, Name: name, Role: workspace.RoleOwner})
	f.integrations[id] = []workspace.Integration{{ID: f.id(), WorkspaceID: id, Name: name + "-gh", Provider: workspace.ProviderGitHub}}
	return id
}

func (f *fakeBackend) addRun(mid int64, status review.Status, created time.Time) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id()
	f.runs[mid] = append(f.runs[mid], review.Run{ID: id, MergeRequestID: mid, Status: status, CreatedAt: created})
	return id
}

func (f *fakeBackend) setStatus(runID int64, status review.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for mid, runs := range f.runs {
		for i := range runs {
			if runs[i].ID == runID {
				f.runs[mid][i].Status = status
			}
		}
	}
}

func (f *fakeBackend) deleteRun(runID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for mid, runs := range f.runs {
		for i := range runs {
			if runs[i].ID == runID {
				f.runs[mid] = append(runs[:i], runs[i+1:]...)
				return
			}
		}
	}
}

func (f *fakeBackend) addComments(runID int64, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range n {
		line := i + 1
		f.comments[runID] = append(f.comments[runID], review.Comment{
			ID:       f.id(),
			RunID:    runID,
			Severity: review.SeverityWarning,
			FilePath: "main.go",
			Line:     &line,
			Message:  "comment",
		})
	}
}

func (f *fakeBackend) ListWorkspaces(context.Context) ([]workspace.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListWorkspaces"); err != nil {
		return nil, err
	}
	return append([]workspace.Workspace(nil), f.workspaces...), nil
}

func (f *fakeBackend) CreateWorkspace(_ context.Context, in workspace.WorkspaceInput) (workspace.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateWorkspace"); err != nil {
		return workspace.Workspace{}, err
	}
	ws := workspace.Workspace{ID: f.id(), Name: in.Name, Role: workspace.RoleOwner}
	f.workspaces = append(f.workspaces, ws)
	return ws, nil
}

func (f *fakeBackend) UpdateWorkspace(_ context.Context, id int64, in workspace.WorkspaceInput) (workspace.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateWorkspace"); err != nil {
		return workspace.Workspace{}, err
	}
	for i := range f.workspaces {
		if f.workspaces[i].ID == id {
			f.workspaces[i].Name = in.Name
			return f.workspaces[i], nil
		}
	}
	return workspace.Workspace{}, notFound("/workspace/update/")
}

func (f *fakeBackend) DeleteWorkspace(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteWorkspace"); err != nil {
		return err
	}
	for i := range f.workspaces {
		if f.workspaces[i].ID == id {
			f.workspaces = append(f.workspaces[:i], f.workspaces[i+1:]...)
			return nil
		}
	}
	return notFound("/workspace/delete/")
}

func (f *fakeBackend) ListIntegrations(_ context.Context, wid int64) ([]workspace.Integration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListIntegrations"); err != nil {
		return nil, err
	}
	return append([]workspace.Integration(nil), f.integrations[wid]...), nil
}

func (f *fakeBackend) CreateIntegration(_ context.Context, wid int64, in workspace.IntegrationInput) (workspace.Integration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateIntegration"); err != nil {
		return workspace.Integration{}, err
	}
	it := workspace.Integration{ID: f.id(), WorkspaceID: wid, Name: in.Name, Provider: in.Provider, HasAccessToken: in.AccessToken != ""}
	f.integrations[wid] = append(f.integrations[wid], it)
	return it, nil
}

func (f *fakeBackend) UpdateIntegration(_ context.Context, wid, iid int64, in workspace.IntegrationInput) (workspace.Integration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateIntegration"); err != nil {
		return workspace.Integration{}, err
	}
	for i, it := range f.integrations[wid] {
		if it.ID == iid {
			if in.Name != "" {
				f.integrations[wid][i].Name = in.Name
			}
			return f.integrations[wid][i], nil
		}
	}
	return workspace.Integration{}, notFound("/integrations/update/")
}

func (f *fakeBackend) DeleteIntegration(_ context.Context, wid, iid int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteIntegration"); err != nil {
		return err
	}
	items := f.integrations[wid]
	for i, it := range items {
		if it.ID == iid {
			f.integrations[wid] = append(items[:i], items[i+1:]...)
			kept := f.repositories[wid][:0]
			for _, r := range f.repositories[wid] {
				if r.IntegrationID != iid {
					kept = append(kept, r)
				}
			}
			f.repositories[wid] = kept
			return nil
		}
	}
	return notFound("/integrations/delete/")
}

func (f *fakeBackend) ListAvailableRepositories(_ context.Context, _, iid int64) ([]workspace.AvailableRepository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListAvailableRepositories"); err != nil {
		return nil, err
	}
	return append([]workspace.AvailableRepository(nil), f.available[iid]...), nil
}

func (f *fakeBackend) ListRepositories(_ context.Context, wid int64) ([]workspace.Repository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListRepositories"); err != nil {
		return nil, err
	}
	return append([]workspace.Repository(nil), f.repositories[wid]...), nil
}

func (f *fakeBackend) ConnectRepositories(_ context.Context, wid int64, in workspace.ConnectInput) ([]workspace.Repository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ConnectRepositories"); err != nil {
		return nil, err
	}
	var out []workspace.Repository
	for _, a := range in.Repositories {
		r := workspace.Repository{
			ID:            f.id(),
			IntegrationID: in.IntegrationID,
			ExternalID:    a.ExternalID,
			Name:          a.Name,
			FullPath:      a.FullPath,
			DefaultBranch: a.DefaultBranch,
		}
		f.repositories[wid] = append(f.repositories[wid], r)
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeBackend) DeleteRepository(_ context.Context, wid, rid int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteRepository"); err != nil {
		return err
	}
	items := f.repositories[wid]
	for i, r := range items {
		if r.ID == rid {
			f.repositories[wid] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return notFound("/repositories/delete/")
}

func (f *fakeBackend) ListMergeRequests(_ context.Context, _, rid int64, q workspace.MergeRequestQuery) ([]workspace.MergeRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListMergeRequests"); err != nil {
		return nil, err
	}
	f.lastMRQuery = q
	var out []workspace.MergeRequest
	for _, mr := range f.mrs[rid] {
		if q.State == "" || mr.State == q.State {
			out = append(out, mr)
		}
	}
	return out, nil
}

func (f *fakeBackend) SyncMergeRequests(context.Context, int64, int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enter("SyncMergeRequests")
}

func (f *fakeBackend) findRun(mid, rid int64) (*review.Run, bool) {
	for i := range f.runs[mid] {
		if f.runs[mid][i].ID == rid {
			return &f.runs[mid][i], true
		}
	}
	return nil, false
}

func (f *fakeBackend) ListRuns(_ context.Context, _, mid int64) ([]review.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListRuns"); err != nil {
		return nil, err
	}
	return append([]review.Run(nil), f.runs[mid]...), nil
}

func (f *fakeBackend) GetRun(_ context.Context, _, mid, rid int64) (review.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetRun"); err != nil {
		return review.Run{}, err
	}
	run, ok := f.findRun(mid, rid)
	if !ok {
		return review.Run{}, notFound("/reviews/detail/")
	}
	return *run, nil
}

func (f *fakeBackend) ListComments(_ context.Context, _, _, rid int64) ([]review.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListComments"); err != nil {
		return nil, err
	}
	return append([]review.Comment(nil), f.comments[rid]...), nil
}

func (f *fakeBackend) StartRun(_ context.Context, _, mid int64, in review.RunInput) (review.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("StartRun"); err != nil {
		return review.Run{}, err
	}
	f.lastRunLLM = in.LLMIntegrationID
	run := review.Run{ID: f.id(), MergeRequestID: mid, LLMIntegrationID: in.LLMIntegrationID, Status: review.StatusQueued, CreatedAt: t0.Add(time.Duration(f.nextID) * time.Minute)}
	f.runs[mid] = append(f.runs[mid], run)
	return run, nil
}

func (f *fakeBackend) RerunRun(_ context.Context, _, mid, rid int64, in review.RunInput) (review.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("RerunRun"); err != nil {
		return review.Run{}, err
	}
	src, ok := f.findRun(mid, rid)
	if !ok {
		return review.Run{}, notFound("/reviews/rerun/")
	}
	llmID := in.LLMIntegrationID
	if llmID == 0 {
		llmID = src.LLMIntegrationID
	}
	f.lastRunLLM = llmID
	run := review.Run{ID: f.id(), MergeRequestID: mid, LLMIntegrationID: llmID, Status: review.StatusQueued, CreatedAt: t0.Add(time.Duration(f.nextID) * time.Minute)}
	f.runs[mid] = append(f.runs[mid], run)
	return run, nil
}

func (f *fakeBackend) CancelRun(_ context.Context, _, mid, rid int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CancelRun"); err != nil {
		return err
	}
	run, ok := f.findRun(mid, rid)
	if !ok {
		return notFound("/reviews/cancel/")
	}
	if f.onCancel != nil {
		return f.onCancel(run)
	}
	run.Status = review.StatusCanceled
	return nil
}

func (f *fakeBackend) PublishRun(_ context.Context, _, _, rid int64) (review.PublishResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("PublishRun"); err != nil {
		return review.PublishResult{}, err
	}
	n := 0
	for i := range f.comments[rid] {
		if !f.comments[rid][i].PostedToVCS {
			f.comments[rid][i].PostedToVCS = true
			n++
		}
	}
	return review.PublishResult{Posted: n}, nil
}

type fakeLLMs struct{ f *fakeBackend }

func (l fakeLLMs) List(context.Context) ([]llm.Integration, error) {
	l.f.mu.Lock()
	defer l.f.mu.Unlock()
	if err := l.f.enter("ListLLMs"); err != nil {
		return nil, err
	}
	return append([]llm.Integration(nil), l.f.llms...), nil
}

func (l fakeLLMs) Create(_ context.Context, in llm.Input) (llm.Integration, error) {
	l.f.mu.Lock()
	defer l.f.mu.Unlock()
	if err := l.f.enter("CreateLLM"); err != nil {
		return llm.Integration{}, err
	}
	l.f.lastLLM = in
	it := llm.Integration{ID: l.f.id(), Name: in.Name, Provider: in.Provider, Model: in.Model, APIKeyPresent: in.APIKey != ""}
	l.f.llms = append(l.f.llms, it)
	return it, nil
}

func (l fakeLLMs) Update(_ context.Context, id int64, in llm.Input) (llm.Integration, error) {
	l.f.mu.Lock()
	defer l.f.mu.Unlock()
	if err := l.f.enter("UpdateLLM"); err != nil {
		return llm.Integration{}, err
	}
	l.f.lastLLM = in
	for i := range l.f.llms {
		if l.f.llms[i].ID == id {
			if in.Model != "" {
				l.f.llms[i].Model = in.Model
			}
			return l.f.llms[i], nil
		}
	}
	return llm.Integration{}, notFound("/llm/update/")
}

func (l fakeLLMs) Delete(_ context.Context, id int64) error {
	l.f.mu.Lock()
	defer l.f.mu.Unlock()
	if err := l.f.enter("DeleteLLM"); err != nil {
		return err
	}
	for i := range l.f.llms {
		if l.f.llms[i].ID == id {
			l.f.llms = append(l.f.llms[:i], l.f.llms[i+1:]...)
			return nil
		}
	}
	return notFound("/llm/delete/")
}

// harness drives a Session the way Bubble Tea would: commands run on their
// own goroutines and messages are applied one at a time.
type harness struct {
	t        *testing.T
	s        *Session
	fb       *fakeBackend
	clock    *ManualClock
	msgs     chan Msg
	inflight int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, nil)
}

func newHarnessWith(t *testing.T, configure func(*Options)) *harness {
	t.Helper()
	fb := newFakeBackend()
	clock := NewManualClock(t0)
	h := &harness{
		t:     t,
		fb:    fb,
		clock: clock,
		msgs:  make(chan Msg, 256),
	}
	opts := Options{Clock: clock, PollInterval: 15 * time.Second}
	if configure != nil {
		configure(&opts)
	}
	h.s = NewSession(context.Background(), fb.gateway(), opts)
	t.Cleanup(h.s.Close)
	return h
}

func (h *harness) run(cmds []Cmd) {
	for _, cmd := range cmds {
		if cmd == nil {
			continue
		}
		h.inflight++
		go func() { h.msgs <- cmd() }()
	}
}

// settle applies messages until every remaining command is parked on a poll
// timer.
func (h *harness) settle() {
	h.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		select {
		case msg := <-h.msgs:
			h.inflight--
			if msg != nil {
				h.run(h.s.Update(msg))
			}
			continue
		default:
		}
		if h.inflight == h.clock.Waiting() {
			return
		}
		require.True(h.t, time.Now().Before(deadline), "harness did not settle: %d commands in flight", h.inflight)
		time.Sleep(time.Millisecond)
	}
}

// send applies an intent and settles.
func (h *harness) send(msg Msg) {
	h.t.Helper()
	h.run(h.s.Update(msg))
	h.settle()
}

// tick advances past one poll interval and settles.
func (h *harness) tick() {
	h.t.Helper()
	h.clock.Advance(15 * time.Second)
	h.settle()
}

// openMR selects the seeded merge request through the tree.
func (h *harness) openMR(wid, rid, mid int64) {
	h.t.Helper()
	h.send(SelectNode{WorkspaceNode(wid)})
	repo, ok := workspace.FindRepository(h.s.Stores().Repositories.Items(), rid)
	require.True(h.t, ok)
	h.send(SelectNode{RepositoryNode(wid, repo)})
	mr, ok := workspace.FindMergeRequest(h.s.Stores().MergeRequests.Items(), mid)
	require.True(h.t, ok)
	h.send(SelectNode{MergeRequestNode(wid, mr)})
}

func (h *harness) init() {
	h.t.Helper()
	h.run(h.s.Init())
	h.settle()
}
