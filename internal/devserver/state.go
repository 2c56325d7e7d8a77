package devserver

import (
	"cmp"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/colonyops/sage/internal/core/llm"
	"github.com/colonyops/sage/internal/core/review"
	"github.com/colonyops/sage/internal/core/workspace"
)

type session struct {
	username string
	// expires is zero for static tokens.
	expires time.Time
}

type ownedWorkspace struct {
	workspace.Workspace
	owner string
}

type integrationRecord struct {
	workspace.Integration
	accessToken string
}

type repositoryRecord struct {
	workspace.Repository
	workspaceID int64
}

type runRecord struct {
	review.Run
	workspaceID int64
}

type llmRecord struct {
	llm.Integration
	apiKey string
}

type state struct {
	nextID int64

	users   map[string]string
	access  map[string]session
	refresh map[string]string

	workspaces   map[int64]*ownedWorkspace
	integrations map[int64]*integrationRecord
	repositories map[int64]*repositoryRecord
	mergeRequest map[int64]*workspace.MergeRequest
	runs         map[int64]*runRecord
	comments     map[int64][]review.Comment
	llms         map[int64]*llmRecord
}

func newState() *state {
	return &state{
		users:        map[string]string{},
		access:       map[string]session{},
		refresh:      map[string]string{},
		workspaces:   map[int64]*ownedWorkspace{},
		integrations: map[int64]*integrationRecord{},
		repositories: map[int64]*repositoryRecord{},
		mergeRequest: map[int64]*workspace.MergeRequest{},
		runs:         map[int64]*runRecord{},
		comments:     map[int64][]review.Comment{},
		llms:         map[int64]*llmRecord{},
	}
}

func (st *state) id() int64 {
	st.nextID++
	return st.nextID
}

// sorted returns map values ordered by key.
func sorted[V any](m map[int64]V, keep func(V) bool) []V {
	keys := slices.Sorted(maps.Keys(m))
	out := make([]V, 0, len(keys))
	for _, k := range keys {
		if keep == nil || keep(m[k]) {
			out = append(out, m[k])
		}
	}
	return out
}

func (st *state) workspaceFor(user string, w *ownedWorkspace) workspace.Workspace {
	out := w.Workspace
	out.Role = workspace.RoleMember
	if w.owner == user {
		out.Role = workspace.RoleOwner
	}
	return out
}

func (st *state) createWorkspace(owner, name string, now time.Time) *ownedWorkspace {
	w := &ownedWorkspace{
		Workspace: workspace.Workspace{ID: st.id(), Name: name, CreatedAt: now},
		owner:     owner,
	}
	st.workspaces[w.ID] = w
	return w
}

func (st *state) deleteWorkspace(id int64) {
	delete(st.workspaces, id)
	for iid, it := range st.integrations {
		if it.WorkspaceID == id {
			st.deleteIntegration(iid)
		}
	}
}

func (st *state) deleteIntegration(id int64) {
	delete(st.integrations, id)
	for rid, r := range st.repositories {
		if r.IntegrationID == id {
			st.deleteRepository(rid)
		}
	}
}

func (st *state) deleteRepository(id int64) {
	delete(st.repositories, id)
	for mid, mr := range st.mergeRequest {
		if mr.RepositoryID != id {
			continue
		}
		delete(st.mergeRequest, mid)
		for rid, r := range st.runs {
			if r.MergeRequestID == mid {
				delete(st.runs, rid)
				delete(st.comments, rid)
			}
		}
	}
}

func slug(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

// available lists the provider repositories an integration can see: three
// per workspace, named after the workspace.
func (st *state) available(it *integrationRecord) []workspace.AvailableRepository {
	owner := "org"
	if w, ok := st.workspaces[it.WorkspaceID]; ok {
		owner = slug(w.Name)
	}
	out := make([]workspace.AvailableRepository, 0, 3)
	for i, name := range []string{"api", "web", "worker"} {
		out = append(out, workspace.AvailableRepository{
			ExternalID:    fmt.Sprintf("%d%02d", it.ID, i+1),
			Name:          name,
			FullPath:      owner + "/" + name,
			DefaultBranch: "main",
		})
	}
	return out
}

func (st *state) connect(wid int64, it *integrationRecord, repos []workspace.AvailableRepository) []workspace.Repository {
	out := make([]workspace.Repository, 0, len(repos))
	for _, a := range repos {
		if existing := st.findConnected(it.ID, a); existing != nil {
			out = append(out, existing.Repository)
			continue
		}
		r := &repositoryRecord{
			Repository: workspace.Repository{
				ID:            st.id(),
				IntegrationID: it.ID,
				ExternalID:    a.ExternalID,
				Name:          a.Name,
				FullPath:      a.FullPath,
				DefaultBranch: a.DefaultBranch,
				Provider:      it.Provider,
			},
			workspaceID: wid,
		}
		st.repositories[r.ID] = r
		out = append(out, r.Repository)
	}
	return out
}

func (st *state) findConnected(integrationID int64, a workspace.AvailableRepository) *repositoryRecord {
	for _, r := range st.repositories {
		if r.IntegrationID != integrationID {
			continue
		}
		if (a.ExternalID != "" && r.ExternalID == a.ExternalID) || (a.ExternalID == "" && r.FullPath == a.FullPath) {
			return r
		}
	}
	return nil
}

var mergeRequestFixtures = []struct {
	title  string
	state  workspace.MergeRequestState
	author string
	branch string
}{
	{"Fix token refresh on 401", workspace.MergeRequestOpen, "alice", "fix/token-refresh"},
	{"Add merge request sync endpoint", workspace.MergeRequestOpen, "bob", "feat/mr-sync"},
	{"Bump dependencies", workspace.MergeRequestMerged, "renovate", "deps/bump"},
	{"Experimental cache layer", workspace.MergeRequestClosed, "carol", "spike/cache"},
}

// sync fetches merge requests from the "provider": it adds the fixtures the
// repository does not have yet.
func (st *state) sync(r *repositoryRecord, now time.Time) int {
	have := map[string]bool{}
	var next int64
	for _, mr := range st.mergeRequest {
		if mr.RepositoryID == r.ID {
			have[mr.Title] = true
			next = max(next, mr.IID)
		}
	}
	added := 0
	for i, f := range mergeRequestFixtures {
		if have[f.title] {
			continue
		}
		next++
		mr := &workspace.MergeRequest{
			ID:           st.id(),
			RepositoryID: r.ID,
			IID:          next,
			Title:        f.title,
			State:        f.state,
			AuthorName:   f.author,
			SourceBranch: f.branch,
			TargetBranch: r.Branch(),
			CreatedAt:    now.Add(-time.Duration(len(mergeRequestFixtures)-i) * time.Hour),
			WebURL:       fmt.Sprintf("https://github.com/%s/pull/%d", r.FullPath, next),
		}
		st.mergeRequest[mr.ID] = mr
		added++
	}
	return added
}

func (st *state) mergeRequests(repoID int64, q workspace.MergeRequestQuery) []workspace.MergeRequest {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	var out []workspace.MergeRequest
	for _, mr := range st.mergeRequest {
		if mr.RepositoryID != repoID {
			continue
		}
		if q.State != "" && mr.State != q.State {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(mr.Title), search) {
			continue
		}
		out = append(out, *mr)
	}
	slices.SortFunc(out, func(a, b workspace.MergeRequest) int { return cmp.Compare(b.IID, a.IID) })
	return out
}

// mergeRequestIn returns the merge request when it belongs to the workspace.
func (st *state) mergeRequestIn(wid, mid int64) (*workspace.MergeRequest, bool) {
	mr, ok := st.mergeRequest[mid]
	if !ok {
		return nil, false
	}
	repo, ok := st.repositories[mr.RepositoryID]
	if !ok || repo.workspaceID != wid {
		return nil, false
	}
	return mr, true
}

func (st *state) startRun(wid, mid, llmID int64, now time.Time) *runRecord {
	r := &runRecord{
		Run: review.Run{
			ID:               st.id(),
			MergeRequestID:   mid,
			LLMIntegrationID: llmID,
			Status:           review.StatusQueued,
			CreatedAt:        now,
		},
		workspaceID: wid,
	}
	st.runs[r.ID] = r
	return r
}

// advance moves a run one step through queued, running and succeeded. Each
// detail read advances an active run once.
func (st *state) advance(r *runRecord, now time.Time) {
	switch r.Status {
	case review.StatusQueued:
		r.Status = review.StatusRunning
		started := now
		r.StartedAt = &started
	case review.StatusRunning:
		r.Status = review.StatusSucceeded
		finished := now
		r.FinishedAt = &finished
		st.complete(r)
	}
}

var commentFixtures = []struct {
	severity review.Severity
	typ      string
	file     string
	line     int
	message  string
}{
	{review.SeverityError, "bug", "internal/auth/refresh.go", 42, "The refreshed token is never persisted, so the next request retries with the stale one."},
	{review.SeverityWarning, "performance", "internal/api/client.go", 118, "Response bodies are read fully before checking the status code."},
	{review.SeverityInfo, "style", "README.md", 7, "Document the SAGE_API_URL environment variable."},
}

func (st *state) complete(r *runRecord) {
	comments := make([]review.Comment, 0, len(commentFixtures))
	counts := map[review.Severity]int{}
	for _, f := range commentFixtures {
		line := f.line
		comments = append(comments, review.Comment{
			ID:       st.id(),
			RunID:    r.ID,
			Severity: f.severity,
			Type:     f.typ,
			FilePath: f.file,
			Line:     &line,
			Message:  f.message,
		})
		counts[f.severity]++
	}
	st.comments[r.ID] = comments
	r.Summary = fmt.Sprintf("Found %d issues", len(comments))
	out, _ := json.Marshal(map[string]any{
		"issues":   len(comments),
		"severity": counts,
	})
	r.StructuredOutput = out
	r.RawOutput = "## Review\n\n" + r.Summary + ".\n"
}

func (st *state) runsOf(mid int64) []review.Run {
	var out []review.Run
	for _, r := range sorted(st.runs, func(r *runRecord) bool { return r.MergeRequestID == mid }) {
		out = append(out, r.Run)
	}
	return out
}

func (st *state) createLLM(in llm.Input) *llmRecord {
	rec := &llmRecord{
		Integration: llm.Integration{
			ID:            st.id(),
			Name:          in.Name,
			Provider:      in.Provider,
			Model:         in.Model,
			BaseURL:       in.BaseURL,
			APIKeyPresent: in.APIKey != "",
		},
		apiKey: in.APIKey,
	}
	st.llms[rec.ID] = rec
	return rec
}

// seedDemo creates the data `sage dev-server --demo` starts with.
func (st *state) seedDemo(now time.Time) {
	st.users["demo"] = "demo"

	w := st.createWorkspace("demo", "Acme", now)
	it := &integrationRecord{
		Integration: workspace.Integration{
			ID:             st.id(),
			WorkspaceID:    w.ID,
			Name:           "GitHub",
			Provider:       workspace.ProviderGitHub,
			HasAccessToken: true,
		},
		accessToken: "ghp_demo",
	}
	st.integrations[it.ID] = it

	repos := st.connect(w.ID, it, st.available(it)[:1])
	st.sync(st.repositories[repos[0].ID], now)

	st.createLLM(llm.Input{Name: "local", Provider: llm.ProviderOllama, Model: "llama3.1"})
}
