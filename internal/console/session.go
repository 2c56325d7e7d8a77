package console

import (
	"context"
	"slices"
	"time"

	"github.com/colonyops/sage/internal/core/llm"
	"github.com/colonyops/sage/internal/core/logging"
	"github.com/colonyops/sage/internal/core/review"
	"github.com/colonyops/sage/internal/core/validate"
	"github.com/colonyops/sage/internal/core/workspace"
	"github.com/rs/zerolog"
)

// Intents are the messages a shell sends to change the session.
type (
	// SelectNode focuses a node of the tree.
	SelectNode struct{ Node Node }
	// ExpandIntegration shows an integration's repositories.
	ExpandIntegration struct{ ID int64 }
	// CollapseIntegration hides an integration's repositories.
	CollapseIntegration struct{ ID int64 }
	// Reload reloads one store in its current scope.
	Reload struct{ Kind StoreKind }

	CreateWorkspace struct{ Input workspace.WorkspaceInput }
	UpdateWorkspace struct {
		ID    int64
		Input workspace.WorkspaceInput
	}
	DeleteWorkspace struct{ ID int64 }

	CreateIntegration struct{ Input workspace.IntegrationInput }
	UpdateIntegration struct {
		ID    int64
		Input workspace.IntegrationInput
	}
	DeleteIntegration struct{ ID int64 }

	// LoadAvailable lists the repositories an integration can connect.
	LoadAvailable       struct{ IntegrationID int64 }
	ConnectRepositories struct{ Input workspace.ConnectInput }
	DeleteRepository    struct{ ID int64 }

	SetMergeRequestFilter struct{ Filter MRFilter }
	SyncMergeRequests     struct{}

	CreateLLM struct{ Input llm.Input }
	UpdateLLM struct {
		ID    int64
		Input llm.Input
	}
	DeleteLLM struct{ ID int64 }
	// ChooseLLM sets the LLM integration used by StartReview.
	ChooseLLM struct{ ID int64 }

	// StartReview runs a review with LLMID, or the chosen LLM when zero.
	StartReview struct{ LLMID int64 }
	// RerunReview reruns the attached run. A zero LLMID keeps its LLM.
	RerunReview   struct{ LLMID int64 }
	CancelReview  struct{}
	PublishReview struct{}
	RefreshReview struct{}
	// AttachRun switches to a run from the history.
	AttachRun   struct{ ID int64 }
	CloseReview struct{}

	SetCommentFilter struct{ Filter CommentFilter }
)

// Options configures a Session.
type Options struct {
	Clock        Clock
	PollInterval time.Duration
	MaxPolls     int
	// DefaultLLM preselects an LLM integration for new reviews.
	DefaultLLM int64
	Logger     *zerolog.Logger
}

// Session is the console state: selection, stores, orchestrator and filters.
// It is not safe for concurrent use; drive it from one goroutine.
type Session struct {
	ctx context.Context
	gw  Gateway
	log zerolog.Logger

	sel    Selection
	stores Stores
	orch   *Orchestrator

	mrFilter      MRFilter
	commentFilter CommentFilter
	llmID         int64
}

// NewSession returns an empty session. Call Init for the first loads.
func NewSession(ctx context.Context, gw Gateway, opts Options) *Session {
	log := logging.Component("console")
	if opts.Logger != nil {
		log = *opts.Logger
	}
	return &Session{
		ctx: ctx,
		gw:  gw,
		log: log,
		orch: NewOrchestrator(ctx, gw.Reviews, OrchestratorOptions{
			Clock:    opts.Clock,
			Interval: opts.PollInterval,
			MaxPolls: opts.MaxPolls,
			Logger:   opts.Logger,
		}),
		llmID: opts.DefaultLLM,
	}
}

// Init loads workspaces and LLM integrations.
func (s *Session) Init() []Cmd {
	return []Cmd{s.loadWorkspaces(), s.loadLLMs()}
}

func (s *Session) Selection() Selection { return s.sel }

func (s *Session) Stores() *Stores { return &s.stores }

func (s *Session) Orchestrator() *Orchestrator { return s.orch }

func (s *Session) MRFilter() MRFilter { return s.mrFilter }

func (s *Session) CommentFilter() CommentFilter { return s.commentFilter }

// LLMID returns the LLM integration chosen for new reviews, or 0.
func (s *Session) LLMID() int64 { return s.llmID }

// ActiveWorkspace returns the selected workspace when it is loaded.
func (s *Session) ActiveWorkspace() (workspace.Workspace, bool) {
	if s.sel.WorkspaceID() == 0 {
		return workspace.Workspace{}, false
	}
	return workspace.FindWorkspace(s.stores.Workspaces.Items(), s.sel.WorkspaceID())
}

// MergeRequests returns the merge requests passing the merge request filter.
func (s *Session) MergeRequests() []workspace.MergeRequest {
	return FilterMergeRequests(s.stores.MergeRequests.Items(), s.mrFilter)
}

// Comments returns the attached run's comments passing the comment filter.
func (s *Session) Comments() []review.Comment {
	return Project(s.orch.Comments().Items(), s.commentFilter)
}

// RunSummary summarizes the open merge request's runs.
func (s *Session) RunSummary() RunSummary {
	return SummarizeRuns(s.orch.Runs().Items())
}

// Close stops polling. Call it when the shell exits.
func (s *Session) Close() {
	s.orch.Close()
}

func (s *Session) logCtx() context.Context {
	ctx := s.ctx
	if id := s.sel.WorkspaceID(); id != 0 {
		ctx = logging.WithWorkspaceID(ctx, id)
	}
	return ctx
}

// Update applies one message.
func (s *Session) Update(msg Msg) []Cmd {
	if cmds, ok := s.orch.Update(msg); ok {
		s.afterOrchestrator(msg)
		return cmds
	}

	switch msg := msg.(type) {
	case SelectNode:
		return s.selectNode(msg.Node)
	case ExpandIntegration:
		return s.expand(msg.ID)
	case CollapseIntegration:
		s.sel = s.sel.CollapseIntegration(msg.ID)
		return nil
	case Reload:
		return s.reload(msg.Kind)

	case CreateWorkspace:
		return s.createWorkspace(msg.Input)
	case UpdateWorkspace:
		return s.updateWorkspace(msg.ID, msg.Input)
	case DeleteWorkspace:
		return s.deleteWorkspace(msg.ID)

	case CreateIntegration:
		return s.createIntegration(msg.Input)
	case UpdateIntegration:
		return s.updateIntegration(msg.ID, msg.Input)
	case DeleteIntegration:
		return s.deleteIntegration(msg.ID)

	case LoadAvailable:
		return s.withCmd(s.loadAvailable(msg.IntegrationID))
	case ConnectRepositories:
		return s.connect(msg.Input)
	case DeleteRepository:
		return s.deleteRepository(msg.ID)

	case SetMergeRequestFilter:
		return s.setMRFilter(msg.Filter)
	case SyncMergeRequests:
		return s.syncMergeRequests()

	case CreateLLM:
		return s.createLLM(msg.Input)
	case UpdateLLM:
		return s.updateLLM(msg.ID, msg.Input)
	case DeleteLLM:
		return s.deleteLLM(msg.ID)
	case ChooseLLM:
		s.llmID = msg.ID
		return nil

	case StartReview:
		id := msg.LLMID
		if id == 0 {
			id = s.llmID
		}
		return s.orch.Run(id)
	case RerunReview:
		return s.orch.Rerun(msg.LLMID)
	case CancelReview:
		return s.orch.Cancel()
	case PublishReview:
		return s.orch.Publish()
	case RefreshReview:
		return s.orch.Refresh()
	case AttachRun:
		return s.orch.Attach(msg.ID)
	case CloseReview:
		s.orch.Close()
		s.sel, _ = s.sel.Retarget(NodeMergeRequest, s.sel.MergeRequestID())
		return nil

	case SetCommentFilter:
		s.commentFilter = msg.Filter
		return nil

	case Loaded[workspace.Workspace]:
		return s.resolveWorkspaces(msg)
	case Loaded[workspace.Integration]:
		s.resolve(msg.Kind, s.stores.Integrations.Resolve(msg.Ticket, msg.Items, msg.Err), msg.Err)
		return nil
	case Loaded[workspace.Repository]:
		s.resolve(msg.Kind, s.stores.Repositories.Resolve(msg.Ticket, msg.Items, msg.Err), msg.Err)
		return nil
	case Loaded[workspace.AvailableRepository]:
		s.resolve(msg.Kind, s.stores.Available.Resolve(msg.Ticket, msg.Items, msg.Err), msg.Err)
		return nil
	case Loaded[workspace.MergeRequest]:
		s.resolve(msg.Kind, s.stores.MergeRequests.Resolve(msg.Ticket, msg.Items, msg.Err), msg.Err)
		return nil
	case Loaded[llm.Integration]:
		s.resolve(msg.Kind, s.stores.LLMs.Resolve(msg.Ticket, msg.Items, msg.Err), msg.Err)
		s.dropMissingLLM()
		return nil

	case MutationDone:
		return s.mutationDone(msg)
	}
	return nil
}

func (s *Session) withCmd(cmd Cmd) []Cmd {
	if cmd == nil {
		return nil
	}
	return []Cmd{cmd}
}

func (s *Session) resolve(kind StoreKind, applied bool, err error) {
	if !applied {
		s.log.Debug().Ctx(s.logCtx()).Stringer("store", kind).Msg("dropping stale response")
		return
	}
	if err != nil {
		s.log.Warn().Ctx(s.logCtx()).Err(err).Stringer("store", kind).Msg("load failed")
	}
}

// afterOrchestrator keeps the comment filter consistent with the loaded
// comments: a file that is no longer present stops filtering.
func (s *Session) afterOrchestrator(msg Msg) {
	if _, ok := msg.(commentsLoaded); !ok {
		return
	}
	if f := s.commentFilter.FilePath; f != "" {
		if !slices.Contains(FileOptions(s.orch.Comments().Items()), f) {
			s.commentFilter.FilePath = ""
		}
	}
}

func (s *Session) resolveWorkspaces(msg Loaded[workspace.Workspace]) []Cmd {
	applied := s.stores.Workspaces.Resolve(msg.Ticket, msg.Items, msg.Err)
	s.resolve(msg.Kind, applied, msg.Err)
	if !applied || msg.Err != nil {
		return nil
	}
	// The active workspace may have been deleted elsewhere.
	if id := s.sel.WorkspaceID(); id != 0 {
		if _, ok := workspace.FindWorkspace(msg.Items, id); !ok {
			return s.retarget(NodeWorkspace, id)
		}
	}
	return nil
}

func (s *Session) dropMissingLLM() {
	if s.llmID == 0 || !s.stores.LLMs.Loaded() || s.stores.LLMs.Err() != nil {
		return
	}
	if _, ok := llm.Find(s.stores.LLMs.Items(), s.llmID); !ok {
		s.llmID = 0
	}
}

func (s *Session) selectNode(n Node) []Cmd {
	next, ch := s.sel.Select(n)
	s.sel = next
	if ch.IsZero() {
		return nil
	}
	return s.apply(ch)
}

func (s *Session) apply(ch Change) []Cmd {
	var cmds []Cmd
	if ch.CloseReview {
		s.orch.Close()
	}
	if ch.LoadIntegrations || ch.LoadRepositories {
		s.stores.Available.Clear()
		s.stores.MergeRequests.Clear()
	}
	if ch.LoadIntegrations {
		cmds = append(cmds, s.loadIntegrations())
	}
	if ch.LoadRepositories {
		cmds = append(cmds, s.loadRepositories())
	}
	if ch.LoadMergeRequests {
		cmds = append(cmds, s.loadMergeRequests())
	}
	if ch.OpenMergeRequest {
		cmds = append(cmds, s.orch.Open(s.sel.WorkspaceID(), s.sel.MergeRequestID())...)
	}
	return cmds
}

func (s *Session) expand(id int64) []Cmd {
	next, first := s.sel.ExpandIntegration(id)
	s.sel = next
	if !first || s.sel.WorkspaceID() == 0 {
		return nil
	}
	repos := &s.stores.Repositories
	stale := repos.Scope().ID != s.sel.WorkspaceID() || repos.Err() != nil || (!repos.Loaded() && !repos.Loading())
	if !stale {
		return nil
	}
	return []Cmd{s.loadRepositories()}
}

func (s *Session) retarget(t NodeType, id int64) []Cmd {
	next, ch := s.sel.Retarget(t, id)
	s.sel = next
	if ch.CloseReview {
		s.orch.Close()
	}
	switch {
	case s.sel.WorkspaceID() == 0:
		s.stores.Integrations.Clear()
		s.stores.Repositories.Clear()
		s.stores.Available.Clear()
		s.stores.MergeRequests.Clear()
	case s.sel.RepositoryID() == 0:
		s.stores.MergeRequests.Clear()
	}
	return nil
}

func (s *Session) reload(kind StoreKind) []Cmd {
	switch kind {
	case KindWorkspaces:
		return s.withCmd(s.loadWorkspaces())
	case KindIntegrations:
		return s.withCmd(s.loadIntegrations())
	case KindRepositories:
		return s.withCmd(s.loadRepositories())
	case KindAvailable:
		return s.withCmd(s.loadAvailable(s.stores.Available.Scope().ID))
	case KindMergeRequests:
		return s.withCmd(s.loadMergeRequests())
	case KindLLMs:
		return s.withCmd(s.loadLLMs())
	}
	return nil
}

// Loads. Each captures its ticket and scope at dispatch time.

func (s *Session) loadWorkspaces() Cmd {
	t := s.stores.Workspaces.Begin(Scope{})
	svc, ctx := s.gw.Workspaces, s.logCtx()
	return func() Msg {
		items, err := svc.ListWorkspaces(ctx)
		return Loaded[workspace.Workspace]{Kind: KindWorkspaces, Ticket: t, Items: items, Err: err}
	}
}

func (s *Session) loadIntegrations() Cmd {
	wid := s.sel.WorkspaceID()
	if wid == 0 {
		return nil
	}
	t := s.stores.Integrations.Begin(Scope{ID: wid})
	svc, ctx := s.gw.Workspaces, s.logCtx()
	return func() Msg {
		items, err := svc.ListIntegrations(ctx, wid)
		return Loaded[workspace.Integration]{Kind: KindIntegrations, Ticket: t, Items: items, Err: err}
	}
}

func (s *Session) loadRepositories() Cmd {
	wid := s.sel.WorkspaceID()
	if wid == 0 {
		return nil
	}
	t := s.stores.Repositories.Begin(Scope{ID: wid})
	svc, ctx := s.gw.Workspaces, s.logCtx()
	return func() Msg {
		items, err := svc.ListRepositories(ctx, wid)
		return Loaded[workspace.Repository]{Kind: KindRepositories, Ticket: t, Items: items, Err: err}
	}
}

func (s *Session) loadAvailable(integrationID int64) Cmd {
	wid := s.sel.WorkspaceID()
	if wid == 0 || integrationID == 0 {
		return nil
	}
	t := s.stores.Available.Begin(Scope{ID: integrationID})
	svc, ctx := s.gw.Workspaces, s.logCtx()
	return func() Msg {
		items, err := svc.ListAvailableRepositories(ctx, wid, integrationID)
		return Loaded[workspace.AvailableRepository]{Kind: KindAvailable, Ticket: t, Items: items, Err: err}
	}
}

func (s *Session) loadMergeRequests() Cmd {
	wid, rid := s.sel.WorkspaceID(), s.sel.RepositoryID()
	if wid == 0 || rid == 0 {
		return nil
	}
	q := workspace.MergeRequestQuery{State: s.mrFilter.State}
	t := s.stores.MergeRequests.Begin(Scope{ID: rid, Key: string(q.State)})
	svc, ctx := s.gw.Workspaces, s.logCtx()
	return func() Msg {
		items, err := svc.ListMergeRequests(ctx, wid, rid, q)
		return Loaded[workspace.MergeRequest]{Kind: KindMergeRequests, Ticket: t, Items: items, Err: err}
	}
}

func (s *Session) loadLLMs() Cmd {
	t := s.stores.LLMs.Begin(Scope{})
	svc, ctx := s.gw.LLMs, s.logCtx()
	return func() Msg {
		items, err := svc.List(ctx)
		return Loaded[llm.Integration]{Kind: KindLLMs, Ticket: t, Items: items, Err: err}
	}
}

func (s *Session) setMRFilter(f MRFilter) []Cmd {
	stateChanged := f.State != s.mrFilter.State
	s.mrFilter = f
	if !stateChanged {
		return nil
	}
	return s.withCmd(s.loadMergeRequests())
}

// Mutations. Input is validated first; a validation failure is reported as
// a MutationDone without any request.

func rejected(kind StoreKind, op Op, id int64, err error) []Cmd {
	return []Cmd{func() Msg { return MutationDone{Kind: kind, Op: op, ID: id, Err: err} }}
}

func (s *Session) mutate(kind StoreKind, op Op, id, scope int64, fn func(ctx context.Context) (int64, error)) []Cmd {
	ctx := s.logCtx()
	return []Cmd{func() Msg {
		newID, err := fn(ctx)
		if newID == 0 {
			newID = id
		}
		return MutationDone{Kind: kind, Op: op, ID: newID, Scope: scope, Err: err}
	}}
}

func (s *Session) createWorkspace(in workspace.WorkspaceInput) []Cmd {
	if err := validate.Workspace(in); err != nil {
		return rejected(KindWorkspaces, OpCreate, 0, err)
	}
	svc := s.gw.Workspaces
	return s.mutate(KindWorkspaces, OpCreate, 0, 0, func(ctx context.Context) (int64, error) {
		ws, err := svc.CreateWorkspace(ctx, in)
		return ws.ID, err
	})
}

func (s *Session) updateWorkspace(id int64, in workspace.WorkspaceInput) []Cmd {
	if err := validate.Workspace(in); err != nil {
		return rejected(KindWorkspaces, OpUpdate, id, err)
	}
	svc := s.gw.Workspaces
	return s.mutate(KindWorkspaces, OpUpdate, id, id, func(ctx context.Context) (int64, error) {
		_, err := svc.UpdateWorkspace(ctx, id, in)
		return id, err
	})
}

func (s *Session) deleteWorkspace(id int64) []Cmd {
	svc := s.gw.Workspaces
	return s.mutate(KindWorkspaces, OpDelete, id, id, func(ctx context.Context) (int64, error) {
		return id, svc.DeleteWorkspace(ctx, id)
	})
}

func (s *Session) createIntegration(in workspace.IntegrationInput) []Cmd {
	wid := s.sel.WorkspaceID()
	if wid == 0 {
		return rejected(KindIntegrations, OpCreate, 0, ErrNoWorkspace)
	}
	if err := validate.IntegrationCreate(in); err != nil {
		return rejected(KindIntegrations, OpCreate, 0, err)
	}
	svc := s.gw.Workspaces
	return s.mutate(KindIntegrations, OpCreate, 0, wid, func(ctx context.Context) (int64, error) {
		it, err := svc.CreateIntegration(ctx, wid, in)
		return it.ID, err
	})
}

func (s *Session) updateIntegration(id int64, in workspace.IntegrationInput) []Cmd {
	wid := s.sel.WorkspaceID()
	if wid == 0 {
		return rejected(KindIntegrations, OpUpdate, id, ErrNoWorkspace)
	}
	if err := validate.IntegrationUpdate(in); err != nil {
		return rejected(KindIntegrations, OpUpdate, id, err)
	}
	svc := s.gw.Workspaces
	return s.mutate(KindIntegrations, OpUpdate, id, wid, func(ctx context.Context) (int64, error) {
		_, err := svc.UpdateIntegration(ctx, wid, id, in)
		return id, err
	})
}

func (s *Session) deleteIntegration(id int64) []Cmd {
	wid := s.sel.WorkspaceID()
	if wid == 0 {
		return rejected(KindIntegrations, OpDelete, id, ErrNoWorkspace)
	}
	svc := s.gw.Workspaces
	return s.mutate(KindIntegrations, OpDelete, id, wid, func(ctx context.Context) (int64, error) {
		return id, svc.DeleteIntegration(ctx, wid, id)
	})
}

func (s *Session) connect(in workspace.ConnectInput) []Cmd {
	wid := s.sel.WorkspaceID()
	if wid == 0 {
		return rejected(KindRepositories, OpConnect, 0, ErrNoWorkspace)
	}
	if err := validate.Connect(in); err != nil {
		return rejected(KindRepositories, OpConnect, 0, err)
	}
	svc := s.gw.Workspaces
	return s.mutate(KindRepositories, OpConnect, in.IntegrationID, wid, func(ctx context.Context) (int64, error) {
		_, err := svc.ConnectRepositories(ctx, wid, in)
		return in.IntegrationID, err
	})
}

func (s *Session) deleteRepository(id int64) []Cmd {
	wid := s.sel.WorkspaceID()
	if wid == 0 {
		return rejected(KindRepositories, OpDelete, id, ErrNoWorkspace)
	}
	svc := s.gw.Workspaces
	return s.mutate(KindRepositories, OpDelete, id, wid, func(ctx context.Context) (int64, error) {
		return id, svc.DeleteRepository(ctx, wid, id)
	})
}

func (s *Session) syncMergeRequests() []Cmd {
	wid, rid := s.sel.WorkspaceID(), s.sel.RepositoryID()
	if wid == 0 || rid == 0 {
		return rejected(KindMergeRequests, OpSync, 0, ErrNoRepository)
	}
	svc := s.gw.Workspaces
	return s.mutate(KindMergeRequests, OpSync, rid, rid, func(ctx context.Context) (int64, error) {
		return rid, svc.SyncMergeRequests(ctx, wid, rid)
	})
}

func (s *Session) createLLM(in llm.Input) []Cmd {
	in = in.Sanitize()
	if err := validate.LLMCreate(in); err != nil {
		return rejected(KindLLMs, OpCreate, 0, err)
	}
	svc := s.gw.LLMs
	return s.mutate(KindLLMs, OpCreate, 0, 0, func(ctx context.Context) (int64, error) {
		it, err := svc.Create(ctx, in)
		return it.ID, err
	})
}

func (s *Session) updateLLM(id int64, in llm.Input) []Cmd {
	if it, ok := llm.Find(s.stores.LLMs.Items(), id); ok {
		in = in.SanitizeFor(it.Provider)
	} else {
		in = in.Sanitize()
	}
	if err := validate.LLMUpdate(in); err != nil {
		return rejected(KindLLMs, OpUpdate, id, err)
	}
	svc := s.gw.LLMs
	return s.mutate(KindLLMs, OpUpdate, id, 0, func(ctx context.Context) (int64, error) {
		_, err := svc.Update(ctx, id, in)
		return id, err
	})
}

func (s *Session) deleteLLM(id int64) []Cmd {
	svc := s.gw.LLMs
	return s.mutate(KindLLMs, OpDelete, id, 0, func(ctx context.Context) (int64, error) {
		return id, svc.Delete(ctx, id)
	})
}

// mutationDone records failures inline and otherwise reloads the affected
// stores in full.
func (s *Session) mutationDone(msg MutationDone) []Cmd {
	if msg.Err != nil {
		s.log.Warn().Ctx(s.logCtx()).Err(msg.Err).
			Stringer("store", msg.Kind).
			Stringer("op", msg.Op).
			Msg("mutation failed")
		switch msg.Kind {
		case KindWorkspaces:
			s.stores.Workspaces.MutationFailed(msg.Err)
		case KindIntegrations:
			s.stores.Integrations.MutationFailed(msg.Err)
		case KindRepositories:
			s.stores.Repositories.MutationFailed(msg.Err)
		case KindMergeRequests:
			s.stores.MergeRequests.MutationFailed(msg.Err)
		case KindLLMs:
			s.stores.LLMs.MutationFailed(msg.Err)
		}
		return nil
	}

	var cmds []Cmd
	add := func(c Cmd) {
		if c != nil {
			cmds = append(cmds, c)
		}
	}

	switch msg.Kind {
	case KindWorkspaces:
		if msg.Op == OpDelete {
			cmds = append(cmds, s.retarget(NodeWorkspace, msg.ID)...)
		}
		add(s.loadWorkspaces())

	case KindIntegrations:
		if msg.Scope != s.sel.WorkspaceID() {
			return nil
		}
		if msg.Op == OpDelete {
			cmds = append(cmds, s.retarget(NodeIntegration, msg.ID)...)
			if s.stores.Available.Scope().ID == msg.ID {
				s.stores.Available.Clear()
			}
			add(s.loadRepositories())
		}
		add(s.loadIntegrations())

	case KindRepositories:
		if msg.Scope != s.sel.WorkspaceID() {
			return nil
		}
		if msg.Op == OpDelete {
			cmds = append(cmds, s.retarget(NodeRepository, msg.ID)...)
		}
		if msg.Op == OpConnect {
			s.sel, _ = s.sel.ExpandIntegration(msg.ID)
		}
		add(s.loadRepositories())

	case KindMergeRequests:
		if msg.Scope == s.sel.RepositoryID() {
			add(s.loadMergeRequests())
		}

	case KindLLMs:
		if msg.Op == OpDelete && msg.ID == s.llmID {
			s.llmID = 0
		}
		if msg.Op == OpCreate && s.llmID == 0 {
			s.llmID = msg.ID
		}
		add(s.loadLLMs())
	}
	return cmds
}
