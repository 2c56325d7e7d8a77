package console

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/colonyops/sage/internal/core/config"
	"github.com/colonyops/sage/internal/core/logging"
	"github.com/colonyops/sage/internal/core/review"
	"github.com/colonyops/sage/internal/data/api"
	"github.com/rs/zerolog"
)

// State is the orchestrator's attachment state.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateAttached
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAttached:
		return "attached"
	default:
		return "idle"
	}
}

// Action is a user-issued review operation.
type Action int

const (
	ActionNone Action = iota
	ActionRun
	ActionRerun
	ActionCancel
	ActionPublish
)

func (a Action) String() string {
	switch a {
	case ActionRun:
		return "run"
	case ActionRerun:
		return "rerun"
	case ActionCancel:
		return "cancel"
	case ActionPublish:
		return "publish"
	default:
		return "none"
	}
}

var (
	ErrNoMergeRequest = errors.New("no merge request selected")
	ErrNoLLM          = errors.New("choose an LLM integration first")
	ErrNotAttached    = errors.New("no review run selected")
	ErrNotCancelable  = errors.New("only queued or running reviews can be canceled")
	ErrBusy           = errors.New("another review action is in progress")
	ErrNoWorkspace    = errors.New("no workspace selected")
	ErrNoRepository   = errors.New("no repository selected")
)

// PollTick fires when the poll timer with the given id elapses.
type PollTick struct {
	id uint64
}

// ActionDone reports the outcome of Run, Rerun, Cancel or Publish.
type ActionDone struct {
	gen       uint64
	runID     int64
	Action    Action
	Run       review.Run
	Published review.PublishResult
	Err       error
}

type runsPurpose int

const (
	purposeOpen runsPurpose = iota
	purposePoll
	purposeHistory
)

type runsLoaded struct {
	gen     uint64
	ticket  Ticket
	purpose runsPurpose
	runs    []review.Run
	err     error
}

type runFetched struct {
	gen   uint64
	runID int64
	final bool
	run   review.Run
	err   error

	// cancel is set on the refresh issued by Cancel.
	cancel *cancelCheck
}

// cancelCheck carries a cancel outcome to the refresh that decides whether
// it is reported.
type cancelCheck struct {
	err error
	// always reports err even when the refreshed run is terminal.
	always bool
}

type commentsLoaded struct {
	gen      uint64
	ticket   Ticket
	comments []review.Comment
	err      error
}

// OrchestratorOptions configures an Orchestrator.
type OrchestratorOptions struct {
	Clock Clock
	// Interval between polls of an active run. Defaults to 15s.
	Interval time.Duration
	// MaxPolls stops polling after that many ticks. Zero polls until the
	// run is terminal.
	MaxPolls int
	Logger   *zerolog.Logger
}

// Orchestrator attaches to one review run of a merge request and polls it
// until it reaches a terminal status. It is the only writer of the attached
// run id and the poll timer.
type Orchestrator struct {
	base     context.Context
	svc      review.Service
	clock    Clock
	interval time.Duration
	maxPolls int
	log      zerolog.Logger

	state          State
	workspaceID    int64
	mergeRequestID int64
	runID          int64
	run            review.Run
	runs           Store[review.Run]
	comments       Store[review.Comment]

	// gen changes on every open, close and detach. Responses carrying an
	// older gen are dropped.
	gen uint64

	timer    Timer
	timerID  uint64
	timerSeq uint64
	polls    int

	// finalIssued is set once the last detail fetch after a terminal
	// status was issued.
	finalIssued bool

	busy        Action
	actionErr   error
	pollErr     error
	notice      string
	lastPublish *review.PublishResult
}

// NewOrchestrator returns an idle orchestrator.
func NewOrchestrator(ctx context.Context, svc review.Service, opts OrchestratorOptions) *Orchestrator {
	o := &Orchestrator{
		base:     ctx,
		svc:      svc,
		clock:    opts.Clock,
		interval: opts.Interval,
		maxPolls: opts.MaxPolls,
		log:      logging.Component("orchestrator"),
	}
	if o.clock == nil {
		o.clock = RealClock{}
	}
	if o.interval <= 0 {
		o.interval = config.DefaultPollInterval
	}
	if opts.Logger != nil {
		o.log = *opts.Logger
	}
	return o
}

func (o *Orchestrator) State() State { return o.state }

func (o *Orchestrator) WorkspaceID() int64 { return o.workspaceID }

func (o *Orchestrator) MergeRequestID() int64 { return o.mergeRequestID }

// RunID returns the attached run id, or 0.
func (o *Orchestrator) RunID() int64 { return o.runID }

// Current returns the attached run as last reported by the server.
func (o *Orchestrator) Current() (review.Run, bool) {
	return o.run, o.state == StateAttached
}

// Runs is the run history of the open merge request.
func (o *Orchestrator) Runs() *Store[review.Run] { return &o.runs }

// Comments are the attached run's comments.
func (o *Orchestrator) Comments() *Store[review.Comment] { return &o.comments }

// Busy returns the action in flight.
func (o *Orchestrator) Busy() Action { return o.busy }

// ActionErr returns the last action failure. It is cleared by the next
// action.
func (o *Orchestrator) ActionErr() error { return o.actionErr }

// PollErr returns the failure that stopped polling, if any.
func (o *Orchestrator) PollErr() error { return o.pollErr }

// Notice is a one-line status message such as a vanished run.
func (o *Orchestrator) Notice() string { return o.notice }

// LastPublish returns the result of the last successful publish.
func (o *Orchestrator) LastPublish() (review.PublishResult, bool) {
	if o.lastPublish == nil {
		return review.PublishResult{}, false
	}
	return *o.lastPublish, true
}

// Polling reports whether a poll timer is pending.
func (o *Orchestrator) Polling() bool { return o.timer != nil }

// Polls returns the number of ticks since the run was attached.
func (o *Orchestrator) Polls() int { return o.polls }

func (o *Orchestrator) CanRun() bool {
	return o.mergeRequestID != 0 && o.busy == ActionNone
}

func (o *Orchestrator) CanRerun() bool {
	return o.state == StateAttached && o.busy == ActionNone
}

func (o *Orchestrator) CanCancel() bool {
	return o.state == StateAttached && o.busy == ActionNone && o.run.Status.IsActive()
}

func (o *Orchestrator) CanPublish() bool {
	return o.state == StateAttached && o.busy == ActionNone
}

func (o *Orchestrator) ctx() context.Context {
	ctx := logging.WithWorkspaceID(o.base, o.workspaceID)
	ctx = logging.WithMergeRequestID(ctx, o.mergeRequestID)
	if o.runID != 0 {
		ctx = logging.WithRunID(ctx, o.runID)
	}
	return ctx
}

// Open tears down any current attachment and attaches to the most recent
// run of the merge request, if it has one.
func (o *Orchestrator) Open(workspaceID, mergeRequestID int64) []Cmd {
	o.Close()
	o.workspaceID = workspaceID
	o.mergeRequestID = mergeRequestID
	o.state = StateLoading
	o.log.Debug().Ctx(o.ctx()).Msg("opening merge request")
	return []Cmd{o.fetchRuns(purposeOpen)}
}

// Close detaches, stops polling and forgets the merge request.
func (o *Orchestrator) Close() {
	o.stopTimer()
	o.gen++
	if o.state != StateIdle || o.mergeRequestID != 0 {
		o.log.Debug().Ctx(o.ctx()).Msg("closing review")
	}
	o.state = StateIdle
	o.workspaceID = 0
	o.mergeRequestID = 0
	o.runID = 0
	o.run = review.Run{}
	o.runs.Clear()
	o.comments.Clear()
	o.polls = 0
	o.finalIssued = false
	o.busy = ActionNone
	o.actionErr = nil
	o.pollErr = nil
	o.notice = ""
	o.lastPublish = nil
}

// detach drops the attached run but keeps the merge request open so a new
// run can be started.
func (o *Orchestrator) detach(notice string) {
	o.stopTimer()
	o.gen++
	o.log.Debug().Ctx(o.ctx()).Str("notice", notice).Msg("detaching")
	o.state = StateIdle
	o.runID = 0
	o.run = review.Run{}
	o.comments.Clear()
	o.polls = 0
	o.finalIssued = false
	o.busy = ActionNone
	o.notice = notice
}

// Attach switches to a run from the history of the open merge request.
func (o *Orchestrator) Attach(runID int64) []Cmd {
	if o.mergeRequestID == 0 {
		return nil
	}
	run, ok := review.FindRun(o.runs.Items(), runID)
	if !ok {
		return nil
	}
	o.beginAction()
	return o.attach(run, true)
}

func (o *Orchestrator) attach(run review.Run, fetch bool) []Cmd {
	o.stopTimer()
	if run.ID != o.runID {
		o.comments.Clear()
		o.lastPublish = nil
	}
	o.runID = run.ID
	o.run = run
	o.state = StateAttached
	o.polls = 0
	o.finalIssued = false
	o.pollErr = nil
	o.log.Debug().Ctx(o.ctx()).Str("status", string(run.Status)).Msg("attached")

	if fetch || run.Status.IsTerminal() {
		return o.fetchDetail(run.Status.IsTerminal())
	}
	return o.schedule()
}

func (o *Orchestrator) beginAction() {
	o.actionErr = nil
	o.notice = ""
}

// Run starts a new review of the open merge request with the given LLM
// integration.
func (o *Orchestrator) Run(llmID int64) []Cmd {
	o.beginAction()
	switch {
	case o.mergeRequestID == 0:
		o.actionErr = ErrNoMergeRequest
		return nil
	case llmID == 0:
		o.actionErr = ErrNoLLM
		return nil
	case o.busy != ActionNone:
		o.actionErr = ErrBusy
		return nil
	}

	o.busy = ActionRun
	gen, wid, mid, ctx := o.gen, o.workspaceID, o.mergeRequestID, o.ctx()
	in := review.RunInput{LLMIntegrationID: llmID}
	return []Cmd{func() Msg {
		run, err := o.svc.StartRun(ctx, wid, mid, in)
		return ActionDone{gen: gen, Action: ActionRun, Run: run, Err: err}
	}}
}

// Rerun queues a new run derived from the attached one. A zero llmID keeps
// the original integration.
func (o *Orchestrator) Rerun(llmID int64) []Cmd {
	o.beginAction()
	switch {
	case o.state != StateAttached:
		o.actionErr = ErrNotAttached
		return nil
	case o.busy != ActionNone:
		o.actionErr = ErrBusy
		return nil
	}

	o.busy = ActionRerun
	gen, wid, mid, rid, ctx := o.gen, o.workspaceID, o.mergeRequestID, o.runID, o.ctx()
	in := review.RunInput{LLMIntegrationID: llmID}
	return []Cmd{func() Msg {
		run, err := o.svc.RerunRun(ctx, wid, mid, rid, in)
		return ActionDone{gen: gen, runID: rid, Action: ActionRerun, Run: run, Err: err}
	}}
}

// Cancel asks the server to cancel the attached run. The run is refreshed
// afterwards and the server's status wins.
func (o *Orchestrator) Cancel() []Cmd {
	o.beginAction()
	switch {
	case o.state != StateAttached:
		o.actionErr = ErrNotAttached
		return nil
	case o.busy != ActionNone:
		o.actionErr = ErrBusy
		return nil
	case !o.run.Status.IsActive():
		o.actionErr = ErrNotCancelable
		return nil
	}

	o.busy = ActionCancel
	gen, wid, mid, rid, ctx := o.gen, o.workspaceID, o.mergeRequestID, o.runID, o.ctx()
	return []Cmd{func() Msg {
		err := o.svc.CancelRun(ctx, wid, mid, rid)
		return ActionDone{gen: gen, runID: rid, Action: ActionCancel, Err: err}
	}}
}

// Publish posts the attached run's comments to the Git host.
func (o *Orchestrator) Publish() []Cmd {
	o.beginAction()
	switch {
	case o.state != StateAttached:
		o.actionErr = ErrNotAttached
		return nil
	case o.busy != ActionNone:
		o.actionErr = ErrBusy
		return nil
	}

	o.busy = ActionPublish
	gen, wid, mid, rid, ctx := o.gen, o.workspaceID, o.mergeRequestID, o.runID, o.ctx()
	return []Cmd{func() Msg {
		res, err := o.svc.PublishRun(ctx, wid, mid, rid)
		return ActionDone{gen: gen, runID: rid, Action: ActionPublish, Published: res, Err: err}
	}}
}

// Refresh re-reads the open merge request now. It resumes polling when the
// attached run is still active.
func (o *Orchestrator) Refresh() []Cmd {
	if o.mergeRequestID == 0 {
		return nil
	}
	o.beginAction()
	o.pollErr = nil

	if o.state != StateAttached {
		o.stopTimer()
		o.state = StateLoading
		return []Cmd{o.fetchRuns(purposeOpen)}
	}
	if o.run.Status.IsTerminal() {
		return o.fetchDetail(true)
	}
	o.stopTimer()
	o.polls = 0
	return []Cmd{o.fetchRuns(purposePoll)}
}

// Update applies orchestrator messages. It reports false for messages it
// does not own.
func (o *Orchestrator) Update(msg Msg) ([]Cmd, bool) {
	switch msg := msg.(type) {
	case PollTick:
		return o.handleTick(msg), true
	case runsLoaded:
		return o.handleRuns(msg), true
	case runFetched:
		return o.handleDetail(msg), true
	case commentsLoaded:
		o.handleComments(msg)
		return nil, true
	case ActionDone:
		return o.handleAction(msg), true
	default:
		return nil, false
	}
}

func (o *Orchestrator) fetchRuns(purpose runsPurpose) Cmd {
	t := o.runs.Begin(Scope{ID: o.mergeRequestID})
	gen, wid, mid, ctx := o.gen, o.workspaceID, o.mergeRequestID, o.ctx()
	return func() Msg {
		runs, err := o.svc.ListRuns(ctx, wid, mid)
		return runsLoaded{gen: gen, ticket: t, purpose: purpose, runs: runs, err: err}
	}
}

func (o *Orchestrator) fetchComments() Cmd {
	t := o.comments.Begin(Scope{ID: o.runID})
	gen, wid, mid, rid, ctx := o.gen, o.workspaceID, o.mergeRequestID, o.runID, o.ctx()
	return func() Msg {
		comments, err := o.svc.ListComments(ctx, wid, mid, rid)
		return commentsLoaded{gen: gen, ticket: t, comments: comments, err: err}
	}
}

// fetchDetail re-reads the attached run and its comments. final marks the
// fetch issued after a terminal status was seen.
func (o *Orchestrator) fetchDetail(final bool) []Cmd {
	return o.fetchDetailWith(final, nil)
}

func (o *Orchestrator) fetchDetailWith(final bool, check *cancelCheck) []Cmd {
	if final {
		o.finalIssued = true
	}
	gen, wid, mid, rid, ctx := o.gen, o.workspaceID, o.mergeRequestID, o.runID, o.ctx()
	detail := func() Msg {
		run, err := o.svc.GetRun(ctx, wid, mid, rid)
		return runFetched{gen: gen, runID: rid, final: final, run: run, err: err, cancel: check}
	}
	return []Cmd{detail, o.fetchComments()}
}

func (o *Orchestrator) schedule() []Cmd {
	if o.timer != nil || o.state != StateAttached || o.run.Status.IsTerminal() {
		return nil
	}
	if o.maxPolls > 0 && o.polls >= o.maxPolls {
		o.notice = fmt.Sprintf("stopped polling after %d checks, refresh to resume", o.polls)
		o.log.Warn().Ctx(o.ctx()).Int("polls", o.polls).Msg("poll limit reached")
		return nil
	}

	o.timerSeq++
	id := o.timerSeq
	t := o.clock.NewTimer(o.interval)
	o.timer, o.timerID = t, id
	return []Cmd{func() Msg {
		if t.Wait() {
			return PollTick{id: id}
		}
		return nil
	}}
}

func (o *Orchestrator) stopTimer() {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
}

func (o *Orchestrator) handleTick(msg PollTick) []Cmd {
	if o.timer == nil || msg.id != o.timerID {
		o.log.Debug().Uint64("timer", msg.id).Msg("dropping stale poll tick")
		return nil
	}
	o.timer = nil
	if o.state != StateAttached || o.run.Status.IsTerminal() {
		return nil
	}
	o.polls++
	return []Cmd{o.fetchRuns(purposePoll)}
}

func (o *Orchestrator) handleRuns(msg runsLoaded) []Cmd {
	if msg.gen != o.gen || !o.runs.Resolve(msg.ticket, msg.runs, msg.err) {
		o.log.Debug().Msg("dropping stale run list")
		return nil
	}

	if msg.err != nil {
		if api.IsNotFound(msg.err) {
			o.detach("merge request no longer exists")
			return nil
		}
		o.log.Warn().Ctx(o.ctx()).Err(msg.err).Msg("run list failed")
		switch msg.purpose {
		case purposeOpen:
			o.state = StateIdle
		case purposePoll:
			o.pollErr = msg.err
		}
		return nil
	}

	switch msg.purpose {
	case purposeOpen:
		if o.state != StateLoading {
			return nil
		}
		latest, ok := review.Latest(msg.runs)
		if !ok {
			o.state = StateIdle
			return nil
		}
		return o.attach(latest, true)

	case purposePoll:
		if o.state != StateAttached {
			return nil
		}
		entry, ok := review.FindRun(msg.runs, o.runID)
		if !ok {
			o.detach(fmt.Sprintf("%s no longer exists", o.run.Label()))
			return nil
		}
		o.applyRun(entry)
		return o.fetchDetail(o.run.Status.IsTerminal())
	}
	return nil
}

func (o *Orchestrator) handleDetail(msg runFetched) []Cmd {
	if msg.gen != o.gen || msg.runID != o.runID {
		o.log.Debug().Int64("run", msg.runID).Msg("dropping stale run detail")
		return nil
	}

	check := msg.cancel
	if check != nil && check.err == nil {
		check = nil
	}

	if msg.err != nil {
		if api.IsNotFound(msg.err) {
			o.detach(fmt.Sprintf("%s no longer exists", o.run.Label()))
			return nil
		}
		o.log.Warn().Ctx(o.ctx()).Err(msg.err).Msg("run detail failed")
		o.pollErr = msg.err
		if check != nil {
			o.actionErr = check.err
		}
		return nil
	}

	o.applyRun(msg.run)

	if check != nil && (check.always || !o.run.Status.IsTerminal()) {
		o.actionErr = check.err
	}

	if o.run.Status.IsTerminal() {
		o.stopTimer()
		if o.finalIssued {
			return nil
		}
		return o.fetchDetail(true)
	}
	return o.schedule()
}

func (o *Orchestrator) handleComments(msg commentsLoaded) {
	if msg.gen != o.gen || !o.comments.Resolve(msg.ticket, msg.comments, msg.err) {
		o.log.Debug().Msg("dropping stale comments")
		return
	}
	if msg.err != nil {
		o.log.Warn().Ctx(o.ctx()).Err(msg.err).Msg("comment load failed")
	}
}

func (o *Orchestrator) handleAction(msg ActionDone) []Cmd {
	if msg.gen != o.gen {
		o.log.Debug().Stringer("action", msg.Action).Msg("dropping stale action result")
		return nil
	}
	o.busy = ActionNone

	if msg.Err != nil {
		o.log.Warn().Ctx(o.ctx()).Err(msg.Err).Stringer("action", msg.Action).Msg("review action failed")
	}

	switch msg.Action {
	case ActionRun, ActionRerun:
		if msg.Err != nil {
			o.actionErr = msg.Err
			return nil
		}
		cmds := o.attach(msg.Run, false)
		return append(cmds, o.fetchRuns(purposeHistory))

	case ActionCancel:
		if msg.runID != o.runID {
			return nil
		}
		// A rejected cancel usually means the run already finished; the
		// refreshed status decides whether to report it. Other failures are
		// reported once the refresh lands.
		check := &cancelCheck{err: msg.Err, always: msg.Err != nil && !api.IsClientError(msg.Err)}
		return o.fetchDetailWith(false, check)

	case ActionPublish:
		if msg.Err != nil {
			o.actionErr = msg.Err
			return nil
		}
		res := msg.Published
		o.lastPublish = &res
		o.notice = fmt.Sprintf("published %d comments", res.Posted)
		if msg.runID != o.runID {
			return nil
		}
		return []Cmd{o.fetchComments()}
	}
	return nil
}

// applyRun folds a server report into the attached run. A terminal run never
// moves back to an active status; such reports are logged and ignored.
func (o *Orchestrator) applyRun(in review.Run) {
	if in.ID != o.runID {
		return
	}
	prev := o.run
	if prev.Status.IsTerminal() && !in.Status.IsTerminal() {
		o.log.Warn().Ctx(o.ctx()).
			Str("from", string(prev.Status)).
			Str("to", string(in.Status)).
			Msg("ignoring status regression")
		in.Status = prev.Status
	} else if prev.Status != "" && !review.CanTransition(prev.Status, in.Status) {
		o.log.Debug().Ctx(o.ctx()).
			Str("from", string(prev.Status)).
			Str("to", string(in.Status)).
			Msg("unexpected status transition")
	}

	if in.Summary == "" {
		in.Summary = prev.Summary
	}
	if in.StructuredOutput == nil {
		in.StructuredOutput = prev.StructuredOutput
	}
	if in.RawOutput == "" {
		in.RawOutput = prev.RawOutput
	}
	if in.StartedAt == nil {
		in.StartedAt = prev.StartedAt
	}
	if in.FinishedAt == nil {
		in.FinishedAt = prev.FinishedAt
	}
	if in.LLMIntegrationID == 0 {
		in.LLMIntegrationID = prev.LLMIntegrationID
	}
	if in.MergeRequestID == 0 {
		in.MergeRequestID = prev.MergeRequestID
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = prev.CreatedAt
	}
	if in.Status != prev.Status {
		o.log.Debug().Ctx(o.ctx()).Str("status", string(in.Status)).Msg("run status changed")
	}
	o.run = in
}
