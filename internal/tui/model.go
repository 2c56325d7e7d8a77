// Package tui is the interactive console: a workspace tree, the merge
// requests of the selected repository and the review pane of the open
// merge request, driven by a console.Session.
package tui

import (
	"time"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"

	"github.com/colonyops/sage/internal/console"
	"github.com/colonyops/sage/internal/tui/components"
	tuinotify "github.com/colonyops/sage/internal/tui/notify"
)

type pane int

const (
	paneTree pane = iota
	paneMergeRequests
	paneReview
	paneLLMs
)

var paneOrder = []pane{paneTree, paneMergeRequests, paneReview, paneLLMs}

func (p pane) String() string {
	switch p {
	case paneTree:
		return "Workspaces"
	case paneMergeRequests:
		return "Merge requests"
	case paneReview:
		return "Review"
	case paneLLMs:
		return "LLM integrations"
	}
	return ""
}

// Options configures the console model.
type Options struct {
	Session *console.Session
	// Bus receives every notice; its history backs the notifications modal.
	Bus      *tuinotify.Bus
	ToastTTL time.Duration
	// User and BaseURL are shown in the header.
	User    string
	BaseURL string
	// OnExit is called with the workspace and LLM in use when the console
	// quits, so they can be preselected next time.
	OnExit func(workspaceID, llmID int64)
	// Workspace is selected once workspaces have loaded.
	Workspace int64
}

// seen holds the last orchestrator notices that were turned into toasts.
type seen struct {
	notice  string
	action  string
	poll    string
	openRun int64
}

// Model is the Bubble Tea model of the console.
type Model struct {
	s       *console.Session
	bus     *tuinotify.Bus
	pubs    publishers
	keys    keyMap
	toasts  *ToastController
	spinner spinner.Model
	summary *summaryRenderer

	user    string
	baseURL string
	onExit  func(workspaceID, llmID int64)
	// restore is the workspace to select after the first load.
	restore int64

	width  int
	height int
	focus  pane

	treeCursor    int
	mrCursor      int
	commentCursor int
	llmCursor     int

	showOutput bool

	form          *openForm
	confirm       *confirmation
	help          *components.HelpDialog
	notifications *NotificationModal

	seen     *seen
	quitting bool
}

type publishers struct {
	workspace tuinotify.Publisher
	review    tuinotify.Publisher
	llm       tuinotify.Publisher
}

// confirmation asks before sending a destructive intent.
type confirmation struct {
	modal  components.ConfirmModal
	intent console.Msg
	what   string
}

// New returns a console model. Notices published on opts.Bus show as
// toasts.
func New(opts Options) Model {
	if opts.Bus == nil {
		opts.Bus = tuinotify.NewBus(nil)
	}
	s := spinner.New()
	s.Spinner = spinner.Dot

	m := Model{
		s:   opts.Session,
		bus: opts.Bus,
		pubs: publishers{
			workspace: opts.Bus.Source("workspace"),
			review:    opts.Bus.Source("review"),
			llm:       opts.Bus.Source("llm"),
		},
		keys:    defaultKeyMap(),
		toasts:  NewToastController(opts.ToastTTL),
		spinner: s,
		summary: newSummaryRenderer(),
		user:    opts.User,
		baseURL: opts.BaseURL,
		onExit:  opts.OnExit,
		restore: opts.Workspace,
		seen:    &seen{},
	}
	opts.Bus.Subscribe(m.toasts.Push)
	return m
}

// Init starts the first loads.
func (m Model) Init() tea.Cmd {
	return tea.Batch(teaCmds(m.s.Init()), m.spinner.Tick)
}

// teaCmds adapts console commands to Bubble Tea commands.
func teaCmds(cmds []console.Cmd) tea.Cmd {
	out := make([]tea.Cmd, 0, len(cmds))
	for _, c := range cmds {
		if c == nil {
			continue
		}
		out = append(out, func() tea.Msg { return c() })
	}
	return tea.Batch(out...)
}

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.summary.resize(m.reviewWidth())
		if m.help != nil {
			m.help = m.newHelp()
		}
		return m, nil
	case toastTickMsg:
		return m.handleToastTick()
	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyPressMsg:
		m, cmd = m.handleKey(msg)
	case console.MutationDone:
		m, cmd = m.handleMutationDone(msg)
	case console.ActionDone:
		m, cmd = m.handleActionDone(msg)
	default:
		m, cmd = m.send(msg)
	}
	return m, tea.Batch(cmd, m.afterUpdate())
}

// send applies msg to the session.
func (m Model) send(msg console.Msg) (Model, tea.Cmd) {
	cmds := m.s.Update(msg)
	cmds = append(cmds, m.restoreWorkspace()...)
	m.fillConnectForm()
	m.clampCursors()
	return m, teaCmds(cmds)
}

// afterUpdate turns orchestrator notices into toasts and keeps the toast
// timer running while toasts are on screen.
func (m Model) afterUpdate() tea.Cmd {
	m.surfaceNotices()
	if m.toasts.HasToasts() && !m.toasts.Ticking() {
		m.toasts.SetTicking(true)
		return scheduleToastTick()
	}
	return nil
}

func (m Model) handleToastTick() (tea.Model, tea.Cmd) {
	m.toasts.Tick(toastTickInterval)
	if !m.toasts.HasToasts() {
		m.toasts.SetTicking(false)
		return m, nil
	}
	return m, scheduleToastTick()
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (m Model) surfaceNotices() {
	o := m.s.Orchestrator()
	if o.RunID() != m.seen.openRun {
		// A different run starts with a clean slate.
		m.seen.openRun = o.RunID()
		m.seen.poll = errText(o.PollErr())
	}
	if n := o.Notice(); n != m.seen.notice {
		m.seen.notice = n
		if n != "" {
			m.pubs.review.Infof("%s", n)
		}
	}
	if t := errText(o.ActionErr()); t != m.seen.action {
		m.seen.action = t
		if t != "" {
			m.pubs.review.Error("review action failed", o.ActionErr())
		}
	}
	if t := errText(o.PollErr()); t != m.seen.poll {
		m.seen.poll = t
		if t != "" {
			m.pubs.review.Error("polling stopped", o.PollErr())
		}
	}
}

// restoreWorkspace selects the remembered workspace once, after the first
// successful workspace load.
func (m *Model) restoreWorkspace() []console.Cmd {
	if m.restore == 0 {
		return nil
	}
	st := m.s.Stores()
	if !st.Workspaces.Loaded() {
		return nil
	}
	id := m.restore
	m.restore = 0
	for _, ws := range st.Workspaces.Items() {
		if ws.ID == id {
			return m.s.Update(console.SelectNode{Node: console.WorkspaceNode(id)})
		}
	}
	return nil
}
