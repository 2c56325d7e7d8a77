package tui

import (
	"fmt"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"

	"github.com/colonyops/sage/internal/console"
	"github.com/colonyops/sage/internal/core/llm"
	"github.com/colonyops/sage/internal/core/workspace"
	"github.com/colonyops/sage/internal/tui/components"
)

func (m Model) handleKey(msg tea.KeyPressMsg) (Model, tea.Cmd) {
	switch {
	case m.form != nil:
		return m.updateForm(msg)
	case m.confirm != nil:
		return m.updateConfirm(msg)
	case m.notifications != nil:
		return m.updateNotifications(msg)
	case m.help != nil:
		if key.Matches(msg, m.keys.Help) || msg.String() == "esc" || msg.String() == "q" {
			m.help = nil
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Help):
		m.help = m.newHelp()
		return m, nil
	case key.Matches(msg, m.keys.Notifications):
		m.notifications = NewNotificationModal(m.bus, m.width, m.height)
		return m, nil
	case key.Matches(msg, m.keys.DismissToast) && m.toasts.HasToasts():
		m.toasts.Dismiss()
		return m, nil
	case key.Matches(msg, m.keys.NextPane):
		m.focus = paneOrder[(int(m.focus)+1)%len(paneOrder)]
		return m, nil
	case key.Matches(msg, m.keys.PrevPane):
		m.focus = paneOrder[(int(m.focus)+len(paneOrder)-1)%len(paneOrder)]
		return m, nil
	case key.Matches(msg, m.keys.LLMs):
		m.focus = paneLLMs
		return m, nil
	case key.Matches(msg, m.keys.ChooseLLM):
		return m.openChooseLLM()
	}

	switch m.focus {
	case paneTree:
		return m.treeKey(msg)
	case paneMergeRequests:
		return m.mergeRequestKey(msg)
	case paneReview:
		return m.reviewKey(msg)
	case paneLLMs:
		return m.llmKey(msg)
	}
	return m, nil
}

func (m Model) quit() (Model, tea.Cmd) {
	m.quitting = true
	m.s.Close()
	if m.onExit != nil {
		m.onExit(m.s.Selection().WorkspaceID(), m.s.LLMID())
	}
	return m, tea.Quit
}

func move(cursor, n int, down bool) int {
	if n == 0 {
		return 0
	}
	if down {
		return min(cursor+1, n-1)
	}
	return max(cursor-1, 0)
}

// clampCursors keeps every cursor inside its list after a reload.
func (m *Model) clampCursors() {
	clamp := func(c, n int) int { return max(min(c, n-1), 0) }
	m.treeCursor = clamp(m.treeCursor, len(treeRows(m.s)))
	m.mrCursor = clamp(m.mrCursor, len(m.s.MergeRequests()))
	m.commentCursor = clamp(m.commentCursor, len(m.s.Comments()))
	m.llmCursor = clamp(m.llmCursor, m.s.Stores().LLMs.Len())
}

// Tree pane.

func (m Model) treeKey(msg tea.KeyPressMsg) (Model, tea.Cmd) {
	rows := treeRows(m.s)
	var row *treeRow
	if m.treeCursor < len(rows) {
		row = &rows[m.treeCursor]
	}

	switch {
	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
		m.treeCursor = move(m.treeCursor, len(rows), key.Matches(msg, m.keys.Down))
		return m, nil
	case key.Matches(msg, m.keys.Reload):
		return m.send(console.Reload{Kind: console.KindWorkspaces})
	case key.Matches(msg, m.keys.NewWorkspace):
		m.form = workspaceForm(nil)
		return m, nil
	case key.Matches(msg, m.keys.NewIntegration):
		if m.s.Selection().WorkspaceID() == 0 {
			m.pubs.workspace.Warnf("select a workspace first")
			return m, nil
		}
		m.form = integrationForm(nil)
		return m, nil
	}
	if row == nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Select):
		var cmd tea.Cmd
		m, cmd = m.send(console.SelectNode{Node: row.node})
		if row.node.Type == console.NodeRepository {
			m.focus = paneMergeRequests
		}
		return m, cmd
	case key.Matches(msg, m.keys.Expand):
		if row.node.Type != console.NodeIntegration {
			return m.send(console.SelectNode{Node: row.node})
		}
		if m.s.Selection().IsExpanded(row.node.ID) && msg.String() == "space" {
			return m.send(console.CollapseIntegration{ID: row.node.ID})
		}
		return m.send(console.ExpandIntegration{ID: row.node.ID})
	case key.Matches(msg, m.keys.Collapse):
		if row.node.Type == console.NodeIntegration {
			return m.send(console.CollapseIntegration{ID: row.node.ID})
		}
		if row.node.Type == console.NodeRepository {
			m.treeCursor = parentRow(rows, m.treeCursor)
		}
		return m, nil
	case key.Matches(msg, m.keys.Edit):
		return m.editNode(row.node)
	case key.Matches(msg, m.keys.Delete):
		return m.deleteNode(row.node)
	case key.Matches(msg, m.keys.Connect):
		if row.node.Type != console.NodeIntegration {
			m.pubs.workspace.Warnf("move to an integration to connect repositories")
			return m, nil
		}
		m.form = &openForm{kind: formConnect, integrationID: row.node.ID, pending: true}
		return m.send(console.LoadAvailable{IntegrationID: row.node.ID})
	}
	return m, nil
}

// parentRow returns the index of the nearest row above i with a smaller
// depth.
func parentRow(rows []treeRow, i int) int {
	for j := i - 1; j >= 0; j-- {
		if rows[j].depth < rows[i].depth {
			return j
		}
	}
	return i
}

func (m Model) editNode(n console.Node) (Model, tea.Cmd) {
	st := m.s.Stores()
	switch n.Type {
	case console.NodeWorkspace:
		if ws, ok := workspace.FindWorkspace(st.Workspaces.Items(), n.ID); ok {
			if !ws.CanEdit() {
				m.pubs.workspace.Warnf("only owners and admins can rename %s", ws.Name)
				return m, nil
			}
			m.form = workspaceForm(&ws)
		}
	case console.NodeIntegration:
		if it, ok := workspace.FindIntegration(st.Integrations.Items(), n.ID); ok {
			m.form = integrationForm(&it)
		}
	}
	return m, nil
}

func (m Model) deleteNode(n console.Node) (Model, tea.Cmd) {
	st := m.s.Stores()
	var (
		intent console.Msg
		what   string
	)
	switch n.Type {
	case console.NodeWorkspace:
		ws, ok := workspace.FindWorkspace(st.Workspaces.Items(), n.ID)
		if !ok {
			return m, nil
		}
		if !ws.CanEdit() {
			m.pubs.workspace.Warnf("only owners and admins can delete %s", ws.Name)
			return m, nil
		}
		intent, what = console.DeleteWorkspace{ID: n.ID}, "workspace "+ws.Name
	case console.NodeIntegration:
		it, ok := workspace.FindIntegration(st.Integrations.Items(), n.ID)
		if !ok {
			return m, nil
		}
		intent, what = console.DeleteIntegration{ID: n.ID}, "integration "+it.Name+" and its repositories"
	case console.NodeRepository:
		r, ok := workspace.FindRepository(st.Repositories.Items(), n.ID)
		if !ok {
			return m, nil
		}
		intent, what = console.DeleteRepository{ID: n.ID}, "repository "+r.FullPath
	default:
		return m, nil
	}
	m.confirm = &confirmation{
		modal:  components.NewConfirmModal("Delete", "Delete "+what+"?"),
		intent: intent,
		what:   what,
	}
	return m, nil
}

func (m Model) updateConfirm(msg tea.KeyPressMsg) (Model, tea.Cmd) {
	c := m.confirm
	c.modal, _ = c.modal.Update(msg)
	switch {
	case c.modal.Confirmed():
		m.confirm = nil
		return m.send(c.intent)
	case c.modal.Cancelled():
		m.confirm = nil
	}
	return m, nil
}

// Merge request pane.

func (m Model) mergeRequestKey(msg tea.KeyPressMsg) (Model, tea.Cmd) {
	mrs := m.s.MergeRequests()
	switch {
	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
		m.mrCursor = move(m.mrCursor, len(mrs), key.Matches(msg, m.keys.Down))
	case key.Matches(msg, m.keys.Select):
		if m.mrCursor >= len(mrs) {
			return m, nil
		}
		var cmd tea.Cmd
		m, cmd = m.send(console.SelectNode{Node: console.MergeRequestNode(m.s.Selection().WorkspaceID(), mrs[m.mrCursor])})
		m.focus = paneReview
		m.commentCursor = 0
		return m, cmd
	case key.Matches(msg, m.keys.MRFilter):
		m.form = mrFilterForm(m.s.MRFilter())
	case key.Matches(msg, m.keys.Sync):
		return m.send(console.SyncMergeRequests{})
	case key.Matches(msg, m.keys.Reload):
		return m.send(console.Reload{Kind: console.KindMergeRequests})
	}
	return m, nil
}

// Review pane.

func (m Model) reviewKey(msg tea.KeyPressMsg) (Model, tea.Cmd) {
	o := m.s.Orchestrator()
	switch {
	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
		m.commentCursor = move(m.commentCursor, len(m.s.Comments()), key.Matches(msg, m.keys.Down))
	case key.Matches(msg, m.keys.Run):
		if m.s.LLMID() == 0 {
			return m.openChooseLLM()
		}
		return m.send(console.StartReview{})
	case key.Matches(msg, m.keys.Rerun):
		return m.send(console.RerunReview{})
	case key.Matches(msg, m.keys.Cancel):
		return m.send(console.CancelReview{})
	case key.Matches(msg, m.keys.Publish):
		m.seen.notice = ""
		return m.send(console.PublishReview{})
	case key.Matches(msg, m.keys.Refresh), key.Matches(msg, m.keys.Reload):
		return m.send(console.RefreshReview{})
	case key.Matches(msg, m.keys.History):
		runs := m.s.RunSummary().Runs
		if len(runs) == 0 {
			m.pubs.review.Infof("no review runs yet")
			return m, nil
		}
		m.form = historyForm(runs, o.RunID())
	case key.Matches(msg, m.keys.CommentFilter):
		m.form = commentFilterForm(m.s.CommentFilter(), o.Comments().Items())
	case key.Matches(msg, m.keys.ClearFilter):
		m.commentCursor = 0
		return m.send(console.SetCommentFilter{})
	case key.Matches(msg, m.keys.Output):
		m.showOutput = !m.showOutput
	case key.Matches(msg, m.keys.CloseReview):
		m.focus = paneMergeRequests
		return m.send(console.CloseReview{})
	}
	return m, nil
}

func (m Model) openChooseLLM() (Model, tea.Cmd) {
	items := m.s.Stores().LLMs.Items()
	if len(items) == 0 {
		m.pubs.llm.Warnf("no LLM integrations yet, press n in the LLM pane to add one")
		m.focus = paneLLMs
		return m, nil
	}
	m.form = chooseLLMForm(items, m.s.LLMID())
	return m, nil
}

// LLM pane.

func (m Model) llmKey(msg tea.KeyPressMsg) (Model, tea.Cmd) {
	items := m.s.Stores().LLMs.Items()
	var cur *llm.Integration
	if m.llmCursor < len(items) {
		cur = &items[m.llmCursor]
	}
	switch {
	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
		m.llmCursor = move(m.llmCursor, len(items), key.Matches(msg, m.keys.Down))
	case key.Matches(msg, m.keys.NewLLM):
		m.form = llmForm(nil)
	case key.Matches(msg, m.keys.Reload):
		return m.send(console.Reload{Kind: console.KindLLMs})
	case cur == nil:
	case key.Matches(msg, m.keys.Select):
		return m.send(console.ChooseLLM{ID: cur.ID})
	case key.Matches(msg, m.keys.Edit):
		it := *cur
		m.form = llmForm(&it)
	case key.Matches(msg, m.keys.Delete):
		m.confirm = &confirmation{
			modal:  components.NewConfirmModal("Delete", "Delete LLM integration "+cur.Name+"?"),
			intent: console.DeleteLLM{ID: cur.ID},
			what:   cur.Name,
		}
	}
	return m, nil
}

// Forms.

func (m Model) updateForm(msg tea.KeyPressMsg) (Model, tea.Cmd) {
	f := m.form
	if f.pending {
		if msg.String() == "esc" {
			m.form = nil
		}
		return m, nil
	}
	var cmd tea.Cmd
	f.dialog, cmd = f.dialog.Update(msg)
	switch {
	case f.dialog.Cancelled():
		m.form = nil
		return m, cmd
	case f.dialog.Submitted():
		intent, done := f.intent()
		if done {
			m.form = nil
			if f.kind == formCommentFilter {
				m.commentCursor = 0
			}
			if f.kind == formMRFilter {
				m.mrCursor = 0
			}
		} else {
			f.pending = true
		}
		var sendCmd tea.Cmd
		m, sendCmd = m.send(intent)
		return m, tea.Batch(cmd, sendCmd)
	}
	return m, cmd
}

func (m Model) updateNotifications(msg tea.KeyPressMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "N":
		m.notifications = nil
	case "j", "down":
		m.notifications.ScrollDown()
	case "k", "up":
		m.notifications.ScrollUp()
	case "D":
		if err := m.notifications.Clear(); err != nil {
			m.pubs.workspace.Error("clear notifications", err)
		}
	}
	return m, nil
}

// Results.

func (m Model) handleMutationDone(msg console.MutationDone) (Model, tea.Cmd) {
	if f := m.form; f != nil && f.pending && f.dialog != nil {
		if kind, ok := f.store(); ok && kind == msg.Kind {
			if msg.Err != nil {
				f.showError(msg.Err)
				return m.send(msg)
			}
			m.form = nil
		}
	}

	pub := m.pubs.workspace
	if msg.Kind == console.KindLLMs {
		pub = m.pubs.llm
	}
	if msg.Err != nil {
		pub.Error(fmt.Sprintf("%s %s", msg.Op, msg.Kind), msg.Err)
	} else {
		pub.Infof("%s", doneMessage(msg))
	}
	return m.send(msg)
}

// fillConnectForm builds the connect dialog once the available
// repositories of its integration have loaded.
func (m *Model) fillConnectForm() {
	f := m.form
	if f == nil || f.kind != formConnect || f.dialog != nil {
		return
	}
	st := m.s.Stores()
	if st.Available.Scope().ID != f.integrationID || !st.Available.Loaded() {
		return
	}
	if err := st.Available.Err(); err != nil {
		m.form = nil
		m.pubs.workspace.Error("list available repositories", err)
		return
	}
	if st.Available.Len() == 0 {
		m.form = nil
		m.pubs.workspace.Infof("no repositories available for this integration")
		return
	}
	m.form = connectForm(f.integrationID, st.Available.Items(), st.RepositoriesOf(f.integrationID))
}

func doneMessage(msg console.MutationDone) string {
	switch msg.Op {
	case console.OpCreate:
		return fmt.Sprintf("created %s", singular(msg.Kind))
	case console.OpUpdate:
		return fmt.Sprintf("updated %s", singular(msg.Kind))
	case console.OpDelete:
		return fmt.Sprintf("deleted %s", singular(msg.Kind))
	case console.OpConnect:
		return "connected repositories"
	case console.OpSync:
		return "merge request sync started"
	}
	return msg.Op.String()
}

func singular(k console.StoreKind) string {
	switch k {
	case console.KindWorkspaces:
		return "workspace"
	case console.KindIntegrations:
		return "integration"
	case console.KindRepositories:
		return "repository"
	case console.KindLLMs:
		return "LLM integration"
	}
	return k.String()
}

func (m Model) handleActionDone(msg console.ActionDone) (Model, tea.Cmd) {
	m, cmd := m.send(msg)
	if msg.Err != nil {
		return m, cmd
	}
	switch msg.Action {
	case console.ActionRun, console.ActionRerun:
		if msg.Run.ID != 0 && m.s.Orchestrator().RunID() == msg.Run.ID {
			m.pubs.review.Infof("review #%d %s", msg.Run.ID, msg.Run.Status)
		}
	}
	return m, cmd
}
