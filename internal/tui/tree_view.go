package tui

import (
	"fmt"
	"strings"

	"github.com/colonyops/sage/internal/console"
	"github.com/colonyops/sage/internal/core/styles"
	"github.com/colonyops/sage/internal/core/workspace"
)

// treeRow is one selectable line of the workspace tree.
type treeRow struct {
	node     console.Node
	depth    int
	label    string
	detail   string
	expanded bool
}

// treeRows flattens the tree: every workspace, the integrations of the
// active workspace and the repositories of its expanded integrations.
func treeRows(s *console.Session) []treeRow {
	st := s.Stores()
	sel := s.Selection()

	var rows []treeRow
	for _, ws := range st.Workspaces.Items() {
		rows = append(rows, treeRow{
			node:   console.WorkspaceNode(ws.ID),
			label:  ws.Name,
			detail: string(ws.Role),
		})
		if ws.ID != sel.WorkspaceID() || st.Integrations.Scope().ID != ws.ID {
			continue
		}
		for _, it := range st.Integrations.Items() {
			expanded := sel.IsExpanded(it.ID)
			rows = append(rows, treeRow{
				node:     console.IntegrationNode(ws.ID, it.ID),
				depth:    1,
				label:    it.Name,
				detail:   string(it.Provider),
				expanded: expanded,
			})
			if !expanded || st.Repositories.Scope().ID != ws.ID {
				continue
			}
			for _, r := range st.RepositoriesOf(it.ID) {
				rows = append(rows, treeRow{
					node:   console.RepositoryNode(ws.ID, r),
					depth:  2,
					label:  r.FullPath,
					detail: r.Branch(),
				})
			}
		}
	}
	return rows
}

func providerIcon(p workspace.Provider) string {
	if p == workspace.ProviderGitLab {
		return styles.IconGitlab
	}
	return styles.IconGithub
}

func rowIcon(r treeRow) string {
	switch r.node.Type {
	case console.NodeWorkspace:
		return styles.IconWorkspace
	case console.NodeIntegration:
		if r.expanded {
			return styles.IconFolderOpen
		}
		return styles.IconFolderClosed
	case console.NodeRepository:
		if r.node.Repository != nil {
			return providerIcon(r.node.Repository.Provider)
		}
		return styles.IconGit
	}
	return ""
}

// renderTree draws the tree pane body. Load state and errors of the
// stores behind the tree are shown inline below the rows.
func renderTree(s *console.Session, cursor int, focused bool, width int) string {
	rows := treeRows(s)
	sel := s.Selection()

	lines := make([]string, 0, len(rows)+3)
	for i, r := range rows {
		marker := "  "
		if sel.IsSelected(r.node.Type, r.node.ID) {
			marker = styles.TextPrimaryStyle.Render("● ")
		}
		text := strings.Repeat("  ", r.depth) + rowIcon(r) + " " + r.label
		if r.detail != "" {
			text += " " + styles.TextMutedStyle.Render(r.detail)
		}
		line := marker + text
		if i == cursor && focused {
			line = marker + styles.SelectedStyle.Render(text)
		}
		lines = append(lines, truncate(line, width))
	}

	st := s.Stores()
	lines = append(lines, storeStatus("workspaces", st.Workspaces.Loading(), st.Workspaces.Err(), st.Workspaces.MutationErr())...)
	if sel.WorkspaceID() != 0 {
		lines = append(lines, storeStatus("integrations", st.Integrations.Loading(), st.Integrations.Err(), st.Integrations.MutationErr())...)
		lines = append(lines, storeStatus("repositories", st.Repositories.Loading(), st.Repositories.Err(), st.Repositories.MutationErr())...)
	}
	if st.Workspaces.Loaded() && len(rows) == 0 {
		lines = append(lines, styles.TextMutedStyle.Render("No workspaces. Press w to create one."))
	}
	return strings.Join(lines, "\n")
}

// storeStatus renders the load state of one store, or nothing when it is
// settled and healthy.
func storeStatus(name string, loading bool, err, mutationErr error) []string {
	var out []string
	if loading {
		out = append(out, styles.TextMutedStyle.Render("loading "+name+"…"))
	}
	if err != nil {
		out = append(out, styles.TextErrorStyle.Render(fmt.Sprintf("%s: %s", name, summarize(err))))
	}
	if mutationErr != nil {
		out = append(out, styles.TextWarningStyle.Render(fmt.Sprintf("%s: %s", name, summarize(mutationErr))))
	}
	return out
}

// renderMergeRequests draws the merge request pane body.
func renderMergeRequests(s *console.Session, cursor int, focused bool, width int) string {
	sel := s.Selection()
	if sel.RepositoryID() == 0 {
		return styles.TextMutedStyle.Render("Select a repository.")
	}

	var lines []string
	if repo, ok := sel.Repository(); ok {
		lines = append(lines, styles.TextMutedStyle.Render(repo.FullPath))
	}
	if f := s.MRFilter(); !f.IsZero() {
		var chips []string
		if f.State != "" {
			chips = append(chips, styles.FilterChipStyle.Render(string(f.State)))
		}
		if f.Title != "" {
			chips = append(chips, styles.FilterChipStyle.Render("“"+f.Title+"”"))
		}
		lines = append(lines, strings.Join(chips, " "))
	}

	mrs := s.MergeRequests()
	for i, mr := range mrs {
		text := fmt.Sprintf("%s !%d %s", styles.IconMergeRequest, mr.IID, mr.Title)
		meta := styles.TextMutedStyle.Render(fmt.Sprintf("  %s · %s → %s · %s", mr.State, mr.SourceBranch, mr.TargetBranch, mr.AuthorName))
		marker := "  "
		if sel.IsSelected(console.NodeMergeRequest, mr.ID) {
			marker = styles.TextPrimaryStyle.Render("● ")
		}
		if i == cursor && focused {
			text = styles.SelectedStyle.Render(text)
		}
		lines = append(lines, truncate(marker+text, width), truncate("  "+meta, width))
	}

	st := s.Stores()
	lines = append(lines, storeStatus("merge requests", st.MergeRequests.Loading(), st.MergeRequests.Err(), st.MergeRequests.MutationErr())...)
	if st.MergeRequests.Loaded() && st.MergeRequests.Err() == nil && len(mrs) == 0 {
		if st.MergeRequests.Len() == 0 {
			lines = append(lines, styles.TextMutedStyle.Render("No merge requests. Press s to sync."))
		} else {
			lines = append(lines, styles.TextMutedStyle.Render("No merge requests match the filter."))
		}
	}
	return strings.Join(lines, "\n")
}

// renderLLMs draws the LLM integration pane body.
func renderLLMs(s *console.Session, cursor int, focused bool, width int) string {
	st := s.Stores()
	var lines []string
	for i, it := range st.LLMs.Items() {
		marker := "  "
		if it.ID == s.LLMID() {
			marker = styles.TextPrimaryStyle.Render("● ")
		}
		text := styles.IconBrain + " " + it.Name
		if i == cursor && focused {
			text = styles.SelectedStyle.Render(text)
		}
		key := ""
		if it.APIKeyPresent {
			key = " · key set"
		}
		meta := styles.TextMutedStyle.Render(fmt.Sprintf(" %s/%s%s", it.Provider, it.Model, key))
		lines = append(lines, truncate(marker+text+meta, width))
	}
	lines = append(lines, storeStatus("LLM integrations", st.LLMs.Loading(), st.LLMs.Err(), st.LLMs.MutationErr())...)
	if st.LLMs.Loaded() && st.LLMs.Len() == 0 {
		lines = append(lines, styles.TextMutedStyle.Render("None yet. Press n to add one."))
	}
	return strings.Join(lines, "\n")
}
