package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/x/ansi"
	"github.com/rs/zerolog/log"

	"github.com/colonyops/sage/internal/console"
	"github.com/colonyops/sage/internal/core/llm"
	"github.com/colonyops/sage/internal/core/review"
	"github.com/colonyops/sage/internal/core/styles"
	"github.com/colonyops/sage/internal/core/workspace"
	"github.com/colonyops/sage/internal/tui/jsoncolor"
)

const structuredOutputLines = 20

func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	return ansi.Truncate(s, width, "…")
}

// summarize prefers the short form of gateway errors.
func summarize(err error) string {
	var s interface{ Summary() string }
	if errors.As(err, &s) {
		return s.Summary()
	}
	return err.Error()
}

// summaryRenderer renders run summaries as markdown. Output is cached per
// run and summary since the pane redraws on every spinner tick.
type summaryRenderer struct {
	width int
	r     *glamour.TermRenderer
	key   string
	out   string
}

func newSummaryRenderer() *summaryRenderer {
	return &summaryRenderer{}
}

func (s *summaryRenderer) resize(width int) {
	width = max(width, 20)
	if width == s.width {
		return
	}
	s.width = width
	s.r = nil
	s.key = ""
}

func (s *summaryRenderer) render(run review.Run) string {
	text := strings.TrimSpace(run.Summary)
	if text == "" {
		return ""
	}
	key := fmt.Sprintf("%d:%s", run.ID, text)
	if key == s.key {
		return s.out
	}
	if s.r == nil {
		r, err := glamour.NewTermRenderer(
			glamour.WithStyles(styles.GlamourStyle()),
			glamour.WithWordWrap(max(s.width, 20)),
		)
		if err != nil {
			log.Warn().Err(err).Msg("markdown renderer unavailable")
			return text
		}
		s.r = r
	}
	out, err := s.r.Render(text)
	if err != nil {
		log.Warn().Err(err).Int64("run_id", run.ID).Msg("render summary")
		return text
	}
	s.key, s.out = key, strings.Trim(out, "\n")
	return s.out
}

// renderReview draws the review pane: the merge request, the attached run,
// its summary and the filtered comments.
func renderReview(m Model, width int) string {
	s := m.s
	o := s.Orchestrator()
	if o.State() == console.StateIdle {
		if n := o.Notice(); n != "" {
			return styles.TextWarningStyle.Render(n)
		}
		return styles.TextMutedStyle.Render("Open a merge request to review it.")
	}

	var lines []string
	if mr, ok := workspace.FindMergeRequest(s.Stores().MergeRequests.Items(), o.MergeRequestID()); ok {
		lines = append(lines,
			styles.TextForegroundBoldStyle.Render(truncate(fmt.Sprintf("!%d %s", mr.IID, mr.Title), width)),
			styles.TextMutedStyle.Render(truncate(fmt.Sprintf("%s → %s · %s", mr.SourceBranch, mr.TargetBranch, mr.AuthorName), width)),
		)
	}
	lines = append(lines, "")

	if o.State() == console.StateLoading {
		lines = append(lines, m.spinner.View()+" loading review runs…")
		return strings.Join(lines, "\n")
	}

	lines = append(lines, runHeader(m)...)

	run, attached := o.Current()
	if !attached {
		lines = append(lines, "", styles.TextMutedStyle.Render("No review runs yet. Press r to start one."))
		return strings.Join(lines, "\n")
	}

	if sum := m.summary.render(run); sum != "" {
		lines = append(lines, "", sum)
	} else if run.RawOutput != "" && run.Status.IsTerminal() {
		lines = append(lines, "", styles.TextMutedStyle.Render(truncate(run.RawOutput, width*3)))
	}

	if m.showOutput {
		if len(run.StructuredOutput) > 0 {
			lines = append(lines, "", styles.PaneTitleStyle.Render("Structured output"), jsoncolor.Excerpt(run.StructuredOutput, structuredOutputLines))
		} else {
			lines = append(lines, "", styles.TextMutedStyle.Render("No structured output."))
		}
	}

	lines = append(lines, "", renderComments(m, width))
	return strings.Join(lines, "\n")
}

func runHeader(m Model) []string {
	s := m.s
	o := s.Orchestrator()
	var lines []string

	run, attached := o.Current()
	if attached {
		parts := []string{
			styles.RunStatus(run.Status),
			fmt.Sprintf("run #%d", run.ID),
		}
		if it, ok := llm.Find(s.Stores().LLMs.Items(), run.LLMIntegrationID); ok {
			parts = append(parts, it.Name)
		}
		if d := run.Duration(); d > 0 {
			parts = append(parts, d.Round(time.Second).String())
		}
		if o.Polling() {
			parts = append(parts, m.spinner.View()+" polling")
		}
		lines = append(lines, strings.Join(parts, styles.TextMutedStyle.Render(" · ")))
	}

	sum := s.RunSummary()
	if sum.Total > 1 {
		lines = append(lines, styles.TextMutedStyle.Render(fmt.Sprintf("%d runs · %d active · H for history", sum.Total, sum.Active)))
	}

	var actions []string
	add := func(ok bool, k, label string) {
		if ok {
			actions = append(actions, styles.TextPrimaryStyle.Render(k)+" "+label)
		}
	}
	add(o.CanRun(), "r", "run")
	add(o.CanRerun(), "R", "rerun")
	add(o.CanCancel(), "c", "cancel")
	add(o.CanPublish(), "p", "publish")
	if b := o.Busy(); b != console.ActionNone {
		actions = append(actions, m.spinner.View()+" "+b.String()+"…")
	}
	if len(actions) > 0 {
		lines = append(lines, strings.Join(actions, "  "))
	}

	if it, ok := llm.Find(s.Stores().LLMs.Items(), s.LLMID()); ok {
		lines = append(lines, styles.TextMutedStyle.Render("new runs use "+it.Name+" (m to change)"))
	} else {
		lines = append(lines, styles.TextWarningStyle.Render("no LLM chosen (m to choose)"))
	}
	if err := o.ActionErr(); err != nil {
		lines = append(lines, styles.TextErrorStyle.Render(summarize(err)))
	}
	if err := o.PollErr(); err != nil {
		lines = append(lines, styles.TextErrorStyle.Render("polling stopped: "+summarize(err)+" (g to retry)"))
	}
	return lines
}

func renderComments(m Model, width int) string {
	s := m.s
	all := s.Orchestrator().Comments()
	shown := s.Comments()

	title := fmt.Sprintf("Comments %d", len(shown))
	if len(shown) != all.Len() {
		title = fmt.Sprintf("Comments %d of %d", len(shown), all.Len())
	}
	counts := console.SeverityCounts(all.Items())
	var sev []string
	for _, sv := range review.Severities() {
		if n := counts[sv]; n > 0 {
			sev = append(sev, fmt.Sprintf("%s %d", styles.Severity(sv), n))
		}
	}
	header := styles.PaneTitleStyle.Render(title)
	if len(sev) > 0 {
		header += "  " + strings.Join(sev, " ")
	}
	lines := []string{header}

	if f := s.CommentFilter(); !f.IsZero() {
		lines = append(lines, renderCommentFilter(f))
	}
	if all.Loading() && all.Len() == 0 {
		lines = append(lines, m.spinner.View()+" loading comments…")
	}
	if err := all.Err(); err != nil {
		lines = append(lines, styles.TextErrorStyle.Render("comments: "+summarize(err)))
	}

	for i, c := range shown {
		loc := c.Location()
		if loc == "" {
			loc = "general"
		}
		head := styles.Severity(c.Severity) + " " + styles.TextPrimaryStyle.Render(loc)
		if c.Type != "" {
			head += " " + styles.TextMutedStyle.Render(c.Type)
		}
		if c.PostedToVCS {
			head += " " + styles.PostedStyle.Render(styles.IconPosted+" posted")
		}
		msg := c.Message
		if i == m.commentCursor && m.focus == paneReview {
			head = styles.SelectedStyle.Render("▸") + " " + head
		} else {
			head = "  " + head
			msg = firstLine(msg)
		}
		lines = append(lines, truncate(head, width))
		for _, l := range wrap(msg, width-4) {
			lines = append(lines, "    "+l)
		}
	}
	if all.Loaded() && len(shown) == 0 && all.Len() > 0 {
		lines = append(lines, styles.TextMutedStyle.Render("No comments match the filter (F clears it)."))
	}
	return strings.Join(lines, "\n")
}

func renderCommentFilter(f console.CommentFilter) string {
	var chips []string
	add := func(label string) { chips = append(chips, styles.FilterChipStyle.Render(label)) }
	if f.Severity != "" {
		add(string(f.Severity))
	}
	if f.Type != "" {
		add(f.Type)
	}
	if f.FilePath != "" {
		add(f.FilePath)
	}
	if f.FileGlob != "" {
		add(f.FileGlob)
	}
	switch f.Posted {
	case console.PostedOnly:
		add("posted")
	case console.PostedNot:
		add("not posted")
	}
	if f.Search != "" {
		add("“" + f.Search + "”")
	}
	return strings.Join(chips, " ")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}

func wrap(s string, width int) []string {
	if width <= 0 {
		return strings.Split(s, "\n")
	}
	return strings.Split(ansi.Wordwrap(s, width, ""), "\n")
}
