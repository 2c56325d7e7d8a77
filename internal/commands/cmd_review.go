package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/sage/internal/console"
	"github.com/colonyops/sage/internal/core/review"
	"github.com/colonyops/sage/internal/core/styles"
	"github.com/colonyops/sage/internal/data/api"
	"github.com/colonyops/sage/internal/printer"
	"github.com/colonyops/sage/internal/sage"
	"github.com/colonyops/sage/internal/tui/jsoncolor"
	"github.com/colonyops/sage/pkg/iojson"
)

type ReviewCmd struct {
	flags *Flags
	app   *sage.App
	scope scope

	watch      bool
	interval   time.Duration
	maxPolls   int
	output     bool
	jsonOutput bool

	severity string
	ctype    string
	file     string
	posted   string
	search   string
}

// NewReviewCmd creates the review command.
func NewReviewCmd(flags *Flags, app *sage.App) *ReviewCmd {
	return &ReviewCmd{flags: flags, app: app}
}

func (cmd *ReviewCmd) mrFlags(withRun bool, extra ...cli.Flag) []cli.Flag {
	flags := []cli.Flag{
		cmd.scope.workspaceFlag(),
		cmd.scope.repositoryFlag(),
		cmd.scope.mergeRequestFlag(),
	}
	if withRun {
		flags = append(flags, cmd.scope.runFlag(false))
	}
	return append(flags, extra...)
}

func (cmd *ReviewCmd) watchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:        "interval",
			Usage:       "time between status checks (defaults to review.poll_interval)",
			Destination: &cmd.interval,
		},
		&cli.IntFlag{
			Name:        "max-polls",
			Usage:       "give up after this many checks (0 waits until the run finishes)",
			Destination: &cmd.maxPolls,
		},
	}
}

func (cmd *ReviewCmd) jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "output as JSON", Destination: &cmd.jsonOutput}
}

// Register adds the review command to the application.
func (cmd *ReviewCmd) Register(app *cli.Command) *cli.Command {
	watchFlag := &cli.BoolFlag{Name: "watch", Usage: "follow the run until it finishes", Destination: &cmd.watch}

	app.Commands = append(app.Commands, &cli.Command{
		Name:  "review",
		Usage: "Run, follow and publish AI reviews of merge requests",
		Description: `Merge requests are selected with --mr ID, or --mr !IID together with
--repo PATH. Commands acting on a run use the latest run unless --run is given.`,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Start a review",
				Flags:  cmd.mrFlags(false, append([]cli.Flag{cmd.scope.llmFlag(), watchFlag}, cmd.watchFlags()...)...),
				Action: cmd.start,
			},
			{
				Name:   "rerun",
				Usage:  "Re-run a review, optionally with another LLM",
				Flags:  cmd.mrFlags(true, append([]cli.Flag{cmd.scope.llmFlag(), watchFlag}, cmd.watchFlags()...)...),
				Action: cmd.rerun,
			},
			{
				Name:   "ls",
				Usage:  "List review runs of a merge request, newest first",
				Flags:  cmd.mrFlags(false, cmd.jsonFlag()),
				Action: cmd.list,
			},
			{
				Name:  "show",
				Usage: "Show a run and its summary",
				Flags: cmd.mrFlags(true, cmd.jsonFlag(), &cli.BoolFlag{
					Name:        "output",
					Usage:       "include the structured model output",
					Destination: &cmd.output,
				}),
				Action: cmd.show,
			},
			{
				Name:  "comments",
				Usage: "List the comments of a run",
				Flags: cmd.mrFlags(true,
					cmd.jsonFlag(),
					&cli.StringFlag{Name: "severity", Usage: "info, warning or error", Destination: &cmd.severity},
					&cli.StringFlag{Name: "type", Usage: "comment type, e.g. bug", Destination: &cmd.ctype},
					&cli.StringFlag{Name: "file", Usage: "file path or glob such as internal/**/*.go", Destination: &cmd.file},
					&cli.StringFlag{Name: "posted", Usage: "yes or no", Destination: &cmd.posted},
					&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "message substring", Destination: &cmd.search},
				),
				Action: cmd.comments,
			},
			{
				Name:   "cancel",
				Usage:  "Cancel a queued or running review",
				Flags:  cmd.mrFlags(true),
				Action: cmd.cancel,
			},
			{
				Name:   "publish",
				Usage:  "Post the comments of a finished run to the merge request",
				Flags:  cmd.mrFlags(true),
				Action: cmd.publish,
			},
			{
				Name:   "watch",
				Usage:  "Follow a run until it finishes",
				Flags:  cmd.mrFlags(true, cmd.watchFlags()...),
				Action: cmd.follow,
			},
		},
	})
	return app
}

// target resolves the workspace and merge request of the invocation.
func (cmd *ReviewCmd) target(ctx context.Context) (int64, int64, error) {
	r := resolver{cmd.app}
	ws, err := r.workspace(ctx, cmd.scope.workspace)
	if err != nil {
		return 0, 0, err
	}
	mid, err := r.mergeRequestID(ctx, ws.ID, &cmd.scope)
	if err != nil {
		return 0, 0, err
	}
	return ws.ID, mid, nil
}

func (cmd *ReviewCmd) start(ctx context.Context, _ *cli.Command) error {
	wid, mid, err := cmd.target(ctx)
	if err != nil {
		return err
	}
	it, err := resolver{cmd.app}.llm(ctx, cmd.scope.llm)
	if err != nil {
		return err
	}
	run, err := cmd.app.Client.StartRun(ctx, wid, mid, review.RunInput{LLMIntegrationID: it.ID})
	if err != nil {
		return fmt.Errorf("start review: %w", err)
	}
	if err := cmd.app.Prefs.Remember(ctx, wid, it.ID); err != nil {
		log.Warn().Err(err).Msg("remember LLM choice")
	}
	printer.Ctx(ctx).Successf("Started run #%d with %s", run.ID, it.Name)
	if !cmd.watch {
		return nil
	}
	return cmd.watchRun(ctx, wid, mid, run.ID)
}

func (cmd *ReviewCmd) rerun(ctx context.Context, _ *cli.Command) error {
	wid, mid, err := cmd.target(ctx)
	if err != nil {
		return err
	}
	r := resolver{cmd.app}
	prev, err := r.run(ctx, wid, mid, cmd.scope.run)
	if err != nil {
		return err
	}
	var in review.RunInput
	if cmd.scope.llm != "" {
		it, err := r.llm(ctx, cmd.scope.llm)
		if err != nil {
			return err
		}
		in.LLMIntegrationID = it.ID
	}
	run, err := cmd.app.Client.RerunRun(ctx, wid, mid, prev.ID, in)
	if err != nil {
		return fmt.Errorf("rerun review: %w", err)
	}
	printer.Ctx(ctx).Successf("Started run #%d from run #%d", run.ID, prev.ID)
	if !cmd.watch {
		return nil
	}
	return cmd.watchRun(ctx, wid, mid, run.ID)
}

func (cmd *ReviewCmd) list(ctx context.Context, c *cli.Command) error {
	wid, mid, err := cmd.target(ctx)
	if err != nil {
		return err
	}
	runs, err := cmd.app.Client.ListRuns(ctx, wid, mid)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	sum := console.SummarizeRuns(runs)

	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.WriteLines(out, sum.Runs)
	}
	if sum.Total == 0 {
		printer.Ctx(ctx).Infof("No review runs yet (sage review run --mr %d)", mid)
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RUN\tSTATUS\tLLM\tCREATED\tDURATION")
	for _, run := range sum.Runs {
		d := "-"
		if run.Duration() > 0 {
			d = run.Duration().Round(time.Second).String()
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n",
			run.ID, run.Status, run.LLMIntegrationID, run.CreatedAt.Local().Format(time.DateTime), d)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if sum.Active > 0 {
		printer.Ctx(ctx).Infof("%d of %d runs active", sum.Active, sum.Total)
	}
	return nil
}

func (cmd *ReviewCmd) show(ctx context.Context, c *cli.Command) error {
	wid, mid, err := cmd.target(ctx)
	if err != nil {
		return err
	}
	run, err := resolver{cmd.app}.run(ctx, wid, mid, cmd.scope.run)
	if err != nil {
		return err
	}
	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.WriteLine(out, run)
	}

	header := []string{styles.RunStatus(run.Status), runName(run)}
	if d := run.Duration(); d > 0 {
		header = append(header, d.Round(time.Second).String())
	}
	_, _ = fmt.Fprintln(out, strings.Join(header, " · "))
	if run.Summary != "" {
		_, _ = fmt.Fprintln(out, renderMarkdown(run.Summary))
	} else if run.RawOutput != "" {
		_, _ = fmt.Fprintln(out, run.RawOutput)
	}
	if cmd.output && len(run.StructuredOutput) > 0 {
		writeJSON(out, run.StructuredOutput)
	}
	return nil
}

// renderMarkdown renders text with the active theme, falling back to the
// raw text.
func renderMarkdown(text string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(styles.GlamourStyle()),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return text
	}
	md, err := r.Render(text)
	if err != nil {
		log.Debug().Err(err).Msg("render markdown")
		return text
	}
	return strings.TrimRight(md, "\n")
}

func writeJSON(out io.Writer, data []byte) {
	if interactive() {
		_, _ = fmt.Fprintln(out, jsoncolor.Colorize(data))
		return
	}
	_, _ = fmt.Fprintln(out, string(data))
}

// commentFilter builds the filter from the comment flags.
func (cmd *ReviewCmd) commentFilter() (console.CommentFilter, error) {
	f := console.CommentFilter{
		Type:   strings.TrimSpace(cmd.ctype),
		Search: strings.TrimSpace(cmd.search),
	}
	if cmd.severity != "" {
		sev := review.Severity(strings.ToLower(cmd.severity))
		if !sev.IsValid() {
			return f, fmt.Errorf("unknown severity %q: want info, warning or error", cmd.severity)
		}
		f.Severity = sev
	}
	switch strings.ToLower(cmd.posted) {
	case "":
	case "yes", "true":
		f.Posted = console.PostedOnly
	case "no", "false":
		f.Posted = console.PostedNot
	default:
		return f, fmt.Errorf("--posted wants yes or no, got %q", cmd.posted)
	}
	return f.WithFile(strings.TrimSpace(cmd.file)), nil
}

func (cmd *ReviewCmd) comments(ctx context.Context, c *cli.Command) error {
	f, err := cmd.commentFilter()
	if err != nil {
		return err
	}
	wid, mid, err := cmd.target(ctx)
	if err != nil {
		return err
	}
	run, err := resolver{cmd.app}.run(ctx, wid, mid, cmd.scope.run)
	if err != nil {
		return err
	}
	all, err := cmd.app.Client.ListComments(ctx, wid, mid, run.ID)
	if err != nil {
		return fmt.Errorf("list comments: %w", err)
	}
	shown := console.Project(all, f)

	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.WriteLines(out, shown)
	}
	for _, cm := range shown {
		loc := cm.Location()
		if loc == "" {
			loc = "general"
		}
		head := styles.Severity(cm.Severity) + " " + loc
		if cm.Type != "" {
			head += " [" + cm.Type + "]"
		}
		if cm.PostedToVCS {
			head += " " + styles.IconPosted
		}
		_, _ = fmt.Fprintln(out, head)
		for _, line := range strings.Split(cm.Message, "\n") {
			_, _ = fmt.Fprintln(out, "    "+line)
		}
	}
	p := printer.Ctx(ctx)
	if len(shown) == len(all) {
		p.Infof("%d comments on run #%d", len(all), run.ID)
	} else {
		p.Infof("%d of %d comments on run #%d match", len(shown), len(all), run.ID)
	}
	return nil
}

func (cmd *ReviewCmd) cancel(ctx context.Context, _ *cli.Command) error {
	wid, mid, err := cmd.target(ctx)
	if err != nil {
		return err
	}
	run, err := resolver{cmd.app}.run(ctx, wid, mid, cmd.scope.run)
	if err != nil {
		return err
	}
	p := printer.Ctx(ctx)
	if run.Status.IsTerminal() {
		p.Infof("%s already %s", runName(run), run.Status)
		return nil
	}
	if err := cmd.app.Client.CancelRun(ctx, wid, mid, run.ID); err != nil {
		if !api.IsClientError(err) {
			return fmt.Errorf("cancel run: %w", err)
		}
		// The run may have finished between the read and the cancel.
		now, gerr := cmd.app.Client.GetRun(ctx, wid, mid, run.ID)
		if gerr != nil || !now.Status.IsTerminal() {
			return fmt.Errorf("cancel run: %w", err)
		}
		p.Infof("%s already %s", runName(now), now.Status)
		return nil
	}
	p.Successf("Canceled %s", runName(run))
	return nil
}

func (cmd *ReviewCmd) publish(ctx context.Context, _ *cli.Command) error {
	wid, mid, err := cmd.target(ctx)
	if err != nil {
		return err
	}
	run, err := resolver{cmd.app}.run(ctx, wid, mid, cmd.scope.run)
	if err != nil {
		return err
	}
	if run.Status != review.StatusSucceeded {
		return fmt.Errorf("%s is %s: only succeeded runs can be published", runName(run), run.Status)
	}
	res, err := cmd.app.Client.PublishRun(ctx, wid, mid, run.ID)
	if err != nil {
		return fmt.Errorf("publish run: %w", err)
	}
	printer.Ctx(ctx).Successf("Published %d comments from %s", res.Posted, runName(run))
	return nil
}

func (cmd *ReviewCmd) follow(ctx context.Context, _ *cli.Command) error {
	wid, mid, err := cmd.target(ctx)
	if err != nil {
		return err
	}
	return cmd.watchRun(ctx, wid, mid, cmd.scope.run)
}

func (cmd *ReviewCmd) watchRun(ctx context.Context, wid, mid, runID int64) error {
	interval := cmd.interval
	if interval <= 0 {
		interval = cmd.app.Config.Review.PollInterval
	}
	maxPolls := cmd.maxPolls
	if maxPolls == 0 {
		maxPolls = cmd.app.Config.Review.MaxPolls
	}
	logger := log.Logger
	w := newWatcher(console.NewOrchestrator(ctx, cmd.app.Client, console.OrchestratorOptions{
		Clock:    console.RealClock{},
		Interval: interval,
		MaxPolls: maxPolls,
		Logger:   &logger,
	}), runID, printer.Ctx(ctx))
	return w.run(ctx, wid, mid)
}

// errNoRuns is returned when a watched merge request has no runs.
var errNoRuns = errors.New("merge request has no review runs")
