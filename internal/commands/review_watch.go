package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/colonyops/sage/internal/console"
	"github.com/colonyops/sage/internal/core/review"
	"github.com/colonyops/sage/internal/core/styles"
	"github.com/colonyops/sage/internal/printer"
)

// watcher follows one run with an orchestrator and reports status changes.
// A zero want follows the latest run.
type watcher struct {
	o    *console.Orchestrator
	want int64
	p    *printer.Printer

	last     review.Status
	lastID   int64
	reported bool
	err      error
}

func newWatcher(o *console.Orchestrator, want int64, p *printer.Printer) *watcher {
	return &watcher{o: o, want: want, p: p}
}

func (w *watcher) run(ctx context.Context, wid, mid int64) error {
	defer w.o.Close()
	if err := console.Run(ctx, w, w.o.Open(wid, mid), w.done); err != nil {
		return err
	}
	return w.err
}

// Update implements console.Updater.
func (w *watcher) Update(msg console.Msg) []console.Cmd {
	cmds, _ := w.o.Update(msg)
	o := w.o

	if w.want != 0 && o.Runs().Loaded() && o.RunID() != w.want && o.State() != console.StateLoading {
		if _, ok := review.FindRun(o.Runs().Items(), w.want); !ok {
			w.err = fmt.Errorf("run #%d not found", w.want)
			return nil
		}
		cmds = append(cmds, o.Attach(w.want)...)
	}

	if run, ok := o.Current(); ok && (w.want == 0 || run.ID == w.want) {
		if run.ID != w.lastID || run.Status != w.last {
			w.lastID, w.last = run.ID, run.Status
			w.p.Printf("%s %s", styles.RunStatus(run.Status), runName(run))
		}
	}
	return cmds
}

func (w *watcher) done() bool {
	o := w.o
	if w.err != nil {
		return true
	}
	switch o.State() {
	case console.StateLoading:
		return false
	case console.StateIdle:
		switch {
		case o.Notice() != "":
			w.err = errors.New(o.Notice())
		case o.Runs().Err() != nil:
			w.err = fmt.Errorf("list runs: %w", o.Runs().Err())
		default:
			w.err = errNoRuns
		}
		return true
	}

	if err := o.PollErr(); err != nil {
		w.err = fmt.Errorf("polling stopped: %w", err)
		return true
	}
	run, ok := o.Current()
	if !ok || (w.want != 0 && run.ID != w.want) {
		return false
	}
	if run.Status.IsTerminal() {
		comments := o.Comments()
		if comments.Loading() || !comments.Loaded() {
			return false
		}
		w.report(run, comments.Items())
		return true
	}
	if !o.Polling() && o.Busy() == console.ActionNone && o.Notice() != "" {
		w.err = errors.New(o.Notice())
		return true
	}
	return false
}

func (w *watcher) report(run review.Run, comments []review.Comment) {
	if w.reported {
		return
	}
	w.reported = true
	counts := console.SeverityCounts(comments)
	switch run.Status {
	case review.StatusSucceeded:
		w.p.Successf("%s finished with %d comments (%d error, %d warning, %d info)",
			runName(run), len(comments), counts[review.SeverityError], counts[review.SeverityWarning], counts[review.SeverityInfo])
	case review.StatusFailed:
		w.err = fmt.Errorf("%s failed", runName(run))
	default:
		w.p.Warnf("%s %s", runName(run), run.Status)
	}
}

func runName(run review.Run) string {
	return fmt.Sprintf("run #%d", run.ID)
}
