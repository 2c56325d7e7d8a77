package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/sage/internal/core/llm"
	"github.com/colonyops/sage/internal/core/review"
	"github.com/colonyops/sage/internal/core/workspace"
	"github.com/colonyops/sage/internal/sage"
)

// scope holds the entity references shared by most subcommands.
type scope struct {
	workspace    string
	integration  string
	repository   string
	mergeRequest string
	llm          string
	run          int64
}

func (s *scope) workspaceFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "workspace",
		Aliases:     []string{"w"},
		Usage:       "workspace id or name (defaults to the last one used, or the only one)",
		Sources:     cli.EnvVars("SAGE_WORKSPACE"),
		Destination: &s.workspace,
	}
}

func (s *scope) integrationFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "integration",
		Aliases:     []string{"i"},
		Usage:       "integration id or name (defaults to the only one)",
		Destination: &s.integration,
	}
}

func (s *scope) repositoryFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "repo",
		Aliases:     []string{"r"},
		Usage:       "repository id or full path, e.g. acme/api",
		Destination: &s.repository,
	}
}

func (s *scope) mergeRequestFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "mr",
		Usage:       "merge request id, or !iid together with --repo",
		Destination: &s.mergeRequest,
	}
}

func (s *scope) llmFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "llm",
		Usage:       "LLM integration id or name (defaults to the last one used)",
		Destination: &s.llm,
	}
}

func (s *scope) runFlag(required bool) cli.Flag {
	return &cli.Int64Flag{
		Name:        "run",
		Usage:       "review run id",
		Required:    required,
		Destination: &s.run,
	}
}

// match finds the item whose id equals ref, or whose name equals ref
// ignoring case.
func match[T any](items []T, ref string, id func(T) int64, name func(T) string) (T, bool) {
	if n, err := strconv.ParseInt(ref, 10, 64); err == nil {
		for _, it := range items {
			if id(it) == n {
				return it, true
			}
		}
	}
	for _, it := range items {
		if strings.EqualFold(name(it), ref) {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// pick resolves ref among items. An empty ref picks the only item.
func pick[T any](kind, flag, ref string, items []T, id func(T) int64, name func(T) string) (T, error) {
	var zero T
	if ref == "" {
		switch len(items) {
		case 0:
			return zero, fmt.Errorf("no %s found", kind)
		case 1:
			return items[0], nil
		default:
			return zero, fmt.Errorf("%d %ss found: pass --%s", len(items), kind, flag)
		}
	}
	if it, ok := match(items, ref, id, name); ok {
		return it, nil
	}
	return zero, fmt.Errorf("%s %q not found", kind, ref)
}

type resolver struct {
	app *sage.App
}

func (r resolver) workspace(ctx context.Context, ref string) (workspace.Workspace, error) {
	items, err := r.app.Client.ListWorkspaces(ctx)
	if err != nil {
		return workspace.Workspace{}, fmt.Errorf("list workspaces: %w", err)
	}
	if ref == "" && len(items) > 1 {
		if ws, ok := workspace.FindWorkspace(items, r.app.Prefs.LastWorkspace(ctx)); ok {
			return ws, nil
		}
	}
	return pick("workspace", "workspace", ref, items,
		func(w workspace.Workspace) int64 { return w.ID },
		func(w workspace.Workspace) string { return w.Name })
}

func (r resolver) integration(ctx context.Context, wid int64, ref string) (workspace.Integration, error) {
	items, err := r.app.Client.ListIntegrations(ctx, wid)
	if err != nil {
		return workspace.Integration{}, fmt.Errorf("list integrations: %w", err)
	}
	return pick("integration", "integration", ref, items,
		func(it workspace.Integration) int64 { return it.ID },
		func(it workspace.Integration) string { return it.Name })
}

func (r resolver) repository(ctx context.Context, wid int64, ref string) (workspace.Repository, error) {
	items, err := r.app.Client.ListRepositories(ctx, wid)
	if err != nil {
		return workspace.Repository{}, fmt.Errorf("list repositories: %w", err)
	}
	return pick("repository", "repo", ref, items,
		func(rp workspace.Repository) int64 { return rp.ID },
		func(rp workspace.Repository) string { return rp.FullPath })
}

// mergeRequestID resolves --mr. A plain number is the merge request id;
// "!12" is the provider iid within --repo.
func (r resolver) mergeRequestID(ctx context.Context, wid int64, s *scope) (int64, error) {
	ref := strings.TrimSpace(s.mergeRequest)
	if ref == "" {
		return 0, errors.New("pass --mr")
	}
	iid, isIID := strings.CutPrefix(ref, "!")
	if !isIID {
		id, err := strconv.ParseInt(ref, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid merge request id %q", ref)
		}
		return id, nil
	}

	n, err := strconv.ParseInt(iid, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid merge request iid %q", ref)
	}
	repo, err := r.repository(ctx, wid, s.repository)
	if err != nil {
		return 0, err
	}
	mrs, err := r.app.Client.ListMergeRequests(ctx, wid, repo.ID, workspace.MergeRequestQuery{})
	if err != nil {
		return 0, fmt.Errorf("list merge requests: %w", err)
	}
	for _, mr := range mrs {
		if mr.IID == n {
			return mr.ID, nil
		}
	}
	return 0, fmt.Errorf("merge request %s not found in %s", ref, repo.FullPath)
}

// llm resolves --llm, falling back to the remembered or configured choice.
func (r resolver) llm(ctx context.Context, ref string) (llm.Integration, error) {
	items, err := r.app.Client.LLM().List(ctx)
	if err != nil {
		return llm.Integration{}, fmt.Errorf("list LLM integrations: %w", err)
	}
	if ref == "" {
		for _, id := range []int64{r.app.Prefs.LastLLM(ctx), r.app.Config.Review.DefaultLLM} {
			if it, ok := llm.Find(items, id); ok {
				return it, nil
			}
		}
	}
	return pick("LLM integration", "llm", ref, items,
		func(it llm.Integration) int64 { return it.ID },
		func(it llm.Integration) string { return it.Name })
}

// run returns the run selected with --run, or the latest run.
func (r resolver) run(ctx context.Context, wid, mid, runID int64) (review.Run, error) {
	if runID != 0 {
		return r.app.Client.GetRun(ctx, wid, mid, runID)
	}
	runs, err := r.app.Client.ListRuns(ctx, wid, mid)
	if err != nil {
		return review.Run{}, fmt.Errorf("list runs: %w", err)
	}
	latest, ok := review.Latest(runs)
	if !ok {
		return review.Run{}, errors.New("merge request has no review runs")
	}
	return r.app.Client.GetRun(ctx, wid, mid, latest.ID)
}

// interactive reports whether prompts can be shown.
func interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
