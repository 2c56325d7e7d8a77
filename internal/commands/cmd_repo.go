package commands

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/sage/internal/core/validate"
	"github.com/colonyops/sage/internal/core/workspace"
	"github.com/colonyops/sage/internal/printer"
	"github.com/colonyops/sage/internal/sage"
	"github.com/colonyops/sage/pkg/iojson"
)

type RepoCmd struct {
	flags *Flags
	app   *sage.App
	scope scope

	externalIDs []string
	jsonOutput  bool
	yes         bool
}

// NewRepoCmd creates the repository command.
func NewRepoCmd(flags *Flags, app *sage.App) *RepoCmd {
	return &RepoCmd{flags: flags, app: app}
}

// Register adds the repository command to the application.
func (cmd *RepoCmd) Register(app *cli.Command) *cli.Command {
	jsonFlag := &cli.BoolFlag{Name: "json", Usage: "output as JSON lines", Destination: &cmd.jsonOutput}
	app.Commands = append(app.Commands, &cli.Command{
		Name:    "repo",
		Aliases: []string{"repository"},
		Usage:   "Manage connected repositories",
		Commands: []*cli.Command{
			{
				Name:   "available",
				Usage:  "List repositories an integration can connect",
				Flags:  []cli.Flag{cmd.scope.workspaceFlag(), cmd.scope.integrationFlag(), jsonFlag},
				Action: cmd.available,
			},
			{
				Name:   "ls",
				Usage:  "List connected repositories",
				Flags:  []cli.Flag{cmd.scope.workspaceFlag(), cmd.scope.integrationFlag(), jsonFlag},
				Action: cmd.list,
			},
			{
				Name:  "connect",
				Usage: "Connect repositories of an integration",
				Description: `Connects the repositories named by --external-id. Without it a picker
lists the available repositories that are not connected yet.`,
				Flags: []cli.Flag{
					cmd.scope.workspaceFlag(),
					cmd.scope.integrationFlag(),
					&cli.StringSliceFlag{
						Name:        "external-id",
						Aliases:     []string{"e"},
						Usage:       "provider id or full path of a repository (repeatable)",
						Destination: &cmd.externalIDs,
					},
				},
				Action: cmd.connect,
			},
			{
				Name:  "rm",
				Usage: "Disconnect a repository",
				Flags: []cli.Flag{
					cmd.scope.workspaceFlag(),
					cmd.scope.repositoryFlag(),
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Destination: &cmd.yes},
				},
				Action: cmd.remove,
			},
		},
	})
	return app
}

func (cmd *RepoCmd) available(ctx context.Context, c *cli.Command) error {
	r := resolver{cmd.app}
	ws, err := r.workspace(ctx, cmd.scope.workspace)
	if err != nil {
		return err
	}
	it, err := r.integration(ctx, ws.ID, cmd.scope.integration)
	if err != nil {
		return err
	}
	items, err := cmd.app.Client.ListAvailableRepositories(ctx, ws.ID, it.ID)
	if err != nil {
		return fmt.Errorf("list available repositories: %w", err)
	}
	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.WriteLines(out, items)
	}
	if len(items) == 0 {
		printer.Ctx(ctx).Infof("%s offers no repositories", it.Name)
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "EXTERNAL ID\tPATH\tBRANCH")
	for _, a := range items {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", a.ExternalID, a.FullPath, a.DefaultBranch)
	}
	return w.Flush()
}

func (cmd *RepoCmd) list(ctx context.Context, c *cli.Command) error {
	r := resolver{cmd.app}
	ws, err := r.workspace(ctx, cmd.scope.workspace)
	if err != nil {
		return err
	}
	items, err := cmd.app.Client.ListRepositories(ctx, ws.ID)
	if err != nil {
		return fmt.Errorf("list repositories: %w", err)
	}
	if cmd.scope.integration != "" {
		it, err := r.integration(ctx, ws.ID, cmd.scope.integration)
		if err != nil {
			return err
		}
		items = slices.DeleteFunc(items, func(rp workspace.Repository) bool { return rp.IntegrationID != it.ID })
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.WriteLines(out, items)
	}
	if len(items) == 0 {
		printer.Ctx(ctx).Infof("No repositories connected in %s", ws.Name)
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tPATH\tBRANCH\tPROVIDER\tINTEGRATION")
	for _, rp := range items {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", rp.ID, rp.FullPath, rp.Branch(), rp.Provider, rp.IntegrationID)
	}
	return w.Flush()
}

func (cmd *RepoCmd) connect(ctx context.Context, _ *cli.Command) error {
	r := resolver{cmd.app}
	ws, err := r.workspace(ctx, cmd.scope.workspace)
	if err != nil {
		return err
	}
	it, err := r.integration(ctx, ws.ID, cmd.scope.integration)
	if err != nil {
		return err
	}
	available, err := cmd.app.Client.ListAvailableRepositories(ctx, ws.ID, it.ID)
	if err != nil {
		return fmt.Errorf("list available repositories: %w", err)
	}

	refs := cmd.externalIDs
	if len(refs) == 0 {
		refs, err = cmd.pick(ctx, ws.ID, it.ID, available)
		if err != nil || len(refs) == 0 {
			return err
		}
	}

	ids := make(map[string]bool, len(refs))
	for _, ref := range refs {
		i := slices.IndexFunc(available, func(a workspace.AvailableRepository) bool {
			return a.ExternalID == ref || a.FullPath == ref
		})
		if i < 0 {
			return fmt.Errorf("%s does not offer repository %q", it.Name, ref)
		}
		ids[available[i].ExternalID] = true
	}
	selected := workspace.SelectAvailable(available, ids)
	in := workspace.ConnectInput{IntegrationID: it.ID, Repositories: selected}
	if err := validate.Connect(in); err != nil {
		return err
	}
	repos, err := cmd.app.Client.ConnectRepositories(ctx, ws.ID, in)
	if err != nil {
		return fmt.Errorf("connect repositories: %w", err)
	}
	p := printer.Ctx(ctx)
	for _, rp := range repos {
		p.Successf("Connected %s (%d)", rp.FullPath, rp.ID)
	}
	return nil
}

// pick prompts for the available repositories that are not connected yet.
func (cmd *RepoCmd) pick(ctx context.Context, wid, iid int64, available []workspace.AvailableRepository) ([]string, error) {
	if !interactive() {
		return nil, errors.New("pass --external-id")
	}
	connected, err := cmd.app.Client.ListRepositories(ctx, wid)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	var opts []huh.Option[string]
	for _, a := range available {
		if slices.ContainsFunc(connected, func(rp workspace.Repository) bool {
			return rp.IntegrationID == iid && rp.ExternalID == a.ExternalID
		}) {
			continue
		}
		opts = append(opts, huh.NewOption(a.FullPath, a.ExternalID))
	}
	if len(opts) == 0 {
		printer.Ctx(ctx).Infof("Every available repository is connected")
		return nil, nil
	}
	var picked []string
	err = huh.NewMultiSelect[string]().
		Title("Repositories to connect").
		Options(opts...).
		Value(&picked).
		Run()
	if err != nil {
		return nil, err
	}
	return picked, nil
}

func (cmd *RepoCmd) remove(ctx context.Context, _ *cli.Command) error {
	r := resolver{cmd.app}
	ws, err := r.workspace(ctx, cmd.scope.workspace)
	if err != nil {
		return err
	}
	repo, err := r.repository(ctx, ws.ID, cmd.scope.repository)
	if err != nil {
		return err
	}
	ok, err := confirmDelete("repository "+repo.FullPath, cmd.yes)
	if err != nil || !ok {
		return err
	}
	if err := cmd.app.Client.DeleteRepository(ctx, ws.ID, repo.ID); err != nil {
		return fmt.Errorf("delete repository: %w", err)
	}
	printer.Ctx(ctx).Successf("Disconnected %s", repo.FullPath)
	return nil
}
