package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/sage/internal/core/workspace"
	"github.com/colonyops/sage/internal/printer"
	"github.com/colonyops/sage/internal/sage"
	"github.com/colonyops/sage/pkg/iojson"
)

type MRCmd struct {
	flags *Flags
	app   *sage.App
	scope scope

	state      string
	search     string
	jsonOutput bool
}

// NewMRCmd creates the merge request command.
func NewMRCmd(flags *Flags, app *sage.App) *MRCmd {
	return &MRCmd{flags: flags, app: app}
}

// Register adds the merge request command to the application.
func (cmd *MRCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "mr",
		Usage: "List and sync merge requests of a repository",
		Commands: []*cli.Command{
			{
				Name:  "ls",
				Usage: "List merge requests",
				Flags: []cli.Flag{
					cmd.scope.workspaceFlag(),
					cmd.scope.repositoryFlag(),
					&cli.StringFlag{
						Name:        "state",
						Usage:       "open, merged or closed",
						Destination: &cmd.state,
					},
					&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "title substring", Destination: &cmd.search},
					&cli.BoolFlag{Name: "json", Usage: "output as JSON lines", Destination: &cmd.jsonOutput},
				},
				Action: cmd.list,
			},
			{
				Name:        "sync",
				Usage:       "Fetch merge requests from the Git provider",
				Description: "Asks the service to refresh its copy of the repository's merge requests.",
				Flags:       []cli.Flag{cmd.scope.workspaceFlag(), cmd.scope.repositoryFlag()},
				Action:      cmd.sync,
			},
		},
	})
	return app
}

func (cmd *MRCmd) list(ctx context.Context, c *cli.Command) error {
	r := resolver{cmd.app}
	ws, err := r.workspace(ctx, cmd.scope.workspace)
	if err != nil {
		return err
	}
	repo, err := r.repository(ctx, ws.ID, cmd.scope.repository)
	if err != nil {
		return err
	}
	if cmd.state != "" && !workspace.MergeRequestState(cmd.state).IsValid() {
		return fmt.Errorf("unknown state %q: want open, merged or closed", cmd.state)
	}
	q := workspace.MergeRequestQuery{State: workspace.MergeRequestState(cmd.state), Search: cmd.search}
	items, err := cmd.app.Client.ListMergeRequests(ctx, ws.ID, repo.ID, q)
	if err != nil {
		return fmt.Errorf("list merge requests: %w", err)
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.WriteLines(out, items)
	}
	if len(items) == 0 {
		printer.Ctx(ctx).Infof("No merge requests in %s (try sage mr sync)", repo.FullPath)
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tIID\tSTATE\tTITLE\tBRANCHES\tAUTHOR")
	for _, mr := range items {
		_, _ = fmt.Fprintf(w, "%d\t!%d\t%s\t%s\t%s → %s\t%s\n",
			mr.ID, mr.IID, mr.State, mr.Title, mr.SourceBranch, mr.TargetBranch, mr.AuthorName)
	}
	return w.Flush()
}

func (cmd *MRCmd) sync(ctx context.Context, _ *cli.Command) error {
	r := resolver{cmd.app}
	ws, err := r.workspace(ctx, cmd.scope.workspace)
	if err != nil {
		return err
	}
	repo, err := r.repository(ctx, ws.ID, cmd.scope.repository)
	if err != nil {
		return err
	}
	if err := cmd.app.Client.SyncMergeRequests(ctx, ws.ID, repo.ID); err != nil {
		return fmt.Errorf("sync merge requests: %w", err)
	}
	items, err := cmd.app.Client.ListMergeRequests(ctx, ws.ID, repo.ID, workspace.MergeRequestQuery{})
	if err != nil {
		return fmt.Errorf("list merge requests: %w", err)
	}
	log.Debug().Int64("repository_id", repo.ID).Int("count", len(items)).Msg("merge requests synced")
	printer.Ctx(ctx).Successf("Synced %s: %d merge requests", repo.FullPath, len(items))
	return nil
}
