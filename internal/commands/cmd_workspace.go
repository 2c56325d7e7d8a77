package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/sage/internal/core/validate"
	"github.com/colonyops/sage/internal/core/workspace"
	"github.com/colonyops/sage/internal/printer"
	"github.com/colonyops/sage/internal/sage"
	"github.com/colonyops/sage/pkg/iojson"
)

type WorkspaceCmd struct {
	flags *Flags
	app   *sage.App
	scope scope

	jsonOutput bool
	yes        bool
}

// NewWorkspaceCmd creates the workspace command.
func NewWorkspaceCmd(flags *Flags, app *sage.App) *WorkspaceCmd {
	return &WorkspaceCmd{flags: flags, app: app}
}

// Register adds the workspace command to the application.
func (cmd *WorkspaceCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:    "workspace",
		Aliases: []string{"ws"},
		Usage:   "Manage workspaces",
		Commands: []*cli.Command{
			{
				Name:   "ls",
				Usage:  "List workspaces",
				Flags:  []cli.Flag{cmd.jsonFlag()},
				Action: cmd.list,
			},
			{
				Name:      "create",
				Usage:     "Create a workspace",
				UsageText: "sage workspace create NAME",
				Action:    cmd.create,
			},
			{
				Name:      "rename",
				Usage:     "Rename a workspace (owners and admins)",
				UsageText: "sage workspace rename --workspace ID|NAME NEW_NAME",
				Flags:     []cli.Flag{cmd.scope.workspaceFlag()},
				Action:    cmd.rename,
			},
			{
				Name:      "rm",
				Usage:     "Delete a workspace (owners and admins)",
				UsageText: "sage workspace rm ID|NAME [--yes]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation", Destination: &cmd.yes},
				},
				ShellComplete: WorkspaceCompleter(cmd.app),
				Action:        cmd.remove,
			},
		},
	})
	return app
}

func (cmd *WorkspaceCmd) jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "output as JSON lines", Destination: &cmd.jsonOutput}
}

func (cmd *WorkspaceCmd) list(ctx context.Context, c *cli.Command) error {
	items, err := cmd.app.Client.ListWorkspaces(ctx)
	if err != nil {
		return fmt.Errorf("list workspaces: %w", err)
	}
	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.WriteLines(out, items)
	}
	if len(items) == 0 {
		printer.Ctx(ctx).Infof("No workspaces found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tROLE")
	for _, ws := range items {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", ws.ID, ws.Name, ws.Role)
	}
	return w.Flush()
}

func (cmd *WorkspaceCmd) create(ctx context.Context, c *cli.Command) error {
	in := workspace.WorkspaceInput{Name: strings.TrimSpace(strings.Join(c.Args().Slice(), " "))}
	if err := validate.Workspace(in); err != nil {
		return err
	}
	ws, err := cmd.app.Client.CreateWorkspace(ctx, in)
	if err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	printer.Ctx(ctx).Successf("Created workspace %s (%d)", ws.Name, ws.ID)
	return nil
}

func (cmd *WorkspaceCmd) rename(ctx context.Context, c *cli.Command) error {
	ws, err := resolver{cmd.app}.workspace(ctx, cmd.scope.workspace)
	if err != nil {
		return err
	}
	if !ws.CanEdit() {
		return fmt.Errorf("only owners and admins can rename %s", ws.Name)
	}
	in := workspace.WorkspaceInput{Name: strings.TrimSpace(strings.Join(c.Args().Slice(), " "))}
	if err := validate.Workspace(in); err != nil {
		return err
	}
	updated, err := cmd.app.Client.UpdateWorkspace(ctx, ws.ID, in)
	if err != nil {
		return fmt.Errorf("rename workspace: %w", err)
	}
	printer.Ctx(ctx).Successf("Renamed %s to %s", ws.Name, updated.Name)
	return nil
}

func (cmd *WorkspaceCmd) remove(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("expected one workspace, got %d arguments", c.Args().Len())
	}
	ws, err := resolver{cmd.app}.workspace(ctx, c.Args().First())
	if err != nil {
		return err
	}
	if !ws.CanEdit() {
		return fmt.Errorf("only owners and admins can delete %s", ws.Name)
	}
	ok, err := confirmDelete("workspace "+ws.Name, cmd.yes)
	if err != nil || !ok {
		return err
	}
	if err := cmd.app.Client.DeleteWorkspace(ctx, ws.ID); err != nil {
		return fmt.Errorf("delete workspace: %w", err)
	}
	if cmd.app.Prefs.LastWorkspace(ctx) == ws.ID {
		_ = cmd.app.Prefs.Remember(ctx, 0, cmd.app.Prefs.LastLLM(ctx))
	}
	printer.Ctx(ctx).Successf("Deleted workspace %s", ws.Name)
	return nil
}
