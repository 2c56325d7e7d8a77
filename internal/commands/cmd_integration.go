package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/sage/internal/core/validate"
	"github.com/colonyops/sage/internal/core/workspace"
	"github.com/colonyops/sage/internal/printer"
	"github.com/colonyops/sage/internal/sage"
	"github.com/colonyops/sage/internal/vcs"
	"github.com/colonyops/sage/pkg/iojson"
)

type IntegrationCmd struct {
	flags *Flags
	app   *sage.App
	scope scope

	input      workspace.IntegrationInput
	file       iojson.FileReader[workspace.IntegrationInput]
	verify     bool
	jsonOutput bool
	yes        bool
}

// NewIntegrationCmd creates the integration command.
func NewIntegrationCmd(flags *Flags, app *sage.App) *IntegrationCmd {
	return &IntegrationCmd{flags: flags, app: app}
}

func (cmd *IntegrationCmd) inputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "name", Destination: &cmd.input.Name},
		&cli.StringFlag{
			Name:        "provider",
			Usage:       "github or gitlab",
			Destination: (*string)(&cmd.input.Provider),
		},
		&cli.StringFlag{Name: "base-url", Usage: "self-hosted API root", Destination: &cmd.input.BaseURL},
		&cli.StringFlag{
			Name:        "access-token",
			Sources:     cli.EnvVars("SAGE_INTEGRATION_TOKEN"),
			Destination: &cmd.input.AccessToken,
		},
		&cli.StringFlag{Name: "refresh-token", Destination: &cmd.input.RefreshToken},
		cmd.file.Flag(),
		&cli.BoolFlag{
			Name:        "verify",
			Usage:       "check a GitHub access token against the GitHub API first",
			Destination: &cmd.verify,
		},
	}
}

// Register adds the integration command to the application.
func (cmd *IntegrationCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "integration",
		Usage: "Manage Git hosting integrations of a workspace",
		Commands: []*cli.Command{
			{
				Name:   "ls",
				Usage:  "List integrations",
				Flags:  []cli.Flag{cmd.scope.workspaceFlag(), &cli.BoolFlag{Name: "json", Destination: &cmd.jsonOutput}},
				Action: cmd.list,
			},
			{
				Name:  "create",
				Usage: "Create an integration",
				Description: `Creates a GitHub or GitLab integration. Flags may be replaced by a JSON
payload with --file, e.g. {"name":"github","provider":"github","access_token":"..."}.`,
				Flags:  append([]cli.Flag{cmd.scope.workspaceFlag()}, cmd.inputFlags()...),
				Action: cmd.create,
			},
			{
				Name:        "update",
				Usage:       "Update an integration",
				Description: "Only the given flags are sent; blank tokens keep the stored ones.",
				Flags:       append([]cli.Flag{cmd.scope.workspaceFlag(), cmd.scope.integrationFlag()}, cmd.inputFlags()...),
				Action:      cmd.update,
			},
			{
				Name:  "rm",
				Usage: "Delete an integration and its repositories",
				Flags: []cli.Flag{
					cmd.scope.workspaceFlag(),
					cmd.scope.integrationFlag(),
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Destination: &cmd.yes},
				},
				Action: cmd.remove,
			},
		},
	})
	return app
}

func (cmd *IntegrationCmd) readInput() (workspace.IntegrationInput, error) {
	if !cmd.file.Set() {
		in := cmd.input
		in.Name = strings.TrimSpace(in.Name)
		return in, nil
	}
	return cmd.file.Read()
}

func (cmd *IntegrationCmd) preflight(ctx context.Context, in workspace.IntegrationInput) error {
	if !cmd.verify || in.AccessToken == "" {
		return nil
	}
	baseURL := in.BaseURL
	if baseURL == "" {
		baseURL = cmd.app.Config.GitHub.BaseURL
	}
	id, err := vcs.Preflight(ctx, in.Provider, in.AccessToken, baseURL)
	if err != nil {
		return fmt.Errorf("verify token: %w", err)
	}
	p := printer.Ctx(ctx)
	p.Infof("Token belongs to %s (%d API calls left)", id.Login, id.RateRemaining)
	if !id.HasScope("repo") {
		p.Warnf("token lacks the repo scope; private repositories will not be listed")
	}
	return nil
}

func (cmd *IntegrationCmd) list(ctx context.Context, c *cli.Command) error {
	ws, err := resolver{cmd.app}.workspace(ctx, cmd.scope.workspace)
	if err != nil {
		return err
	}
	items, err := cmd.app.Client.ListIntegrations(ctx, ws.ID)
	if err != nil {
		return fmt.Errorf("list integrations: %w", err)
	}
	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.WriteLines(out, items)
	}
	if len(items) == 0 {
		printer.Ctx(ctx).Infof("No integrations in %s", ws.Name)
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tPROVIDER\tBASE URL\tTOKEN")
	for _, it := range items {
		token := "missing"
		if it.HasAccessToken {
			token = "set"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", it.ID, it.Name, it.Provider, it.BaseURL, token)
	}
	return w.Flush()
}

func (cmd *IntegrationCmd) create(ctx context.Context, _ *cli.Command) error {
	in, err := cmd.readInput()
	if err != nil {
		return err
	}
	if in.Provider == "" {
		in.Provider = workspace.ProviderGitHub
	}
	if err := validate.IntegrationCreate(in); err != nil {
		return err
	}
	if err := cmd.preflight(ctx, in); err != nil {
		return err
	}
	ws, err := resolver{cmd.app}.workspace(ctx, cmd.scope.workspace)
	if err != nil {
		return err
	}
	it, err := cmd.app.Client.CreateIntegration(ctx, ws.ID, in)
	if err != nil {
		return fmt.Errorf("create integration: %w", err)
	}
	log.Info().Int64("workspace_id", ws.ID).Int64("integration_id", it.ID).Msg("integration created")
	printer.Ctx(ctx).Successf("Created integration %s (%d)", it.Name, it.ID)
	return nil
}

func (cmd *IntegrationCmd) update(ctx context.Context, _ *cli.Command) error {
	in, err := cmd.readInput()
	if err != nil {
		return err
	}
	if err := validate.IntegrationUpdate(in); err != nil {
		return err
	}
	r := resolver{cmd.app}
	ws, err := r.workspace(ctx, cmd.scope.workspace)
	if err != nil {
		return err
	}
	it, err := r.integration(ctx, ws.ID, cmd.scope.integration)
	if err != nil {
		return err
	}
	check := in
	if check.Provider == "" {
		check.Provider = it.Provider
	}
	if err := cmd.preflight(ctx, check); err != nil {
		return err
	}
	updated, err := cmd.app.Client.UpdateIntegration(ctx, ws.ID, it.ID, in)
	if err != nil {
		return fmt.Errorf("update integration: %w", err)
	}
	printer.Ctx(ctx).Successf("Updated integration %s", updated.Name)
	return nil
}

func (cmd *IntegrationCmd) remove(ctx context.Context, _ *cli.Command) error {
	r := resolver{cmd.app}
	ws, err := r.workspace(ctx, cmd.scope.workspace)
	if err != nil {
		return err
	}
	it, err := r.integration(ctx, ws.ID, cmd.scope.integration)
	if err != nil {
		return err
	}
	ok, err := confirmDelete("integration "+it.Name+" and its repositories", cmd.yes)
	if err != nil || !ok {
		return err
	}
	if err := cmd.app.Client.DeleteIntegration(ctx, ws.ID, it.ID); err != nil {
		return fmt.Errorf("delete integration: %w", err)
	}
	printer.Ctx(ctx).Successf("Deleted integration %s", it.Name)
	return nil
}
