package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/sage/internal/core/llm"
	"github.com/colonyops/sage/internal/core/validate"
	"github.com/colonyops/sage/internal/printer"
	"github.com/colonyops/sage/internal/sage"
	"github.com/colonyops/sage/pkg/iojson"
)

type LLMCmd struct {
	flags *Flags
	app   *sage.App
	scope scope

	input      llm.Input
	file       iojson.FileReader[llm.Input]
	jsonOutput bool
	yes        bool
}

// NewLLMCmd creates the LLM integration command.
func NewLLMCmd(flags *Flags, app *sage.App) *LLMCmd {
	return &LLMCmd{flags: flags, app: app}
}

func (cmd *LLMCmd) inputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "name", Destination: &cmd.input.Name},
		&cli.StringFlag{
			Name:        "provider",
			Usage:       "openai, deepseek or ollama",
			Destination: (*string)(&cmd.input.Provider),
		},
		&cli.StringFlag{Name: "model", Usage: "model name, e.g. gpt-4o", Destination: &cmd.input.Model},
		&cli.StringFlag{Name: "base-url", Usage: "API root for self-hosted models", Destination: &cmd.input.BaseURL},
		&cli.StringFlag{
			Name:        "api-key",
			Usage:       "provider API key (not used by ollama)",
			Sources:     cli.EnvVars("SAGE_LLM_API_KEY"),
			Destination: &cmd.input.APIKey,
		},
		cmd.file.Flag(),
	}
}

// Register adds the llm command to the application.
func (cmd *LLMCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "llm",
		Usage: "Manage LLM integrations used to run reviews",
		Commands: []*cli.Command{
			{
				Name:   "ls",
				Usage:  "List LLM integrations",
				Flags:  []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output as JSON lines", Destination: &cmd.jsonOutput}},
				Action: cmd.list,
			},
			{
				Name:   "create",
				Usage:  "Create an LLM integration",
				Flags:  cmd.inputFlags(),
				Action: cmd.create,
			},
			{
				Name:        "update",
				Usage:       "Update an LLM integration",
				Description: "Only the given flags are sent; a blank --api-key keeps the stored key.",
				Flags:       append([]cli.Flag{cmd.scope.llmFlag()}, cmd.inputFlags()...),
				Action:      cmd.update,
			},
			{
				Name:  "rm",
				Usage: "Delete an LLM integration",
				Flags: []cli.Flag{
					cmd.scope.llmFlag(),
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Destination: &cmd.yes},
				},
				Action: cmd.remove,
			},
		},
	})
	return app
}

func (cmd *LLMCmd) readInput() (llm.Input, error) {
	in := cmd.input
	if cmd.file.Set() {
		var err error
		if in, err = cmd.file.Read(); err != nil {
			return llm.Input{}, err
		}
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Provider = llm.Provider(strings.ToLower(string(in.Provider)))
	return in.Sanitize(), nil
}

func (cmd *LLMCmd) list(ctx context.Context, c *cli.Command) error {
	items, err := cmd.app.Client.LLM().List(ctx)
	if err != nil {
		return fmt.Errorf("list LLM integrations: %w", err)
	}
	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.WriteLines(out, items)
	}
	if len(items) == 0 {
		printer.Ctx(ctx).Infof("No LLM integrations (sage llm create)")
		return nil
	}
	current := cmd.app.Prefs.LastLLM(ctx)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tPROVIDER\tMODEL\tKEY\t")
	for _, it := range items {
		key := "-"
		if it.APIKeyPresent {
			key = "set"
		}
		mark := ""
		if it.ID == current {
			mark = "*"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", it.ID, it.Name, it.Provider, it.Model, key, mark)
	}
	return w.Flush()
}

func (cmd *LLMCmd) create(ctx context.Context, _ *cli.Command) error {
	in, err := cmd.readInput()
	if err != nil {
		return err
	}
	if err := validate.LLMCreate(in); err != nil {
		return err
	}
	it, err := cmd.app.Client.LLM().Create(ctx, in)
	if err != nil {
		return fmt.Errorf("create LLM integration: %w", err)
	}
	printer.Ctx(ctx).Successf("Created LLM integration %s (%d)", it.Name, it.ID)
	return nil
}

func (cmd *LLMCmd) update(ctx context.Context, _ *cli.Command) error {
	in, err := cmd.readInput()
	if err != nil {
		return err
	}
	it, err := resolver{cmd.app}.llm(ctx, cmd.scope.llm)
	if err != nil {
		return err
	}
	in = in.SanitizeFor(it.Provider)
	if err := validate.LLMUpdate(in); err != nil {
		return err
	}
	updated, err := cmd.app.Client.LLM().Update(ctx, it.ID, in)
	if err != nil {
		return fmt.Errorf("update LLM integration: %w", err)
	}
	printer.Ctx(ctx).Successf("Updated LLM integration %s", updated.Name)
	return nil
}

func (cmd *LLMCmd) remove(ctx context.Context, _ *cli.Command) error {
	if cmd.scope.llm == "" {
		return fmt.Errorf("pass --llm")
	}
	it, err := resolver{cmd.app}.llm(ctx, cmd.scope.llm)
	if err != nil {
		return err
	}
	ok, err := confirmDelete("LLM integration "+it.Name, cmd.yes)
	if err != nil || !ok {
		return err
	}
	if err := cmd.app.Client.LLM().Delete(ctx, it.ID); err != nil {
		return fmt.Errorf("delete LLM integration: %w", err)
	}
	if cmd.app.Prefs.LastLLM(ctx) == it.ID {
		_ = cmd.app.Prefs.Remember(ctx, cmd.app.Prefs.LastWorkspace(ctx), 0)
	}
	printer.Ctx(ctx).Successf("Deleted LLM integration %s", it.Name)
	return nil
}
