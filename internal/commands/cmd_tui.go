package commands

import (
	"context"
	"errors"
	"fmt"

	tea "charm.land/bubbletea/v2"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/sage/internal/core/auth"
	"github.com/colonyops/sage/internal/sage"
	"github.com/colonyops/sage/internal/tui"
)

type TuiCmd struct {
	flags *Flags
	app   *sage.App
}

// NewTuiCmd creates a new tui command
func NewTuiCmd(flags *Flags, app *sage.App) *TuiCmd {
	return &TuiCmd{
		flags: flags,
		app:   app,
	}
}

// Register adds the tui command to the application.
func (cmd *TuiCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:   "tui",
		Usage:  "Open the review console (default command)",
		Action: cmd.run,
	})
	return app
}

// Run executes the TUI. Exported for use as default command.
func (cmd *TuiCmd) Run(ctx context.Context, c *cli.Command) error {
	return cmd.run(ctx, c)
}

func (cmd *TuiCmd) run(ctx context.Context, _ *cli.Command) error {
	tokens, err := cmd.app.Whoami(ctx)
	if errors.Is(err, auth.ErrNotLoggedIn) {
		return errors.New("not logged in: run sage login first")
	}
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := cmd.app.NewSession(ctx)
	defer s.Close()

	m := tui.New(tui.Options{
		Session:   s,
		Bus:       cmd.app.NotifyBus(),
		ToastTTL:  cmd.app.Config.TUI.ToastDuration,
		User:      tokens.Username,
		BaseURL:   cmd.app.Client.BaseURL(),
		Workspace: cmd.app.Prefs.LastWorkspace(ctx),
		OnExit: func(workspaceID, llmID int64) {
			if err := cmd.app.Prefs.Remember(context.WithoutCancel(ctx), workspaceID, llmID); err != nil {
				log.Warn().Err(err).Msg("failed to remember console selection")
			}
		},
	})

	if _, err := tea.NewProgram(m).Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
