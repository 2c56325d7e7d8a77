package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/sage/internal/sage"
)

// WorkspaceCompleter suggests workspace names for commands whose first
// argument is a workspace. Nothing is suggested once it has been given.
func WorkspaceCompleter(app *sage.App) cli.ShellCompleteFunc {
	return completeArg(1, func(ctx context.Context) ([]string, error) {
		items, err := app.Client.ListWorkspaces(ctx)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(items))
		for _, ws := range items {
			names = append(names, ws.Name)
		}
		return names, nil
	})
}

// completeArg suggests names for positional argument n (1-based). A word
// starting with "-" falls back to flag completion.
func completeArg(n int, names func(context.Context) ([]string, error)) cli.ShellCompleteFunc {
	return func(ctx context.Context, cmd *cli.Command) {
		args := cmd.Args().Slice()
		if len(args) > 0 && strings.HasPrefix(args[len(args)-1], "-") {
			cli.DefaultCompleteWithFlags(ctx, cmd)
			return
		}
		if len(args) >= n {
			return
		}

		list, err := names(ctx)
		if err != nil {
			log.Debug().Err(err).Str("command", cmd.FullName()).Msg("shell completion")
			return
		}
		w := cmd.Root().Writer
		for _, name := range list {
			_, _ = fmt.Fprintln(w, name)
		}
	}
}
