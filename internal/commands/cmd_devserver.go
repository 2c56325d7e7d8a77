package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/sage/internal/devserver"
	"github.com/colonyops/sage/internal/printer"
)

type DevServerCmd struct {
	flags *Flags

	addr   string
	demo   bool
	users  []string
	tokens []string
}

// NewDevServerCmd creates the dev-server command.
func NewDevServerCmd(flags *Flags) *DevServerCmd {
	return &DevServerCmd{flags: flags}
}

// Register adds the dev-server command to the application.
func (cmd *DevServerCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "dev-server",
		Usage: "Serve an in-memory review API for local development",
		Description: `Serves the review API under /api with in-memory state. Review runs
advance one step each time their detail is fetched.

With --demo the server starts with user demo/demo, a workspace, a GitHub
integration with a connected repository and an Ollama LLM integration.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Sources:     cli.EnvVars("SAGE_DEV_ADDR"),
				Destination: &cmd.addr,
			},
			&cli.BoolFlag{Name: "demo", Usage: "seed demo data", Destination: &cmd.demo},
			&cli.StringSliceFlag{
				Name:        "user",
				Usage:       "username:password accepted by login (repeatable)",
				Destination: &cmd.users,
			},
			&cli.StringSliceFlag{
				Name:        "token",
				Usage:       "static access token accepted without login (repeatable)",
				Destination: &cmd.tokens,
			},
		},
		Action: cmd.run,
	})
	return app
}

func parseUsers(pairs []string) (map[string]string, error) {
	users := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, pass, ok := strings.Cut(pair, ":")
		if !ok || name == "" || pass == "" {
			return nil, fmt.Errorf("invalid --user %q: want username:password", pair)
		}
		users[name] = pass
	}
	return users, nil
}

func (cmd *DevServerCmd) run(ctx context.Context, _ *cli.Command) error {
	users, err := parseUsers(cmd.users)
	if err != nil {
		return err
	}
	srv := devserver.New(devserver.Options{
		Logger: log.Logger.With().Str("component", "devserver").Logger(),
		Users:  users,
		Tokens: cmd.tokens,
		Demo:   cmd.demo,
	})
	printer.Ctx(ctx).Infof("Serving the review API at http://%s/api", cmd.addr)
	return srv.ListenAndServe(ctx, cmd.addr)
}
