package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"slices"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/sage/internal/commands"
	"github.com/colonyops/sage/internal/core/config"
	"github.com/colonyops/sage/internal/core/logging"
	"github.com/colonyops/sage/internal/core/styles"
	"github.com/colonyops/sage/internal/data/db"
	"github.com/colonyops/sage/internal/data/stores"
	"github.com/colonyops/sage/internal/printer"
	"github.com/colonyops/sage/internal/sage"
	"github.com/colonyops/sage/pkg/iojson"
	"github.com/colonyops/sage/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, the values come from
	// runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		logCloser   func()
		sageApp     = &sage.App{}
		database    *db.DB
		sweepCancel context.CancelFunc
	)

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "sage",
		Usage:     "Operate an AI code review service from the terminal",
		UsageText: "sage [global options] command [command options]",
		Description: `Sage is a console for an AI code review service. It manages workspaces,
Git hosting integrations, connected repositories and LLM integrations, and
runs, follows and publishes reviews of merge requests.

Run 'sage login' first, then 'sage' with no arguments to open the console.
Run 'sage dev-server --demo' to try it against an in-memory service.`,
		Version:               build(),
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("SAGE_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to <data-dir>/sage.log)",
				Sources:     cli.EnvVars("SAGE_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("SAGE_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("SAGE_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
			&cli.StringFlag{
				Name:        "api-url",
				Usage:       "review service API root (overrides api.base_url)",
				Sources:     cli.EnvVars("SAGE_API_URL"),
				Destination: &flags.APIURL,
			},
			&cli.StringFlag{
				Name:        "token",
				Usage:       "access token to use instead of stored credentials",
				Sources:     cli.EnvVars("SAGE_TOKEN"),
				Destination: &flags.Token,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			flags.Config = cfg

			// Always log to a file; use explicit path or default to <datadir>/sage.log
			logFile := flags.LogFile
			if logFile == "" {
				logFile = cfg.LogFile()
			}
			logger, closer, err := logutils.New(flags.LogLevel, logFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger.Hook(logging.ContextHook{})
			logCloser = closer

			// Apply configured theme (validation ensures name is valid)
			palette, _ := styles.GetPalette(cfg.TUI.Theme)
			styles.SetTheme(palette)

			var backup string
			database, backup, err = stores.OpenDatabase(cfg.DataDir, db.DefaultOpenOptions(), log.Logger)
			if err != nil {
				return ctx, fmt.Errorf("open database: %w", err)
			}
			if backup != "" {
				printer.Ctx(ctx).Warnf("Local database was corrupt and has been reset (backup at %s); run sage login again", backup)
			}

			appLogger := log.With().Str("component", "sage").Logger()
			// Populate the pre-allocated App struct (commands already hold a pointer to it)
			*sageApp = *sage.NewApp(cfg, database, sage.Options{
				Token:   flags.Token,
				BaseURL: flags.APIURL,
				Logger:  &appLogger,
			})

			sweepCtx, cancel := context.WithCancel(context.Background())
			sweepCancel = cancel
			go sage.StartSweep(sweepCtx, sageApp.KV, 5*time.Minute)

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if sweepCancel != nil {
				sweepCancel()
			}

			if database != nil {
				if err := database.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close database")
					return err
				}
			}

			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	tuiCmd := commands.NewTuiCmd(flags, sageApp)

	app = commands.NewAuthCmd(flags, sageApp).Register(app)
	app = commands.NewWorkspaceCmd(flags, sageApp).Register(app)
	app = commands.NewIntegrationCmd(flags, sageApp).Register(app)
	app = commands.NewRepoCmd(flags, sageApp).Register(app)
	app = commands.NewMRCmd(flags, sageApp).Register(app)
	app = commands.NewReviewCmd(flags, sageApp).Register(app)
	app = commands.NewLLMCmd(flags, sageApp).Register(app)
	app = commands.NewDevServerCmd(flags).Register(app)
	app = commands.NewConfigValidateCmd(flags).Register(app)
	app = tuiCmd.Register(app)

	// Set TUI as default action when no subcommand is provided
	app.Action = func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() > 0 {
			return fmt.Errorf("unknown command %q. Run 'sage --help' for usage", c.Args().First())
		}
		return tuiCmd.Run(ctx, c)
	}

	exitCode := 0
	if err := app.Run(ctx, os.Args); err != nil {
		if slices.Contains(os.Args[1:], "--json") {
			_ = iojson.WriteError(err.Error(), commands.ErrorData(err))
		} else {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		exitCode = 1
	}

	stop()
	os.Exit(exitCode)
}
