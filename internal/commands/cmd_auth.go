package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/sage/internal/core/auth"
	"github.com/colonyops/sage/internal/printer"
	"github.com/colonyops/sage/internal/sage"
	"github.com/colonyops/sage/pkg/iojson"
)

type AuthCmd struct {
	flags *Flags
	app   *sage.App

	username   string
	password   string
	email      string
	register   bool
	jsonOutput bool
}

// NewAuthCmd creates the login, logout and whoami commands.
func NewAuthCmd(flags *Flags, app *sage.App) *AuthCmd {
	return &AuthCmd{flags: flags, app: app}
}

// Register adds the authentication commands to the application.
func (cmd *AuthCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands,
		&cli.Command{
			Name:      "login",
			Usage:     "Log in to the review service",
			UsageText: "sage login [--username NAME] [--password PASS]",
			Description: `Exchanges a username and password for tokens and stores them in the local
database. Missing values are prompted for when running in a terminal.

Use --register to create the account first.`,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:        "username",
					Aliases:     []string{"u"},
					Sources:     cli.EnvVars("SAGE_USERNAME"),
					Destination: &cmd.username,
				},
				&cli.StringFlag{
					Name:        "password",
					Aliases:     []string{"p"},
					Sources:     cli.EnvVars("SAGE_PASSWORD"),
					Destination: &cmd.password,
				},
				&cli.BoolFlag{
					Name:        "register",
					Usage:       "create the account before logging in",
					Destination: &cmd.register,
				},
				&cli.StringFlag{
					Name:        "email",
					Usage:       "email for --register",
					Destination: &cmd.email,
				},
			},
			Action: cmd.login,
		},
		&cli.Command{
			Name:   "logout",
			Usage:  "Forget stored tokens and console preferences",
			Action: cmd.logout,
		},
		&cli.Command{
			Name:  "whoami",
			Usage: "Show the logged in user",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "json", Usage: "output as JSON", Destination: &cmd.jsonOutput},
			},
			Action: cmd.whoami,
		},
	)
	return app
}

func (cmd *AuthCmd) prompt() error {
	if cmd.username != "" && cmd.password != "" {
		return nil
	}
	if !interactive() {
		return errors.New("--username and --password are required when not running in a terminal")
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Validate(required("username")).
				Value(&cmd.username),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Validate(required("password")).
				Value(&cmd.password),
		),
	).Run()
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func (cmd *AuthCmd) login(ctx context.Context, _ *cli.Command) error {
	p := printer.Ctx(ctx)
	if cmd.flags.Token != "" {
		return errors.New("SAGE_TOKEN is set; unset it to use stored credentials")
	}

	if err := cmd.prompt(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		return fmt.Errorf("form: %w", err)
	}

	if cmd.register {
		tokens, err := cmd.app.Register(ctx, auth.RegisterInput{
			Username: cmd.username,
			Email:    cmd.email,
			Password: cmd.password,
		})
		if err != nil {
			return fmt.Errorf("register: %w", err)
		}
		if !tokens.IsZero() {
			p.Successf("Registered and logged in as %s", tokens.Username)
			return nil
		}
		p.Successf("Registered %s", cmd.username)
	}

	tokens, err := cmd.app.Login(ctx, auth.LoginInput{Username: cmd.username, Password: cmd.password})
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	p.Successf("Logged in as %s", tokens.Username)
	return nil
}

func (cmd *AuthCmd) logout(ctx context.Context, _ *cli.Command) error {
	if err := cmd.app.Logout(ctx); err != nil {
		return err
	}
	printer.Ctx(ctx).Successf("Logged out")
	return nil
}

func (cmd *AuthCmd) whoami(ctx context.Context, c *cli.Command) error {
	tokens, err := cmd.app.Whoami(ctx)
	if err != nil {
		return err
	}

	info := struct {
		Username  string `json:"username,omitempty"`
		BaseURL   string `json:"base_url"`
		ExpiresAt string `json:"expires_at,omitempty"`
		Refresh   bool   `json:"refreshable"`
	}{
		Username: tokens.Username,
		BaseURL:  cmd.app.Client.BaseURL(),
		Refresh:  tokens.Refresh != "",
	}
	if tokens.ExpiresAt != nil {
		info.ExpiresAt = tokens.ExpiresAt.Format("2006-01-02 15:04:05")
	}

	if cmd.jsonOutput {
		return iojson.WriteLine(c.Root().Writer, info)
	}
	name := info.Username
	if name == "" {
		name = "(token)"
	}
	_, _ = fmt.Fprintf(c.Root().Writer, "%s @ %s\n", name, info.BaseURL)
	return nil
}
