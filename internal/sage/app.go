// Package sage wires configuration, local storage and the review service
// gateway into the App that commands and the console consume.
package sage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/colonyops/sage/internal/console"
	"github.com/colonyops/sage/internal/core/auth"
	"github.com/colonyops/sage/internal/core/config"
	"github.com/colonyops/sage/internal/core/logging"
	"github.com/colonyops/sage/internal/data/api"
	"github.com/colonyops/sage/internal/data/db"
	"github.com/colonyops/sage/internal/data/stores"
	tuinotify "github.com/colonyops/sage/internal/tui/notify"
)

// App is the central entry point for all sage operations.
// Commands and the TUI consume App instead of cherry-picking raw dependencies.
type App struct {
	Config *config.Config
	DB     *db.DB
	KV     *stores.KVStore
	Client *api.Client

	Credentials   auth.Credentials
	Prefs         *Prefs
	Notifications *stores.NotifyStore

	log zerolog.Logger
}

// Options configures NewApp.
type Options struct {
	// Token overrides stored credentials with a fixed access token.
	Token string
	// BaseURL overrides the configured API root.
	BaseURL string
	Logger  *zerolog.Logger
}

// NewApp constructs an App from the loaded config and an open database.
func NewApp(cfg *config.Config, database *db.DB, opts Options) *App {
	log := logging.Component("app")
	if opts.Logger != nil {
		log = *opts.Logger
	}

	kvStore := stores.NewKVStore(database)

	var creds auth.Credentials = stores.NewCredentialStore(kvStore)
	if opts.Token != "" {
		creds = auth.NewStatic(opts.Token)
	}

	baseURL := cfg.API.BaseURL
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}

	client := api.New(baseURL,
		api.WithCredentials(creds),
		api.WithCache(cfg.API.CacheEnabled()),
		api.WithTimeout(cfg.API.Timeout),
		api.WithLogger(log.With().Str("cmp", "api").Logger()),
	)

	return &App{
		Config:        cfg,
		DB:            database,
		KV:            kvStore,
		Client:        client,
		Credentials:   creds,
		Prefs:         NewPrefs(kvStore),
		Notifications: stores.NewNotifyStore(database),
		log:           log,
	}
}

// Gateway returns the remote services the console drives.
func (a *App) Gateway() console.Gateway {
	return console.Gateway{
		Workspaces: a.Client,
		Reviews:    a.Client,
		LLMs:       a.Client.LLM(),
	}
}

// NewSession returns a console session configured from the review
// settings. The remembered LLM wins over the configured default.
func (a *App) NewSession(ctx context.Context) *console.Session {
	defaultLLM := a.Config.Review.DefaultLLM
	if id := a.Prefs.LastLLM(ctx); id != 0 {
		defaultLLM = id
	}
	return console.NewSession(ctx, a.Gateway(), console.Options{
		Clock:        console.RealClock{},
		PollInterval: a.Config.Review.PollInterval,
		MaxPolls:     a.Config.Review.MaxPolls,
		DefaultLLM:   defaultLLM,
	})
}

// NotifyBus returns a notification bus persisting to the local history.
func (a *App) NotifyBus() *tuinotify.Bus {
	return tuinotify.NewBus(a.Notifications)
}

// Login exchanges a username and password for tokens and stores them.
func (a *App) Login(ctx context.Context, in auth.LoginInput) (auth.Tokens, error) {
	t, err := a.Client.Login(ctx, in)
	if err != nil {
		return auth.Tokens{}, err
	}
	a.log.Info().Str("username", t.Username).Msg("logged in")
	return t, nil
}

// Register creates an account and stores the issued tokens.
func (a *App) Register(ctx context.Context, in auth.RegisterInput) (auth.Tokens, error) {
	return a.Client.Register(ctx, in)
}

// Logout forgets stored tokens and console preferences.
func (a *App) Logout(ctx context.Context) error {
	if err := a.Credentials.Clear(ctx); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	if err := a.Prefs.Clear(ctx); err != nil {
		return fmt.Errorf("clear preferences: %w", err)
	}
	return nil
}

// Whoami returns the stored tokens.
func (a *App) Whoami(ctx context.Context) (auth.Tokens, error) {
	return a.Credentials.Load(ctx)
}
