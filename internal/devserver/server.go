// Package devserver is an in-memory implementation of the review service
// REST API. It backs `sage devserver` for local development and the
// end-to-end tests of the console and the API client.
package devserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

const userKey = "devserver.user"

// Options configures a Server.
type Options struct {
	Logger zerolog.Logger
	// AccessTTL bounds issued access tokens. Zero means 15 minutes.
	AccessTTL time.Duration
	// Users maps usernames to passwords.
	Users map[string]string
	// Tokens are access tokens accepted for the "dev" user without login.
	Tokens []string
	// Demo seeds a workspace, an integration, a repository with merge
	// requests and an LLM integration.
	Demo bool
	Now  func() time.Time
}

// Server serves the API under /api.
type Server struct {
	log       zerolog.Logger
	now       func() time.Time
	accessTTL time.Duration
	echo      *echo.Echo

	mu sync.Mutex
	st *state
}

// New builds a server with empty state, or demo state when opts.Demo is set.
func New(opts Options) *Server {
	s := &Server{
		log:       opts.Logger,
		now:       opts.Now,
		accessTTL: opts.AccessTTL,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.accessTTL <= 0 {
		s.accessTTL = 15 * time.Minute
	}

	s.st = newState()
	for name, pass := range opts.Users {
		s.st.users[name] = pass
	}
	for _, tok := range opts.Tokens {
		s.st.access[tok] = session{username: "dev"}
	}
	if opts.Demo {
		s.st.seedDemo(s.now())
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	s.configureMiddleware(e)
	s.configureRoutes(e)
	s.echo = e
	return s
}

// Handler returns the HTTP handler, for httptest servers.
func (s *Server) Handler() http.Handler { return s.echo }

// ListenAndServe serves on addr until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.echo,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("starting dev server")
		if err := s.echo.StartServer(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.log.Info().Msg("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}

// ExpireTokens invalidates every issued access token. Refresh tokens stay
// valid.
func (s *Server) ExpireTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tok, sess := range s.st.access {
		if sess.expires.IsZero() {
			continue
		}
		delete(s.st.access, tok)
	}
}

// Finish completes a run as succeeded immediately, as if the pipeline beat
// any pending request.
func (s *Server) Finish(runID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.st.runs[runID]
	if !ok {
		return false
	}
	now := s.now()
	for !r.Status.IsTerminal() {
		s.st.advance(r, now)
	}
	return true
}

func (s *Server) configureMiddleware(e *echo.Echo) {
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1 << 12,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			s.log.Error().
				Err(err).
				Bytes("stack", stack).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Msg("recovered from panic")
			return nil
		},
	}))

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			s.log.Debug().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogRequestID: true,
		LogStatus:    true,
	}))
}

// authenticate rejects requests without a live bearer token.
func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"detail": "Authentication credentials were not provided.",
			})
		}

		s.mu.Lock()
		sess, found := s.st.access[token]
		s.mu.Unlock()

		if !found || (!sess.expires.IsZero() && !s.now().Before(sess.expires)) {
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"detail": "Given token not valid for any token type",
				"code":   "token_not_valid",
			})
		}
		c.Set(userKey, sess.username)
		return next(c)
	}
}

func (s *Server) configureRoutes(e *echo.Echo) {
	api := e.Group("/api")

	users := api.Group("/users")
	users.POST("/login/", s.wrap(s.login))
	users.POST("/register/", s.wrap(s.register))
	users.POST("/refresh/", s.wrap(s.refresh))

	ws := api.Group("/workspace", s.authenticate)
	ws.GET("/list/", s.wrap(s.listWorkspaces))
	ws.POST("/create/", s.wrap(s.createWorkspace))
	ws.PATCH("/:wid/update/", s.wrap(s.updateWorkspace))
	ws.DELETE("/:wid/delete/", s.wrap(s.deleteWorkspace))

	ws.GET("/:wid/integrations/list/", s.wrap(s.listIntegrations))
	ws.POST("/:wid/integrations/create/", s.wrap(s.createIntegration))
	ws.PATCH("/:wid/integrations/:iid/update/", s.wrap(s.updateIntegration))
	ws.DELETE("/:wid/integrations/:iid/delete/", s.wrap(s.deleteIntegration))
	ws.GET("/:wid/integrations/:iid/repositories/available/", s.wrap(s.listAvailable))

	ws.GET("/:wid/repositories/list/", s.wrap(s.listRepositories))
	ws.POST("/:wid/repositories/connect/", s.wrap(s.connectRepositories))
	ws.DELETE("/:wid/repositories/:rid/delete/", s.wrap(s.deleteRepository))
	ws.GET("/:wid/repositories/:rid/merge-requests/", s.wrap(s.listMergeRequests))
	ws.POST("/:wid/repositories/:rid/merge-requests/sync/", s.wrap(s.syncMergeRequests))

	ws.GET("/:wid/merge-requests/:mid/reviews/list/", s.wrap(s.listRuns))
	ws.POST("/:wid/merge-requests/:mid/reviews/run/", s.wrap(s.startRun))
	ws.GET("/:wid/merge-requests/:mid/reviews/:rrid/detail/", s.wrap(s.getRun))
	ws.GET("/:wid/merge-requests/:mid/reviews/:rrid/comments/", s.wrap(s.listComments))
	ws.POST("/:wid/merge-requests/:mid/reviews/:rrid/rerun/", s.wrap(s.rerunRun))
	ws.POST("/:wid/merge-requests/:mid/reviews/:rrid/cancel/", s.wrap(s.cancelRun))
	ws.POST("/:wid/merge-requests/:mid/reviews/:rrid/publish/", s.wrap(s.publishRun))

	llms := api.Group("/llm/integrations", s.authenticate)
	llms.GET("/list/", s.wrap(s.listLLMs))
	llms.POST("/create/", s.wrap(s.createLLM))
	llms.PATCH("/:id/update/", s.wrap(s.updateLLM))
	llms.DELETE("/:id/delete/", s.wrap(s.deleteLLM))
}
