package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/colonyops/sage/internal/core/auth"
)

var errNoAccessToken = errors.New("response did not include an access token")

// Login exchanges a username and password for tokens and stores them in the
// client's credentials when configured.
func (c *Client) Login(ctx context.Context, in auth.LoginInput) (auth.Tokens, error) {
	return c.exchange(ctx, "/users/login/", in, in.Username)
}

// Register creates an account. Servers that answer with tokens log the user
// in immediately; otherwise the returned tokens are empty.
func (c *Client) Register(ctx context.Context, in auth.RegisterInput) (auth.Tokens, error) {
	var w tokenWire
	err := c.do(ctx, request{method: http.MethodPost, path: "/users/register/", body: in, anonymous: true}, func(b []byte) error {
		return decodeToken(b, &w)
	})
	if err != nil {
		return auth.Tokens{}, err
	}
	tokens := w.tokens(c.now)
	if tokens.IsZero() {
		return auth.Tokens{}, nil
	}
	if tokens.Username == "" {
		tokens.Username = in.Username
	}
	return tokens, c.save(ctx, tokens)
}

func (c *Client) exchange(ctx context.Context, path string, body any, username string) (auth.Tokens, error) {
	var w tokenWire
	err := c.do(ctx, request{method: http.MethodPost, path: path, body: body, anonymous: true}, func(b []byte) error {
		return decodeToken(b, &w)
	})
	if err != nil {
		return auth.Tokens{}, err
	}

	tokens := w.tokens(c.now)
	if tokens.IsZero() {
		return auth.Tokens{}, &Error{Kind: KindServer, Method: http.MethodPost, Path: path, Message: "login failed", Err: errNoAccessToken}
	}
	if tokens.Username == "" {
		tokens.Username = username
	}
	return tokens, c.save(ctx, tokens)
}

func decodeToken(b []byte, w *tokenWire) error {
	if isNull(b) {
		return nil
	}
	return decodeObject(b, w)
}

func (c *Client) save(ctx context.Context, t auth.Tokens) error {
	if c.creds == nil {
		return nil
	}
	return c.creds.Save(ctx, t)
}

// refresh trades the refresh token for a new access token. Concurrent
// callers that lost the race reuse the token the winner stored.
func (c *Client) refresh(ctx context.Context, stale auth.Tokens) (auth.Tokens, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if current, err := c.creds.Load(ctx); err == nil && current.Access != "" && current.Access != stale.Access {
		return current, nil
	}

	var w tokenWire
	req := request{
		method:    http.MethodPost,
		path:      "/users/refresh/",
		body:      map[string]string{"refresh": stale.Refresh},
		anonymous: true,
	}
	if err := c.do(ctx, req, func(b []byte) error { return decodeToken(b, &w) }); err != nil {
		return auth.Tokens{}, err
	}

	tokens := w.tokens(c.now)
	if tokens.IsZero() {
		return auth.Tokens{}, errNoAccessToken
	}
	if tokens.Refresh == "" {
		tokens.Refresh = stale.Refresh
	}
	if tokens.Username == "" {
		tokens.Username = stale.Username
	}

	c.log.Debug().Ctx(ctx).Msg("access token refreshed")
	return tokens, c.creds.Save(ctx, tokens)
}
