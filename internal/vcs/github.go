// Package vcs checks Git hosting credentials before they are handed to the
// review service.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/colonyops/sage/internal/core/logging"
	"github.com/colonyops/sage/internal/core/workspace"
	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"
	"github.com/rs/zerolog"
)

// ErrUnsupportedProvider is returned for providers without a preflight.
var ErrUnsupportedProvider = errors.New("token preflight is only supported for github")

// Identity is what a token resolves to on the provider.
type Identity struct {
	Login         string    `json:"login"`
	Name          string    `json:"name,omitempty"`
	Scopes        []string  `json:"scopes,omitempty"`
	RateRemaining int       `json:"rate_remaining"`
	RateReset     time.Time `json:"rate_reset"`
}

// HasScope reports whether the token carries scope. Fine-grained tokens do
// not report scopes; they are treated as sufficient.
func (id Identity) HasScope(scope string) bool {
	if len(id.Scopes) == 0 {
		return true
	}
	for _, s := range id.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// GitHub talks to the GitHub REST API with a personal access token.
type GitHub struct {
	gh  *gh.Client
	log zerolog.Logger
}

// NewGitHub returns a client with the transport stack:
//  1. httpcache (ETag revalidation)
//  2. go-github-ratelimit (sleeps on secondary rate limits)
//  3. go-github with token auth
//
// An empty baseURL targets api.github.com.
func NewGitHub(token, baseURL string) (*GitHub, error) {
	cached := httpcache.NewMemoryCacheTransport()
	return newGitHub(github_ratelimit.NewClient(cached), baseURL, token)
}

// NewGitHubWithHTTPClient is NewGitHub with an injected http.Client.
func NewGitHubWithHTTPClient(hc *http.Client, baseURL, token string) (*GitHub, error) {
	return newGitHub(hc, baseURL, token)
}

func newGitHub(hc *http.Client, baseURL, token string) (*GitHub, error) {
	client := gh.NewClient(hc).WithAuthToken(token)
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse github base url: %w", err)
		}
		client.BaseURL = u
	}
	return &GitHub{gh: client, log: logging.Component("vcs")}, nil
}

// Verify resolves the token to its user.
func (g *GitHub) Verify(ctx context.Context) (Identity, error) {
	user, resp, err := g.gh.Users.Get(ctx, "")
	if err != nil {
		return Identity{}, fmt.Errorf("verify github token: %w", err)
	}
	g.logRate(resp, "user")

	id := Identity{
		Login:         user.GetLogin(),
		Name:          user.GetName(),
		RateRemaining: resp.Rate.Remaining,
		RateReset:     resp.Rate.Reset.Time,
	}
	if raw := resp.Header.Get("X-OAuth-Scopes"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				id.Scopes = append(id.Scopes, s)
			}
		}
	}
	return id, nil
}

// Repositories lists up to limit repositories the token can see, most
// recently pushed first, shaped like the service's available listing.
func (g *GitHub) Repositories(ctx context.Context, limit int) ([]workspace.AvailableRepository, error) {
	opts := &gh.RepositoryListByAuthenticatedUserOptions{
		Sort:        "pushed",
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var out []workspace.AvailableRepository
	for {
		repos, resp, err := g.gh.Repositories.ListByAuthenticatedUser(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("list github repositories (page %d): %w", opts.Page, err)
		}
		g.logRate(resp, "user/repos")

		for _, r := range repos {
			out = append(out, workspace.AvailableRepository{
				ExternalID:    strconv.FormatInt(r.GetID(), 10),
				Name:          r.GetName(),
				FullPath:      r.GetFullName(),
				DefaultBranch: r.GetDefaultBranch(),
			})
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func (g *GitHub) logRate(resp *gh.Response, endpoint string) {
	if resp == nil {
		return
	}
	ev := g.log.Debug()
	if resp.Rate.Remaining < 100 {
		ev = g.log.Warn()
	}
	ev.Str("endpoint", endpoint).
		Int("rate_remaining", resp.Rate.Remaining).
		Int("rate_limit", resp.Rate.Limit).
		Msg("github api call")
}

// Preflight verifies an integration token before it is sent to the review
// service.
func Preflight(ctx context.Context, provider workspace.Provider, token, baseURL string) (Identity, error) {
	if provider != workspace.ProviderGitHub {
		return Identity{}, ErrUnsupportedProvider
	}
	client, err := NewGitHub(token, baseURL)
	if err != nil {
		return Identity{}, err
	}
	return client.Verify(ctx)
}
