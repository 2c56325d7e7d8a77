// Package api is the typed gateway to the review service REST API. Every
// response is normalized into the domain types of internal/core before it
// leaves this package.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/colonyops/sage/internal/core/auth"
	"github.com/colonyops/sage/internal/core/llm"
	"github.com/colonyops/sage/internal/core/review"
	"github.com/colonyops/sage/internal/core/workspace"
	"github.com/gregjones/httpcache"
	"github.com/rs/zerolog"
)

// Compile-time interface satisfaction checks.
var (
	_ workspace.Service = (*Client)(nil)
	_ review.Service    = (*Client)(nil)
	_ llm.Service       = LLMClient{}
)

const userAgent = "sage-cli"

// Client talks JSON over HTTP(S) to the review service.
type Client struct {
	baseURL string
	http    *http.Client
	creds   auth.Credentials
	log     zerolog.Logger
	now     func() time.Time

	// refreshMu serializes token refreshes so concurrent 401s refresh once.
	refreshMu sync.Mutex
}

type options struct {
	httpClient *http.Client
	transport  http.RoundTripper
	creds      auth.Credentials
	cache      bool
	timeout    time.Duration
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*options)

// WithHTTPClient uses the given client as-is. Cache and timeout options are
// ignored. Intended for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithTransport sets the base round tripper wrapped by the cache.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithCredentials attaches bearer tokens and enables refresh on 401.
func WithCredentials(c auth.Credentials) Option {
	return func(o *options) { o.creds = c }
}

// WithCache toggles ETag/Last-Modified revalidation caching for GET requests.
func WithCache(enabled bool) Option {
	return func(o *options) { o.cache = enabled }
}

// WithTimeout bounds every request. Zero disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithLogger sets the request logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New creates a client for the API rooted at baseURL, for example
// http://localhost:8000/api.
func New(baseURL string, opts ...Option) *Client {
	o := options{
		cache:   true,
		timeout: 30 * time.Second,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	hc := o.httpClient
	if hc == nil {
		base := o.transport
		if base == nil {
			base = http.DefaultTransport
		}
		if o.cache {
			cached := httpcache.NewMemoryCacheTransport()
			cached.Transport = base
			base = cached
		}
		hc = &http.Client{Transport: base, Timeout: o.timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		creds:   o.creds,
		log:     o.logger,
		now:     time.Now,
	}
}

// BaseURL returns the API root the client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	// anonymous requests never carry or refresh credentials.
	anonymous bool
}

// do sends the request and decodes a successful response body with decode.
// A nil decode discards the body.
func (c *Client) do(ctx context.Context, r request, decode func([]byte) error) error {
	var payload []byte
	if r.body != nil {
		var err error
		payload, err = json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", r.method, r.path, err)
		}
	}

	var tokens auth.Tokens
	if !r.anonymous && c.creds != nil {
		t, err := c.creds.Load(ctx)
		if err != nil && !errors.Is(err, auth.ErrNotLoggedIn) {
			return fmt.Errorf("load credentials: %w", err)
		}
		tokens = t
	}

	status, body, err := c.send(ctx, r, payload, tokens.Access)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && !r.anonymous && tokens.Refresh != "" {
		refreshed, rerr := c.refresh(ctx, tokens)
		if rerr != nil {
			c.log.Warn().Ctx(ctx).Err(rerr).Msg("token refresh failed")
			return newHTTPError(r.method, r.path, status, body)
		}
		status, body, err = c.send(ctx, r, payload, refreshed.Access)
		if err != nil {
			return err
		}
	}

	if status < 200 || status > 299 {
		return newHTTPError(r.method, r.path, status, body)
	}

	if decode == nil {
		return nil
	}
	if err := decode(body); err != nil {
		return &Error{
			Kind:    KindServer,
			Method:  r.method,
			Path:    r.path,
			Status:  status,
			Message: "malformed response",
			Err:     err,
		}
	}
	return nil
}

func (c *Client) send(ctx context.Context, r request, payload []byte, access string) (int, []byte, error) {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build %s %s: %w", r.method, r.path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.method == http.MethodGet {
		// A zero max-age makes the cache revalidate every entry with its
		// validators; cached bodies only save the transfer.
		req.Header.Set("Cache-Control", "max-age=0")
	}
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, &Error{
			Kind:    KindTransport,
			Method:  r.method,
			Path:    r.path,
			Message: "could not reach the review service",
			Err:     err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &Error{
			Kind:    KindTransport,
			Method:  r.method,
			Path:    r.path,
			Status:  resp.StatusCode,
			Message: "connection dropped while reading response",
			Err:     err,
		}
	}

	c.log.Debug().Ctx(ctx).
		Str("method", r.method).
		Str("path", r.path).
		Int("status", resp.StatusCode).
		Bool("cached", resp.Header.Get(httpcache.XFromCache) != "").
		Dur("elapsed", c.now().Sub(start)).
		Msg("api request")

	return resp.StatusCode, body, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, decode func([]byte) error) error {
	return c.do(ctx, request{method: http.MethodGet, path: path, query: query}, decode)
}

func (c *Client) post(ctx context.Context, path string, body any, decode func([]byte) error) error {
	return c.do(ctx, request{method: http.MethodPost, path: path, body: body}, decode)
}

func (c *Client) patch(ctx context.Context, path string, body any, decode func([]byte) error) error {
	return c.do(ctx, request{method: http.MethodPatch, path: path, body: body}, decode)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: path}, nil)
}
