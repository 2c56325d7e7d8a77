// Package auth defines the bearer credentials the console presents to the
// review service.
package auth

import (
	"context"
	"errors"
	"time"
)

// ErrNotLoggedIn is returned when no credentials are stored.
var ErrNotLoggedIn = errors.New("not logged in: run `sage login`")

// Tokens is an access/refresh token pair issued by the review service.
type Tokens struct {
	Access    string     `json:"access"`
	Refresh   string     `json:"refresh,omitempty"`
	Username  string     `json:"username,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// IsZero reports whether no access token is present.
func (t Tokens) IsZero() bool {
	return t.Access == ""
}

// Expired reports whether the access token is known to be expired at now.
func (t Tokens) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// Credentials loads and persists tokens.
type Credentials interface {
	// Load returns the stored tokens or ErrNotLoggedIn.
	Load(ctx context.Context) (Tokens, error)
	Save(ctx context.Context, t Tokens) error
	Clear(ctx context.Context) error
}

// Static serves a fixed access token, used for SAGE_TOKEN and tests.
// Saves are kept in memory.
type Static struct {
	tokens Tokens
}

// NewStatic returns credentials holding a fixed access token.
func NewStatic(access string) *Static {
	return &Static{tokens: Tokens{Access: access}}
}

func (s *Static) Load(context.Context) (Tokens, error) {
	if s.tokens.IsZero() {
		return Tokens{}, ErrNotLoggedIn
	}
	return s.tokens, nil
}

func (s *Static) Save(_ context.Context, t Tokens) error {
	s.tokens = t
	return nil
}

func (s *Static) Clear(context.Context) error {
	s.tokens = Tokens{}
	return nil
}

// LoginInput is the username/password exchange for tokens.
type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterInput creates an account.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}
