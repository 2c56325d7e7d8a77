package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/colonyops/sage/internal/core/auth"
	"github.com/colonyops/sage/internal/core/kv"
)

const tokensKey = "tokens"

// CredentialStore persists review service tokens in the local KV store.
type CredentialStore struct {
	tokens *kv.TypedKV[auth.Tokens]
}

var _ auth.Credentials = (*CredentialStore)(nil)

// NewCredentialStore returns credentials stored under the "auth" namespace.
func NewCredentialStore(store kv.KV) *CredentialStore {
	return &CredentialStore{tokens: kv.Scoped[auth.Tokens](store, "auth")}
}

// Load returns the stored tokens, or auth.ErrNotLoggedIn when none exist.
func (s *CredentialStore) Load(ctx context.Context) (auth.Tokens, error) {
	t, err := s.tokens.Get(ctx, tokensKey)
	if IsNotFoundError(err) {
		return auth.Tokens{}, auth.ErrNotLoggedIn
	}
	if err != nil {
		return auth.Tokens{}, fmt.Errorf("load credentials: %w", err)
	}
	if t.IsZero() {
		return auth.Tokens{}, auth.ErrNotLoggedIn
	}
	return t, nil
}

// Save stores tokens. Tokens without a refresh token but with a known expiry
// are dropped from the store once they expire.
func (s *CredentialStore) Save(ctx context.Context, t auth.Tokens) error {
	if t.IsZero() {
		return errors.New("save credentials: access token is empty")
	}

	if t.Refresh == "" && t.ExpiresAt != nil {
		ttl := time.Until(*t.ExpiresAt)
		if ttl <= 0 {
			return errors.New("save credentials: token already expired")
		}
		return s.tokens.SetTTL(ctx, tokensKey, t, ttl)
	}
	return s.tokens.Set(ctx, tokensKey, t)
}

// Clear removes the stored tokens.
func (s *CredentialStore) Clear(ctx context.Context) error {
	return s.tokens.Delete(ctx, tokensKey)
}
