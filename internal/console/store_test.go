package console

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_ResolveLatestTicket(t *testing.T) {
	var s Store[string]
	t1 := s.Begin(Scope{ID: 1})
	assert.True(t, s.Loading())

	require.True(t, s.Resolve(t1, []string{"a"}, nil))
	assert.False(t, s.Loading())
	assert.True(t, s.Loaded())
	assert.Equal(t, []string{"a"}, s.Items())
}

func TestStore_StaleTicketIgnored(t *testing.T) {
	var s Store[string]
	first := s.Begin(Scope{ID: 1})
	second := s.Begin(Scope{ID: 2})

	// The later request answers first.
	require.True(t, s.Resolve(second, []string{"b"}, nil))
	assert.False(t, s.Resolve(first, []string{"a"}, nil))
	assert.Equal(t, []string{"b"}, s.Items())
	assert.Equal(t, Scope{ID: 2}, s.Scope())
}

func TestStore_SameScopeReloadSupersedes(t *testing.T) {
	var s Store[string]
	first := s.Begin(Scope{ID: 1})
	require.True(t, s.Resolve(first, []string{"a"}, nil))

	older := s.Begin(Scope{ID: 1})
	newer := s.Begin(Scope{ID: 1})
	assert.Equal(t, []string{"a"}, s.Items(), "same scope keeps items while reloading")

	assert.True(t, s.Resolve(newer, []string{"a", "b"}, nil))
	assert.False(t, s.Resolve(older, []string{"x"}, nil))
	assert.Equal(t, []string{"a", "b"}, s.Items())
}

func TestStore_ScopeChangeDropsItems(t *testing.T) {
	var s Store[string]
	tk := s.Begin(Scope{ID: 1})
	require.True(t, s.Resolve(tk, []string{"a"}, nil))

	s.Begin(Scope{ID: 2})
	assert.Empty(t, s.Items())
	assert.False(t, s.Loaded())
}

func TestStore_ScopeKeyCountsAsScope(t *testing.T) {
	var s Store[string]
	open := s.Begin(Scope{ID: 1, Key: "open"})
	s.Begin(Scope{ID: 1, Key: "merged"})
	assert.False(t, s.Resolve(open, []string{"a"}, nil))
}

func TestStore_LoadErrorClearsItems(t *testing.T) {
	var s Store[string]
	tk := s.Begin(Scope{ID: 1})
	require.True(t, s.Resolve(tk, []string{"a"}, nil))

	boom := errors.New("boom")
	tk = s.Begin(Scope{ID: 1})
	require.True(t, s.Resolve(tk, nil, boom))
	assert.Empty(t, s.Items())
	assert.ErrorIs(t, s.Err(), boom)

	tk = s.Begin(Scope{ID: 1})
	require.True(t, s.Resolve(tk, nil, nil))
	assert.NoError(t, s.Err())
	assert.NotNil(t, s.Items())
	assert.Equal(t, 0, s.Len())
}

func TestStore_MutationFailedKeepsItems(t *testing.T) {
	var s Store[string]
	tk := s.Begin(Scope{ID: 1})
	require.True(t, s.Resolve(tk, []string{"a"}, nil))

	boom := errors.New("conflict")
	s.MutationFailed(boom)
	assert.Equal(t, []string{"a"}, s.Items())
	assert.ErrorIs(t, s.MutationErr(), boom)
	assert.NoError(t, s.Err())

	s.Begin(Scope{ID: 1})
	assert.NoError(t, s.MutationErr())
}

func TestStore_ClearInvalidatesInflight(t *testing.T) {
	var s Store[string]
	tk := s.Begin(Scope{ID: 1})
	v := s.Version()
	s.Clear()
	assert.Greater(t, s.Version(), v)
	assert.False(t, s.Resolve(tk, []string{"a"}, nil))
	assert.Empty(t, s.Items())
	assert.False(t, s.Loading())
	assert.Equal(t, Scope{}, s.Scope())
}

func TestTicket_Scope(t *testing.T) {
	var s Store[int]
	tk := s.Begin(Scope{ID: 7, Key: "open"})
	assert.Equal(t, Scope{ID: 7, Key: "open"}, tk.Scope())
}
