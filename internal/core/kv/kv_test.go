package kv_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/colonyops/sage/internal/core/kv"
	"github.com/colonyops/sage/internal/data/db"
	"github.com/colonyops/sage/internal/data/stores"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKV(t *testing.T) kv.KV {
	t.Helper()
	database, err := db.Open(t.TempDir(), db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return stores.NewKVStore(database)
}

func TestTypedKV_GetOrFallsBackWhenMissing(t *testing.T) {
	ctx := context.Background()
	prefs := kv.Scoped[int64](newTestKV(t), "console")

	got, err := prefs.GetOr(ctx, "last_llm", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got)

	require.NoError(t, prefs.Set(ctx, "last_llm", 3))
	got, err = prefs.GetOr(ctx, "last_llm", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got)

	_, err = prefs.Get(ctx, "last_workspace")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestTypedKV_NamespacesDoNotOverlap(t *testing.T) {
	ctx := context.Background()
	store := newTestKV(t)

	console := kv.Scoped[int64](store, "console")
	consoleExtra := kv.Scoped[int64](store, "console2")
	require.NoError(t, console.Set(ctx, "last_workspace", 10))
	require.NoError(t, consoleExtra.Set(ctx, "last_workspace", 20))

	keys, err := console.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"last_workspace"}, keys)

	require.NoError(t, console.Clear(ctx))

	_, err = console.Get(ctx, "last_workspace")
	require.ErrorIs(t, err, sql.ErrNoRows)
	v, err := consoleExtra.Get(ctx, "last_workspace")
	require.NoError(t, err)
	assert.Equal(t, int64(20), v)
}

func TestTypedKV_ExpiredKeyIsMissing(t *testing.T) {
	ctx := context.Background()
	tokens := kv.Scoped[string](newTestKV(t), "auth")

	require.NoError(t, tokens.SetTTL(ctx, "tokens", "short-lived", time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err := tokens.Get(ctx, "tokens")
	require.ErrorIs(t, err, sql.ErrNoRows)

	keys, err := tokens.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, tokens.Delete(ctx, "tokens"))
}
