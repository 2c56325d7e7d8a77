package stores

import (
	"context"
	"testing"
	"time"

	"github.com/colonyops/sage/internal/core/notify"
	"github.com/colonyops/sage/internal/data/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNotifyStore(t *testing.T) *NotifyStore {
	t.Helper()
	database, err := db.Open(t.TempDir(), db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return NewNotifyStore(database)
}

// seedNotices saves one info notice per message, one second apart.
func seedNotices(t *testing.T, store *NotifyStore, msgs ...string) {
	t.Helper()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, msg := range msgs {
		_, err := store.Save(context.Background(), notify.Notification{
			Source:    "review",
			Level:     notify.LevelInfo,
			Message:   msg,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}
}

func messages(t *testing.T, store *NotifyStore) []string {
	t.Helper()
	items, err := store.List(context.Background())
	require.NoError(t, err)
	out := make([]string, 0, len(items))
	for _, n := range items {
		out = append(out, n.Message)
	}
	return out
}

func TestNotifyStore_SaveKeepsSourceAndLevel(t *testing.T) {
	store := newTestNotifyStore(t)
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	id, err := store.Save(context.Background(), notify.Notification{
		Source:    "workspace",
		Level:     notify.LevelError,
		Message:   "create workspace: name: required",
		CreatedAt: at,
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	items, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].ID)
	assert.Equal(t, "workspace", items[0].Source)
	assert.Equal(t, notify.LevelError, items[0].Level)
	assert.True(t, at.Equal(items[0].CreatedAt))
}

func TestNotifyStore_ListNewestFirst(t *testing.T) {
	store := newTestNotifyStore(t)
	seedNotices(t, store, "run queued", "run running", "run succeeded")

	assert.Equal(t, []string{"run succeeded", "run running", "run queued"}, messages(t, store))
}

func TestNotifyStore_ClearLeavesEmptyList(t *testing.T) {
	store := newTestNotifyStore(t)
	seedNotices(t, store, "a", "b")

	require.NoError(t, store.Clear(context.Background()))

	items, err := store.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestNotifyStore_Prune(t *testing.T) {
	tests := []struct {
		name    string
		keep    int
		removed int64
		want    []string
	}{
		{name: "drops oldest", keep: 2, removed: 2, want: []string{"d", "c"}},
		{name: "under limit", keep: 10, removed: 0, want: []string{"d", "c", "b", "a"}},
		{name: "zero keeps nothing", keep: 0, removed: 4, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestNotifyStore(t)
			seedNotices(t, store, "a", "b", "c", "d")

			removed, err := store.Prune(context.Background(), tt.keep)
			require.NoError(t, err)
			assert.Equal(t, tt.removed, removed)
			assert.Equal(t, tt.want, messages(t, store))
		})
	}
}
