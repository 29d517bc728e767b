package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/critiq-ai/critiq/session"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(Options{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	snap := &session.Snapshot{
		ThreadID: "thread-1",
		Messages: []session.Message{
			{Role: session.RoleUser, Content: "what time is it"},
			{Role: session.RoleTool, Content: "2025-03-14 10:00", ToolName: "get_current_datetime"},
			{Role: session.RoleAssistant, Content: "It is 10:00."},
		},
		Plan:      "use the datetime tool",
		Critique:  session.CritiqueNone,
		Uploaded:  true,
		UpdatedAt: time.Date(2025, 3, 14, 10, 0, 1, 0, time.UTC),
		Version:   3,
	}
	require.NoError(t, store.Save(ctx, snap))

	loaded, err := store.Load(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, snap.Messages, loaded.Messages)
	assert.Equal(t, snap.Plan, loaded.Plan)
	assert.True(t, loaded.Uploaded)
	assert.Equal(t, 3, loaded.Version)
}

func TestStore_SaveOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &session.Snapshot{ThreadID: "t", Version: 1, UpdatedAt: time.Now()}))
	require.NoError(t, store.Save(ctx, &session.Snapshot{ThreadID: "t", Version: 2, UpdatedAt: time.Now()}))

	loaded, err := store.Load(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Version)
}

func TestStore_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestStore_DeleteAndThreads(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &session.Snapshot{ThreadID: "b", UpdatedAt: time.Now()}))
	require.NoError(t, store.Save(ctx, &session.Snapshot{ThreadID: "a", UpdatedAt: time.Now()}))

	threads, err := store.Threads(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, threads)

	require.NoError(t, store.Delete(ctx, "a"))
	threads, err = store.Threads(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, threads)
}
