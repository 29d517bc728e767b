package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/critiq-ai/critiq/session"
)

func TestStore_SaveLoad(t *testing.T) {
	store := New()
	ctx := context.Background()

	snap := &session.Snapshot{
		ThreadID: "thread-1",
		Messages: []session.Message{
			{Role: session.RoleUser, Content: "hello"},
			{Role: session.RoleAssistant, Content: "hi"},
		},
		Plan:      "answer directly",
		Critique:  session.CritiqueNone,
		UpdatedAt: time.Now().UTC(),
		Version:   2,
	}
	require.NoError(t, store.Save(ctx, snap))

	loaded, err := store.Load(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, snap.Messages, loaded.Messages)
	assert.Equal(t, "answer directly", loaded.Plan)
	assert.Equal(t, 2, loaded.Version)
}

func TestStore_LoadIsolatedFromCaller(t *testing.T) {
	store := New()
	ctx := context.Background()

	snap := &session.Snapshot{
		ThreadID: "thread-1",
		Messages: []session.Message{{Role: session.RoleUser, Content: "hello"}},
	}
	require.NoError(t, store.Save(ctx, snap))

	loaded, err := store.Load(ctx, "thread-1")
	require.NoError(t, err)
	loaded.Messages[0].Content = "mutated"

	again, err := store.Load(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, "hello", again.Messages[0].Content)
}

func TestStore_SaveOverwrites(t *testing.T) {
	store := New()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &session.Snapshot{ThreadID: "t", Version: 1}))
	require.NoError(t, store.Save(ctx, &session.Snapshot{ThreadID: "t", Version: 5}))

	loaded, err := store.Load(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, 5, loaded.Version)
}

func TestStore_DeleteAndNotFound(t *testing.T) {
	store := New()
	ctx := context.Background()

	_, err := store.Load(ctx, "missing")
	assert.ErrorIs(t, err, session.ErrNotFound)

	require.NoError(t, store.Save(ctx, &session.Snapshot{ThreadID: "t"}))
	require.NoError(t, store.Delete(ctx, "t"))
	_, err = store.Load(ctx, "t")
	assert.ErrorIs(t, err, session.ErrNotFound)

	require.NoError(t, store.Delete(ctx, "t"))
}

func TestStore_Threads(t *testing.T) {
	store := New()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &session.Snapshot{ThreadID: "b"}))
	require.NoError(t, store.Save(ctx, &session.Snapshot{ThreadID: "a"}))

	threads, err := store.Threads(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, threads)
}
