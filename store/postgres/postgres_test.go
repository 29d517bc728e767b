package postgres

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/critiq-ai/critiq/session"
)

func TestStore_Save(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewWithPool(mock, "")

	snap := &session.Snapshot{
		ThreadID: "thread-1",
		Messages: []session.Message{{Role: session.RoleUser, Content: "hello"}},
		Critique: session.CritiqueNone,
		Version:  1,
	}
	messagesJSON, err := json.Marshal(snap.Messages)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).
		WithArgs("thread-1", messagesJSON, "", session.CritiqueNone, false, snap.UpdatedAt, 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Save(context.Background(), snap))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Load(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewWithPool(mock, "")

	messages := []session.Message{
		{Role: session.RoleUser, Content: "hi"},
		{Role: session.RoleAssistant, Content: "hello"},
	}
	messagesJSON, err := json.Marshal(messages)
	require.NoError(t, err)
	updated := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"thread_id", "messages", "plan", "critique", "uploaded", "updated_at", "version"}).
		AddRow("thread-1", messagesJSON, "plan", session.CritiqueNone, true, updated, 2)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT thread_id, messages")).
		WithArgs("thread-1").
		WillReturnRows(rows)

	snap, err := store.Load(context.Background(), "thread-1")
	require.NoError(t, err)
	assert.Equal(t, messages, snap.Messages)
	assert.Equal(t, "plan", snap.Plan)
	assert.True(t, snap.Uploaded)
	assert.Equal(t, 2, snap.Version)
}

func TestStore_LoadNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewWithPool(mock, "")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT thread_id, messages")).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"thread_id", "messages", "plan", "critique", "uploaded", "updated_at", "version"}))

	_, err = store.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestStore_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewWithPool(mock, "")

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions")).
		WithArgs("thread-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, store.Delete(context.Background(), "thread-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Threads(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewWithPool(mock, "")

	rows := pgxmock.NewRows([]string{"thread_id"}).AddRow("a").AddRow("b")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT thread_id FROM sessions")).
		WillReturnRows(rows)

	threads, err := store.Threads(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, threads)
}

func TestStore_CustomTableName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewWithPool(mock, "agent_sessions")

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM agent_sessions")).
		WithArgs("t").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, store.Delete(context.Background(), "t"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
