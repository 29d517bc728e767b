// Package sqlite persists session snapshots in a SQLite database, suited
// to single-node deployments that need state across restarts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/critiq-ai/critiq/session"
)

// Store implements session.Store over SQLite.
type Store struct {
	db        *sql.DB
	tableName string
}

var _ session.Store = (*Store)(nil)

// Options configuration for the SQLite connection.
type Options struct {
	Path      string
	TableName string // Default "sessions"
}

// New opens (or creates) the database and ensures the schema exists.
func New(opts Options) (*Store, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "sessions"
	}

	store := &Store{db: db, tableName: tableName}
	if err := store.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// InitSchema creates the sessions table if it doesn't exist.
func (s *Store) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			thread_id TEXT PRIMARY KEY,
			messages TEXT NOT NULL,
			plan TEXT,
			critique TEXT,
			uploaded BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at DATETIME NOT NULL,
			version INTEGER NOT NULL
		);
	`, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts the snapshot for its thread ID.
func (s *Store) Save(ctx context.Context, snap *session.Snapshot) error {
	messagesJSON, err := json.Marshal(snap.Messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (thread_id, messages, plan, critique, uploaded, updated_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			messages = excluded.messages,
			plan = excluded.plan,
			critique = excluded.critique,
			uploaded = excluded.uploaded,
			updated_at = excluded.updated_at,
			version = excluded.version
	`, s.tableName)

	_, err = s.db.ExecContext(ctx, query,
		snap.ThreadID,
		string(messagesJSON),
		snap.Plan,
		snap.Critique,
		snap.Uploaded,
		snap.UpdatedAt,
		snap.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load retrieves the snapshot for a thread.
func (s *Store) Load(ctx context.Context, threadID string) (*session.Snapshot, error) {
	query := fmt.Sprintf(`
		SELECT thread_id, messages, plan, critique, uploaded, updated_at, version
		FROM %s WHERE thread_id = ?
	`, s.tableName)

	var snap session.Snapshot
	var messagesJSON string
	err := s.db.QueryRowContext(ctx, query, threadID).Scan(
		&snap.ThreadID,
		&messagesJSON,
		&snap.Plan,
		&snap.Critique,
		&snap.Uploaded,
		&snap.UpdatedAt,
		&snap.Version,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if err := json.Unmarshal([]byte(messagesJSON), &snap.Messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
	}
	return &snap, nil
}

// Delete removes a thread's snapshot.
func (s *Store) Delete(ctx context.Context, threadID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE thread_id = ?`, s.tableName)
	if _, err := s.db.ExecContext(ctx, query, threadID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Threads lists persisted thread IDs.
func (s *Store) Threads(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT thread_id FROM %s ORDER BY thread_id`, s.tableName)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan thread id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating threads: %w", err)
	}
	return ids, nil
}
