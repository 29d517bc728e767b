// Package postgres persists session snapshots in PostgreSQL for
// multi-node deployments sharing one database.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/critiq-ai/critiq/session"
)

// DBPool defines the interface for database connection pool
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements session.Store over PostgreSQL.
type Store struct {
	pool      DBPool
	tableName string
}

var _ session.Store = (*Store)(nil)

// Options configuration for the Postgres connection.
type Options struct {
	ConnString string
	TableName  string // Default "sessions"
}

// New creates a store backed by a new connection pool.
func New(ctx context.Context, opts Options) (*Store, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "sessions"
	}
	return &Store{pool: pool, tableName: tableName}, nil
}

// NewWithPool creates a store with an existing pool.
// Useful for testing with mocks.
func NewWithPool(pool DBPool, tableName string) *Store {
	if tableName == "" {
		tableName = "sessions"
	}
	return &Store{pool: pool, tableName: tableName}
}

// InitSchema creates the sessions table if it doesn't exist.
func (s *Store) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			thread_id TEXT PRIMARY KEY,
			messages JSONB NOT NULL,
			plan TEXT,
			critique TEXT,
			uploaded BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at TIMESTAMPTZ NOT NULL,
			version INTEGER NOT NULL
		);
	`, s.tableName)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Save upserts the snapshot for its thread ID.
func (s *Store) Save(ctx context.Context, snap *session.Snapshot) error {
	messagesJSON, err := json.Marshal(snap.Messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (thread_id, messages, plan, critique, uploaded, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (thread_id) DO UPDATE SET
			messages = EXCLUDED.messages,
			plan = EXCLUDED.plan,
			critique = EXCLUDED.critique,
			uploaded = EXCLUDED.uploaded,
			updated_at = EXCLUDED.updated_at,
			version = EXCLUDED.version
	`, s.tableName)

	_, err = s.pool.Exec(ctx, query,
		snap.ThreadID,
		messagesJSON,
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
		FROM %s WHERE thread_id = $1
	`, s.tableName)

	var snap session.Snapshot
	var messagesJSON []byte
	err := s.pool.QueryRow(ctx, query, threadID).Scan(
		&snap.ThreadID,
		&messagesJSON,
		&snap.Plan,
		&snap.Critique,
		&snap.Uploaded,
		&snap.UpdatedAt,
		&snap.Version,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if err := json.Unmarshal(messagesJSON, &snap.Messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
	}
	return &snap, nil
}

// Delete removes a thread's snapshot.
func (s *Store) Delete(ctx context.Context, threadID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE thread_id = $1`, s.tableName)
	if _, err := s.pool.Exec(ctx, query, threadID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Threads lists persisted thread IDs.
func (s *Store) Threads(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT thread_id FROM %s ORDER BY thread_id`, s.tableName)

	rows, err := s.pool.Query(ctx, query)
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
