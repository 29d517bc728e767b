// Package redis persists session snapshots in Redis, with optional TTL
// for conversations that should expire.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/critiq-ai/critiq/session"
)

// Store implements session.Store over Redis.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ session.Store = (*Store)(nil)

// Options configuration for the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // Key prefix, default "critiq:"
	TTL      time.Duration // Expiration for sessions, default 0 (no expiration)
}

// New creates a store backed by a new Redis client.
func New(opts Options) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewWithClient(client, opts.Prefix, opts.TTL)
}

// NewWithClient creates a store over an existing client.
func NewWithClient(client *redis.Client, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = "critiq:"
	}
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

func (s *Store) sessionKey(threadID string) string {
	return fmt.Sprintf("%ssession:%s", s.prefix, threadID)
}

func (s *Store) indexKey() string {
	return s.prefix + "sessions"
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Save upserts the snapshot for its thread ID.
func (s *Store) Save(ctx context.Context, snap *session.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.sessionKey(snap.ThreadID), data, s.ttl)
	pipe.SAdd(ctx, s.indexKey(), snap.ThreadID)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.indexKey(), s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session to redis: %w", err)
	}
	return nil
}

// Load retrieves the snapshot for a thread.
func (s *Store) Load(ctx context.Context, threadID string) (*session.Snapshot, error) {
	data, err := s.client.Get(ctx, s.sessionKey(threadID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session from redis: %w", err)
	}

	var snap session.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &snap, nil
}

// Delete removes a thread's snapshot.
func (s *Store) Delete(ctx context.Context, threadID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.sessionKey(threadID))
	pipe.SRem(ctx, s.indexKey(), threadID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session from redis: %w", err)
	}
	return nil
}

// Threads lists persisted thread IDs. Index entries whose session has
// expired are pruned as they are discovered.
func (s *Store) Threads(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var out []string
	for _, id := range ids {
		exists, err := s.client.Exists(ctx, s.sessionKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to check session key: %w", err)
		}
		if exists == 0 {
			s.client.SRem(ctx, s.indexKey(), id)
			continue
		}
		out = append(out, id)
	}
	return out, nil
}
