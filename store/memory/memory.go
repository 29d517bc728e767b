// Package memory provides an in-process session store, the default for
// tests and single-node deployments.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/critiq-ai/critiq/session"
)

// Store keeps snapshots in a map guarded by a mutex.
type Store struct {
	mu        sync.RWMutex
	snapshots map[string]*session.Snapshot
}

var _ session.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{snapshots: make(map[string]*session.Snapshot)}
}

// Save upserts the snapshot for its thread ID.
func (s *Store) Save(ctx context.Context, snap *session.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *snap
	clone.Messages = append([]session.Message(nil), snap.Messages...)
	s.snapshots[snap.ThreadID] = &clone
	return nil
}

// Load retrieves the snapshot for a thread.
func (s *Store) Load(ctx context.Context, threadID string) (*session.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[threadID]
	if !ok {
		return nil, session.ErrNotFound
	}

	clone := *snap
	clone.Messages = append([]session.Message(nil), snap.Messages...)
	return &clone, nil
}

// Delete removes a thread's snapshot. Deleting an absent thread is a no-op.
func (s *Store) Delete(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.snapshots, threadID)
	return nil
}

// Threads lists persisted thread IDs, sorted.
func (s *Store) Threads(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.snapshots))
	for id := range s.snapshots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
