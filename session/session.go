// Package session owns per-conversation state for the agent runtime.
//
// A Session is created on the first user message and mutated only by the
// single goroutine running its turn loop. Turns are atomic: either every
// message produced by a turn is appended to the history, or none are.
// Sessions persist across restarts through a Store keyed by thread ID.
package session

import (
	"context"
	"errors"
	"time"
)

// DefaultQueueCapacity bounds the per-session inbound message queue.
const DefaultQueueCapacity = 1000

// CritiqueNone is the sentinel meaning the critique step accepted the
// current answer.
const CritiqueNone = "None"

// Role tags a history entry with its author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one role-tagged entry in a session's history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// ToolName is set on RoleTool entries to record which capability
	// produced the content.
	ToolName string `json:"tool_name,omitempty"`
}

// Session is one conversation thread.
type Session struct {
	// ID is the thread identifier used as the checkpoint key.
	ID string

	// Messages is the ordered history. Only the owning turn loop appends.
	Messages []Message

	// Plan holds the planner's free-text plan for the current request.
	Plan string

	// Critique holds the critic's feedback, or CritiqueNone when the
	// last answer was accepted.
	Critique string

	// Uploaded records whether the user has attached a document, which
	// gates retrieval-backed tools.
	Uploaded bool

	inbox chan string
}

// New creates a session with the default inbox capacity.
func New(threadID string) *Session {
	return NewWithCapacity(threadID, DefaultQueueCapacity)
}

// NewWithCapacity creates a session with an explicit inbox capacity.
func NewWithCapacity(threadID string, capacity int) *Session {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Session{
		ID:       threadID,
		Critique: CritiqueNone,
		inbox:    make(chan string, capacity),
	}
}

// Enqueue adds an inbound user message. It blocks when the queue is full
// until space frees up or ctx is cancelled, bounding memory growth when a
// client floods input faster than turns complete.
func (s *Session) Enqueue(ctx context.Context, input string) error {
	select {
	case s.inbox <- input:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next blocks until an inbound message is available or ctx is cancelled.
func (s *Session) Next(ctx context.Context) (string, error) {
	select {
	case input := <-s.inbox:
		return input, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Append commits a completed turn's messages to the history.
func (s *Session) Append(msgs ...Message) {
	s.Messages = append(s.Messages, msgs...)
}

// LastAssistant returns the most recent assistant message, if any.
func (s *Session) LastAssistant() (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}

// Snapshot is the persisted form of a session, keyed by thread ID.
type Snapshot struct {
	ThreadID  string    `json:"thread_id"`
	Messages  []Message `json:"messages"`
	Plan      string    `json:"plan,omitempty"`
	Critique  string    `json:"critique,omitempty"`
	Uploaded  bool      `json:"uploaded,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// Snapshot captures the session's persistent state.
func (s *Session) Snapshot() *Snapshot {
	msgs := make([]Message, len(s.Messages))
	copy(msgs, s.Messages)

	return &Snapshot{
		ThreadID:  s.ID,
		Messages:  msgs,
		Plan:      s.Plan,
		Critique:  s.Critique,
		Uploaded:  s.Uploaded,
		UpdatedAt: time.Now().UTC(),
		Version:   len(msgs),
	}
}

// Restore rebuilds a session from a snapshot.
func Restore(snap *Snapshot) *Session {
	s := New(snap.ThreadID)
	s.Messages = append(s.Messages, snap.Messages...)
	s.Plan = snap.Plan
	s.Critique = snap.Critique
	s.Uploaded = snap.Uploaded
	if s.Critique == "" {
		s.Critique = CritiqueNone
	}
	return s
}

// ErrNotFound is returned by a Store when no snapshot exists for a thread.
var ErrNotFound = errors.New("session not found")

// Store persists session snapshots keyed by thread identifier.
type Store interface {
	// Save upserts the snapshot for its thread ID.
	Save(ctx context.Context, snap *Snapshot) error

	// Load retrieves the snapshot for a thread, or ErrNotFound.
	Load(ctx context.Context, threadID string) (*Snapshot, error)

	// Delete removes a thread's snapshot.
	Delete(ctx context.Context, threadID string) error

	// Threads lists all persisted thread IDs.
	Threads(ctx context.Context) ([]string, error)
}
