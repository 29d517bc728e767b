package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/critiq-ai/critiq/log"
)

// TurnFunc executes one conversation turn. It must not mutate the session's
// history directly; it returns the messages the turn produced, which the
// loop commits atomically after the turn succeeds.
type TurnFunc func(ctx context.Context, sess *Session, input string) ([]Message, error)

// Loop drains a session's inbox and runs turns sequentially. Exactly one
// loop owns a session; independent sessions run their loops in parallel.
type Loop struct {
	sess    *Session
	store   Store
	logger  log.Logger
	turn    TurnFunc
	onReply func(Message)
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithStore enables checkpointing after each committed turn.
func WithStore(store Store) LoopOption {
	return func(l *Loop) { l.store = store }
}

// WithLogger sets the loop's logger.
func WithLogger(logger log.Logger) LoopOption {
	return func(l *Loop) { l.logger = logger }
}

// WithReplyHandler registers a callback invoked with every user-visible
// assistant message, including the textual error notice emitted when a
// turn fails.
func WithReplyHandler(fn func(Message)) LoopOption {
	return func(l *Loop) { l.onReply = fn }
}

// NewLoop creates a turn loop for sess.
func NewLoop(sess *Session, turn TurnFunc, opts ...LoopOption) *Loop {
	l := &Loop{
		sess:   sess,
		turn:   turn,
		logger: log.NopLogger{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run processes inbound messages until ctx is cancelled. A failed turn
// leaves the session history untouched so the next attempt starts from
// clean state; the failure surfaces to the user as a plain text message,
// never as a raw error.
func (l *Loop) Run(ctx context.Context) error {
	for {
		input, err := l.sess.Next(ctx)
		if err != nil {
			return err
		}

		msgs, err := l.turn(ctx, l.sess, input)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			l.logger.Error("session %s: turn failed: %v", l.sess.ID, err)
			l.reply(Message{
				Role:    RoleAssistant,
				Content: fmt.Sprintf("An error occurred: %v", err),
			})
			continue
		}

		l.sess.Append(msgs...)
		for _, m := range msgs {
			if m.Role == RoleAssistant {
				l.reply(m)
			}
		}

		if l.store != nil {
			if err := l.store.Save(ctx, l.sess.Snapshot()); err != nil {
				l.logger.Error("session %s: checkpoint save failed: %v", l.sess.ID, err)
			}
		}
	}
}

func (l *Loop) reply(m Message) {
	if l.onReply != nil {
		l.onReply(m)
	}
}
