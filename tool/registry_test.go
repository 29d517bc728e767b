package tool

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/critiq-ai/critiq/session"
)

func stub(name string) Tool {
	return Func{
		ToolName:        name,
		ToolDescription: name + " stub",
		Fn: func(context.Context, map[string]any) (string, error) {
			return name + " result", nil
		},
	}
}

func TestRegistry_RegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Descriptor{Tool: stub("qa_tool"), Priority: 1}))

	err := r.Register(Descriptor{Tool: stub("qa_tool"), Priority: 2})
	assert.ErrorContains(t, err, "already registered")
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_EligibleSortsByPriority(t *testing.T) {
	r := NewRegistry()
	// Registered out of priority order on purpose.
	r.MustRegister(Descriptor{Tool: stub("toolB"), Priority: 2})
	r.MustRegister(Descriptor{Tool: stub("toolA"), Priority: 1})

	sess := session.New("t1")
	eligible := r.Eligible(sess, "anything")

	require.Len(t, eligible, 2)
	assert.Equal(t, "toolA", eligible[0].Name())
	assert.Equal(t, "toolB", eligible[1].Name())
}

func TestRegistry_EligibleStableOnTies(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Descriptor{Tool: stub("first"), Priority: 1})
	r.MustRegister(Descriptor{Tool: stub("second"), Priority: 1})
	r.MustRegister(Descriptor{Tool: stub("third"), Priority: 1})

	eligible := r.Eligible(session.New("t1"), "x")
	require.Len(t, eligible, 3)
	assert.Equal(t, "first", eligible[0].Name())
	assert.Equal(t, "second", eligible[1].Name())
	assert.Equal(t, "third", eligible[2].Name())
}

func TestRegistry_ConditionsFilter(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Descriptor{
		Tool:     stub("qa_tool"),
		Priority: 1,
		Condition: func(sess *session.Session, _ string) bool {
			return sess.Uploaded
		},
	})
	r.MustRegister(Descriptor{
		Tool:     stub("summary_tool"),
		Priority: 2,
		Condition: func(sess *session.Session, input string) bool {
			return sess.Uploaded && strings.Contains(strings.ToLower(input), "summary")
		},
	})
	r.MustRegister(Descriptor{
		Tool:     stub("chat_tool"),
		Priority: 3,
		Condition: func(sess *session.Session, _ string) bool {
			return !sess.Uploaded
		},
	})

	sess := session.New("t1")

	// No document uploaded: only plain chat.
	eligible := r.Eligible(sess, "give me a summary")
	require.Len(t, eligible, 1)
	assert.Equal(t, "chat_tool", eligible[0].Name())

	// Uploaded plus the summary keyword: qa first by priority, then summary.
	sess.Uploaded = true
	eligible = r.Eligible(sess, "give me a summary")
	require.Len(t, eligible, 2)
	assert.Equal(t, "qa_tool", eligible[0].Name())
	assert.Equal(t, "summary_tool", eligible[1].Name())
}

func TestDateTime_Call(t *testing.T) {
	dt := NewDateTime()
	dt.Now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	}

	out, err := dt.Call(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Contains(t, out, "2025-06-01 12:30:00")

	out, err = dt.Call(context.Background(), map[string]any{"format": "2006-01-02"})
	require.NoError(t, err)
	assert.Equal(t, "Current date and time: 2025-06-01", out)
}
