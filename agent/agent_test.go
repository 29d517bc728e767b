package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/critiq-ai/critiq/session"
	"github.com/critiq-ai/critiq/tool"
)

// scriptedModel returns one canned choice per call, in order, and keeps
// every message batch it was called with.
type scriptedModel struct {
	choices []*llms.ContentChoice
	err     error
	calls   int
	batches [][]llms.MessageContent
}

func (m *scriptedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.batches = append(m.batches, messages)
	if m.err != nil {
		return nil, m.err
	}
	if m.calls >= len(m.choices) {
		return nil, errors.New("unexpected model call")
	}
	choice := m.choices[m.calls]
	m.calls++
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{choice}}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func text(s string) *llms.ContentChoice {
	return &llms.ContentChoice{Content: s}
}

func toolCall(name, args string) *llms.ContentChoice {
	return &llms.ContentChoice{
		ToolCalls: []llms.ToolCall{{
			FunctionCall: &llms.FunctionCall{Name: name, Arguments: args},
		}},
	}
}

func TestAgent_ChatTurn(t *testing.T) {
	model := &scriptedModel{choices: []*llms.ContentChoice{
		text("1. answer directly"),     // planner
		text("Hello! How can I help?"), // act
		text("yes"),                    // critic
	}}

	a, err := New(model, tool.NewRegistry())
	require.NoError(t, err)

	sess := session.New("thread-1")
	msgs, err := a.Turn(context.Background(), sess, "hi")
	require.NoError(t, err)

	require.Len(t, msgs, 2)
	assert.Equal(t, session.RoleUser, msgs[0].Role)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, session.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Hello! How can I help?", msgs[1].Content)

	assert.Equal(t, "1. answer directly", sess.Plan)
	assert.Equal(t, session.CritiqueNone, sess.Critique)
}

func TestAgent_CritiqueTriggersRevision(t *testing.T) {
	model := &scriptedModel{choices: []*llms.ContentChoice{
		text("1. answer directly"),       // planner
		text("Draft answer"),             // act, first round
		text("Too vague, name the plan"), // critic rejects
		text("Detailed answer"),          // act, revision
		text("yes"),                      // critic accepts
	}}

	a, err := New(model, tool.NewRegistry())
	require.NoError(t, err)

	sess := session.New("thread-1")
	msgs, err := a.Turn(context.Background(), sess, "explain my coverage")
	require.NoError(t, err)

	// One user message, then both drafts in order.
	require.Len(t, msgs, 3)
	assert.Equal(t, "Draft answer", msgs[1].Content)
	assert.Equal(t, "Detailed answer", msgs[2].Content)
	assert.Equal(t, session.CritiqueNone, sess.Critique)
}

func TestAgent_RevisionSeesDraftAndToolResults(t *testing.T) {
	registry := tool.NewRegistry()
	require.NoError(t, registry.Register(tool.Descriptor{
		Tool: &tool.Func{
			ToolName:        "lookup_policy",
			ToolDescription: "look up a policy",
			Fn: func(ctx context.Context, args map[string]any) (string, error) {
				return "POL-7 covers water damage up to $5000", nil
			},
		},
	}))

	firstAct := toolCall("lookup_policy", `{}`)
	firstAct.Content = "POL-7 covers water damage."

	model := &scriptedModel{choices: []*llms.ContentChoice{
		text("1. look up the policy"),     // planner
		firstAct,                          // act, first round
		text("Missing the coverage cap"),  // critic rejects
		text("POL-7 covers up to $5000."), // act, revision
		text("yes"),                       // critic accepts
	}}

	a, err := New(model, registry)
	require.NoError(t, err)

	sess := session.New("thread-1")
	_, err = a.Turn(context.Background(), sess, "does POL-7 cover water damage?")
	require.NoError(t, err)

	// The revision act call is the fourth model call. The draft, its tool
	// result, and the critique must all be visible to the model there.
	require.Len(t, model.batches, 5)
	revisionContext := flattenText(model.batches[3])
	assert.Contains(t, revisionContext, "POL-7 covers water damage.")
	assert.Contains(t, revisionContext, "up to $5000")
	assert.Contains(t, revisionContext, "Missing the coverage cap")
}

func flattenText(msgs []llms.MessageContent) string {
	var sb strings.Builder
	for _, m := range msgs {
		for _, p := range m.Parts {
			if tc, ok := p.(llms.TextContent); ok {
				sb.WriteString(tc.Text)
				sb.WriteString("\n")
			}
		}
	}
	return sb.String()
}

func TestAgent_RevisionRoundsAreBounded(t *testing.T) {
	model := &scriptedModel{choices: []*llms.ContentChoice{
		text("plan"),     // planner
		text("draft 1"),  // act
		text("not good"), // critic rejects
		text("draft 2"),  // act
		text("not good"), // critic rejects
		text("draft 3"),  // act
		text("not good"), // critic rejects, rounds exhausted
	}}

	a, err := New(model, tool.NewRegistry(), WithMaxRounds(2))
	require.NoError(t, err)

	sess := session.New("thread-1")
	msgs, err := a.Turn(context.Background(), sess, "question")
	require.NoError(t, err)

	require.Len(t, msgs, 4)
	assert.Equal(t, "draft 3", msgs[3].Content)
	assert.Equal(t, "not good", sess.Critique)
}

func TestAgent_ToolTurn(t *testing.T) {
	registry := tool.NewRegistry()
	require.NoError(t, registry.Register(tool.Descriptor{
		Tool: &tool.Func{
			ToolName:        "lookup_policy",
			ToolDescription: "look up a policy",
			Fn: func(ctx context.Context, args map[string]any) (string, error) {
				return "policy POL-7 covers water damage", nil
			},
		},
	}))

	model := &scriptedModel{choices: []*llms.ContentChoice{
		text("1. look up the policy"),   // planner
		toolCall("lookup_policy", `{}`), // act chooses the tool
	}}

	a, err := New(model, registry)
	require.NoError(t, err)

	sess := session.New("thread-1")
	msgs, err := a.Turn(context.Background(), sess, "does POL-7 cover water damage?")
	require.NoError(t, err)

	require.Len(t, msgs, 2)
	assert.Equal(t, session.RoleTool, msgs[1].Role)
	assert.Equal(t, "lookup_policy", msgs[1].ToolName)
	assert.Contains(t, msgs[1].Content, "water damage")
}

func TestAgent_PlannerErrorAbortsTurn(t *testing.T) {
	model := &scriptedModel{err: errors.New("model down")}

	a, err := New(model, tool.NewRegistry())
	require.NoError(t, err)

	sess := session.New("thread-1")
	_, err = a.Turn(context.Background(), sess, "hi")
	require.Error(t, err)
	assert.Empty(t, sess.Plan)
	assert.Empty(t, sess.Messages)
}

func TestAgent_CriticFailureAcceptsDraft(t *testing.T) {
	// The critic is the third call; simulate it by exhausting choices and
	// returning an error only then.
	model := &flakyCriticModel{}

	a, err := New(model, tool.NewRegistry())
	require.NoError(t, err)

	sess := session.New("thread-1")
	msgs, err := a.Turn(context.Background(), sess, "hi")
	require.NoError(t, err)

	require.Len(t, msgs, 2)
	assert.Equal(t, session.CritiqueNone, sess.Critique)
}

// flakyCriticModel answers the planner and act calls, then fails.
type flakyCriticModel struct {
	calls int
}

func (m *flakyCriticModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.calls++
	switch m.calls {
	case 1:
		return &llms.ContentResponse{Choices: []*llms.ContentChoice{text("plan")}}, nil
	case 2:
		return &llms.ContentResponse{Choices: []*llms.ContentChoice{text("draft")}}, nil
	default:
		return nil, errors.New("critic down")
	}
}

func (m *flakyCriticModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}
