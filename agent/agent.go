// Package agent runs the conversational plan-act-critique loop.
//
// Each turn flows through a small state graph: a planner sketches how to
// answer, the act step routes through tools or answers directly, and a
// critic either accepts the draft or sends it back for one bounded round
// of revision. The loop commits nothing to the session itself; the turn
// function returns the produced messages for atomic commit by the
// session loop.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/critiq-ai/critiq/log"
	"github.com/critiq-ai/critiq/router"
	"github.com/critiq-ai/critiq/session"
	"github.com/critiq-ai/critiq/tool"
)

const defaultPrompt = `You are a helpful customer-support assistant.
Answer clearly and concisely, using tool results when available.`

const plannerPrompt = `You are an expert planner. Create a concise,
step-by-step plan to answer the user's request. Respond with the plan only.
These are the tools available for use: %s`

const criticPrompt = `You are an expert critic. Review the proposed final
answer to the original user request. Is the answer complete, accurate, and
does it fully address the user's query?
If the answer is good respond with 'yes'.
If it needs improvement, provide a concise critique of what's missing or wrong.
This is the plan: %s`

// State carries one turn through the graph. Nodes mutate the state only;
// the session is untouched until the turn commits.
type State struct {
	Session  *session.Session
	Input    string
	Plan     string
	Critique string
	Reply    string
	Rounds   int
	Messages []session.Message
}

// Agent owns the compiled turn graph.
type Agent struct {
	name      string
	prompt    string
	model     llms.Model
	registry  *tool.Registry
	router    *router.Router
	logger    log.Logger
	maxRounds int
	runnable  *Runnable[State]
}

// Option configures an Agent.
type Option func(*Agent)

// WithName sets the agent's name, used in logs.
func WithName(name string) Option {
	return func(a *Agent) { a.name = name }
}

// WithPrompt overrides the system prompt for direct answers.
func WithPrompt(prompt string) Option {
	return func(a *Agent) {
		if prompt != "" {
			a.prompt = prompt
		}
	}
}

// WithLogger sets the agent's logger.
func WithLogger(logger log.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMaxRounds bounds how many times the critic may send an answer back
// for revision within one turn.
func WithMaxRounds(n int) Option {
	return func(a *Agent) {
		if n >= 0 {
			a.maxRounds = n
		}
	}
}

// New creates an agent over a chat model and a tool registry.
func New(model llms.Model, registry *tool.Registry, opts ...Option) (*Agent, error) {
	a := &Agent{
		name:      "agent",
		prompt:    defaultPrompt,
		model:     model,
		registry:  registry,
		logger:    log.NopLogger{},
		maxRounds: 2,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.router = router.New(registry, model, router.WithLogger(a.logger))

	g := NewStateGraph[State]()
	g.AddNode("planner", "sketch a plan for the request", a.plan)
	g.AddNode("act", "route through tools or answer directly", a.act)
	g.AddNode("critique", "accept the draft or request revision", a.critique)

	g.SetEntryPoint("planner")
	g.AddEdge("planner", "act")
	g.AddEdge("act", "critique")
	g.AddConditionalEdge("critique", a.shouldContinue)

	runnable, err := g.Compile()
	if err != nil {
		return nil, fmt.Errorf("agent graph: %w", err)
	}
	a.runnable = runnable
	return a, nil
}

// Turn runs one full turn and returns the messages it produced. It
// satisfies session.TurnFunc; the session itself is only updated here
// after the graph succeeds.
func (a *Agent) Turn(ctx context.Context, sess *session.Session, input string) ([]session.Message, error) {
	state := State{
		Session:  sess,
		Input:    input,
		Critique: session.CritiqueNone,
	}

	final, err := a.runnable.Invoke(ctx, state)
	if err != nil {
		return nil, err
	}

	sess.Plan = final.Plan
	sess.Critique = final.Critique
	return final.Messages, nil
}

func (a *Agent) plan(ctx context.Context, state State) (State, error) {
	names := make([]string, 0)
	for _, d := range a.registry.Eligible(state.Session, state.Input) {
		names = append(names, d.Name())
	}
	nameList := "none"
	if len(names) > 0 {
		nameList = strings.Join(names, ", ")
	}

	resp, err := a.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, fmt.Sprintf(plannerPrompt, nameList)),
		llms.TextParts(llms.ChatMessageTypeHuman, state.Input),
	})
	if err != nil {
		return state, fmt.Errorf("planner: %w", err)
	}
	if len(resp.Choices) == 0 {
		return state, fmt.Errorf("planner: empty response")
	}

	state.Plan = resp.Choices[0].Content
	a.logger.Debug("%s: plan: %s", a.name, state.Plan)
	return state, nil
}

func (a *Agent) act(ctx context.Context, state State) (State, error) {
	input := state.Input
	revision := state.Critique != "" && state.Critique != session.CritiqueNone
	if revision {
		input = a.revisionInput(state)
	}

	turn, err := a.router.Route(ctx, state.Session, input)
	if err != nil {
		return state, err
	}

	msgs := turn.Messages
	// On a revision round the user's utterance is already in the turn;
	// keep only what the revision added.
	if revision && len(msgs) > 0 && msgs[0].Role == session.RoleUser {
		msgs = msgs[1:]
	}
	state.Messages = append(state.Messages, msgs...)
	state.Reply = turn.Reply
	return state, nil
}

// revisionInput rebuilds the act prompt for a revision round. The draft
// and its tool results live only in the uncommitted turn state, which the
// router cannot see, so they travel in the prompt.
func (a *Agent) revisionInput(state State) string {
	var sb strings.Builder
	sb.WriteString(state.Input)
	sb.WriteString("\n\nYour previous answer:\n")
	sb.WriteString(state.Reply)
	for _, m := range state.Messages {
		if m.Role == session.RoleTool {
			fmt.Fprintf(&sb, "\n\n[%s result] %s", m.ToolName, m.Content)
		}
	}
	sb.WriteString("\n\nRevise your previous answer based on the following critique: ")
	sb.WriteString(state.Critique)
	return sb.String()
}

func (a *Agent) critique(ctx context.Context, state State) (State, error) {
	state.Rounds++

	if state.Reply == "" {
		state.Critique = session.CritiqueNone
		return state, nil
	}

	resp, err := a.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeAI, state.Reply),
		llms.TextParts(llms.ChatMessageTypeSystem, fmt.Sprintf(criticPrompt, state.Plan)),
	})
	if err != nil {
		// A broken critic never blocks an answer.
		a.logger.Warn("%s: critic failed, accepting draft: %v", a.name, err)
		state.Critique = session.CritiqueNone
		return state, nil
	}
	if len(resp.Choices) == 0 {
		state.Critique = session.CritiqueNone
		return state, nil
	}

	verdict := resp.Choices[0].Content
	if strings.Contains(strings.ToLower(verdict), "yes") {
		state.Critique = session.CritiqueNone
	} else {
		state.Critique = verdict
		a.logger.Debug("%s: critique: %s", a.name, verdict)
	}
	return state, nil
}

func (a *Agent) shouldContinue(ctx context.Context, state State) string {
	if state.Critique != "" && state.Critique != session.CritiqueNone && state.Rounds <= a.maxRounds {
		return "act"
	}
	return END
}
