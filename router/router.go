package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/critiq-ai/critiq/log"
	"github.com/critiq-ai/critiq/session"
	"github.com/critiq-ai/critiq/tool"
)

const routerSystemPrompt = `You are a tool router for a customer-support agent.
Decide whether the user's request needs one of the available tools or a direct answer.

Available tools: %s

If a tool applies, call it. If several apply, call them in the order given.
If none apply, answer the user directly in plain text.`

// Mode classifies the outcome of a routed turn.
type Mode int

const (
	// ModeNone means the turn required no action (empty input).
	ModeNone Mode = iota
	// ModeChat means the model answered directly without tools.
	ModeChat
	// ModeTools means one or more tool invocations ran.
	ModeTools
)

// Turn is the result of routing one user utterance. Messages holds
// everything the turn produced, in order, ready for the session loop to
// commit atomically.
type Turn struct {
	Mode     Mode
	Reply    string
	Invoked  []string
	Messages []session.Message
}

// Router selects and executes capabilities for each turn.
type Router struct {
	registry *tool.Registry
	model    llms.Model
	logger   log.Logger
	maxSteps int
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the router's logger.
func WithLogger(logger log.Logger) Option {
	return func(r *Router) { r.logger = logger }
}

// WithMaxSteps bounds the number of tool invocations processed in one
// turn, including follow-ups a tool's own output enqueues.
func WithMaxSteps(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.maxSteps = n
		}
	}
}

// New creates a Router over a registry and a chat model.
func New(registry *tool.Registry, model llms.Model, opts ...Option) *Router {
	r := &Router{
		registry: registry,
		model:    model,
		logger:   log.NopLogger{},
		maxSteps: 8,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route runs one turn: evaluate eligibility, delegate the choice to the
// model, then execute whatever was chosen. An empty utterance returns a
// ModeNone turn without any model call or tool run.
func (r *Router) Route(ctx context.Context, sess *session.Session, input string) (*Turn, error) {
	if strings.TrimSpace(input) == "" {
		return &Turn{Mode: ModeNone}, nil
	}

	eligible := r.registry.Eligible(sess, input)

	resp, err := r.model.GenerateContent(ctx, r.buildMessages(sess, input, eligible), r.callOptions(eligible)...)
	if err != nil {
		return nil, fmt.Errorf("router model call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("router model call: empty response")
	}
	choice := resp.Choices[0]

	turn := &Turn{
		Messages: []session.Message{{Role: session.RoleUser, Content: input}},
	}

	invocations := r.chooseInvocations(choice)
	if len(invocations) == 0 {
		// Plain chat: the model's direct text is the answer.
		turn.Mode = ModeChat
		turn.Reply = choice.Content
		turn.Messages = append(turn.Messages, session.Message{
			Role:    session.RoleAssistant,
			Content: choice.Content,
		})
		return turn, nil
	}

	turn.Mode = ModeTools
	r.execute(ctx, sess, invocations, turn)

	if choice.Content != "" {
		turn.Reply = choice.Content
		turn.Messages = append(turn.Messages, session.Message{
			Role:    session.RoleAssistant,
			Content: choice.Content,
		})
	}

	return turn, nil
}

// chooseInvocations extracts the model's tool choice: structured calls
// verbatim, otherwise freeform intent parsed with repair. Anything else
// means plain chat.
func (r *Router) chooseInvocations(choice *llms.ContentChoice) []Invocation {
	if len(choice.ToolCalls) > 0 {
		invocations := make([]Invocation, 0, len(choice.ToolCalls))
		for _, tc := range choice.ToolCalls {
			if tc.FunctionCall == nil {
				continue
			}
			invocations = append(invocations, Invocation{
				Name: tc.FunctionCall.Name,
				Args: parseArgs(tc.FunctionCall.Arguments),
			})
		}
		return invocations
	}

	if invocations, ok := ParseIntent(choice.Content); ok {
		return invocations
	}

	return nil
}

func (r *Router) buildMessages(sess *session.Session, input string, eligible []tool.Descriptor) []llms.MessageContent {
	names := make([]string, 0, len(eligible))
	for _, d := range eligible {
		names = append(names, d.Name())
	}
	nameList := "none"
	if len(names) > 0 {
		nameList = strings.Join(names, ", ")
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, fmt.Sprintf(routerSystemPrompt, nameList)),
	}

	for _, m := range sess.Messages {
		switch m.Role {
		case session.RoleUser:
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, m.Content))
		case session.RoleAssistant:
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeAI, m.Content))
		case session.RoleTool:
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeGeneric,
				fmt.Sprintf("[%s result] %s", m.ToolName, m.Content)))
		}
	}

	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, input))
	return messages
}

func (r *Router) callOptions(eligible []tool.Descriptor) []llms.CallOption {
	if len(eligible) == 0 {
		return nil
	}

	defs := make([]llms.Tool, 0, len(eligible))
	for _, d := range eligible {
		params := d.Parameters
		if params == nil {
			params = map[string]any{
				"type":                 "object",
				"properties":           map[string]any{},
				"additionalProperties": true,
			}
		}
		defs = append(defs, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        d.Name(),
				Description: d.Tool.Description(),
				Parameters:  params,
			},
		})
	}

	return []llms.CallOption{llms.WithTools(defs)}
}
