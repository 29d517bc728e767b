package tool

import (
	"context"

	"github.com/critiq-ai/critiq/session"
)

// Tool is one invocable capability.
type Tool interface {
	// Name is the unique identifier the LLM selects the tool by.
	Name() string

	// Description tells the LLM what the tool does.
	Description() string

	// Call invokes the tool with the arguments chosen by the router's
	// delegated LLM call.
	Call(ctx context.Context, args map[string]any) (string, error)
}

// Condition decides whether a tool is eligible for the current turn.
// Implementations must be pure: state-flag checks or substring matches,
// no I/O.
type Condition func(sess *session.Session, input string) bool

// Always is a Condition that makes a tool eligible on every turn.
func Always(*session.Session, string) bool { return true }

// Descriptor is the static routing metadata registered for one tool.
type Descriptor struct {
	Tool      Tool
	Priority  int
	Condition Condition

	// Parameters is the JSON schema advertised to the LLM for the
	// tool's arguments. Optional; a free-form object is advertised
	// when nil.
	Parameters map[string]any
}

// Name returns the underlying tool's name.
func (d Descriptor) Name() string { return d.Tool.Name() }

// Func adapts a plain function into a Tool.
type Func struct {
	ToolName        string
	ToolDescription string
	Fn              func(ctx context.Context, args map[string]any) (string, error)
}

// Name implements Tool.
func (f Func) Name() string { return f.ToolName }

// Description implements Tool.
func (f Func) Description() string { return f.ToolDescription }

// Call implements Tool.
func (f Func) Call(ctx context.Context, args map[string]any) (string, error) {
	return f.Fn(ctx, args)
}
