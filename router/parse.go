package router

import (
	"encoding/json"

	"github.com/critiq-ai/critiq/llm"
)

// Invocation is one (tool, arguments) pair chosen by the delegated LLM
// call.
type Invocation struct {
	Name string
	Args map[string]any
}

type intentEnvelope struct {
	Tools []intentTool `json:"tools"`
}

type intentTool struct {
	ToolName string         `json:"tool_name"`
	Tool     string         `json:"tool"`
	Args     map[string]any `json:"args"`
}

// ParseIntent extracts tool invocations from freeform model output that
// looks like serialized intent: a JSON object with a "tools" key. It
// attempts a strict parse first, then the single-quote repair pass.
//
// The returned bool reports whether the content parsed as intent at all;
// a parsed envelope may still contain zero invocations.
func ParseIntent(content string) ([]Invocation, bool) {
	var envelope intentEnvelope
	if err := llm.DecodeJSON(content, &envelope); err != nil {
		return nil, false
	}
	if envelope.Tools == nil {
		return nil, false
	}

	invocations := make([]Invocation, 0, len(envelope.Tools))
	for _, t := range envelope.Tools {
		name := t.ToolName
		if name == "" {
			name = t.Tool
		}
		if name == "" {
			continue
		}
		args := t.Args
		if args == nil {
			args = map[string]any{}
		}
		invocations = append(invocations, Invocation{Name: name, Args: args})
	}

	return invocations, true
}

// parseArgs decodes a structured tool call's argument payload. A payload
// that is not a JSON object is preserved under the "input" key rather
// than discarded.
func parseArgs(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err == nil {
		return args
	}
	return map[string]any{"input": raw}
}
