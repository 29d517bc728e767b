// Package llm provides the chat-model plumbing for the agent runtime.
//
// Models are expressed through the langchaingo llms.Model interface so the
// router, planner and classification pipeline stay implementation-agnostic.
// The package ships an OpenAI-compatible implementation built directly on
// github.com/sashabaranov/go-openai, which supports tool-constrained
// decoding: the router hands it only the eligible tool subset.
//
// DecodeJSON implements the lenient two-stage parse applied to freeform
// model output: strict JSON first, then a single-quote repair pass.
package llm
