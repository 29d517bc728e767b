// Package router decides which registered capability to invoke for a
// conversation turn, and when none apply, falls back to plain chat.
//
// The flow per turn:
//
//  1. Every registered tool's condition predicate is evaluated against the
//     session state and user input; eligible tools are sorted ascending by
//     priority (stable on ties).
//  2. The final choice is delegated to a single LLM call that sees only
//     the eligible subset, never ineligible tools.
//  3. Structured tool calls from the model are used verbatim. Freeform
//     output goes through a strict JSON parse, then a single-quote repair
//     pass, before the turn degrades to plain chat.
//  4. Chosen invocations run sequentially off a bounded work list with a
//     visited-set guard, so a tool asking for itself again cannot recurse
//     unboundedly.
//
// The router performs no I/O of its own beyond that one delegated model
// call; failures inside one tool invocation never abort its siblings.
package router
