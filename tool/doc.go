// Package tool defines the invocable capabilities the router can dispatch
// to, and the process-wide registry that holds them.
//
// A Descriptor pairs a Tool with its routing metadata: an integer priority
// (lower is tried first) and a condition predicate over the session state
// and user input. Predicates must be pure and cheap since they run on every
// turn. The registry is built once at startup and is read-only afterwards,
// so concurrent sessions can consult it without locking.
package tool
