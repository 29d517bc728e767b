package agent

import (
	"context"
	"errors"
	"fmt"
)

// END is the terminal pseudo-node of a graph.
const END = "END"

var (
	// ErrEntryPointNotSet is returned when the entry point of the graph is not set.
	ErrEntryPointNotSet = errors.New("entry point not set")

	// ErrNodeNotFound is returned when a node is not found in the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoOutgoingEdge is returned when no outgoing edge is found for a node.
	ErrNoOutgoingEdge = errors.New("no outgoing edge found for node")

	// ErrMaxStepsExceeded is returned when an invocation runs past its step
	// budget, which usually means a conditional edge cycles forever.
	ErrMaxStepsExceeded = errors.New("max graph steps exceeded")
)

// Node is one step in a state graph.
type Node[S any] struct {
	Name        string
	Description string
	Function    func(ctx context.Context, state S) (S, error)
}

type edge struct {
	from string
	to   string
}

// StateGraph is a small sequential state machine: nodes transform the
// state, edges (static or conditional) pick the next node, END stops.
type StateGraph[S any] struct {
	nodes            map[string]Node[S]
	edges            []edge
	conditionalEdges map[string]func(ctx context.Context, state S) string
	entryPoint       string
}

// NewStateGraph creates an empty graph for state type S.
func NewStateGraph[S any]() *StateGraph[S] {
	return &StateGraph[S]{
		nodes:            make(map[string]Node[S]),
		conditionalEdges: make(map[string]func(ctx context.Context, state S) string),
	}
}

// AddNode registers a named step.
func (g *StateGraph[S]) AddNode(name, description string, fn func(ctx context.Context, state S) (S, error)) {
	g.nodes[name] = Node[S]{Name: name, Description: description, Function: fn}
}

// AddEdge adds a static edge between two nodes.
func (g *StateGraph[S]) AddEdge(from, to string) {
	g.edges = append(g.edges, edge{from: from, to: to})
}

// AddConditionalEdge routes from a node to whatever node name the
// condition returns at runtime. A conditional edge takes precedence over
// static edges from the same node.
func (g *StateGraph[S]) AddConditionalEdge(from string, condition func(ctx context.Context, state S) string) {
	g.conditionalEdges[from] = condition
}

// SetEntryPoint names the node execution starts from.
func (g *StateGraph[S]) SetEntryPoint(name string) {
	g.entryPoint = name
}

// Runnable is a compiled graph ready for invocation.
type Runnable[S any] struct {
	graph    *StateGraph[S]
	maxSteps int
}

// CompileOption configures a compiled graph.
type CompileOption func(*compileConfig)

type compileConfig struct {
	maxSteps int
}

// WithGraphMaxSteps bounds the number of node executions per invocation.
func WithGraphMaxSteps(n int) CompileOption {
	return func(c *compileConfig) {
		if n > 0 {
			c.maxSteps = n
		}
	}
}

// Compile validates the graph and returns a Runnable.
func (g *StateGraph[S]) Compile(opts ...CompileOption) (*Runnable[S], error) {
	cfg := compileConfig{maxSteps: 50}
	for _, opt := range opts {
		opt(&cfg)
	}

	if g.entryPoint == "" {
		return nil, ErrEntryPointNotSet
	}
	if _, ok := g.nodes[g.entryPoint]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, g.entryPoint)
	}
	for _, e := range g.edges {
		if _, ok := g.nodes[e.from]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, e.from)
		}
		if e.to != END {
			if _, ok := g.nodes[e.to]; !ok {
				return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, e.to)
			}
		}
	}

	return &Runnable[S]{graph: g, maxSteps: cfg.maxSteps}, nil
}

// Invoke runs the graph from the entry point until END.
func (r *Runnable[S]) Invoke(ctx context.Context, initial S) (S, error) {
	state := initial
	current := r.graph.entryPoint

	for steps := 0; current != END; steps++ {
		if steps >= r.maxSteps {
			return state, fmt.Errorf("%w: %d", ErrMaxStepsExceeded, r.maxSteps)
		}
		if err := ctx.Err(); err != nil {
			return state, err
		}

		node, ok := r.graph.nodes[current]
		if !ok {
			return state, fmt.Errorf("%w: %s", ErrNodeNotFound, current)
		}

		var err error
		state, err = node.Function(ctx, state)
		if err != nil {
			return state, fmt.Errorf("error in node %s: %w", current, err)
		}

		next, err := r.next(ctx, current, state)
		if err != nil {
			return state, err
		}
		current = next
	}

	return state, nil
}

func (r *Runnable[S]) next(ctx context.Context, current string, state S) (string, error) {
	if condition, ok := r.graph.conditionalEdges[current]; ok {
		return condition(ctx, state), nil
	}
	for _, e := range r.graph.edges {
		if e.from == current {
			return e.to, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoOutgoingEdge, current)
}
