package tool

import (
	"fmt"
	"sort"

	"github.com/critiq-ai/critiq/session"
)

// Registry holds the registered tool descriptors. Register everything at
// startup; after that the registry is read-only and safe for concurrent
// use across sessions.
type Registry struct {
	descriptors []Descriptor
	byName      map[string]Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Descriptor)}
}

// Register adds a descriptor. Names must be unique.
func (r *Registry) Register(d Descriptor) error {
	name := d.Tool.Name()
	if name == "" {
		return fmt.Errorf("tool has empty name")
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	if d.Condition == nil {
		d.Condition = Always
	}

	r.descriptors = append(r.descriptors, d)
	r.byName[name] = d
	return nil
}

// MustRegister registers a descriptor and panics on error. Intended for
// startup wiring.
func (r *Registry) MustRegister(d Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Get looks up a descriptor by tool name.
func (r *Registry) Get(name string) (Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.descriptors) }

// Eligible evaluates every condition against (sess, input) and returns the
// matching descriptors sorted ascending by priority. The sort is stable:
// ties keep registration order.
func (r *Registry) Eligible(sess *session.Session, input string) []Descriptor {
	var eligible []Descriptor
	for _, d := range r.descriptors {
		if d.Condition(sess, input) {
			eligible = append(eligible, d)
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Priority < eligible[j].Priority
	})

	return eligible
}
