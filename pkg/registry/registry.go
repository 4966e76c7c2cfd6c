// Package registry holds the named callbacks a flow file can refer to.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/switchboard/pkg/node"
)

// ErrNotRegistered is returned when a flow refers to an unknown callback.
var ErrNotRegistered = errors.New("callback not registered")

// Action is a side effect run when a rule fires.
type Action func(ctx context.Context, n *node.Node)

// Router resolves the next node of an evaluated jump.
type Router func(ctx context.Context, n *node.Node) string

// Check is a validator predicate.
type Check func(n *node.Node) bool

// Registry manages the callbacks available to flows.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]Action
	routers map[string]Router
	checks  map[string]Check
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		actions: make(map[string]Action),
		routers: make(map[string]Router),
		checks:  make(map[string]Check),
	}
}

// RegisterAction adds an action. An existing action with the same name is overwritten.
func (r *Registry) RegisterAction(name string, fn Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[name] = fn
}

// RegisterRouter adds a router. An existing router with the same name is overwritten.
func (r *Registry) RegisterRouter(name string, fn Router) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routers[name] = fn
}

// RegisterCheck adds a validator predicate. An existing check with the same name is overwritten.
func (r *Registry) RegisterCheck(name string, fn Check) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks[name] = fn
}

// Action looks up an action by name.
func (r *Registry) Action(name string) (Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.actions[name]
	if !ok {
		return nil, fmt.Errorf("action %q: %w", name, ErrNotRegistered)
	}
	return fn, nil
}

// Router looks up a router by name.
func (r *Registry) Router(name string) (Router, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.routers[name]
	if !ok {
		return nil, fmt.Errorf("router %q: %w", name, ErrNotRegistered)
	}
	return fn, nil
}

// Check looks up a validator predicate by name.
func (r *Registry) Check(name string) (Check, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.checks[name]
	if !ok {
		return nil, fmt.Errorf("check %q: %w", name, ErrNotRegistered)
	}
	return fn, nil
}

// Names lists every registered callback name by kind, sorted.
func (r *Registry) Names() (actions, routers, checks []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.actions), sortedKeys(r.routers), sortedKeys(r.checks)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
