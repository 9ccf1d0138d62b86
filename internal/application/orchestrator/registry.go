package orchestrator

import (
	"context"
	"sort"
	"sync"
)

// Action executes one workflow step. Side effects are entirely the
// action's responsibility.
type Action interface {
	Execute(ctx context.Context, input any) (any, error)
}

// ActionFunc adapts a plain function to the Action interface.
type ActionFunc func(ctx context.Context, input any) (any, error)

// Execute calls f(ctx, input).
func (f ActionFunc) Execute(ctx context.Context, input any) (any, error) {
	return f(ctx, input)
}

// OutputValidator checks the minimal shape of an action's output.
type OutputValidator func(output any) bool

// validatingAction is implemented by actions that carry their own validator.
type validatingAction interface {
	Validate(output any) bool
}

// Entry is one registered action
type Entry struct {
	Name      string
	Action    Action
	Validator OutputValidator
	Retryable bool
}

// RegisterOption configures an Entry at registration time
type RegisterOption func(*Entry)

// WithValidator attaches an output validator.
func WithValidator(v OutputValidator) RegisterOption {
	return func(e *Entry) {
		e.Validator = v
	}
}

// Retryable marks the action's failures as transient.
func Retryable() RegisterOption {
	return func(e *Entry) {
		e.Retryable = true
	}
}

// Registry maps action names to executors. It is populated at startup and
// read concurrently afterwards.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]Entry),
	}
}

// Register binds name to action. The last registration for a name wins.
func (r *Registry) Register(name string, action Action, opts ...RegisterOption) {
	entry := Entry{
		Name:   name,
		Action: action,
	}
	for _, opt := range opts {
		opt(&entry)
	}
	if entry.Validator == nil {
		if va, ok := action.(validatingAction); ok {
			entry.Validator = va.Validate
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = entry
}

// RegisterFunc binds name to a plain function.
func (r *Registry) RegisterFunc(name string, fn func(ctx context.Context, input any) (any, error), opts ...RegisterOption) {
	r.Register(name, ActionFunc(fn), opts...)
}

// Lookup returns the entry registered under name
func (r *Registry) Lookup(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[name]
	return entry, ok
}

// Has reports whether name is registered
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// IsRetryable reports whether name was registered as retryable
func (r *Registry) IsRetryable(name string) bool {
	entry, ok := r.Lookup(name)
	return ok && entry.Retryable
}

// Names returns the registered action names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
