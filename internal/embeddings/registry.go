package embeddings

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a configured Function from params
type Factory func(Params) (Function, error)

// Registry maps provider names to factories.
//
// Registrations are expected to happen before concurrent lookups begin,
// typically from init functions. The mutex keeps the map consistent but the
// registry does not order a late Register against in-flight Create calls.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register records factory under name. A second registration under the same
// name fails with ErrConfiguration and leaves the first one active.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" {
		return fmt.Errorf("%w: provider name must not be empty", ErrConfiguration)
	}
	if factory == nil {
		return fmt.Errorf("%w: nil factory for provider %q", ErrConfiguration, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("%w: provider %q already registered", ErrConfiguration, name)
	}
	r.factories[name] = factory
	return nil
}

// Get looks up a factory by exact name
func (r *Registry) Get(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// Create instantiates the provider registered under name
func (r *Registry) Create(name string, params Params) (Function, error) {
	factory, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, name)
	}
	if params == nil {
		params = Params{}
	}
	fn, err := factory(params)
	if err != nil {
		return nil, fmt.Errorf("create %q: %w", name, err)
	}
	return fn, nil
}

// Names returns the registered provider names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry that built-in providers
// register themselves with
func Default() *Registry {
	return defaultRegistry
}

// Register adds a factory to the process-wide registry
func Register(name string, factory Factory) error {
	return defaultRegistry.Register(name, factory)
}

// MustRegister is Register for init functions; it panics on error
func MustRegister(name string, factory Factory) {
	if err := Register(name, factory); err != nil {
		panic(err)
	}
}

// Get looks up a factory in the process-wide registry
func Get(name string) (Factory, bool) {
	return defaultRegistry.Get(name)
}

// Create instantiates a provider from the process-wide registry
func Create(name string, params Params) (Function, error) {
	return defaultRegistry.Create(name, params)
}

// Names lists the providers in the process-wide registry
func Names() []string {
	return defaultRegistry.Names()
}
