package hxcore

import (
	"fmt"
	"sort"
	"sync"
)

type compileKey struct {
	ctor *Constructor
	meta *Meta
}

// Registry compiles and names component types.
//
// Compilation mutates the Meta it is given, so it must happen once per
// (constructor, meta) pair. The registry memoizes it: compiling the same
// pair again returns the options built the first time.
type Registry struct {
	mu         sync.RWMutex
	engine     Engine
	compiled   map[compileKey]*Options
	components map[string]*Options

	// OnError receives watcher errors of instances mounted through the
	// registry. Nil logs them with the package logger.
	OnError func(inst *Instance, err error)
}

// NewRegistry creates a registry mounting instances on the named engine.
// An empty name selects the reactive engine.
func NewRegistry(engine string) (*Registry, error) {
	e, err := LookupEngine(engine)
	if err != nil {
		return nil, err
	}
	return &Registry{
		engine:     e,
		compiled:   make(map[compileKey]*Options),
		components: make(map[string]*Options),
	}, nil
}

var defaultRegistry = func() *Registry {
	r, err := NewRegistry("")
	if err != nil {
		panic(fmt.Sprintf("hxcore: default registry: %v", err))
	}
	return r
}()

// DefaultRegistry returns the registry used by GetComponent.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// GetComponent compiles c and meta into runtime options using the default
// registry. Repeated calls with the same pair return the same options.
func GetComponent(c *Constructor, meta *Meta) (*Options, error) {
	return defaultRegistry.Compile(c, meta)
}

// Engine returns the engine instances are mounted on.
func (reg *Registry) Engine() Engine {
	return reg.engine
}

// Compile returns the runtime options of c and meta, compiling them on
// first use.
func (reg *Registry) Compile(c *Constructor, meta *Meta) (*Options, error) {
	if c == nil || meta == nil {
		return nil, ErrInvalidComponent
	}
	key := compileKey{ctor: c, meta: meta}

	reg.mu.RLock()
	opts, ok := reg.compiled[key]
	reg.mu.RUnlock()
	if ok {
		return opts, nil
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if opts, ok := reg.compiled[key]; ok {
		return opts, nil
	}
	opts, err := compileComponent(c, meta)
	if err != nil {
		return nil, err
	}
	reg.compiled[key] = opts
	return opts, nil
}

// Add compiles components and registers them under their meta names.
// Panics on a name collision or a compilation error, since both are
// programming errors found at startup.
func (reg *Registry) Add(c *Constructor, meta *Meta) *Options {
	opts, err := reg.Compile(c, meta)
	if err != nil {
		panic(fmt.Sprintf("hxcore: compile %q: %v", meta.Name, err))
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if prev, exists := reg.components[opts.Name]; exists && prev != opts {
		panic(fmt.Sprintf("hxcore: component name collision for %q", opts.Name))
	}
	reg.components[opts.Name] = opts
	return opts
}

// Lookup returns the options registered under name.
func (reg *Registry) Lookup(name string) (*Options, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	opts, ok := reg.components[name]
	return opts, ok
}

// Names returns the registered component names, sorted.
func (reg *Registry) Names() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	names := make([]string, 0, len(reg.components))
	for name := range reg.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Mount mounts the component registered under name on the registry's
// engine. Options given here override the registry defaults.
func (reg *Registry) Mount(name string, props map[string]any, options ...MountOption) (*Instance, error) {
	opts, ok := reg.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	defaults := []MountOption{WithEngine(reg.engine)}
	if reg.OnError != nil {
		defaults = append(defaults, WithErrorHandler(reg.OnError))
	}
	return Mount(opts, props, append(defaults, options...)...)
}
