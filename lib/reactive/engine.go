// Package reactive is the default component engine: a keyed data store whose
// mutations are observed by shallow, deep and immediate watchers.
//
// The store is intentionally small. It tracks values by key, resolves dotted
// paths through nested map[string]any values, and notifies watchers
// synchronously from Set and Delete. It does not batch updates.
package reactive

// WatchOptions controls how a watcher observes a key.
type WatchOptions struct {
	// Deep notifies on nested changes that keep the value's identity
	// (a map or slice mutated in place through a dotted path).
	Deep bool

	// Immediate invokes the callback once on registration with the current
	// value and a nil old value.
	Immediate bool
}

// WatchFunc receives the new and previous value of a watched key.
type WatchFunc func(newValue, oldValue any)

// Store holds the reactive data bag of one component instance.
type Store interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	Delete(key string)
	Keys() []string

	// Watch observes key (a name or dotted path) and returns a function that
	// removes the watcher.
	Watch(key string, opts WatchOptions, fn WatchFunc) (unwatch func())

	// Subscribe is called with the root key of every mutation.
	Subscribe(fn func(key string)) (unsubscribe func())
}

// Supports describes optional engine capabilities.
type Supports struct {
	// Functional reports whether stateless functional components are
	// rendered natively.
	Functional bool

	// Reactive reports whether store mutations reach watchers. Engines
	// without it only honor immediate watchers.
	Reactive bool
}

// Engine creates per-instance stores.
type Engine interface {
	Name() string
	NewStore() Store
	Supports() Supports
}

// Name is the registered name of this engine.
const Name = "reactive"

type engine struct{}

// New returns the reactive engine.
func New() Engine {
	return engine{}
}

func (engine) Name() string { return Name }

func (engine) NewStore() Store { return newStore() }

func (engine) Supports() Supports {
	return Supports{Functional: true, Reactive: true}
}
