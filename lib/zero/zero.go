// Package zero is a minimal component engine for server-side rendering.
//
// A zero store keeps component data but has no change propagation: watchers
// only receive their immediate invocation and subscriptions never fire.
// Components compiled for the reactive engine run unchanged; they simply
// stop reacting after creation.
package zero

import (
	"sort"

	"github.com/pthm/hxcore/lib/reactive"
)

// Name is the registered name of this engine.
const Name = "zero"

type engine struct{}

// New returns the zero engine.
func New() reactive.Engine {
	return engine{}
}

func (engine) Name() string { return Name }

func (engine) NewStore() reactive.Store {
	return &store{data: make(map[string]any)}
}

func (engine) Supports() reactive.Supports {
	return reactive.Supports{}
}

type store struct {
	data map[string]any
}

func (s *store) Get(key string) (any, bool) {
	return reactive.Lookup(s.data, reactive.SplitPath(key))
}

func (s *store) Set(key string, value any) {
	path := reactive.SplitPath(key)
	if len(path) == 1 {
		s.data[key] = value
		return
	}
	parent, _ := reactive.Lookup(s.data, path[:len(path)-1])
	if m, ok := parent.(map[string]any); ok {
		m[path[len(path)-1]] = value
	}
}

func (s *store) Delete(key string) {
	path := reactive.SplitPath(key)
	if len(path) == 1 {
		delete(s.data, key)
		return
	}
	parent, _ := reactive.Lookup(s.data, path[:len(path)-1])
	if m, ok := parent.(map[string]any); ok {
		delete(m, path[len(path)-1])
	}
}

func (s *store) Keys() []string {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *store) Watch(key string, opts reactive.WatchOptions, fn reactive.WatchFunc) func() {
	if opts.Immediate {
		v, _ := s.Get(key)
		fn(v, nil)
	}
	return func() {}
}

func (s *store) Subscribe(func(key string)) func() {
	return func() {}
}
