package hxcore

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pthm/hxcore/lib/reactive"
	"github.com/pthm/hxcore/lib/zero"
)

// Engine is an alias for reactive.Engine for convenience.
type Engine = reactive.Engine

// Store is an alias for reactive.Store for convenience.
type Store = reactive.Store

// WatchOptions is an alias for reactive.WatchOptions for convenience.
type WatchOptions = reactive.WatchOptions

// Supports is an alias for reactive.Supports for convenience.
type Supports = reactive.Supports

var (
	enginesMu sync.RWMutex
	engines   = map[string]Engine{
		reactive.Name: reactive.New(),
		zero.Name:     zero.New(),
	}
)

// RegisterEngine makes an engine available by name.
func RegisterEngine(e Engine) {
	enginesMu.Lock()
	defer enginesMu.Unlock()
	engines[e.Name()] = e
}

// LookupEngine returns the engine registered under name. An empty name
// selects the reactive engine.
func LookupEngine(name string) (Engine, error) {
	if name == "" {
		name = reactive.Name
	}
	enginesMu.RLock()
	defer enginesMu.RUnlock()
	e, ok := engines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
	return e, nil
}

// Engines returns the names of all registered engines.
func Engines() []string {
	enginesMu.RLock()
	defer enginesMu.RUnlock()
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
