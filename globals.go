package hxcore

import (
	"strings"
	"sync"
)

// TargetResolver resolves a dotted path to a watch target.
type TargetResolver interface {
	Lookup(path string) (any, bool)
}

// GlobalRegistry is a process-wide table of named watch targets, such as
// session or network event emitters. Custom watchers that name a path fall
// back to it when their event context has no such target.
type GlobalRegistry struct {
	mu      sync.RWMutex
	targets map[string]any
}

// Globals is the default registry consulted by BindWatchers.
var Globals = NewGlobalRegistry()

// NewGlobalRegistry returns an empty registry.
func NewGlobalRegistry() *GlobalRegistry {
	return &GlobalRegistry{targets: make(map[string]any)}
}

// Register stores target under name. Name must not contain dots.
func (g *GlobalRegistry) Register(name string, target any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.targets[name] = target
}

// Unregister removes name.
func (g *GlobalRegistry) Unregister(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.targets, name)
}

// Lookup resolves path. The first segment selects a registered target; the
// rest descends through nested resolvers and map[string]any values.
func (g *GlobalRegistry) Lookup(path string) (any, bool) {
	segs := strings.SplitN(path, ".", 2)
	g.mu.RLock()
	target, ok := g.targets[segs[0]]
	g.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if len(segs) == 1 {
		return target, true
	}
	return lookupIn(target, segs[1])
}

func lookupIn(target any, path string) (any, bool) {
	switch t := target.(type) {
	case TargetResolver:
		return t.Lookup(path)
	case map[string]any:
		segs := strings.SplitN(path, ".", 2)
		v, ok := t[segs[0]]
		if !ok {
			return nil, false
		}
		if len(segs) == 1 {
			return v, true
		}
		return lookupIn(v, segs[1])
	}
	return nil, false
}
