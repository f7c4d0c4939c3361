package hxcore

import (
	"fmt"
	"strings"
)

// RunHooks runs every hook registered for phase on meta, and any hooks the
// instance deferred to that phase, exactly once each. A hook runs only after
// all hooks named in its After list. Among hooks that are ready at the same
// time, declaration order wins, so the order is deterministic.
//
// The dependency graph is checked before any hook runs: a dependency on a
// name not registered for the phase yields ErrUnknownHookDependency and a
// cycle yields ErrHookCycle. The first error returned by a hook stops the
// phase.
func RunHooks(phase Hook, meta *Meta, inst *Instance) error {
	var hooks []HookDecl
	if inst != nil {
		hooks = append(hooks, inst.takeDeferred(phase)...)
	}
	if meta != nil {
		hooks = append(hooks, meta.Hooks[phase]...)
	}
	if len(hooks) == 0 {
		return nil
	}

	order, err := scheduleHooks(phase, hooks)
	if err != nil {
		return err
	}
	for _, i := range order {
		if hooks[i].Fn == nil {
			continue
		}
		if err := hooks[i].Fn(inst); err != nil {
			return err
		}
	}
	return nil
}

// scheduleHooks returns the indexes of hooks in execution order. Hooks
// sharing a name are all satisfied together once every one of them ran.
func scheduleHooks(phase Hook, hooks []HookDecl) ([]int, error) {
	byName := make(map[string][]int, len(hooks))
	for i, h := range hooks {
		if h.Name != "" {
			byName[h.Name] = append(byName[h.Name], i)
		}
	}

	// waiting[i] counts the hooks i still waits for; dependents[j] lists
	// the hooks waiting for j.
	waiting := make([]int, len(hooks))
	dependents := make([][]int, len(hooks))
	for i, h := range hooks {
		seen := make(map[string]bool, len(h.After))
		for _, dep := range h.After {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			idx, ok := byName[dep]
			if !ok {
				return nil, fmt.Errorf("%w: %s hook %q runs after %q", ErrUnknownHookDependency, phase, h.Name, dep)
			}
			for _, j := range idx {
				waiting[i]++
				dependents[j] = append(dependents[j], i)
			}
		}
	}

	done := make([]bool, len(hooks))
	order := make([]int, 0, len(hooks))
	for len(order) < len(hooks) {
		next := -1
		for i := range hooks {
			if !done[i] && waiting[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			return nil, fmt.Errorf("%w: %s: %s", ErrHookCycle, phase, blockedHooks(hooks, done))
		}
		done[next] = true
		order = append(order, next)
		for _, d := range dependents[next] {
			waiting[d]--
		}
	}
	return order, nil
}

func blockedHooks(hooks []HookDecl, done []bool) string {
	var names []string
	for i, h := range hooks {
		if !done[i] {
			names = append(names, fmt.Sprintf("%q", h.Name))
		}
	}
	return strings.Join(names, ", ")
}
