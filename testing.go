package hxcore

import (
	"fmt"
	"strings"
	"sync"
)

// TestMount compiles c with meta in a fresh registry and mounts the result
// with props.
//
// Use this in unit tests of component types. A fresh registry keeps tests
// independent, but meta is still mutated by compilation, so build a new
// Meta per test:
//
//	inst, err := hxcore.TestMount(Counter, counterMeta(), nil)
//	if err != nil {
//	    t.Fatal(err)
//	}
//	inst.Set("count", 2)
func TestMount(c *Constructor, meta *Meta, props map[string]any, options ...MountOption) (*Instance, error) {
	reg, err := NewRegistry("")
	if err != nil {
		return nil, err
	}
	opts, err := reg.Compile(c, meta)
	if err != nil {
		return nil, err
	}
	return Mount(opts, props, options...)
}

// HookRecorder records calls made through the callbacks it hands out.
//
// Useful for asserting on hook order and watcher invocations:
//
//	rec := &hxcore.HookRecorder{}
//	meta.Hook(hxcore.HookMounted, hxcore.HookDecl{Name: "a", Fn: rec.Hook("a")})
//	// ... mount ...
//	if diff := cmp.Diff([]string{"a"}, rec.Calls()); diff != "" {
//	    t.Error(diff)
//	}
type HookRecorder struct {
	mu    sync.Mutex
	calls []string
}

// Hook returns a hook callback recording name.
func (r *HookRecorder) Hook(name string) HookFunc {
	return func(*Instance) error {
		r.Record(name)
		return nil
	}
}

// Method returns a method recording name followed by its arguments, as in
// "onCount(2, 1)".
func (r *HookRecorder) Method(name string) MethodFunc {
	return func(_ *Instance, args ...any) error {
		r.Record(formatCall(name, args))
		return nil
	}
}

// Listener returns an event listener recording name and its arguments.
func (r *HookRecorder) Listener(name string) func(args ...any) {
	return func(args ...any) {
		r.Record(formatCall(name, args))
	}
}

// Record appends a call.
func (r *HookRecorder) Record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

// Calls returns a copy of the recorded calls.
func (r *HookRecorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Reset forgets all recorded calls.
func (r *HookRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func formatCall(name string, args []any) string {
	if len(args) == 0 {
		return name
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}
