// Package hxcore compiles declarative component metadata into runnable
// component instances for server-rendered HTMX applications.
//
// A component is described twice: a Constructor carries the behaviour
// (methods, accessors and the template that seeds field values) and a Meta
// carries the declarations (props, fields, system fields, watchers, hooks
// and modifiers). A Registry compiles the pair into Options once and mounts
// Instances from them on demand.
//
//	var Counter = hxcore.Define("b-counter", func() hxcore.Template {
//	    return hxcore.Template{"count": 0}
//	})
//
//	meta := hxcore.NewMeta("b-counter")
//	meta.Prop("step", hxcore.PropDecl{Type: reflect.Int, Default: 1})
//	meta.Field("count", hxcore.FieldDecl{})
//
//	reg, _ := hxcore.NewRegistry("reactive")
//	reg.Add(Counter, meta)
//	inst, _ := reg.Mount("b-counter", map[string]any{"step": 2})
//
// # Methods, Watchers and Hooks
//
// Methods are attached to a Constructor and may subscribe to field changes
// or lifecycle phases through the returned MemberBuilder:
//
//	Counter.Method("increment", increment).
//	    Watch("step", hxcore.WatchDecl{Immediate: true}).
//	    Hook(hxcore.HookMounted)
//
// Hooks of the same phase run in dependency order. A hook declared with
// after names other hooks of the phase that must finish first; unknown
// names and cycles are reported when the component is compiled, not while
// it runs.
//
// A plain watch key names an instance field. A key with a ":" separator
// subscribes to an event of a target resolved from the event context or
// the Globals ("net:online"); a "?" prefix delays binding until mounted.
// Watchers tagged with a label are deduplicated per flush of the
// instance's Async queue.
//
// # Engines
//
// The reactive engine (lib/reactive) tracks field cells and notifies
// watchers. The zero engine (lib/zero) renders once and ignores watchers.
// Engines are selected by name when a Registry is created.
//
// # Code Generation
//
// Run 'hxcore generate' to turn //hx: directives on top-level functions
// into registration code:
//
//	//hx:method Counter
//	//hx:watch step immediate
//	func increment(inst *hxcore.Instance, args ...any) error { ... }
//
// Generated files are named <file>_hx.go and only call the public
// Constructor API, so hand-written registration works the same way.
//
// # Virtual Scrolling
//
// Package lib/vscroll implements paged data loading for infinitely
// scrolled lists and serves them over HTTP with HTMX sentinels.
package hxcore
