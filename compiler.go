package hxcore

import (
	"fmt"
	"reflect"
)

// PropOptions is the runtime schema of a prop.
type PropOptions struct {
	Type      reflect.Kind
	Required  bool
	Validator func(value any) bool
	Default   any
}

// Options are compiled runtime options, the form an engine consumes to
// create instances. Lifecycle callbacks may be nil.
type Options struct {
	Name         string
	Functional   bool
	InheritAttrs bool
	Provide      map[string]any
	Inject       []string

	Props    map[string]PropOptions
	Computed map[string]AccessorDecl
	Methods  map[string]MethodFunc

	Data func(inst *Instance) (map[string]any, error)

	BeforeCreate     func(inst *Instance) error
	BeforeDataCreate func(inst *Instance) error
	Created          func(inst *Instance) error
	BeforeMount      func(inst *Instance) error
	Mounted          func(inst *Instance) error
	BeforeUpdate     func(inst *Instance) error
	Updated          func(inst *Instance) error
	Activated        func(inst *Instance) error
	Deactivated      func(inst *Instance) error
	BeforeDestroy    func(inst *Instance) error
	Destroyed        func(inst *Instance) error

	meta *Meta
}

// Meta returns the metadata the options were compiled from.
func (o *Options) Meta() *Meta { return o.meta }

// BaseComponent is the intermediate result of compilation.
type BaseComponent struct {
	// Mods holds the default value of every declared modifier.
	Mods map[string]any
	// Component is the partially built options: props, methods and
	// computed values, without lifecycle callbacks.
	Component *Options
	// Instance is the template of default values.
	Instance Template
}

// AddMethodsToMeta registers the constructor's members into meta, in
// declaration order.
//
// Methods merge into meta.Methods, keeping watcher and hook declarations
// already attached to the method slot, and append their watchers and hooks
// to meta.Watchers and meta.Hooks. Accessors go to meta.Accessors when
// already declared there, otherwise to meta.Computed; a getter or setter
// the member omits is kept from the earlier declaration. A setter also
// becomes a "<name>Setter" method so it can be watched or hooked.
//
// Running it again on the same pair is a no-op.
func AddMethodsToMeta(c *Constructor, meta *Meta) {
	if meta.added[c] {
		return
	}
	if meta.added == nil {
		meta.added = make(map[*Constructor]bool)
	}
	meta.added[c] = true

	for _, m := range c.members {
		if !m.accessor {
			md := meta.methodSlot(m.name)
			md.Fn = m.fn
			mergeMemberDecls(md, m)
			appendMethodDecls(meta, m.name, md)
			continue
		}

		target := meta.Computed
		if _, ok := meta.Accessors[m.name]; ok {
			target = meta.Accessors
		}
		get, set := m.get, m.set
		if old := target[m.name]; old != nil {
			if get == nil {
				get = old.Get
			}
			if set == nil {
				set = old.Set
			}
		}
		target[m.name] = &AccessorDecl{Get: get, Set: set}

		if set != nil {
			name := m.name + "Setter"
			md := meta.methodSlot(name)
			md.Fn = setterMethod(set)
			mergeMemberDecls(md, m)
			for phase, h := range md.Hooks {
				h.Name = name
				md.Hooks[phase] = h
			}
			appendMethodDecls(meta, name, md)
		}
	}
}

func setterMethod(set Setter) MethodFunc {
	return func(inst *Instance, args ...any) error {
		var v any
		if len(args) > 0 {
			v = args[0]
		}
		set(inst, v)
		return nil
	}
}

func mergeMemberDecls(md *MethodDecl, m *member) {
	for key, w := range m.watchers {
		md.Watchers[key] = w
	}
	for phase, h := range m.hooks {
		md.Hooks[phase] = h
	}
}

func appendMethodDecls(meta *Meta, name string, md *MethodDecl) {
	fn := md.Fn
	for _, key := range sortedKeys(md.Watchers) {
		w := md.Watchers[key]
		w.Handler = NamedFuncHandler(name, fn)
		meta.Watchers[key] = append(meta.Watchers[key], w)
	}
	for _, phase := range sortedHooks(md.Hooks) {
		h := md.Hooks[phase]
		if h.Name == "" {
			h.Name = name
		}
		h.Fn = func(inst *Instance) error { return fn(inst) }
		meta.Hooks[phase] = append(meta.Hooks[phase], h)
	}
}

// GetBaseComponent compiles the parts of c and meta that do not depend on a
// live instance. It calls AddMethodsToMeta, instantiates the template once,
// builds the prop schema and merges prop, field and system field watchers
// into meta.Watchers. Declarations are merged into meta only once, so
// compiling the same pair again does not duplicate them.
func GetBaseComponent(c *Constructor, meta *Meta) (*BaseComponent, error) {
	if c == nil || meta == nil {
		return nil, ErrInvalidComponent
	}
	AddMethodsToMeta(c, meta)
	tmpl := c.New()

	component := &Options{
		Name:         meta.Name,
		Functional:   meta.Params.Functional,
		InheritAttrs: meta.Params.InheritAttrs,
		Provide:      meta.Params.Provide,
		Inject:       meta.Params.Inject,
		Props:        make(map[string]PropOptions, len(meta.Props)),
		Computed:     make(map[string]AccessorDecl, len(meta.Computed)),
		Methods:      make(map[string]MethodFunc, len(meta.Methods)),
		meta:         meta,
	}

	for _, key := range sortedKeys(meta.Props) {
		p := meta.Props[key]
		def := p.Default
		if def == nil {
			def = CloneWatchValue(tmpl[key], WatchOptions{Deep: true})
		}
		component.Props[key] = PropOptions{
			Type:      p.Type,
			Required:  p.Required,
			Validator: p.Validator,
			Default:   def,
		}
	}
	mergeDeclWatchers(meta)

	for _, key := range sortedKeys(meta.Methods) {
		if fn := meta.Methods[key].Fn; fn != nil {
			component.Methods[key] = fn
		}
	}
	for _, key := range sortedKeys(meta.Computed) {
		component.Computed[key] = *meta.Computed[key]
	}

	mods := make(map[string]any, len(meta.Mods))
	for _, key := range sortedKeys(meta.Mods) {
		var def any
		for _, v := range meta.Mods[key] {
			if v.Default {
				def = fmt.Sprint(v.Value)
				break
			}
		}
		mods[key] = def
	}

	return &BaseComponent{Mods: mods, Component: component, Instance: tmpl}, nil
}

func mergeDeclWatchers(meta *Meta) {
	if meta.merged {
		return
	}
	meta.merged = true
	for _, key := range sortedKeys(meta.Props) {
		if w := meta.Props[key].Watchers; len(w) > 0 {
			meta.Watchers[key] = append(meta.Watchers[key], w...)
		}
	}
	for _, fields := range []map[string]*FieldDecl{meta.Fields, meta.SystemFields} {
		for _, key := range sortedKeys(fields) {
			if w := fields[key].Watchers; len(w) > 0 {
				meta.Watchers[key] = append(meta.Watchers[key], w...)
			}
		}
	}
}

// compileComponent compiles c and meta into runtime options.
//
// Data initializes every field with its Init function, falling back to the
// declared default and then to the template value; defaults are deep-cloned
// so instances never share them. BeforeCreate defines accessors, computed
// values and system fields. Created binds the declared watchers before
// anything else. Every phase then runs hooks deferred to it, the method
// named after the phase if the component defines one, and the phase's hooks
// in dependency order.
func compileComponent(c *Constructor, meta *Meta) (*Options, error) {
	base, err := GetBaseComponent(c, meta)
	if err != nil {
		return nil, err
	}
	opts, mods, tmpl := base.Component, base.Mods, base.Instance

	opts.Data = func(inst *Instance) (map[string]any, error) {
		data := make(map[string]any, len(meta.Fields)+1)
		for _, key := range sortedKeys(meta.Fields) {
			inst.activeField = key
			data[key] = initField(inst, meta.Fields[key], tmpl, key)
		}
		inst.activeField = ""

		instMods := make(map[string]any, len(mods))
		for k, v := range mods {
			instMods[k] = v
		}
		data["mods"] = instMods
		return data, nil
	}

	opts.BeforeCreate = func(inst *Instance) error {
		for _, key := range sortedKeys(meta.Accessors) {
			inst.defineAccessor(key, meta.Accessors[key], false)
		}
		for _, key := range sortedKeys(meta.Computed) {
			inst.defineAccessor(key, meta.Computed[key], true)
		}
		for _, key := range sortedKeys(meta.SystemFields) {
			inst.activeField = key
			inst.defineSystemField(key, initField(inst, meta.SystemFields[key], tmpl, key))
		}
		inst.activeField = ""
		return runLifecycle(inst, meta, HookBeforeCreate)
	}

	opts.BeforeDataCreate = lifecycle(meta, HookBeforeDataCreate)
	opts.Created = func(inst *Instance) error {
		if err := BindWatchers(inst, BindParams{}); err != nil {
			return err
		}
		return runLifecycle(inst, meta, HookCreated)
	}
	opts.BeforeMount = lifecycle(meta, HookBeforeMount)
	opts.Mounted = lifecycle(meta, HookMounted)
	opts.BeforeUpdate = lifecycle(meta, HookBeforeUpdate)
	opts.Updated = lifecycle(meta, HookUpdated)
	opts.Activated = lifecycle(meta, HookActivated)
	opts.Deactivated = lifecycle(meta, HookDeactivated)
	opts.BeforeDestroy = lifecycle(meta, HookBeforeDestroy)
	opts.Destroyed = lifecycle(meta, HookDestroyed)

	return opts, nil
}

func lifecycle(meta *Meta, phase Hook) func(*Instance) error {
	return func(inst *Instance) error {
		return runLifecycle(inst, meta, phase)
	}
}

func runLifecycle(inst *Instance, meta *Meta, phase Hook) error {
	for _, h := range inst.takeDeferred(phase) {
		if err := h.Fn(inst); err != nil {
			return err
		}
	}
	if m := meta.Methods[string(phase)]; m != nil && m.Fn != nil {
		if err := m.Fn(inst); err != nil {
			return err
		}
	}
	return RunHooks(phase, meta, inst)
}

func initField(inst *Instance, f *FieldDecl, tmpl Template, key string) any {
	var v any
	if f.Init != nil {
		v = f.Init(inst, tmpl)
	}
	if v == nil {
		if f.Default != nil {
			v = CloneWatchValue(f.Default, WatchOptions{Deep: true})
		} else {
			v = CloneWatchValue(tmpl[key], WatchOptions{Deep: true})
		}
	}
	return v
}
