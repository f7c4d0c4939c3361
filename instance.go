package hxcore

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/pthm/hxcore/lib/reactive"
)

// FieldKind classifies where an instance key is stored.
type FieldKind int

const (
	FieldReactive FieldKind = iota
	FieldSystem
	FieldProp
	FieldAccessor
	FieldComputed
)

func (k FieldKind) String() string {
	switch k {
	case FieldSystem:
		return "system"
	case FieldProp:
		return "prop"
	case FieldAccessor:
		return "accessor"
	case FieldComputed:
		return "computed"
	}
	return "field"
}

// FieldInfo is the resolved storage location of a key.
type FieldInfo struct {
	// Name is the first segment of the key.
	Name string
	// Path is the rest of a dotted key, or empty.
	Path string
	Kind FieldKind
}

type accessor struct {
	get      Getter
	set      Setter
	computed bool
	cached   bool
	value    any
}

// Instance is a live component. It is created by Mount from compiled
// Options and is not safe for concurrent use: all state changes and
// callbacks happen on the goroutine driving its lifecycle.
type Instance struct {
	*EventEmitter

	opts   *Options
	engine Engine
	store  Store
	async  *Async
	parent *Instance

	hook        Hook
	activeField string
	destroyed   bool

	accessors map[string]*accessor
	system    map[string]*Cell
	deferred  map[Hook][]HookDecl

	onError   func(inst *Instance, err error)
	stopCache func()
}

func newInstance(opts *Options, engine Engine) *Instance {
	inst := &Instance{
		EventEmitter: NewEventEmitter(),
		opts:         opts,
		engine:       engine,
		store:        engine.NewStore(),
		async:        NewAsync(),
		accessors:    make(map[string]*accessor),
		system:       make(map[string]*Cell),
		deferred:     make(map[Hook][]HookDecl),
	}
	if engine.Supports().Reactive {
		// Registered first so derived watchers always read fresh values.
		inst.stopCache = inst.store.Subscribe(func(string) {
			inst.invalidateComputed()
		})
	}
	return inst
}

// Name returns the component name.
func (inst *Instance) Name() string { return inst.opts.Name }

// Options returns the compiled options the instance was mounted from.
func (inst *Instance) Options() *Options { return inst.opts }

// Meta returns the component's metadata, or nil for hand-written options.
func (inst *Instance) Meta() *Meta { return inst.opts.meta }

// Engine returns the engine backing the instance.
func (inst *Instance) Engine() Engine { return inst.engine }

// Store returns the engine store holding reactive fields and props.
func (inst *Instance) Store() Store { return inst.store }

// Async returns the instance's async tracker.
func (inst *Instance) Async() *Async { return inst.async }

// Parent returns the parent instance, if any.
func (inst *Instance) Parent() *Instance { return inst.parent }

// Hook returns the current lifecycle phase.
func (inst *Instance) Hook() Hook { return inst.hook }

// ActiveField returns the field being initialized, or empty.
func (inst *Instance) ActiveField() string { return inst.activeField }

// Destroyed reports whether Destroy has run.
func (inst *Instance) Destroyed() bool { return inst.destroyed }

func splitKey(key string) (root, rest string) {
	root, rest, _ = strings.Cut(key, ".")
	return root, rest
}

// FieldInfo classifies key. Unknown keys are reported as reactive fields.
func (inst *Instance) FieldInfo(key string) FieldInfo {
	root, rest := splitKey(key)
	info := FieldInfo{Name: root, Path: rest}
	if _, ok := inst.system[root]; ok {
		info.Kind = FieldSystem
	} else if a, ok := inst.accessors[root]; ok {
		info.Kind = FieldAccessor
		if a.computed {
			info.Kind = FieldComputed
		}
	} else if _, ok := inst.opts.Props[root]; ok {
		info.Kind = FieldProp
	}
	return info
}

// Get returns the value of key, which may be a dotted path into a field.
func (inst *Instance) Get(key string) any {
	v, _ := inst.Lookup(key)
	return v
}

// Lookup resolves key like Get and reports whether it exists. It makes an
// Instance usable as a TargetResolver.
func (inst *Instance) Lookup(key string) (any, bool) {
	root, rest := splitKey(key)
	var v any
	if a, ok := inst.accessors[root]; ok {
		v = inst.readAccessor(a)
	} else if c, ok := inst.system[root]; ok {
		v = c.Get()
	} else {
		return inst.store.Get(key)
	}
	if rest == "" {
		return v, true
	}
	return lookupIn(v, rest)
}

func (inst *Instance) readAccessor(a *accessor) any {
	if a.get == nil {
		return nil
	}
	if !a.computed || !inst.engine.Supports().Reactive {
		return a.get(inst)
	}
	if !a.cached {
		a.value = a.get(inst)
		a.cached = true
	}
	return a.value
}

func (inst *Instance) invalidateComputed() {
	for _, a := range inst.accessors {
		a.cached = false
		a.value = nil
	}
}

// Set assigns key. Props and accessors without a setter are read-only.
func (inst *Instance) Set(key string, value any) error {
	if inst.destroyed {
		return ErrDestroyed
	}
	root, rest := splitKey(key)
	if a, ok := inst.accessors[root]; ok {
		if a.set == nil || rest != "" {
			return fmt.Errorf("%w: %s.%s", ErrReadOnly, inst.Name(), key)
		}
		a.set(inst, value)
		inst.invalidateComputed()
		return nil
	}
	if c, ok := inst.system[root]; ok {
		if rest == "" {
			c.Set(value)
			return nil
		}
		return setIn(c.Get(), rest, value)
	}
	if _, ok := inst.opts.Props[root]; ok {
		return fmt.Errorf("%w: %s.%s is a prop", ErrReadOnly, inst.Name(), key)
	}
	inst.store.Set(key, value)
	return nil
}

// setIn assigns a nested map entry in place. The owning cell keeps its
// identity, so subscribers are not notified.
func setIn(root any, path string, value any) error {
	parentPath, name := "", path
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		parentPath, name = path[:i], path[i+1:]
	}
	parent := root
	if parentPath != "" {
		var ok bool
		if parent, ok = lookupIn(root, parentPath); !ok {
			return fmt.Errorf("hxcore: no field at %q", path)
		}
	}
	m, ok := parent.(map[string]any)
	if !ok {
		return fmt.Errorf("hxcore: cannot set %q on %T", name, parent)
	}
	m[name] = value
	return nil
}

// SetProp updates a prop the way a parent would. The value is validated
// against the prop's declaration.
func (inst *Instance) SetProp(name string, value any) error {
	p, ok := inst.opts.Props[name]
	if !ok {
		return fmt.Errorf("%w: %s has no prop %q", ErrInvalidProp, inst.Name(), name)
	}
	if err := checkProp(inst.Name(), name, p, value); err != nil {
		return err
	}
	inst.store.Set(name, value)
	return nil
}

func checkProp(component, name string, p PropOptions, value any) error {
	if value == nil {
		if p.Required {
			return fmt.Errorf("%w: %s: missing required prop %q", ErrInvalidProp, component, name)
		}
		return nil
	}
	if p.Type != reflect.Invalid {
		if kind := reflect.TypeOf(value).Kind(); kind != p.Type {
			return fmt.Errorf("%w: %s: prop %q must be %s, got %s", ErrInvalidProp, component, name, p.Type, kind)
		}
	}
	if p.Validator != nil && !p.Validator(value) {
		return fmt.Errorf("%w: %s: prop %q failed validation", ErrInvalidProp, component, name)
	}
	return nil
}

// HasMethod reports whether the component defines method name.
func (inst *Instance) HasMethod(name string) bool {
	_, ok := inst.opts.Methods[name]
	return ok
}

// Call invokes method name with args.
func (inst *Instance) Call(name string, args ...any) error {
	fn, ok := inst.opts.Methods[name]
	if !ok || fn == nil {
		return fmt.Errorf("%w: %s.%s", ErrMethodNotFound, inst.Name(), name)
	}
	return fn(inst, args...)
}

// Mod returns the current value of modifier name.
func (inst *Instance) Mod(name string) any {
	v, _ := inst.store.Get("mods." + name)
	return v
}

// SetMod sets modifier name.
func (inst *Instance) SetMod(name string, value any) {
	inst.ensureMods()
	inst.store.Set("mods."+name, value)
}

// RemoveMod unsets modifier name.
func (inst *Instance) RemoveMod(name string) {
	inst.ensureMods()
	inst.store.Delete("mods." + name)
}

func (inst *Instance) ensureMods() {
	if _, ok := inst.store.Get("mods"); !ok {
		inst.store.Set("mods", map[string]any{})
	}
}

// Inject resolves a provided value from the nearest ancestor providing key.
func (inst *Instance) Inject(key string) (any, bool) {
	for p := inst.parent; p != nil; p = p.parent {
		if v, ok := p.opts.Provide[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// Watch subscribes fn to changes of key and returns a function removing
// the subscription. System fields notify synchronously on identity changes;
// accessors and computed values are re-evaluated on every store change.
func (inst *Instance) Watch(key string, opts WatchOptions, fn reactive.WatchFunc) func() {
	info := inst.FieldInfo(key)
	switch info.Kind {
	case FieldSystem:
		return inst.watchSystem(info, opts, fn)
	case FieldAccessor, FieldComputed:
		return inst.watchDerived(key, opts, fn)
	}
	return inst.store.Watch(key, opts, fn)
}

func (inst *Instance) watchSystem(info FieldInfo, opts WatchOptions, fn reactive.WatchFunc) func() {
	cell := inst.system[info.Name]
	pick := func(v any) any {
		if info.Path == "" {
			return v
		}
		v, _ = lookupIn(v, info.Path)
		return v
	}
	if opts.Immediate {
		fn(pick(cell.Get()), nil)
	}
	return cell.Attach(func(newValue, oldValue any) {
		fn(pick(newValue), pick(oldValue))
	})
}

func (inst *Instance) watchDerived(key string, opts WatchOptions, fn reactive.WatchFunc) func() {
	snapshot := func(v any) any {
		if opts.Deep {
			return reactive.Clone(v, true)
		}
		return v
	}
	cur := inst.Get(key)
	last := snapshot(cur)
	if opts.Immediate {
		fn(cur, nil)
	}
	return inst.store.Subscribe(func(string) {
		cur := inst.Get(key)
		if opts.Deep && reactive.DeepEqual(last, cur) || !opts.Deep && reactive.Identical(last, cur) {
			return
		}
		old := last
		last = snapshot(cur)
		fn(cur, old)
	})
}

func (inst *Instance) defineAccessor(name string, decl *AccessorDecl, computed bool) {
	inst.accessors[name] = &accessor{get: decl.Get, set: decl.Set, computed: computed}
}

func (inst *Instance) defineSystemField(name string, value any) {
	inst.system[name] = newCell(value)
}

// SystemField returns the cell backing system field name.
func (inst *Instance) SystemField(name string) (*Cell, bool) {
	c, ok := inst.system[name]
	return c, ok
}

func (inst *Instance) deferHook(phase Hook, decl HookDecl) {
	inst.deferred[phase] = append(inst.deferred[phase], decl)
}

func (inst *Instance) takeDeferred(phase Hook) []HookDecl {
	hooks := inst.deferred[phase]
	delete(inst.deferred, phase)
	return hooks
}

// report hands an error without a caller to the instance's error handler.
func (inst *Instance) report(err error) {
	if err == nil {
		return
	}
	if inst.onError != nil {
		inst.onError(inst, err)
		return
	}
	Logger().Error(err, "unhandled component error", "component", inst.Name(), "hook", string(inst.hook))
}

// Tick runs deferred calls, such as method watchers triggered by Set.
func (inst *Instance) Tick() error {
	return inst.async.Flush()
}

func (inst *Instance) runPhase(phase Hook, fn func(*Instance) error) error {
	old := inst.hook
	inst.hook = phase
	inst.Emit("hook-change", phase, old)
	if fn != nil {
		if err := fn(inst); err != nil {
			return err
		}
	}
	return inst.async.Flush()
}

// MountOption configures Mount.
type MountOption func(*mountConfig)

type mountConfig struct {
	engine  Engine
	parent  *Instance
	onError func(inst *Instance, err error)
}

// WithEngine mounts on e instead of the reactive engine.
func WithEngine(e Engine) MountOption {
	return func(c *mountConfig) { c.engine = e }
}

// WithParent makes parent the provider chain for injections.
func WithParent(parent *Instance) MountOption {
	return func(c *mountConfig) { c.parent = parent }
}

// WithErrorHandler receives errors raised by watcher callbacks that have
// no caller to return to.
func WithErrorHandler(fn func(inst *Instance, err error)) MountOption {
	return func(c *mountConfig) { c.onError = fn }
}

// Mount creates an instance from opts and drives it through creation:
// beforeCreate, beforeDataCreate, created, beforeMount and mounted. Deferred
// calls are flushed after each phase. On a phase error the partially built
// instance is returned along with the error.
func Mount(opts *Options, props map[string]any, options ...MountOption) (*Instance, error) {
	if opts == nil {
		return nil, ErrInvalidComponent
	}
	var cfg mountConfig
	for _, o := range options {
		o(&cfg)
	}
	if cfg.engine == nil {
		e, err := LookupEngine("")
		if err != nil {
			return nil, err
		}
		cfg.engine = e
	}

	inst := newInstance(opts, cfg.engine)
	inst.parent = cfg.parent
	inst.onError = cfg.onError
	if err := inst.initProps(props); err != nil {
		return nil, err
	}

	steps := []struct {
		phase Hook
		fn    func(*Instance) error
	}{
		{HookBeforeCreate, opts.BeforeCreate},
		{HookBeforeDataCreate, (*Instance).initData},
		{HookCreated, opts.Created},
		{HookBeforeMount, opts.BeforeMount},
		{HookMounted, opts.Mounted},
	}
	for _, s := range steps {
		if err := inst.runPhase(s.phase, s.fn); err != nil {
			return inst, fmt.Errorf("hxcore: mount %s: %s: %w", opts.Name, s.phase, err)
		}
	}
	return inst, nil
}

func (inst *Instance) initProps(props map[string]any) error {
	for _, name := range sortedKeys(inst.opts.Props) {
		p := inst.opts.Props[name]
		v, ok := props[name]
		if !ok || v == nil {
			v = CloneWatchValue(p.Default, WatchOptions{Deep: true})
		}
		if err := checkProp(inst.Name(), name, p, v); err != nil {
			return err
		}
		inst.store.Set(name, v)
	}
	return nil
}

func (inst *Instance) initData() error {
	for _, key := range inst.opts.Inject {
		if v, ok := inst.Inject(key); ok {
			inst.store.Set(key, v)
		}
	}
	if inst.opts.Data != nil {
		data, err := inst.opts.Data(inst)
		if err != nil {
			return err
		}
		for _, key := range sortedKeys(data) {
			inst.store.Set(key, data[key])
		}
	}
	if inst.opts.BeforeDataCreate != nil {
		return inst.opts.BeforeDataCreate(inst)
	}
	return nil
}

// Update runs fn between the beforeUpdate and updated phases.
func (inst *Instance) Update(fn func(inst *Instance) error) error {
	if inst.destroyed {
		return ErrDestroyed
	}
	if err := inst.runPhase(HookBeforeUpdate, inst.opts.BeforeUpdate); err != nil {
		return err
	}
	if fn != nil {
		if err := fn(inst); err != nil {
			return err
		}
	}
	return inst.runPhase(HookUpdated, inst.opts.Updated)
}

// Activate runs the activated phase of a kept-alive instance.
func (inst *Instance) Activate() error {
	if inst.destroyed {
		return ErrDestroyed
	}
	return inst.runPhase(HookActivated, inst.opts.Activated)
}

// Deactivate runs the deactivated phase of a kept-alive instance.
func (inst *Instance) Deactivate() error {
	if inst.destroyed {
		return ErrDestroyed
	}
	return inst.runPhase(HookDeactivated, inst.opts.Deactivated)
}

// Destroy runs beforeDestroy, cancels all tracked async work and runs
// destroyed. Destroying twice is a no-op.
func (inst *Instance) Destroy() error {
	if inst.destroyed {
		return nil
	}
	errBefore := inst.runPhase(HookBeforeDestroy, inst.opts.BeforeDestroy)
	inst.async.ClearAll()
	if inst.stopCache != nil {
		inst.stopCache()
	}
	inst.hook = HookDestroyed
	var errAfter error
	if inst.opts.Destroyed != nil {
		errAfter = inst.opts.Destroyed(inst)
	}
	inst.async.ClearAll()
	inst.destroyed = true
	return errors.Join(errBefore, errAfter)
}
