package hxcore

import (
	"context"
	"reflect"
	"sort"
)

// Hook names a lifecycle phase.
type Hook string

// Lifecycle phases in the order an instance passes through them.
const (
	HookBeforeCreate     Hook = "beforeCreate"
	HookBeforeDataCreate Hook = "beforeDataCreate"
	HookCreated          Hook = "created"
	HookBeforeMount      Hook = "beforeMount"
	HookMounted          Hook = "mounted"
	HookBeforeUpdate     Hook = "beforeUpdate"
	HookUpdated          Hook = "updated"
	HookActivated        Hook = "activated"
	HookDeactivated      Hook = "deactivated"
	HookBeforeDestroy    Hook = "beforeDestroy"
	HookDestroyed        Hook = "destroyed"
)

var hookRank = map[Hook]int{
	HookBeforeCreate:     0,
	HookBeforeDataCreate: 1,
	HookCreated:          2,
	HookBeforeMount:      3,
	HookMounted:          4,
	HookBeforeUpdate:     5,
	HookUpdated:          6,
	HookActivated:        7,
	HookDeactivated:      8,
	HookBeforeDestroy:    9,
	HookDestroyed:        10,
}

// precedes reports whether h happens before other during the initial
// creation pass. Unknown hooks never precede anything.
func (h Hook) precedes(other Hook) bool {
	a, ok := hookRank[h]
	if !ok {
		return false
	}
	b, ok := hookRank[other]
	return ok && a < b
}

// Template holds the default values of a component type, produced once per
// compilation by the constructor.
type Template map[string]any

// MethodFunc is a component method. The instance is the receiver.
type MethodFunc func(inst *Instance, args ...any) error

// HookFunc is a lifecycle hook callback.
type HookFunc func(inst *Instance) error

// InitFunc computes the initial value of a field. A nil result falls back to
// the declared default or a clone of the template value.
type InitFunc func(inst *Instance, tmpl Template) any

// Getter reads an accessor.
type Getter func(inst *Instance) any

// Setter writes an accessor.
type Setter func(inst *Instance, value any)

// Handler is the target of a watch: either a function or the name of a
// method on the instance.
type Handler struct {
	fn     MethodFunc
	name   string
	method string
}

// FuncHandler returns a handler calling fn directly.
func FuncHandler(fn MethodFunc) Handler {
	return Handler{fn: fn}
}

// NamedFuncHandler is FuncHandler with a name used in default async labels.
func NamedFuncHandler(name string, fn MethodFunc) Handler {
	return Handler{fn: fn, name: name}
}

// MethodHandler returns a handler calling the named instance method. The
// name is resolved when the watcher is bound.
func MethodHandler(name string) Handler {
	return Handler{method: name}
}

// IsMethod reports whether the handler refers to a method by name.
func (h Handler) IsMethod() bool { return h.method != "" }

// Method returns the method name of a named handler.
func (h Handler) Method() string { return h.method }

// IsZero reports whether no handler is set.
func (h Handler) IsZero() bool { return h.fn == nil && h.method == "" }

// Listener is a bound watch handler, produced by the watcher binder.
type Listener func(args ...any) error

// WatchDecl describes one watcher of a key.
type WatchDecl struct {
	Handler   Handler
	Deep      bool
	Immediate bool

	// NoArgs calls the handler without the watched values.
	NoArgs bool

	// Wrapper transforms the bound listener before subscription.
	Wrapper func(inst *Instance, l Listener) Listener

	// AsyncWrapper builds the listener on a separate goroutine; subscription
	// waits until it returns. It must not touch instance state.
	AsyncWrapper func(ctx context.Context, inst *Instance, l Listener) (Listener, error)

	// Label, Group and Join tag async work for deduplication and
	// cancellation.
	Label string
	Group string
	Join  bool

	// Args are appended to event arguments of custom watchers.
	Args []any
}

// FieldDecl describes a reactive or system field.
type FieldDecl struct {
	Default  any
	Init     InitFunc
	Watchers []WatchDecl
}

// PropDecl describes an input set by the parent.
type PropDecl struct {
	// Type restricts the kind of the value; reflect.Invalid accepts any.
	Type      reflect.Kind
	Required  bool
	Validator func(value any) bool
	Default   any
	Watchers  []WatchDecl
}

// AccessorDecl is a getter/setter pair.
type AccessorDecl struct {
	Get Getter
	Set Setter
}

// HookDecl is a hook callback with the names of same-phase hooks that must
// run before it.
type HookDecl struct {
	Name  string
	Fn    HookFunc
	After []string
}

// MethodDecl is a method with the watchers and hooks declared on it.
type MethodDecl struct {
	Fn       MethodFunc
	Watchers map[string]WatchDecl
	Hooks    map[Hook]HookDecl
}

// ModValue is one allowed value of a modifier.
type ModValue struct {
	Value   any
	Default bool
}

// Mod returns an allowed modifier value.
func Mod(v any) ModValue { return ModValue{Value: v} }

// DefaultMod returns the allowed modifier value used as the default.
func DefaultMod(v any) ModValue { return ModValue{Value: v, Default: true} }

// Params are component-level render parameters.
type Params struct {
	Functional   bool
	InheritAttrs bool
	Provide      map[string]any
	Inject       []string
}

// Meta is the declarative description of a component type. It is shared by
// all instances and only mutated during compilation.
type Meta struct {
	Name         string
	Params       Params
	Fields       map[string]*FieldDecl
	SystemFields map[string]*FieldDecl
	Props        map[string]*PropDecl
	Accessors    map[string]*AccessorDecl
	Computed     map[string]*AccessorDecl
	Methods      map[string]*MethodDecl
	Watchers     map[string][]WatchDecl
	Hooks        map[Hook][]HookDecl
	Mods         map[string][]ModValue

	// added records the constructors already merged by AddMethodsToMeta.
	added map[*Constructor]bool
	// merged is set once prop and field watchers are in Watchers.
	merged bool
}

// NewMeta returns an empty Meta for the named component.
func NewMeta(name string) *Meta {
	return &Meta{
		Name:         name,
		Fields:       make(map[string]*FieldDecl),
		SystemFields: make(map[string]*FieldDecl),
		Props:        make(map[string]*PropDecl),
		Accessors:    make(map[string]*AccessorDecl),
		Computed:     make(map[string]*AccessorDecl),
		Methods:      make(map[string]*MethodDecl),
		Watchers:     make(map[string][]WatchDecl),
		Hooks:        make(map[Hook][]HookDecl),
		Mods:         make(map[string][]ModValue),
	}
}

// Field declares a reactive field.
func (m *Meta) Field(name string, decl FieldDecl) *Meta {
	m.Fields[name] = &decl
	return m
}

// SystemField declares a field outside the engine's reactivity.
func (m *Meta) SystemField(name string, decl FieldDecl) *Meta {
	m.SystemFields[name] = &decl
	return m
}

// Prop declares an input.
func (m *Meta) Prop(name string, decl PropDecl) *Meta {
	m.Props[name] = &decl
	return m
}

// Accessor declares an uncached accessor. Getters and setters supplied by
// the constructor are merged in during compilation.
func (m *Meta) Accessor(name string, decl AccessorDecl) *Meta {
	m.Accessors[name] = &decl
	return m
}

// Watch declares a watcher for key.
func (m *Meta) Watch(key string, decl WatchDecl) *Meta {
	m.Watchers[key] = append(m.Watchers[key], decl)
	return m
}

// Hook declares a hook for phase.
func (m *Meta) Hook(phase Hook, decl HookDecl) *Meta {
	m.Hooks[phase] = append(m.Hooks[phase], decl)
	return m
}

// WatchMethod attaches a watcher declaration to a method slot before the
// method itself is registered.
func (m *Meta) WatchMethod(method, key string, decl WatchDecl) *Meta {
	md := m.methodSlot(method)
	md.Watchers[key] = decl
	return m
}

// HookMethod attaches a hook declaration to a method slot.
func (m *Meta) HookMethod(method string, phase Hook, after ...string) *Meta {
	md := m.methodSlot(method)
	md.Hooks[phase] = HookDecl{Name: method, After: after}
	return m
}

// ModValues declares the allowed values of a modifier.
func (m *Meta) ModValues(name string, values ...ModValue) *Meta {
	m.Mods[name] = values
	return m
}

func (m *Meta) methodSlot(name string) *MethodDecl {
	md, ok := m.Methods[name]
	if !ok {
		md = &MethodDecl{}
		m.Methods[name] = md
	}
	if md.Watchers == nil {
		md.Watchers = make(map[string]WatchDecl)
	}
	if md.Hooks == nil {
		md.Hooks = make(map[Hook]HookDecl)
	}
	return md
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedHooks[V any](m map[Hook]V) []Hook {
	keys := make([]Hook, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
