package hxcore

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/pthm/hxcore/lib/reactive"
)

// customWatcherRgxp matches custom watcher keys: an optional "!" or "?"
// prefix, an optional target path and an event name, as in "?net:online" or
// ":close".
var customWatcherRgxp = regexp.MustCompile(`^([!?]?)([^!?:]*):(.*)`)

// BindParams configure BindWatchers. Zero values select the instance's own
// watchers and async tracker and the package Globals.
type BindParams struct {
	// Watchers replaces the component's declared watchers.
	Watchers map[string][]WatchDecl
	// EventCtx resolves custom watcher paths before Globals.
	EventCtx TargetResolver
	// Globals resolves custom watcher paths EventCtx does not know.
	Globals TargetResolver
	// Async tracks subscriptions and deferred calls. A custom tracker
	// disables the default labels and group.
	Async *Async
}

type watchKey struct {
	key    string
	custom bool
	path   string
	event  string
	phase  Hook
}

func parseWatchKey(key string) watchKey {
	wk := watchKey{key: key, phase: HookCreated}
	m := customWatcherRgxp.FindStringSubmatch(key)
	if m == nil {
		return wk
	}
	wk.custom = true
	wk.path = m[2]
	if m[1] == "?" {
		wk.phase = HookMounted
	}
	if wk.path != "" {
		wk.event = m[3]
	} else {
		wk.event = dasherize(m[3])
	}
	return wk
}

// BindWatchers turns declared watchers into live subscriptions. It only
// acts while the instance is in beforeDataCreate, created or mounted.
//
// Plain keys watch instance fields and are bound at created. Custom keys
// ("[!?]path:event") subscribe to events of the target found under path,
// looked up in EventCtx, then Globals, then the instance itself; keys
// prefixed with "?" are bound at mounted. A watcher whose phase is still
// ahead is queued as a deferred hook of that phase.
//
// Method handlers are checked before anything is bound; a missing method
// yields ErrMethodNotFound.
func BindWatchers(inst *Instance, p BindParams) error {
	phase := inst.hook
	if phase != HookBeforeDataCreate && phase != HookCreated && phase != HookMounted {
		return nil
	}

	watchers := p.Watchers
	if watchers == nil && inst.Meta() != nil {
		watchers = inst.Meta().Watchers
	}
	a := p.Async
	customAsync := a != nil && a != inst.async
	if a == nil {
		a = inst.async
	}
	globals := p.Globals
	if globals == nil {
		globals = Globals
	}

	for _, key := range sortedKeys(watchers) {
		for _, w := range watchers[key] {
			if w.Handler.IsZero() {
				return fmt.Errorf("%w: %s watches %q without a handler", ErrInvalidComponent, inst.Name(), key)
			}
			if w.Handler.IsMethod() && !inst.HasMethod(w.Handler.Method()) {
				return fmt.Errorf("%w: %s watches %q with %s", ErrMethodNotFound, inst.Name(), key, w.Handler.Method())
			}
		}
	}

	for _, key := range sortedKeys(watchers) {
		decls := watchers[key]
		if len(decls) == 0 {
			continue
		}
		b := &binder{
			inst:        inst,
			key:         parseWatchKey(key),
			decls:       decls,
			async:       a,
			customAsync: customAsync,
			eventCtx:    p.EventCtx,
			globals:     globals,
		}
		if phase.precedes(b.key.phase) {
			inst.deferHook(b.key.phase, HookDecl{
				Name: "[[BIND:" + key + "]]",
				Fn:   func(*Instance) error { return b.bind() },
			})
			continue
		}
		if err := b.bind(); err != nil {
			return err
		}
	}
	return nil
}

type binder struct {
	inst        *Instance
	key         watchKey
	decls       []WatchDecl
	async       *Async
	customAsync bool
	eventCtx    TargetResolver
	globals     TargetResolver
}

func (b *binder) bind() error {
	name := b.key.key
	var root any = b.inst
	if b.key.custom {
		name = b.key.event
		root = b.resolveRoot()
	}

	for _, w := range b.decls {
		params := AsyncParams{Label: w.Label, Group: w.Group, Join: w.Join}
		if !b.customAsync {
			if params.Label == "" {
				params.Label = fmt.Sprintf("[[WATCHER:%s:%s]]", name, handlerName(w.Handler))
			}
			if params.Group == "" {
				params.Group = "watchers"
			}
		}

		l, err := b.listener(w, params)
		if err != nil {
			return err
		}
		if w.Wrapper != nil {
			l = w.Wrapper(b.inst, l)
		}

		if w.AsyncWrapper == nil {
			if err := b.subscribe(root, name, w, params, l); err != nil {
				return err
			}
			continue
		}

		var wrapped Listener
		wrap := w.AsyncWrapper
		b.async.Promise(AsyncParams{Group: params.Group},
			func(ctx context.Context) error {
				var err error
				wrapped, err = wrap(ctx, b.inst, l)
				return err
			},
			func() error {
				return b.subscribe(root, name, w, params, wrapped)
			},
		)
	}
	return nil
}

// resolveRoot finds the event target of a custom watcher.
func (b *binder) resolveRoot() any {
	path := b.key.path
	if path == "" {
		return b.inst
	}
	if b.eventCtx != nil {
		if v, ok := b.eventCtx.Lookup(path); ok && v != nil {
			return v
		}
	}
	if v, ok := b.globals.Lookup(path); ok && v != nil {
		return v
	}
	return b.inst
}

func handlerName(h Handler) string {
	if h.IsMethod() {
		return h.method
	}
	return h.name
}

// listener builds the dispatch function of w. Named methods are resolved
// here once; with a label they run on the next flush, replacing a pending
// call with the same label.
func (b *binder) listener(w WatchDecl, params AsyncParams) (Listener, error) {
	inst := b.inst
	fn := w.Handler.fn
	if w.Handler.IsMethod() {
		m, ok := inst.opts.Methods[w.Handler.method]
		if !ok || m == nil {
			return nil, fmt.Errorf("%w: %s.%s", ErrMethodNotFound, inst.Name(), w.Handler.method)
		}
		fn = m
	}
	deferred := w.Handler.IsMethod() && params.Label != ""

	return func(args ...any) error {
		if w.NoArgs {
			args = nil
		}
		if deferred {
			b.async.SetImmediate(func() error { return fn(inst, args...) }, params)
			return nil
		}
		return fn(inst, args...)
	}, nil
}

func (b *binder) subscribe(root any, name string, w WatchDecl, params AsyncParams, l Listener) error {
	inst := b.inst

	if b.key.custom {
		handler := func(args ...any) {
			inst.report(l(args...))
		}
		if root == any(inst) {
			args := w.Args
			off := inst.On(name, func(evArgs ...any) {
				handler(append(evArgs, args...)...)
			})
			b.async.Worker(off, AsyncParams{Group: params.Group})
			return nil
		}
		target, ok := root.(EventTarget)
		if !ok {
			return fmt.Errorf("%w: %s watches %q on %T", ErrNotEventTarget, inst.Name(), b.key.key, root)
		}
		// Only an explicit label dedups listeners; the default one would
		// make watchers of the same event replace each other.
		on := AsyncParams{Label: w.Label, Group: params.Group, Join: w.Join}
		b.async.On(target, name, handler, on, w.Args...)
		return nil
	}

	unwatch := inst.Watch(name, WatchOptions{Deep: w.Deep, Immediate: w.Immediate}, func(newValue, oldValue any) {
		inst.report(l(newValue, oldValue))
	})
	b.async.Worker(unwatch, AsyncParams{Group: params.Group})
	return nil
}

// Freezer is implemented by values that must never be copied, such as
// shared read-only lookup tables.
type Freezer interface {
	IsFrozen() bool
}

// CloneWatchValue copies slices and maps, recursively with opts.Deep, so a
// watched or default value is not aliased. Frozen values and all other
// kinds are returned as is.
func CloneWatchValue(v any, opts WatchOptions) any {
	if f, ok := v.(Freezer); ok && f.IsFrozen() {
		return v
	}
	return reactive.Clone(v, opts.Deep)
}

// dasherize converts camelCase and snake_case names to dash-case.
func dasherize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 4)
	prevLower := false
	for _, r := range s {
		switch {
		case r == '_' || r == ' ':
			sb.WriteByte('-')
			prevLower = false
		case unicode.IsUpper(r):
			if prevLower {
				sb.WriteByte('-')
			}
			sb.WriteRune(unicode.ToLower(r))
			prevLower = false
		default:
			sb.WriteRune(r)
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		}
	}
	return sb.String()
}
