package hxcore

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/pthm/hxcore/lib/reactive"
)

func TestParseWatchKey(t *testing.T) {
	tests := []struct {
		key  string
		want watchKey
	}{
		{"count", watchKey{key: "count", phase: HookCreated}},
		{"fieldName", watchKey{key: "fieldName", phase: HookCreated}},
		{"?globalObj:someEvent", watchKey{key: "?globalObj:someEvent", custom: true, path: "globalObj", event: "someEvent", phase: HookMounted}},
		{"net.status:onlineChange", watchKey{key: "net.status:onlineChange", custom: true, path: "net.status", event: "onlineChange", phase: HookCreated}},
		{":someEvent", watchKey{key: ":someEvent", custom: true, event: "some-event", phase: HookCreated}},
		{"!:fooBar", watchKey{key: "!:fooBar", custom: true, event: "foo-bar", phase: HookCreated}},
		{"?:close", watchKey{key: "?:close", custom: true, event: "close", phase: HookMounted}},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := parseWatchKey(tt.key)
			if diff := cmp.Diff(tt.want, got, cmp.AllowUnexported(watchKey{})); diff != "" {
				t.Errorf("parseWatchKey(%q) mismatch (-want +got):\n%s", tt.key, diff)
			}
		})
	}
}

func TestDasherize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"someEvent", "some-event"},
		{"fooBar_baz", "foo-bar-baz"},
		{"already-dashed", "already-dashed"},
		{"getURL", "get-url"},
		{"item2Name", "item2-name"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := dasherize(tt.in); got != tt.want {
			t.Errorf("dasherize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

type frozenList []any

func (frozenList) IsFrozen() bool { return true }

func TestCloneWatchValue(t *testing.T) {
	nested := []any{1}
	list := []any{nested, 2}

	shallow := CloneWatchValue(list, WatchOptions{}).([]any)
	if reactive.Identical(shallow, list) {
		t.Error("shallow clone returned the same slice")
	}
	if !reactive.Identical(shallow[0], nested) {
		t.Error("shallow clone copied nested values")
	}

	deep := CloneWatchValue(list, WatchOptions{Deep: true}).([]any)
	if reactive.Identical(deep[0], nested) {
		t.Error("deep clone shares nested values")
	}
	if diff := cmp.Diff(list, deep); diff != "" {
		t.Errorf("deep clone mismatch (-want +got):\n%s", diff)
	}

	obj := map[string]any{"a": map[string]any{"b": 1}}
	deepObj := CloneWatchValue(obj, WatchOptions{Deep: true}).(map[string]any)
	deepObj["a"].(map[string]any)["b"] = 2
	if obj["a"].(map[string]any)["b"] != 1 {
		t.Error("deep map clone shares nested maps")
	}

	frozen := frozenList{1, 2}
	if !reactive.Identical(CloneWatchValue(frozen, WatchOptions{Deep: true}), frozen) {
		t.Error("frozen value was copied")
	}

	type point struct{ X int }
	p := &point{1}
	if CloneWatchValue(p, WatchOptions{Deep: true}) != any(p) {
		t.Error("pointer was copied")
	}
	if CloneWatchValue(nil, WatchOptions{}) != nil {
		t.Error("nil did not pass through")
	}
}

func TestSystemFieldWatch(t *testing.T) {
	rec := &HookRecorder{}
	c := Define("b-sys", nil)
	c.Method("onSys", rec.Method("onSys")).Watch("sys", WatchDecl{})
	c.Method("onSysNow", rec.Method("onSysNow")).Watch("sys", WatchDecl{Immediate: true})

	meta := NewMeta("b-sys")
	meta.SystemField("sys", FieldDecl{Default: "a"})

	inst, err := TestMount(c, meta, nil)
	if err != nil {
		t.Fatalf("TestMount() error = %v", err)
	}
	if info := inst.FieldInfo("sys"); info.Kind != FieldSystem {
		t.Errorf("FieldInfo(sys).Kind = %v, want system", info.Kind)
	}
	if diff := cmp.Diff([]string{"onSysNow(a, <nil>)"}, rec.Calls()); diff != "" {
		t.Errorf("immediate mismatch (-want +got):\n%s", diff)
	}

	rec.Reset()
	if err := inst.Set("sys", "a"); err != nil {
		t.Fatal(err)
	}
	if calls := rec.Calls(); len(calls) != 0 {
		t.Errorf("identical value notified: %v", calls)
	}

	if err := inst.Set("sys", "b"); err != nil {
		t.Fatal(err)
	}
	want := []string{"onSys(b, a)", "onSysNow(b, a)"}
	if diff := cmp.Diff(want, rec.Calls()); diff != "" {
		t.Errorf("notify mismatch (-want +got):\n%s", diff)
	}

	cell, _ := inst.SystemField("sys")
	if n := cell.Subscribers(); n != 2 {
		t.Errorf("Subscribers() = %d, want 2", n)
	}
	if err := inst.Destroy(); err != nil {
		t.Fatal(err)
	}
	if n := cell.Subscribers(); n != 0 {
		t.Errorf("Subscribers() after Destroy = %d, want 0", n)
	}
}

func TestCustomWatcherTranslation(t *testing.T) {
	global := NewEventEmitter()
	Globals.Register("globalObj", global)
	t.Cleanup(func() { Globals.Unregister("globalObj") })

	rec := &HookRecorder{}
	var listenersAtCreated int
	c := Define("b-custom", nil)
	c.Method("onGlobal", rec.Method("onGlobal")).Watch("?globalObj:someEvent", WatchDecl{})
	c.Method("onLocal", rec.Method("onLocal")).Watch(":fooBar", WatchDecl{})
	c.Method("onFallback", rec.Method("onFallback")).Watch("?missing:ping", WatchDecl{})
	c.Method("created", func(*Instance, ...any) error {
		listenersAtCreated = global.ListenerCount("someEvent")
		return nil
	})

	meta := NewMeta("b-custom")
	inst, err := TestMount(c, meta, nil)
	if err != nil {
		t.Fatalf("TestMount() error = %v", err)
	}

	if listenersAtCreated != 0 {
		t.Errorf("?-prefixed watcher bound before mounted")
	}
	if n := global.ListenerCount("someEvent"); n != 1 {
		t.Errorf("ListenerCount(someEvent) = %d, want 1", n)
	}
	if n := global.ListenerCount("some-event"); n != 0 {
		t.Errorf("path watcher event name was dash-cased")
	}

	global.Emit("someEvent", 1)
	inst.Emit("foo-bar", "x")
	inst.Emit("fooBar", "ignored")
	inst.Emit("ping")

	want := []string{"onGlobal(1)", "onLocal(x)", "onFallback"}
	if diff := cmp.Diff(want, rec.Calls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}

	if err := inst.Destroy(); err != nil {
		t.Fatal(err)
	}
	if n := global.ListenerCount("someEvent"); n != 0 {
		t.Errorf("ListenerCount(someEvent) after Destroy = %d, want 0", n)
	}
}

func TestBindWatchersTargetResolution(t *testing.T) {
	inCtx, inGlobals := NewEventEmitter(), NewEventEmitter()
	eventCtx := NewGlobalRegistry()
	eventCtx.Register("bus", inCtx)
	globals := NewGlobalRegistry()
	globals.Register("bus", inGlobals)
	globals.Register("other", inGlobals)
	globals.Register("plain", 42)

	inst, err := Mount(&Options{Name: "b-bind"}, nil)
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}

	rec := &HookRecorder{}
	err = BindWatchers(inst, BindParams{
		Watchers: map[string][]WatchDecl{
			"bus:tick":   {{Handler: FuncHandler(rec.Method("ctx"))}},
			"other:tock": {{Handler: FuncHandler(rec.Method("global")), Args: []any{"extra"}}},
		},
		EventCtx: eventCtx,
		Globals:  globals,
	})
	if err != nil {
		t.Fatalf("BindWatchers() error = %v", err)
	}

	inGlobals.Emit("tick", 0)
	inCtx.Emit("tick", 1)
	inGlobals.Emit("tock", 2)

	want := []string{"ctx(1)", "global(2, extra)"}
	if diff := cmp.Diff(want, rec.Calls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}

	err = BindWatchers(inst, BindParams{
		Watchers: map[string][]WatchDecl{"plain:evt": {{Handler: FuncHandler(rec.Method("x"))}}},
		Globals:  globals,
	})
	if !errors.Is(err, ErrNotEventTarget) {
		t.Errorf("BindWatchers(plain) error = %v, want ErrNotEventTarget", err)
	}
}

func TestBindWatchersInactivePhase(t *testing.T) {
	inst, err := Mount(&Options{Name: "b-phase"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := inst.Update(nil); err != nil {
		t.Fatal(err)
	}

	rec := &HookRecorder{}
	err = BindWatchers(inst, BindParams{
		Watchers: map[string][]WatchDecl{":evt": {{Handler: FuncHandler(rec.Method("evt"))}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	inst.Emit("evt")
	if calls := rec.Calls(); len(calls) != 0 {
		t.Errorf("bound outside a binding phase: %v", calls)
	}
}

func TestMethodHandlerNotFound(t *testing.T) {
	meta := NewMeta("b-missing")
	meta.Field("count", FieldDecl{Default: 0})
	meta.Watch("count", WatchDecl{Handler: MethodHandler("nope")})

	_, err := TestMount(Define("b-missing", nil), meta, nil)
	if !IsMethodNotFound(err) {
		t.Fatalf("TestMount() error = %v, want ErrMethodNotFound", err)
	}
}

func TestMethodHandlerDeferred(t *testing.T) {
	rec := &HookRecorder{}
	c := Define("b-title", nil)
	c.Method("onTitle", rec.Method("onTitle"))

	meta := NewMeta("b-title")
	meta.Prop("title", PropDecl{
		Type:     reflect.String,
		Default:  "a",
		Watchers: []WatchDecl{{Handler: MethodHandler("onTitle")}},
	})

	inst, err := TestMount(c, meta, nil)
	if err != nil {
		t.Fatalf("TestMount() error = %v", err)
	}

	if err := inst.SetProp("title", "b"); err != nil {
		t.Fatal(err)
	}
	if calls := rec.Calls(); len(calls) != 0 {
		t.Errorf("method handler ran before flush: %v", calls)
	}
	if err := inst.SetProp("title", "c"); err != nil {
		t.Fatal(err)
	}
	if err := inst.Tick(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"onTitle(c, b)"}, rec.Calls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestSystemFieldWatchers(t *testing.T) {
	rec := &HookRecorder{}
	meta := NewMeta("b-sys")
	meta.SystemField("sys", FieldDecl{
		Default:  1,
		Watchers: []WatchDecl{{Handler: FuncHandler(rec.Method("sys"))}},
	})

	inst, err := TestMount(Define("b-sys", nil), meta, nil)
	if err != nil {
		t.Fatalf("TestMount() error = %v", err)
	}
	if n := len(meta.Watchers["sys"]); n != 1 {
		t.Errorf("len(Watchers[sys]) = %d, want 1", n)
	}

	if err := inst.Set("sys", 2); err != nil {
		t.Fatal(err)
	}
	if err := inst.Tick(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"sys(2, 1)"}, rec.Calls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestWatchDeclOptions(t *testing.T) {
	rec := &HookRecorder{}
	meta := NewMeta("b-opts")
	meta.Field("n", FieldDecl{Default: 0})
	meta.Field("obj", FieldDecl{Default: map[string]any{"k": 1}})
	meta.Watch("n", WatchDecl{Handler: FuncHandler(rec.Method("noargs")), NoArgs: true})
	meta.Watch("n", WatchDecl{
		Handler: FuncHandler(rec.Method("wrapped")),
		Wrapper: func(_ *Instance, l Listener) Listener {
			return func(args ...any) error {
				return l(append([]any{"w"}, args...)...)
			}
		},
	})
	meta.Watch("obj", WatchDecl{Handler: FuncHandler(rec.Method("deep")), Deep: true})

	inst, err := TestMount(Define("b-opts", nil), meta, nil)
	if err != nil {
		t.Fatalf("TestMount() error = %v", err)
	}

	if err := inst.Set("n", 1); err != nil {
		t.Fatal(err)
	}
	if err := inst.Set("obj.k", 2); err != nil {
		t.Fatal(err)
	}

	want := []string{"noargs", "wrapped(w, 1, 0)", "deep(map[k:2], map[k:1])"}
	if diff := cmp.Diff(want, rec.Calls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestAsyncWrapperDefersSubscription(t *testing.T) {
	release := make(chan struct{})
	rec := &HookRecorder{}
	meta := NewMeta("b-async")
	meta.Field("n", FieldDecl{Default: 0})
	meta.Watch("n", WatchDecl{
		Handler: FuncHandler(rec.Method("h")),
		AsyncWrapper: func(ctx context.Context, _ *Instance, l Listener) (Listener, error) {
			select {
			case <-release:
				return l, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	})

	inst, err := TestMount(Define("b-async", nil), meta, nil)
	if err != nil {
		t.Fatalf("TestMount() error = %v", err)
	}

	if err := inst.Set("n", 1); err != nil {
		t.Fatal(err)
	}
	if calls := rec.Calls(); len(calls) != 0 {
		t.Fatalf("subscribed before the wrapper resolved: %v", calls)
	}

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := inst.Async().Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if err := inst.Set("n", 2); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"h(2, 1)"}, rec.Calls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestWatcherErrorsReported(t *testing.T) {
	boom := errors.New("boom")
	meta := NewMeta("b-err")
	meta.Field("n", FieldDecl{Default: 0})
	meta.Watch("n", WatchDecl{Handler: FuncHandler(func(*Instance, ...any) error { return boom })})

	var reported []error
	inst, err := TestMount(Define("b-err", nil), meta, nil, WithErrorHandler(func(_ *Instance, err error) {
		reported = append(reported, err)
	}))
	if err != nil {
		t.Fatal(err)
	}
	if err := inst.Set("n", 1); err != nil {
		t.Fatal(err)
	}
	if len(reported) != 1 || !errors.Is(reported[0], boom) {
		t.Errorf("reported = %v, want [boom]", reported)
	}
}

func TestJoinedListeners(t *testing.T) {
	em := NewEventEmitter()
	globals := NewGlobalRegistry()
	globals.Register("win", em)

	inst, err := Mount(&Options{Name: "b-join"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	rec := &HookRecorder{}
	decl := WatchDecl{Handler: FuncHandler(rec.Method("resize")), Label: "resize", Join: true}
	err = BindWatchers(inst, BindParams{
		Watchers: map[string][]WatchDecl{"win:resize": {decl, decl}},
		Globals:  globals,
	})
	if err != nil {
		t.Fatal(err)
	}
	if n := em.ListenerCount("resize"); n != 1 {
		t.Errorf("ListenerCount(resize) = %d, want 1", n)
	}
}
