package hxcore

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pthm/hxcore/lib/reactive"
)

func TestRunHooksOrder(t *testing.T) {
	type hook struct {
		name  string
		after []string
	}
	tests := []struct {
		name  string
		hooks []hook
		want  []string
	}{
		{
			name:  "dependencies first",
			hooks: []hook{{"c", []string{"a", "b"}}, {"b", []string{"a"}}, {"a", nil}},
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "declaration order breaks ties",
			hooks: []hook{{"x", nil}, {"y", nil}, {"z", nil}},
			want:  []string{"x", "y", "z"},
		},
		{
			name:  "independent chains",
			hooks: []hook{{"b2", []string{"b1"}}, {"a1", nil}, {"b1", nil}, {"a2", []string{"a1"}}},
			want:  []string{"a1", "b1", "b2", "a2"},
		},
		{
			name:  "duplicate dependency",
			hooks: []hook{{"b", []string{"a", "a"}}, {"a", nil}},
			want:  []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &HookRecorder{}
			meta := NewMeta("b-hooks")
			for _, h := range tt.hooks {
				meta.Hook(HookMounted, HookDecl{Name: h.name, Fn: rec.Hook(h.name), After: h.after})
			}

			if err := RunHooks(HookMounted, meta, nil); err != nil {
				t.Fatalf("RunHooks() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, rec.Calls()); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRunHooksGraphErrors(t *testing.T) {
	tests := []struct {
		name    string
		hooks   []HookDecl
		wantErr error
	}{
		{
			name:    "unknown dependency",
			hooks:   []HookDecl{{Name: "a"}, {Name: "b", After: []string{"typo"}}},
			wantErr: ErrUnknownHookDependency,
		},
		{
			name:    "cycle",
			hooks:   []HookDecl{{Name: "free"}, {Name: "a", After: []string{"b"}}, {Name: "b", After: []string{"a"}}},
			wantErr: ErrHookCycle,
		},
		{
			name:    "self dependency",
			hooks:   []HookDecl{{Name: "a", After: []string{"a"}}},
			wantErr: ErrHookCycle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &HookRecorder{}
			meta := NewMeta("b-hooks")
			for _, h := range tt.hooks {
				h.Fn = rec.Hook(h.Name)
				meta.Hook(HookCreated, h)
			}

			err := RunHooks(HookCreated, meta, nil)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("RunHooks() error = %v, want %v", err, tt.wantErr)
			}
			if !IsHookOrderError(err) {
				t.Errorf("IsHookOrderError(%v) = false", err)
			}
			if calls := rec.Calls(); len(calls) != 0 {
				t.Errorf("hooks ran before validation failed: %v", calls)
			}
		})
	}
}

func TestRunHooksStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	rec := &HookRecorder{}
	meta := NewMeta("b-hooks")
	meta.Hook(HookCreated, HookDecl{Name: "a", Fn: func(*Instance) error {
		rec.Record("a")
		return boom
	}})
	meta.Hook(HookCreated, HookDecl{Name: "b", Fn: rec.Hook("b"), After: []string{"a"}})

	if err := RunHooks(HookCreated, meta, nil); !errors.Is(err, boom) {
		t.Fatalf("RunHooks() error = %v, want %v", err, boom)
	}
	if diff := cmp.Diff([]string{"a"}, rec.Calls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestRunHooksDeferredFirst(t *testing.T) {
	rec := &HookRecorder{}
	meta := NewMeta("b-hooks")
	meta.Hook(HookMounted, HookDecl{Name: "declared", Fn: rec.Hook("declared")})

	inst := newInstance(&Options{Name: "b-hooks", meta: meta}, reactive.New())
	inst.deferHook(HookMounted, HookDecl{Name: "deferred", Fn: rec.Hook("deferred")})

	if err := RunHooks(HookMounted, meta, inst); err != nil {
		t.Fatalf("RunHooks() error = %v", err)
	}
	if err := RunHooks(HookMounted, meta, inst); err != nil {
		t.Fatalf("RunHooks() error = %v", err)
	}

	want := []string{"deferred", "declared", "declared"}
	if diff := cmp.Diff(want, rec.Calls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestRunHooksNoHooks(t *testing.T) {
	if err := RunHooks(HookDestroyed, NewMeta("b-empty"), nil); err != nil {
		t.Errorf("RunHooks() error = %v", err)
	}
	if err := RunHooks(HookDestroyed, nil, nil); err != nil {
		t.Errorf("RunHooks(nil meta) error = %v", err)
	}
}
