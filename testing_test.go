package hxcore

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestHookRecorder(t *testing.T) {
	rec := &HookRecorder{}
	if err := rec.Hook("h")(nil); err != nil {
		t.Fatal(err)
	}
	if err := rec.Method("m")(nil, 1, "two", nil); err != nil {
		t.Fatal(err)
	}
	rec.Listener("l")()

	want := []string{"h", "m(1, two, <nil>)", "l"}
	if diff := cmp.Diff(want, rec.Calls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}

	calls := rec.Calls()
	calls[0] = "mutated"
	if rec.Calls()[0] != "h" {
		t.Error("Calls() exposes internal storage")
	}

	rec.Reset()
	if len(rec.Calls()) != 0 {
		t.Error("Reset() kept calls")
	}
}

func TestTestMountUsesFreshRegistry(t *testing.T) {
	c := Define("b-fresh", nil)
	meta := NewMeta("b-fresh")
	if _, err := TestMount(c, meta, nil); err != nil {
		t.Fatal(err)
	}
	if _, ok := DefaultRegistry().Lookup("b-fresh"); ok {
		t.Error("TestMount registered into the default registry")
	}
}
