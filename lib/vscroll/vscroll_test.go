package vscroll

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestConvertRemoteData(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		want    *RemoteData
		wantErr bool
	}{
		{"nil", nil, nil, false},
		{"slice", []any{1, 2}, &RemoteData{Data: []any{1, 2}}, false},
		{"value", RemoteData{Data: []any{1}, Total: 5}, &RemoteData{Data: []any{1}, Total: 5}, false},
		{"map", map[string]any{"data": []any{"x"}, "total": int64(9)}, &RemoteData{Data: []any{"x"}, Total: 9}, false},
		{"map float total", map[string]any{"data": []any{}, "total": 3.0}, &RemoteData{Data: []any{}, Total: 3}, false},
		{"map without data", map[string]any{"total": 1}, &RemoteData{Total: 1}, false},
		{"bad data", map[string]any{"data": "x"}, nil, true},
		{"unsupported", 42, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConvertRemoteData(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ConvertRemoteData() error = %v, wantErr %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ConvertRemoteData() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestQueryInt(t *testing.T) {
	q := Query{"a": 3, "b": uint8(4), "c": "5", "d": "x", "e": 2.5}
	tests := []struct {
		key  string
		want int
	}{
		{"a", 3}, {"b", 4}, {"c", 5}, {"d", -1}, {"e", 2}, {"missing", -1},
	}
	for _, tt := range tests {
		if got := q.Int(tt.key, -1); got != tt.want {
			t.Errorf("Int(%q) = %d, want %d", tt.key, got, tt.want)
		}
	}
}

func TestBaseDefaults(t *testing.T) {
	b := &Base{Request: Query{"sort": "name"}}

	if !b.ShouldMakeRequest(RequestParams{ItemsTillBottom: DefaultThreshold}) {
		t.Error("ShouldMakeRequest at the threshold = false")
	}
	if b.ShouldMakeRequest(RequestParams{ItemsTillBottom: DefaultThreshold + 1}) {
		t.Error("ShouldMakeRequest above the threshold = true")
	}
	if b.ShouldMakeRequest(RequestParams{IsLastEmpty: true}) {
		t.Error("ShouldMakeRequest after an empty page = true")
	}
	if b.ShouldContinueRequest(RequestParams{LastLoadedData: []any{}}) {
		t.Error("ShouldContinueRequest with no data = true")
	}

	q := b.DefaultRequestParams("get")
	q["sort"] = "changed"
	if b.Request["sort"] != "name" {
		t.Error("DefaultRequestParams returned the shared map")
	}
	if got := b.DefaultRequestParams("post"); len(got) != 0 {
		t.Errorf("DefaultRequestParams(post) = %v", got)
	}

	want := map[string]Query{"get": {"page": 3, "perPage": DefaultPerPage}}
	if diff := cmp.Diff(want, b.RequestQuery(RequestParams{CurrentPage: 3})); diff != "" {
		t.Errorf("RequestQuery() mismatch (-want +got):\n%s", diff)
	}

	b.SetMod(ModProgress, true)
	if got := b.Mod(ModProgress); got != "true" {
		t.Errorf("Mod() = %q", got)
	}
	b.RemoveMod(ModProgress)
	if got := b.Mod(ModProgress); got != "" {
		t.Errorf("Mod() after remove = %q", got)
	}
}

func TestScrollRenderComponent(t *testing.T) {
	r := &ScrollRender{Tombstones: 2}
	r.InitItems([]any{"<b>", "ok"})
	r.Render()
	r.SetRefVisibility(RefTombstones, true)

	var buf bytes.Buffer
	if err := r.Component(nil).Render(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}
	want := `<div class="b-virtual-scroll__item" data-index="0">&lt;b&gt;</div>` +
		`<div class="b-virtual-scroll__item" data-index="1">ok</div>` +
		`<div class="b-virtual-scroll__tombstone"></div><div class="b-virtual-scroll__tombstone"></div>`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("render mismatch (-want +got):\n%s", diff)
	}

	r.InitItems([]any{"next"})
	r.Render()
	r.OnRequestsDone()
	buf.Reset()
	if err := r.Component(nil).Render(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}
	want = `<div class="b-virtual-scroll__item" data-index="2">next</div>` +
		`<div class="b-virtual-scroll__done" data-requests-done="true"></div>`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("render mismatch (-want +got):\n%s", diff)
	}

	r.SetVisible(1)
	if got := r.ItemsTillBottom(); got != 2 {
		t.Errorf("ItemsTillBottom() = %d, want 2", got)
	}
}
