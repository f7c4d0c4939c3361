// Package vscroll drives paginated incremental loading for a virtually
// scrolled list.
//
// A ScrollRequest owns the paging state (page, total, accumulated data and
// the terminal flags) and talks to two collaborators: a Component, which
// supplies the data source and the request policies, and a Renderer, which
// materializes loaded items. Feed wires both into an HTTP handler that
// serves pages as HTML fragments for HTMX infinite scrolling.
package vscroll

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
)

// Mod names toggled on the owning component.
const (
	ModProgress     = "progress"
	ModRequestsDone = "requestsDone"
)

// RefTombstones is the placeholder region shown while a page is loading.
const RefTombstones = "tombstones"

// Query holds request parameters sent to a DataProvider.
type Query map[string]any

// Int returns the integer value of key, or def if it is missing or not a
// number.
func (q Query) Int(key string, def int) int {
	if n, ok := toInt(q[key]); ok {
		return n
	}
	return def
}

// RemoteData is a converted provider payload.
type RemoteData struct {
	Data  []any `msgpack:"data" json:"data"`
	Total int   `msgpack:"total,omitempty" json:"total,omitempty"`
}

// RenderItem is one loaded element as seen by the renderer.
type RenderItem struct {
	Data  any
	Index int
}

// RequestParams is the snapshot handed to the request policies and the
// query builder.
type RequestParams struct {
	CurrentPage     int
	NextPage        int
	ItemsTillBottom int
	Items           []RenderItem
	IsLastEmpty     bool
	LastLoadedData  []any
	Total           int
}

// DataProvider fetches one page of raw data.
type DataProvider interface {
	Get(ctx context.Context, query Query) (any, error)
}

// DataProviderFunc adapts a function to DataProvider.
type DataProviderFunc func(ctx context.Context, query Query) (any, error)

func (f DataProviderFunc) Get(ctx context.Context, query Query) (any, error) {
	return f(ctx, query)
}

// Component is the owner of a ScrollRequest: it supplies the data source,
// the request policies and the mods the request toggles.
type Component interface {
	// Provider returns the data source, or nil if none is configured.
	Provider() DataProvider
	ConvertDataToDB(raw any) (*RemoteData, error)
	ShouldMakeRequest(p RequestParams) bool
	ShouldContinueRequest(p RequestParams) bool
	DefaultRequestParams(method string) Query
	// RequestQuery returns per-method overrides keyed by method name.
	RequestQuery(p RequestParams) map[string]Query
	// Options is the static data the list was created with.
	Options() []any
	Mod(name string) string
	SetMod(name string, value any)
	RemoveMod(name string)
}

// Renderer materializes loaded items. A ScrollRequest calls it while
// holding its own lock, so implementations must not call back into the
// request.
type Renderer interface {
	SetRefVisibility(ref string, visible bool)
	InitItems(data []any)
	Render()
	OnRequestsDone()
	ItemsTillBottom() int
	Items() []RenderItem
}

// ConvertRemoteData converts the common payload shapes: *RemoteData,
// RemoteData, []any and maps with "data" and "total" keys. A nil payload
// converts to nil.
func ConvertRemoteData(raw any) (*RemoteData, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case *RemoteData:
		return v, nil
	case RemoteData:
		return &v, nil
	case []any:
		return &RemoteData{Data: v}, nil
	case map[string]any:
		rd := &RemoteData{}
		if d, ok := v["data"]; ok && d != nil {
			list, ok := d.([]any)
			if !ok {
				return nil, fmt.Errorf("vscroll: payload data is %T, want []any", d)
			}
			rd.Data = list
		}
		if n, ok := toInt(v["total"]); ok {
			rd.Total = n
		}
		return rd, nil
	}
	return nil, fmt.Errorf("vscroll: cannot convert payload of type %T", raw)
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return int(rv.Float()), true
	}
	return 0, false
}
