package vscroll

import (
	"fmt"
	"sync"
)

// DefaultThreshold is the number of not yet visible items below which Base
// asks for the next page.
const DefaultThreshold = 10

// DefaultPerPage is the page size Base requests when PerPage is unset.
const DefaultPerPage = 10

// Base is a Component with the stock policies. Any hook left nil falls back
// to the default behavior; the zero value has no data source.
type Base struct {
	DataProvider DataProvider
	PerPage      int
	Threshold    int
	Initial      []any
	// Request holds extra parameters sent with every "get" request.
	Request Query

	Query           func(p RequestParams) map[string]Query
	MakeRequest     func(p RequestParams) bool
	ContinueRequest func(p RequestParams) bool
	Convert         func(raw any) (*RemoteData, error)

	mu   sync.Mutex
	mods map[string]string
}

var _ Component = (*Base)(nil)

func (b *Base) Provider() DataProvider {
	return b.DataProvider
}

func (b *Base) ConvertDataToDB(raw any) (*RemoteData, error) {
	if b.Convert != nil {
		return b.Convert(raw)
	}
	return ConvertRemoteData(raw)
}

// ShouldMakeRequest defaults to requesting while the last page was not
// empty and no more than Threshold items remain below the viewport.
func (b *Base) ShouldMakeRequest(p RequestParams) bool {
	if b.MakeRequest != nil {
		return b.MakeRequest(p)
	}
	threshold := b.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return !p.IsLastEmpty && p.ItemsTillBottom <= threshold
}

// ShouldContinueRequest defaults to continuing while the last fetch
// returned data.
func (b *Base) ShouldContinueRequest(p RequestParams) bool {
	if b.ContinueRequest != nil {
		return b.ContinueRequest(p)
	}
	return len(p.LastLoadedData) > 0
}

func (b *Base) DefaultRequestParams(method string) Query {
	if method != "get" {
		return Query{}
	}
	q := make(Query, len(b.Request))
	for k, v := range b.Request {
		q[k] = v
	}
	return q
}

// RequestQuery defaults to {"get": {"page": CurrentPage, "perPage": PerPage}}.
func (b *Base) RequestQuery(p RequestParams) map[string]Query {
	if b.Query != nil {
		return b.Query(p)
	}
	perPage := b.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	return map[string]Query{
		"get": {"page": p.CurrentPage, "perPage": perPage},
	}
}

func (b *Base) Options() []any {
	return b.Initial
}

func (b *Base) Mod(name string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mods[name]
}

func (b *Base) SetMod(name string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mods == nil {
		b.mods = map[string]string{}
	}
	b.mods[name] = fmt.Sprint(value)
}

func (b *Base) RemoveMod(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.mods, name)
}
