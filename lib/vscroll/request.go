package vscroll

import (
	"context"
	"sync"

	"github.com/go-logr/logr"
)

// Outcome reports what a Try call did.
type Outcome int

const (
	// Skipped means no request was issued.
	Skipped Outcome = iota
	// Applied means a non-empty page was loaded and rendered.
	Applied
	// Empty means the provider returned no elements.
	Empty
	// Failed means the fetch or the conversion failed. The error is logged.
	Failed
	// Stale means the request finished after a Reset and was discarded.
	Stale
)

func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Applied:
		return "applied"
	case Empty:
		return "empty"
	case Failed:
		return "failed"
	case Stale:
		return "stale"
	}
	return "unknown"
}

// State is a copy of the paging state.
type State struct {
	Page           int
	Total          int
	Data           []any
	LastLoadedData []any
	IsDone         bool
	IsLastEmpty    bool
	// Loaded counts every element loaded so far, including the ones loaded
	// before a Restore.
	Loaded int
}

// Snapshot is the part of the state needed to resume paging elsewhere,
// such as in the next HTTP request of a feed.
type Snapshot struct {
	Page        int  `msgpack:"p"`
	Total       int  `msgpack:"t"`
	Loaded      int  `msgpack:"n"`
	IsDone      bool `msgpack:"d,omitempty"`
	IsLastEmpty bool `msgpack:"e,omitempty"`
}

// Option configures a ScrollRequest.
type Option func(*ScrollRequest)

// WithLogger sets the logger used for absorbed fetch errors.
func WithLogger(l logr.Logger) Option {
	return func(s *ScrollRequest) {
		s.log = l
	}
}

// ScrollRequest is the paginated fetch state machine of one scrolled list.
// It is safe for concurrent use; at most one fetch is in flight at a time.
type ScrollRequest struct {
	component Component
	render    Renderer
	log       logr.Logger

	mu             sync.Mutex
	gen            int
	page           int
	total          int
	offset         int
	data           []any
	lastLoadedData []any
	isDone         bool
	isLastEmpty    bool
}

// New returns a ScrollRequest in its reset state.
func New(c Component, r Renderer, opts ...Option) *ScrollRequest {
	s := &ScrollRequest{
		component: c,
		render:    r,
		log:       logr.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithName("vscroll")
	s.clear()
	return s
}

func (s *ScrollRequest) clear() {
	s.gen++
	s.page = 1
	s.total = 0
	s.offset = 0
	s.data = []any{}
	s.lastLoadedData = []any{}
	s.isDone = false
	s.isLastEmpty = false
}

// Reset clears all accumulated state. A fetch still in flight is
// discarded when it completes.
func (s *ScrollRequest) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear()
	s.component.RemoveMod(ModRequestsDone)
}

// ReloadLast clears the terminal and empty flags, keeping the loaded data
// and the page, so the next Try retries the next page.
func (s *ScrollRequest) ReloadLast() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isDone = false
	s.isLastEmpty = false
	s.component.RemoveMod(ModRequestsDone)
}

// State returns a copy of the current state.
func (s *ScrollRequest) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Page:           s.page,
		Total:          s.total,
		Data:           append([]any(nil), s.data...),
		LastLoadedData: append([]any(nil), s.lastLoadedData...),
		IsDone:         s.isDone,
		IsLastEmpty:    s.isLastEmpty,
		Loaded:         s.offset + len(s.data),
	}
}

// Snapshot captures the paging position.
func (s *ScrollRequest) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Page:        s.page,
		Total:       s.total,
		Loaded:      s.offset + len(s.data),
		IsDone:      s.isDone,
		IsLastEmpty: s.isLastEmpty,
	}
}

// Restore resets the request and resumes from snap. Data loaded before the
// snapshot is not kept; it only counts towards State.Loaded.
func (s *ScrollRequest) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear()
	if snap.Page > 1 {
		s.page = snap.Page
	}
	if snap.Total > 0 {
		s.total = snap.Total
	}
	if snap.Loaded > 0 {
		s.offset = snap.Loaded
	}
	s.isDone = snap.IsDone
	s.isLastEmpty = snap.IsLastEmpty
	if s.isDone {
		s.component.SetMod(ModRequestsDone, true)
	} else {
		s.component.RemoveMod(ModRequestsDone)
	}
}

// params must be called with s.mu held.
func (s *ScrollRequest) params() RequestParams {
	return RequestParams{
		CurrentPage:     s.page,
		NextPage:        s.page + 1,
		ItemsTillBottom: s.render.ItemsTillBottom(),
		Items:           s.render.Items(),
		IsLastEmpty:     s.isLastEmpty,
		LastLoadedData:  s.lastLoadedData,
		Total:           s.total,
	}
}

// Try loads the next page if the request policy allows it. Fetch errors
// are logged and never returned.
func (s *ScrollRequest) Try(ctx context.Context) Outcome {
	s.mu.Lock()
	p := s.params()
	if len(p.LastLoadedData) == 0 {
		p.LastLoadedData = s.component.Options()
	}

	provider := s.component.Provider()
	if s.isDone || !s.component.ShouldMakeRequest(p) || provider == nil ||
		s.component.Mod(ModProgress) == "true" {
		s.mu.Unlock()
		s.log.V(1).Info("request skipped", "page", p.CurrentPage)
		return Skipped
	}

	s.component.SetMod(ModProgress, true)
	s.render.SetRefVisibility(RefTombstones, true)
	query := s.query()
	gen, page := s.gen, s.page
	s.mu.Unlock()

	rd, outcome := s.load(ctx, provider, query, page)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.component.RemoveMod(ModProgress)
	s.render.SetRefVisibility(RefTombstones, false)

	if gen != s.gen {
		s.log.V(1).Info("discarding stale page", "page", page)
		return Stale
	}

	if outcome != Applied {
		s.lastLoadedData = []any{}
		s.isLastEmpty = true
		p := s.params()
		p.LastLoadedData = []any{}
		s.checksRequestPossibility(p)
		return outcome
	}

	s.page++
	s.isLastEmpty = false
	s.data = append(s.data, rd.Data...)
	s.lastLoadedData = rd.Data
	if rd.Total > 0 {
		s.total = rd.Total
	}

	s.render.InitItems(rd.Data)
	s.render.Render()
	return Applied
}

// ChecksRequestPossibility asks the continuation policy whether paging may
// go on, marking the request done if not.
func (s *ScrollRequest) ChecksRequestPossibility(p RequestParams) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checksRequestPossibility(p)
}

func (s *ScrollRequest) checksRequestPossibility(p RequestParams) bool {
	s.isDone = !s.component.ShouldContinueRequest(p)
	if s.isDone {
		s.component.SetMod(ModRequestsDone, true)
		s.render.OnRequestsDone()
	} else {
		s.component.RemoveMod(ModRequestsDone)
	}
	return !s.isDone
}

// query must be called with s.mu held.
func (s *ScrollRequest) query() Query {
	q := Query{}
	for k, v := range s.component.DefaultRequestParams("get") {
		q[k] = v
	}
	if extra := s.component.RequestQuery(s.params()); extra != nil {
		for k, v := range extra["get"] {
			q[k] = v
		}
	}
	return q
}

func (s *ScrollRequest) load(ctx context.Context, provider DataProvider, query Query, page int) (*RemoteData, Outcome) {
	raw, err := provider.Get(ctx, query)
	if err != nil {
		s.log.Error(err, "fetch failed", "page", page)
		return nil, Failed
	}
	if raw == nil {
		return nil, Empty
	}

	rd, err := s.component.ConvertDataToDB(raw)
	if err != nil {
		s.log.Error(err, "convert failed", "page", page)
		return nil, Failed
	}
	if rd == nil || len(rd.Data) == 0 {
		return nil, Empty
	}
	return rd, Applied
}
