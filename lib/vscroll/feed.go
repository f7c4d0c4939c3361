package vscroll

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/a-h/templ"
	"github.com/go-logr/logr"

	"github.com/pthm/hxcore/lib/encoding"
	"github.com/pthm/hxcore/lib/htmx"
)

// CursorParam is the query parameter carrying the sealed Snapshot.
const CursorParam = "cursor"

// EventRequestsDone is raised on the client through HX-Trigger once the
// last page has been served.
const EventRequestsDone = "vscroll:requestsDone"

// ErrNoEncoder is returned when a Feed has no Encoder to seal cursors.
var ErrNoEncoder = errors.New("vscroll: feed has no encoder")

// Feed serves an infinitely scrolled list over HTTP. Each response holds
// one page of items followed by a sentinel element that requests the next
// page through HTMX when it scrolls into view. The paging position travels
// in a signed (or encrypted) cursor, so the handler keeps no state.
//
//	feed := &vscroll.Feed{URL: "/feed", Provider: store, Encoder: enc}
//	mux.Handle("/feed", feed)
//
// and in a page template:
//
//	@feed.Initial()
type Feed struct {
	// URL is the path the sentinel requests.
	URL      string
	Provider DataProvider
	Encoder  *encoding.Encoder
	// Sensitive encrypts cursors instead of signing them.
	Sensitive  bool
	PerPage    int
	Threshold  int
	Tombstones int
	// Request holds extra parameters sent with every fetch.
	Request Query
	Item    func(RenderItem) templ.Component
	Logger  logr.Logger
	// Metrics, when set, records every served page under the URL label.
	Metrics *Metrics
}

// Initial returns the sentinel that loads the first page.
func (f *Feed) Initial() templ.Component {
	return f.Sentinel(Snapshot{Page: 1})
}

// Sentinel returns the element that loads the page after snap.
func (f *Feed) Sentinel(snap Snapshot) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		u, err := f.cursorURL(snap)
		if err != nil {
			return err
		}
		return lazyLoad(u, Tombstones(f.Tombstones), "intersect once").Render(ctx, w)
	})
}

// Retry returns a button that reloads the page after snap on click.
func (f *Feed) Retry(snap Snapshot) templ.Component {
	snap.IsDone = false
	snap.IsLastEmpty = false
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		u, err := f.cursorURL(snap)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, fmt.Sprintf(
			`<button class="b-virtual-scroll__retry" hx-get="%s" hx-swap="%s">Retry</button>`,
			templ.EscapeString(u), htmx.SwapOuter))
		return err
	})
}

func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap, err := f.DecodeCursor(r.URL.Query().Get(CursorParam))
	if err != nil {
		http.Error(w, "invalid cursor", http.StatusBadRequest)
		return
	}

	component := &Base{
		DataProvider: f.Provider,
		PerPage:      f.PerPage,
		Threshold:    f.Threshold,
		Request:      f.Request,
	}
	render := &ScrollRender{Item: f.Item, Tombstones: f.Tombstones, Start: snap.Loaded}
	req := New(component, render, WithLogger(f.logger()))
	req.Restore(snap)

	start := time.Now()
	outcome := req.Try(r.Context())

	var next templ.Component
	var flashes []htmx.Flash
	switch {
	case outcome == Failed:
		next = f.Retry(snap)
		if htmx.IsHTMX(r) {
			flashes = append(flashes, htmx.Flash{Level: htmx.FlashError, Message: "Loading failed"})
		}
	case outcome == Skipped && snap.IsDone && htmx.IsHTMX(r):
		// A cursor of a finished feed was replayed; drop its sentinel.
		htmx.Reswap(w, htmx.SwapDelete)
	default:
		if state := req.Snapshot(); !state.IsDone {
			next = f.Sentinel(state)
		} else {
			htmx.Trigger(w, htmx.Event{Name: EventRequestsDone, Data: map[string]any{"total": state.Total}})
		}
	}

	err = htmx.Render(w, r, render.Component(next))
	f.Metrics.RecordPage(f.URL, outcome, len(render.Chunk()), time.Since(start))
	if err != nil {
		f.logger().Error(err, "render failed")
		return
	}
	if len(flashes) > 0 {
		if err := htmx.Flashes(flashes...).Render(r.Context(), w); err != nil {
			f.logger().Error(err, "render failed")
		}
	}
}

// EncodeCursor seals snap into a cursor string.
func (f *Feed) EncodeCursor(snap Snapshot) (string, error) {
	if f.Encoder == nil {
		return "", ErrNoEncoder
	}
	return f.Encoder.Encode(snap, f.Sensitive)
}

// DecodeCursor opens a cursor string. An empty cursor is the first page.
func (f *Feed) DecodeCursor(cursor string) (Snapshot, error) {
	snap := Snapshot{Page: 1}
	if cursor == "" {
		return snap, nil
	}
	if f.Encoder == nil {
		return snap, ErrNoEncoder
	}
	if err := f.Encoder.Decode(cursor, f.Sensitive, &snap); err != nil {
		return Snapshot{Page: 1}, err
	}
	return snap, nil
}

func (f *Feed) cursorURL(snap Snapshot) (string, error) {
	cursor, err := f.EncodeCursor(snap)
	if err != nil {
		return "", err
	}
	return f.URL + "?" + CursorParam + "=" + url.QueryEscape(cursor), nil
}

func (f *Feed) logger() logr.Logger {
	if f.Logger.GetSink() == nil {
		return logr.Discard()
	}
	return f.Logger
}

// lazyLoad creates a placeholder that loads content on trigger.
func lazyLoad(url string, placeholder templ.Component, trigger string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, fmt.Sprintf(
			`<div class="b-virtual-scroll__sentinel" hx-get="%s" hx-trigger="%s" hx-swap="%s">`,
			templ.EscapeString(url), trigger, htmx.SwapOuter))
		if err != nil {
			return err
		}
		if placeholder != nil {
			if err := placeholder.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err = io.WriteString(w, `</div>`)
		return err
	})
}
