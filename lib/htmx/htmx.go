// Package htmx reads HTMX request headers and writes HTMX response
// headers and fragments.
package htmx

import (
	"encoding/json"
	"net/http"

	"github.com/a-h/templ"
)

// Response headers understood by the HTMX client.
const (
	HeaderTrigger = "HX-Trigger"
	HeaderReswap  = "HX-Reswap"
)

const headerRequest = "HX-Request"

// Render writes a templ component to the HTTP response.
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    htmx.Render(w, r, page())
//	}
func Render(w http.ResponseWriter, r *http.Request, component templ.Component) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(r.Context(), w)
}

// IsHTMX reports whether r was issued by the HTMX client rather than by a
// plain browser navigation.
func IsHTMX(r *http.Request) bool {
	return r.Header.Get(headerRequest) == "true"
}

// Event is a client-side event raised through the HX-Trigger header.
// A nil Data raises the event without a detail object.
type Event struct {
	Name string
	Data map[string]any
}

// TriggerHeader builds an HX-Trigger header value.
//
// A single event without data is sent as its bare name. Anything else is
// sent as a JSON object keyed by event name:
//
//	TriggerHeader(Event{Name: "done"})                        // done
//	TriggerHeader(Event{Name: "done", Data: map[string]any{"total": 3}})
//	                                                          // {"done":{"total":3}}
func TriggerHeader(events ...Event) string {
	switch {
	case len(events) == 0:
		return ""
	case len(events) == 1 && events[0].Data == nil:
		return events[0].Name
	}

	merged := make(map[string]any, len(events))
	for _, e := range events {
		if e.Data != nil {
			merged[e.Name] = e.Data
		} else {
			merged[e.Name] = true
		}
	}
	data, _ := json.Marshal(merged)
	return string(data)
}

// Trigger sets the HX-Trigger response header. It must be called before
// the body is written.
func Trigger(w http.ResponseWriter, events ...Event) {
	if v := TriggerHeader(events...); v != "" {
		w.Header().Set(HeaderTrigger, v)
	}
}
