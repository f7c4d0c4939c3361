// Package hxcoreecho provides Echo framework integration for hxcore
// virtual-scroll feeds.
//
// Mount a feed onto an Echo instance or group:
//
//	e := echo.New()
//	feed := hxcoreecho.MountFeed(e, "/feed", store)
//
// Or mount on a group with middleware:
//
//	g := e.Group("/app", authMiddleware)
//	feed := hxcoreecho.MountFeedGroup(g, "/feed", store, hxcoreecho.WithURL("/app/feed"))
package hxcoreecho

import (
	"crypto/rand"
	"fmt"

	"github.com/a-h/templ"
	"github.com/go-logr/logr"
	"github.com/labstack/echo/v4"

	"github.com/pthm/hxcore/lib/encoding"
	"github.com/pthm/hxcore/lib/vscroll"
)

// Option configures MountFeed and MountFeedGroup.
type Option func(*options)

type options struct {
	key        []byte
	url        string
	sensitive  bool
	perPage    int
	tombstones int
	item       func(vscroll.RenderItem) templ.Component
	logger     logr.Logger
	metrics    *vscroll.Metrics
}

// WithKey sets the key that signs cursors.
// The key should be at least 32 bytes of cryptographically random data.
// If not provided, a random key is generated (suitable for development only).
func WithKey(key []byte) Option {
	return func(o *options) {
		o.key = key
	}
}

// WithURL sets the URL the sentinels request. It defaults to the mount
// path, which is wrong for groups with a prefix.
func WithURL(url string) Option {
	return func(o *options) {
		o.url = url
	}
}

// WithSensitive encrypts cursors instead of signing them.
func WithSensitive() Option {
	return func(o *options) {
		o.sensitive = true
	}
}

// WithPerPage sets the page size.
func WithPerPage(n int) Option {
	return func(o *options) {
		o.perPage = n
	}
}

// WithTombstones sets the number of placeholder rows.
func WithTombstones(n int) Option {
	return func(o *options) {
		o.tombstones = n
	}
}

// WithItem sets the item renderer.
func WithItem(fn func(vscroll.RenderItem) templ.Component) Option {
	return func(o *options) {
		o.item = fn
	}
}

// WithLogger sets the logger for absorbed fetch errors.
func WithLogger(l logr.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics records served pages. Create m once per registry with
// vscroll.NewMetrics; feeds are told apart by their URL label.
func WithMetrics(m *vscroll.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// MountFeed creates a feed over provider and serves it at path.
//
//	e := echo.New()
//	feed := hxcoreecho.MountFeed(e, "/feed", store)
//
//	// With options:
//	feed := hxcoreecho.MountFeed(e, "/feed", store, hxcoreecho.WithKey(key))
func MountFeed(e *echo.Echo, path string, provider vscroll.DataProvider, opts ...Option) *vscroll.Feed {
	feed := newFeed(path, provider, opts)
	e.GET(path, echo.WrapHandler(feed))
	return feed
}

// MountFeedGroup creates a feed and serves it on an Echo group.
// This allows the feed to share middleware with the group (auth, logging, etc.).
//
//	g := e.Group("/app", authMiddleware)
//	feed := hxcoreecho.MountFeedGroup(g, "/feed", store, hxcoreecho.WithURL("/app/feed"))
func MountFeedGroup(g *echo.Group, path string, provider vscroll.DataProvider, opts ...Option) *vscroll.Feed {
	feed := newFeed(path, provider, opts)
	g.GET(path, echo.WrapHandler(feed))
	return feed
}

func newFeed(path string, provider vscroll.DataProvider, opts []Option) *vscroll.Feed {
	o := &options{url: path, logger: logr.Discard()}
	for _, opt := range opts {
		opt(o)
	}

	key := o.key
	if key == nil {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic(fmt.Sprintf("hxcoreecho: failed to generate random key: %v", err))
		}
	}

	enc, err := encoding.NewEncoder(key)
	if err != nil {
		panic(fmt.Sprintf("hxcoreecho: %v", err))
	}

	return &vscroll.Feed{
		URL:        o.url,
		Provider:   provider,
		Encoder:    enc,
		Sensitive:  o.sensitive,
		PerPage:    o.perPage,
		Tombstones: o.tombstones,
		Item:       o.item,
		Logger:     o.logger,
		Metrics:    o.metrics,
	}
}

// Render writes a templ component to the Echo response.
//
//	func handler(c echo.Context) error {
//	    return hxcoreecho.Render(c, myTemplate())
//	}
func Render(c echo.Context, component templ.Component) error {
	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(c.Request().Context(), c.Response())
}
