package hxcoreecho

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/pthm/hxcore/lib/vscroll"
)

var letters = vscroll.DataProviderFunc(func(ctx context.Context, q vscroll.Query) (any, error) {
	if q.Int("page", 1) > 1 {
		return []any{}, nil
	}
	return []any{"a", "b"}, nil
})

func TestMountFeed(t *testing.T) {
	e := echo.New()
	feed := MountFeed(e, "/feed", letters, WithKey(make([]byte, 32)), WithPerPage(2))

	if feed == nil {
		t.Fatal("MountFeed returned nil feed")
	}
	if feed.URL != "/feed" || feed.PerPage != 2 {
		t.Errorf("feed = %+v", feed)
	}

	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `data-index="1">b</div>`) {
		t.Errorf("feed body missing items:\n%s", body)
	}
	if !strings.Contains(body, `hx-get="/feed?cursor=`) {
		t.Errorf("feed body missing sentinel:\n%s", body)
	}
}

func TestMountFeedGroup(t *testing.T) {
	e := echo.New()
	g := e.Group("/app")
	feed := MountFeedGroup(g, "/feed", letters, WithURL("/app/feed"), WithSensitive())

	if !feed.Sensitive {
		t.Error("WithSensitive not applied")
	}

	req := httptest.NewRequest(http.MethodGet, "/app/feed", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if !strings.Contains(rec.Body.String(), `hx-get="/app/feed?cursor=`) {
		t.Errorf("sentinel does not use the group URL:\n%s", rec.Body.String())
	}
}

func TestPOSTNotRouted(t *testing.T) {
	e := echo.New()
	MountFeed(e, "/feed", letters)

	req := httptest.NewRequest(http.MethodPost, "/feed", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for POST, got %d", rec.Code)
	}
}

func TestRender(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	component := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, "<p>hi</p>")
		return err
	})
	if err := Render(c, component); err != nil {
		t.Fatal(err)
	}
	if rec.Body.String() != "<p>hi</p>" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestWithMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := vscroll.NewMetrics(&vscroll.MetricsConfig{Namespace: "echo", Registry: reg})
	if err != nil {
		t.Fatal(err)
	}

	e := echo.New()
	MountFeed(e, "/feed", letters, WithMetrics(m))

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/feed", nil))

	n, err := testutil.GatherAndCount(reg, "echo_pages_total")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("pages_total series = %d, want 1", n)
	}
}
