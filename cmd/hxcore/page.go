package main

import (
	"context"
	"fmt"
	"io"
	"reflect"

	"github.com/a-h/templ"

	"github.com/pthm/hxcore"
	"github.com/pthm/hxcore/lib/htmx"
	"github.com/pthm/hxcore/lib/vscroll"
)

// Page is the demo layout component. Its members are registered in
// page_hx.go.
var Page = hxcore.Define("b-feed-page", func() hxcore.Template {
	return hxcore.Template{"views": 0}
})

func pageMeta() *hxcore.Meta {
	meta := hxcore.NewMeta("b-feed-page")
	meta.Prop("title", hxcore.PropDecl{Type: reflect.String, Default: "hxcore feed"})
	meta.Field("views", hxcore.FieldDecl{})
	meta.ModValues("theme", hxcore.DefaultMod("light"), hxcore.Mod("dark"))
	return meta
}

//hx:method Page
//hx:hook mounted
func countView(inst *hxcore.Instance, args ...any) error {
	n, _ := inst.Get("views").(int)
	return inst.Set("views", n+1)
}

//hx:method Page
//hx:watch views
func logViews(inst *hxcore.Instance, args ...any) error {
	hxcore.Logger().V(1).Info("page view", "title", inst.Get("title"), "views", args)
	return nil
}

// pageLayout renders a mounted page instance around the feed sentinel.
func pageLayout(inst *hxcore.Instance, feed *vscroll.Feed) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := templ.EscapeString(fmt.Sprint(inst.Get("title")))
		theme := templ.EscapeString(fmt.Sprint(inst.Mod("theme")))
		_, err := io.WriteString(w, `<!DOCTYPE html><html><head><meta charset="utf-8"><title>`+title+`</title>`+
			`<script src="https://unpkg.com/htmx.org@2.0.4"></script></head>`+
			`<body class="theme-`+theme+`"><h1>`+title+`</h1><div class="b-virtual-scroll">`)
		if err != nil {
			return err
		}
		if err := feed.Initial().Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `</div>`); err != nil {
			return err
		}
		if err := htmx.ToastContainer().Render(ctx, w); err != nil {
			return err
		}
		_, err = io.WriteString(w, `</body></html>`)
		return err
	})
}

// recordItem renders one stored record.
func recordItem(item vscroll.RenderItem) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		rec, _ := item.Data.(map[string]any)
		_, err := io.WriteString(w, fmt.Sprintf(`<article><h2>%s</h2><p>%s</p></article>`,
			templ.EscapeString(fmt.Sprint(rec["title"])),
			templ.EscapeString(fmt.Sprint(rec["body"]))))
		return err
	})
}
