package vscroll

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/a-h/templ"
)

// ScrollRender is a Renderer that emits HTML through templ components.
//
// Loaded items accumulate in InitItems; Render moves everything not yet
// rendered into the current chunk, which Component writes out.
type ScrollRender struct {
	// Item renders one element. The default writes the escaped fmt.Sprint
	// of the element data.
	Item func(RenderItem) templ.Component
	// Tombstones is the number of placeholder rows shown while loading.
	Tombstones int
	// Start is the index of the first item, for lists resumed from a
	// snapshot.
	Start int

	mu       sync.Mutex
	items    []RenderItem
	chunk    []RenderItem
	rendered int
	visible  int
	refs     map[string]bool
	done     bool
}

var _ Renderer = (*ScrollRender)(nil)

func (r *ScrollRender) SetRefVisibility(ref string, visible bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.refs == nil {
		r.refs = map[string]bool{}
	}
	r.refs[ref] = visible
}

// RefVisible reports whether a ref region is currently shown.
func (r *ScrollRender) RefVisible(ref string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refs[ref]
}

func (r *ScrollRender) InitItems(data []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range data {
		r.items = append(r.items, RenderItem{Data: d, Index: r.Start + len(r.items)})
	}
}

func (r *ScrollRender) Render() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunk = append([]RenderItem(nil), r.items[r.rendered:]...)
	r.rendered = len(r.items)
}

func (r *ScrollRender) OnRequestsDone() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = true
	if r.refs != nil {
		r.refs[RefTombstones] = false
	}
}

// Done reports whether OnRequestsDone was called.
func (r *ScrollRender) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// SetVisible records how many items the viewport has reached.
func (r *ScrollRender) SetVisible(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visible = n
}

func (r *ScrollRender) ItemsTillBottom() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := len(r.items) - r.visible; n > 0 {
		return n
	}
	return 0
}

func (r *ScrollRender) Items() []RenderItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RenderItem(nil), r.items...)
}

// Chunk returns the items moved by the last Render.
func (r *ScrollRender) Chunk() []RenderItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RenderItem(nil), r.chunk...)
}

// Component writes the current chunk, then the tombstones if they are
// visible, then next. Without next it writes the end-of-list marker once
// requests are done.
func (r *ScrollRender) Component(next templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		r.mu.Lock()
		chunk := append([]RenderItem(nil), r.chunk...)
		tombstones := r.refs[RefTombstones]
		done := r.done
		r.mu.Unlock()

		for _, item := range chunk {
			if err := r.renderItem(ctx, w, item); err != nil {
				return err
			}
		}
		if tombstones {
			if err := Tombstones(r.Tombstones).Render(ctx, w); err != nil {
				return err
			}
		}
		if next != nil {
			return next.Render(ctx, w)
		}
		if done {
			_, err := io.WriteString(w, `<div class="b-virtual-scroll__done" data-requests-done="true"></div>`)
			return err
		}
		return nil
	})
}

func (r *ScrollRender) renderItem(ctx context.Context, w io.Writer, item RenderItem) error {
	_, err := io.WriteString(w, `<div class="b-virtual-scroll__item" data-index="`+strconv.Itoa(item.Index)+`">`)
	if err != nil {
		return err
	}
	if r.Item != nil {
		err = r.Item(item).Render(ctx, w)
	} else {
		_, err = io.WriteString(w, templ.EscapeString(fmt.Sprint(item.Data)))
	}
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, `</div>`)
	return err
}

// Tombstones renders n placeholder rows.
func Tombstones(n int) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for i := 0; i < n; i++ {
			if _, err := io.WriteString(w, `<div class="b-virtual-scroll__tombstone"></div>`); err != nil {
				return err
			}
		}
		return nil
	})
}
