package hxcore

import "github.com/pthm/hxcore/lib/reactive"

// Cell holds a system field. System fields are invisible to the engine, so
// a cell notifies its own subscribers on every change.
type Cell struct {
	value any
	subs  []*cellSub
}

type cellSub struct {
	fn      func(newValue, oldValue any)
	removed bool
}

func newCell(v any) *Cell {
	return &Cell{value: v}
}

// Get returns the current value.
func (c *Cell) Get() any {
	return c.value
}

// Set stores v and synchronously notifies subscribers with the new and old
// value. Setting an identical value is a no-op.
func (c *Cell) Set(v any) {
	if reactive.Identical(v, c.value) {
		return
	}
	old := c.value
	c.value = v
	for _, s := range append([]*cellSub(nil), c.subs...) {
		if !s.removed {
			s.fn(v, old)
		}
	}
}

// Attach subscribes fn and returns a function detaching it.
func (c *Cell) Attach(fn func(newValue, oldValue any)) (detach func()) {
	s := &cellSub{fn: fn}
	c.subs = append(c.subs, s)
	return func() {
		if s.removed {
			return
		}
		s.removed = true
		for i, v := range c.subs {
			if v == s {
				c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
				break
			}
		}
	}
}

// Subscribers returns the number of attached subscribers.
func (c *Cell) Subscribers() int {
	return len(c.subs)
}
