package reactive

import (
	"reflect"
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// deepEqual compares watched snapshots structurally. Unexported fields are
// compared too since component state is often held in private structs.
var deepEqual = cmp.Options{
	cmp.Exporter(func(reflect.Type) bool { return true }),
}

// DeepEqual reports whether a and b are structurally equal.
func DeepEqual(a, b any) bool {
	return cmp.Equal(a, b, deepEqual)
}

type watcher struct {
	path    []string
	deep    bool
	fn      WatchFunc
	last    any
	removed bool
}

type subscriber struct {
	fn      func(key string)
	removed bool
}

type store struct {
	data     map[string]any
	watchers map[string][]*watcher
	subs     []*subscriber
}

func newStore() *store {
	return &store{
		data:     make(map[string]any),
		watchers: make(map[string][]*watcher),
	}
}

// SplitPath splits a dotted key into its segments.
func SplitPath(key string) []string {
	return strings.Split(key, ".")
}

// Lookup resolves path against root, descending through map[string]any
// values.
func Lookup(root map[string]any, path []string) (any, bool) {
	var cur any = root
	for _, seg := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func (s *store) Get(key string) (any, bool) {
	return Lookup(s.data, SplitPath(key))
}

func (s *store) Set(key string, value any) {
	path := SplitPath(key)
	if len(path) == 1 {
		s.data[key] = value
	} else {
		parent, ok := Lookup(s.data, path[:len(path)-1])
		m, isMap := parent.(map[string]any)
		if !ok || !isMap {
			return
		}
		m[path[len(path)-1]] = value
	}
	s.notify(path[0])
}

func (s *store) Delete(key string) {
	path := SplitPath(key)
	if len(path) == 1 {
		delete(s.data, key)
	} else {
		parent, _ := Lookup(s.data, path[:len(path)-1])
		m, ok := parent.(map[string]any)
		if !ok {
			return
		}
		delete(m, path[len(path)-1])
	}
	s.notify(path[0])
}

func (s *store) Keys() []string {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *store) Watch(key string, opts WatchOptions, fn WatchFunc) func() {
	path := SplitPath(key)
	cur, _ := Lookup(s.data, path)

	w := &watcher{path: path, deep: opts.Deep, fn: fn}
	w.last = w.snapshot(cur)

	root := path[0]
	s.watchers[root] = append(s.watchers[root], w)

	if opts.Immediate {
		fn(cur, nil)
	}

	return func() {
		if w.removed {
			return
		}
		w.removed = true
		list := s.watchers[root]
		for i, v := range list {
			if v == w {
				s.watchers[root] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
	}
}

func (s *store) Subscribe(fn func(key string)) func() {
	sub := &subscriber{fn: fn}
	s.subs = append(s.subs, sub)
	return func() {
		sub.removed = true
	}
}

func (s *store) notify(root string) {
	// Copies guard against watchers that unwatch or add watchers while
	// being notified.
	list := append([]*watcher(nil), s.watchers[root]...)
	for _, w := range list {
		if w.removed {
			continue
		}
		cur, _ := Lookup(s.data, w.path)
		if !w.changed(cur) {
			continue
		}
		old := w.last
		w.last = w.snapshot(cur)
		w.fn(cur, old)
	}

	subs := s.subs[:0]
	for _, sub := range s.subs {
		if !sub.removed {
			subs = append(subs, sub)
		}
	}
	s.subs = subs
	for _, sub := range append([]*subscriber(nil), subs...) {
		if !sub.removed {
			sub.fn(root)
		}
	}
}

func (w *watcher) snapshot(v any) any {
	if w.deep {
		return Clone(v, true)
	}
	return v
}

func (w *watcher) changed(cur any) bool {
	if w.deep {
		return !DeepEqual(w.last, cur)
	}
	return !Identical(w.last, cur)
}
