package hxcore

import (
	"context"
	"errors"
	"sync"
)

// AsyncParams tag tracked work. A labelled entry replaces a pending entry
// with the same label, unless Join is set, in which case the new entry is
// dropped and the pending one kept.
type AsyncParams struct {
	Label string
	Group string
	Join  bool
}

type asyncEntry struct {
	params   AsyncParams
	fn       func() error // immediates
	stop     func()       // workers and listeners
	cancel   func()       // promises
	canceled bool
}

// Async tracks the asynchronous work of one instance: deferred calls,
// listeners, cleanup workers and goroutine-backed promises. Everything it
// holds can be cancelled by label, by group or all at once.
//
// Deferred calls and promise continuations run on the goroutine that calls
// Flush or Wait, which keeps instance state single-threaded.
type Async struct {
	mu       sync.Mutex
	queue    []*asyncEntry
	tracked  []*asyncEntry
	labels   map[string]*asyncEntry
	inflight int
	changed  chan struct{}
}

// NewAsync returns an empty tracker.
func NewAsync() *Async {
	return &Async{
		labels:  make(map[string]*asyncEntry),
		changed: make(chan struct{}),
	}
}

// claim registers e under its label. It reports false when a pending entry
// with the same label should be kept (Join). Must be called with mu held;
// the returned entry, if any, was replaced and must be stopped by the
// caller outside the lock.
func (a *Async) claim(e *asyncEntry) (ok bool, replaced *asyncEntry) {
	label := e.params.Label
	if label == "" {
		return true, nil
	}
	if prev, exists := a.labels[label]; exists && !prev.canceled {
		if e.params.Join {
			return false, nil
		}
		prev.canceled = true
		replaced = prev
		a.removeTracked(prev)
	}
	a.labels[label] = e
	return true, replaced
}

func (a *Async) release(e *asyncEntry) {
	if e.params.Label != "" && a.labels[e.params.Label] == e {
		delete(a.labels, e.params.Label)
	}
}

// SetImmediate defers fn until the next Flush.
func (a *Async) SetImmediate(fn func() error, p AsyncParams) {
	a.mu.Lock()
	e := &asyncEntry{params: p, fn: fn}
	ok, replaced := a.claim(e)
	if ok {
		a.queue = append(a.queue, e)
	}
	a.mu.Unlock()
	stopEntry(replaced)
}

// Worker tracks a cleanup function, typically an unsubscribe handle. It
// runs when the worker is cleared.
func (a *Async) Worker(stop func(), p AsyncParams) {
	a.mu.Lock()
	e := &asyncEntry{params: p, stop: stop}
	ok, replaced := a.claim(e)
	if ok {
		a.tracked = append(a.tracked, e)
	}
	a.mu.Unlock()
	stopEntry(replaced)
	if !ok {
		stop()
	}
}

// On subscribes fn to event on target and tracks the subscription. Extra
// args are appended to the event arguments. With Join set and a listener
// already registered under the same label, nothing is subscribed.
func (a *Async) On(target EventTarget, event string, fn func(args ...any), p AsyncParams, args ...any) {
	a.mu.Lock()
	e := &asyncEntry{params: p}
	ok, replaced := a.claim(e)
	if ok {
		a.tracked = append(a.tracked, e)
	}
	a.mu.Unlock()
	stopEntry(replaced)
	if !ok {
		return
	}

	off := target.On(event, func(evArgs ...any) {
		fn(append(evArgs, args...)...)
	})

	a.mu.Lock()
	canceled := e.canceled
	e.stop = off
	a.mu.Unlock()
	if canceled {
		off()
	}
}

// Promise runs work on a new goroutine and queues then to run on the next
// Flush once work succeeds. A failing work's error is reported by Flush.
// Clearing the promise cancels work's context and drops then.
func (a *Async) Promise(p AsyncParams, work func(ctx context.Context) error, then func() error) {
	ctx, cancel := context.WithCancel(context.Background())

	a.mu.Lock()
	e := &asyncEntry{params: p, cancel: cancel}
	ok, replaced := a.claim(e)
	if ok {
		a.tracked = append(a.tracked, e)
		a.inflight++
	}
	a.mu.Unlock()
	stopEntry(replaced)
	if !ok {
		cancel()
		return
	}

	go func() {
		err := work(ctx)

		a.mu.Lock()
		defer a.mu.Unlock()
		a.untrack(e)
		if !e.canceled && ctx.Err() == nil {
			fn := then
			if err != nil {
				fn = func() error { return err }
			}
			a.queue = append(a.queue, &asyncEntry{params: AsyncParams{Group: p.Group}, fn: fn})
		}
		cancel()
		a.inflight--
		close(a.changed)
		a.changed = make(chan struct{})
	}()
}

func (a *Async) untrack(e *asyncEntry) {
	a.release(e)
	a.removeTracked(e)
}

func (a *Async) removeTracked(e *asyncEntry) {
	for i, v := range a.tracked {
		if v == e {
			a.tracked = append(a.tracked[:i:i], a.tracked[i+1:]...)
			return
		}
	}
}

// Flush runs deferred calls, including calls queued while flushing, and
// returns their joined errors.
func (a *Async) Flush() error {
	var errs []error
	for {
		a.mu.Lock()
		batch := a.queue
		a.queue = nil
		for _, e := range batch {
			a.release(e)
		}
		a.mu.Unlock()

		if len(batch) == 0 {
			return errors.Join(errs...)
		}
		for _, e := range batch {
			if e.canceled {
				continue
			}
			if err := e.fn(); err != nil {
				errs = append(errs, err)
			}
		}
	}
}

// Wait blocks until no promise is in flight and the queue is drained.
func (a *Async) Wait(ctx context.Context) error {
	var errs []error
	for {
		a.mu.Lock()
		inflight := a.inflight
		changed := a.changed
		a.mu.Unlock()

		if inflight == 0 {
			if err := a.Flush(); err != nil {
				errs = append(errs, err)
			}
			a.mu.Lock()
			idle := a.inflight == 0 && len(a.queue) == 0
			a.mu.Unlock()
			if idle {
				return errors.Join(errs...)
			}
			continue
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ClearGroup cancels every entry in group.
func (a *Async) ClearGroup(group string) {
	a.clear(func(e *asyncEntry) bool { return e.params.Group == group })
}

// ClearLabel cancels the entry with label.
func (a *Async) ClearLabel(label string) {
	a.clear(func(e *asyncEntry) bool { return e.params.Label == label })
}

// ClearAll cancels everything.
func (a *Async) ClearAll() {
	a.clear(func(*asyncEntry) bool { return true })
}

func (a *Async) clear(match func(*asyncEntry) bool) {
	var stopped []*asyncEntry

	a.mu.Lock()
	queue := a.queue[:0]
	for _, e := range a.queue {
		if match(e) {
			e.canceled = true
			a.release(e)
			continue
		}
		queue = append(queue, e)
	}
	a.queue = queue

	tracked := a.tracked[:0]
	for _, e := range a.tracked {
		if match(e) {
			e.canceled = true
			a.release(e)
			stopped = append(stopped, e)
			continue
		}
		tracked = append(tracked, e)
	}
	a.tracked = tracked
	a.mu.Unlock()

	for _, e := range stopped {
		stopEntry(e)
	}
}

// Pending returns the number of queued calls and tracked entries.
func (a *Async) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.queue) + len(a.tracked)
}

func stopEntry(e *asyncEntry) {
	if e == nil {
		return
	}
	if e.stop != nil {
		e.stop()
	}
	if e.cancel != nil {
		e.cancel()
	}
}
