package hxcore

// EventTarget is anything custom watchers can subscribe to.
type EventTarget interface {
	On(event string, fn func(args ...any)) (off func())
}

type eventListener struct {
	fn      func(args ...any)
	once    bool
	removed bool
}

// EventEmitter is a synchronous named-event emitter. Every Instance embeds
// one; standalone emitters serve as global event sources.
type EventEmitter struct {
	listeners map[string][]*eventListener
}

// NewEventEmitter returns an empty emitter.
func NewEventEmitter() *EventEmitter {
	return &EventEmitter{listeners: make(map[string][]*eventListener)}
}

// On registers fn for event and returns a function removing it.
func (e *EventEmitter) On(event string, fn func(args ...any)) func() {
	return e.add(event, fn, false)
}

// Once registers fn for the next emission of event only.
func (e *EventEmitter) Once(event string, fn func(args ...any)) func() {
	return e.add(event, fn, true)
}

func (e *EventEmitter) add(event string, fn func(args ...any), once bool) func() {
	if e.listeners == nil {
		e.listeners = make(map[string][]*eventListener)
	}
	l := &eventListener{fn: fn, once: once}
	e.listeners[event] = append(e.listeners[event], l)
	return func() { e.remove(event, l) }
}

func (e *EventEmitter) remove(event string, l *eventListener) {
	if l.removed {
		return
	}
	l.removed = true
	list := e.listeners[event]
	for i, v := range list {
		if v == l {
			e.listeners[event] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(e.listeners[event]) == 0 {
		delete(e.listeners, event)
	}
}

// Off removes every listener of event.
func (e *EventEmitter) Off(event string) {
	for _, l := range e.listeners[event] {
		l.removed = true
	}
	delete(e.listeners, event)
}

// Emit calls the listeners of event in registration order.
func (e *EventEmitter) Emit(event string, args ...any) {
	for _, l := range append([]*eventListener(nil), e.listeners[event]...) {
		if l.removed {
			continue
		}
		if l.once {
			e.remove(event, l)
		}
		l.fn(args...)
	}
}

// ListenerCount returns the number of listeners of event.
func (e *EventEmitter) ListenerCount(event string) int {
	return len(e.listeners[event])
}
