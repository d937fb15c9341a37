package cdpbrowser

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// CancelFunc removes a listener or awaiter previously registered with an
// Emitter. It is safe to call more than once.
type CancelFunc func()

var emitterIDs uint64

type listener struct {
	id   uint64
	fn   func([]byte)
	once bool
}

type awaiter struct {
	id   uint64
	ch   chan []byte
	done chan struct{}
}

// Emitter is the C4 Event Emitter: a per-page pub/sub keyed by event
// name, supporting persistent listeners, one-shot listeners, and
// one-shot awaiters with cancel/timeout. There is exactly one reader
// task per BrowserSession (the router), so emissions for a single page
// are delivered to subscribers in the order the router decoded them.
type Emitter struct {
	mu        sync.Mutex
	listeners map[string][]*listener
	awaiters  map[string][]*awaiter
	logf      func(string, ...interface{})
}

// NewEmitter constructs an empty Emitter. logf may be nil.
func NewEmitter(logf func(string, ...interface{})) *Emitter {
	return &Emitter{
		listeners: make(map[string][]*listener),
		awaiters:  make(map[string][]*awaiter),
		logf:      logf,
	}
}

// On registers a persistent listener, called for every emission of event
// until cancelled.
func (e *Emitter) On(event string, fn func(params []byte)) CancelFunc {
	return e.add(event, fn, false)
}

// Once registers a listener invoked at most once.
func (e *Emitter) Once(event string, fn func(params []byte)) CancelFunc {
	return e.add(event, fn, true)
}

func (e *Emitter) add(event string, fn func([]byte), once bool) CancelFunc {
	l := &listener{id: atomic.AddUint64(&emitterIDs, 1), fn: fn, once: once}

	e.mu.Lock()
	e.listeners[event] = append(e.listeners[event], l)
	e.mu.Unlock()

	var fired int32
	return func() {
		if !atomic.CompareAndSwapInt32(&fired, 0, 1) {
			return
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		ls := e.listeners[event]
		for i, x := range ls {
			if x.id == l.id {
				e.listeners[event] = append(ls[:i], ls[i+1:]...)
				break
			}
		}
	}
}

// WaitFor suspends until the next emission of event, timeout elapses, or
// ctx is cancelled.
func (e *Emitter) WaitFor(ctx context.Context, event string, timeout time.Duration) ([]byte, error) {
	a := &awaiter{
		id:   atomic.AddUint64(&emitterIDs, 1),
		ch:   make(chan []byte, 1),
		done: make(chan struct{}),
	}

	e.mu.Lock()
	e.awaiters[event] = append(e.awaiters[event], a)
	e.mu.Unlock()

	cancel := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		select {
		case <-a.done: // already cancelled by Clear
		default:
			close(a.done)
		}
		ws := e.awaiters[event]
		for i, x := range ws {
			if x.id == a.id {
				e.awaiters[event] = append(ws[:i], ws[i+1:]...)
				break
			}
		}
	}

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case params := <-a.ch:
		return params, nil
	case <-a.done:
		return nil, ErrClosed
	case <-timeoutCh:
		cancel()
		return nil, &TimeoutError{Op: "event " + event}
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	}
}

// Emit delivers params to every listener and awaiter registered for
// event, in a single pass. A listener panic is recovered and logged; it
// never affects other subscribers.
func (e *Emitter) Emit(event string, params []byte) {
	e.mu.Lock()
	ls := append([]*listener(nil), e.listeners[event]...)
	ws := append([]*awaiter(nil), e.awaiters[event]...)
	if len(ws) > 0 {
		e.awaiters[event] = nil
	}
	var remaining []*listener
	for _, l := range ls {
		if !l.once {
			remaining = append(remaining, l)
		}
	}
	e.listeners[event] = remaining
	e.mu.Unlock()

	for _, l := range ls {
		e.invoke(l, params)
	}
	for _, a := range ws {
		select {
		case a.ch <- params:
		case <-a.done:
		default:
		}
	}
}

func (e *Emitter) invoke(l *listener, params []byte) {
	defer func() {
		if r := recover(); r != nil && e.logf != nil {
			e.logf("cdpbrowser: event listener panicked: %v", r)
		}
	}()
	l.fn(params)
}

// Clear cancels all outstanding awaiters (their WaitFor returns
// ErrClosed) and removes all listeners. Used when a page closes.
func (e *Emitter) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ws := range e.awaiters {
		for _, a := range ws {
			close(a.done)
		}
	}
	e.awaiters = make(map[string][]*awaiter)
	e.listeners = make(map[string][]*listener)
}
