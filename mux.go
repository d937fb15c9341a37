package cdpbrowser

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/target"
	"github.com/mailru/easyjson"
	"golang.org/x/time/rate"
)

// cmdResult is delivered to a parked awaiter: either the matching
// response message, or a terminal error (timeout, transport closed,
// context cancellation).
type cmdResult struct {
	msg *cdproto.Message
	err error
}

// mux is the C2 Command Multiplexer: it allocates monotonic command ids,
// parks one awaiter per in-flight id, and correlates responses decoded by
// the router back to the sender. It also owns optional outbound pacing,
// since a single command burst (e.g. fill_form issuing a dozen commands)
// should be smoothed the same way the rest of the traffic is.
type mux struct {
	nextID int64

	mu      sync.Mutex
	pending map[int64]chan cmdResult
	closed  bool

	// wmu serializes conn.Write across concurrent senders, so the
	// transport only ever sees one writer at a time.
	wmu sync.Mutex

	limiter *rate.Limiter
}

func newMux(limiter *rate.Limiter) *mux {
	return &mux{
		pending: make(map[int64]chan cmdResult),
		limiter: limiter,
	}
}

// allocate reserves the next command id and parks a buffered awaiter
// channel for it.
func (m *mux) allocate() (int64, chan cmdResult) {
	id := atomic.AddInt64(&m.nextID, 1)
	ch := make(chan cmdResult, 1)

	m.mu.Lock()
	m.pending[id] = ch
	m.mu.Unlock()

	return id, ch
}

// cancel detaches an awaiter without delivering a result, used once a
// deadline or context cancellation has already been surfaced to the
// caller so a later, late response is simply dropped.
func (m *mux) cancel(id int64) {
	m.mu.Lock()
	delete(m.pending, id)
	m.mu.Unlock()
}

// fulfil delivers a decoded response to its matching awaiter. It reports
// false if id has no (or no longer has a) parked awaiter, in which case
// the caller should log and drop the frame per §4.1 step 3.
func (m *mux) fulfil(id int64, msg *cdproto.Message) bool {
	m.mu.Lock()
	ch, ok := m.pending[id]
	if ok {
		delete(m.pending, id)
	}
	m.mu.Unlock()
	if !ok {
		return false
	}
	ch <- cmdResult{msg: msg}
	return true
}

// closeAll cancels every outstanding awaiter with err, used on shutdown.
func (m *mux) closeAll(err error) {
	m.mu.Lock()
	pending := m.pending
	m.pending = make(map[int64]chan cmdResult)
	m.closed = true
	m.mu.Unlock()

	for _, ch := range pending {
		ch <- cmdResult{err: err}
	}
}

// send writes a command frame and blocks until its response arrives, the
// deadline elapses, or ctx is cancelled. A zero timeout means no deadline
// beyond ctx.
func (m *mux) send(ctx context.Context, conn Transport, method string, params easyjson.Marshaler, sessionID target.SessionID, timeout time.Duration) (easyjson.RawMessage, error) {
	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	id, ch := m.allocate()

	msg := &cdproto.Message{
		ID:        id,
		Method:    cdproto.MethodType(method),
		SessionID: sessionID,
	}
	if params != nil {
		buf, err := easyjson.Marshal(params)
		if err != nil {
			m.cancel(id)
			return nil, err
		}
		msg.Params = buf
	}

	m.wmu.Lock()
	werr := conn.Write(msg)
	m.wmu.Unlock()
	if werr != nil {
		m.cancel(id)
		return nil, werr
	}

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		if res.msg.Error != nil {
			return nil, &RemoteError{Code: res.msg.Error.Code, Message: res.msg.Error.Message}
		}
		return res.msg.Result, nil
	case <-timeoutCh:
		m.cancel(id)
		return nil, &TimeoutError{Op: method}
	case <-ctx.Done():
		m.cancel(id)
		return nil, ctx.Err()
	}
}
