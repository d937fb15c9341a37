package cdpbrowser

import (
	"context"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/target"
)

// router is the C3 Event Router: a single reader task that drains the
// transport, classifies each decoded frame as a response or an event,
// fulfils the multiplexer for the former, and dispatches the latter to
// the owning page's emitter (plus any process-wide on_event handler).
type router struct {
	conn Transport
	mux  *mux

	dispatch func(sessionID target.SessionID, method string, params []byte)
	onEvent  func(sessionID target.SessionID, method string, params []byte)

	logf func(string, ...interface{})
	errf func(string, ...interface{})

	done chan struct{}
}

func newRouter(conn Transport, mux *mux, logf, errf func(string, ...interface{})) *router {
	return &router{
		conn: conn,
		mux:  mux,
		logf: logf,
		errf: errf,
		done: make(chan struct{}),
	}
}

// run drains frames until the transport fails or ctx is done. It is the
// only goroutine that ever calls conn.Read; callers must not invoke Read
// elsewhere (see §5 Concurrency & Resource Model: one reader task).
func (r *router) run(ctx context.Context) error {
	defer close(r.done)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg := new(cdproto.Message)
		if err := r.conn.Read(msg); err != nil {
			r.mux.closeAll(err)
			return err
		}

		switch {
		case msg.Method != "":
			if r.onEvent != nil {
				r.onEvent(msg.SessionID, string(msg.Method), msg.Params)
			}
			if r.dispatch != nil {
				r.dispatch(msg.SessionID, string(msg.Method), msg.Params)
			}

		case msg.ID != 0:
			if !r.mux.fulfil(msg.ID, msg) {
				if r.logf != nil {
					r.logf("cdpbrowser: dropping response for unknown id %d", msg.ID)
				}
			}

		default:
			if r.errf != nil {
				r.errf("cdpbrowser: malformed frame (no id, no method)")
			}
		}
	}
}
