package cdpbrowser

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/target"
	"github.com/stretchr/testify/require"
)

// scriptedConn replays a fixed sequence of messages to Read, then returns
// errEndOfScript once exhausted.
type scriptedConn struct {
	mu       sync.Mutex
	messages []*cdproto.Message
	idx      int
}

var errEndOfScript = errors.New("router_test: end of script")

func (s *scriptedConn) Read(msg *cdproto.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx >= len(s.messages) {
		return errEndOfScript
	}
	*msg = *s.messages[s.idx]
	s.idx++
	return nil
}

func (s *scriptedConn) Write(msg *cdproto.Message) error { return nil }
func (s *scriptedConn) Close() error                     { return nil }

func TestRouterDispatchesEventFrames(t *testing.T) {
	conn := &scriptedConn{messages: []*cdproto.Message{
		{Method: "Page.loadEventFired", SessionID: target.SessionID("s1"), Params: []byte(`{}`)},
	}}
	m := newMux(nil)

	var gotSession target.SessionID
	var gotMethod string
	r := newRouter(conn, m, nil, nil)
	r.dispatch = func(sessionID target.SessionID, method string, params []byte) {
		gotSession, gotMethod = sessionID, method
	}

	err := r.run(context.Background())
	require.ErrorIs(t, err, errEndOfScript)
	require.Equal(t, target.SessionID("s1"), gotSession)
	require.Equal(t, "Page.loadEventFired", gotMethod)
}

func TestRouterInvokesOnEventAlongsideDispatch(t *testing.T) {
	conn := &scriptedConn{messages: []*cdproto.Message{
		{Method: "Page.loadEventFired", SessionID: target.SessionID("s1")},
	}}
	m := newMux(nil)

	dispatchCalled, onEventCalled := false, false
	r := newRouter(conn, m, nil, nil)
	r.dispatch = func(target.SessionID, string, []byte) { dispatchCalled = true }
	r.onEvent = func(target.SessionID, string, []byte) { onEventCalled = true }

	_ = r.run(context.Background())
	require.True(t, dispatchCalled)
	require.True(t, onEventCalled)
}

func TestRouterFulfilsResponseFrames(t *testing.T) {
	m := newMux(nil)
	id, ch := m.allocate()

	conn := &scriptedConn{messages: []*cdproto.Message{
		{ID: id, Result: []byte(`{"ok":true}`)},
	}}

	r := newRouter(conn, m, nil, nil)
	_ = r.run(context.Background())

	select {
	case res := <-ch:
		require.NoError(t, res.err)
		require.JSONEq(t, `{"ok":true}`, string(res.msg.Result))
	default:
		t.Fatal("mux awaiter was never fulfilled")
	}
}

func TestRouterLogsDroppedResponseForUnknownID(t *testing.T) {
	m := newMux(nil)
	conn := &scriptedConn{messages: []*cdproto.Message{
		{ID: 9999}, // no awaiter registered
	}}

	var logged string
	r := newRouter(conn, m, func(f string, v ...interface{}) { logged = f }, nil)

	_ = r.run(context.Background())
	require.Contains(t, logged, "dropping response")
}

func TestRouterReportsMalformedFrame(t *testing.T) {
	m := newMux(nil)
	conn := &scriptedConn{messages: []*cdproto.Message{
		{}, // no method, no id
	}}

	var errored string
	r := newRouter(conn, m, nil, func(f string, v ...interface{}) { errored = f })

	_ = r.run(context.Background())
	require.Contains(t, errored, "malformed frame")
}

func TestRouterStopsOnContextCancel(t *testing.T) {
	conn := &scriptedConn{} // empty script; Read would return errEndOfScript immediately
	m := newMux(nil)
	r := newRouter(conn, m, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRouterClosesMuxOnTransportError(t *testing.T) {
	conn := &scriptedConn{} // Read fails immediately with errEndOfScript
	m := newMux(nil)

	_, ch := m.allocate()
	r := newRouter(conn, m, nil, nil)

	err := r.run(context.Background())
	require.ErrorIs(t, err, errEndOfScript)

	select {
	case res := <-ch:
		require.ErrorIs(t, res.err, errEndOfScript)
	case <-time.After(time.Second):
		t.Fatal("pending awaiter was not cancelled after transport error")
	}
}
