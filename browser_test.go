package cdpbrowser

import (
	"context"
	"testing"

	"github.com/chromedp/cdproto/target"
	"github.com/stretchr/testify/require"
)

func newTestBrowser() *Browser {
	return &Browser{
		pages: make(map[target.SessionID]*PageSession),
		mux:   newMux(nil),
		done:  make(chan struct{}),
	}
}

func TestRouteEventIgnoresUnknownSession(t *testing.T) {
	b := newTestBrowser()
	require.NotPanics(t, func() {
		b.routeEvent(target.SessionID("unknown"), "Page.loadEventFired", nil)
	})
}

func TestRouteEventIgnoresEmptySession(t *testing.T) {
	b := newTestBrowser()
	require.NotPanics(t, func() {
		b.routeEvent(target.SessionID(""), "Page.loadEventFired", nil)
	})
}

func TestRouteEventDispatchesToMatchingPage(t *testing.T) {
	b := newTestBrowser()
	page := newPageSession(b, target.ID("t1"), target.SessionID("s1"))
	b.pages[target.SessionID("s1")] = page

	received := make(chan []byte, 1)
	page.emitter.On("Custom.testEvent", func(params []byte) {
		received <- params
	})

	b.routeEvent(target.SessionID("s1"), "Custom.testEvent", []byte("payload"))

	select {
	case params := <-received:
		require.Equal(t, "payload", string(params))
	default:
		t.Fatal("listener was not invoked")
	}
}

func TestClosePageRemovesAndClearsEmitter(t *testing.T) {
	b := newTestBrowser()
	page := newPageSession(b, target.ID("t1"), target.SessionID("s1"))
	b.pages[target.SessionID("s1")] = page

	n := 0
	page.emitter.On("x", func([]byte) { n++ })

	b.closePage(target.SessionID("s1"))

	_, ok := b.pages[target.SessionID("s1")]
	require.False(t, ok)

	page.emitter.Emit("x", nil)
	require.Zero(t, n, "listener must be cleared once the page is closed")
}

func TestShutdownIsIdempotent(t *testing.T) {
	b := newTestBrowser()
	page := newPageSession(b, target.ID("t1"), target.SessionID("s1"))
	b.pages[target.SessionID("s1")] = page

	err1 := b.Shutdown(context.Background())
	require.NoError(t, err1)

	err2 := b.Shutdown(context.Background())
	require.NoError(t, err2)

	require.Empty(t, b.pages)
}
