// Package cdpbrowser is a client-side controller for a Chromium browser
// spoken to over the Chrome DevTools Protocol. It multiplexes many page
// sessions over one WebSocket, tracks each page through a navigation
// lifecycle, and injects a curated set of stealth patches that harden the
// automated browser against bot-detection, including a Cloudflare
// Turnstile detector/solver.
package cdpbrowser

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/mailru/easyjson"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/pjaol/cdp-browser/client"
)

// Browser is the C5 Browser Controller: it owns the Transport, the
// Command Multiplexer, and the Event Router, and creates and tears down
// PageSessions.
type Browser struct {
	conn   Transport
	mux    *mux
	router *router

	mu    sync.Mutex
	pages map[target.SessionID]*PageSession

	onEvent func(sessionID target.SessionID, method string, params []byte)

	log logrus.FieldLogger

	// wire-level frame tracing, kept as a plain hook for allocation-free
	// tracing on the hot path (see SPEC_FULL.md §4 ambient stack note).
	dbgf func(string, ...interface{})

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

// BrowserOption configures a Browser at connect time.
type BrowserOption func(*Browser) error

// WithLogger sets the structured logger used for lifecycle events.
func WithLogger(l logrus.FieldLogger) BrowserOption {
	return func(b *Browser) error {
		b.log = l
		return nil
	}
}

// WithDebugf sets a raw wire-frame trace hook.
func WithDebugf(f func(string, ...interface{})) BrowserOption {
	return func(b *Browser) error {
		b.dbgf = f
		return nil
	}
}

// WithRateLimit bounds the outbound command rate, smoothing bursts such
// as fill_form issuing many commands back to back.
func WithRateLimit(r rate.Limit, burst int) BrowserOption {
	return func(b *Browser) error {
		b.mux.limiter = rate.NewLimiter(r, burst)
		return nil
	}
}

// Connect performs HTTP discovery of the browser's WebSocket debugger URL
// at host:port and dials it, starting the router goroutine.
func Connect(ctx context.Context, host string, port int, opts ...BrowserOption) (*Browser, error) {
	wsURL, err := client.DiscoverWebSocketURL(ctx, host, port)
	if err != nil {
		return nil, &TransportError{Op: "discover", Err: err}
	}
	return Dial(ctx, wsURL, opts...)
}

// Dial connects directly to a known browser WebSocket debugger URL.
func Dial(ctx context.Context, wsURL string, opts ...BrowserOption) (*Browser, error) {
	b := &Browser{
		pages: make(map[target.SessionID]*PageSession),
		log:   logrus.New(),
		mux:   newMux(nil),
		done:  make(chan struct{}),
	}

	for _, o := range opts {
		if err := o(b); err != nil {
			return nil, err
		}
	}

	conn, err := DialContext(ctx, ForceIP(wsURL), WithConnDebugf(b.dbgf))
	if err != nil {
		return nil, err
	}
	b.conn = conn

	b.router = newRouter(conn, b.mux,
		func(f string, v ...interface{}) { b.log.Debugf(f, v...) },
		func(f string, v ...interface{}) { b.log.Errorf(f, v...) },
	)
	b.router.dispatch = b.routeEvent
	b.router.onEvent = func(sessionID target.SessionID, method string, params []byte) {
		if b.onEvent != nil {
			b.onEvent(sessionID, method, params)
		}
	}

	go func() {
		defer close(b.done)
		_ = b.router.run(ctx)
	}()

	b.log.WithField("url", wsURL).Info("cdpbrowser: connected")
	return b, nil
}

// OnEvent registers a single router-level callback receiving every
// inbound event frame, regardless of session.
func (b *Browser) OnEvent(fn func(sessionID target.SessionID, method string, params []byte)) {
	b.onEvent = fn
}

func (b *Browser) routeEvent(sessionID target.SessionID, method string, params []byte) {
	if sessionID == "" {
		return
	}
	b.mu.Lock()
	page, ok := b.pages[sessionID]
	b.mu.Unlock()
	if !ok {
		return
	}
	page.emitter.Emit(method, params)
}

// Execute implements the cdp.Executor-shaped send path shared by Browser
// and every PageSession: marshal params, write the command, and wait for
// the correlated response.
func (b *Browser) Execute(ctx context.Context, method string, params easyjson.Marshaler, res easyjson.Unmarshaler) error {
	return b.execute(ctx, method, params, res, "", 0)
}

func (b *Browser) execute(ctx context.Context, method string, params easyjson.Marshaler, res easyjson.Unmarshaler, sessionID target.SessionID, timeout time.Duration) error {
	raw, err := b.mux.send(ctx, b.conn, method, params, sessionID, timeout)
	if err != nil {
		return err
	}
	if res != nil && len(raw) > 0 {
		return easyjson.Unmarshal(raw, res)
	}
	return nil
}

// NewPage creates a new browser tab, attaches a session to it, and
// returns an initialized PageSession.
func (b *Browser) NewPage(ctx context.Context, url string) (*PageSession, error) {
	targetID, err := b.createTarget(ctx, url)
	if err != nil {
		return nil, err
	}
	return b.AttachPage(ctx, targetID)
}

// createTarget asks the browser to open a new tab, using the cdproto
// command types directly: cdp.WithExecutor injects Browser itself (which
// implements the cdp.Executor-shaped Execute method) as the send path
// those generated command types call into.
func (b *Browser) createTarget(ctx context.Context, url string) (target.ID, error) {
	ctx = cdp.WithExecutor(ctx, b)
	return target.CreateTarget(url).Do(ctx)
}

// attachToTarget attaches a flat-protocol session to targetID.
func (b *Browser) attachToTarget(ctx context.Context, targetID target.ID) (target.SessionID, error) {
	ctx = cdp.WithExecutor(ctx, b)
	return target.AttachToTarget(targetID).WithFlatten(true).Do(ctx)
}

// AttachPage attaches a session to an existing target id and returns an
// initialized PageSession.
func (b *Browser) AttachPage(ctx context.Context, targetID target.ID) (*PageSession, error) {
	sessionID, err := b.attachToTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}

	page := newPageSession(b, targetID, sessionID)

	b.mu.Lock()
	b.pages[sessionID] = page
	b.mu.Unlock()

	if err := page.initialize(ctx); err != nil {
		b.closePage(sessionID)
		return nil, err
	}
	return page, nil
}

func (b *Browser) closePage(sessionID target.SessionID) {
	b.mu.Lock()
	page, ok := b.pages[sessionID]
	delete(b.pages, sessionID)
	b.mu.Unlock()
	if ok {
		page.emitter.Clear()
	}
}

// Shutdown performs an orderly, idempotent shutdown: clears every page
// session's listeners and event awaiters, cancels all pending command
// awaiters, then closes the transport. It does not detach page sessions
// or close their targets; PageSession.Close does that.
func (b *Browser) Shutdown(ctx context.Context) error {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		pages := make([]*PageSession, 0, len(b.pages))
		for _, p := range b.pages {
			pages = append(pages, p)
		}
		b.pages = make(map[target.SessionID]*PageSession)
		b.mu.Unlock()

		for _, p := range pages {
			p.emitter.Clear()
		}

		b.mux.closeAll(ErrClosed)

		if b.conn != nil {
			b.closeErr = b.conn.Close()
		}
	})
	return b.closeErr
}
