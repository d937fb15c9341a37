package cdpbrowser

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/mailru/easyjson"

	"github.com/pjaol/cdp-browser/turnstile"
)

// domainEnableDeadline bounds the parallel Page/Runtime/Network/DOM
// enable performed by initialize.
const domainEnableDeadline = 10 * time.Second

// PageSession is the C6 Page/Session: one attached target. It owns its
// Emitter and its NavigationState exclusively; its reference back to
// Browser is lookup-only, for sending commands.
type PageSession struct {
	browser   *Browser
	TargetID  target.ID
	SessionID target.SessionID

	emitter *Emitter
	nav     *navTracker

	mu          sync.Mutex
	mainFrameID cdp.FrameID
	execCtxID   runtime.ExecutionContextID
	hasExecCtx  bool

	closeOnce sync.Once
	closed    bool

	modifiers          InputModifiers
	turnstileDetection turnstile.Detection
}

func newPageSession(b *Browser, targetID target.ID, sessionID target.SessionID) *PageSession {
	emitter := NewEmitter(func(f string, v ...interface{}) { b.log.Debugf(f, v...) })
	p := &PageSession{
		browser:   b,
		TargetID:  targetID,
		SessionID: sessionID,
		emitter:   emitter,
		nav:       newNavTracker(emitter),
	}
	p.wireNavigationEvents()
	return p
}

// Execute implements the shared cdp.Executor-shaped send path, scoped to
// this page's session id.
func (p *PageSession) Execute(ctx context.Context, method string, params easyjson.Marshaler, res easyjson.Unmarshaler) error {
	return p.browser.execute(ctx, method, params, res, p.SessionID, 0)
}

func (p *PageSession) wireNavigationEvents() {
	p.emitter.On("Page.frameStartedLoading", func(raw []byte) {
		var ev page.EventFrameStartedLoading
		if err := json.Unmarshal(raw, &ev); err != nil {
			return
		}
		if ev.FrameID == p.currentMainFrame() {
			p.nav.onFrameStartedLoading()
		}
	})
	p.emitter.On("Page.frameStoppedLoading", func(raw []byte) {
		var ev page.EventFrameStoppedLoading
		if err := json.Unmarshal(raw, &ev); err != nil {
			return
		}
		if ev.FrameID == p.currentMainFrame() {
			p.nav.onFrameStoppedLoading()
		}
	})
	p.emitter.On("Page.domContentEventFired", func([]byte) { p.nav.onDOMContentEventFired() })
	p.emitter.On("Page.loadEventFired", func([]byte) { p.nav.onLoadEventFired() })
	p.emitter.On("Inspector.targetCrashed", func([]byte) { p.nav.onCrash() })

	p.emitter.On("Network.requestWillBeSent", func(raw []byte) {
		var ev network.EventRequestWillBeSent
		if err := json.Unmarshal(raw, &ev); err == nil {
			p.nav.onRequestWillBeSent(&ev)
		}
	})
	p.emitter.On("Network.loadingFinished", func(raw []byte) {
		var ev network.EventLoadingFinished
		if err := json.Unmarshal(raw, &ev); err == nil {
			p.nav.onRequestFinished(ev.RequestID, false)
		}
	})
	p.emitter.On("Network.loadingFailed", func(raw []byte) {
		var ev network.EventLoadingFailed
		if err := json.Unmarshal(raw, &ev); err == nil {
			p.nav.onRequestFinished(ev.RequestID, true)
		}
	})

	p.emitter.On("Runtime.executionContextCreated", func(raw []byte) {
		var ev runtime.EventExecutionContextCreated
		if err := json.Unmarshal(raw, &ev); err != nil || ev.Context == nil {
			return
		}
		var aux struct {
			IsDefault bool `json:"isDefault"`
		}
		_ = json.Unmarshal(ev.Context.AuxData, &aux)
		if aux.IsDefault {
			p.mu.Lock()
			p.execCtxID = ev.Context.ID
			p.hasExecCtx = true
			p.mu.Unlock()
			p.emitter.Emit("internal.executionContext", nil)
		}
	})
	p.emitter.On("Runtime.executionContextDestroyed", func([]byte) {
		p.mu.Lock()
		p.hasExecCtx = false
		p.mu.Unlock()
	})
	p.emitter.On("Runtime.executionContextsCleared", func([]byte) {
		p.mu.Lock()
		p.hasExecCtx = false
		p.mu.Unlock()
	})
}

func (p *PageSession) currentMainFrame() cdp.FrameID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mainFrameID
}

// initialize attaches to the target's main frame, enables the Page,
// Runtime, Network, and DOM domains in parallel with a bounded deadline,
// and acquires the default execution context.
func (p *PageSession) initialize(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, domainEnableDeadline)
	defer cancel()

	type enableResult struct {
		name string
		err  error
	}
	results := make(chan enableResult, 4)
	enable := func(name string, fn func(context.Context) error) {
		go func() { results <- enableResult{name, fn(ctx)} }()
	}
	enable("Page", func(ctx context.Context) error { return page.Enable().Do(p.withExecutor(ctx)) })
	enable("Runtime", func(ctx context.Context) error { return runtime.Enable().Do(p.withExecutor(ctx)) })
	enable("Network", func(ctx context.Context) error { return network.Enable().Do(p.withExecutor(ctx)) })
	enable("DOM", func(ctx context.Context) error { return dom.Enable().Do(p.withExecutor(ctx)) })

	for i := 0; i < 4; i++ {
		r := <-results
		if r.err != nil {
			return &TransportError{Op: "enable " + r.name, Err: r.err}
		}
	}

	tree, err := page.GetFrameTree().Do(p.withExecutor(ctx))
	if err != nil {
		return &TransportError{Op: "getFrameTree", Err: err}
	}
	p.mu.Lock()
	p.mainFrameID = tree.Frame.ID
	p.mu.Unlock()

	return p.acquireExecutionContext(ctx)
}

func (p *PageSession) withExecutor(ctx context.Context) context.Context {
	return cdp.WithExecutor(ctx, p)
}

// Screenshot captures the current page as a PNG via Page.captureScreenshot.
func (p *PageSession) Screenshot(ctx context.Context) ([]byte, error) {
	return page.CaptureScreenshot().Do(p.withExecutor(ctx))
}

// acquireExecutionContext waits for Runtime.executionContextCreated with
// auxData.isDefault, falling back to a probe evaluate if the event was
// missed (e.g. it fired before the listener was wired).
func (p *PageSession) acquireExecutionContext(ctx context.Context) error {
	if p.hasContext() {
		return nil
	}
	waitCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if _, err := p.emitter.WaitFor(waitCtx, "internal.executionContext", 0); err == nil {
		return nil
	}

	// Probe: evaluate a trivial constant without an explicit context id.
	_, err := p.rawEvaluate(ctx, "1", true, false)
	if err == nil {
		p.mu.Lock()
		p.hasExecCtx = true
		p.mu.Unlock()
		return nil
	}
	return ErrNoExecutionContext
}

func (p *PageSession) hasContext() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasExecCtx
}

// Navigate issues Page.navigate and blocks until the requested wait_until
// condition holds or timeout elapses.
func (p *PageSession) Navigate(ctx context.Context, url string, until WaitUntil, timeout time.Duration) error {
	deadlineCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	frameID, _, errText, err := page.Navigate(url).Do(p.withExecutor(deadlineCtx))
	if err != nil {
		return &NavigationError{URL: url, State: p.nav.snapshot(), Err: err}
	}
	if errText != "" {
		return &NavigationError{URL: url, State: p.nav.snapshot(), Err: Error(errText)}
	}
	p.mu.Lock()
	p.mainFrameID = frameID
	p.mu.Unlock()

	if err := p.nav.waitUntil(deadlineCtx, until, timeout); err != nil {
		return &NavigationError{URL: url, State: p.nav.snapshot(), Err: err}
	}
	if p.nav.crashedNow() {
		return &NavigationError{URL: url, State: p.nav.snapshot(), Err: Error("target crashed")}
	}

	// A fresh navigation tears down the old execution context; make sure
	// a new default one has been observed before returning.
	_ = p.acquireExecutionContext(deadlineCtx)
	return nil
}

// Evaluate runs expression in the page's default world.
func (p *PageSession) Evaluate(ctx context.Context, expression string, returnByValue bool) (interface{}, error) {
	raw, err := p.rawEvaluate(ctx, expression, returnByValue, true)
	if err != nil {
		return nil, err
	}
	if !returnByValue || len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// rawEvaluate performs Runtime.evaluate, retrying once without an
// explicit context id if the browser reports the context is gone.
func (p *PageSession) rawEvaluate(ctx context.Context, expression string, returnByValue, withContext bool) (json.RawMessage, error) {
	params := runtime.Evaluate(expression).WithReturnByValue(returnByValue)
	if withContext && p.hasContext() {
		p.mu.Lock()
		ctxID := p.execCtxID
		p.mu.Unlock()
		params = params.WithContextID(ctxID)
	}

	result, exc, err := params.Do(p.withExecutor(ctx))
	if err != nil {
		if withContext && strings.Contains(err.Error(), "context not found") {
			return p.rawEvaluate(ctx, expression, returnByValue, false)
		}
		return nil, err
	}
	if exc != nil {
		text := exc.Text
		desc := ""
		if exc.Exception != nil {
			if exc.Exception.Description != "" {
				desc = exc.Exception.Description
			}
			if exc.Exception.Value != nil {
				text = string(exc.Exception.Value)
			}
		}
		return nil, &EvaluateError{Text: text, Description: desc}
	}
	if result == nil {
		return nil, nil
	}
	return result.Value, nil
}

// GetContent returns the outer HTML of the document element.
func (p *PageSession) GetContent(ctx context.Context) (string, error) {
	v, err := p.Evaluate(ctx, "document.documentElement.outerHTML", true)
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

// GetTitle returns document.title.
func (p *PageSession) GetTitle(ctx context.Context) (string, error) {
	v, err := p.Evaluate(ctx, "document.title", true)
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

// GetCurrentURL returns document.location.href.
func (p *PageSession) GetCurrentURL(ctx context.Context) (string, error) {
	v, err := p.Evaluate(ctx, "document.location.href", true)
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

// GetCookies returns every cookie visible to the page.
func (p *PageSession) GetCookies(ctx context.Context) ([]*network.Cookie, error) {
	return network.GetCookies().Do(p.withExecutor(ctx))
}

// WaitForSelector polls DOM.querySelector until css matches a node or
// timeout elapses. The selector is validated client-side first, so a
// malformed selector fails fast with ErrSelectorSyntax instead of an
// opaque remote error.
func (p *PageSession) WaitForSelector(ctx context.Context, css string, timeout time.Duration) (cdp.NodeID, error) {
	if _, err := cascadia.ParseGroup(css); err != nil {
		return 0, ErrSelectorSyntax
	}

	deadline := time.Now().Add(timeout)
	for {
		doc, err := dom.GetDocument().Do(p.withExecutor(ctx))
		if err == nil {
			nodeID, err := dom.QuerySelector(doc.NodeID, css).Do(p.withExecutor(ctx))
			if err == nil && nodeID != 0 {
				return nodeID, nil
			}
		}
		if time.Now().After(deadline) {
			return 0, &TimeoutError{Op: "selector " + css}
		}
		select {
		case <-time.After(100 * time.Millisecond):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// WaitForEvent suspends until the next emission of name.
func (p *PageSession) WaitForEvent(ctx context.Context, name string, timeout time.Duration) ([]byte, error) {
	return p.emitter.WaitFor(ctx, name, timeout)
}

// WaitForNetworkIdle returns once the set of pending request ids has size
// <= maxInflight for at least the quiescence window.
func (p *PageSession) WaitForNetworkIdle(ctx context.Context, timeout time.Duration, maxInflight int) error {
	deadline := time.Now().Add(timeout)
	for {
		if p.inflightCount() <= maxInflight {
			select {
			case <-time.After(networkIdleQuiescence):
			case <-ctx.Done():
				return ctx.Err()
			}
			if p.inflightCount() <= maxInflight {
				return nil
			}
			continue
		}
		if time.Now().After(deadline) {
			return &TimeoutError{Op: "network idle"}
		}
		select {
		case <-time.After(50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *PageSession) inflightCount() int {
	p.nav.mu.Lock()
	defer p.nav.mu.Unlock()
	return len(p.nav.pending)
}

// WaitForLoad waits for the `load` signal.
func (p *PageSession) WaitForLoad(ctx context.Context, timeout time.Duration) error {
	return p.nav.waitUntil(ctx, WaitUntilLoad, timeout)
}

// WaitForDOMContent waits for the `domcontentloaded` signal.
func (p *PageSession) WaitForDOMContent(ctx context.Context, timeout time.Duration) error {
	return p.nav.waitUntil(ctx, WaitUntilDOMContentLoaded, timeout)
}

// Close detaches the session (tolerating "session not found"), closes
// the target, and cancels pending awaiters. Idempotent.
func (p *PageSession) Close(ctx context.Context) error {
	var err error
	p.closeOnce.Do(func() {
		p.closed = true
		p.emitter.Clear()

		detachCtx := cdp.WithExecutor(ctx, p.browser)
		if derr := target.DetachFromTarget().WithSessionID(p.SessionID).Do(detachCtx); derr != nil &&
			!strings.Contains(derr.Error(), "not found") {
			err = derr
		}
		if cerr := target.CloseTarget(p.TargetID).Do(detachCtx); cerr != nil {
			if err == nil {
				err = cerr
			}
		}
		p.browser.closePage(p.SessionID)
	})
	return err
}
