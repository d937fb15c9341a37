package cdpbrowser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
)

// NavigationState is the C7 Navigation State Machine's bitfield, tracking
// {frame_stopped_loading, load_event_fired, dom_content_event_fired,
// network_idle, load_complete, navigation_complete}.
type NavigationState uint8

const (
	FrameStoppedLoading NavigationState = 1 << iota
	LoadEventFired
	DOMContentEventFired
	NetworkIdle
	LoadComplete
	NavigationComplete
)

// Has reports whether every flag in want is set.
func (s NavigationState) Has(want NavigationState) bool {
	return s&want == want
}

func (s NavigationState) String() string {
	names := []struct {
		flag NavigationState
		name string
	}{
		{FrameStoppedLoading, "frame_stopped_loading"},
		{LoadEventFired, "load_event_fired"},
		{DOMContentEventFired, "dom_content_event_fired"},
		{NetworkIdle, "network_idle"},
		{LoadComplete, "load_complete"},
		{NavigationComplete, "navigation_complete"},
	}
	out := ""
	for _, n := range names {
		if s.Has(n.flag) {
			if out != "" {
				out += "|"
			}
			out += n.name
		}
	}
	if out == "" {
		return "none"
	}
	return out
}

// WaitUntil selects the navigation condition a caller requires.
type WaitUntil int

const (
	WaitUntilLoad WaitUntil = iota
	WaitUntilDOMContentLoaded
	WaitUntilNetworkIdle
	WaitUntilAny
)

const networkIdleQuiescence = 500 * time.Millisecond

// navTracker owns one page's NavigationState and the signals derived from
// it, driven exclusively by events the router hands to the page's
// emitter — never by a self-scheduled task (see SPEC_FULL.md §9, the
// "dead _handle_messages" open question).
type navTracker struct {
	mu      sync.Mutex
	state   NavigationState
	pending map[network.RequestID]bool
	docReq  network.RequestID
	crashed bool

	emitter *Emitter
}

func newNavTracker(emitter *Emitter) *navTracker {
	return &navTracker{
		pending: make(map[network.RequestID]bool),
		emitter: emitter,
	}
}

func (n *navTracker) snapshot() NavigationState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

func (n *navTracker) onFrameStartedLoading() {
	n.mu.Lock()
	n.state = 0
	n.pending = make(map[network.RequestID]bool)
	n.docReq = ""
	n.mu.Unlock()
}

func (n *navTracker) onRequestWillBeSent(ev *network.EventRequestWillBeSent) {
	n.mu.Lock()
	n.pending[ev.RequestID] = true
	n.state &^= NetworkIdle
	if ev.Type == network.ResourceTypeDocument {
		n.docReq = ev.RequestID
	}
	n.mu.Unlock()
}

func (n *navTracker) onRequestFinished(id network.RequestID, failed bool) {
	n.mu.Lock()
	delete(n.pending, id)
	empty := len(n.pending) == 0
	isDoc := id == n.docReq
	if empty {
		n.state |= NetworkIdle
	}
	docFailed := isDoc && failed
	if docFailed {
		n.state |= LoadComplete | DOMContentEventFired
		n.recomputeNavigationComplete()
	}
	emitIdle := empty
	navComplete := n.state.Has(NavigationComplete)
	n.mu.Unlock()
	if docFailed {
		n.emitter.Emit("internal.load", nil)
		n.emitter.Emit("internal.domContentLoaded", nil)
	}
	if emitIdle {
		n.emitter.Emit("internal.networkIdle", nil)
	}
	if docFailed && navComplete {
		n.emitter.Emit("internal.navigationComplete", nil)
	}
}

func (n *navTracker) onDOMContentEventFired() {
	n.mu.Lock()
	n.state |= DOMContentEventFired
	n.mu.Unlock()
	n.emitter.Emit("internal.domContentLoaded", nil)
}

func (n *navTracker) onLoadEventFired() {
	n.mu.Lock()
	n.state |= LoadEventFired
	signal := false
	if n.state.Has(FrameStoppedLoading) {
		n.state |= LoadComplete
		signal = true
	}
	n.mu.Unlock()
	if signal {
		n.emitter.Emit("internal.load", nil)
	}
}

func (n *navTracker) onFrameStoppedLoading() {
	n.mu.Lock()
	n.state |= FrameStoppedLoading
	loaded := false
	if n.state.Has(LoadEventFired) && !n.state.Has(LoadComplete) {
		n.state |= LoadComplete
		loaded = true
	}
	n.recomputeNavigationComplete()
	state := n.state
	n.mu.Unlock()
	if loaded {
		n.emitter.Emit("internal.load", nil)
	}
	if state.Has(NavigationComplete) {
		n.emitter.Emit("internal.navigationComplete", nil)
	}
}

// recomputeNavigationComplete must be called with n.mu held.
func (n *navTracker) recomputeNavigationComplete() {
	if n.state.Has(FrameStoppedLoading) && (n.state.Has(LoadComplete) || n.state.Has(NetworkIdle)) {
		n.state |= NavigationComplete
	}
}

func (n *navTracker) onCrash() {
	n.mu.Lock()
	n.state = FrameStoppedLoading | LoadEventFired | DOMContentEventFired | NetworkIdle | LoadComplete | NavigationComplete
	n.crashed = true
	n.mu.Unlock()
	n.emitter.Emit("internal.load", nil)
	n.emitter.Emit("internal.domContentLoaded", nil)
	n.emitter.Emit("internal.networkIdle", nil)
	n.emitter.Emit("internal.navigationComplete", nil)
}

// waitUntil blocks until the requested wait_until condition holds, or
// ctx/timeout elapses.
func (n *navTracker) waitUntil(ctx context.Context, until WaitUntil, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	switch until {
	case WaitUntilDOMContentLoaded:
		return n.waitFlag(ctx, deadline, DOMContentEventFired, "internal.domContentLoaded")
	case WaitUntilLoad:
		return n.waitFlag(ctx, deadline, LoadComplete, "internal.load")
	case WaitUntilNetworkIdle:
		return n.waitNetworkIdle(ctx, deadline)
	case WaitUntilAny:
		return n.waitAny(ctx, deadline)
	default:
		return fmt.Errorf("cdpbrowser: unknown wait_until %d", until)
	}
}

func (n *navTracker) waitFlag(ctx context.Context, deadline time.Time, flag NavigationState, event string) error {
	for {
		if n.snapshot().Has(flag) {
			return nil
		}
		if n.crashedNow() {
			return nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return &TimeoutError{Op: string(event)}
		}
		if _, err := n.emitter.WaitFor(ctx, event, remaining); err != nil {
			return err
		}
	}
}

func (n *navTracker) crashedNow() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.crashed
}

// waitNetworkIdle waits for network_idle AND frame_stopped_loading, then
// re-checks after a short quiescence window to avoid flapping on a
// request that fires immediately after the idle signal.
func (n *navTracker) waitNetworkIdle(ctx context.Context, deadline time.Time) error {
	for {
		s := n.snapshot()
		if s.Has(NetworkIdle) && s.Has(FrameStoppedLoading) {
			select {
			case <-time.After(networkIdleQuiescence):
			case <-ctx.Done():
				return ctx.Err()
			}
			if s2 := n.snapshot(); s2.Has(NetworkIdle) && s2.Has(FrameStoppedLoading) {
				return nil
			}
			continue
		}
		if n.crashedNow() {
			return nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return &TimeoutError{Op: "networkidle"}
		}
		// Idle but not yet stopped: the frameStoppedLoading that completes
		// the condition is signalled as navigationComplete, not networkIdle.
		event := "internal.networkIdle"
		if s.Has(NetworkIdle) {
			event = "internal.navigationComplete"
		}
		if _, err := n.emitter.WaitFor(ctx, event, remaining); err != nil {
			return err
		}
	}
}

func (n *navTracker) waitAny(ctx context.Context, deadline time.Time) error {
	for {
		s := n.snapshot()
		if s.Has(LoadComplete) || s.Has(DOMContentEventFired) || (s.Has(NetworkIdle) && s.Has(FrameStoppedLoading)) {
			return nil
		}
		if n.crashedNow() {
			return nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return &TimeoutError{Op: "any"}
		}

		results := make(chan error, 3)
		waitCtx, cancel := context.WithTimeout(ctx, remaining)
		for _, ev := range []string{"internal.load", "internal.domContentLoaded", "internal.networkIdle"} {
			ev := ev
			go func() {
				_, err := n.emitter.WaitFor(waitCtx, ev, 0)
				results <- err
			}()
		}
		err := <-results
		cancel()
		if err != nil && err != context.Canceled {
			return err
		}
	}
}
