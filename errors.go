package cdpbrowser

import "fmt"

// Error is a sentinel error, mirroring the teacher's plain string-error
// idiom for simple boolean conditions that need no extra context.
type Error string

// Error satisfies the error interface.
func (err Error) Error() string {
	return string(err)
}

const (
	// ErrClosed is returned by commands sent after the Browser has shut
	// down, and by event waits cancelled when a page's emitter is cleared.
	ErrClosed Error = "cdpbrowser: session closed"

	// ErrNoSuchTarget is returned when a target id is no longer known to
	// the browser (already detached or destroyed).
	ErrNoSuchTarget Error = "cdpbrowser: no such target"

	// ErrNoSuchFrame is returned when a frame id referenced by a caller
	// is not tracked.
	ErrNoSuchFrame Error = "cdpbrowser: no such frame"

	// ErrNoExecutionContext is returned when an evaluate is attempted
	// before any execution context has been observed or probed.
	ErrNoExecutionContext Error = "cdpbrowser: no execution context"

	// ErrNoTurnstileDetection is returned by SolveTurnstile when no
	// detection record exists for the page.
	ErrNoTurnstileDetection Error = "cdpbrowser: no turnstile detection on page"

	// ErrSelectorSyntax is returned when a caller-supplied CSS selector
	// fails client-side parsing before ever reaching the browser.
	ErrSelectorSyntax Error = "cdpbrowser: invalid css selector"

	// ErrPatchCycle names a patch dependency cycle. The stealth registry
	// reports cycles with its own error value, which does not match
	// ErrPatchCycle under errors.Is.
	ErrPatchCycle Error = "cdpbrowser: patch dependency cycle"

	// ErrNonTextFrame is returned when the browser sends a non-text
	// WebSocket frame, which the CDP wire format never does.
	ErrNonTextFrame Error = "cdpbrowser: non-text websocket frame"
)

// TransportError wraps a failure to dial, read, or write the underlying
// WebSocket connection to the browser.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("cdpbrowser: transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// TimeoutError is raised when a blocking operation (command, event wait,
// navigation, selector wait, execution-context acquisition, network-idle
// wait) exceeds its deadline.
type TimeoutError struct {
	Op string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("cdpbrowser: timeout waiting for %s", e.Op)
}

// RemoteError carries the browser's own structured {code, message}
// error envelope, verbatim.
type RemoteError struct {
	Code    int64
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("cdpbrowser: remote error %d: %s", e.Code, e.Message)
}

// NavigationError is raised when a navigate call fails to reach its
// requested wait-until condition, including crash and document-request
// failure. It aggregates the last-seen NavigationState for diagnostics.
type NavigationError struct {
	URL   string
	State NavigationState
	Err   error
}

func (e *NavigationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cdpbrowser: navigation to %s failed (state=%s): %v", e.URL, e.State, e.Err)
	}
	return fmt.Sprintf("cdpbrowser: navigation to %s did not complete (state=%s)", e.URL, e.State)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// EvaluateError carries a JS exception raised during Runtime.evaluate.
type EvaluateError struct {
	Text        string
	Description string
}

func (e *EvaluateError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("cdpbrowser: evaluate threw: %s\n%s", e.Text, e.Description)
	}
	return fmt.Sprintf("cdpbrowser: evaluate threw: %s", e.Text)
}

// PatchError describes a stealth patch that failed to evaluate or failed
// its post-condition verification. ApplyStealth does not wrap into it: it
// returns the stealth package's *stealth.VerificationError as is.
type PatchError struct {
	Patch string
	Stage string // "apply" or "verify"
	Err   error
}

func (e *PatchError) Error() string {
	return fmt.Sprintf("cdpbrowser: stealth patch %q failed at %s: %v", e.Patch, e.Stage, e.Err)
}

func (e *PatchError) Unwrap() error { return e.Err }

// InputError is raised by the Input Synthesizer when a target element
// cannot be found, is not visible, or has no box model.
type InputError struct {
	Selector string
	Reason   string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("cdpbrowser: input on %q: %s", e.Selector, e.Reason)
}

// ProtocolError is raised when a frame from the browser cannot be
// decoded. A response whose id has no pending command is not an error:
// the router logs and drops it.
type ProtocolError struct {
	Reason string
	Raw    []byte
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("cdpbrowser: protocol error: %s", e.Reason)
}
