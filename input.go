package cdpbrowser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/dom"
	cdpinput "github.com/chromedp/cdproto/input"

	"github.com/pjaol/cdp-browser/kb"
)

// InputModifiers is the keyboard modifier bitmap the synthesizer
// maintains across a page's input operations (never shared across
// pages): Alt=1, Ctrl=2, Meta=4, Shift=8.
type InputModifiers int64

const (
	ModAlt   InputModifiers = 1
	ModCtrl  InputModifiers = 2
	ModMeta  InputModifiers = 4
	ModShift InputModifiers = 8
)

// MouseButton names a pointer button for Click/DoubleClick.
type MouseButton string

const (
	ButtonLeft   MouseButton = "left"
	ButtonMiddle MouseButton = "middle"
	ButtonRight  MouseButton = "right"
)

func (b MouseButton) cdp() cdpinput.Button {
	switch b {
	case ButtonMiddle:
		return cdpinput.Middle
	case ButtonRight:
		return cdpinput.Right
	default:
		return cdpinput.Left
	}
}

// nodeBoxCenter resolves selector through DOM.querySelector and returns
// the content-box centre of the first match.
func (p *PageSession) nodeBoxCenter(ctx context.Context, selector string) (x, y float64, err error) {
	nodeID, err := p.WaitForSelector(ctx, selector, 0)
	if err != nil {
		return 0, 0, &InputError{Selector: selector, Reason: "not found"}
	}
	box, err := dom.GetBoxModel(nodeID).Do(p.withExecutor(ctx))
	if err != nil || box == nil || len(box.Content) < 8 {
		return 0, 0, &InputError{Selector: selector, Reason: "no box model"}
	}
	// Content is a flat [x0,y0, x1,y1, x2,y2, x3,y3] quad; centre is the
	// mean of the four corners.
	var sx, sy float64
	for i := 0; i < 8; i += 2 {
		sx += box.Content[i]
		sy += box.Content[i+1]
	}
	return sx / 4, sy / 4, nil
}

// Click resolves selector and synthesizes a mousePressed + optional
// delay + mouseReleased at its content-box centre. No mouseMoved event is
// dispatched first.
func (p *PageSession) Click(ctx context.Context, selector string, button MouseButton, clickCount int, delay time.Duration) error {
	x, y, err := p.nodeBoxCenter(ctx, selector)
	if err != nil {
		return err
	}
	return p.clickAt(ctx, x, y, button, clickCount, delay)
}

func (p *PageSession) clickAt(ctx context.Context, x, y float64, button MouseButton, clickCount int, delay time.Duration) error {
	mods := int64(p.modifiers)
	if err := cdpinput.DispatchMouseEvent(cdpinput.MousePressed, x, y).
		WithButton(button.cdp()).WithClickCount(int64(clickCount)).WithModifiers(cdpinput.Modifier(mods)).
		Do(p.withExecutor(ctx)); err != nil {
		return err
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return cdpinput.DispatchMouseEvent(cdpinput.MouseReleased, x, y).
		WithButton(button.cdp()).WithClickCount(int64(clickCount)).WithModifiers(cdpinput.Modifier(mods)).
		Do(p.withExecutor(ctx))
}

// DoubleClick is Click with clickCount=2.
func (p *PageSession) DoubleClick(ctx context.Context, selector string) error {
	return p.Click(ctx, selector, ButtonLeft, 2, 0)
}

// Hover moves the pointer to selector's centre without pressing.
func (p *PageSession) Hover(ctx context.Context, selector string) error {
	x, y, err := p.nodeBoxCenter(ctx, selector)
	if err != nil {
		return err
	}
	return cdpinput.DispatchMouseEvent(cdpinput.MouseMoved, x, y).Do(p.withExecutor(ctx))
}

// Type focuses selector (via click) and synthesizes per-character
// keyDown/keyUp events, honoring delay between characters.
func (p *PageSession) Type(ctx context.Context, selector, text string, delay time.Duration, clear bool) error {
	if err := p.Click(ctx, selector, ButtonLeft, 1, 0); err != nil {
		return err
	}
	if clear {
		script := fmt.Sprintf(`(function(el){ el.value = ""; el.dispatchEvent(new Event('input', {bubbles:true})); })(document.querySelector(%q))`, selector)
		if _, err := p.Evaluate(ctx, script, false); err != nil {
			return err
		}
	}
	for _, r := range text {
		if err := p.pressRune(ctx, r); err != nil {
			return err
		}
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

// Press synthesizes one named key (e.g. "Enter", "Tab", "Escape").
func (p *PageSession) Press(ctx context.Context, key string) error {
	entry, ok := kb.Keys[key]
	if !ok {
		return &InputError{Selector: key, Reason: "unknown key"}
	}
	return p.dispatchKey(ctx, entry.KeyCode, entry.Key, entry.Code, entry.Text)
}

// PressCombo presses a sequence of modifier keys held together, e.g.
// ["Control", "a"].
func (p *PageSession) PressCombo(ctx context.Context, keys []string) error {
	var held InputModifiers
	defer func() { p.modifiers = 0 }()
	for i, k := range keys {
		if mod, ok := kb.ModifierFor(k); ok {
			held |= InputModifiers(mod)
			p.modifiers = held
			continue
		}
		if i == len(keys)-1 {
			if entry, ok := kb.Keys[k]; ok {
				return p.dispatchKey(ctx, entry.KeyCode, entry.Key, entry.Code, entry.Text)
			}
			for _, r := range k {
				return p.pressRune(ctx, r)
			}
		}
	}
	return nil
}

func (p *PageSession) pressRune(ctx context.Context, r rune) error {
	text := string(r)
	return p.dispatchKey(ctx, 0, text, "", text)
}

func (p *PageSession) dispatchKey(ctx context.Context, keyCode int64, key, code, text string) error {
	mods := cdpinput.Modifier(int64(p.modifiers))
	down := cdpinput.DispatchKeyEvent(cdpinput.KeyDown).
		WithModifiers(mods).WithKey(key).WithCode(code).WithText(text)
	if keyCode != 0 {
		down = down.WithWindowsVirtualKeyCode(keyCode).WithNativeVirtualKeyCode(keyCode)
	}
	if err := down.Do(p.withExecutor(ctx)); err != nil {
		return err
	}
	up := cdpinput.DispatchKeyEvent(cdpinput.KeyUp).
		WithModifiers(mods).WithKey(key).WithCode(code)
	if keyCode != 0 {
		up = up.WithWindowsVirtualKeyCode(keyCode).WithNativeVirtualKeyCode(keyCode)
	}
	return up.Do(p.withExecutor(ctx))
}

// Select sets a <select> element's value(s) via a scripted assignment
// that also dispatches input/change events.
func (p *PageSession) Select(ctx context.Context, selector string, values []string) error {
	script := fmt.Sprintf(`(function(el, values){
		for (const opt of el.options) { opt.selected = values.includes(opt.value); }
		el.dispatchEvent(new Event('input', {bubbles:true}));
		el.dispatchEvent(new Event('change', {bubbles:true}));
	})(document.querySelector(%q), %s)`, selector, jsStringArray(values))
	_, err := p.Evaluate(ctx, script, false)
	return err
}

// Check sets a checkbox/radio's checked state via a scripted assignment.
func (p *PageSession) Check(ctx context.Context, selector string, checked bool) error {
	script := fmt.Sprintf(`(function(el, v){
		el.checked = v;
		el.dispatchEvent(new Event('input', {bubbles:true}));
		el.dispatchEvent(new Event('change', {bubbles:true}));
	})(document.querySelector(%q), %v)`, selector, checked)
	_, err := p.Evaluate(ctx, script, false)
	return err
}

// FillForm types each selector->value pair and, when submit is set,
// clicks submitSelector. With an empty submitSelector nothing is
// submitted.
func (p *PageSession) FillForm(ctx context.Context, fields map[string]string, submit bool, submitSelector string) error {
	for selector, value := range fields {
		if err := p.Type(ctx, selector, value, 0, true); err != nil {
			return err
		}
	}
	if submit {
		if submitSelector != "" {
			return p.Click(ctx, submitSelector, ButtonLeft, 1, 0)
		}
	}
	return nil
}

// UploadFile sets the files on a file-input element.
func (p *PageSession) UploadFile(ctx context.Context, selector string, paths []string) error {
	nodeID, err := p.WaitForSelector(ctx, selector, 0)
	if err != nil {
		return err
	}
	return dom.SetFileInputFiles(paths).WithNodeID(nodeID).Do(p.withExecutor(ctx))
}

func jsStringArray(vals []string) string {
	out := "["
	for i, v := range vals {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("%q", v)
	}
	return out + "]"
}
