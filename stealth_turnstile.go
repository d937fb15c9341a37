package cdpbrowser

import (
	"context"
	"encoding/json"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/google/uuid"

	"github.com/pjaol/cdp-browser/stealth"
	"github.com/pjaol/cdp-browser/turnstile"
)

// ApplyStealth installs registry's patches for profile onto this page
// (C10 Stealth Injector), deriving a per-session noise seed from a fresh
// uuid if the profile did not already carry one.
func (p *PageSession) ApplyStealth(ctx context.Context, registry *stealth.Registry, profile stealth.Profile) error {
	if profile.SeedSession == "" {
		profile.SeedSession = uuid.NewString()
	}
	return stealth.Inject(ctx, p, registry, profile)
}

// EnableTurnstileDetection registers the Turnstile detector script as a
// new-document script, evaluates it immediately, and subscribes to the
// page's console stream for CDP-TURNSTILE-* signals. A detected signal
// stores the parsed Detection on the page and emits "turnstile.detected"
// with the raw console event; a solved signal emits "turnstile.solved"
// with the token.
func (p *PageSession) EnableTurnstileDetection(ctx context.Context) error {
	if _, err := page.AddScriptToEvaluateOnNewDocument(turnstile.DetectorScript).Do(p.withExecutor(ctx)); err != nil {
		return err
	}
	if _, _, err := runtime.Evaluate(turnstile.DetectorScript).Do(p.withExecutor(ctx)); err != nil {
		return err
	}

	p.emitter.On("Runtime.consoleAPICalled", func(raw []byte) {
		var ev runtime.EventConsoleAPICalled
		if err := json.Unmarshal(raw, &ev); err != nil || len(ev.Args) == 0 {
			return
		}
		for _, arg := range ev.Args {
			if arg.Type != "string" {
				continue
			}
			var line string
			if err := json.Unmarshal(arg.Value, &line); err != nil {
				continue
			}
			sig := turnstile.ParseConsoleLine(line)
			switch sig.Kind {
			case turnstile.SignalDetected:
				p.setTurnstileDetection(sig.Detection)
				p.emitter.Emit("turnstile.detected", raw)
			case turnstile.SignalSolved:
				p.emitter.Emit("turnstile.solved", []byte(sig.Token))
			}
		}
	})

	return nil
}

// WaitForTurnstileDetection blocks until a detection record arrives or
// timeout elapses.
func (p *PageSession) WaitForTurnstileDetection(ctx context.Context, timeout time.Duration) (turnstile.Detection, error) {
	if _, err := p.emitter.WaitFor(ctx, "turnstile.detected", timeout); err != nil {
		return turnstile.Detection{}, err
	}
	return p.getTurnstileDetection(), nil
}

// SolveTurnstile dispatches to the external-token or auto-click path
// depending on whether token is non-empty.
func (p *PageSession) SolveTurnstile(ctx context.Context, token string) (bool, error) {
	det := p.getTurnstileDetection()
	if det.Type == "" {
		return false, ErrNoTurnstileDetection
	}
	if token != "" {
		if err := turnstile.ApplySolution(ctx, p, token); err != nil {
			return false, err
		}
		return true, nil
	}
	if det.Position == nil {
		return false, nil
	}
	return turnstile.AutoClick(ctx, p, *det.Position)
}

func (p *PageSession) setTurnstileDetection(d turnstile.Detection) {
	p.mu.Lock()
	p.turnstileDetection = d
	p.mu.Unlock()
}

func (p *PageSession) getTurnstileDetection() turnstile.Detection {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.turnstileDetection
}
