package stealth

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
)

// VerificationError reports that a patch failed to install (new-document
// registration or immediate evaluation) or that a critical patch's
// post-condition did not hold after injection.
type VerificationError struct {
	Patch string
	Err   error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("stealth: patch %q verification failed: %v", e.Patch, e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }

// Inject is the C10 Stealth Injector: for every patch in registry's
// level-ordering, it registers a new-document script, evaluates it
// immediately against the current execution context, and — for patches
// carrying a Critical expression — verifies the post-condition. After
// all patches install, it applies the user-agent and viewport override.
//
// executor is any type implementing the cdp.Executor contract (the
// PageSession in the parent package satisfies this without either
// package importing the other).
func Inject(ctx context.Context, executor cdp.Executor, r *Registry, profile Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	ctx = cdp.WithExecutor(ctx, executor)

	patches, err := r.OrderedPatches(profile.Level)
	if err != nil {
		return err
	}

	seedScript := fmt.Sprintf("window.__cdp_canvas_seed__ = %s;", seedExpr(profile.SeedSession))
	if _, err := page.AddScriptToEvaluateOnNewDocument(seedScript).Do(ctx); err != nil {
		return err
	}
	if _, _, err := runtime.Evaluate(seedScript).Do(ctx); err != nil {
		return err
	}

	for _, p := range patches {
		if _, err := page.AddScriptToEvaluateOnNewDocument(p.Script).Do(ctx); err != nil {
			return &VerificationError{Patch: p.Name, Err: err}
		}

		result, exc, err := runtime.Evaluate(p.Script).Do(ctx)
		if err != nil {
			return &VerificationError{Patch: p.Name, Err: err}
		}
		if exc != nil {
			return &VerificationError{Patch: p.Name, Err: fmt.Errorf("js exception: %s", exc.Text)}
		}
		_ = result

		if p.Critical != "" {
			vres, vexc, err := runtime.Evaluate(p.Critical).WithReturnByValue(true).Do(ctx)
			if err != nil || vexc != nil {
				return &VerificationError{Patch: p.Name, Err: fmt.Errorf("critical check errored")}
			}
			if vres == nil || string(vres.Value) != "true" {
				return &VerificationError{Patch: p.Name, Err: fmt.Errorf("critical check returned false")}
			}
		}
	}

	if err := network.SetUserAgentOverride(profile.UserAgent).
		WithUserAgentMetadata(&emulation.UserAgentMetadata{
			Platform:        "Windows",
			PlatformVersion: "10.0",
			Architecture:    "x86",
			Model:           "",
			Mobile:          false,
		}).Do(ctx); err != nil {
		return err
	}

	if err := deviceMetricsOverride(profile.WindowWidth, profile.WindowHeight).Do(ctx); err != nil {
		return err
	}

	return nil
}

// seedExpr turns an opaque session id into a small positive numeric
// seed usable by the canvas-noise patch's JS-side PRNG.
func seedExpr(sessionID string) string {
	var h uint32 = 2166136261
	for i := 0; i < len(sessionID); i++ {
		h ^= uint32(sessionID[i])
		h *= 16777619
	}
	return fmt.Sprintf("%d", (h%9000)+1000)
}
