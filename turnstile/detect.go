// Package turnstile implements the C11 Turnstile Module: an on-page
// detector script, a console-signal parser, and a human-like pointer
// solver for Cloudflare Turnstile challenges, ported from
// original_source/cdp_browser/browser/stealth/patches/cloudflare_turnstile.py.
package turnstile

// DetectionType enumerates the widget surfaces the detector recognizes.
type DetectionType string

const (
	TypeChallengePage DetectionType = "challenge_page"
	TypeStandalone    DetectionType = "standalone"
	TypeCheckbox      DetectionType = "checkbox"
	TypeIframe        DetectionType = "iframe"
)

// Position is the widget's screen-space centre, as reported by the
// detector script for the auto-click solving path.
type Position struct {
	CenterX float64 `json:"centerX"`
	CenterY float64 `json:"centerY"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}

// Params carries the render() call arguments the detector intercepted,
// present only for standalone widgets (not checkbox, iframe, or
// challenge-page records).
type Params struct {
	SiteKey      string `json:"sitekey"`
	PageURL      string `json:"pageurl"`
	Action       string `json:"action,omitempty"`
	CData        string `json:"cData,omitempty"`
	ChlPageData  string `json:"chlPageData,omitempty"`
}

// Detection is the TurnstileDetection entity from the data model.
type Detection struct {
	Type     DetectionType `json:"type"`
	Params   *Params       `json:"params,omitempty"`
	Position *Position     `json:"position,omitempty"`
	RayID    string        `json:"rayId,omitempty"`
	Solved   bool          `json:"-"`
	Token    string        `json:"-"`
}

// DetectorScript is registered as a new-document script on every page a
// caller opts into Turnstile detection for. It:
//  1. Intercepts any future window.turnstile.render(container, params),
//     capturing sitekey/pageurl/action/cData/chlPageData and the
//     author-supplied callback, returning a dummy widget id without
//     actually rendering.
//  2. Polls until window.turnstile appears, then installs the
//     interception.
//  3. Scans the DOM, and future mutations, for challenge-page markers
//     (_cf_chl_opt, a Ray-ID element) and widget surfaces (an iframe
//     whose src contains challenges.cloudflare.com, elements with
//     "turnstile" in id/class, [data-sitekey]).
//  4. Emits a structured record on window._cdp_turnstile and a console
//     log line "CDP-TURNSTILE-DETECTED:<json>" for each detection.
const DetectorScript = `(() => {
	if (window.__cdp_turnstile_installed__) return;
	window.__cdp_turnstile_installed__ = true;

	function emit(record) {
		window._cdp_turnstile = record;
		console.log('CDP-TURNSTILE-DETECTED:' + JSON.stringify(record));
	}

	function checkForTurnstilePage() {
		if (window._cf_chl_opt) {
			const rayEl = document.querySelector('[class*="ray-id"]');
			emit({ type: 'challenge_page', rayId: rayEl ? rayEl.textContent.trim() : undefined });
			return true;
		}
		return false;
	}

	function widgetPosition(el) {
		const r = el.getBoundingClientRect();
		return { centerX: r.left + r.width / 2, centerY: r.top + r.height / 2, width: r.width, height: r.height };
	}

	function scanForWidgets() {
		const iframe = document.querySelector('iframe[src*="challenges.cloudflare.com"]');
		if (iframe) {
			emit({ type: 'iframe', position: widgetPosition(iframe) });
			return;
		}
		const byClass = document.querySelector('[id*="turnstile"], [class*="turnstile"], [data-sitekey]');
		if (byClass) {
			emit({ type: 'checkbox', position: widgetPosition(byClass) });
		}
	}

	function interceptTurnstile() {
		if (!window.turnstile || window.turnstile.__cdp_patched__) return;
		const orig = window.turnstile.render;
		window.turnstile.render = function(container, params) {
			window._cdp_turnstile_callback = params && params.callback;
			const record = {
				type: 'standalone',
				params: {
					sitekey: params && params.sitekey,
					pageurl: location.href,
					action: params && params.action,
					cData: params && params.cData,
					chlPageData: params && params.chlPageData,
				},
			};
			const el = typeof container === 'string' ? document.querySelector(container) : container;
			if (el) record.position = widgetPosition(el);
			emit(record);
			console.log('CDP-TURNSTILE-INTERCEPTED');
			return '_turnstile_dummy_widget_id';
		};
		const origGetResponse = window.turnstile.getResponse;
		window.turnstile.getResponse = function(id) {
			if (window._cdp_turnstile && window._cdp_turnstile.solved && window._cdp_turnstile.token) {
				return window._cdp_turnstile.token;
			}
			return origGetResponse ? origGetResponse.call(window.turnstile, id) : undefined;
		};
		window.turnstile.__cdp_patched__ = true;
	}

	const poll = setInterval(() => {
		interceptTurnstile();
		if (!checkForTurnstilePage()) scanForWidgets();
	}, 50);

	new MutationObserver(() => {
		if (!checkForTurnstilePage()) scanForWidgets();
	}).observe(document.documentElement || document, { childList: true, subtree: true });

	checkForTurnstilePage();
	scanForWidgets();
})();`
