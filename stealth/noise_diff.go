package stealth

import (
	"image"

	"github.com/orisano/pixelmatch"
)

// CanvasNoiseThreshold is the per-pixel match sensitivity used to compare
// two canvas renders captured via the browser's screenshot path: looser
// than a pixel-perfect diff (to tolerate anti-aliasing), tight enough that
// the canvas_noise patch's injected jitter registers as a real difference.
const CanvasNoiseThreshold = 0.1

// CompareCanvasRenders counts differing pixels between two canvas/screenshot
// captures, used by tests and manual verification to confirm the
// canvas_noise patch (see patches.go) renders deterministically for a
// repeated capture within one session and visibly differently across two
// sessions with distinct seeds.
func CompareCanvasRenders(a, b image.Image) (int, error) {
	return pixelmatch.MatchPixel(a, b, pixelmatch.Threshold(CanvasNoiseThreshold))
}
