package stealth

import (
	"strconv"

	"github.com/chromedp/cdproto/emulation"
)

// viewport is a desktop window-size + device-scale preset, adapted from
// the teacher's device.Device table but trimmed to the desktop axis only
// — the spec's StealthProfile has no mobile/touch dimension, so the
// landscape/mobile/touch options that table also carried are dropped.
type viewport struct {
	Width, Height int64
	Scale         float64
}

// viewportPresets names a handful of common desktop viewport sizes a
// StealthProfile can select from.
var viewportPresets = map[string]viewport{
	"1920x1080": {Width: 1920, Height: 1080, Scale: 1},
	"1366x768":  {Width: 1366, Height: 768, Scale: 1},
	"1536x864":  {Width: 1536, Height: 864, Scale: 1},
	"1440x900":  {Width: 1440, Height: 900, Scale: 1},
}

// deviceMetricsOverride builds the Emulation.setDeviceMetricsOverride
// params for a window size, matching the teacher's emulateScale/
// emulatePortrait option-closures collapsed into one non-mobile call.
func deviceMetricsOverride(w, h int64) *emulation.SetDeviceMetricsOverrideParams {
	scale := 1.0
	if v, ok := viewportPresets[dimKey(w, h)]; ok {
		scale = v.Scale
	}
	return emulation.SetDeviceMetricsOverrideParams{
		Width:             w,
		Height:            h,
		DeviceScaleFactor: scale,
		Mobile:            false,
	}.WithScreenOrientation(&emulation.ScreenOrientation{
		Type:  emulation.OrientationTypeLandscapePrimary,
		Angle: 0,
	})
}

func dimKey(w, h int64) string {
	return strconv.FormatInt(w, 10) + "x" + strconv.FormatInt(h, 10)
}
