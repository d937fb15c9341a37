package stealth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDimKeyFormatsWidthHeight(t *testing.T) {
	require.Equal(t, "1920x1080", dimKey(1920, 1080))
	require.Equal(t, "800x600", dimKey(800, 600))
}

func TestDeviceMetricsOverrideUsesKnownPresetScale(t *testing.T) {
	params := deviceMetricsOverride(1920, 1080)
	require.Equal(t, int64(1920), params.Width)
	require.Equal(t, int64(1080), params.Height)
	require.Equal(t, float64(1), params.DeviceScaleFactor)
	require.False(t, params.Mobile)
}

func TestDeviceMetricsOverrideDefaultsScaleForUnknownSize(t *testing.T) {
	params := deviceMetricsOverride(1234, 987)
	require.Equal(t, float64(1), params.DeviceScaleFactor)
}
