package stealth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterDefaultsProducesAcyclicOrderForEveryLevel(t *testing.T) {
	for _, level := range []Level{LevelMinimum, LevelBalanced, LevelMaximum} {
		r := NewRegistry()
		RegisterDefaults(r)

		ordered, err := r.OrderedPatches(level)
		require.NoErrorf(t, err, "level %s", level)
		require.NotEmpty(t, ordered)
	}
}

func TestRegisterDefaultsDependenciesPrecedeDependents(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	ordered, err := r.OrderedPatches(LevelMaximum)
	require.NoError(t, err)

	index := make(map[string]int, len(ordered))
	for i, p := range ordered {
		index[p.Name] = i
	}
	for _, p := range ordered {
		for _, dep := range p.Dependencies {
			depIdx, ok := index[dep]
			if !ok {
				continue // dependency outside the selected set is allowed to be skipped
			}
			require.Lessf(t, depIdx, index[p.Name], "%s must precede dependent %s", dep, p.Name)
		}
	}
}

func TestRegisterDefaultsCriticalPatchesMatchSpecExpressions(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	webdriver, ok := r.get("webdriver_basic")
	require.True(t, ok)
	require.Equal(t, "navigator.webdriver === false", webdriver.Critical)

	chromeRuntime, ok := r.get("chrome_runtime_basic")
	require.True(t, ok)
	require.Contains(t, chromeRuntime.Critical, "window.chrome")

	plugins, ok := r.get("plugins")
	require.True(t, ok)
	require.Equal(t, "navigator.plugins.length > 0", plugins.Critical)
}

func TestRegisterDefaultsMinimumLevelOmitsCanvasNoise(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	ordered, err := r.OrderedPatches(LevelMinimum)
	require.NoError(t, err)

	for _, p := range ordered {
		require.NotEqual(t, "canvas_noise", p.Name)
	}
}
