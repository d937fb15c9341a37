package stealth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryOrderedPatchesRespectsDependencies(t *testing.T) {
	r := NewRegistry()
	r.Register(Patch{Name: "a", Priority: 10})
	r.Register(Patch{Name: "b", Priority: 5, Dependencies: []string{"a"}})
	r.Register(Patch{Name: "h", Priority: 1, Dependencies: []string{"b"}})

	ordered, err := r.OrderedPatches(LevelMaximum)
	require.NoError(t, err)
	require.Len(t, ordered, 3)

	index := make(map[string]int)
	for i, p := range ordered {
		index[p.Name] = i
	}
	require.Less(t, index["a"], index["b"], "a must precede its dependent b")
	require.Less(t, index["b"], index["h"], "b must precede its dependent h")
}

func TestRegistryOrderedPatchesIsDeterministic(t *testing.T) {
	r := NewRegistry()
	r.Register(Patch{Name: "zeta", Priority: 1})
	r.Register(Patch{Name: "alpha", Priority: 1})
	r.Register(Patch{Name: "mu", Priority: 1})

	first, err := r.OrderedPatches(LevelMaximum)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := r.OrderedPatches(LevelMaximum)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestRegistryOrderedPatchesDetectsCycle(t *testing.T) {
	r := NewRegistry()
	r.Register(Patch{Name: "a", Dependencies: []string{"b"}})
	r.Register(Patch{Name: "b", Dependencies: []string{"a"}})

	_, err := r.OrderedPatches(LevelMaximum)
	require.Error(t, err)
	require.ErrorIs(t, err, errPatchCycle)
}

func TestRegistryOrderedPatchesSkipsMissingDependency(t *testing.T) {
	r := NewRegistry()
	r.Register(Patch{Name: "a", Dependencies: []string{"nonexistent"}})

	ordered, err := r.OrderedPatches(LevelMaximum)
	require.NoError(t, err)
	require.Len(t, ordered, 1)
	require.Equal(t, "a", ordered[0].Name)
}

func TestRegistryLevelMinimumSelectsOnlyCorePatches(t *testing.T) {
	r := NewRegistry()
	r.Register(Patch{Name: "webdriver_basic"})
	r.Register(Patch{Name: "chrome_runtime_basic"})
	r.Register(Patch{Name: "user_agent_basic"})
	r.Register(Patch{Name: "canvas_noise"})
	r.Register(Patch{Name: "experimental_font_jitter"})

	ordered, err := r.OrderedPatches(LevelMinimum)
	require.NoError(t, err)

	names := make([]string, len(ordered))
	for i, p := range ordered {
		names[i] = p.Name
	}
	require.ElementsMatch(t, []string{"webdriver_basic", "chrome_runtime_basic", "user_agent_basic"}, names)
}

func TestRegistryLevelBalancedExcludesExperimental(t *testing.T) {
	r := NewRegistry()
	r.Register(Patch{Name: "webdriver_basic"})
	r.Register(Patch{Name: "canvas_noise"})
	r.Register(Patch{Name: "experimental_font_jitter"})

	ordered, err := r.OrderedPatches(LevelBalanced)
	require.NoError(t, err)

	for _, p := range ordered {
		require.NotContains(t, p.Name, "experimental_")
	}
	require.Len(t, ordered, 2)
}

func TestRegistryLevelMaximumSelectsEverything(t *testing.T) {
	r := NewRegistry()
	r.Register(Patch{Name: "webdriver_basic"})
	r.Register(Patch{Name: "experimental_font_jitter"})

	ordered, err := r.OrderedPatches(LevelMaximum)
	require.NoError(t, err)
	require.Len(t, ordered, 2)
}

func TestRegistryRegisterTwiceLastWriteWins(t *testing.T) {
	r := NewRegistry()
	r.Register(Patch{Name: "a", Script: "first"})
	r.Register(Patch{Name: "a", Script: "second"})

	p, ok := r.get("a")
	require.True(t, ok)
	require.Equal(t, "second", p.Script)
}
