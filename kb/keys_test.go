package kb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeysTableCoversCommonNonPrintableKeys(t *testing.T) {
	for _, name := range []string{"Enter", "Tab", "Escape", "Backspace", "Delete", "ArrowUp", "ArrowDown", "ArrowLeft", "ArrowRight", "Home", "End", "PageUp", "PageDown", "Space"} {
		entry, ok := Keys[name]
		require.Truef(t, ok, "missing key %q", name)
		require.NotZero(t, entry.KeyCode)
		require.NotEmpty(t, entry.Key)
		require.NotEmpty(t, entry.Code)
	}
}

func TestKeysEnterProducesCarriageReturn(t *testing.T) {
	require.Equal(t, "\r", Keys["Enter"].Text)
}

func TestModifierForKnownModifiers(t *testing.T) {
	tests := []struct {
		name string
		want int64
	}{
		{"Alt", 1},
		{"Control", 2},
		{"Meta", 4},
		{"Shift", 8},
	}
	for _, tt := range tests {
		v, ok := ModifierFor(tt.name)
		require.True(t, ok)
		require.Equal(t, tt.want, v)
	}
}

func TestModifierForUnknownNameReportsFalse(t *testing.T) {
	_, ok := ModifierFor("NotAModifier")
	require.False(t, ok)
}

func TestModifierBitsAreDistinctPowersOfTwo(t *testing.T) {
	seen := int64(0)
	for _, name := range []string{"Alt", "Control", "Meta", "Shift"} {
		v, _ := ModifierFor(name)
		require.Zero(t, seen&v, "modifier %q overlaps with a previous bit", name)
		seen |= v
	}
}
