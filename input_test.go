package cdpbrowser

import (
	"testing"

	cdpinput "github.com/chromedp/cdproto/input"
	"github.com/stretchr/testify/require"
)

func TestMouseButtonCDPMapping(t *testing.T) {
	require.Equal(t, cdpinput.Left, ButtonLeft.cdp())
	require.Equal(t, cdpinput.Middle, ButtonMiddle.cdp())
	require.Equal(t, cdpinput.Right, ButtonRight.cdp())
}

func TestMouseButtonUnknownDefaultsToLeft(t *testing.T) {
	require.Equal(t, cdpinput.Left, MouseButton("bogus").cdp())
}

func TestJsStringArrayEscapesAndJoins(t *testing.T) {
	require.Equal(t, `[]`, jsStringArray(nil))
	require.Equal(t, `["a"]`, jsStringArray([]string{"a"}))
	require.Equal(t, `["a","b"]`, jsStringArray([]string{"a", "b"}))
	require.Equal(t, `["say \"hi\""]`, jsStringArray([]string{`say "hi"`}))
}

func TestInputModifierBitsAreDistinct(t *testing.T) {
	all := ModAlt | ModCtrl | ModMeta | ModShift
	require.Equal(t, InputModifiers(1|2|4|8), all)
}
