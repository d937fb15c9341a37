package turnstile

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseConsoleLineDetected(t *testing.T) {
	line := `CDP-TURNSTILE-DETECTED:{"type":"checkbox","position":{"centerX":100,"centerY":200,"width":40,"height":40}}`
	sig := ParseConsoleLine(line)

	require.Equal(t, SignalDetected, sig.Kind)
	require.Equal(t, TypeCheckbox, sig.Detection.Type)
	require.NotNil(t, sig.Detection.Position)
	require.Equal(t, 100.0, sig.Detection.Position.CenterX)
	require.Equal(t, 200.0, sig.Detection.Position.CenterY)
}

func TestParseConsoleLineIntercepted(t *testing.T) {
	sig := ParseConsoleLine("CDP-TURNSTILE-INTERCEPTED")
	require.Equal(t, SignalIntercepted, sig.Kind)
}

func TestParseConsoleLineSolved(t *testing.T) {
	sig := ParseConsoleLine("CDP-TURNSTILE-SOLVED:0.abc123token")
	require.Equal(t, SignalSolved, sig.Kind)
	require.Equal(t, "0.abc123token", sig.Token)
}

func TestParseConsoleLineIgnoresUnrelatedLines(t *testing.T) {
	sig := ParseConsoleLine("some unrelated author log line")
	require.Equal(t, SignalNone, sig.Kind)
}

func TestParseConsoleLineMalformedDetectedJSONIsIgnored(t *testing.T) {
	sig := ParseConsoleLine("CDP-TURNSTILE-DETECTED:{not json")
	require.Equal(t, SignalNone, sig.Kind)
}

func TestParseConsoleLineDetectedChallengePageWithRayID(t *testing.T) {
	line := `CDP-TURNSTILE-DETECTED:{"type":"challenge_page","rayId":"abc123"}`
	sig := ParseConsoleLine(line)

	require.Equal(t, SignalDetected, sig.Kind)
	require.Equal(t, TypeChallengePage, sig.Detection.Type)
	require.Equal(t, "abc123", sig.Detection.RayID)
	require.Nil(t, sig.Detection.Position)
}
