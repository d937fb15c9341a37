package cdpbrowser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pjaol/cdp-browser/turnstile"
)

func TestWaitForSelectorRejectsInvalidSyntaxBeforeAnyCommand(t *testing.T) {
	p := &PageSession{}

	_, err := p.WaitForSelector(context.Background(), "div[", time.Second)
	require.ErrorIs(t, err, ErrSelectorSyntax)
}

func TestWaitForEventDelegatesToEmitter(t *testing.T) {
	p := &PageSession{emitter: NewEmitter(nil)}

	go func() {
		time.Sleep(10 * time.Millisecond)
		p.emitter.Emit("ready", []byte("go"))
	}()

	params, err := p.WaitForEvent(context.Background(), "ready", time.Second)
	require.NoError(t, err)
	require.Equal(t, "go", string(params))
}

func TestGetTurnstileDetectionDefaultsToZeroValue(t *testing.T) {
	p := &PageSession{}
	det := p.getTurnstileDetection()
	require.Equal(t, "", string(det.Type))
}

func TestSetAndGetTurnstileDetectionRoundTrips(t *testing.T) {
	p := &PageSession{}
	want := turnstile.Detection{Type: turnstile.TypeCheckbox, RayID: "abc"}
	p.setTurnstileDetection(want)

	got := p.getTurnstileDetection()
	require.Equal(t, want.Type, got.Type)
	require.Equal(t, want.RayID, got.RayID)
}
