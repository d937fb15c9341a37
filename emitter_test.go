package cdpbrowser

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEmitterOnDeliversInOrder(t *testing.T) {
	e := NewEmitter(nil)

	var mu sync.Mutex
	var got []int

	e.On("x", func(params []byte) {
		mu.Lock()
		got = append(got, int(params[0]))
		mu.Unlock()
	})

	for i := 0; i < 5; i++ {
		e.Emit("x", []byte{byte(i)})
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestEmitterOnceFiresOnlyOnce(t *testing.T) {
	e := NewEmitter(nil)

	n := 0
	e.Once("x", func(params []byte) { n++ })

	e.Emit("x", nil)
	e.Emit("x", nil)
	e.Emit("x", nil)

	require.Equal(t, 1, n)
}

func TestEmitterCancelStopsDelivery(t *testing.T) {
	e := NewEmitter(nil)

	n := 0
	cancel := e.On("x", func(params []byte) { n++ })
	e.Emit("x", nil)
	cancel()
	e.Emit("x", nil)

	require.Equal(t, 1, n)

	// cancel is idempotent
	require.NotPanics(t, func() { cancel() })
}

func TestEmitterWaitForReceivesEmission(t *testing.T) {
	e := NewEmitter(nil)

	done := make(chan []byte, 1)
	go func() {
		params, err := e.WaitFor(context.Background(), "ready", time.Second)
		require.NoError(t, err)
		done <- params
	}()

	time.Sleep(10 * time.Millisecond)
	e.Emit("ready", []byte("payload"))

	select {
	case params := <-done:
		require.Equal(t, "payload", string(params))
	case <-time.After(time.Second):
		t.Fatal("WaitFor did not return")
	}
}

func TestEmitterWaitForTimesOut(t *testing.T) {
	e := NewEmitter(nil)

	_, err := e.WaitFor(context.Background(), "never", 20*time.Millisecond)
	require.Error(t, err)

	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
}

func TestEmitterWaitForRespectsContextCancel(t *testing.T) {
	e := NewEmitter(nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := e.WaitFor(ctx, "never", time.Second)
	require.ErrorIs(t, err, context.Canceled)
}

func TestEmitterListenerPanicDoesNotAffectOthers(t *testing.T) {
	e := NewEmitter(func(string, ...interface{}) {})

	n := 0
	e.On("x", func(params []byte) { panic("boom") })
	e.On("x", func(params []byte) { n++ })

	require.NotPanics(t, func() { e.Emit("x", nil) })
	require.Equal(t, 1, n)
}

func TestEmitterClearResetsListenersAndAwaiters(t *testing.T) {
	e := NewEmitter(nil)

	n := 0
	e.On("x", func(params []byte) { n++ })
	e.Emit("x", nil)
	require.Equal(t, 1, n)

	errCh := make(chan error, 1)
	go func() {
		_, err := e.WaitFor(context.Background(), "y", time.Second)
		errCh <- err
	}()
	time.Sleep(10 * time.Millisecond)

	require.NotPanics(t, func() { e.Clear() })

	e.Emit("x", nil)
	require.Equal(t, 1, n, "listener removed by Clear must not fire again")

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, ErrClosed)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("awaiter was not cancelled by Clear")
	}
}
