package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/airbot/internal/capture"
	"github.com/ayusman/airbot/internal/detector"
	"github.com/ayusman/airbot/internal/dispatch"
	"github.com/ayusman/airbot/internal/gesture"
)

func testFrames(t *testing.T) []*gocv.Mat {
	t.Helper()
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { frame.Close() })
	return []*gocv.Mat{&frame}
}

func TestApp_Run_TooManyFrameFailures(t *testing.T) {
	a, emitter, _ := newTestApp(t, Config{FPS: 200, MaxFrameFailures: 3})
	cam := capture.NewMockCamera(nil, false)
	a.SetCamera(cam)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := a.Run(ctx)
	assert.ErrorIs(t, err, ErrTooManyFrameFailures)
	assert.Equal(t, 3, cam.Reads())
	assert.False(t, cam.IsOpen(), "camera must be released when the session fails")
	assert.False(t, a.Running())
	assert.Empty(t, emitter.Actions())
}

func TestApp_Run_DispatchesFromFrames(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	a, emitter, det := newTestApp(t, Config{FPS: 100})
	cam := capture.NewMockCamera(testFrames(t), true)
	a.SetCamera(cam)
	det.SetHands([]detector.HandLandmarks{detector.PinkyLandmarks()})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.OnDispatch(func(dispatch.Result) { cancel() })

	require.NoError(t, a.Run(ctx))
	require.NotErrorIs(t, ctx.Err(), context.DeadlineExceeded, "no dispatch before timeout")

	assert.Equal(t, []dispatch.Action{dispatch.ActionNext}, emitter.Actions())
	assert.False(t, cam.IsOpen())
	assert.GreaterOrEqual(t, det.Calls(), 1)
}

func TestApp_Run_WhileRunning(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	a, _, _ := newTestApp(t, Config{FPS: 50})
	a.SetCamera(capture.NewMockCamera(testFrames(t), true))

	require.NoError(t, a.Start())
	defer a.Stop()

	err := a.Run(context.Background())
	assert.True(t, errors.Is(err, ErrSessionRunning))
}

func TestApp_StartStop(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	a, _, det := newTestApp(t, Config{FPS: 100, SessionReset: true})
	cam := capture.NewMockCamera(testFrames(t), true)
	a.SetCamera(cam)
	det.SetHands([]detector.HandLandmarks{detector.PeaceLandmarks()})

	require.NoError(t, a.Start())
	require.NoError(t, a.Start(), "second Start is a no-op")
	assert.True(t, a.Running())
	assert.True(t, cam.IsOpen())
	assert.Equal(t, 1, cam.Opens())

	require.Eventually(t, func() bool {
		return a.Dispatcher().Snapshot().LastGesture == gesture.VolumeUp
	}, 5*time.Second, 10*time.Millisecond)

	// Held until the next session.
	next := dispatch.Config{Cooldown: 3 * time.Second, Policy: dispatch.PolicyChangeGated}
	require.NoError(t, a.Configure(next))
	assert.Equal(t, dispatch.DefaultConfig(), a.Dispatcher().Config())
	assert.NotNil(t, a.Status().Pending)

	a.Stop()
	assert.False(t, a.Running())
	assert.False(t, cam.IsOpen())

	det.SetHands(nil)
	require.NoError(t, a.Start())
	defer a.Stop()

	assert.Equal(t, next, a.Dispatcher().Config())
	assert.Equal(t, dispatch.State{}, a.Dispatcher().Snapshot(), "session reset clears debounce state")
	assert.Equal(t, 2, a.Status().Sessions)
}

func TestApp_Start_SessionEndsOnFailures(t *testing.T) {
	a, _, _ := newTestApp(t, Config{FPS: 200, MaxFrameFailures: 2})
	cam := capture.NewMockCamera(nil, false)
	a.SetCamera(cam)

	require.NoError(t, a.Start())
	require.Eventually(t, func() bool { return !a.Running() }, 5*time.Second, 5*time.Millisecond)
	assert.False(t, cam.IsOpen())

	// A fresh session can start after the failed one.
	require.NoError(t, a.Start())
	a.Stop()
	assert.Equal(t, 2, cam.Opens())
}

func TestApp_DisabledSkipsFrames(t *testing.T) {
	a, _, _ := newTestApp(t, Config{FPS: 200, MaxFrameFailures: 1})
	cam := capture.NewMockCamera(nil, false)
	a.SetCamera(cam)
	a.SetEnabled(false)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	assert.NoError(t, a.Run(ctx))
	assert.Equal(t, 0, cam.Reads())
}

func TestFrameFeed(t *testing.T) {
	feed := NewFrameFeed()
	feed.PublishJPEG([]byte("dropped"))

	ch, cancel := feed.Subscribe()
	assert.Equal(t, 1, feed.Subscribers())

	feed.PublishJPEG([]byte("a"))
	feed.PublishJPEG([]byte("b")) // buffer full, dropped
	assert.Equal(t, []byte("a"), <-ch)

	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, feed.Subscribers())
}
