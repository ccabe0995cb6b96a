package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/airbot/internal/detector"
	"github.com/ayusman/airbot/internal/dispatch"
	"github.com/ayusman/airbot/internal/gesture"
)

// FrameResult is what one frame produced.
type FrameResult struct {
	At time.Time `json:"at"`

	// Detected is false when the detector found no hand; nothing past
	// detection ran in that case.
	Detected bool                `json:"detected"`
	Fingers  gesture.FingerState `json:"fingers"`
	Gesture  gesture.Gesture     `json:"gesture"`
	Dispatch dispatch.Result     `json:"dispatch"`

	// Err is a detector failure. The frame was skipped.
	Err error `json:"-"`
}

// loop reads frames at the configured rate until ctx is done.
//
// Pipeline per frame:
// 1. Read a frame, counting consecutive read failures
// 2. Hand the frame to live stream viewers
// 3. Detect hands
// 4. Extract finger state from the first hand and classify it
// 5. Dispatch the gesture through the debouncer
func (a *App) loop(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(a.config.FPS))
	defer ticker.Stop()

	camera := a.Camera()
	failures := 0

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		// Skip processing if detection is disabled
		if !a.IsEnabled() {
			continue
		}

		frame, err := camera.ReadFrame()
		if err != nil {
			failures++
			log.Printf("Error reading frame (%d/%d): %v", failures, a.config.MaxFrameFailures, err)
			if failures >= a.config.MaxFrameFailures {
				return fmt.Errorf("%w: %v", ErrTooManyFrameFailures, err)
			}
			continue
		}
		failures = 0

		a.frames.Publish(frame)
		a.ProcessFrame(ctx, frame)
		frame.Close()
	}
}

// ProcessFrame runs detection on frame and feeds the result to ProcessHands.
// A detector error skips the frame and leaves the debounce state untouched.
func (a *App) ProcessFrame(ctx context.Context, frame *gocv.Mat) FrameResult {
	hands, err := a.Detector().Detect(frame)
	if err != nil {
		log.Printf("Error detecting hands: %v", err)
		res := FrameResult{At: a.clock()(), Err: err}
		a.record(res)
		return res
	}
	return a.ProcessHands(ctx, hands, a.clock()())
}

// ProcessHands classifies the first hand and dispatches its gesture at now.
// Further hands are ignored. An empty slice dispatches nothing.
func (a *App) ProcessHands(ctx context.Context, hands []detector.HandLandmarks, now time.Time) FrameResult {
	res := FrameResult{At: now}
	if len(hands) == 0 {
		a.record(res)
		return res
	}

	res.Detected = true
	res.Fingers = a.extractor.ExtractHand(&hands[0])
	res.Gesture = gesture.Classify(res.Fingers)
	res.Dispatch = a.dispatcher.Dispatch(ctx, res.Gesture, now)

	a.record(res)
	return res
}

func (a *App) record(res FrameResult) {
	a.mu.Lock()
	a.last = res
	a.mu.Unlock()
}

func (a *App) clock() func() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.now
}
