// Package app runs the gesture control pipeline: frames in, key presses out.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ayusman/airbot/internal/capture"
	"github.com/ayusman/airbot/internal/detector"
	"github.com/ayusman/airbot/internal/dispatch"
	"github.com/ayusman/airbot/internal/gesture"
)

// DefaultMaxFrameFailures is how many consecutive unreadable frames end a session.
const DefaultMaxFrameFailures = 30

var (
	// ErrTooManyFrameFailures ends a session whose frame source keeps failing.
	ErrTooManyFrameFailures = errors.New("too many consecutive frame failures")
	// ErrSessionRunning is returned by Run while another session is active.
	ErrSessionRunning = errors.New("session already running")
	// ErrInvalidConfig is returned by Configure for unusable settings.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config holds configuration options for the application.
type Config struct {
	// Emitter receives accepted actions. Nil drops them.
	Emitter dispatch.Emitter

	Dispatch    dispatch.Config
	Orientation gesture.Orientation

	// VideoFile, when set, replaces the camera device as frame source.
	CameraID  int
	VideoFile string

	FPS              int
	MaxFrameFailures int

	// SessionReset clears the debounce state at every session start.
	SessionReset bool
}

// App is the main application that orchestrates gesture detection and action dispatch.
type App struct {
	config     Config
	camera     capture.Camera
	detector   detector.Detector
	extractor  gesture.Extractor
	dispatcher *dispatch.Dispatcher
	frames     *FrameFeed
	now        func() time.Time

	mu       sync.RWMutex
	enabled  bool
	pending  *dispatch.Config
	cancel   context.CancelFunc
	done     chan struct{}
	last     FrameResult
	sessions int
}

// New creates a new App instance with the given configuration.
func New(config Config) (*App, error) {
	rules, err := gesture.RulesFor(config.Orientation)
	if err != nil {
		return nil, err
	}
	if config.Orientation == "" {
		config.Orientation = gesture.OrientationMirrored
	}
	if config.Dispatch.Cooldown <= 0 {
		config.Dispatch.Cooldown = dispatch.DefaultCooldown
	}
	if config.FPS <= 0 {
		config.FPS = capture.DefaultFPS
	}
	if config.MaxFrameFailures <= 0 {
		config.MaxFrameFailures = DefaultMaxFrameFailures
	}

	a := &App{
		config:     config,
		extractor:  gesture.NewExtractor(rules),
		dispatcher: dispatch.NewDispatcher(config.Dispatch, config.Emitter),
		frames:     NewFrameFeed(),
		now:        time.Now,
		enabled:    true,
	}

	if config.VideoFile != "" {
		a.camera = capture.NewVideoFile(config.VideoFile)
	} else {
		a.camera = capture.NewCamera(config.CameraID)
	}
	a.camera.SetFPS(config.FPS)

	// Try MediaPipe first, fall back to mock detector
	if mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig()); err == nil {
		a.detector = mp
		log.Println("Using MediaPipe hand detection")
	} else {
		log.Printf("MediaPipe not available (%v), using mock detector", err)
		a.detector = detector.NewMockDetector()
	}

	return a, nil
}

// SetEnabled enables or disables gesture detection. A disabled app keeps
// its session but skips frames.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether gesture detection is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector sets the hand detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// SetCamera replaces the frame source. It takes effect at the next session.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// SetClock replaces the time source used to stamp frames.
func (a *App) SetClock(now func() time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.now = now
}

// OnDispatch registers fn to be called after every accepted dispatch.
func (a *App) OnDispatch(fn func(dispatch.Result)) {
	a.dispatcher.OnDispatch(fn)
}

// Configure validates cfg and applies it. While a session runs the change
// is held until the next session starts.
func (a *App) Configure(cfg dispatch.Config) error {
	if cfg.Cooldown <= 0 {
		return fmt.Errorf("%w: cooldown must be positive", ErrInvalidConfig)
	}
	policy, err := dispatch.ParsePolicy(string(cfg.Policy))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.Policy = policy

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.pending = &cfg
		return nil
	}
	a.pending = nil
	a.dispatcher.Reconfigure(cfg)
	return nil
}

// Start opens the frame source and runs a session in the background.
// Starting a running app is a no-op.
func (a *App) Start() error {
	ctx, done, err := a.openSession(context.Background())
	if errors.Is(err, ErrSessionRunning) {
		return nil
	}
	if err != nil {
		return err
	}

	go func() {
		if err := a.runSession(ctx, done); err != nil {
			log.Printf("Session ended: %v", err)
		}
	}()
	return nil
}

// Stop ends the running session and waits until its frame source is released.
func (a *App) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Run runs one session in the calling goroutine until ctx is cancelled or
// the frame source fails MaxFrameFailures times in a row.
func (a *App) Run(ctx context.Context) error {
	sessionCtx, done, err := a.openSession(ctx)
	if err != nil {
		return err
	}
	return a.runSession(sessionCtx, done)
}

// Close stops any session and releases the detector.
func (a *App) Close() error {
	a.Stop()
	if d := a.Detector(); d != nil {
		return d.Close()
	}
	return nil
}

// Running reports whether a session is active.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cancel != nil
}

func (a *App) openSession(parent context.Context) (context.Context, chan struct{}, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil {
		return nil, nil, ErrSessionRunning
	}
	if err := a.camera.Open(); err != nil {
		return nil, nil, fmt.Errorf("open camera: %w", err)
	}

	if a.pending != nil {
		a.dispatcher.Reconfigure(*a.pending)
		a.pending = nil
	}
	if a.config.SessionReset {
		a.dispatcher.Reset()
	}
	a.last = FrameResult{}
	a.sessions++

	ctx, cancel := context.WithCancel(parent)
	a.cancel, a.done = cancel, make(chan struct{})

	cfg := a.dispatcher.Config()
	log.Printf("Session %d started (cooldown %s, policy %s)", a.sessions, cfg.Cooldown, cfg.Policy)
	return ctx, a.done, nil
}

func (a *App) runSession(ctx context.Context, done chan struct{}) error {
	defer close(done)
	defer a.endSession(done)
	defer a.closeCamera()
	return a.loop(ctx)
}

func (a *App) endSession(done chan struct{}) {
	a.mu.Lock()
	if a.done == done {
		a.cancel()
		a.cancel, a.done = nil, nil
	}
	a.mu.Unlock()
	log.Println("Session stopped")
}

func (a *App) closeCamera() {
	if err := a.Camera().Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
}

// Camera returns the frame source.
func (a *App) Camera() capture.Camera {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// Dispatcher returns the gesture dispatcher.
func (a *App) Dispatcher() *dispatch.Dispatcher {
	return a.dispatcher
}

// Frames returns the live frame feed.
func (a *App) Frames() *FrameFeed {
	return a.frames
}

// Status is a point-in-time view of the app for the dashboard and tray.
type Status struct {
	Running     bool                `json:"running"`
	Enabled     bool                `json:"enabled"`
	Sessions    int                 `json:"sessions"`
	Orientation gesture.Orientation `json:"orientation"`

	HandDetected   bool                `json:"hand_detected"`
	Fingers        gesture.FingerState `json:"fingers"`
	CurrentGesture gesture.Gesture     `json:"current_gesture"`

	LastGesture    gesture.Gesture `json:"last_gesture"`
	LastActionTime *time.Time      `json:"last_action_time,omitempty"`

	Cooldown string          `json:"cooldown"`
	Policy   dispatch.Policy `json:"policy"`

	// Pending is a configuration waiting for the next session.
	Pending *dispatch.Config `json:"pending,omitempty"`
}

// Status returns the current status.
func (a *App) Status() Status {
	a.mu.RLock()
	st := Status{
		Running:        a.cancel != nil,
		Enabled:        a.enabled,
		Sessions:       a.sessions,
		Orientation:    a.config.Orientation,
		HandDetected:   a.last.Detected,
		Fingers:        a.last.Fingers,
		CurrentGesture: a.last.Gesture,
	}
	if a.pending != nil {
		p := *a.pending
		st.Pending = &p
	}
	a.mu.RUnlock()

	cfg := a.dispatcher.Config()
	st.Cooldown = cfg.Cooldown.String()
	st.Policy = cfg.Policy

	state := a.dispatcher.Snapshot()
	st.LastGesture = state.LastGesture
	if state.LastGesture != gesture.None {
		t := state.LastTime
		st.LastActionTime = &t
	}
	return st
}
