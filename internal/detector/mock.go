package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Synthetic hand geometry, in normalized image coordinates.
const (
	palmY      = 0.68
	extendedY  = 0.35
	curledY    = 0.70
	thumbIPX   = 0.62
	thumbReach = 0.06
)

// fingerColumns holds the X position of each finger column, index to pinky.
var fingerColumns = [4]float64{0.56, 0.50, 0.45, 0.40}

// SyntheticHand builds a right hand, seen in a mirrored selfie view, whose
// digits are extended or curled as given. The order is thumb, index,
// middle, ring, pinky.
//
// An extended thumb points toward smaller X than its IP joint. An extended
// finger has its tip above (smaller Y than) its PIP joint.
func SyntheticHand(extended [5]bool) HandLandmarks {
	h := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	h.Points[Wrist] = Point3D{X: 0.5, Y: 0.8}

	h.Points[ThumbCMC] = Point3D{X: 0.58, Y: 0.76}
	h.Points[ThumbMCP] = Point3D{X: 0.61, Y: 0.72}
	h.Points[ThumbIP] = Point3D{X: thumbIPX, Y: 0.68}
	if extended[0] {
		h.Points[ThumbTip] = Point3D{X: thumbIPX - thumbReach, Y: 0.64}
	} else {
		h.Points[ThumbTip] = Point3D{X: thumbIPX + thumbReach, Y: 0.70}
	}

	for f := 0; f < 4; f++ {
		mcp := IndexMCP + f*4
		x := fingerColumns[f]

		h.Points[mcp] = Point3D{X: x, Y: palmY}
		if extended[f+1] {
			h.Points[mcp+1] = Point3D{X: x, Y: 0.55}
			h.Points[mcp+2] = Point3D{X: x, Y: 0.45}
			h.Points[mcp+3] = Point3D{X: x, Y: extendedY}
		} else {
			h.Points[mcp+1] = Point3D{X: x, Y: 0.62, Z: -0.05}
			h.Points[mcp+2] = Point3D{X: x - 0.02, Y: 0.66, Z: -0.04}
			h.Points[mcp+3] = Point3D{X: x - 0.03, Y: curledY, Z: -0.02}
		}
	}

	return h
}

// OpenPalmLandmarks returns a hand with every digit extended.
func OpenPalmLandmarks() HandLandmarks {
	return SyntheticHand([5]bool{true, true, true, true, true})
}

// FistLandmarks returns a hand with every digit curled.
func FistLandmarks() HandLandmarks {
	return SyntheticHand([5]bool{})
}

// PeaceLandmarks returns a hand with only index and middle extended.
func PeaceLandmarks() HandLandmarks {
	return SyntheticHand([5]bool{false, true, true, false, false})
}

// RingPinkyLandmarks returns a hand with only ring and pinky extended.
func RingPinkyLandmarks() HandLandmarks {
	return SyntheticHand([5]bool{false, false, false, true, true})
}

// PinkyLandmarks returns a hand with only the pinky extended.
func PinkyLandmarks() HandLandmarks {
	return SyntheticHand([5]bool{false, false, false, false, true})
}

// FourFingersLandmarks returns a hand with everything but the pinky extended.
func FourFingersLandmarks() HandLandmarks {
	return SyntheticHand([5]bool{true, true, true, true, false})
}
