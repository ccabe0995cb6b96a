package gesture

import "fmt"

// Gesture is a recognized media-control pose. The zero value is None.
type Gesture int

const (
	None Gesture = iota
	PlayPause
	VolumeUp
	VolumeDown
	NextVideo
	PreviousVideo
)

// All lists every gesture other than None.
var All = []Gesture{PlayPause, VolumeUp, VolumeDown, NextVideo, PreviousVideo}

var gestureNames = map[Gesture]string{
	None:          "None",
	PlayPause:     "Play/Pause",
	VolumeUp:      "Volume Up",
	VolumeDown:    "Volume Down",
	NextVideo:     "Next Video",
	PreviousVideo: "Previous Video",
}

var gestureSlugs = map[Gesture]string{
	None:          "none",
	PlayPause:     "play-pause",
	VolumeUp:      "volume-up",
	VolumeDown:    "volume-down",
	NextVideo:     "next-video",
	PreviousVideo: "previous-video",
}

// String returns the display name used in the action log.
func (g Gesture) String() string {
	if name, ok := gestureNames[g]; ok {
		return name
	}
	return fmt.Sprintf("Gesture(%d)", int(g))
}

// Slug returns the machine-readable name.
func (g Gesture) Slug() string {
	if slug, ok := gestureSlugs[g]; ok {
		return slug
	}
	return fmt.Sprintf("gesture-%d", int(g))
}

// MarshalText implements encoding.TextMarshaler.
func (g Gesture) MarshalText() ([]byte, error) {
	return []byte(g.Slug()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Gesture) UnmarshalText(text []byte) error {
	parsed, err := ParseGesture(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// ParseGesture accepts either the slug or the display name.
func ParseGesture(s string) (Gesture, error) {
	for g, slug := range gestureSlugs {
		if s == slug || s == gestureNames[g] {
			return g, nil
		}
	}
	return None, fmt.Errorf("unknown gesture %q", s)
}

// Pattern pairs a finger state with the gesture it triggers.
type Pattern struct {
	Fingers     FingerState
	Gesture     Gesture
	Description string
}

// Patterns is the complete recognition table, in the order it is shown to
// users. Open palm and closed fist both toggle playback.
var Patterns = []Pattern{
	{FingerState{true, true, true, true, true}, PlayPause, "All fingers up"},
	{FingerState{false, false, false, false, false}, PlayPause, "All fingers down"},
	{FingerState{false, true, true, false, false}, VolumeUp, "Index and middle up"},
	{FingerState{false, false, false, true, true}, VolumeDown, "Ring and pinky up"},
	{FingerState{false, false, false, false, true}, NextVideo, "Only pinky up"},
	{FingerState{true, true, true, true, false}, PreviousVideo, "All fingers up except pinky"},
}

var lookup = func() map[FingerState]Gesture {
	m := make(map[FingerState]Gesture, len(Patterns))
	for _, p := range Patterns {
		m[p.Fingers] = p.Gesture
	}
	return m
}()

// Classify maps a finger state to its gesture, or None when no pattern matches.
func Classify(s FingerState) Gesture {
	return lookup[s]
}
