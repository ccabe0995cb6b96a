// Package gesture turns hand landmarks into finger states and finger states
// into media-control gestures.
package gesture

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ayusman/airbot/internal/detector"
)

// ErrMalformedLandmarks is returned when extraction is attempted on an
// incomplete landmark set.
var ErrMalformedLandmarks = detector.ErrMalformedLandmarks

// Digit indexes a FingerState.
type Digit int

const (
	Thumb Digit = iota
	Index
	Middle
	Ring
	Pinky
	NumDigits
)

var digitNames = [NumDigits]string{"thumb", "index", "middle", "ring", "pinky"}

func (d Digit) String() string {
	if d < 0 || d >= NumDigits {
		return fmt.Sprintf("Digit(%d)", int(d))
	}
	return digitNames[d]
}

// FingerState records which digits are extended, thumb first.
type FingerState [NumDigits]bool

// String renders the state the way it is shown on the debug overlay, e.g. [0,1,1,0,0].
func (s FingerState) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, up := range s {
		if i > 0 {
			b.WriteByte(',')
		}
		if up {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	b.WriteByte(']')
	return b.String()
}

// parseFingerState parses the five-character form "01100" or the overlay
// form "[0,1,1,0,0]".
func parseFingerState(s string) (FingerState, error) {
	var st FingerState
	bits := strings.NewReplacer("[", "", "]", "", ",", "", " ", "").Replace(s)
	if len(bits) != int(NumDigits) {
		return st, fmt.Errorf("finger state %q: want %d digits", s, NumDigits)
	}
	for i, c := range bits {
		switch c {
		case '1':
			st[i] = true
		case '0':
		default:
			return st, fmt.Errorf("finger state %q: invalid digit %q", s, c)
		}
	}
	return st, nil
}

// Axis selects the coordinate a DigitRule compares.
type Axis int

const (
	AxisX Axis = iota
	AxisY
)

// Comparison says which ordering of tip and reference means "extended".
// Both are strict: equal coordinates are never extended.
type Comparison int

const (
	TipLess Comparison = iota
	TipGreater
)

// DigitRule decides whether one digit is extended by comparing its tip
// landmark against a reference landmark on a single axis.
type DigitRule struct {
	Tip  int
	Ref  int
	Axis Axis
	Cmp  Comparison
}

// Extended applies the rule to a complete landmark set.
func (r DigitRule) Extended(points []detector.Point3D) bool {
	tip, ref := points[r.Tip], points[r.Ref]

	a, b := tip.X, ref.X
	if r.Axis == AxisY {
		a, b = tip.Y, ref.Y
	}

	if r.Cmp == TipGreater {
		return a > b
	}
	return a < b
}

// RuleSet holds one rule per digit, in FingerState order.
type RuleSet [NumDigits]DigitRule

// fingerRules are shared by both orientations: a finger is extended when
// its tip is higher on screen than the joint two steps toward the palm.
var fingerRules = [4]DigitRule{
	{Tip: detector.IndexTip, Ref: detector.IndexPIP, Axis: AxisY, Cmp: TipLess},
	{Tip: detector.MiddleTip, Ref: detector.MiddlePIP, Axis: AxisY, Cmp: TipLess},
	{Tip: detector.RingTip, Ref: detector.RingPIP, Axis: AxisY, Cmp: TipLess},
	{Tip: detector.PinkyTip, Ref: detector.PinkyPIP, Axis: AxisY, Cmp: TipLess},
}

func withThumb(thumb DigitRule) RuleSet {
	return RuleSet{thumb, fingerRules[0], fingerRules[1], fingerRules[2], fingerRules[3]}
}

// MirroredRules is the selfie-view convention: the thumb is extended when
// its tip lies left of the IP joint.
//
// The thumb test only holds for one hand facing the camera one way. A left
// hand, or a right hand seen from behind, reads inverted.
var MirroredRules = withThumb(DigitRule{Tip: detector.ThumbTip, Ref: detector.ThumbIP, Axis: AxisX, Cmp: TipLess})

// UnmirroredRules is for a camera feed that is not flipped horizontally.
var UnmirroredRules = withThumb(DigitRule{Tip: detector.ThumbTip, Ref: detector.ThumbIP, Axis: AxisX, Cmp: TipGreater})

// Orientation names a RuleSet for configuration.
type Orientation string

const (
	OrientationMirrored   Orientation = "mirrored"
	OrientationUnmirrored Orientation = "unmirrored"
)

// ErrUnknownOrientation is returned by RulesFor for unrecognized names.
var ErrUnknownOrientation = errors.New("unknown orientation")

// RulesFor returns the RuleSet for an orientation name.
func RulesFor(o Orientation) (RuleSet, error) {
	switch o {
	case OrientationMirrored, "":
		return MirroredRules, nil
	case OrientationUnmirrored:
		return UnmirroredRules, nil
	default:
		return RuleSet{}, fmt.Errorf("%w: %q", ErrUnknownOrientation, string(o))
	}
}

// Extractor derives a FingerState from landmarks. It holds no state
// between calls.
type Extractor struct {
	Rules RuleSet
}

// NewExtractor returns an Extractor using the given rules.
func NewExtractor(rules RuleSet) Extractor {
	return Extractor{Rules: rules}
}

// Extract evaluates every digit rule against points.
func (e Extractor) Extract(points []detector.Point3D) (FingerState, error) {
	var st FingerState
	if len(points) < detector.NumLandmarks {
		return st, fmt.Errorf("%w: got %d points, want %d", ErrMalformedLandmarks, len(points), detector.NumLandmarks)
	}
	for d, rule := range e.Rules {
		st[d] = rule.Extended(points)
	}
	return st, nil
}

// ExtractHand is Extract for a detector hand, which always carries all
// landmarks.
func (e Extractor) ExtractHand(h *detector.HandLandmarks) FingerState {
	st, _ := e.Extract(h.Points[:])
	return st
}
