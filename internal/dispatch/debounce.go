package dispatch

import (
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/airbot/internal/gesture"
)

// Policy selects how repeated gestures are debounced.
type Policy string

const (
	// PolicyCooldownOnly accepts any gesture once the cooldown has elapsed.
	PolicyCooldownOnly Policy = "cooldown-only"

	// PolicyChangeGated additionally rejects the gesture that was last
	// dispatched until a different gesture has been dispatched.
	PolicyChangeGated Policy = "cooldown-and-change-gated"
)

// ErrUnknownPolicy is returned by ParsePolicy for unrecognized names.
var ErrUnknownPolicy = errors.New("unknown debounce policy")

// ParsePolicy validates a policy name. The empty string selects PolicyCooldownOnly.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyCooldownOnly, "":
		return PolicyCooldownOnly, nil
	case PolicyChangeGated:
		return PolicyChangeGated, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// DefaultCooldown is the minimum gap between two accepted dispatches.
const DefaultCooldown = 500 * time.Millisecond

// Config fixes the debounce behaviour for one session.
type Config struct {
	Cooldown time.Duration `json:"cooldown"`
	Policy   Policy        `json:"policy"`
}

// DefaultConfig returns the cooldown-only policy with DefaultCooldown.
func DefaultConfig() Config {
	return Config{Cooldown: DefaultCooldown, Policy: PolicyCooldownOnly}
}

// State is the debounce memory. The zero value is the initial state: nothing
// dispatched yet and a last dispatch time infinitely far in the past.
type State struct {
	LastGesture gesture.Gesture `json:"last_gesture"`
	LastTime    time.Time       `json:"last_time"`
}

// Cooling reports whether now falls inside the cooldown window that
// follows the last accepted dispatch. A clock that steps backwards keeps
// the state cooling.
func (s State) Cooling(now time.Time, cooldown time.Duration) bool {
	if s.LastGesture == gesture.None {
		return false
	}
	return now.Sub(s.LastTime) < cooldown
}

// Reason explains a Decision.
type Reason int

const (
	ReasonAccepted Reason = iota
	ReasonNoGesture
	ReasonCooling
	ReasonRepeat
)

var reasonNames = [...]string{"accepted", "no-gesture", "cooling", "repeat"}

func (r Reason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return fmt.Sprintf("Reason(%d)", int(r))
}

// MarshalText implements encoding.TextMarshaler.
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Decision is the outcome of Decide.
type Decision struct {
	Accepted bool   `json:"accepted"`
	Reason   Reason `json:"reason"`
}

// Decide applies the debounce rules to a gesture observed at now. It is
// pure: the returned State equals st unless the gesture is accepted.
func Decide(g gesture.Gesture, now time.Time, st State, cfg Config) (State, Decision) {
	if g == gesture.None {
		return st, Decision{Reason: ReasonNoGesture}
	}
	if st.Cooling(now, cfg.Cooldown) {
		return st, Decision{Reason: ReasonCooling}
	}
	if cfg.Policy == PolicyChangeGated && g == st.LastGesture {
		return st, Decision{Reason: ReasonRepeat}
	}
	return State{LastGesture: g, LastTime: now}, Decision{Accepted: true, Reason: ReasonAccepted}
}
