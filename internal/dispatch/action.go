// Package dispatch debounces recognized gestures and emits one symbolic
// media action per accepted gesture.
package dispatch

import (
	"context"
	"errors"

	"github.com/ayusman/airbot/internal/gesture"
)

// Action is a symbolic media-player command. Mapping actions to physical
// keys is the Emitter's concern.
type Action string

const (
	ActionNone       Action = ""
	ActionTogglePlay Action = "toggle-play"
	ActionVolumeUp   Action = "volume-up"
	ActionVolumeDown Action = "volume-down"
	ActionNext       Action = "next"
	ActionPrevious   Action = "previous"
)

// Actions lists every bound action.
var Actions = []Action{ActionTogglePlay, ActionVolumeUp, ActionVolumeDown, ActionNext, ActionPrevious}

// Bindings is the fixed gesture to action table.
var Bindings = map[gesture.Gesture]Action{
	gesture.PlayPause:     ActionTogglePlay,
	gesture.VolumeUp:      ActionVolumeUp,
	gesture.VolumeDown:    ActionVolumeDown,
	gesture.NextVideo:     ActionNext,
	gesture.PreviousVideo: ActionPrevious,
}

// ActionFor returns the action bound to g, or ActionNone.
func ActionFor(g gesture.Gesture) Action {
	return Bindings[g]
}

// ErrUnknownAction is returned when parsing an unrecognized action name.
var ErrUnknownAction = errors.New("unknown action")

// ParseAction validates an action name.
func ParseAction(s string) (Action, error) {
	for _, a := range Actions {
		if string(a) == s {
			return a, nil
		}
	}
	return ActionNone, ErrUnknownAction
}

// Emitter delivers an action to the outside world, typically as a key press.
type Emitter interface {
	Emit(ctx context.Context, a Action) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, a Action) error

// Emit calls f.
func (f EmitterFunc) Emit(ctx context.Context, a Action) error {
	return f(ctx, a)
}
