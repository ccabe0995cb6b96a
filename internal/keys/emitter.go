package keys

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayusman/airbot/internal/dispatch"
)

// ErrUnboundAction is returned when an action has no chord in the keymap.
var ErrUnboundAction = errors.New("action has no key binding")

// Injector sends synthetic key events to the focused application.
type Injector interface {
	// PressAndRelease taps the chord's key with its modifiers held.
	PressAndRelease(ctx context.Context, c Chord) error
	// Press holds key down until Release.
	Press(ctx context.Context, key string) error
	Release(ctx context.Context, key string) error
}

// Emitter implements dispatch.Emitter by looking the action up in a Keymap
// and driving an Injector.
type Emitter struct {
	keymap   *Keymap
	injector Injector
}

// NewEmitter creates an Emitter.
func NewEmitter(keymap *Keymap, injector Injector) *Emitter {
	return &Emitter{keymap: keymap, injector: injector}
}

// Keymap returns the keymap the emitter reads.
func (e *Emitter) Keymap() *Keymap {
	return e.keymap
}

// Emit sends the chord bound to a. Modifiers are pressed in order, the key
// is tapped, then modifiers are released in reverse order. Every pressed
// modifier is released even when a later step fails.
func (e *Emitter) Emit(ctx context.Context, a dispatch.Action) error {
	chord, ok := e.keymap.Lookup(a)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnboundAction, a)
	}

	if len(chord.Modifiers) == 0 {
		if err := e.injector.PressAndRelease(ctx, chord); err != nil {
			return fmt.Errorf("send %s: %w", chord, err)
		}
		return nil
	}

	var errs []error
	pressed := make([]string, 0, len(chord.Modifiers))
	for _, mod := range chord.Modifiers {
		if err := e.injector.Press(ctx, mod); err != nil {
			errs = append(errs, fmt.Errorf("press %s: %w", mod, err))
			break
		}
		pressed = append(pressed, mod)
	}

	if len(errs) == 0 {
		if err := e.injector.PressAndRelease(ctx, Chord{Key: chord.Key}); err != nil {
			errs = append(errs, fmt.Errorf("send %s: %w", chord, err))
		}
	}

	// Release with a fresh context so a cancelled ctx cannot leave a
	// modifier stuck down.
	releaseCtx := context.WithoutCancel(ctx)
	for i := len(pressed) - 1; i >= 0; i-- {
		if err := e.injector.Release(releaseCtx, pressed[i]); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", pressed[i], err))
		}
	}

	return errors.Join(errs...)
}
