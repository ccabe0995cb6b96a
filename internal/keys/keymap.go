package keys

import (
	"sync"

	"github.com/ayusman/airbot/internal/dispatch"
)

// DefaultChords are the YouTube player shortcuts.
var DefaultChords = map[dispatch.Action]Chord{
	dispatch.ActionTogglePlay: MustParseChord("k"),
	dispatch.ActionVolumeUp:   MustParseChord("up"),
	dispatch.ActionVolumeDown: MustParseChord("down"),
	dispatch.ActionNext:       MustParseChord("shift+n"),
	dispatch.ActionPrevious:   MustParseChord("shift+p"),
}

// Keymap binds actions to chords. It is safe for concurrent use so the
// dashboard can rebind keys while a session is dispatching.
type Keymap struct {
	mu     sync.RWMutex
	chords map[dispatch.Action]Chord
}

// NewKeymap creates a keymap holding a copy of chords.
func NewKeymap(chords map[dispatch.Action]Chord) *Keymap {
	m := &Keymap{chords: make(map[dispatch.Action]Chord, len(chords))}
	for a, c := range chords {
		m.chords[a] = cloneChord(c)
	}
	return m
}

// DefaultKeymap returns a keymap with DefaultChords.
func DefaultKeymap() *Keymap {
	return NewKeymap(DefaultChords)
}

// Lookup returns the chord bound to a.
func (m *Keymap) Lookup(a dispatch.Action) (Chord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.chords[a]
	return cloneChord(c), ok
}

// Set binds a to c after validating both.
func (m *Keymap) Set(a dispatch.Action, c Chord) error {
	if _, err := dispatch.ParseAction(string(a)); err != nil {
		return err
	}
	c = cloneChord(c)
	if err := c.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	m.chords[a] = c
	m.mu.Unlock()
	return nil
}

// Restore puts the default chord back for a and returns it.
func (m *Keymap) Restore(a dispatch.Action) (Chord, error) {
	if _, err := dispatch.ParseAction(string(a)); err != nil {
		return Chord{}, err
	}
	c := cloneChord(DefaultChords[a])

	m.mu.Lock()
	m.chords[a] = c
	m.mu.Unlock()
	return cloneChord(c), nil
}

// All returns a copy of every binding.
func (m *Keymap) All() map[dispatch.Action]Chord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[dispatch.Action]Chord, len(m.chords))
	for a, c := range m.chords {
		out[a] = cloneChord(c)
	}
	return out
}

func cloneChord(c Chord) Chord {
	if c.Modifiers != nil {
		c.Modifiers = append([]string(nil), c.Modifiers...)
	}
	return c
}
