// Package keys turns symbolic media actions into key presses.
package keys

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidChord is returned when a chord string cannot be parsed.
var ErrInvalidChord = errors.New("invalid key chord")

// Modifier names in canonical form.
const (
	ModShift = "shift"
	ModCtrl  = "ctrl"
	ModAlt   = "alt"
	ModCmd   = "cmd"
)

var modifierAliases = map[string]string{
	"shift":   ModShift,
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"alt":     ModAlt,
	"option":  ModAlt,
	"cmd":     ModCmd,
	"command": ModCmd,
	"super":   ModCmd,
	"meta":    ModCmd,
}

// Chord is a key with the modifiers held while it is pressed.
type Chord struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers,omitempty"`
}

// ParseChord parses strings such as "k", "up" or "shift+n". Modifier
// aliases are folded to their canonical names and the result is lower case.
func ParseChord(s string) (Chord, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	key := strings.TrimSpace(parts[len(parts)-1])
	if key == "" {
		return Chord{}, fmt.Errorf("%w: %q", ErrInvalidChord, s)
	}

	var mods []string
	for _, p := range parts[:len(parts)-1] {
		mod, err := canonicalModifier(strings.TrimSpace(p))
		if err != nil {
			return Chord{}, fmt.Errorf("%w: %q", err, s)
		}
		mods = append(mods, mod)
	}
	return Chord{Key: key, Modifiers: mods}, nil
}

// MustParseChord is ParseChord for package-level tables.
func MustParseChord(s string) Chord {
	c, err := ParseChord(s)
	if err != nil {
		panic(err)
	}
	return c
}

func canonicalModifier(name string) (string, error) {
	mod, ok := modifierAliases[name]
	if !ok {
		return "", fmt.Errorf("%w: unknown modifier %q", ErrInvalidChord, name)
	}
	return mod, nil
}

// Validate checks the key is set and every modifier is known. Modifiers
// are rewritten to their canonical names.
func (c *Chord) Validate() error {
	c.Key = strings.ToLower(strings.TrimSpace(c.Key))
	if c.Key == "" || strings.Contains(c.Key, "+") {
		return fmt.Errorf("%w: key %q", ErrInvalidChord, c.Key)
	}
	for i, m := range c.Modifiers {
		mod, err := canonicalModifier(strings.ToLower(strings.TrimSpace(m)))
		if err != nil {
			return err
		}
		c.Modifiers[i] = mod
	}
	return nil
}

// String renders the chord in the form ParseChord accepts.
func (c Chord) String() string {
	if len(c.Modifiers) == 0 {
		return c.Key
	}
	return strings.Join(c.Modifiers, "+") + "+" + c.Key
}
