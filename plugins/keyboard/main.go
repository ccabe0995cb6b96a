// Package main provides the keyboard plugin. It sends key presses via
// AppleScript on macOS and xdotool on Linux.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action string          `json:"action"`
	Config json.RawMessage `json:"config"`
	Params json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// KeyParams names a key and, for keystroke, the modifiers held with it.
type KeyParams struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"`
}

var errKeyRequired = errors.New("key is required")

// backend turns key events into a command line.
type backend interface {
	keystroke(key string, modifiers []string) []string
	keyDown(key string) []string
	keyUp(key string) []string
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	b, err := backendFor(runtime.GOOS)
	if err != nil {
		writeErrorResponse(err.Error())
		return
	}

	args, err := buildCommand(b, req)
	if err != nil {
		writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
		return
	}
	if err := run(args); err != nil {
		writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
		return
	}

	writeSuccessResponse()
}

func backendFor(goos string) (backend, error) {
	switch goos {
	case "darwin":
		return appleScript{}, nil
	case "linux":
		return xdotool{}, nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}

// buildCommand maps a request to the command line that performs it.
func buildCommand(b backend, req Request) ([]string, error) {
	var p KeyParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return nil, fmt.Errorf("failed to parse params: %w", err)
	}
	key := strings.ToLower(p.Key)
	if key == "" {
		return nil, errKeyRequired
	}

	switch req.Action {
	case "keystroke":
		return b.keystroke(key, p.Modifiers), nil
	case "key-down":
		return b.keyDown(key), nil
	case "key-up":
		return b.keyUp(key), nil
	default:
		return nil, fmt.Errorf("unknown action: %s", req.Action)
	}
}

// appleScript drives System Events through osascript.
type appleScript struct{}

// appleKeyCodes covers keys that keystroke cannot type by name.
var appleKeyCodes = map[string]int{
	"space":  49,
	"return": 36,
	"enter":  36,
	"tab":    48,
	"escape": 53,
	"left":   123,
	"right":  124,
	"down":   125,
	"up":     126,
}

var appleModifiers = map[string]string{
	"shift": "shift",
	"ctrl":  "control",
	"alt":   "option",
	"cmd":   "command",
}

func (appleScript) target(key string) string {
	if code, ok := appleKeyCodes[key]; ok {
		return fmt.Sprintf("key code %d", code)
	}
	return fmt.Sprintf("keystroke %q", key)
}

func (a appleScript) keystroke(key string, modifiers []string) []string {
	script := `tell application "System Events" to ` + a.target(key)

	var using []string
	for _, mod := range modifiers {
		if m, ok := appleModifiers[mod]; ok {
			using = append(using, m+" down")
		}
	}
	if len(using) > 0 {
		script += " using {" + strings.Join(using, ", ") + "}"
	}
	return []string{"osascript", "-e", script}
}

func (a appleScript) keyDown(key string) []string {
	return a.hold("key down", key)
}

func (a appleScript) keyUp(key string) []string {
	return a.hold("key up", key)
}

func (appleScript) hold(verb, key string) []string {
	var target string
	if m, ok := appleModifiers[key]; ok {
		target = m
	} else if code, ok := appleKeyCodes[key]; ok {
		target = fmt.Sprintf("(key code %d)", code)
	} else {
		target = fmt.Sprintf("%q", key)
	}
	return []string{"osascript", "-e", fmt.Sprintf(`tell application "System Events" to %s %s`, verb, target)}
}

// xdotool drives the X server.
type xdotool struct{}

var xdotoolKeys = map[string]string{
	"space":  "space",
	"return": "Return",
	"enter":  "Return",
	"tab":    "Tab",
	"escape": "Escape",
	"left":   "Left",
	"right":  "Right",
	"down":   "Down",
	"up":     "Up",
	"shift":  "shift",
	"ctrl":   "ctrl",
	"alt":    "alt",
	"cmd":    "super",
}

func (xdotool) name(key string) string {
	if n, ok := xdotoolKeys[key]; ok {
		return n
	}
	return key
}

func (x xdotool) keystroke(key string, modifiers []string) []string {
	parts := make([]string, 0, len(modifiers)+1)
	for _, mod := range modifiers {
		parts = append(parts, x.name(mod))
	}
	parts = append(parts, x.name(key))
	// Modifiers held by an earlier keydown must stay pressed for the tap.
	return []string{"xdotool", "key", strings.Join(parts, "+")}
}

func (x xdotool) keyDown(key string) []string {
	return []string{"xdotool", "keydown", x.name(key)}
}

func (x xdotool) keyUp(key string) []string {
	return []string{"xdotool", "keyup", x.name(key)}
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}

// run executes args and folds its output into the error.
func run(args []string) error {
	cmd := exec.Command(args[0], args[1:]...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
