// Package tray provides the system tray menu for the AirBOT gesture controller.
package tray

import (
	"log"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/airbot/internal/gesture"
)

// Controller is the part of the app the tray drives.
type Controller interface {
	SetEnabled(enabled bool)
	IsEnabled() bool
	Start() error
	Stop()
	Running() bool
}

// Tray represents the system tray application.
type Tray struct {
	ctrl       Controller
	onSettings func()
	onQuit     func()
	last       gesture.Gesture
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuToggle      *systray.MenuItem
	menuSession     *systray.MenuItem
	menuLastGesture *systray.MenuItem
}

// New creates a new Tray driving ctrl.
func New(ctrl Controller) *Tray {
	return &Tray{ctrl: ctrl}
}

// OnSettings sets the callback function to be called when the dashboard menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("AirBOT")
	systray.SetTooltip("AirBOT hand gesture media control")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(enabledLabel(t.ctrl.IsEnabled()), "Toggle gesture recognition")
	t.menuSession = systray.AddMenuItem(sessionLabel(t.ctrl.Running()), "Start or stop the camera")
	systray.AddSeparator()

	t.menuLastGesture = systray.AddMenuItem(lastLabel(t.last), "Last dispatched gesture")
	t.menuLastGesture.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit AirBOT")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-t.menuSession.ClickedCh:
				t.handleSession()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	enabled := !t.ctrl.IsEnabled()
	t.ctrl.SetEnabled(enabled)

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(enabledLabel(enabled))
	}
}

// handleSession starts or stops the control session.
func (t *Tray) handleSession() {
	if t.ctrl.Running() {
		t.ctrl.Stop()
	} else if err := t.ctrl.Start(); err != nil {
		log.Printf("Failed to start session: %v", err)
	}
	t.Refresh()
}

// handleSettings handles the dashboard menu item click.
func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// Refresh re-reads the controller state into the menu.
func (t *Tray) Refresh() {
	enabled, running := t.ctrl.IsEnabled(), t.ctrl.Running()

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(enabledLabel(enabled))
	}
	if t.menuSession != nil {
		t.menuSession.SetTitle(sessionLabel(running))
	}
}

// SetLastGesture updates the last gesture display in the menu.
func (t *Tray) SetLastGesture(g gesture.Gesture) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = g
	if t.menuLastGesture != nil {
		t.menuLastGesture.SetTitle(lastLabel(g))
	}
}

// LastGesture returns the gesture shown in the menu.
func (t *Tray) LastGesture() gesture.Gesture {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

func enabledLabel(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

func sessionLabel(running bool) string {
	if running {
		return "Stop Camera"
	}
	return "Start Camera"
}

func lastLabel(g gesture.Gesture) string {
	if g == gesture.None {
		return "Last: none"
	}
	return "Last: " + g.String()
}
