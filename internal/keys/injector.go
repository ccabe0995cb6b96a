package keys

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/ayusman/airbot/internal/plugin"
)

// KeyboardPlugin is the plugin name and the actions PluginInjector needs.
const (
	KeyboardPlugin  = "keyboard"
	ActionKeystroke = "keystroke"
	ActionKeyDown   = "key-down"
	ActionKeyUp     = "key-up"
)

// ErrInjection wraps failures reported by the keyboard plugin itself.
var ErrInjection = errors.New("key injection failed")

// PluginInjector sends key events through the keyboard plugin.
type PluginInjector struct {
	plugin   *plugin.Plugin
	executor *plugin.Executor
}

// NewPluginInjector looks the keyboard plugin up in manager. It fails when
// the plugin is missing or lacks one of the key actions.
func NewPluginInjector(manager *plugin.Manager, executor *plugin.Executor) (*PluginInjector, error) {
	p, err := manager.Require(KeyboardPlugin, ActionKeystroke, ActionKeyDown, ActionKeyUp)
	if err != nil {
		return nil, err
	}
	return &PluginInjector{plugin: p, executor: executor}, nil
}

// PressAndRelease implements Injector.
func (p *PluginInjector) PressAndRelease(ctx context.Context, c Chord) error {
	return p.run(ctx, ActionKeystroke, c)
}

// Press implements Injector.
func (p *PluginInjector) Press(ctx context.Context, key string) error {
	return p.run(ctx, ActionKeyDown, Chord{Key: key})
}

// Release implements Injector.
func (p *PluginInjector) Release(ctx context.Context, key string) error {
	return p.run(ctx, ActionKeyUp, Chord{Key: key})
}

func (p *PluginInjector) run(ctx context.Context, action string, c Chord) error {
	params, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}

	resp, err := p.executor.Execute(ctx, p.plugin, &plugin.Request{Action: action, Params: params})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("%w: %s", ErrInjection, resp.Error)
	}
	return nil
}

// dryRunHistory bounds the events a DryRunInjector keeps.
const dryRunHistory = 100

// DryRunInjector logs key events instead of sending them.
type DryRunInjector struct {
	mu     sync.Mutex
	events []string
}

// NewDryRunInjector creates a DryRunInjector.
func NewDryRunInjector() *DryRunInjector {
	return &DryRunInjector{}
}

// PressAndRelease implements Injector.
func (d *DryRunInjector) PressAndRelease(_ context.Context, c Chord) error {
	d.record("tap " + c.String())
	return nil
}

// Press implements Injector.
func (d *DryRunInjector) Press(_ context.Context, key string) error {
	d.record("down " + key)
	return nil
}

// Release implements Injector.
func (d *DryRunInjector) Release(_ context.Context, key string) error {
	d.record("up " + key)
	return nil
}

// Events returns the recorded events, oldest first.
func (d *DryRunInjector) Events() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.events...)
}

func (d *DryRunInjector) record(event string) {
	log.Printf("Dry run key event: %s", event)
	d.mu.Lock()
	d.events = append(d.events, event)
	if len(d.events) > dryRunHistory {
		d.events = d.events[len(d.events)-dryRunHistory:]
	}
	d.mu.Unlock()
}
