// Package config loads runtime settings from AIRBOT_* environment variables
// and command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/ayusman/airbot/internal/dispatch"
	"github.com/ayusman/airbot/internal/gesture"
)

// Config holds all runtime configuration.
type Config struct {
	Cooldown    time.Duration `env:"AIRBOT_COOLDOWN"    envDefault:"500ms"`
	Policy      string        `env:"AIRBOT_POLICY"      envDefault:"cooldown-only"`
	Orientation string        `env:"AIRBOT_ORIENTATION" envDefault:"mirrored"`

	CameraID         int    `env:"AIRBOT_CAMERA_ID"          envDefault:"0"`
	VideoFile        string `env:"AIRBOT_VIDEO_FILE"`
	FPS              int    `env:"AIRBOT_FPS"                envDefault:"15"`
	MaxFrameFailures int    `env:"AIRBOT_MAX_FRAME_FAILURES" envDefault:"30"`

	DataDir   string `env:"AIRBOT_DATA_DIR"`
	// PluginDir defaults to <DataDir>/plugins.
	PluginDir string `env:"AIRBOT_PLUGIN_DIR"`
	Addr      string `env:"AIRBOT_ADDR" envDefault:":8080"`

	DryRun       bool `env:"AIRBOT_DRY_RUN"       envDefault:"false"`
	SessionReset bool `env:"AIRBOT_SESSION_RESET" envDefault:"true"`

	// Tray is only set from the command line.
	Tray bool

	pluginDirDerived bool
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads the environment and fills in the directory defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.resolveDirs(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) resolveDirs() error {
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home dir: %w", err)
		}
		c.DataDir = filepath.Join(home, ".airbot")
	}
	if c.PluginDir == "" {
		c.pluginDirDerived = true
	}
	if c.pluginDirDerived {
		c.PluginDir = filepath.Join(c.DataDir, "plugins")
	}
	return nil
}

// BindFlags registers flags on fs that override the current values.
// Call it after Load so environment values become the flag defaults.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.DurationVar(&c.Cooldown, "cooldown", c.Cooldown, "Minimum gap between two dispatched actions")
	fs.StringVar(&c.Policy, "policy", c.Policy, "Debounce policy: cooldown-only or cooldown-and-change-gated")
	fs.StringVar(&c.Orientation, "orientation", c.Orientation, "Camera orientation: mirrored or unmirrored")
	fs.IntVar(&c.CameraID, "camera", c.CameraID, "Camera device index")
	fs.StringVar(&c.VideoFile, "video", c.VideoFile, "Read frames from a video file instead of the camera")
	fs.IntVar(&c.FPS, "fps", c.FPS, "Frames processed per second")
	fs.IntVar(&c.MaxFrameFailures, "max-frame-failures", c.MaxFrameFailures, "Consecutive frame read failures before giving up")
	fs.StringVar(&c.DataDir, "data-dir", c.DataDir, "Directory for the database")
	fs.StringVar(&c.PluginDir, "plugin-dir", c.PluginDir, "Plugin discovery directory")
	fs.StringVar(&c.Addr, "addr", c.Addr, "Dashboard listen address")
	fs.BoolVar(&c.DryRun, "dry-run", c.DryRun, "Log key presses instead of sending them")
	fs.BoolVar(&c.SessionReset, "session-reset", c.SessionReset, "Reset debounce state when a session starts")
	fs.BoolVar(&c.Tray, "tray", c.Tray, "Show the system tray icon")
}

// ParseFlags binds the flags on fs and parses args. A derived plugin
// directory follows -data-dir unless -plugin-dir is given.
func (c *Config) ParseFlags(fs *flag.FlagSet, args []string) error {
	c.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "plugin-dir" {
			c.pluginDirDerived = false
		}
	})
	return c.resolveDirs()
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Cooldown <= 0 {
		errs = append(errs, fmt.Errorf("cooldown must be positive, got %s", c.Cooldown))
	}
	if c.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps must be positive, got %d", c.FPS))
	}
	if c.MaxFrameFailures <= 0 {
		errs = append(errs, fmt.Errorf("max frame failures must be positive, got %d", c.MaxFrameFailures))
	}
	if _, err := dispatch.ParsePolicy(c.Policy); err != nil {
		errs = append(errs, err)
	}
	if _, err := gesture.RulesFor(gesture.Orientation(c.Orientation)); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Dispatch returns the debounce configuration. It assumes Validate passed.
func (c *Config) Dispatch() dispatch.Config {
	policy, _ := dispatch.ParsePolicy(c.Policy)
	return dispatch.Config{Cooldown: c.Cooldown, Policy: policy}
}

// DatabasePath returns the SQLite file location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "airbot.db")
}
