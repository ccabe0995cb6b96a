package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"text/tabwriter"

	"github.com/ayusman/airbot/internal/app"
	"github.com/ayusman/airbot/internal/config"
	"github.com/ayusman/airbot/internal/dispatch"
	"github.com/ayusman/airbot/internal/gesture"
	"github.com/ayusman/airbot/internal/keys"
	"github.com/ayusman/airbot/internal/plugin"
	"github.com/ayusman/airbot/internal/server"
	"github.com/ayusman/airbot/internal/server/api"
	"github.com/ayusman/airbot/internal/store"
	"github.com/ayusman/airbot/internal/tray"
)

const usage = `AirBOT - Hand Gesture Media Control

Usage:
  airbot run   [flags]   control media from the camera until interrupted
  airbot serve [flags]   run the dashboard (and optionally the tray)

Run "airbot <command> -h" for flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch cmd := os.Args[1]; cmd {
	case "run":
		err = runCmd(os.Args[2:])
	case "serve":
		err = serveCmd(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("%v", err)
	}
}

// loadConfig reads the environment, then name's flags from args.
func loadConfig(name string, args []string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	fs := flag.NewFlagSet(name, flag.ExitOnError)
	if err := cfg.ParseFlags(fs, args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// components is everything a command needs, built from one Config.
type components struct {
	app    *app.App
	keymap *keys.Keymap
	store  *store.Store
}

func (c *components) Close() {
	if err := c.app.Close(); err != nil {
		log.Printf("Error closing app: %v", err)
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			log.Printf("Error closing store: %v", err)
		}
	}
}

func setup(cfg *config.Config) (*components, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("initialize store: %w", err)
	}

	km := keys.DefaultKeymap()
	if err := api.RestoreKeymap(km, st); err != nil {
		st.Close()
		return nil, fmt.Errorf("restore keymap: %w", err)
	}

	a, err := app.New(app.Config{
		Emitter:          keys.NewEmitter(km, newInjector(cfg)),
		Dispatch:         cfg.Dispatch(),
		Orientation:      gesture.Orientation(cfg.Orientation),
		CameraID:         cfg.CameraID,
		VideoFile:        cfg.VideoFile,
		FPS:              cfg.FPS,
		MaxFrameFailures: cfg.MaxFrameFailures,
		SessionReset:     cfg.SessionReset,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	if err := api.RestoreSettings(a, st); err != nil {
		log.Printf("Ignoring saved settings: %v", err)
	}

	return &components{app: a, keymap: km, store: st}, nil
}

// newInjector returns the keyboard plugin, or a dry-run injector when it
// is unavailable or dry run was asked for.
func newInjector(cfg *config.Config) keys.Injector {
	if cfg.DryRun {
		log.Println("Dry run: key presses are logged, not sent")
		return keys.NewDryRunInjector()
	}

	manager := plugin.NewManager(cfg.PluginDir)
	if err := manager.Discover(); err != nil {
		log.Printf("Plugin discovery failed (%v), using dry run", err)
		return keys.NewDryRunInjector()
	}

	inj, err := keys.NewPluginInjector(manager, plugin.NewExecutor(plugin.DefaultTimeout))
	if err != nil {
		log.Printf("Keyboard plugin not available (%v), using dry run", err)
		return keys.NewDryRunInjector()
	}
	log.Printf("Using keyboard plugin from %s", cfg.PluginDir)
	return inj
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// runCmd runs one control session in the foreground.
func runCmd(args []string) error {
	cfg, err := loadConfig("run", args)
	if err != nil {
		return err
	}

	c, err := setup(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	printInstructions(os.Stdout, c.keymap)

	ctx, stop := signalContext()
	defer stop()

	c.app.OnDispatch(func(res dispatch.Result) {
		fmt.Println(dispatch.LogEntry{Time: res.At, Gesture: res.Gesture}.String())
	})

	err = c.app.Run(ctx)
	if errors.Is(err, app.ErrTooManyFrameFailures) {
		return fmt.Errorf("camera stopped delivering frames: %w", err)
	}
	return err
}

// serveCmd runs the dashboard, and the tray when asked.
func serveCmd(args []string) error {
	cfg, err := loadConfig("serve", args)
	if err != nil {
		return err
	}

	c, err := setup(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	webDir := findWebDir(cfg.DataDir)
	if webDir != "" {
		log.Printf("Serving static files from: %s", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		App:       c.app,
		Store:     c.store,
		Keymap:    c.keymap,
	})

	ctx, stop := signalContext()
	defer stop()

	if !cfg.Tray {
		return srv.Run(ctx, cfg.Addr)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx, cfg.Addr) }()

	t := tray.New(c.app)
	c.app.OnDispatch(func(res dispatch.Result) { t.SetLastGesture(res.Gesture) })
	t.OnSettings(func() { openBrowser(dashboardURL(cfg.Addr)) })
	t.OnQuit(stop)
	go func() {
		<-ctx.Done()
		t.Quit()
	}()

	// systray needs the main goroutine.
	t.Run()
	stop()
	return <-errCh
}

// printInstructions writes the gesture table shown when a session starts.
func printInstructions(w io.Writer, km *keys.Keymap) {
	fmt.Fprintln(w, "AirBOT - Hand Gesture Media Control")
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FINGERS\tGESTURE\tKEY")
	for _, p := range gesture.Patterns {
		key := "-"
		if chord, ok := km.Lookup(dispatch.ActionFor(p.Gesture)); ok {
			key = chord.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Description, p.Gesture, key)
	}
	tw.Flush()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Press Ctrl+C to quit.")
}

func dashboardURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("Failed to open browser: %v", err)
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if absPath, err := filepath.Abs(p); err == nil {
				return absPath
			}
			return p
		}
	}

	dataWebDir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(dataWebDir); err == nil && info.IsDir() {
		return dataWebDir
	}

	return ""
}
