package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/airbot/internal/config"
	"github.com/ayusman/airbot/internal/keys"
)

func TestPrintInstructions(t *testing.T) {
	var buf bytes.Buffer
	printInstructions(&buf, keys.DefaultKeymap())
	out := buf.String()

	for _, want := range []string{
		"All fingers up",
		"Play/Pause",
		"Only pinky up",
		"Next Video",
		"shift+n",
		"Press Ctrl+C to quit.",
	} {
		assert.Contains(t, out, want)
	}
	// Header plus one row per pattern.
	assert.Equal(t, 7, strings.Count(out, "\n")-4)
}

func TestDashboardURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080", dashboardURL(":8080"))
	assert.Equal(t, "http://127.0.0.1:9000", dashboardURL("127.0.0.1:9000"))
}

func TestFindWebDir(t *testing.T) {
	dataDir := t.TempDir()
	t.Chdir(t.TempDir())

	assert.Empty(t, findWebDir(dataDir))

	require.NoError(t, os.Mkdir(filepath.Join(dataDir, "web"), 0755))
	assert.Equal(t, filepath.Join(dataDir, "web"), findWebDir(dataDir))

	require.NoError(t, os.Mkdir("web", 0755))
	got := findWebDir(dataDir)
	assert.Equal(t, "web", filepath.Base(got))
	assert.True(t, filepath.IsAbs(got))
}

func TestNewInjector_FallsBackToDryRun(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
	}{
		{"dry run requested", config.Config{DryRun: true}},
		{"no plugin directory", config.Config{PluginDir: filepath.Join(t.TempDir(), "missing")}},
		{"no keyboard plugin", config.Config{PluginDir: t.TempDir()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.IsType(t, &keys.DryRunInjector{}, newInjector(&tt.cfg))
		})
	}
}
