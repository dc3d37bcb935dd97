package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/char5742/quitbit/internal/config"
	"github.com/char5742/quitbit/internal/consts"
	"github.com/char5742/quitbit/internal/types"
)

func TestWithDefaultCommand(t *testing.T) {
	root := newRootCmd()

	assert.Equal(t, []string{"run"}, withDefaultCommand(root, nil))
	assert.Equal(t, []string{"run", "--buttons=0", "rr"}, withDefaultCommand(root, []string{"--buttons=0", "rr"}))
	assert.Equal(t, []string{"run", "rr", "--exec=/bin/devices"}, withDefaultCommand(root, []string{"rr", "--exec=/bin/devices"}))
	assert.Equal(t, []string{"devices", "--watch=1s"}, withDefaultCommand(root, []string{"devices", "--watch=1s"}))
	assert.Equal(t, []string{"modes"}, withDefaultCommand(root, []string{"modes"}))
	assert.Equal(t, []string{"help"}, withDefaultCommand(root, []string{"help"}))
}

func TestRun_InvalidExecPrintsUsage(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	var out bytes.Buffer

	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs(withDefaultCommand(root, []string{"--buttons=0+1+2", "--exec=" + missing}))

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "does not exist")
	assert.Contains(t, out.String(), "Usage: quitbit")
}

func TestRun_NoArgumentsPrintsUsage(t *testing.T) {
	var out bytes.Buffer

	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs(withDefaultCommand(root, nil))

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "--buttons=0+1+2")
	assert.NotContains(t, out.String(), "error:")
}

func TestRun_MissingExplicitConfigPrintsUsage(t *testing.T) {
	app := filepath.Join(t.TempDir(), "app")
	require.NoError(t, writeExecutable(app))
	var out bytes.Buffer

	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs(withDefaultCommand(root, []string{
		"--buttons=0",
		"--exec=" + app,
		"--config=" + filepath.Join(t.TempDir(), "nope.toml"),
	}))

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "config file not found")
}

func TestLoadConfig_UnusableDefaultPathFallsBack(t *testing.T) {
	notDir := filepath.Join(t.TempDir(), "notadir")
	require.NoError(t, os.WriteFile(notDir, []byte("x"), 0o644))
	t.Setenv("XDG_CONFIG_HOME", notDir)
	t.Setenv(config.EnvPollInterval, "")

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)
}

func TestFormatReading(t *testing.T) {
	assert.Equal(t, "none", formatPressed(types.IdleReading()))
	assert.Equal(t, "0+2", formatPressed(types.Reading{Buttons: 0b101}))
	assert.Equal(t, "centered", formatPOV(consts.POVCentered))
	assert.Equal(t, "90°", formatPOV(consts.POVRight))
}

func writeExecutable(path string) error {
	return os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755)
}
